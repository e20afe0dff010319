// Package config loads the environment-variable configuration described
// in SPEC_FULL.md §6.2, generalizing the teacher's flat package-level
// flag.* variables into a struct so defaults and overrides are testable
// in isolation from flag.Parse/os.Getenv.
package config

import (
	"os"
	"strconv"
	"time"
)

// Level is a minimum log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Config holds the environment-derived settings that are not already
// captured by CLI flags.
type Config struct {
	LogLevel   Level
	APITimeout time.Duration
}

// FromEnv reads LOG_LEVEL and API_TIMEOUT from the process environment,
// applying the defaults from SPEC_FULL.md §6.2 when unset or unparsable.
func FromEnv() Config {
	cfg := Config{
		LogLevel:   LevelDebug,
		APITimeout: time.Second,
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		switch Level(v) {
		case LevelDebug, LevelInfo, LevelWarn, LevelError:
			cfg.LogLevel = Level(v)
		}
	}

	if v := os.Getenv("API_TIMEOUT"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			cfg.APITimeout = time.Duration(secs * float64(time.Second))
		}
	}

	return cfg
}
