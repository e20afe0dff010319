// Package logging wires the structured logger used across the
// dispatcher: a hourly-rotating file sink retaining up to 720 backups,
// and — only when the effective level is DEBUG — a duplicate stream sink
// on standard output, following original_source's configure_logger and
// the line format described in SPEC_FULL.md §6.4.
package logging

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bpowers/ratedispatch/internal/config"
)

const maxHourlyBackups = 720

// Options configures Setup.
type Options struct {
	LogDir string
	Level  config.Level
}

// Logger bundles the constructed *zap.Logger with the rotator, which a
// background goroutine started by Setup rotates once an hour and Close
// flushes and closes on shutdown.
type Logger struct {
	*zap.Logger
	rotator *lumberjack.Logger
}

// Setup builds the tee'd logger described above.
func Setup(opts Options) (*Logger, error) {
	if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
		return nil, err
	}

	encCfg := zapcore.EncoderConfig{
		MessageKey: "message",
		LevelKey:   "level",
		NameKey:    "name",
		TimeKey:    "time",
	}
	encoder := NewLineEncoder(encCfg)

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(opts.LogDir, "ratedispatch.log"),
		MaxBackups: maxHourlyBackups,
		MaxAge:     maxHourlyBackups / 24,
		Compress:   false,
	}

	level := zapLevel(opts.Level)
	fileCore := zapcore.NewCore(encoder, zapcore.AddSync(rotator), level)

	cores := []zapcore.Core{fileCore}
	if opts.Level == config.LevelDebug {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	}

	zl := zap.New(zapcore.NewTee(cores...))
	l := &Logger{Logger: zl, rotator: rotator}
	go l.rotateHourly()
	return l, nil
}

// rotateHourly forces lumberjack to cut a new backup once an hour, giving
// the size-based rotator the same cadence as Python's
// TimedRotatingFileHandler(when='H', interval=1).
func (l *Logger) rotateHourly() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		_ = l.rotator.Rotate()
	}
}

// Close flushes buffered entries and closes the rotating file.
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	return l.rotator.Close()
}

func zapLevel(lvl config.Level) zapcore.Level {
	switch lvl {
	case config.LevelDebug:
		return zapcore.DebugLevel
	case config.LevelInfo:
		return zapcore.InfoLevel
	case config.LevelWarn:
		return zapcore.WarnLevel
	case config.LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.DebugLevel
	}
}
