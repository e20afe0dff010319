package config

// Compile-time constants mirrored from original_source's "DO NOT CHANGE"
// region; they must match the reference server's expectations exactly.
const (
	PerSecondRate             = 20
	RequestTTLMillis          = 1000
	DurationMillisBetweenReqs = 1000 / PerSecondRate
)

// DefaultAPIKeys are the five compiled-in credentials, one per worker,
// taken verbatim from original_source/simple_client.
var DefaultAPIKeys = []string{
	"UT4NHL1J796WCHULA1750MXYF9F5JYA6",
	"8TY2F3KIL38T741G1UCBMCAQ75XU9F5O",
	"954IXKJN28CBDKHSKHURQIVLQHZIEEM9",
	"EUU46ID478HOO7GOXFASKPOZ9P91XGYS",
	"46V5EZ5K2DFAGW85J18L50SGO25WJ5JE",
}

// DefaultEndpoint is the reference dispatch URL.
const DefaultEndpoint = "http://127.0.0.1:9999/api/request"
