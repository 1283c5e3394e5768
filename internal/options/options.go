package options

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Options carries the service configuration. Values come from the
// environment (optionally seeded from a .env file); the core packages
// receive them explicitly at construction instead of reading globals.
type Options struct {
	// Addr is the HTTP listen address
	Addr string
	// DBPath is the SQLite database path
	DBPath string
	// TablePrefix namespaces the schema inside a shared database
	TablePrefix string
	// Locale resolves language-map fields (hyphen or underscore form)
	Locale string
	// StoreCompleteXAPI keeps the raw payload on each fact row
	StoreCompleteXAPI bool
	// DebugEnabled is passed through to client tooling
	DebugEnabled bool
	// LogMode selects the zap configuration ("production" or "development")
	LogMode string
}

// FromEnv loads options from the environment, reading an optional .env file
// first. Missing variables fall back to defaults.
func FromEnv() Options {
	_ = godotenv.Load()

	return Options{
		Addr:              env("XAPIKATCHU_ADDR", ":8090"),
		DBPath:            env("XAPIKATCHU_DB_PATH", "xapikatchu.db"),
		TablePrefix:       env("XAPIKATCHU_TABLE_PREFIX", "xapikatchu_"),
		Locale:            env("XAPIKATCHU_LOCALE", "en-US"),
		StoreCompleteXAPI: envBool("XAPIKATCHU_STORE_COMPLETE_XAPI", false),
		DebugEnabled:      envBool("XAPIKATCHU_DEBUG", false),
		LogMode:           env("XAPIKATCHU_LOG_MODE", "production"),
	}
}

// env returns the environment variable value for key, or fallback if empty.
func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// envBool parses a boolean environment variable, or returns fallback when
// the variable is unset or unparseable.
func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
