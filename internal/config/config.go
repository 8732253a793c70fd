package config

import (
	"os"
	"strconv"
)

// Config is the process-level configuration read from the environment.
// Store-level settings (location, owner number, threshold, manual rates)
// live in the SettingsStore and are editable at runtime; the values here
// only seed the defaults on first run.
type Config struct {
	Port string

	StorageBackend string // "memory", "sqlite" or "firestore"
	SQLitePath     string
	GCPProjectID   string

	// Messaging provider. Empty ProviderURL selects the logging sender.
	ProviderURL   string
	ProviderFrom  string
	ProviderToken string

	// Rate source. Empty RateCommand selects the HTTP fetcher; empty
	// RateAPIURL too selects the static fixture.
	RateCommand string
	RateAPIURL  string
	RateAPIKey  string

	// Seeds for the settings record.
	StoreLocation     string
	MapLink           string
	OwnerNumber       string
	WelcomeMediaURL   string
	ApprovalThreshold int64

	// HandoffFailOpen keeps the bot replying when the handoff gate cannot
	// be evaluated. Availability over handoff correctness.
	HandoffFailOpen bool
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

func getInt64Env(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// Load reads all env vars and builds the config.
func Load() *Config {
	return &Config{
		Port: getEnv("ASSIST_PORT", "8080"),

		StorageBackend: getEnv("ASSIST_STORAGE_BACKEND", "memory"),
		SQLitePath:     getEnv("ASSIST_SQLITE_PATH", "data/assist.db"),
		GCPProjectID:   getEnv("ASSIST_GCP_PROJECT", ""),

		ProviderURL:   getEnv("ASSIST_PROVIDER_URL", ""),
		ProviderFrom:  getEnv("ASSIST_PROVIDER_FROM", ""),
		ProviderToken: getEnv("ASSIST_PROVIDER_TOKEN", ""),

		RateCommand: getEnv("ASSIST_RATE_CMD", ""),
		RateAPIURL:  getEnv("ASSIST_RATE_API_URL", ""),
		RateAPIKey:  getEnv("ASSIST_RATE_API_KEY", ""),

		StoreLocation:     getEnv("ASSIST_STORE_LOCATION", "123 Gold Street, Market City, Chennai"),
		MapLink:           getEnv("ASSIST_MAP_LINK", "https://maps.google.com/?q=Jeweled+Showroom"),
		OwnerNumber:       getEnv("ASSIST_OWNER_NUMBER", ""),
		WelcomeMediaURL:   getEnv("ASSIST_WELCOME_MEDIA_URL", ""),
		ApprovalThreshold: getInt64Env("ASSIST_APPROVAL_THRESHOLD", 20000),

		HandoffFailOpen: getBoolEnv("ASSIST_HANDOFF_FAIL_OPEN", true),
	}
}
