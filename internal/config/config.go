package config

import (
	"os"
)

type Config struct {
	OutputDir   string
	RulesDir    string
	RunsDBPath  string
	PostgresDSN string
	LogLevel    string
}

// Load resolves configuration from the environment. FWGEN_DB selects the
// Postgres run-history repository when set; otherwise runs land in the
// SQLite file at FWGEN_RUNS_DB.
func Load() *Config {
	return &Config{
		OutputDir:   getEnv("FWGEN_OUTPUT_DIR", "./data/synthetic_data"),
		RulesDir:    getEnv("FWGEN_RULES_DIR", "./rules"),
		RunsDBPath:  getEnv("FWGEN_RUNS_DB", "./db/fwgen-runs.sqlite"),
		PostgresDSN: os.Getenv("FWGEN_DB"),
		LogLevel:    getEnv("FWGEN_LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
