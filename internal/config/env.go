package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvORTLibrary   = "SHIKIBETSU_ORT_LIBRARY"
	EnvDebug        = "SHIKIBETSU_DEBUG"
	EnvServerPort   = "SHIKIBETSU_SERVER_PORT"
	EnvDatabasePath = "SHIKIBETSU_DATABASE_PATH"
)

// ApplyEnv loads a .env file from the working directory when present and applies environment
// overrides to cfg. Variables already set in the process environment win over .env values.
func ApplyEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv(EnvORTLibrary); v != "" {
		cfg.Models.ORTLibrary = v
	}
	if v, err := strconv.ParseBool(os.Getenv(EnvDebug)); err == nil {
		cfg.Debug = v
	}
	if v, err := strconv.Atoi(os.Getenv(EnvServerPort)); err == nil && v > 0 {
		cfg.Server.Port = v
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		cfg.Storage.DatabasePath = v
	}
}
