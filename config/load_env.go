package config

import (
	"log/slog"

	"github.com/subosito/gotenv"
)

// LoadEnv loads config/envs/.env.<env> into the process environment.
// Variables already set in the OS environment win.
func LoadEnv(env string) {
	envFile := "config/envs/.env." + env
	if err := gotenv.Load(envFile); err != nil {
		slog.Warn("[Config] No .env file found, using OS environment",
			slog.String("file", envFile))
		return
	}
	slog.Info("[Config] Loaded env file", slog.String("file", envFile))
}

// AppEnv is the APP_ENV value, "dev" when unset.
func AppEnv() string {
	return getEnv("APP_ENV", "dev")
}
