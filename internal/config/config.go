package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port              int
	NatsURL           string
	NatsToken         string
	DatabaseURL       string
	LogLevel          string
	ExportDir         string
	OutputDir         string
	WindowMinutes     int
	ConfidenceMinutes int
	Serve             bool
}

func Load() Config {
	return Config{
		Port:              envInt("ROLLCALL_PORT", 8760),
		NatsURL:           envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:         envStr("NATS_TOKEN", ""),
		DatabaseURL:       envStr("DATABASE_URL", ""),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		ExportDir:         envStr("ROLLCALL_EXPORT_DIR", "exports"),
		OutputDir:         envStr("ROLLCALL_OUTPUT_DIR", "out"),
		WindowMinutes:     envInt("ROLLCALL_WINDOW_MINUTES", 15),
		ConfidenceMinutes: envInt("ROLLCALL_CONFIDENCE_MINUTES", 5),
		Serve:             envBool("ROLLCALL_SERVE", false),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
