package config

import (
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	Addr         string
	APIBaseURL   string
	StateDir     string
	PollInterval time.Duration
	LogLevel     string
}

func FromEnv() Config {
	c := Config{}
	c.Addr = getenv("CONSOLE_ADDR", ":8080")
	c.APIBaseURL = getenv("API_BASE_URL", "https://testauction.ankuaru.com")
	c.StateDir = getenv("STATE_DIR", defaultStateDir())
	c.LogLevel = getenv("LOG_LEVEL", "info")
	c.PollInterval = 30 * time.Second
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.PollInterval = d
		}
	}
	return c
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bidconsole"
	}
	return filepath.Join(home, ".bidconsole")
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
