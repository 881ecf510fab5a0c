package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"shippingbox/internal/box"
	"shippingbox/internal/kv"
)

type Config struct {
	Port         string
	StoreDriver  string
	StorePath    string
	DatabaseURL  string
	RedisAddr    string
	RateProvider string
	SessionKey   string
	HealDelay    time.Duration
	LogLevel     string
}

// Load reads the process environment. Only WEIGHT_HEAL_DELAY can be invalid.
func Load() (Config, error) {
	cfg := Config{
		Port:         getenv("PORT", "8080"),
		StoreDriver:  strings.ToLower(getenv("STORE_DRIVER", "file")),
		StorePath:    os.Getenv("STORE_PATH"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		RateProvider: getenv("RATE_PROVIDER", "table"),
		SessionKey:   os.Getenv("SESSION_KEY"),
		HealDelay:    box.DefaultHealDelay,
		LogLevel:     strings.ToLower(getenv("LOG_LEVEL", "info")),
	}
	if v := strings.TrimSpace(os.Getenv("WEIGHT_HEAL_DELAY")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid WEIGHT_HEAL_DELAY %q", v)
		}
		cfg.HealDelay = d
	}
	return cfg, nil
}

// Store is the backend selection for kv.Open.
func (c Config) Store() kv.Config {
	return kv.Config{
		Driver:      c.StoreDriver,
		Path:        c.StorePath,
		DatabaseURL: c.DatabaseURL,
		RedisAddr:   c.RedisAddr,
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
