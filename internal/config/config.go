// Package config loads runtime settings from the environment, with an
// optional YAML file as the base layer. Environment variables always
// win over file values.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`

	StockfishPath  string `yaml:"stockfish_path"`
	EngineThreads  int    `yaml:"engine_threads"`
	EngineHashMB   int    `yaml:"engine_hash_mb"`
	EngineSessions int    `yaml:"engine_sessions"`

	BotMoveBudgetMillis int `yaml:"bot_move_budget_ms"`
	BotDefaultLevel     int `yaml:"bot_default_level"`

	MaxConcurrentRooms int `yaml:"max_concurrent_rooms"`

	ShutdownGrace time.Duration `yaml:"-"`
}

func (c *AppConfig) BotMoveBudget() time.Duration {
	return time.Duration(c.BotMoveBudgetMillis) * time.Millisecond
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:            ":8080",
		EngineThreads:       1,
		EngineHashMB:        64,
		EngineSessions:      2,
		BotMoveBudgetMillis: 1500,
		BotDefaultLevel:     5,
		MaxConcurrentRooms:  500,
		ShutdownGrace:       10 * time.Second,
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("STOCKFISH_PATH")); v != "" {
		cfg.StockfishPath = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_THREADS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineThreads = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_HASH_MB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineHashMB = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_SESSIONS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineSessions = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOT_MOVE_BUDGET_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BotMoveBudgetMillis = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOT_DEFAULT_LEVEL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 20 {
			cfg.BotDefaultLevel = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_CONCURRENT_ROOMS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentRooms = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SHUTDOWN_GRACE")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ShutdownGrace = d
		}
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("HTTP_ADDR is required")
	}
	return cfg, nil
}
