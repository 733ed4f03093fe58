package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.EngineThreads != 1 || cfg.EngineHashMB != 64 {
		t.Errorf("engine defaults = %d threads, %d MB", cfg.EngineThreads, cfg.EngineHashMB)
	}
	if cfg.BotMoveBudget() != 1500*time.Millisecond {
		t.Errorf("BotMoveBudget = %v", cfg.BotMoveBudget())
	}
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("BOT_MOVE_BUDGET_MS", "800")
	t.Setenv("BOT_DEFAULT_LEVEL", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.RedisURL != "redis://localhost:6379/1" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.BotMoveBudgetMillis != 800 || cfg.BotDefaultLevel != 12 {
		t.Errorf("bot settings = %d ms, level %d", cfg.BotMoveBudgetMillis, cfg.BotDefaultLevel)
	}
}

func TestInvalidLevelIsIgnored(t *testing.T) {
	t.Setenv("BOT_DEFAULT_LEVEL", "99")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BotDefaultLevel != 5 {
		t.Errorf("BotDefaultLevel = %d, want default 5", cfg.BotDefaultLevel)
	}
}

func TestYAMLFileIsBaseLayer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "http_addr: \":7777\"\nstockfish_path: /usr/bin/stockfish\nengine_hash_mb: 128\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_ADDR", ":8888")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// The env var wins over the file; file values fill the rest.
	if cfg.HTTPAddr != ":8888" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.StockfishPath != "/usr/bin/stockfish" {
		t.Errorf("StockfishPath = %q", cfg.StockfishPath)
	}
	if cfg.EngineHashMB != 128 {
		t.Errorf("EngineHashMB = %d", cfg.EngineHashMB)
	}
}
