// Package config loads the companion's settings from the environment, with a
// .env file honored for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// ListenAddr is where the local control API binds.
	ListenAddr string
	// LeaguePath is the League of Legends install directory holding the
	// client lockfile.
	LeaguePath string
	// ModToolsPath points at the cslol mod-tools binary; empty disables
	// injection.
	ModToolsPath string

	FullScanInterval     time.Duration
	ResponseScanInterval time.Duration
	GameflowInterval     time.Duration
	StaleAfter           time.Duration

	Debug bool
}

func Load() (Config, error) {
	// A missing .env is fine; real deployments use plain env vars.
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:           getEnv("OSS_LISTEN_ADDR", "127.0.0.1:8472"),
		LeaguePath:           os.Getenv("OSS_LEAGUE_PATH"),
		ModToolsPath:         os.Getenv("OSS_MOD_TOOLS_PATH"),
		FullScanInterval:     30 * time.Second,
		ResponseScanInterval: 10 * time.Second,
		GameflowInterval:     2 * time.Second,
		StaleAfter:           24 * time.Hour,
		Debug:                os.Getenv("OSS_DEBUG") == "1",
	}

	var err error
	if cfg.FullScanInterval, err = getDuration("OSS_FULL_SCAN_INTERVAL", cfg.FullScanInterval); err != nil {
		return Config{}, err
	}
	if cfg.ResponseScanInterval, err = getDuration("OSS_RESPONSE_SCAN_INTERVAL", cfg.ResponseScanInterval); err != nil {
		return Config{}, err
	}
	if cfg.GameflowInterval, err = getDuration("OSS_GAMEFLOW_INTERVAL", cfg.GameflowInterval); err != nil {
		return Config{}, err
	}
	if cfg.StaleAfter, err = getDuration("OSS_STALE_AFTER", cfg.StaleAfter); err != nil {
		return Config{}, err
	}

	if cfg.LeaguePath == "" {
		return Config{}, fmt.Errorf("OSS_LEAGUE_PATH is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
