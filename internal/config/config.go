// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads and validates runtime settings from the environment.
// Environment variables are read exactly once per load; the resulting Config
// is treated as immutable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures all runtime settings for the relay daemon.
type Config struct {
	// Resilience defaults applied to every stream unless overridden per stream.
	RetryAttempts      int           // STREAM_RETRY_ATTEMPTS
	RetryDelay         time.Duration // STREAM_RETRY_DELAY (seconds)
	ExponentialBackoff bool          // STREAM_RETRY_EXPONENTIAL_BACKOFF
	TotalTimeout       time.Duration // STREAM_TOTAL_TIMEOUT (seconds, 0 disables)
	ChunkTimeout       time.Duration // LIVE_CHUNK_TIMEOUT_SECONDS
	UseStickySession   bool          // USE_STICKY_SESSION

	// Daemon settings.
	Listen   string // STREAMRELAY_LISTEN
	RedisURL string // STREAMRELAY_REDIS_URL (empty = in-memory registry)
	LogLevel string // LOG_LEVEL
}

var configEnvKeys = []string{
	"STREAM_RETRY_ATTEMPTS",
	"STREAM_RETRY_DELAY",
	"STREAM_RETRY_EXPONENTIAL_BACKOFF",
	"STREAM_TOTAL_TIMEOUT",
	"LIVE_CHUNK_TIMEOUT_SECONDS",
	"USE_STICKY_SESSION",
	"STREAMRELAY_LISTEN",
	"STREAMRELAY_REDIS_URL",
	"LOG_LEVEL",
}

// KnownEnvKeys returns all env keys read by ReadEnv.
func KnownEnvKeys() []string {
	out := make([]string, len(configEnvKeys))
	copy(out, configEnvKeys)
	return out
}

// FromEnv reads the process environment and validates the result.
func FromEnv() (Config, error) {
	cfg, err := ReadEnv(os.Getenv)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadEnv reads all runtime environment variables exactly once using the
// provided getenv. The returned Config is not yet validated.
func ReadEnv(getenv func(string) string) (Config, error) {
	if getenv == nil {
		return Config{}, fmt.Errorf("getenv is nil")
	}

	cfg := Config{
		RetryAttempts:      getInt(getenv, "STREAM_RETRY_ATTEMPTS", 3),
		RetryDelay:         getSeconds(getenv, "STREAM_RETRY_DELAY", 1.0),
		ExponentialBackoff: getBool(getenv, "STREAM_RETRY_EXPONENTIAL_BACKOFF", false),
		TotalTimeout:       getSeconds(getenv, "STREAM_TOTAL_TIMEOUT", 60.0),
		ChunkTimeout:       getSeconds(getenv, "LIVE_CHUNK_TIMEOUT_SECONDS", 10.0),
		UseStickySession:   getBool(getenv, "USE_STICKY_SESSION", false),
		Listen:             getString(getenv, "STREAMRELAY_LISTEN", ":18100"),
		RedisURL:           getString(getenv, "STREAMRELAY_REDIS_URL", ""),
		LogLevel:           getString(getenv, "LOG_LEVEL", "info"),
	}
	return cfg, nil
}

func getString(getenv func(string) string, key, defaultValue string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getInt(getenv func(string) string, key string, defaultValue int) int {
	raw := getenv(key)
	if raw == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return i
}

// getSeconds parses a float number of seconds into a Duration. Negative values
// pass through so validation can reject them explicitly.
func getSeconds(getenv func(string) string, key string, defaultValue float64) time.Duration {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return secondsToDuration(defaultValue)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return secondsToDuration(defaultValue)
	}
	return secondsToDuration(f)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func getBool(getenv func(string) string, key string, defaultValue bool) bool {
	raw := getenv(key)
	if raw == "" {
		return defaultValue
	}
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
