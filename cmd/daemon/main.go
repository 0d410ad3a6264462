// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/streamrelay/internal/api"
	"github.com/ManuGH/streamrelay/internal/config"
	xglog "github.com/ManuGH/streamrelay/internal/log"
	"github.com/ManuGH/streamrelay/internal/origin"
	"github.com/ManuGH/streamrelay/internal/registry"
	"github.com/ManuGH/streamrelay/internal/relay"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		xglog.Configure(xglog.Config{Level: "info", Service: "streamrelay", Version: version})
		fatalLogger := xglog.WithComponent("daemon")
		fatalLogger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: "streamrelay",
		Version: version,
	})
	logger := xglog.WithComponent("daemon")
	logger.Info().
		Str("event", "config.loaded").
		Int("retry_attempts", cfg.RetryAttempts).
		Dur("retry_delay", cfg.RetryDelay).
		Dur("total_timeout", cfg.TotalTimeout).
		Bool("use_sticky_session", cfg.UseStickySession).
		Msg("loaded configuration from environment and defaults")

	var setKeys []string
	for _, key := range config.KnownEnvKeys() {
		if os.Getenv(key) != "" {
			setKeys = append(setKeys, key)
		}
	}
	logger.Debug().
		Str("event", "config.env_audit").
		Strs("env_keys", setKeys).
		Msg("environment overrides in effect")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reg registry.Registry = registry.NewMemory()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "redis.parse_failed").
				Str("redis_url", maskURL(cfg.RedisURL)).
				Msg("invalid redis url")
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "redis.unreachable").
				Str("redis_url", maskURL(cfg.RedisURL)).
				Msg("redis is not reachable")
		}
		reg = registry.NewRedis(client)
		logger.Info().Str("event", "registry.redis").Msg("using redis-backed stream registry")
	}

	fetcher := origin.NewHTTPFetcher(cfg.ChunkTimeout)
	manager := relay.NewManager(cfg, fetcher, reg)

	root := chi.NewRouter()
	root.Mount("/", api.NewServer(manager).Routes())
	root.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("event", "server.listen").Str("addr", cfg.Listen).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("stream sessions did not stop cleanly")
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Str("event", "server.failed").Msg("daemon exited with error")
	}
	logger.Info().Str("event", "server.stopped").Msg("daemon stopped")
}
