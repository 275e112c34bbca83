// SPDX-License-Identifier: MIT

// Command brendacycd serves BRENDA enzyme data over HTTP. It imports the
// flat-file dump into a local store and keeps it fresh by watching the
// source file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brendacyc/brendacyc/internal/api"
	"github.com/brendacyc/brendacyc/internal/cache"
	"github.com/brendacyc/brendacyc/internal/config"
	"github.com/brendacyc/brendacyc/internal/daemon"
	"github.com/brendacyc/brendacyc/internal/health"
	"github.com/brendacyc/brendacyc/internal/jobs"
	bclog "github.com/brendacyc/brendacyc/internal/log"
	"github.com/brendacyc/brendacyc/internal/store"
	"github.com/brendacyc/brendacyc/internal/telemetry"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// safe defaults until config is loaded
	bclog.Configure(bclog.Config{
		Level:   "info",
		Service: "brendacyc",
		Version: version,
	})
	logger := bclog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config path: explicit --config wins, otherwise auto-load
	// ${BRENDACYC_DATA}/config.yaml when present.
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString("BRENDACYC_DATA", ""))
		if dataDir != "" {
			autoPath := filepath.Join(dataDir, "config.yaml")
			if _, err := os.Stat(autoPath); err == nil {
				effectiveConfigPath = autoPath
			}
		}
	}

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	bclog.Reconfigure(bclog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger = bclog.WithComponent("daemon")

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Msg("starting brendacyc")
	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)
	logger.Info().Msgf("→ Store: %s", cfg.EffectiveStorePath())
	if cfg.BrendaFile != "" {
		logger.Info().Msgf("→ BRENDA dump: %s (watch: %v)", cfg.BrendaFile, cfg.WatchFile)
	} else {
		logger.Warn().Msg("→ BRENDA dump: not configured, imports disabled")
	}
	if cfg.APIToken != "" {
		logger.Info().Msg("→ API token: configured")
	} else {
		logger.Warn().Msg("→ API token: NOT configured, import endpoint is open. Set BRENDACYC_API_TOKEN.")
	}

	holder := config.NewHolder(cfg, config.NewLoader(effectiveConfigPath, version), effectiveConfigPath)
	if effectiveConfigPath != "" {
		if err := holder.StartWatching(ctx); err != nil {
			logger.Warn().Err(err).Msg("config hot reload unavailable")
		}
	}

	// SIGHUP triggers a config reload alongside the file watcher.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := holder.Reload(ctx); err != nil {
					logger.Warn().Err(err).Msg("SIGHUP config reload failed")
				}
			}
		}
	}()

	tracer, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		ExporterType:   cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
		SamplingRate:   cfg.TracingSampling,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("failed to create data dir")
	}

	st, err := store.Open(cfg.EffectiveStorePath())
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.EffectiveStorePath()).Msg("failed to open store")
	}

	appCache := buildCache(cfg)

	hm := health.NewManager(version)
	hm.RegisterChecker(health.CheckFunc{CheckerName: "store", Fn: st.Ping})
	if cfg.BrendaFile != "" {
		hm.RegisterChecker(health.CheckFunc{CheckerName: "brenda_file", Fn: func(context.Context) error {
			_, err := os.Stat(cfg.BrendaFile)
			return err
		}})
	}
	if rc, ok := appCache.(*cache.RedisCache); ok {
		hm.RegisterChecker(health.CheckFunc{CheckerName: "redis", Fn: rc.HealthCheck})
	}

	apiServer := api.New(holder, st, appCache, hm)

	if cfg.ImportOnStartup && cfg.BrendaFile != "" {
		status, err := jobs.Import(ctx, cfg, st)
		if err != nil {
			logger.Error().Err(err).Msg("startup import failed, continuing with existing data")
		} else {
			apiServer.SetLastStatus(status)
		}
	}

	if cfg.WatchFile {
		watcher := jobs.NewWatcher(holder.Current, st, func(status *jobs.Status, err error) {
			if err == nil {
				apiServer.SetLastStatus(status)
				appCache.Clear()
			}
		})
		if err := watcher.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("file watching unavailable")
		}
	}

	deps := daemon.Deps{
		Logger:     logger,
		APIHandler: apiServer.Handler(),
	}
	if cfg.MetricsEnabled {
		deps.MetricsHandler = promhttp.Handler()
		deps.MetricsAddr = cfg.MetricsAddr
	}

	mgr, err := daemon.NewManager(daemon.DefaultServerConfig(cfg.ListenAddr), deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create daemon manager")
	}

	mgr.RegisterShutdownHook("store", func(context.Context) error {
		return st.Close()
	})
	mgr.RegisterShutdownHook("cache", func(context.Context) error {
		if rc, ok := appCache.(*cache.RedisCache); ok {
			return rc.Close()
		}
		return nil
	})
	mgr.RegisterShutdownHook("tracing", tracer.Shutdown)

	if err := mgr.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("daemon exited with error")
	}
}

func buildCache(cfg config.AppConfig) cache.Cache {
	logger := bclog.WithComponent("cache")
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, falling back to in-memory cache")
			return cache.NewMemoryCache(cfg.CacheTTL)
		}
		return rc
	case config.CacheBackendNone:
		return cache.NewNoOpCache()
	default:
		return cache.NewMemoryCache(cfg.CacheTTL)
	}
}
