// Package main provides the entry point for scribbler-server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/service"
	"github.com/jeff-tyrrill/data-scribbler/internal/infra/buildinfo"
	"github.com/jeff-tyrrill/data-scribbler/internal/infra/confloader"
	"github.com/jeff-tyrrill/data-scribbler/internal/infra/shutdown"
	"github.com/jeff-tyrrill/data-scribbler/internal/infra/tlsroots"
	"github.com/jeff-tyrrill/data-scribbler/internal/server/config"
	"github.com/jeff-tyrrill/data-scribbler/internal/server/httpserver"
	"github.com/jeff-tyrrill/data-scribbler/internal/server/httpserver/handler"
	"github.com/jeff-tyrrill/data-scribbler/internal/storage"
	"github.com/jeff-tyrrill/data-scribbler/internal/telemetry/logger"
	"github.com/jeff-tyrrill/data-scribbler/internal/telemetry/metric"
)

// limiterSweepInterval is how often idle rate-limit buckets are dropped.
const limiterSweepInterval = time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		addr        = flag.String("addr", "", "Listen address (overrides server.http.addr)")
		dataDir     = flag.String("data-dir", "", "Data directory (overrides storage.data_dir)")
		driver      = flag.String("driver", "", "Storage driver: fs, badger or memory")
		logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
		showVersion = flag.Bool("version", false, "Show version information")
		checkConfig = flag.Bool("check-config", false, "Validate the configuration and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("scribbler-server %s\n", buildinfo.String())
		return nil
	}

	overrides := map[string]any{}
	setIf := func(key, value string) {
		if value != "" {
			overrides[key] = value
		}
	}
	setIf("server.http.addr", *addr)
	setIf("storage.data_dir", *dataDir)
	setIf("storage.driver", *driver)
	setIf("log.level", *logLevel)

	cfg, err := loadConfig(*configFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *checkConfig {
		fmt.Println("configuration OK")
		return nil
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	slog.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting scribbler-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile,
		"settings", config.Sanitize(cfg))

	shutdownHandler := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout)

	// Storage
	backend, err := storage.Open(config.ToStorageConfig(cfg), log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	shutdownHandler.OnClose("storage", backend.Close)

	// Metrics
	metrics := metric.NewRegistry()
	if b, ok := backend.(*storage.BadgerBackend); ok {
		b.RegisterMetrics(metrics.Registerer())
	}

	// Services
	docs := service.NewDocumentService(backend, config.ToServiceConfig(cfg),
		service.WithLogger(log.With("component", "service")),
		service.WithObserver(metrics),
	)

	// HTTP
	h, err := handler.New(handler.Config{
		Documents:       docs,
		Logger:          log,
		Recorder:        metrics,
		MaxRequestBytes: cfg.Server.HTTP.MaxRequestBytes,
		Version:         info.Version,
	})
	if err != nil {
		return err
	}

	var limiter *httpserver.RateLimiter
	if cfg.Server.HTTP.RateLimit > 0 {
		limiter = httpserver.NewRateLimiter(cfg.Server.HTTP.RateLimit, cfg.Server.HTTP.RateBurst)
	}

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Handler:      h,
		Metrics:      metrics,
		Limiter:      limiter,
		Logger:       log,
		CORSOrigins:  cfg.Server.HTTP.CORSOrigins,
		MetricsToken: cfg.Server.HTTP.MetricsToken,
	})

	var keyPair *tlsroots.KeyPair
	serverCfg := httpserver.Config{
		Addr:            cfg.Server.HTTP.Addr,
		ReadTimeout:     cfg.Server.HTTP.ReadTimeout,
		WriteTimeout:    cfg.Server.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.Server.HTTP.ShutdownTimeout,
	}
	if cfg.Server.HTTP.TLSCertFile != "" {
		keyPair, err = tlsroots.LoadKeyPair(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile,
			tlsroots.WithLogger(log.With("component", "tls")))
		if err != nil {
			return fmt.Errorf("tls: %w", err)
		}
		serverCfg.TLS = keyPair.ServerConfig()
	}
	httpServer := httpserver.New(serverCfg, router, log)
	httpServer.OnDrain = func() { h.SetReady(false) }

	// Run until a signal arrives or a component fails.
	ctx, stop := shutdownHandler.NotifyContext(context.Background())
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return httpServer.Run(gctx) })

	if keyPair != nil {
		g.Go(func() error { return keyPair.Run(gctx) })
	}

	if limiter != nil {
		g.Go(func() error { return limiter.Cleanup(gctx, limiterSweepInterval) })
	}

	if *configFile != "" {
		watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
		if err != nil {
			return fmt.Errorf("config watcher: %w", err)
		}
		if err := watcher.Watch(*configFile); err != nil {
			watcher.Stop()
			return fmt.Errorf("watch %s: %w", *configFile, err)
		}
		watcher.OnChange(func(path string) {
			reloadLogLevel(log, path, overrides)
		})
		g.Go(func() error { return watcher.Run(gctx) })
	}

	log.Info("server started", "addr", cfg.Server.HTTP.Addr, "driver", cfg.Storage.Driver)
	runErr := g.Wait()
	if runErr != nil {
		log.Error("server stopped with error", "error", runErr)
	}

	if err := shutdownHandler.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	log.Info("server stopped")
	return runErr
}

// loadConfig loads configuration from defaults, file, environment and
// flags, in increasing precedence, then validates it.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// reloadLogLevel applies the log level of a changed config file. Other
// settings need a restart.
func reloadLogLevel(log *slog.Logger, path string, overrides map[string]any) {
	cfg, err := loadConfig(path, overrides)
	if err != nil {
		log.Warn("config reload rejected", "path", path, "error", err)
		return
	}
	if cfg.Log.Level != logger.GetLevel() {
		logger.SetLevel(cfg.Log.Level)
		log.Info("log level changed", "level", cfg.Log.Level)
	}
}
