package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/adapters/http/api"
	"github.com/Clinico01/ranking-de-clientes3/internal/adapters/http/live"
	"github.com/Clinico01/ranking-de-clientes3/internal/adapters/http/swagger"
	"github.com/Clinico01/ranking-de-clientes3/internal/adapters/repository"
	app "github.com/Clinico01/ranking-de-clientes3/internal/app"
	"github.com/Clinico01/ranking-de-clientes3/internal/config"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/session"
	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
	"github.com/Clinico01/ranking-de-clientes3/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	hashKey := flag.String("hash-key", "", "print the bcrypt hash of an admin key for admin_key_hash and exit")
	flag.Parse()

	if *hashKey != "" {
		hash, err := session.HashKey(*hashKey)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to hash key:", err)
			return 1
		}
		fmt.Println(hash)
		return 0
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		return 1
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		return 1
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintln(os.Stderr, "failed to sync logger:", err)
		}
	}()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		return 1
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return 1
	}
	defer svc.Stop()

	// Live leaderboard push; the hub sends the current board on connect, so
	// subscribing after Start loses nothing.
	hub := live.NewHub(svc,
		live.WithPingInterval(cfg.LivePing()),
		live.WithLogger(loggerInstance.Named("live")),
	)
	svc.Subscribe(hub.Publish)
	defer hub.Close()

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, hub, loggerInstance),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure
	code := 0
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			code = 1
		}
	}
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
	return code
}

// newService wires the store and session manager chosen by cfg into a service.
func newService(ctx context.Context, cfg *config.Config, l logger.Logger) (*app.Service, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}

	sessions := session.NewManager(
		session.WithTTL(cfg.SessionTTL()),
		session.WithAdminKeyHash(cfg.AdminKeyHash),
		session.WithLogger(l.Named("session")),
	)
	if cfg.AdminKeyHash == "" {
		l.Warn(ctx, "admin_key_hash not set; admin unlock is disabled")
	}

	return app.New(
		app.WithLogger(l),
		app.WithStore(store),
		app.WithSessionManager(sessions),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithTopN(cfg.TopN),
		app.WithVisibleCount(cfg.VisibleCount),
		app.WithRefreshInterval(cfg.Refresh()),
	), nil
}

// openStore opens the sale store selected by cfg.StoreBackend.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPebble:
		s, err := repository.NewPebbleStore(cfg.PebbleDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		s, err := repository.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			repository.WithKeyPrefix(cfg.RedisKeyPrefix))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

// newMux registers every HTTP surface of the service.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, hub *live.Hub, l logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// API reference under /api-docs
	swagger.Register(ctx, mux)

	api.NewServer(svc, cfg.MaxLeaderboardLimit, api.WithLogger(l.Named("api"))).Register(ctx, mux)

	// Upgraded connections need the raw writer, so the hub is not wrapped in
	// the metrics middleware; it keeps its own subscriber gauges.
	mux.Handle("GET /ws/leaderboard", hub)
	return mux
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics updates service-level gauges from the service stats.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}

	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}

	if sessions, ok := stats["sessions"].(int); ok {
		metrics.UpdateSessionsActive(sessions)
	}
}
