package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/platforms/leaderboard/internal/adapters/http/api"
	"github.com/platforms/leaderboard/internal/adapters/http/site"
	"github.com/platforms/leaderboard/internal/adapters/http/swagger"
	"github.com/platforms/leaderboard/internal/adapters/repository"
	"github.com/platforms/leaderboard/internal/adapters/repository/redisstore"
	"github.com/platforms/leaderboard/internal/adapters/repository/sqlstore"
	app "github.com/platforms/leaderboard/internal/app"
	"github.com/platforms/leaderboard/internal/config"
	"github.com/platforms/leaderboard/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Only custom metrics on the scrape endpoint, no default Go collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	registry, err := cfg.Registry()
	if err != nil {
		os.Stderr.WriteString("invalid instance config: " + err.Error() + "\n")
		return
	}

	store, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		os.Stderr.WriteString("failed to build store: " + err.Error() + "\n")
		return
	}
	defer cleanup()

	svc := app.New(
		app.WithLogger(log),
		app.WithStore(store),
		app.WithRegistry(registry),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithMaxLimit(int64(cfg.MaxLeaderboardLimit)),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

// buildStore assembles the ranked store from the configured tiers. With both
// Redis and Postgres configured the composite store serves cache-first reads
// with durable fallback; with only one tier that tier serves alone; with
// neither the service falls back to its in-memory store.
func buildStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, func(), error) {
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	var durable repository.Store
	if cfg.PostgresDSN != "" {
		pgCfg := sqlstore.DefaultConfig()
		pgCfg.DSN = cfg.PostgresDSN
		pgCfg.MaxOpenConns = cfg.PostgresMaxOpenConns
		pgCfg.MaxIdleConns = cfg.PostgresMaxIdleConns

		pg, err := sqlstore.New(pgCfg)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() { _ = pg.Close() })

		if err := pg.Migrate(ctx); err != nil {
			return nil, cleanup, err
		}
		durable = pg
		log.Info(ctx, "durable store ready", logger.String("tier", "postgres"))
	}

	var cache repository.Store
	if cfg.RedisAddr != "" {
		rdCfg := redisstore.DefaultConfig()
		rdCfg.Addr = cfg.RedisAddr
		rdCfg.Password = cfg.RedisPassword
		rdCfg.DB = cfg.RedisDB
		rdCfg.PoolSize = cfg.RedisPoolSize

		rd, err := redisstore.New(rdCfg)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() { _ = rd.Close() })
		cache = rd
		log.Info(ctx, "cache store ready", logger.String("tier", "redis"))
	}

	switch {
	case cache != nil && durable != nil:
		return repository.NewComposite(cache, durable, repository.WithLogger(log.Named("composite"))), cleanup, nil
	case durable != nil:
		return durable, cleanup, nil
	case cache != nil:
		return cache, cleanup, nil
	default:
		log.Warn(ctx, "no redis or postgres configured, using in-memory store")
		return nil, cleanup, nil
	}
}
