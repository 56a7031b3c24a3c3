package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yoavkarmi/songdex/internal/analytics"
	"github.com/yoavkarmi/songdex/internal/catalog/query"
	"github.com/yoavkarmi/songdex/internal/catalog/store"
	"github.com/yoavkarmi/songdex/internal/loader"
	"github.com/yoavkarmi/songdex/internal/media"
	"github.com/yoavkarmi/songdex/internal/server"
	servercache "github.com/yoavkarmi/songdex/internal/server/cache"
	"github.com/yoavkarmi/songdex/pkg/config"
	"github.com/yoavkarmi/songdex/pkg/health"
	"github.com/yoavkarmi/songdex/pkg/kafka"
	"github.com/yoavkarmi/songdex/pkg/logger"
	"github.com/yoavkarmi/songdex/pkg/metrics"
	"github.com/yoavkarmi/songdex/pkg/postgres"
	pkgredis "github.com/yoavkarmi/songdex/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting catalog server", "port", cfg.Server.Port, "backend", cfg.Catalog.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Catalog load is all-or-nothing: any malformed record aborts startup.
	st, pgClient, err := loadCatalog(ctx, cfg)
	if err != nil {
		slog.Error("catalog load failed", "error", err)
		os.Exit(1)
	}
	if pgClient != nil {
		defer pgClient.Close()
	}
	slog.Info("catalog loaded",
		"songs", st.Len(),
		"title", st.Meta().Title,
		"version", st.Meta().Version,
	)

	engine := query.New(st, query.WithLanguages(cfg.Discovery.Languages))

	m := metrics.New()
	m.SongsLoaded.Set(float64(st.Len()))
	m.CollaborationPairs.Set(float64(engine.Collaborations().Len()))

	var responseCache *servercache.ResponseCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, response caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		responseCache = servercache.New(redisClient, cfg.Redis)
		slog.Info("response cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
	defer producer.Close()
	collector := analytics.NewCollector(producer, 100, 5*time.Second)
	collector.Start(ctx)
	defer collector.Close()

	aggregator := analytics.NewAggregator()
	aggregatorConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents, analytics.HandleEvent(aggregator))
	go func() {
		if err := aggregatorConsumer.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("analytics aggregator stopped", "error", err)
		}
	}()

	if pgClient != nil {
		snapshots := analytics.NewSnapshotStore(pgClient)
		snapshots.StartPeriodicSave(ctx, aggregator, 5*time.Minute)
	}

	fetcher := media.NewFetcher(cfg.Media, m)

	checker := health.NewChecker()
	checker.Register("catalog", func(ctx context.Context) health.ComponentHealth {
		if st.Len() > 0 {
			return health.ComponentHealth{
				Status:  health.StatusUp,
				Message: fmt.Sprintf("%d songs loaded", st.Len()),
			}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "catalog empty"}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("media", func(ctx context.Context) health.ComponentHealth {
		for _, snap := range fetcher.Breakers() {
			if snap.State != 0 {
				return health.ComponentHealth{
					Status:  health.StatusDegraded,
					Message: fmt.Sprintf("%s circuit %s", snap.Upstream, snap.StateStr),
				}
			}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := server.NewHandler(engine, responseCache, collector, fetcher, m, cfg)
	router := server.NewRouter(h, analytics.NewHandler(aggregator), checker, m, cfg.Server.WriteTimeout)

	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("api server listening", "addr", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: metrics.Handler(),
		}
		g.Go(func() error {
			slog.Info("metrics server listening", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("api server shutdown error", "error", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("catalog server stopped")
}

// loadCatalog builds the store from the configured backend. The returned
// postgres client is non-nil only for the postgres backend; the caller owns
// closing it.
func loadCatalog(ctx context.Context, cfg *config.Config) (*store.Store, *postgres.Client, error) {
	switch cfg.Catalog.Backend {
	case config.BackendPostgres:
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		st, err := loader.FromPostgres(ctx, client)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return st, client, nil
	default:
		st, err := loader.FromSource(ctx, cfg.Catalog)
		return st, nil, err
	}
}
