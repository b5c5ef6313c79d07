// Command server runs the common reference operator service: participant
// registries, the topology reconciliation engine, and the query API behind a
// single HTTP listener.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"coref/internal/batch"
	"coref/internal/events"
	"coref/internal/partytoken"
	"coref/internal/platform/config"
	"coref/internal/platform/httpserver"
	"coref/internal/platform/logger"
	"coref/internal/platform/metrics"
	redisclient "coref/internal/platform/redis"
	"coref/internal/query"
	"coref/internal/reconcile"
	"coref/internal/registry"
	"coref/internal/topology"
	httptransport "coref/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// run wires dependencies and owns the server lifecycle. Business logic lives
// in the internal services packages.
func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registries, topoStore, closeDB, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	publisher, err := buildPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	reconciler, err := reconcile.New(registries, topoStore,
		reconcile.WithLogger(log),
		reconcile.WithPublisher(publisher),
	)
	if err != nil {
		return err
	}

	queryOpts := []query.Option{query.WithLogger(log)}
	cache, err := redisclient.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
		queryOpts = append(queryOpts, query.WithCache(cache, cfg.QueryCacheTTL))
		log.Info("query cache enabled", "ttl", cfg.QueryCacheTTL)
	}
	queries := query.New(topoStore, queryOpts...)

	processor := batch.New(registries, log)
	tokens := partytoken.New(cfg.JWTSigningKey, "coref")
	m := metrics.New()

	handler := httptransport.NewHandler(cfg.Mode, reconciler, queries, processor, registries, log, m)
	router := httptransport.NewRouter(handler, tokens, cfg.AdminToken)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("common reference listening", "addr", cfg.Addr, "mode", string(cfg.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildStores selects PostgreSQL or in-memory backends. Both registries and
// topology share one database so deployments stay single-store.
func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger) (registry.Registries, topology.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured, using in-memory stores")
		return registry.NewInMemoryRegistries(), topology.NewInMemory(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	if err := registry.EnsureParticipantSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	if err := topology.EnsureTopologySchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return registry.NewPostgresRegistries(db), topology.NewPostgres(db), func() { db.Close() }, nil
}

func buildPublisher(cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Noop{}, nil
	}
	publisher, err := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	if err != nil {
		return nil, err
	}
	log.Info("topology events enabled", "brokers", cfg.KafkaBrokers)
	return publisher, nil
}
