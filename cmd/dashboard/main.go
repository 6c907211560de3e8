// Package main runs the B2S analytics dashboard: the metrics view model with
// its periodic refresh, snapshot recording and the HTTP/WebSocket surface.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/address"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/broadcast"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/config"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/dashboard"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/server"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/source"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/source/stub"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/storage"
	chstore "github.com/wkalidev/b2s-analytics-dashboard/internal/storage/clickhouse"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/storage/memory"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/storage/migrations"
	pgstore "github.com/wkalidev/b2s-analytics-dashboard/internal/storage/postgres"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load .env file if exists
	if err := config.LoadEnvFile(".env"); err != nil {
		logger.WithError(err).Warn("Ignoring .env file")
	}

	cfg, err := config.Parse(os.Args[1:], os.Getenv)
	if err != nil {
		logger.Fatalf("Configuration error: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("Dashboard error: %v", err)
	}
	logger.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	addr := address.Parse(cfg.Dashboard.ContractAddress)
	entry := logger.WithFields(logrus.Fields{
		"contract": addr.Canonical,
		"kind":     addr.Kind,
	})
	if addr.ChecksumMismatch() {
		entry.Warn("Contract address has an invalid EIP-55 checksum")
	}
	entry.WithField("source", cfg.Source).Info("Starting dashboard")

	stores, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	hub := broadcast.NewHub(broadcast.DefaultConfig(), logger)

	// The view model publishes through the server, which needs the view model.
	var srv *server.Server
	vm, err := dashboard.New(cfg.Dashboard, createSource(cfg),
		dashboard.WithLogger(logger),
		dashboard.WithFetchTimeout(cfg.FetchTimeout),
		dashboard.WithOnUpdate(func(ctx context.Context, snap dashboard.Snapshot) {
			srv.Publish(ctx, snap)
		}),
	)
	if err != nil {
		return fmt.Errorf("create view model: %w", err)
	}

	srv, err = server.New(server.Options{
		ViewModel: vm,
		Snapshots: stores.snapshots,
		History:   stores.history,
		Hub:       hub,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.HTTPAddr)
	})

	if err := vm.Start(gctx); err != nil {
		return fmt.Errorf("start view model: %w", err)
	}
	g.Go(func() error {
		<-gctx.Done()
		if err := vm.Stop(); err != nil && !errors.Is(err, dashboard.ErrStopped) {
			return err
		}
		return nil
	})

	return g.Wait()
}

func createSource(cfg *config.Config) source.Fetcher {
	if cfg.Source == config.SourceAPI {
		return source.NewAPIClient(source.WithMaxRetries(cfg.SourceRetries))
	}
	return stub.NewStaticSource()
}

// snapshotStores holds the primary snapshot store and the history store.
type snapshotStores struct {
	snapshots storage.SnapshotStore
	history   storage.SnapshotStore
}

// createStores opens the configured backends and applies migrations.
func createStores(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*snapshotStores, func(), error) {
	if cfg.UseMemory {
		store := memory.NewSnapshotStore()
		logger.Info("Using in-memory storage")
		return &snapshotStores{snapshots: store, history: store}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	stores := &snapshotStores{snapshots: pgstore.NewSnapshotStore(pool)}
	stores.history = stores.snapshots

	if cfg.ClickhouseDSN == "" {
		logger.Info("Using PostgreSQL storage; history served from PostgreSQL")
		return stores, pool.Close, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	stores.history = chstore.NewSnapshotStore(chConn)
	logger.Info("Using PostgreSQL storage with ClickHouse history")

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}
