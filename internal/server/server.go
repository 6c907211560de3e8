// Package server exposes the dashboard over HTTP and WebSocket and records
// applied fetches to the snapshot stores.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/address"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/broadcast"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/dashboard"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/observability"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/storage"
)

// MessageSnapshot is the WebSocket message type carrying a dashboard.Snapshot.
const MessageSnapshot = "snapshot"

// ViewModel is the part of *dashboard.ViewModel the server uses.
type ViewModel interface {
	Config() domain.DashboardConfig
	Snapshot() dashboard.Snapshot
	Fetch(ctx context.Context) (domain.Metrics, error)
}

// Options configures a Server.
type Options struct {
	ViewModel ViewModel

	// Snapshots receives every applied fetch. Required.
	Snapshots storage.SnapshotStore

	// History serves /api/history. Defaults to Snapshots; when it is a
	// different store, applied fetches are written to both.
	History storage.SnapshotStore

	Hub    *broadcast.Hub
	Logger logrus.FieldLogger
	Now    func() time.Time
}

// Server serves the dashboard HTTP surface.
type Server struct {
	vm        ViewModel
	snapshots storage.SnapshotStore
	history   storage.SnapshotStore
	hub       *broadcast.Hub
	logger    logrus.FieldLogger
	now       func() time.Time
	address   address.Address
	started   time.Time

	mu            sync.Mutex
	published     int
	publishErrors int
	lastPublish   time.Time
}

// New creates a server.
func New(opts Options) (*Server, error) {
	if opts.ViewModel == nil {
		return nil, errors.New("server: view model is required")
	}
	if opts.Snapshots == nil {
		return nil, errors.New("server: snapshot store is required")
	}
	if opts.History == nil {
		opts.History = opts.Snapshots
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Hub == nil {
		opts.Hub = broadcast.NewHub(broadcast.DefaultConfig(), opts.Logger)
	}

	return &Server{
		vm:        opts.ViewModel,
		snapshots: opts.Snapshots,
		history:   opts.History,
		hub:       opts.Hub,
		logger:    opts.Logger.WithField("component", "server"),
		now:       opts.Now,
		address:   address.Parse(opts.ViewModel.Config().ContractAddress),
		started:   opts.Now(),
	}, nil
}

// Publish records an applied fetch and pushes it to viewers. It has the
// signature of dashboard.UpdateFunc.
func (s *Server) Publish(ctx context.Context, snap dashboard.Snapshot) {
	var err error
	if snap.LastError == "" && snap.UpdatedAt > 0 {
		err = s.record(ctx, &domain.MetricsSnapshot{
			ContractAddress: snap.ContractAddress,
			FetchedAt:       snap.UpdatedAt,
			Metrics:         snap.Metrics,
		})
	}

	if berr := s.hub.Broadcast(MessageSnapshot, snap); berr != nil && !errors.Is(berr, broadcast.ErrClosed) {
		err = errors.Join(err, berr)
	}

	s.mu.Lock()
	s.published++
	s.lastPublish = s.now()
	if err != nil {
		s.publishErrors++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.WithError(err).Warn("Failed to publish snapshot")
	}
}

func (s *Server) record(ctx context.Context, snap *domain.MetricsSnapshot) error {
	stores := []storage.SnapshotStore{s.snapshots}
	if s.history != s.snapshots {
		stores = append(stores, s.history)
	}

	var errs []error
	for _, store := range stores {
		err := store.Insert(ctx, snap)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrDuplicateKey):
			s.logger.WithField("fetched_at", snap.FetchedAt).Debug("Snapshot already recorded")
		default:
			errs = append(errs, fmt.Errorf("insert snapshot: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.Handle("GET /ws", s.hub)

	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
