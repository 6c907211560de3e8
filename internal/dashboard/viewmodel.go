// Package dashboard implements the metrics view model behind the analytics
// dashboard: periodic refresh, display state and derived values.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/observability"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/source"
)

// Phase is the view model lifecycle state.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
)

func (p Phase) String() string {
	if p == PhaseReady {
		return "ready"
	}
	return "loading"
}

// UpdateFunc is called after every applied fetch.
type UpdateFunc func(ctx context.Context, snap Snapshot)

// Option configures a ViewModel.
type Option func(*ViewModel)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(vm *ViewModel) {
		vm.logger = l
	}
}

// WithTicker replaces the refresh ticker factory.
func WithTicker(f TickerFunc) Option {
	return func(vm *ViewModel) {
		vm.newTicker = f
	}
}

// WithFetchTimeout bounds a single fetch. Defaults to the refresh interval.
func WithFetchTimeout(d time.Duration) Option {
	return func(vm *ViewModel) {
		vm.fetchTimeout = d
	}
}

// WithOnUpdate registers a listener for applied fetches.
func WithOnUpdate(f UpdateFunc) Option {
	return func(vm *ViewModel) {
		vm.listeners = append(vm.listeners, f)
	}
}

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(vm *ViewModel) {
		vm.now = now
	}
}

// ViewModel owns the dashboard ViewState and refreshes it on a fixed interval.
// It is the only writer of its state.
type ViewModel struct {
	cfg          domain.DashboardConfig
	source       source.Fetcher
	logger       logrus.FieldLogger
	newTicker    TickerFunc
	fetchTimeout time.Duration
	listeners    []UpdateFunc
	now          func() time.Time

	// life is cancelled by Stop and aborts any fetch still running.
	life       context.Context
	lifeCancel context.CancelFunc

	mu       sync.Mutex
	state    domain.ViewState
	inFlight bool
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Validate checks a configuration after defaults are applied.
func Validate(cfg domain.DashboardConfig) error {
	if strings.TrimSpace(cfg.ContractAddress) == "" {
		return fmt.Errorf("%w: contract address is required", ErrInvalidConfig)
	}
	if cfg.RefreshInterval <= 0 {
		return fmt.Errorf("%w: refresh interval must be positive, got %v", ErrInvalidConfig, cfg.RefreshInterval)
	}
	if !cfg.Theme.Valid() {
		return fmt.Errorf("%w: unknown theme %q", ErrInvalidConfig, cfg.Theme)
	}
	if cfg.APIEndpoint == "" {
		return fmt.Errorf("%w: api endpoint is required", ErrInvalidConfig)
	}
	return nil
}

// New creates a view model in the Loading phase.
func New(cfg domain.DashboardConfig, src source.Fetcher, opts ...Option) (*ViewModel, error) {
	cfg = cfg.WithDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: data source is required", ErrInvalidConfig)
	}

	life, lifeCancel := context.WithCancel(context.Background())
	vm := &ViewModel{
		cfg:        cfg,
		source:     src,
		logger:     logrus.StandardLogger(),
		newTicker:  NewTimeTicker,
		now:        time.Now,
		life:       life,
		lifeCancel: lifeCancel,
		state:      domain.NewViewState(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.fetchTimeout <= 0 {
		vm.fetchTimeout = cfg.RefreshInterval
	}
	vm.logger = vm.logger.WithFields(logrus.Fields{
		"component": "dashboard",
		"contract":  cfg.ContractAddress,
	})

	observability.SetLoading(true)
	return vm, nil
}

// Config returns the effective configuration.
func (vm *ViewModel) Config() domain.DashboardConfig {
	return vm.cfg
}

// Start fetches immediately and then every refresh interval until Stop is
// called or ctx is cancelled.
func (vm *ViewModel) Start(ctx context.Context) error {
	vm.mu.Lock()
	if vm.stopped {
		vm.mu.Unlock()
		return ErrStopped
	}
	if vm.started {
		vm.mu.Unlock()
		return ErrAlreadyStarted
	}
	vm.started = true

	runCtx, cancel := context.WithCancel(ctx)
	vm.cancel = cancel
	ticker := vm.newTicker(vm.cfg.RefreshInterval)
	vm.wg.Add(1)
	vm.mu.Unlock()

	vm.logger.WithFields(logrus.Fields{
		"endpoint": vm.cfg.APIEndpoint,
		"interval": vm.cfg.RefreshInterval,
	}).Info("Starting metrics refresh")

	go vm.run(runCtx, ticker)
	return nil
}

// run is the scheduler loop.
func (vm *ViewModel) run(ctx context.Context, ticker Ticker) {
	defer vm.wg.Done()
	defer ticker.Stop()

	// Run immediately on start
	vm.trigger(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			vm.trigger(ctx)
		}
	}
}

// trigger launches a scheduled fetch unless one is still in flight.
func (vm *ViewModel) trigger(ctx context.Context) {
	if err := vm.acquire(); err != nil {
		if errors.Is(err, ErrFetchInFlight) {
			vm.logger.Debug("Fetch already in flight, skipping tick")
			observability.RecordFetchSkipped()
		}
		return
	}

	vm.wg.Add(1)
	go func() {
		defer vm.wg.Done()
		// Scheduled failures are logged inside do and otherwise dropped.
		_, _ = vm.do(ctx)
	}()
}

// Fetch runs one fetch cycle and returns its result. The ViewState is
// updated exactly as for a scheduled refresh.
func (vm *ViewModel) Fetch(ctx context.Context) (domain.Metrics, error) {
	if err := vm.acquire(); err != nil {
		return domain.Metrics{}, err
	}
	return vm.do(ctx)
}

// acquire sets the in-flight flag.
func (vm *ViewModel) acquire() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.stopped {
		return ErrStopped
	}
	if vm.inFlight {
		return ErrFetchInFlight
	}
	vm.inFlight = true
	return nil
}

func (vm *ViewModel) release() {
	vm.mu.Lock()
	vm.inFlight = false
	vm.mu.Unlock()
}

// do performs the fetch and applies the result. The caller must hold the
// in-flight flag.
func (vm *ViewModel) do(ctx context.Context) (domain.Metrics, error) {
	defer vm.release()

	fetchCtx, cancel := context.WithTimeout(ctx, vm.fetchTimeout)
	defer cancel()
	stopAbort := context.AfterFunc(vm.life, cancel)
	defer stopAbort()

	start := time.Now()
	m, err := vm.source.FetchMetrics(fetchCtx, vm.cfg.ContractAddress, vm.cfg.APIEndpoint)
	if err == nil && !m.Valid() {
		err = &source.FetchError{Op: source.OpValidate, Contract: vm.cfg.ContractAddress, Err: source.ErrInvalidMetrics}
	}
	if ctx.Err() != nil {
		// Caller went away; leave state as it was.
		return domain.Metrics{}, ctx.Err()
	}
	var fetchErr *source.FetchError
	if err != nil {
		fetchErr = source.AsFetchError(source.OpTransport, vm.cfg.ContractAddress, err)
	}

	vm.mu.Lock()
	if vm.stopped {
		// Disposed while fetching: the result must not touch state.
		vm.mu.Unlock()
		return domain.Metrics{}, ErrStopped
	}
	vm.state.Loading = false
	if fetchErr != nil {
		vm.state.LastError = fetchErr.Error()
	} else {
		vm.state.Metrics = m
		vm.state.UpdatedAt = vm.now().UnixMilli()
		vm.state.LastError = ""
	}
	snap := vm.snapshotLocked()
	vm.mu.Unlock()

	observability.SetLoading(false)
	if fetchErr != nil {
		observability.RecordFetch("error", time.Since(start).Seconds())
		vm.logger.WithError(fetchErr).WithField("endpoint", vm.cfg.APIEndpoint).Error("Failed to fetch metrics")
	} else {
		observability.RecordFetch("success", time.Since(start).Seconds())
		observability.UpdateDisplayed(vm.cfg.ContractAddress, m.TotalVolume, m.ActiveUsers, m.TotalStaked, m.Transactions24h, snap.UpdatedAt/1000)
		vm.logger.WithField("duration", time.Since(start)).Debug("Metrics refreshed")
	}

	for _, l := range vm.listeners {
		l(ctx, snap)
	}

	if fetchErr != nil {
		return domain.Metrics{}, fetchErr
	}
	return m, nil
}

// Stop cancels the schedule and any running fetch and waits for the
// scheduler to exit. No state mutation happens after it returns.
func (vm *ViewModel) Stop() error {
	vm.mu.Lock()
	if vm.stopped {
		vm.mu.Unlock()
		return ErrStopped
	}
	vm.stopped = true
	cancel := vm.cancel
	vm.mu.Unlock()

	vm.lifeCancel()
	if cancel != nil {
		cancel()
	}
	vm.wg.Wait()

	vm.logger.Info("Metrics refresh stopped")
	return nil
}

// State returns a copy of the current ViewState.
func (vm *ViewModel) State() domain.ViewState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// Phase reports Loading until the first fetch completes.
func (vm *ViewModel) Phase() Phase {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.state.Loading {
		return PhaseLoading
	}
	return PhaseReady
}

// Snapshot returns the renderer payload for the current state.
func (vm *ViewModel) Snapshot() Snapshot {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.snapshotLocked()
}
