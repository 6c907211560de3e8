// Package stub provides in-process data sources.
package stub

import (
	"context"
	"errors"
	"sync"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/source"
)

// MockMetrics is the fixed snapshot served by StaticSource.
var MockMetrics = domain.Metrics{
	TotalVolume:     15200000,
	ActiveUsers:     892,
	TotalStaked:     2300000,
	Transactions24h: 1247,
}

// StaticSource always returns the same metrics.
type StaticSource struct {
	Metrics domain.Metrics
}

// NewStaticSource creates a source serving MockMetrics.
func NewStaticSource() *StaticSource {
	return &StaticSource{Metrics: MockMetrics}
}

// FetchMetrics returns the configured metrics unless ctx is done.
func (s *StaticSource) FetchMetrics(ctx context.Context, contractAddress, _ string) (domain.Metrics, error) {
	if err := ctx.Err(); err != nil {
		return domain.Metrics{}, source.AsFetchError(source.OpTransport, contractAddress, err)
	}
	return s.Metrics, nil
}

// ErrScriptExhausted is returned by ScriptedSource when no step is left.
var ErrScriptExhausted = errors.New("script exhausted")

// Step is one scripted response.
type Step struct {
	Metrics domain.Metrics
	Err     error

	// Block, when non-nil, holds the fetch until it is closed or ctx is done.
	Block chan struct{}
}

// ScriptedSource replays Steps in order and records every call.
type ScriptedSource struct {
	mu    sync.Mutex
	steps []Step
	calls int

	// Calls receives the contract address of every call without blocking.
	Calls chan string
}

// NewScriptedSource creates a source replaying steps.
func NewScriptedSource(steps ...Step) *ScriptedSource {
	return &ScriptedSource{
		steps: steps,
		Calls: make(chan string, 64),
	}
}

// Push appends steps to the script.
func (s *ScriptedSource) Push(steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, steps...)
}

// CallCount returns how many fetches were started.
func (s *ScriptedSource) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// FetchMetrics returns the next scripted step.
func (s *ScriptedSource) FetchMetrics(ctx context.Context, contractAddress, _ string) (domain.Metrics, error) {
	s.mu.Lock()
	s.calls++
	var step Step
	if len(s.steps) == 0 {
		step = Step{Err: ErrScriptExhausted}
	} else {
		step = s.steps[0]
		s.steps = s.steps[1:]
	}
	s.mu.Unlock()

	select {
	case s.Calls <- contractAddress:
	default:
	}

	if step.Block != nil {
		select {
		case <-step.Block:
		case <-ctx.Done():
			return domain.Metrics{}, source.AsFetchError(source.OpTransport, contractAddress, ctx.Err())
		}
	}

	if step.Err != nil {
		return domain.Metrics{}, source.AsFetchError(source.OpTransport, contractAddress, step.Err)
	}
	return step.Metrics, nil
}

var (
	_ source.Fetcher = (*StaticSource)(nil)
	_ source.Fetcher = (*ScriptedSource)(nil)
)
