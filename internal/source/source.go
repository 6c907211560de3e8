// Package source defines the dashboard data source collaborator.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
)

// Fetcher loads the current metrics for a contract.
type Fetcher interface {
	// FetchMetrics returns the metrics of contractAddress as served by apiEndpoint.
	// Any transport or parse problem is reported as *FetchError.
	FetchMetrics(ctx context.Context, contractAddress, apiEndpoint string) (domain.Metrics, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, contractAddress, apiEndpoint string) (domain.Metrics, error)

// FetchMetrics calls f.
func (f FetcherFunc) FetchMetrics(ctx context.Context, contractAddress, apiEndpoint string) (domain.Metrics, error) {
	return f(ctx, contractAddress, apiEndpoint)
}

// Fetch failure stages.
const (
	OpTransport = "transport"
	OpStatus    = "status"
	OpDecode    = "decode"
	OpValidate  = "validate"
)

// ErrInvalidMetrics is returned when the source served negative values.
var ErrInvalidMetrics = errors.New("invalid metrics")

// FetchError is the single failure kind of a data source.
type FetchError struct {
	Op       string // failure stage
	Contract string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch metrics for %s: %s: %v", e.Contract, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AsFetchError wraps err into a *FetchError unless it already is one.
func AsFetchError(op, contract string, err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Op: op, Contract: contract, Err: err}
}
