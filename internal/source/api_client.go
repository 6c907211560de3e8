package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// maxBodySize caps the response body read from the analytics API.
const maxBodySize = 1 << 20

// APIClient implements Fetcher against the analytics JSON API.
type APIClient struct {
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures APIClient.
type ClientOption func(*APIClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *APIClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts. Zero disables retries.
func WithMaxRetries(n int) ClientOption {
	return func(c *APIClient) {
		if n < 0 {
			n = 0
		}
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *APIClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *APIClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *APIClient) {
		c.client = client
	}
}

// NewAPIClient creates a new analytics API client.
func NewAPIClient(opts ...ClientOption) *APIClient {
	c := &APIClient{
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// metricsResponse is the raw API payload.
type metricsResponse struct {
	TotalVolume     *float64 `json:"totalVolume"`
	ActiveUsers     *int64   `json:"activeUsers"`
	TotalStaked     *float64 `json:"totalStaked"`
	Transactions24h *int64   `json:"transactions24h"`
}

// MetricsURL builds the metrics resource URL for a contract.
func MetricsURL(apiEndpoint, contractAddress string) (string, error) {
	base, err := url.Parse(strings.TrimRight(apiEndpoint, "/"))
	if err != nil {
		return "", fmt.Errorf("parse api endpoint: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", fmt.Errorf("unsupported api endpoint scheme %q", base.Scheme)
	}
	return base.JoinPath("v1", "analytics", contractAddress, "metrics").String(), nil
}

// FetchMetrics retrieves metrics for contractAddress, retrying transport
// failures, 5xx and 429 responses with exponential backoff.
func (c *APIClient) FetchMetrics(ctx context.Context, contractAddress, apiEndpoint string) (domain.Metrics, error) {
	start := time.Now()
	defer func() {
		observability.RecordSourceLatency("api", time.Since(start).Seconds())
	}()

	endpoint, err := MetricsURL(apiEndpoint, contractAddress)
	if err != nil {
		return domain.Metrics{}, &FetchError{Op: OpTransport, Contract: contractAddress, Err: err}
	}

	body, err := c.get(ctx, contractAddress, endpoint)
	if err != nil {
		return domain.Metrics{}, err
	}

	var raw metricsResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.Metrics{}, &FetchError{Op: OpDecode, Contract: contractAddress, Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if raw.TotalVolume == nil || raw.ActiveUsers == nil || raw.TotalStaked == nil || raw.Transactions24h == nil {
		return domain.Metrics{}, &FetchError{Op: OpDecode, Contract: contractAddress, Err: fmt.Errorf("response missing metric fields")}
	}

	m := domain.Metrics{
		TotalVolume:     *raw.TotalVolume,
		ActiveUsers:     *raw.ActiveUsers,
		TotalStaked:     *raw.TotalStaked,
		Transactions24h: *raw.Transactions24h,
	}
	if !m.Valid() {
		return domain.Metrics{}, &FetchError{Op: OpValidate, Contract: contractAddress, Err: ErrInvalidMetrics}
	}
	return m, nil
}

// get performs the GET with retries and returns the response body.
func (c *APIClient) get(ctx context.Context, contract, endpoint string) ([]byte, error) {
	delay := c.retryDelay
	var lastErr *FetchError

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			observability.RecordSourceRetry()
			select {
			case <-ctx.Done():
				return nil, &FetchError{Op: OpTransport, Contract: contract, Err: ctx.Err()}
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, &FetchError{Op: OpTransport, Contract: contract, Err: fmt.Errorf("create request: %w", err)}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = &FetchError{Op: OpTransport, Contract: contract, Err: fmt.Errorf("http request: %w", err)}
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		resp.Body.Close()
		if err != nil {
			lastErr = &FetchError{Op: OpTransport, Contract: contract, Err: fmt.Errorf("read response: %w", err)}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = &FetchError{Op: OpStatus, Contract: contract, Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
			continue
		default:
			// Client errors are not retried
			return nil, &FetchError{Op: OpStatus, Contract: contract, Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
		}
	}

	lastErr.Err = fmt.Errorf("max retries exceeded: %w", lastErr.Err)
	return nil, lastErr
}

var _ Fetcher = (*APIClient)(nil)
