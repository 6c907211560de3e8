package domain

// Metrics is the four-field snapshot displayed by the dashboard.
// All fields are independently replaced on each refresh.
type Metrics struct {
	TotalVolume     float64 `json:"totalVolume"`     // traded volume in token units
	ActiveUsers     int64   `json:"activeUsers"`     // distinct wallets
	TotalStaked     float64 `json:"totalStaked"`     // staked amount in token units
	Transactions24h int64   `json:"transactions24h"` // transactions over the last 24h
}

// Valid reports whether every field is non-negative.
func (m Metrics) Valid() bool {
	return m.TotalVolume >= 0 && m.ActiveUsers >= 0 && m.TotalStaked >= 0 && m.Transactions24h >= 0
}

// ViewState is the mutable display state owned by the view model.
type ViewState struct {
	Metrics Metrics `json:"metrics"`

	// Loading is true only until the first fetch completes, success or not.
	Loading bool `json:"loading"`

	UpdatedAt int64  `json:"updatedAt,omitempty"` // last successful fetch (ms), 0 if none
	LastError string `json:"lastError,omitempty"` // most recent fetch failure, cleared on success
}

// NewViewState returns the state of a freshly mounted view.
func NewViewState() ViewState {
	return ViewState{Loading: true}
}

// MetricsSnapshot is one persisted successful fetch.
// Corresponds to metrics_snapshots (PostgreSQL) and metrics_timeseries (ClickHouse).
type MetricsSnapshot struct {
	ContractAddress string `json:"contractAddress"`
	FetchedAt       int64  `json:"fetchedAt"` // fetch completion time (ms)
	Metrics
}
