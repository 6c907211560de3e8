package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/address"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/dashboard"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/source"
)

// defaultHistoryWindow is used when /api/history has no from parameter.
const defaultHistoryWindow = 24 * time.Hour

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string          `json:"status"`
	Uptime        string          `json:"uptime"`
	Started       time.Time       `json:"started"`
	Phase         string          `json:"phase"`
	Address       address.Address `json:"address"`
	Endpoint      string          `json:"endpoint"`
	Interval      string          `json:"refresh_interval"`
	UpdatedAt     int64           `json:"updated_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
	Viewers       int             `json:"viewers"`
	UniqueViewers uint64          `json:"unique_viewers"`
	Published     int             `json:"published"`
	PublishErrors int             `json:"publish_errors"`
	LastPublish   time.Time       `json:"last_publish,omitempty"`
}

// HistoryPoint is one sample of the chart series.
type HistoryPoint struct {
	Timestamp int64   `json:"t"`
	Value     float64 `json:"v"`
}

// HistoryResponse is the JSON response for /api/history.
type HistoryResponse struct {
	ContractAddress string                    `json:"contractAddress"`
	From            int64                     `json:"from"`
	To              int64                     `json:"to"`
	Snapshots       []*domain.MetricsSnapshot `json:"snapshots"`
	Series          map[string][]HistoryPoint `json:"series"`
}

type errorResponse struct {
	Error string `json:"error"`
	Op    string `json:"op,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.vm.Config()
	snap := s.vm.Snapshot()

	s.mu.Lock()
	resp := StatusResponse{
		Status:        "running",
		Uptime:        s.now().Sub(s.started).String(),
		Started:       s.started,
		Phase:         snap.Phase,
		Address:       s.address,
		Endpoint:      cfg.APIEndpoint,
		Interval:      cfg.RefreshInterval.String(),
		UpdatedAt:     snap.UpdatedAt,
		LastError:     snap.LastError,
		Published:     s.published,
		PublishErrors: s.publishErrors,
		LastPublish:   s.lastPublish,
	}
	s.mu.Unlock()

	resp.Viewers = s.hub.ClientCount()
	resp.UniqueViewers = s.hub.UniqueViewers()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.vm.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	to := s.now().UnixMilli()
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid to: " + err.Error()})
			return
		}
		to = parsed
	}

	from := to - defaultHistoryWindow.Milliseconds()
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid from: " + err.Error()})
			return
		}
		from = parsed
	}

	if from > to {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "from must not be after to"})
		return
	}

	contract := s.vm.Config().ContractAddress
	snaps, err := s.history.GetByTimeRange(r.Context(), contract, from, to)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load history")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "history unavailable"})
		return
	}
	if snaps == nil {
		snaps = []*domain.MetricsSnapshot{}
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		ContractAddress: contract,
		From:            from,
		To:              to,
		Snapshots:       snaps,
		Series:          buildSeries(snaps),
	})
}

// buildSeries maps snapshots onto the chart series named by dashboard.ChartPanels.
func buildSeries(snaps []*domain.MetricsSnapshot) map[string][]HistoryPoint {
	volume := make([]HistoryPoint, 0, len(snaps))
	users := make([]HistoryPoint, 0, len(snaps))
	for _, snap := range snaps {
		volume = append(volume, HistoryPoint{Timestamp: snap.FetchedAt, Value: snap.TotalVolume})
		users = append(users, HistoryPoint{Timestamp: snap.FetchedAt, Value: float64(snap.ActiveUsers)})
	}
	return map[string][]HistoryPoint{
		dashboard.SeriesVolume: volume,
		dashboard.SeriesUsers:  users,
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	m, err := s.vm.Fetch(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, m)
		return
	}

	var fe *source.FetchError
	switch {
	case errors.Is(err, dashboard.ErrFetchInFlight):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, dashboard.ErrStopped):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.As(err, &fe):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: fe.Error(), Op: fe.Op})
	default:
		// Client went away or the request context ended.
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
}
