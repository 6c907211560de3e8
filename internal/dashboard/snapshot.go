package dashboard

import "github.com/wkalidev/b2s-analytics-dashboard/internal/domain"

// Snapshot is the renderer payload.
type Snapshot struct {
	Header          Header         `json:"header"`
	ContractAddress string         `json:"contractAddress"`
	Theme           domain.Theme   `json:"theme"`
	Palette         Palette        `json:"palette"`
	Phase           string         `json:"phase"`
	Loading         bool           `json:"loading"`
	Metrics         domain.Metrics `json:"metrics"`
	Display         Display        `json:"display"`
	Cards           []Card         `json:"cards"`
	Charts          []ChartPanel   `json:"charts"`
	UpdatedAt       int64          `json:"updatedAt,omitempty"`
	LastError       string         `json:"lastError,omitempty"`
}

func (vm *ViewModel) snapshotLocked() Snapshot {
	phase := PhaseReady
	if vm.state.Loading {
		phase = PhaseLoading
	}
	display := Derive(vm.state.Metrics)

	charts := make([]ChartPanel, len(ChartPanels))
	copy(charts, ChartPanels)

	return Snapshot{
		Header:          DashboardHeader,
		ContractAddress: vm.cfg.ContractAddress,
		Theme:           vm.cfg.Theme,
		Palette:         PaletteFor(vm.cfg.Theme),
		Phase:           phase.String(),
		Loading:         vm.state.Loading,
		Metrics:         vm.state.Metrics,
		Display:         display,
		Cards:           Cards(display),
		Charts:          charts,
		UpdatedAt:       vm.state.UpdatedAt,
		LastError:       vm.state.LastError,
	}
}
