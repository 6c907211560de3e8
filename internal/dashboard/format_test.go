package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name string
		in   domain.Metrics
		want []string
	}{
		{
			name: "dashboard sample",
			in:   domain.Metrics{TotalVolume: 15_200_000, ActiveUsers: 892, TotalStaked: 2_300_000, Transactions24h: 1247},
			want: []string{"15.2M", "892", "2.3M", "1247"},
		},
		{
			name: "zero values",
			in:   domain.Metrics{},
			want: []string{"0.0M", "0", "0.0M", "0"},
		},
		{
			name: "sub-million amounts",
			in:   domain.Metrics{TotalVolume: 40_000, TotalStaked: 999_999},
			want: []string{"0.0M", "0", "1.0M", "0"},
		},
		{
			name: "exact ties round up",
			in:   domain.Metrics{TotalVolume: 1_250_000, TotalStaked: 250_000},
			want: []string{"1.3M", "0", "0.3M", "0"},
		},
		{
			name: "large values keep integer form",
			in:   domain.Metrics{TotalVolume: 1_234_567_890, ActiveUsers: 1_000_000, Transactions24h: 98_765_432},
			want: []string{"1234.6M", "1000000", "0.0M", "98765432"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(tt.in).Values())
		})
	}
}

func TestFormatMillions_Ties(t *testing.T) {
	tests := map[float64]string{
		50_000:     "0.1M",
		250_000:    "0.3M",
		1_050_000:  "1.1M",
		1_250_000:  "1.3M",
		2_350_000:  "2.4M",
		15_249_999: "15.2M",
	}

	for in, want := range tests {
		assert.Equal(t, want, FormatMillions(in), "%v", in)
	}
}

func TestDerive_Idempotent(t *testing.T) {
	m := domain.Metrics{TotalVolume: 15_200_000, ActiveUsers: 892, TotalStaked: 2_300_000, Transactions24h: 1247}

	first := Derive(m)
	second := Derive(m)

	assert.Equal(t, first, second)
	assert.Equal(t, "15.2M", first.TotalVolume)
	assert.Equal(t, "892", first.ActiveUsers)
}

func TestCards(t *testing.T) {
	cards := Cards(Derive(domain.Metrics{TotalVolume: 15_200_000, ActiveUsers: 892, TotalStaked: 2_300_000, Transactions24h: 1247}))
	require.Len(t, cards, 4)

	assert.Equal(t, Card{Title: "Total Volume", Value: "15.2M", Unit: "$B2S", Change: "+12.5%", Icon: "📈", Positive: true}, cards[0])
	assert.Equal(t, "Active Users", cards[1].Title)
	assert.Equal(t, "wallets", cards[1].Unit)
	assert.Equal(t, "2.3M", cards[2].Value)
	assert.Equal(t, "24h Transactions", cards[3].Title)
	assert.Equal(t, "1247", cards[3].Value)

	for _, c := range cards {
		assert.True(t, c.Positive, c.Title)
	}
}

func TestPaletteFor(t *testing.T) {
	dark := PaletteFor(domain.ThemeDark)
	assert.Equal(t, "#0f172a", dark.Background)
	assert.Equal(t, "#f1f5f9", dark.Text)

	light := PaletteFor(domain.ThemeLight)
	assert.Equal(t, "#ffffff", light.Background)
	assert.Equal(t, "#cbd5e1", light.Placeholder)

	assert.Equal(t, dark, PaletteFor("unknown"))
}

func TestChartPanels(t *testing.T) {
	require.Len(t, ChartPanels, 3)
	assert.Equal(t, SeriesVolume, ChartPanels[0].Series)
	assert.Equal(t, "Using Recharts library", ChartPanels[0].Caption)
	assert.Equal(t, "Line chart with trend analysis", ChartPanels[1].Caption)
	assert.Equal(t, "Top holders breakdown", ChartPanels[2].Caption)
	assert.Equal(t, SeriesUsers, ChartPanels[1].Series)
	assert.Empty(t, ChartPanels[2].Series)
}
