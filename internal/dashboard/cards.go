package dashboard

import (
	"strings"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
)

// Card is one metric tile.
type Card struct {
	Title    string `json:"title"`
	Value    string `json:"value"`
	Unit     string `json:"unit"`
	Change   string `json:"change"`
	Icon     string `json:"icon"`
	Positive bool   `json:"positive"`
}

type cardDef struct {
	title  string
	unit   string
	change string // static label, not a computed delta
	icon   string
	value  func(Display) string
}

var cardDefs = []cardDef{
	{title: "Total Volume", unit: "$B2S", change: "+12.5%", icon: "📈", value: func(d Display) string { return d.TotalVolume }},
	{title: "Active Users", unit: "wallets", change: "+8.3%", icon: "👥", value: func(d Display) string { return d.ActiveUsers }},
	{title: "Total Staked", unit: "$B2S", change: "+15.2%", icon: "🔒", value: func(d Display) string { return d.TotalStaked }},
	{title: "24h Transactions", unit: "txns", change: "+5.7%", icon: "⚡", value: func(d Display) string { return d.Transactions24h }},
}

// Cards builds the four metric tiles in display order.
func Cards(d Display) []Card {
	cards := make([]Card, 0, len(cardDefs))
	for _, def := range cardDefs {
		cards = append(cards, Card{
			Title:    def.title,
			Value:    def.value(d),
			Unit:     def.unit,
			Change:   def.change,
			Icon:     def.icon,
			Positive: strings.HasPrefix(def.change, "+"),
		})
	}
	return cards
}

// Palette is the color set of a theme.
type Palette struct {
	Background  string `json:"background"`
	Text        string `json:"text"`
	Surface     string `json:"surface"`
	Border      string `json:"border"`
	Placeholder string `json:"placeholder"` // dashed chart placeholder border
	Positive    string `json:"positive"`
	Negative    string `json:"negative"`
}

// PaletteFor returns the palette of t. Unknown themes fall back to dark.
func PaletteFor(t domain.Theme) Palette {
	if t == domain.ThemeLight {
		return Palette{
			Background:  "#ffffff",
			Text:        "#0f172a",
			Surface:     "#f8fafc",
			Border:      "#e2e8f0",
			Placeholder: "#cbd5e1",
			Positive:    "#10b981",
			Negative:    "#ef4444",
		}
	}
	return Palette{
		Background:  "#0f172a",
		Text:        "#f1f5f9",
		Surface:     "#1e293b",
		Border:      "#334155",
		Placeholder: "#334155",
		Positive:    "#10b981",
		Negative:    "#ef4444",
	}
}

// Chart series served from snapshot history.
const (
	SeriesVolume = "volume"
	SeriesUsers  = "users"
)

// Header is the dashboard title block.
type Header struct {
	Icon     string `json:"icon"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// DashboardHeader is shown above the cards.
var DashboardHeader = Header{Icon: "📊", Title: "B2S Analytics Dashboard", Subtitle: "Real-time metrics and insights"}

// ChartPanel describes a chart slot for the renderer.
type ChartPanel struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Icon    string `json:"icon"`
	Caption string `json:"caption"`
	Series  string `json:"series,omitempty"` // empty when no data feed exists
}

// ChartPanels lists the chart slots in display order.
var ChartPanels = []ChartPanel{
	{ID: "volume", Title: "Volume Over Time", Icon: "📈", Caption: "Using Recharts library", Series: SeriesVolume},
	{ID: "users", Title: "User Growth", Icon: "👥", Caption: "Line chart with trend analysis", Series: SeriesUsers},
	{ID: "distribution", Title: "Token Distribution", Icon: "🥧", Caption: "Top holders breakdown"},
}
