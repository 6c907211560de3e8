package dashboard

import (
	"math"
	"strconv"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
)

// Display holds the formatted metric strings shown on the cards.
type Display struct {
	TotalVolume     string `json:"totalVolume"`
	ActiveUsers     string `json:"activeUsers"`
	TotalStaked     string `json:"totalStaked"`
	Transactions24h string `json:"transactions24h"`
}

// Values returns the strings in card order.
func (d Display) Values() []string {
	return []string{d.TotalVolume, d.ActiveUsers, d.TotalStaked, d.Transactions24h}
}

// Derive formats m for display. It is pure.
func Derive(m domain.Metrics) Display {
	return Display{
		TotalVolume:     FormatMillions(m.TotalVolume),
		ActiveUsers:     strconv.FormatInt(m.ActiveUsers, 10),
		TotalStaked:     FormatMillions(m.TotalStaked),
		Transactions24h: strconv.FormatInt(m.Transactions24h, 10),
	}
}

// FormatMillions renders v in millions with one decimal and an "M" suffix.
// Ties round away from zero, so 1,250,000 is "1.3M".
func FormatMillions(v float64) string {
	return strconv.FormatFloat(math.Round(v/1e5)/10, 'f', 1, 64) + "M"
}
