package domain

import "time"

// Theme selects the dashboard color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Dashboard defaults.
const (
	DefaultAPIEndpoint     = "https://api.b2s.xyz"
	DefaultRefreshInterval = 30 * time.Second
	DefaultTheme           = ThemeDark
)

// DashboardConfig is the mount configuration of one dashboard view.
type DashboardConfig struct {
	ContractAddress string        // required, opaque identifier
	APIEndpoint     string        // data source base URL
	RefreshInterval time.Duration // must be positive
	Theme           Theme
}

// WithDefaults returns a copy with zero-valued optional fields filled in.
func (c DashboardConfig) WithDefaults() DashboardConfig {
	if c.APIEndpoint == "" {
		c.APIEndpoint = DefaultAPIEndpoint
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.Theme == "" {
		c.Theme = DefaultTheme
	}
	return c
}
