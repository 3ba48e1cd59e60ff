package prefs

import "github.com/danielpatrickdp/autobuy/internal/tier"

// #region preferences

// Preferences is the persisted form of the user's choices.
type Preferences struct {
	Enabled bool
	Tier    tier.ID
}

// Defaults returns the preferences used before anything is saved:
// disabled, SIMPLE tier.
func Defaults() Preferences {
	return Preferences{Enabled: false, Tier: tier.Default().ID}
}

// #endregion preferences

// #region backend

// Backend loads and saves preferences. Load must return Defaults (and no
// error) when nothing has been saved yet.
type Backend interface {
	Load() (Preferences, error)
	Save(Preferences) error
}

// Source is the read side consumed by the controller loop. Current
// returns both values from one consistent read.
type Source interface {
	Current() (enabled bool, selected tier.Tier)
}

// #endregion backend
