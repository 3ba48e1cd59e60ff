package tier

import (
	"errors"
	"fmt"
	"strings"
)

// #region types

// ID identifies a purchasable tier. IDs are the persisted form of a selection.
type ID string

const (
	Simple     ID = "SIMPLE"
	Unico      ID = "UNICO"
	Elite      ID = "ELITE"
	Ultimate   ID = "ULTIMATE"
	Legendario ID = "LEGENDARIO"
)

// Tier is one purchase option: the resource level it costs and the
// slot on the remote menu that buys it.
type Tier struct {
	ID     ID
	Cost   int
	Target int
	Label  string
}

// ErrUnknownTier is returned by Parse for ids outside the catalog.
var ErrUnknownTier = errors.New("unknown tier")

// #endregion types

// #region catalog

var catalog = [...]Tier{
	{ID: Simple, Cost: 20, Target: 11, Label: "Simple"},
	{ID: Unico, Cost: 25, Target: 12, Label: "Único"},
	{ID: Elite, Cost: 30, Target: 13, Label: "Elite"},
	{ID: Ultimate, Cost: 35, Target: 14, Label: "Ultimate"},
	{ID: Legendario, Cost: 40, Target: 15, Label: "Legendario"},
}

// All returns the catalog in display order. The slice is a copy.
func All() []Tier {
	out := make([]Tier, len(catalog))
	copy(out, catalog[:])
	return out
}

// Default returns the tier used when nothing valid is selected.
func Default() Tier {
	return catalog[0]
}

// Lookup finds a tier by exact id.
func Lookup(id ID) (Tier, bool) {
	if i := indexOf(id); i >= 0 {
		return catalog[i], true
	}
	return Tier{}, false
}

// Parse resolves a tier id ignoring case and surrounding whitespace.
func Parse(s string) (Tier, error) {
	id := ID(strings.ToUpper(strings.TrimSpace(s)))
	if t, ok := Lookup(id); ok {
		return t, nil
	}
	return Tier{}, fmt.Errorf("parse tier %q: %w", s, ErrUnknownTier)
}

// #endregion catalog

// #region navigation

// Next returns the tier after t, wrapping to the first.
func Next(t Tier) Tier {
	i := max(indexOf(t.ID), 0)
	return catalog[(i+1)%len(catalog)]
}

// Previous returns the tier before t, wrapping to the last.
func Previous(t Tier) Tier {
	i := max(indexOf(t.ID), 0)
	return catalog[(i-1+len(catalog))%len(catalog)]
}

func indexOf(id ID) int {
	for i, t := range catalog {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// #endregion navigation
