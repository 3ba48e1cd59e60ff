// Package replay runs recorded snapshot sequences through the purchase
// controller in memory and summarizes what it did.
package replay

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/autobuy/internal/controller"
	"github.com/danielpatrickdp/autobuy/internal/tier"
)

// #region types

// Start is the preference state before the first tick.
type Start struct {
	Enabled bool
	Tier    tier.Tier
}

// Tick is one recorded snapshot, taken At after the start of the run.
// Non-nil Enabled or Tier change the preference from this tick on.
type Tick struct {
	At       time.Duration
	Snapshot controller.Snapshot
	Enabled  *bool
	Tier     *tier.Tier
}

// TickResult is what the controller did on one tick.
type TickResult struct {
	At      time.Duration
	Before  controller.State
	After   controller.State
	Effects []controller.Effect
}

// Summary aggregates a replay run.
type Summary struct {
	Ticks        int
	Triggers     int
	Interactions int
	Successes    int
	Timeouts     int
	Vanished     int
	Closes       int
	Cancelled    int // left a cycle for idle without a notice or close
	FinalState   controller.State
}

// #endregion types

// #region replay

// epoch anchors tick offsets. Any non-zero instant works.
var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Replay feeds ticks through controller.Step in order, starting idle.
func Replay(cfg controller.Config, start Start, ticks []Tick) []TickResult {
	var m controller.Machine
	enabled, selected := start.Enabled, start.Tier
	results := make([]TickResult, 0, len(ticks))

	for _, tk := range ticks {
		if tk.Enabled != nil {
			enabled = *tk.Enabled
		}
		if tk.Tier != nil {
			selected = *tk.Tier
		}

		before := m.State
		var effects []controller.Effect
		m, effects = controller.Step(cfg, m, controller.Input{
			Now:      epoch.Add(tk.At),
			Enabled:  enabled,
			Tier:     selected,
			Snapshot: tk.Snapshot,
		})
		results = append(results, TickResult{At: tk.At, Before: before, After: m.State, Effects: effects})
	}
	return results
}

// #endregion replay

// #region summarize

// Summarize counts effects and cancellations across a run.
func Summarize(results []TickResult) Summary {
	s := Summary{Ticks: len(results)}
	for _, r := range results {
		for _, e := range r.Effects {
			switch e.Kind {
			case controller.EffectTrigger:
				s.Triggers++
			case controller.EffectInteract:
				s.Interactions++
			case controller.EffectClose:
				s.Closes++
			case controller.EffectNotify:
				switch e.Notice {
				case controller.NoticeSuccess:
					s.Successes++
				case controller.NoticeTimeout:
					s.Timeouts++
				case controller.NoticeVanished:
					s.Vanished++
				}
			}
		}
		if r.Before != controller.StateIdle && r.After == controller.StateIdle && len(r.Effects) == 0 {
			s.Cancelled++
		}
		s.FinalState = r.After
	}
	return s
}

// Check lists every field where got differs from want. An empty result
// means the run matched.
func Check(got, want Summary) []string {
	var diffs []string
	counts := []struct {
		name      string
		got, want int
	}{
		{"ticks", got.Ticks, want.Ticks},
		{"triggers", got.Triggers, want.Triggers},
		{"interactions", got.Interactions, want.Interactions},
		{"successes", got.Successes, want.Successes},
		{"timeouts", got.Timeouts, want.Timeouts},
		{"vanished", got.Vanished, want.Vanished},
		{"closes", got.Closes, want.Closes},
		{"cancelled", got.Cancelled, want.Cancelled},
	}
	for _, c := range counts {
		if c.got != c.want {
			diffs = append(diffs, fmt.Sprintf("%s: expected %d, got %d", c.name, c.want, c.got))
		}
	}
	if got.FinalState != want.FinalState {
		diffs = append(diffs, fmt.Sprintf("final_state: expected %s, got %s", want.FinalState, got.FinalState))
	}
	return diffs
}

// #endregion summarize
