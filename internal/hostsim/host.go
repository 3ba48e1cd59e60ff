// Package hostsim is a deterministic stand-in for the game client and
// server: resource accrues over time, the menu opens some time after the
// command is sent (or not at all), and clicks spend the slot's price.
package hostsim

import (
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/danielpatrickdp/autobuy/internal/controller"
	"github.com/danielpatrickdp/autobuy/internal/tier"
)

// #region config

// Config controls the simulated server.
type Config struct {
	Seed           int64
	StartLevel     int
	LevelPerSecond float64       // resource gained per simulated second
	OpenLatency    time.Duration // base delay between command and menu
	Jitter         time.Duration // extra delay, scaled by noise in [0,1]
	DropRate       float64       // share of commands the server ignores; >= 1 drops all
	Kind           string        // surface kind reported while the menu is open
	Command        string        // accepted command; empty accepts any
}

// DefaultConfig returns a well-behaved server: no drops, ~150–250ms menus.
func DefaultConfig() Config {
	return Config{
		Seed:           1,
		LevelPerSecond: 10,
		OpenLatency:    150 * time.Millisecond,
		Jitter:         100 * time.Millisecond,
		Kind:           "generic_container",
	}
}

// #endregion config

// #region host

// Stats counts what the server saw.
type Stats struct {
	Commands  int
	Dropped   int
	Opened    int
	Clicks    int
	Purchases int
	Spent     int
	Closes    int
}

// Host is the simulated environment. Not safe for concurrent use.
type Host struct {
	cfg     Config
	noise   opensimplex.Noise
	prices  map[int]int
	now     time.Time
	level   float64
	open    bool
	handle  int
	opensAt time.Time
	stats   Stats

	// Messages holds every notification shown to the player.
	Messages []string
}

// New creates a host whose clock starts at start.
func New(cfg Config, start time.Time) *Host {
	prices := make(map[int]int)
	for _, t := range tier.All() {
		prices[t.Target] = t.Cost
	}
	return &Host{
		cfg:    cfg,
		noise:  opensimplex.NewNormalized(cfg.Seed),
		prices: prices,
		now:    start,
		level:  float64(cfg.StartLevel),
	}
}

// Now returns the simulated clock.
func (h *Host) Now() time.Time {
	return h.now
}

// Stats returns a copy of the counters.
func (h *Host) Stats() Stats {
	return h.stats
}

// Level returns the current resource level.
func (h *Host) Level() int {
	return int(h.level)
}

// #endregion host

// #region simulation

// Advance moves the clock forward, accruing resource and opening a
// pending menu whose latency has elapsed.
func (h *Host) Advance(d time.Duration) {
	h.now = h.now.Add(d)
	h.level += h.cfg.LevelPerSecond * d.Seconds()
	if !h.opensAt.IsZero() && !h.now.Before(h.opensAt) {
		h.opensAt = time.Time{}
		h.open = true
		h.handle++
		h.stats.Opened++
	}
}

// Snapshot reports what the client currently sees.
func (h *Host) Snapshot() controller.Snapshot {
	snap := controller.Snapshot{ResourceLevel: int(h.level)}
	if h.open {
		snap.SurfacePresent = true
		snap.SurfaceKind = h.cfg.Kind
		snap.SurfaceHandle = h.handle
	}
	return snap
}

// Apply performs the effects the controller emitted.
func (h *Host) Apply(effects []controller.Effect) {
	for _, e := range effects {
		switch e.Kind {
		case controller.EffectTrigger:
			h.command(e.Command)
		case controller.EffectInteract:
			h.click(e.Handle, e.Target)
		case controller.EffectClose:
			h.CloseSurface()
		case controller.EffectNotify:
			h.Messages = append(h.Messages, e.Message)
		}
	}
}

// CloseSurface closes the menu as if the server or player did it.
func (h *Host) CloseSurface() {
	if h.open {
		h.open = false
		h.stats.Closes++
	}
}

func (h *Host) command(cmd string) {
	h.stats.Commands++
	n := h.stats.Commands
	if (h.cfg.Command != "" && cmd != h.cfg.Command) || h.drop(n) {
		h.stats.Dropped++
		return
	}
	if h.open || !h.opensAt.IsZero() {
		return
	}
	h.opensAt = h.now.Add(h.latency(n))
}

func (h *Host) click(handle, slot int) {
	h.stats.Clicks++
	if !h.open || handle != h.handle {
		return
	}
	cost, ok := h.prices[slot]
	if !ok || int(h.level) < cost {
		return
	}
	h.level -= float64(cost)
	h.stats.Purchases++
	h.stats.Spent += cost
}

func (h *Host) latency(n int) time.Duration {
	return h.cfg.OpenLatency + time.Duration(h.noise.Eval2(float64(n)*0.37, 0)*float64(h.cfg.Jitter))
}

func (h *Host) drop(n int) bool {
	if h.cfg.DropRate >= 1 {
		return true
	}
	return h.cfg.DropRate > 0 && h.noise.Eval2(float64(n)*0.37, 10) < h.cfg.DropRate
}

// #endregion simulation

// #region drive

// TickFunc runs one controller tick against a snapshot taken at now.
type TickFunc func(now time.Time, snap controller.Snapshot) []controller.Effect

// Drive runs ticks host ticks spaced by interval, applying whatever fn
// returns before advancing the clock.
func (h *Host) Drive(ticks int, interval time.Duration, fn TickFunc) {
	for range ticks {
		h.Apply(fn(h.now, h.Snapshot()))
		h.Advance(interval)
	}
}

// #endregion drive
