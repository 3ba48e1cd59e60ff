// Package controller drives the buy cycle: send the menu command, wait for
// the menu, click the selected slot once, close the menu, cool down.
//
// Waiting is never blocking. Each tick the host calls Step (or
// Controller.Tick) with what it currently observes, and the machine either
// stays put or moves on. The command can only be sent from idle and idle is
// only re-entered once the cycle finished or failed, so there is no way to
// send it twice for one menu.
package controller

import (
	"time"

	"github.com/danielpatrickdp/autobuy/internal/tier"
)

const noticePrefix = "[AutoBuy] "

// #region step

// Step advances m by one tick and returns the new machine plus the effects
// the host must apply, in order.
func Step(cfg Config, m Machine, in Input) (Machine, []Effect) {
	if !in.Enabled || in.Snapshot.Offline {
		m.State = StateIdle
		return m, nil
	}

	switch m.State {
	case StateIdle:
		return stepIdle(cfg, m, in)
	case StateAwaitingSurface:
		return stepAwaiting(cfg, m, in)
	case StateInteracting:
		return stepInteracting(cfg, m, in)
	case StateSettling:
		return stepSettling(cfg, m, in)
	default:
		m.State = StateIdle
		return m, nil
	}
}

func stepIdle(cfg Config, m Machine, in Input) (Machine, []Effect) {
	if coolingDown(cfg, m, in.Now) {
		return m, nil
	}
	if in.Snapshot.ResourceLevel < in.Tier.Cost {
		return m, nil
	}

	m = enter(m, StateAwaitingSurface, in.Now)
	return m, []Effect{{
		Kind:    EffectTrigger,
		Command: cfg.TriggerCommand,
		Tier:    in.Tier,
	}}
}

func stepAwaiting(cfg Config, m Machine, in Input) (Machine, []Effect) {
	if surfaceOpen(cfg, in.Snapshot) {
		return enter(m, StateInteracting, in.Now), nil
	}
	if in.Now.Sub(m.StateEnteredAt) >= cfg.MenuTimeout {
		m = enter(m, StateIdle, in.Now)
		return m, []Effect{notice(NoticeTimeout, "Error: menu did not open", in.Tier)}
	}
	return m, nil
}

func stepInteracting(cfg Config, m Machine, in Input) (Machine, []Effect) {
	if !surfaceOpen(cfg, in.Snapshot) {
		m = enter(m, StateIdle, in.Now)
		return m, []Effect{notice(NoticeVanished, "Error: menu closed before purchase", in.Tier)}
	}
	if in.Now.Sub(m.StateEnteredAt) < cfg.ClickDelay {
		return m, nil
	}

	effects := []Effect{
		{
			Kind:        EffectInteract,
			Tier:        in.Tier,
			Handle:      in.Snapshot.SurfaceHandle,
			Target:      in.Tier.Target,
			Button:      0,
			Interaction: InteractPickup,
		},
		notice(NoticeSuccess, "Purchased: "+in.Tier.Label, in.Tier),
	}
	if in.Now.After(m.LastSuccessAt) {
		m.LastSuccessAt = in.Now
	}
	return enter(m, StateSettling, in.Now), effects
}

func stepSettling(cfg Config, m Machine, in Input) (Machine, []Effect) {
	if in.Now.Sub(m.StateEnteredAt) < cfg.SettleDelay {
		return m, nil
	}
	return enter(m, StateIdle, in.Now), []Effect{{Kind: EffectClose}}
}

// #endregion step

// #region helpers

func enter(m Machine, s State, now time.Time) Machine {
	m.State = s
	m.StateEnteredAt = now
	return m
}

func coolingDown(cfg Config, m Machine, now time.Time) bool {
	return !m.LastSuccessAt.IsZero() && now.Sub(m.LastSuccessAt) < cfg.Cooldown
}

func surfaceOpen(cfg Config, snap Snapshot) bool {
	return snap.SurfacePresent && cfg.interactive(snap.SurfaceKind)
}

func notice(kind NoticeKind, msg string, t tier.Tier) Effect {
	return Effect{
		Kind:    EffectNotify,
		Tier:    t,
		Notice:  kind,
		Message: noticePrefix + msg,
	}
}

// #endregion helpers

// #region controller

// Controller owns one Machine. It is not safe for concurrent use; a single
// goroutine must deliver every tick.
type Controller struct {
	cfg Config
	m   Machine
}

// New creates an idle controller.
func New(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// Tick advances the controller by one tick.
func (c *Controller) Tick(in Input) []Effect {
	var effects []Effect
	c.m, effects = Step(c.cfg, c.m, in)
	return effects
}

// Reset forces the controller idle, dropping any wait in progress.
// The cooldown from the last purchase still applies.
func (c *Controller) Reset() {
	c.m.State = StateIdle
	c.m.StateEnteredAt = time.Time{}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.m.State
}

// Machine returns a copy of the full controller state.
func (c *Controller) Machine() Machine {
	return c.m
}

// Config returns the tunables the controller runs with.
func (c *Controller) Config() Config {
	return c.cfg
}

// #endregion controller
