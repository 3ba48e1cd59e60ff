package controller

import (
	"errors"
	"slices"
	"time"

	"github.com/danielpatrickdp/autobuy/internal/tier"
)

// #region state

// State is the position of the purchase cycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingSurface
	StateInteracting
	StateSettling
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSurface:
		return "awaiting_surface"
	case StateInteracting:
		return "interacting"
	case StateSettling:
		return "settling"
	default:
		return "unknown"
	}
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, bool) {
	for _, st := range []State{StateIdle, StateAwaitingSurface, StateInteracting, StateSettling} {
		if st.String() == s {
			return st, true
		}
	}
	return StateIdle, false
}

// #endregion state

// #region config

// Config holds the controller tunables.
type Config struct {
	MenuTimeout time.Duration // max wait for the menu after the command is sent
	ClickDelay  time.Duration // wait after the menu opens so slots get populated
	SettleDelay time.Duration // wait after the click before closing the menu
	Cooldown    time.Duration // min gap between successful purchases

	TriggerCommand   string   // chat command that opens the menu
	InteractiveKinds []string // surface kinds that can be clicked; empty accepts any
}

// DefaultConfig returns the tunables the controller ships with.
func DefaultConfig() Config {
	return Config{
		MenuTimeout:    3000 * time.Millisecond,
		ClickDelay:     60 * time.Millisecond,
		SettleDelay:    50 * time.Millisecond,
		Cooldown:       1200 * time.Millisecond,
		TriggerCommand: "/encantamientos",
	}
}

// Validate checks that the tunables keep the cycle well ordered.
func (c Config) Validate() error {
	if c.MenuTimeout <= 0 {
		return errors.New("menu timeout must be positive")
	}
	if c.ClickDelay < 0 || c.SettleDelay < 0 || c.Cooldown < 0 {
		return errors.New("delays must not be negative")
	}
	if c.ClickDelay >= c.MenuTimeout {
		return errors.New("click delay must be shorter than menu timeout")
	}
	if c.TriggerCommand == "" {
		return errors.New("trigger command is required")
	}
	return nil
}

func (c Config) interactive(kind string) bool {
	return len(c.InteractiveKinds) == 0 || slices.Contains(c.InteractiveKinds, kind)
}

// #endregion config

// #region input

// Snapshot is the host state observed on one tick.
type Snapshot struct {
	ResourceLevel  int
	SurfacePresent bool
	SurfaceKind    string
	SurfaceHandle  int  // sync id of the open menu, echoed back on interaction
	Offline        bool // no player / disconnected
}

// Input is everything Step reads for one tick.
type Input struct {
	Now      time.Time
	Enabled  bool
	Tier     tier.Tier
	Snapshot Snapshot
}

// #endregion input

// #region effects

// EffectKind discriminates Effect.
type EffectKind string

const (
	EffectTrigger  EffectKind = "trigger"
	EffectInteract EffectKind = "interact"
	EffectClose    EffectKind = "close"
	EffectNotify   EffectKind = "notify"
)

// NoticeKind classifies a user-visible notification.
type NoticeKind string

const (
	NoticeSuccess  NoticeKind = "success"
	NoticeTimeout  NoticeKind = "timeout"
	NoticeVanished NoticeKind = "vanished"
)

// InteractionKind is the click type sent with an interaction.
type InteractionKind string

const InteractPickup InteractionKind = "pickup"

// Effect is a side effect the host must perform. Only the fields relevant
// to Kind are set.
type Effect struct {
	Kind EffectKind

	// trigger
	Command string

	// trigger, interact, notify(success)
	Tier tier.Tier

	// interact
	Handle      int
	Target      int
	Button      int
	Interaction InteractionKind

	// notify
	Notice  NoticeKind
	Message string
}

// #endregion effects

// #region machine

// Machine is the complete controller state. The zero value is idle.
type Machine struct {
	State          State
	StateEnteredAt time.Time
	LastSuccessAt  time.Time
}

// #endregion machine
