package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danielpatrickdp/autobuy/internal/controller"
	"github.com/danielpatrickdp/autobuy/internal/tier"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string          `json:"description"`
	Config      FixtureConfig   `json:"config"`
	Start       FixtureStart    `json:"start"`
	Ticks       []FixtureTick   `json:"ticks"`
	Expected    FixtureExpected `json:"expected"`
}

// FixtureConfig mirrors controller.Config in milliseconds. Zero fields
// take the controller defaults.
type FixtureConfig struct {
	MenuTimeoutMS    int64    `json:"menu_timeout_ms,omitempty"`
	ClickDelayMS     int64    `json:"click_delay_ms,omitempty"`
	SettleDelayMS    int64    `json:"settle_delay_ms,omitempty"`
	CooldownMS       int64    `json:"cooldown_ms,omitempty"`
	TriggerCommand   string   `json:"trigger_command,omitempty"`
	InteractiveKinds []string `json:"interactive_kinds,omitempty"`
}

// FixtureStart is the preference state before the first tick.
type FixtureStart struct {
	Enabled bool   `json:"enabled"`
	Tier    string `json:"tier"`
}

// FixtureTick is one recorded snapshot. Enabled and Tier, when present,
// change the preference from that tick on.
type FixtureTick struct {
	AtMS           int64   `json:"at_ms"`
	ResourceLevel  int     `json:"resource_level"`
	SurfacePresent bool    `json:"surface_present"`
	SurfaceKind    string  `json:"surface_kind,omitempty"`
	SurfaceHandle  int     `json:"surface_handle,omitempty"`
	Offline        bool    `json:"offline,omitempty"`
	Enabled        *bool   `json:"enabled,omitempty"`
	Tier           *string `json:"tier,omitempty"`
}

// FixtureExpected is the summary the run must reproduce.
type FixtureExpected struct {
	Ticks        int    `json:"ticks"`
	Triggers     int    `json:"triggers"`
	Interactions int    `json:"interactions"`
	Successes    int    `json:"successes"`
	Timeouts     int    `json:"timeouts"`
	Vanished     int    `json:"vanished"`
	Closes       int    `json:"closes"`
	Cancelled    int    `json:"cancelled"`
	FinalState   string `json:"final_state"`
}

// #endregion fixture-types

// #region fixture-io

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON, creating parent directories.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create fixture dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-io

// #region conversions

// ToConfig converts the fixture config, filling unset fields from
// controller.DefaultConfig.
func (fc FixtureConfig) ToConfig() controller.Config {
	cfg := controller.DefaultConfig()
	if fc.MenuTimeoutMS != 0 {
		cfg.MenuTimeout = time.Duration(fc.MenuTimeoutMS) * time.Millisecond
	}
	if fc.ClickDelayMS != 0 {
		cfg.ClickDelay = time.Duration(fc.ClickDelayMS) * time.Millisecond
	}
	if fc.SettleDelayMS != 0 {
		cfg.SettleDelay = time.Duration(fc.SettleDelayMS) * time.Millisecond
	}
	if fc.CooldownMS != 0 {
		cfg.Cooldown = time.Duration(fc.CooldownMS) * time.Millisecond
	}
	if fc.TriggerCommand != "" {
		cfg.TriggerCommand = fc.TriggerCommand
	}
	cfg.InteractiveKinds = fc.InteractiveKinds
	return cfg
}

// ToStart converts the start preferences. An empty tier means the default.
func (fs FixtureStart) ToStart() (Start, error) {
	t := tier.Default()
	if fs.Tier != "" {
		var err error
		if t, err = tier.Parse(fs.Tier); err != nil {
			return Start{}, fmt.Errorf("start: %w", err)
		}
	}
	return Start{Enabled: fs.Enabled, Tier: t}, nil
}

// ToTick converts one fixture tick.
func (ft FixtureTick) ToTick() (Tick, error) {
	tk := Tick{
		At: time.Duration(ft.AtMS) * time.Millisecond,
		Snapshot: controller.Snapshot{
			ResourceLevel:  ft.ResourceLevel,
			SurfacePresent: ft.SurfacePresent,
			SurfaceKind:    ft.SurfaceKind,
			SurfaceHandle:  ft.SurfaceHandle,
			Offline:        ft.Offline,
		},
		Enabled: ft.Enabled,
	}
	if ft.Tier != nil {
		t, err := tier.Parse(*ft.Tier)
		if err != nil {
			return Tick{}, fmt.Errorf("tick at %dms: %w", ft.AtMS, err)
		}
		tk.Tier = &t
	}
	return tk, nil
}

// ToSummary converts the expectation to a Summary.
func (fe FixtureExpected) ToSummary() (Summary, error) {
	st, ok := controller.ParseState(fe.FinalState)
	if !ok {
		return Summary{}, fmt.Errorf("unknown final_state %q", fe.FinalState)
	}
	return Summary{
		Ticks:        fe.Ticks,
		Triggers:     fe.Triggers,
		Interactions: fe.Interactions,
		Successes:    fe.Successes,
		Timeouts:     fe.Timeouts,
		Vanished:     fe.Vanished,
		Closes:       fe.Closes,
		Cancelled:    fe.Cancelled,
		FinalState:   st,
	}, nil
}

// ExpectedFrom builds the expectation block from a summary.
func ExpectedFrom(s Summary) FixtureExpected {
	return FixtureExpected{
		Ticks:        s.Ticks,
		Triggers:     s.Triggers,
		Interactions: s.Interactions,
		Successes:    s.Successes,
		Timeouts:     s.Timeouts,
		Vanished:     s.Vanished,
		Closes:       s.Closes,
		Cancelled:    s.Cancelled,
		FinalState:   s.FinalState.String(),
	}
}

// #endregion conversions

// #region run

// Run replays the fixture and checks it against its expectation. It
// returns the per-tick results and any mismatches.
func (f *Fixture) Run() ([]TickResult, []string, error) {
	start, err := f.Start.ToStart()
	if err != nil {
		return nil, nil, err
	}
	ticks := make([]Tick, 0, len(f.Ticks))
	for _, ft := range f.Ticks {
		tk, err := ft.ToTick()
		if err != nil {
			return nil, nil, err
		}
		ticks = append(ticks, tk)
	}
	want, err := f.Expected.ToSummary()
	if err != nil {
		return nil, nil, err
	}

	cfg := f.Config.ToConfig()
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("fixture config: %w", err)
	}

	results := Replay(cfg, start, ticks)
	return results, Check(Summarize(results), want), nil
}

// #endregion run
