package replay

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/autobuy/internal/controller"
	"github.com/danielpatrickdp/autobuy/internal/tier"
)

// #region fixture-tests

func runFixture(t *testing.T, name string) []TickResult {
	t.Helper()
	f, err := LoadFixture(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	results, diffs, err := f.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, d := range diffs {
		t.Error(d)
	}
	return results
}

func TestFixture_FullCycle(t *testing.T) {
	results := runFixture(t, "full_cycle.json")

	// The tier switch applies to the third trigger.
	var triggered []tier.ID
	for _, r := range results {
		for _, e := range r.Effects {
			if e.Kind == controller.EffectTrigger {
				triggered = append(triggered, e.Tier.ID)
			}
		}
	}
	want := []tier.ID{tier.Simple, tier.Simple, tier.Elite, tier.Elite}
	if len(triggered) != len(want) {
		t.Fatalf("expected %d triggers, got %v", len(want), triggered)
	}
	for i := range want {
		if triggered[i] != want[i] {
			t.Errorf("trigger %d: expected %s, got %s", i, want[i], triggered[i])
		}
	}
}

func TestFixture_ContainerFilter(t *testing.T) {
	runFixture(t, "container_filter.json")
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := LoadFixture(filepath.Join("testdata", "nope.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

func TestWriteFixture_RoundTrip(t *testing.T) {
	on := true
	elite := "ELITE"
	f := &Fixture{
		Description: "written",
		Start:       FixtureStart{Enabled: false, Tier: "SIMPLE"},
		Ticks: []FixtureTick{
			{AtMS: 0, ResourceLevel: 40, Enabled: &on, Tier: &elite},
		},
		Expected: FixtureExpected{Ticks: 1, Triggers: 1, FinalState: "awaiting_surface"},
	}
	path := filepath.Join(t.TempDir(), "out", "fixture.json")
	if err := WriteFixture(path, f); err != nil {
		t.Fatalf("WriteFixture: %v", err)
	}

	got, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	_, diffs, err := got.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(diffs) != 0 {
		t.Fatalf("unexpected diffs %v", diffs)
	}
}

func TestRun_UnknownTier(t *testing.T) {
	bad := "MYTHIC"
	f := &Fixture{
		Start:    FixtureStart{Tier: "SIMPLE"},
		Ticks:    []FixtureTick{{AtMS: 0, Tier: &bad}},
		Expected: FixtureExpected{FinalState: "idle"},
	}
	if _, _, err := f.Run(); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	f := &Fixture{
		Config:   FixtureConfig{MenuTimeoutMS: 50, ClickDelayMS: 100},
		Expected: FixtureExpected{FinalState: "idle"},
	}
	if _, _, err := f.Run(); err == nil {
		t.Fatal("expected error for click delay past timeout")
	}
}

// #endregion fixture-tests

// #region replay-tests

func TestReplay_PreferenceOverridesStick(t *testing.T) {
	off := false
	ticks := []Tick{
		{At: 0, Snapshot: controller.Snapshot{ResourceLevel: 5}, Enabled: &off},
		{At: 10 * time.Millisecond, Snapshot: controller.Snapshot{ResourceLevel: 50}},
	}
	results := Replay(controller.DefaultConfig(), Start{Enabled: true, Tier: tier.Default()}, ticks)
	s := Summarize(results)
	if s.Triggers != 0 {
		t.Fatalf("expected disable to persist, got %d triggers", s.Triggers)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Ticks != 0 || s.FinalState != controller.StateIdle {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestCheck_ReportsEveryField(t *testing.T) {
	got := Summary{Ticks: 3, Triggers: 1, FinalState: controller.StateSettling}
	want := Summary{Ticks: 3, Triggers: 2, Closes: 1, FinalState: controller.StateIdle}
	diffs := Check(got, want)
	if len(diffs) != 3 {
		t.Fatalf("expected 3 diffs, got %v", diffs)
	}
}

// #endregion replay-tests
