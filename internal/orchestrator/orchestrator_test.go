package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/danielpatrickdp/autobuy/internal/controller"
	"github.com/danielpatrickdp/autobuy/internal/hostsim"
	"github.com/danielpatrickdp/autobuy/internal/logging"
	"github.com/danielpatrickdp/autobuy/internal/prefs"
)

// #region helpers

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []logging.CycleEntry
	err     error
}

func (r *fakeRecorder) Record(e logging.CycleEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return r.err
}

func (r *fakeRecorder) Entries() []logging.CycleEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]logging.CycleEntry(nil), r.entries...)
}

type fixture struct {
	orch  *Orchestrator
	clock *fakeClock
	rec   *fakeRecorder
	prefs *prefs.Store
}

func start(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rec := &fakeRecorder{}
	ps := prefs.Open(prefs.NewMemoryBackend())
	ps.SetEnabled(true)

	n := 0
	o := New(controller.DefaultConfig(), ps,
		WithClock(clock.Now),
		WithRecorder(rec),
		WithIDs(func() string { n++; return fmt.Sprintf("cycle-%d", n) }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go o.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-o.Done()
	})
	return &fixture{orch: o, clock: clock, rec: rec, prefs: ps}
}

func (f *fixture) tick(t *testing.T, snap controller.Snapshot) Result {
	t.Helper()
	res, err := f.orch.Tick(context.Background(), snap)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	return res
}

func open(level int) controller.Snapshot {
	return controller.Snapshot{ResourceLevel: level, SurfacePresent: true, SurfaceKind: "generic_container", SurfaceHandle: 3}
}

// #endregion helpers

// #region cycle-tests

func TestTick_SuccessfulCycleRecorded(t *testing.T) {
	f := start(t)

	res := f.tick(t, controller.Snapshot{ResourceLevel: 20})
	if res.State != controller.StateAwaitingSurface || res.CycleID != "cycle-1" {
		t.Fatalf("unexpected result %+v", res)
	}

	f.clock.Advance(100 * time.Millisecond)
	f.tick(t, open(20))
	f.clock.Advance(60 * time.Millisecond)
	res = f.tick(t, open(20))
	if res.State != controller.StateSettling {
		t.Fatalf("expected settling, got %s", res.State)
	}

	entries := f.rec.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 recorded cycle, got %d", len(entries))
	}
	e := entries[0]
	if e.CycleID != "cycle-1" || e.Outcome != logging.OutcomeSuccess || e.Tier != "SIMPLE" || e.Target != 11 {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Duration() != 160*time.Millisecond {
		t.Fatalf("expected 160ms cycle, got %s", e.Duration())
	}
}

func TestTick_TimeoutRecorded(t *testing.T) {
	f := start(t)
	f.tick(t, controller.Snapshot{ResourceLevel: 20})

	f.clock.Advance(3 * time.Second)
	res := f.tick(t, controller.Snapshot{ResourceLevel: 20})

	if res.State != controller.StateIdle {
		t.Fatalf("expected idle, got %s", res.State)
	}
	entries := f.rec.Entries()
	if len(entries) != 1 || entries[0].Outcome != logging.OutcomeTimeout {
		t.Fatalf("expected timeout entry, got %+v", entries)
	}
	if entries[0].Reason == "" {
		t.Fatal("expected timeout reason")
	}
}

func TestTick_DisableMidCycleRecordsCancelled(t *testing.T) {
	f := start(t)
	f.tick(t, controller.Snapshot{ResourceLevel: 20})

	f.prefs.SetEnabled(false)
	f.clock.Advance(50 * time.Millisecond)
	res := f.tick(t, open(20))

	if res.State != controller.StateIdle || len(res.Effects) != 0 {
		t.Fatalf("expected silent idle, got %+v", res)
	}
	entries := f.rec.Entries()
	if len(entries) != 1 || entries[0].Outcome != logging.OutcomeCancelled || entries[0].Reason != "disabled" {
		t.Fatalf("expected cancelled entry, got %+v", entries)
	}
}

func TestTick_OfflineRecordsCancelled(t *testing.T) {
	f := start(t)
	f.tick(t, controller.Snapshot{ResourceLevel: 20})

	f.tick(t, controller.Snapshot{Offline: true})

	entries := f.rec.Entries()
	if len(entries) != 1 || entries[0].Reason != "offline" {
		t.Fatalf("expected offline cancel, got %+v", entries)
	}
}

func TestReset_CancelsOpenCycle(t *testing.T) {
	f := start(t)
	f.tick(t, controller.Snapshot{ResourceLevel: 20})

	st, err := f.orch.Reset(context.Background())
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if st.State != controller.StateIdle || st.CycleOpen {
		t.Fatalf("unexpected status %+v", st)
	}
	entries := f.rec.Entries()
	if len(entries) != 1 || entries[0].Outcome != logging.OutcomeCancelled || entries[0].Reason != "reset" {
		t.Fatalf("expected reset cancel, got %+v", entries)
	}
}

func TestReset_IdleRecordsNothing(t *testing.T) {
	f := start(t)
	if _, err := f.orch.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if len(f.rec.Entries()) != 0 {
		t.Fatal("expected no entries")
	}
}

func TestRecorderError_DoesNotFailTick(t *testing.T) {
	f := start(t)
	f.rec.err = errors.New("db locked")

	f.tick(t, controller.Snapshot{ResourceLevel: 20})
	f.clock.Advance(3 * time.Second)
	if _, err := f.orch.Tick(context.Background(), controller.Snapshot{ResourceLevel: 20}); err != nil {
		t.Fatalf("expected recorder error to be swallowed, got %v", err)
	}
}

// #endregion cycle-tests

// #region status-tests

func TestStatus_ReflectsPreferences(t *testing.T) {
	f := start(t)
	f.tick(t, controller.Snapshot{})

	st, err := f.orch.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Enabled || st.Tier.ID != "SIMPLE" || st.State != controller.StateIdle || st.Ticks != 1 {
		t.Fatalf("unexpected status %+v", st)
	}
}

// #endregion status-tests

// #region lifecycle-tests

func TestStopped_ReturnsErrStopped(t *testing.T) {
	ps := prefs.Open(prefs.NewMemoryBackend())
	o := New(controller.DefaultConfig(), ps)
	ctx, cancel := context.WithCancel(context.Background())
	go o.Run(ctx)
	cancel()
	<-o.Done()

	if _, err := o.Tick(context.Background(), controller.Snapshot{}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestShutdown_CancelsOpenCycle(t *testing.T) {
	rec := &fakeRecorder{}
	ps := prefs.Open(prefs.NewMemoryBackend())
	ps.SetEnabled(true)
	o := New(controller.DefaultConfig(), ps, WithRecorder(rec))
	ctx, cancel := context.WithCancel(context.Background())
	go o.Run(ctx)

	if _, err := o.Tick(context.Background(), controller.Snapshot{ResourceLevel: 50}); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	cancel()
	<-o.Done()

	entries := rec.Entries()
	if len(entries) != 1 || entries[0].Reason != "shutdown" {
		t.Fatalf("expected shutdown cancel, got %+v", entries)
	}
}

func TestTick_ContextCancelled(t *testing.T) {
	ps := prefs.Open(prefs.NewMemoryBackend())
	o := New(controller.DefaultConfig(), ps) // never started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Tick(ctx, controller.Snapshot{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// heldBackend blocks Save until release is closed.
type heldBackend struct {
	*prefs.MemoryBackend
	entered chan struct{}
	release chan struct{}
}

func (h *heldBackend) Save(p prefs.Preferences) error {
	h.entered <- struct{}{}
	<-h.release
	return h.MemoryBackend.Save(p)
}

func TestTick_NotBlockedBySave(t *testing.T) {
	b := &heldBackend{
		MemoryBackend: prefs.NewMemoryBackend(),
		entered:       make(chan struct{}, 1),
		release:       make(chan struct{}),
	}
	ps := prefs.Open(b)
	o := New(controller.DefaultConfig(), ps)
	ctx, cancel := context.WithCancel(context.Background())
	go o.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-o.Done()
	})

	saved := make(chan struct{})
	go func() {
		ps.SetEnabled(true)
		close(saved)
	}()
	<-b.entered

	tctx, tcancel := context.WithTimeout(context.Background(), time.Second)
	defer tcancel()
	res, err := o.Tick(tctx, controller.Snapshot{ResourceLevel: 20})
	if err != nil {
		t.Fatalf("tick waited on a preference save: %v", err)
	}
	if len(res.Effects) != 1 || res.Effects[0].Kind != controller.EffectTrigger {
		t.Fatalf("expected the new enabled flag to apply, got %+v", res.Effects)
	}

	close(b.release)
	<-saved
}

func TestConcurrentTicks_SingleTrigger(t *testing.T) {
	f := start(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	triggers := 0
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.orch.Tick(context.Background(), controller.Snapshot{ResourceLevel: 40})
			if err != nil {
				t.Errorf("Tick: %v", err)
				return
			}
			for _, e := range res.Effects {
				if e.Kind == controller.EffectTrigger {
					mu.Lock()
					triggers++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if triggers != 1 {
		t.Fatalf("expected exactly 1 trigger across racing ticks, got %d", triggers)
	}
}

// #endregion lifecycle-tests

// #region simulation-tests

func TestWithHostSim_EveryCycleAccounted(t *testing.T) {
	f := start(t)
	hcfg := hostsim.DefaultConfig()
	hcfg.LevelPerSecond = 40
	hcfg.DropRate = 0.3
	h := hostsim.New(hcfg, f.clock.Now())

	h.Drive(600, 50*time.Millisecond, func(now time.Time, snap controller.Snapshot) []controller.Effect {
		f.clock.Set(now)
		return f.tick(t, snap).Effects
	})

	st := h.Stats()
	entries := f.rec.Entries()
	var successes int
	for _, e := range entries {
		if e.Outcome == logging.OutcomeSuccess {
			successes++
		}
	}
	if successes != st.Purchases {
		t.Fatalf("expected recorded successes (%d) to match purchases (%d)", successes, st.Purchases)
	}
	// Every command but possibly the last one in flight has an outcome.
	if len(entries) != st.Commands && len(entries) != st.Commands-1 {
		t.Fatalf("expected one entry per command, entries=%d commands=%d", len(entries), st.Commands)
	}
}

// #endregion simulation-tests
