package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/autobuy/internal/controller"
	"github.com/danielpatrickdp/autobuy/internal/hostsim"
	"github.com/danielpatrickdp/autobuy/internal/replay"
	"github.com/danielpatrickdp/autobuy/internal/tier"
)

// #region main

func main() {
	outPath := flag.String("out", "", "output fixture JSON path")
	ticks := flag.Int("ticks", 400, "number of host ticks to simulate")
	interval := flag.Duration("interval", 50*time.Millisecond, "simulated time between ticks")
	seed := flag.Int64("seed", 1, "noise seed for menu latency and drops")
	rate := flag.Float64("rate", 20, "resource gained per simulated second")
	drop := flag.Float64("drop", 0.2, "share of commands the server ignores")
	tierName := flag.String("tier", string(tier.Default().ID), "tier to buy")
	flag.Parse()

	if *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --out path/to/fixture.json [--ticks N] [--interval d] [--seed n] [--rate r] [--drop p] [--tier ID]")
		os.Exit(2)
	}

	t, err := tier.Parse(*tierName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	hcfg := hostsim.DefaultConfig()
	hcfg.Seed = *seed
	hcfg.LevelPerSecond = *rate
	hcfg.DropRate = *drop

	if err := run(*outPath, *ticks, *interval, hcfg, t); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

func run(outPath string, ticks int, interval time.Duration, hcfg hostsim.Config, t tier.Tier) error {
	cfg := controller.DefaultConfig()
	ctrl := controller.New(cfg)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	host := hostsim.New(hcfg, start)

	recorded := make([]replay.Tick, 0, ticks)
	fixtureTicks := make([]replay.FixtureTick, 0, ticks)

	host.Drive(ticks, interval, func(now time.Time, snap controller.Snapshot) []controller.Effect {
		at := now.Sub(start).Truncate(time.Millisecond)
		recorded = append(recorded, replay.Tick{At: at, Snapshot: snap})
		fixtureTicks = append(fixtureTicks, replay.FixtureTick{
			AtMS:           at.Milliseconds(),
			ResourceLevel:  snap.ResourceLevel,
			SurfacePresent: snap.SurfacePresent,
			SurfaceKind:    snap.SurfaceKind,
			SurfaceHandle:  snap.SurfaceHandle,
			Offline:        snap.Offline,
		})
		return ctrl.Tick(controller.Input{Now: now, Enabled: true, Tier: t, Snapshot: snap})
	})

	// Expectations come from replaying the millisecond offsets as written.
	s := replay.Summarize(replay.Replay(cfg, replay.Start{Enabled: true, Tier: t}, recorded))

	f := &replay.Fixture{
		Description: fmt.Sprintf("hostsim seed=%d rate=%.1f/s drop=%.2f tier=%s", hcfg.Seed, hcfg.LevelPerSecond, hcfg.DropRate, t.ID),
		Start:       replay.FixtureStart{Enabled: true, Tier: string(t.ID)},
		Ticks:       fixtureTicks,
		Expected:    replay.ExpectedFrom(s),
	}
	if err := replay.WriteFixture(outPath, f); err != nil {
		return err
	}

	st := host.Stats()
	fmt.Printf("Exported %d ticks to %s\n", len(fixtureTicks), outPath)
	fmt.Printf("  commands=%d dropped=%d purchases=%d spent=%d\n", st.Commands, st.Dropped, st.Purchases, st.Spent)
	fmt.Printf("  triggers=%d success=%d timeout=%d vanished=%d\n", s.Triggers, s.Successes, s.Timeouts, s.Vanished)
	return nil
}

// #endregion export
