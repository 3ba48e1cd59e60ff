package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/autobuy/internal/controller"
	"github.com/danielpatrickdp/autobuy/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	quiet := flag.Bool("quiet", false, "print only the summary")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--quiet]")
		os.Exit(2)
	}
	os.Exit(run(*fixturePath, *quiet))
}

// #endregion main

// #region run

func run(path string, quiet bool) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	results, diffs, err := f.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if f.Description != "" {
		fmt.Printf("Fixture: %s\n\n", f.Description)
	}
	if !quiet {
		printTickTable(results)
	}

	s := replay.Summarize(results)
	fmt.Printf("\n%d ticks: %d triggers, %d interactions, %d success, %d timeout, %d vanished, %d closes, %d cancelled, final=%s\n",
		s.Ticks, s.Triggers, s.Interactions, s.Successes, s.Timeouts, s.Vanished, s.Closes, s.Cancelled, s.FinalState)

	if len(diffs) > 0 {
		fmt.Println("\nMISMATCH:")
		for _, d := range diffs {
			fmt.Printf("  %s\n", d)
		}
		return 1
	}
	fmt.Println("\nOK")
	return 0
}

func printTickTable(results []replay.TickResult) {
	fmt.Printf("%8s  %-16s  %-16s  %s\n", "At", "Before", "After", "Effects")
	fmt.Printf("%8s+-%-16s+-%-16s+-%s\n", "--------", "----------------", "----------------", "-------")
	for _, r := range results {
		fmt.Printf("%8s  %-16s  %-16s  %s\n", r.At, r.Before, r.After, describe(r.Effects))
	}
}

func describe(effects []controller.Effect) string {
	parts := make([]string, 0, len(effects))
	for _, e := range effects {
		switch e.Kind {
		case controller.EffectTrigger:
			parts = append(parts, fmt.Sprintf("trigger(%s %s)", e.Command, e.Tier.ID))
		case controller.EffectInteract:
			parts = append(parts, fmt.Sprintf("interact(handle=%d slot=%d)", e.Handle, e.Target))
		case controller.EffectNotify:
			parts = append(parts, fmt.Sprintf("notify(%s)", e.Notice))
		default:
			parts = append(parts, string(e.Kind))
		}
	}
	return strings.Join(parts, ", ")
}

// #endregion run
