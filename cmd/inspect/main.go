package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielpatrickdp/autobuy/internal/bridge"
	"github.com/danielpatrickdp/autobuy/internal/logging"
	"github.com/danielpatrickdp/autobuy/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to autobuy.db (log mode)")
	addr := flag.String("addr", "", "address of a running controller (live mode)")
	last := flag.Int("last", 20, "show N most recent cycles")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if (*dbPath == "" && *addr == "") || (*dbPath != "" && *addr != "") {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/autobuy.db [--last N] [--json]")
		fmt.Fprintln(os.Stderr, "       inspect --addr host:port [--json]")
		os.Exit(2)
	}

	var err error
	if *addr != "" {
		err = runLiveMode(*addr, *jsonOut)
	} else {
		err = runLogMode(*dbPath, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region log-mode

type cycleRow struct {
	CycleID     string `json:"cycle_id"`
	Tier        string `json:"tier"`
	Target      int    `json:"target"`
	Outcome     string `json:"outcome"`
	Reason      string `json:"reason,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
	TriggeredAt string `json:"triggered_at"`
	FinishedAt  string `json:"finished_at"`
}

func runLogMode(dbPath string, last int, jsonOut bool) error {
	st, err := store.OpenExisting(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	entries, err := logging.ListCycles(st.DB(), last)
	if err != nil {
		return err
	}
	counts, err := logging.CountByOutcome(st.DB())
	if err != nil {
		return err
	}

	if jsonOut {
		rows := make([]cycleRow, len(entries))
		for i, e := range entries {
			rows[i] = cycleRow{
				CycleID:     e.CycleID,
				Tier:        e.Tier,
				Target:      e.Target,
				Outcome:     string(e.Outcome),
				Reason:      e.Reason,
				DurationMS:  e.Duration().Milliseconds(),
				TriggeredAt: e.TriggeredAt.Format(time.RFC3339),
				FinishedAt:  e.FinishedAt.Format(time.RFC3339),
			}
		}
		return printJSON(map[string]any{"cycles": rows, "outcomes": counts})
	}

	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no cycles found")
		return nil
	}
	printCycleTable(entries)
	printOutcomeTotals(counts)
	return nil
}

func printCycleTable(entries []logging.CycleEntry) {
	fmt.Printf("%-8s  %-10s  %4s  %-9s  %8s  %-16s  %s\n",
		"Cycle", "Tier", "Slot", "Outcome", "Took", "Finished", "Reason")
	fmt.Printf("%-8s+-%-10s+-%4s+-%-9s+-%8s+-%-16s+-%s\n",
		"--------", "----------", "----", "---------", "--------", "----------------", "------")
	for _, e := range entries {
		fmt.Printf("%-8s  %-10s  %4d  %-9s  %8s  %-16s  %s\n",
			shortID(e.CycleID),
			e.Tier,
			e.Target,
			e.Outcome,
			e.Duration().Round(time.Millisecond),
			humanize.Time(e.FinishedAt),
			e.Reason,
		)
	}
}

func printOutcomeTotals(counts map[logging.Outcome]int) {
	total := 0
	for _, n := range counts {
		total += n
	}
	fmt.Printf("\n%s cycles: %d success, %d timeout, %d vanished, %d cancelled\n",
		humanize.Comma(int64(total)),
		counts[logging.OutcomeSuccess],
		counts[logging.OutcomeTimeout],
		counts[logging.OutcomeVanished],
		counts[logging.OutcomeCancelled],
	)
}

// #endregion log-mode

// #region live-mode

func runLiveMode(addr string, jsonOut bool) error {
	c, err := bridge.NewClient(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := c.Status(ctx)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{
			"state":            st.State.String(),
			"state_entered_at": st.StateEnteredAt,
			"last_success_at":  st.LastSuccessAt,
			"enabled":          st.Enabled,
			"tier":             st.Tier.ID,
			"cycle_id":         st.CycleID,
			"cycle_open":       st.CycleOpen,
			"ticks":            st.Ticks,
		})
	}

	fmt.Printf("State:        %s (since %s)\n", st.State, since(st.StateEnteredAt))
	fmt.Printf("Enabled:      %t\n", st.Enabled)
	fmt.Printf("Tier:         %s (slot %d, cost %d)\n", st.Tier.Label, st.Tier.Target, st.Tier.Cost)
	fmt.Printf("Last success: %s\n", since(st.LastSuccessAt))
	if st.CycleID != "" {
		fmt.Printf("Cycle:        %s (open=%t)\n", st.CycleID, st.CycleOpen)
	}
	fmt.Printf("Ticks:        %s\n", humanize.Comma(int64(st.Ticks)))
	return nil
}

// #endregion live-mode

// #region helpers

func since(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
