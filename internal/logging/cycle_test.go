package logging

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Each pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE cycle_log (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle_id      TEXT NOT NULL UNIQUE,
		tier          TEXT NOT NULL,
		target        INTEGER NOT NULL,
		outcome       TEXT NOT NULL,
		reason        TEXT,
		triggered_at  TEXT NOT NULL,
		finished_at   TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-cycle-tests
func TestLogCycle_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := CycleEntry{
		CycleID:     "c1",
		Tier:        "ELITE",
		Target:      13,
		Outcome:     OutcomeSuccess,
		TriggeredAt: start,
		FinishedAt:  start.Add(180 * time.Millisecond),
	}

	if err := LogCycle(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ListCycles(db, 10)
	if err != nil {
		t.Fatalf("ListCycles: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].CycleID != "c1" || got[0].Outcome != OutcomeSuccess || got[0].Target != 13 {
		t.Errorf("unexpected entry %+v", got[0])
	}
	if got[0].Duration() != 180*time.Millisecond {
		t.Errorf("expected 180ms duration, got %s", got[0].Duration())
	}
}

func TestLogCycle_ZeroFinishedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	if err := LogCycle(db, CycleEntry{CycleID: "c2", Tier: "SIMPLE", Outcome: OutcomeTimeout}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := ListCycles(db, 1)
	if got[0].FinishedAt.Before(before) {
		t.Error("expected auto-filled finished_at to be >= test start time")
	}
	if !got[0].TriggeredAt.Equal(got[0].FinishedAt) {
		t.Error("expected triggered_at to default to finished_at")
	}
}

func TestLogCycle_EmptyReasonIsNull(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	LogCycle(db, CycleEntry{CycleID: "c3", Tier: "SIMPLE", Outcome: OutcomeVanished})

	var n int
	db.Get(&n, `SELECT COUNT(*) FROM cycle_log WHERE reason IS NULL`)
	if n != 1 {
		t.Errorf("expected NULL reason for empty string, got %d null rows", n)
	}
}

func TestLogCycle_DuplicateID(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	e := CycleEntry{CycleID: "dup", Tier: "SIMPLE", Outcome: OutcomeSuccess}
	if err := LogCycle(db, e); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := LogCycle(db, e); err == nil {
		t.Fatal("expected unique violation")
	}
}

func TestLogCycle_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	if err := LogCycle(db, CycleEntry{CycleID: "c4", Outcome: OutcomeSuccess}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-cycle-tests

// #region list-tests
func TestListCycles_NewestFirstAndLimit(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		LogCycle(db, CycleEntry{
			CycleID:    id,
			Tier:       "SIMPLE",
			Outcome:    OutcomeSuccess,
			FinishedAt: start.Add(time.Duration(i) * time.Second),
		})
	}

	got, err := ListCycles(db, 2)
	if err != nil {
		t.Fatalf("ListCycles: %v", err)
	}
	if len(got) != 2 || got[0].CycleID != "c" || got[1].CycleID != "b" {
		t.Fatalf("unexpected order %+v", got)
	}
}

func TestListCycles_SubSecondOrder(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	LogCycle(db, CycleEntry{CycleID: "whole", Tier: "SIMPLE", Outcome: OutcomeSuccess, FinishedAt: start})
	LogCycle(db, CycleEntry{CycleID: "half", Tier: "SIMPLE", Outcome: OutcomeSuccess, FinishedAt: start.Add(500 * time.Millisecond)})

	got, err := ListCycles(db, 2)
	if err != nil {
		t.Fatalf("ListCycles: %v", err)
	}
	if len(got) != 2 || got[0].CycleID != "half" {
		t.Fatalf("expected newest sub-second row first, got %+v", got)
	}
}

func TestListCycles_BadTimestamp(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	_, err := db.Exec(`INSERT INTO cycle_log (cycle_id, tier, target, outcome, triggered_at, finished_at)
		VALUES ('broken', 'SIMPLE', 11, 'success', 'yesterday', 'yesterday')`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := ListCycles(db, 10); err == nil {
		t.Fatal("expected error for unparseable timestamp")
	}
}

func TestCountByOutcome(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	j := NewJournal(db)
	j.Record(CycleEntry{CycleID: "1", Tier: "SIMPLE", Outcome: OutcomeSuccess})
	j.Record(CycleEntry{CycleID: "2", Tier: "SIMPLE", Outcome: OutcomeSuccess})
	j.Record(CycleEntry{CycleID: "3", Tier: "SIMPLE", Outcome: OutcomeTimeout})

	counts, err := CountByOutcome(db)
	if err != nil {
		t.Fatalf("CountByOutcome: %v", err)
	}
	if counts[OutcomeSuccess] != 2 || counts[OutcomeTimeout] != 1 || counts[OutcomeCancelled] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

// #endregion list-tests
