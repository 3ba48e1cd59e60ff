package logging

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// #region row

// timeLayout is fixed width so finished_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// cycleRow is the storage shape of CycleEntry: times as UTC text,
// empty reason as NULL.
type cycleRow struct {
	ID          int64          `db:"id"`
	CycleID     string         `db:"cycle_id"`
	Tier        string         `db:"tier"`
	Target      int            `db:"target"`
	Outcome     string         `db:"outcome"`
	Reason      sql.NullString `db:"reason"`
	TriggeredAt string         `db:"triggered_at"`
	FinishedAt  string         `db:"finished_at"`
}

func toRow(e CycleEntry) cycleRow {
	return cycleRow{
		CycleID:     e.CycleID,
		Tier:        e.Tier,
		Target:      e.Target,
		Outcome:     string(e.Outcome),
		Reason:      sql.NullString{String: e.Reason, Valid: e.Reason != ""},
		TriggeredAt: e.TriggeredAt.UTC().Format(timeLayout),
		FinishedAt:  e.FinishedAt.UTC().Format(timeLayout),
	}
}

func (r cycleRow) entry() (CycleEntry, error) {
	e := CycleEntry{
		ID:      r.ID,
		CycleID: r.CycleID,
		Tier:    r.Tier,
		Target:  r.Target,
		Outcome: Outcome(r.Outcome),
		Reason:  r.Reason.String,
	}
	var err error
	if e.TriggeredAt, err = time.Parse(timeLayout, r.TriggeredAt); err != nil {
		return CycleEntry{}, fmt.Errorf("cycle %s triggered_at: %w", r.CycleID, err)
	}
	if e.FinishedAt, err = time.Parse(timeLayout, r.FinishedAt); err != nil {
		return CycleEntry{}, fmt.Errorf("cycle %s finished_at: %w", r.CycleID, err)
	}
	return e, nil
}

// #endregion row

// #region log-cycle
// LogCycle writes a finished cycle to the cycle_log table.
func LogCycle(db *sqlx.DB, entry CycleEntry) error {
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now().UTC()
	}
	if entry.TriggeredAt.IsZero() {
		entry.TriggeredAt = entry.FinishedAt
	}

	_, err := db.NamedExec(
		`INSERT INTO cycle_log (cycle_id, tier, target, outcome, reason, triggered_at, finished_at)
		 VALUES (:cycle_id, :tier, :target, :outcome, :reason, :triggered_at, :finished_at)`,
		toRow(entry),
	)
	if err != nil {
		return fmt.Errorf("log cycle: %w", err)
	}
	return nil
}

// #endregion log-cycle

// #region list-cycles
// ListCycles returns the most recent cycles, newest first.
func ListCycles(db *sqlx.DB, limit int) ([]CycleEntry, error) {
	var rows []cycleRow
	err := db.Select(&rows,
		`SELECT id, cycle_id, tier, target, outcome, reason, triggered_at, finished_at
		 FROM cycle_log ORDER BY finished_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	entries := make([]CycleEntry, len(rows))
	for i, r := range rows {
		if entries[i], err = r.entry(); err != nil {
			return nil, fmt.Errorf("list cycles: %w", err)
		}
	}
	return entries, nil
}

// CountByOutcome returns how many cycles ended with each outcome.
func CountByOutcome(db *sqlx.DB) (map[Outcome]int, error) {
	var rows []struct {
		Outcome string `db:"outcome"`
		N       int    `db:"n"`
	}
	if err := db.Select(&rows, `SELECT outcome, COUNT(*) AS n FROM cycle_log GROUP BY outcome`); err != nil {
		return nil, fmt.Errorf("count cycles: %w", err)
	}
	counts := make(map[Outcome]int, len(rows))
	for _, r := range rows {
		counts[Outcome(r.Outcome)] = r.N
	}
	return counts, nil
}

// #endregion list-cycles

// #region journal
// Journal records cycles into a database.
type Journal struct {
	db *sqlx.DB
}

// NewJournal returns a journal writing to db.
func NewJournal(db *sqlx.DB) *Journal {
	return &Journal{db: db}
}

// Record writes entry.
func (j *Journal) Record(entry CycleEntry) error {
	return LogCycle(j.db, entry)
}

// #endregion journal
