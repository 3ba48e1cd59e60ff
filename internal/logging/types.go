package logging

import "time"

// #region outcome
// Outcome is how a buy cycle ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeVanished  Outcome = "vanished"
	OutcomeCancelled Outcome = "cancelled"
)

// #endregion outcome

// #region cycle-entry
// CycleEntry is a single row in the cycle_log table.
type CycleEntry struct {
	ID          int64
	CycleID     string
	Tier        string
	Target      int
	Outcome     Outcome
	Reason      string
	TriggeredAt time.Time
	FinishedAt  time.Time
}

// Duration is the time from trigger to outcome.
func (e CycleEntry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.TriggeredAt)
}

// #endregion cycle-entry
