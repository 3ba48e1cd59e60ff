package orchestrator

// #region imports
import (
	"errors"
	"time"

	"github.com/danielpatrickdp/autobuy/internal/controller"
	"github.com/danielpatrickdp/autobuy/internal/logging"
	"github.com/danielpatrickdp/autobuy/internal/tier"
)

// #endregion

// #region errors

// ErrStopped is returned once Run has exited.
var ErrStopped = errors.New("orchestrator stopped")

// #endregion

// #region recorder

// Recorder receives every finished cycle. logging.Journal implements it.
type Recorder interface {
	Record(logging.CycleEntry) error
}

// #endregion

// #region results

// Result is the outcome of one tick.
type Result struct {
	State   controller.State
	Effects []controller.Effect
	CycleID string // most recent cycle; empty before the first trigger
}

// Status describes the controller between ticks.
type Status struct {
	State          controller.State
	StateEnteredAt time.Time
	LastSuccessAt  time.Time
	Enabled        bool
	Tier           tier.Tier
	CycleID        string
	CycleOpen      bool
	Ticks          uint64
}

// #endregion

// #region options

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces time.Now, e.g. with a simulated clock.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRecorder sets where finished cycles are written.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.rec = r }
}

// WithIDs replaces the cycle id generator.
func WithIDs(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// #endregion

// #region requests

type requestKind int

const (
	reqTick requestKind = iota
	reqReset
	reqStatus
)

type request struct {
	kind  requestKind
	snap  controller.Snapshot
	reply chan response
}

type response struct {
	result Result
	status Status
}

// #endregion
