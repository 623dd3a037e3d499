package ledger

import (
	"time"

	"papersum/internal/dispatch"
	"papersum/internal/services"
)

// Run is one invocation of a dispatching command.
type Run struct {
	ID         string
	Command    string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
}

// Finished reports whether FinishRun has been called for the run.
func (r Run) Finished() bool { return !r.FinishedAt.IsZero() }

// Duration returns the wall time of a finished run.
func (r Run) Duration() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// OutcomeRecord is the persisted form of a dispatch.Outcome.
type OutcomeRecord struct {
	RunID      string
	ItemID     string
	Status     dispatch.Status
	Artifact   string
	Kind       services.Kind
	Message    string
	Attempts   int
	Elapsed    time.Duration
	RecordedAt time.Time
}
