package dispatch

import (
	"context"
	"time"

	"papersum/internal/services"
)

// WorkItem is one unit of input. ID is the opaque identifier used to derive the
// output location; Locator is whatever the processor needs to find the input.
type WorkItem struct {
	ID      string
	Locator string
}

// Status is the terminal state of a work item.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Outcome is the terminal result for one WorkItem. Exactly one Outcome is
// produced per dispatched item.
type Outcome struct {
	Item     WorkItem
	Status   Status
	Artifact string
	Kind     services.Kind
	Message  string
	Attempts int
	Elapsed  time.Duration
	Err      error
}

// Succeeded reports whether the outcome is a success.
func (o Outcome) Succeeded() bool { return o.Status == StatusSucceeded }

// Success builds a successful outcome pointing at the written artifact.
func Success(item WorkItem, artifact string, attempts int, elapsed time.Duration) Outcome {
	return Outcome{
		Item:     item,
		Status:   StatusSucceeded,
		Artifact: artifact,
		Attempts: attempts,
		Elapsed:  elapsed,
	}
}

// Failure builds a terminal failure from the last error observed.
func Failure(item WorkItem, err error, attempts int, elapsed time.Duration) Outcome {
	out := Outcome{
		Item:     item,
		Status:   StatusFailed,
		Kind:     services.KindOf(err),
		Attempts: attempts,
		Elapsed:  elapsed,
		Err:      err,
	}
	if err != nil {
		out.Message = err.Error()
	}
	return out
}

// Processor performs the external call for a single item and returns the
// artifact location on success. Errors should be classified with
// services.NewError or services.Classify at the boundary.
type Processor interface {
	Process(ctx context.Context, item WorkItem) (string, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, item WorkItem) (string, error)

// Process calls f(ctx, item).
func (f ProcessorFunc) Process(ctx context.Context, item WorkItem) (string, error) {
	return f(ctx, item)
}

// Observer receives per-attempt callbacks. Implementations must be safe for
// concurrent use.
type Observer interface {
	AttemptStarted(item WorkItem, attempt int)
	AttemptFinished(item WorkItem, attempt int, elapsed time.Duration, err error)
	Retrying(item WorkItem, attempt int, kind services.Kind, delay time.Duration)
}
