package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"papersum/internal/logging"
	"papersum/internal/services"
)

// Attempter runs one item to a terminal outcome. *Retrier satisfies it.
type Attempter interface {
	Attempt(ctx context.Context, item WorkItem) Outcome
}

// Options configures a Dispatcher.
type Options struct {
	MaxConcurrency int
	Logger         *slog.Logger
}

// Dispatcher fans items out to an Attempter with bounded concurrency. It only
// schedules and collects; classification and retries belong to the Attempter.
type Dispatcher struct {
	attempter      Attempter
	maxConcurrency int
	logger         *slog.Logger
}

// New constructs a dispatcher. A non-positive MaxConcurrency falls back to the
// default bound.
func New(attempter Attempter, opts Options) *Dispatcher {
	limit := opts.MaxConcurrency
	if limit <= 0 {
		limit = defaultMaxConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		attempter:      attempter,
		maxConcurrency: limit,
		logger:         logging.NewComponentLogger(logger, "dispatch"),
	}
}

// MaxConcurrency returns the configured bound.
func (d *Dispatcher) MaxConcurrency() int { return d.maxConcurrency }

// Run submits every item exactly once and returns a channel of outcomes in
// completion order. The channel is closed after the last outcome. At most
// MaxConcurrency attempts are in flight at any time; submission of further
// items waits for a free slot.
//
// If ctx is canceled, items that have not been admitted yet still receive a
// canceled failure outcome, so the channel always yields len(items) values.
func (d *Dispatcher) Run(ctx context.Context, items []WorkItem) <-chan Outcome {
	results := make(chan Outcome, len(items))
	if len(items) == 0 {
		close(results)
		return results
	}

	limit := d.poolSize(len(items))
	slots := semaphore.NewWeighted(int64(limit))
	d.logger.Debug("dispatching items",
		logging.Int("items", len(items)),
		logging.Int("pool_size", limit),
	)

	go func() {
		defer close(results)
		var wg sync.WaitGroup
		for _, item := range items {
			if err := slots.Acquire(ctx, 1); err != nil {
				results <- Failure(item, services.NewError(services.KindCanceled, "dispatch", "not started", err), 0, 0)
				continue
			}
			wg.Add(1)
			go func(item WorkItem) {
				defer wg.Done()
				defer slots.Release(1)
				results <- d.attempter.Attempt(ctx, item)
			}(item)
		}
		wg.Wait()
	}()

	return results
}

// Collect runs items and drains every outcome.
func (d *Dispatcher) Collect(ctx context.Context, items []WorkItem) []Outcome {
	outcomes := make([]Outcome, 0, len(items))
	for outcome := range d.Run(ctx, items) {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (d *Dispatcher) poolSize(items int) int {
	if items < d.maxConcurrency {
		return items
	}
	return d.maxConcurrency
}
