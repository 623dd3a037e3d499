package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"papersum/internal/logging"
	"papersum/internal/services"
)

// Retrier wraps a Processor with a time-bounded retry loop. Retryable failures
// are retried after a fixed backoff until the policy's budget, measured from
// the first attempt, is spent.
type Retrier struct {
	processor Processor
	policy    Policy
	logger    *slog.Logger
	observer  Observer
	now       func() time.Time
	sleeper   func(context.Context, time.Duration) error
}

// RetrierOption customizes a Retrier.
type RetrierOption func(*Retrier)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) RetrierOption {
	return func(r *Retrier) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSleeper overrides how backoff sleeps are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) RetrierOption {
	return func(r *Retrier) {
		if sleeper != nil {
			r.sleeper = sleeper
		}
	}
}

// WithLogger sets the logger used for retry notices.
func WithLogger(logger *slog.Logger) RetrierOption {
	return func(r *Retrier) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers per-attempt callbacks.
func WithObserver(observer Observer) RetrierOption {
	return func(r *Retrier) {
		r.observer = observer
	}
}

// NewRetrier constructs a retrier around processor.
func NewRetrier(processor Processor, policy Policy, opts ...RetrierOption) *Retrier {
	r := &Retrier{
		processor: processor,
		policy:    policy,
		logger:    logging.NewNop(),
		now:       time.Now,
		sleeper:   sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attempt runs the processor for item until it succeeds, fails with a kind the
// policy does not retry, or exhausts the retry budget. The returned outcome is
// terminal.
func (r *Retrier) Attempt(ctx context.Context, item WorkItem) Outcome {
	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, r.logger)
	start := r.now()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Failure(item, services.NewError(services.KindCanceled, "dispatch", "run canceled", err), attempt-1, r.now().Sub(start))
		}

		artifact, err := r.call(ctx, item, attempt)
		if err == nil {
			return Success(item, artifact, attempt, r.now().Sub(start))
		}

		kind := services.KindOf(err)
		elapsed := r.now().Sub(start)
		if !r.policy.Retryable(kind) || elapsed >= r.policy.RetryBudget {
			return Failure(item, err, attempt, elapsed)
		}

		logger.Warn("retryable failure; backing off",
			logging.Int(logging.FieldAttempt, attempt),
			logging.String(logging.FieldKind, string(kind)),
			logging.Duration("backoff", r.policy.Backoff),
			logging.Duration("elapsed", elapsed),
			logging.String(logging.FieldEventType, "retry_backoff"),
		)
		if r.observer != nil {
			r.observer.Retrying(item, attempt, kind, r.policy.Backoff)
		}
		if err := r.sleeper(ctx, r.policy.Backoff); err != nil {
			return Failure(item, services.NewError(services.KindCanceled, "dispatch", "backoff interrupted", err), attempt, r.now().Sub(start))
		}
	}
}

// call runs one attempt under a fresh request ID.
func (r *Retrier) call(ctx context.Context, item WorkItem, attempt int) (artifact string, err error) {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	if r.observer != nil {
		r.observer.AttemptStarted(item, attempt)
	}
	began := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("processor panicked",
				logging.String(logging.FieldItemID, item.ID),
				logging.String("panic", fmt.Sprint(rec)),
				logging.String("stack", string(debug.Stack())),
			)
			artifact = ""
			err = services.NewError(services.KindInternal, "process", fmt.Sprintf("panic: %v", rec), nil)
		}
		if r.observer != nil {
			r.observer.AttemptFinished(item, attempt, time.Since(began), err)
		}
	}()
	return r.processor.Process(ctx, item)
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
