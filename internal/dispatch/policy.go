package dispatch

import (
	"errors"
	"time"

	"papersum/internal/services"
)

const (
	defaultRetryBudget    = 120 * time.Second
	defaultBackoff        = 10 * time.Second
	defaultMaxConcurrency = 500
)

// Policy is the immutable retry configuration shared by every retrier of a run.
type Policy struct {
	RetryBudget time.Duration
	Backoff     time.Duration
	retryable   map[services.Kind]struct{}
}

// NewPolicy builds a policy that retries the given kinds. With no kinds the
// policy retries rate-limit rejections only.
func NewPolicy(budget, backoff time.Duration, kinds ...services.Kind) (Policy, error) {
	if budget < 0 {
		return Policy{}, errors.New("retry budget must not be negative")
	}
	if backoff < 0 {
		return Policy{}, errors.New("backoff delay must not be negative")
	}
	if len(kinds) == 0 {
		kinds = []services.Kind{services.KindRateLimited}
	}
	set := make(map[services.Kind]struct{}, len(kinds))
	for _, kind := range kinds {
		switch kind {
		case services.KindCanceled, services.KindInternal:
			return Policy{}, errors.New("canceled and internal failures cannot be retried")
		}
		set[kind] = struct{}{}
	}
	return Policy{RetryBudget: budget, Backoff: backoff, retryable: set}, nil
}

// DefaultPolicy mirrors the stock configuration: retry rate limits for two
// minutes, sleeping ten seconds between attempts.
func DefaultPolicy() Policy {
	policy, _ := NewPolicy(defaultRetryBudget, defaultBackoff)
	return policy
}

// Retryable reports whether failures of the given kind may be retried.
func (p Policy) Retryable(kind services.Kind) bool {
	_, ok := p.retryable[kind]
	return ok
}

// RetryableKinds lists the kinds the policy retries.
func (p Policy) RetryableKinds() []services.Kind {
	out := make([]services.Kind, 0, len(p.retryable))
	for _, kind := range services.Kinds() {
		if p.Retryable(kind) {
			out = append(out, kind)
		}
	}
	return out
}
