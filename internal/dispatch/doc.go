// Package dispatch runs a flat list of independent work items through an
// external processor with bounded concurrency and rate-limit retries.
//
// Three pieces cooperate:
//
//   - Processor: the external call for one item (summarize a PDF, download a
//     link). It returns an artifact location or a classified error.
//   - Retrier: wraps a Processor. Failures whose services.Kind is in the
//     Policy's retryable set are retried after a fixed backoff until the retry
//     budget, measured from the first attempt, is spent. Everything else is
//     terminal after one attempt.
//   - Dispatcher: admits at most MaxConcurrency retrier loops at a time and
//     streams one Outcome per item in completion order.
//
// Invariants: every submitted item yields exactly one Outcome; attempts of a
// single item are strictly sequential; the semaphore is the only state shared
// between goroutines.
//
// There is no implicit run deadline. Callers that want one must cancel the
// context they pass to Run; unadmitted and in-flight items then finish with a
// canceled failure.
package dispatch
