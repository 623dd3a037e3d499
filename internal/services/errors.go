package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
)

// Kind is the closed set of failure classifications a processor boundary may
// report. Retry decisions branch on Kind only.
type Kind string

const (
	KindUnknown        Kind = "unknown"
	KindRateLimited    Kind = "rate_limited"
	KindTransient      Kind = "transient"
	KindInvalidRequest Kind = "invalid_request"
	KindAuth           Kind = "auth"
	KindEmptyResponse  Kind = "empty_response"
	KindIO             Kind = "io"
	KindCanceled       Kind = "canceled"
	KindInternal       Kind = "internal"
)

var allKinds = []Kind{
	KindUnknown,
	KindRateLimited,
	KindTransient,
	KindInvalidRequest,
	KindAuth,
	KindEmptyResponse,
	KindIO,
	KindCanceled,
	KindInternal,
}

// Kinds returns every known classification.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseKind converts a configuration token into a Kind.
func ParseKind(value string) (Kind, error) {
	token := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, kind := range allKinds {
		if kind == token {
			return kind, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown error kind %q", value)
}

// Error is a classified failure produced at a processor boundary.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	detail := buildDetail("", e.Op, e.Message)
	if e.Err != nil {
		return detail + ": " + e.Err.Error()
	}
	return detail
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind reports the classification as a plain string.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// NewError builds a classified error.
func NewError(kind Kind, op, message string, err error) error {
	if kind == "" {
		kind = KindUnknown
	}
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf returns the classification carried by err. Context cancellation maps
// to KindCanceled; unclassified errors are KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindUnknown
}

// Classify wraps a raw boundary error with the kind derived from its message.
// Already classified errors pass through untouched.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	kind := KindOf(err)
	if kind == KindUnknown {
		kind = ClassifyMessage(err.Error())
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// ClassifyMessage inspects a free-form error message for rate-limit signals.
func ClassifyMessage(msg string) Kind {
	if strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		return KindRateLimited
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "too many requests") || strings.Contains(lower, "rate limit") {
		return KindRateLimited
	}
	return KindUnknown
}

// KindFromHTTPStatus maps an HTTP status code onto a Kind.
func KindFromHTTPStatus(code int) Kind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusRequestTimeout, code >= http.StatusInternalServerError:
		return KindTransient
	case code >= http.StatusBadRequest:
		return KindInvalidRequest
	default:
		return KindUnknown
	}
}

// KindFromAPIStatus maps a google.rpc status string (as returned in Google API
// error bodies) onto a Kind.
func KindFromAPIStatus(status string) Kind {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "RESOURCE_EXHAUSTED":
		return KindRateLimited
	case "UNAVAILABLE", "INTERNAL", "DEADLINE_EXCEEDED", "ABORTED":
		return KindTransient
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return KindAuth
	case "INVALID_ARGUMENT", "FAILED_PRECONDITION", "NOT_FOUND", "OUT_OF_RANGE":
		return KindInvalidRequest
	case "CANCELLED":
		return KindCanceled
	default:
		return KindUnknown
	}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker. The marker should be one of the exported sentinel errors.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Configuration tags a fatal setup failure.
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
