package deliver

import (
	"context"
	"fmt"
	"time"
)

// ErrKind classifies a delivery failure.
type ErrKind string

const (
	ErrTransient   ErrKind = "transient"
	ErrRateLimited ErrKind = "rate_limited"
	ErrPermanent   ErrKind = "permanent"
)

// Error is a classified delivery failure. Only transient and rate-limited
// errors are retried; permanent errors surface immediately.
type Error struct {
	Kind       ErrKind
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == ErrRateLimited && e.RetryAfter > 0 {
		return fmt.Sprintf("delivery %s (retry after %s): %v", e.Kind, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("delivery %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Target posts one formatted message to an external channel.
type Target interface {
	Name() string
	Send(ctx context.Context, destination, text, imageURL string) error
}
