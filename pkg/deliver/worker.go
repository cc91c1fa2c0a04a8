package deliver

import (
	"context"
	"errors"
	"sync"
	"time"
)

// HealthRecorder receives delivery outcomes. Implemented by the process
// health monitor; nil disables recording.
type HealthRecorder interface {
	RecordDeliverySuccess()
	RecordDeliveryFailure(kind string)
}

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
	defaultFactor     = 2.0
	defaultThrottle   = 6 * time.Second
)

// Worker posts formatted payloads to a single delivery target with retry,
// backoff, rate limiting and circuit breaking. Deliveries are serialized:
// the inter-delivery throttle is global across all poll loops.
type Worker struct {
	target      Target
	destination string
	breaker     *Breaker
	health      HealthRecorder

	maxRetries int
	baseDelay  time.Duration
	factor     float64
	throttle   time.Duration

	sendMu   sync.Mutex
	lastSend time.Time
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithRetries sets the retry budget and backoff curve.
func WithRetries(max int, base time.Duration, factor float64) WorkerOption {
	return func(w *Worker) {
		w.maxRetries = max
		w.baseDelay = base
		w.factor = factor
	}
}

// WithThrottle sets the minimum delay between consecutive deliveries.
func WithThrottle(d time.Duration) WorkerOption {
	return func(w *Worker) { w.throttle = d }
}

// WithHealth attaches a health recorder.
func WithHealth(h HealthRecorder) WorkerOption {
	return func(w *Worker) { w.health = h }
}

// NewWorker creates a delivery worker for one target and destination.
func NewWorker(target Target, destination string, breaker *Breaker, opts ...WorkerOption) *Worker {
	w := &Worker{
		target:      target,
		destination: destination,
		breaker:     breaker,
		maxRetries:  defaultMaxRetries,
		baseDelay:   defaultBaseDelay,
		factor:      defaultFactor,
		throttle:    defaultThrottle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Deliver posts one message. Transient and rate-limited failures are retried
// with exponential backoff; an explicit retry-after overrides the computed
// delay when larger. Permanent failures return immediately.
func (w *Worker) Deliver(ctx context.Context, text, imageURL string) error {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	if wait := w.throttle - time.Since(w.lastSend); wait > 0 {
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if err := w.breaker.Allow(); err != nil {
			w.recordFailure("breaker_open")
			return &Error{Kind: ErrTransient, Err: err}
		}

		err := w.target.Send(ctx, w.destination, text, imageURL)
		if err == nil {
			w.breaker.OnSuccess()
			if w.health != nil {
				w.health.RecordDeliverySuccess()
			}
			w.lastSend = time.Now()
			return nil
		}

		w.breaker.OnFailure()
		kind, retryAfter := classify(err)
		w.recordFailure("delivery_" + string(kind))

		if kind == ErrPermanent {
			return err
		}

		lastErr = err
		if attempt == w.maxRetries {
			break
		}

		delay := backoffDelay(w.baseDelay, w.factor, attempt)
		if kind == ErrRateLimited && retryAfter > delay {
			delay = retryAfter
		}
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}

func (w *Worker) recordFailure(kind string) {
	if w.health != nil {
		w.health.RecordDeliveryFailure(kind)
	}
}

func classify(err error) (ErrKind, time.Duration) {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Kind, dErr.RetryAfter
	}
	return ErrTransient, 0
}

func backoffDelay(base time.Duration, factor float64, attempt int) time.Duration {
	d := float64(base)
	for i := 0; i < attempt; i++ {
		d *= factor
	}
	return time.Duration(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
