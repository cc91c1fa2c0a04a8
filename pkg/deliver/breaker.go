package deliver

import (
	"errors"
	"sync"
	"time"
)

// BreakerState is the circuit breaker position.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// ErrBreakerOpen is returned by Allow while the breaker refuses calls.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// Breaker stops calling a failing target for a cool-down period. After the
// cool-down it permits exactly one trial call; the trial's outcome decides
// whether the circuit closes again.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration

	state       BreakerState
	failures    int
	lastFailure time.Time

	now func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(failureThreshold int, cooldown time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{
		threshold: failureThreshold,
		cooldown:  cooldown,
		state:     StateClosed,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed. In Open state it fails without
// any network attempt until the cool-down elapses, at which point a single
// half-open trial is handed out.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateHalfOpen:
		// A trial is already in flight.
		return ErrBreakerOpen
	default:
		if b.now().Sub(b.lastFailure) < b.cooldown {
			return ErrBreakerOpen
		}
		b.state = StateHalfOpen
		return nil
	}
}

// OnSuccess closes the circuit and resets the failure count.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
}

// OnFailure records a failed call. A failed half-open trial reopens the
// circuit immediately; in Closed state the circuit opens once the threshold
// is reached.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()

	if b.state == StateHalfOpen || b.failures >= b.threshold {
		b.state = StateOpen
	}
}

// State returns the current breaker position.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
