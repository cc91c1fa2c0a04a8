package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"
)

// Class is the coarse failure category a caller can branch on.
type Class string

const (
	ClassTimeout  Class = "timeout"
	ClassRejected Class = "rejected"
	ClassEmpty    Class = "empty"
)

// Error is returned when every strategy in the chain has failed. It carries
// the class of the last observed failure; callers treat it as a soft failure
// and skip the cycle for that source.
type Error struct {
	URL   string
	Class Class
	Last  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: all strategies failed (%s): %v", e.URL, e.Class, e.Last)
}

func (e *Error) Unwrap() error { return e.Last }

const (
	defaultMinPayload  = 512
	defaultBackoffBase = 500 * time.Millisecond
	defaultRotateAfter = 50
)

// Chain executes fetch strategies in priority order until one returns a
// usable payload.
type Chain struct {
	strategies  []Strategy
	minPayload  int
	backoffBase time.Duration
	rotateAfter int

	mu       sync.Mutex
	client   *http.Client
	requests int
}

// Option configures a Chain.
type Option func(*Chain)

// WithMinPayload sets the byte threshold below which a 200 response is
// treated as empty.
func WithMinPayload(n int) Option {
	return func(c *Chain) { c.minPayload = n }
}

// WithBackoffBase sets the base delay applied between strategies.
func WithBackoffBase(d time.Duration) Option {
	return func(c *Chain) { c.backoffBase = d }
}

// WithRotateAfter sets how many requests a connection pool serves before it
// is replaced. Rotation reduces fingerprinting; it is not a correctness
// requirement.
func WithRotateAfter(n int) Option {
	return func(c *Chain) { c.rotateAfter = n }
}

// NewChain creates a chain over the given strategies.
func NewChain(strategies []Strategy, opts ...Option) *Chain {
	c := &Chain{
		strategies:  strategies,
		minPayload:  defaultMinPayload,
		backoffBase: defaultBackoffBase,
		rotateAfter: defaultRotateAfter,
		client:      newClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newClient() *http.Client {
	return &http.Client{Transport: &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
	}}
}

// Fetch tries each strategy in order and returns the first non-trivial
// payload together with the name of the strategy that produced it.
func (c *Chain) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	lastClass := ClassEmpty
	var lastErr error = errors.New("no strategies configured")

	for i, strat := range c.strategies {
		if i > 0 {
			if err := sleepCtx(ctx, c.backoff(i)); err != nil {
				return nil, "", err
			}
		}

		target := url
		if strat.Rewrite != nil {
			target = strat.Rewrite(url)
		}

		payload, class, err := c.attempt(ctx, strat, target)
		if err == nil {
			return payload, strat.Name, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		lastClass, lastErr = class, err
	}

	return nil, "", &Error{URL: url, Class: lastClass, Last: lastErr}
}

func (c *Chain) attempt(ctx context.Context, strat Strategy, url string) ([]byte, Class, error) {
	timeout := strat.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, ClassRejected, fmt.Errorf("create request: %w", err)
	}
	for k, v := range strat.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.session().Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, ClassTimeout, fmt.Errorf("%s: %w", strat.Name, err)
		}
		return nil, ClassRejected, fmt.Errorf("%s: %w", strat.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, ClassRejected, fmt.Errorf("%s: status %d", strat.Name, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, ClassTimeout, fmt.Errorf("%s: read body: %w", strat.Name, err)
		}
		return nil, ClassRejected, fmt.Errorf("%s: read body: %w", strat.Name, err)
	}
	if len(payload) < c.minPayload {
		return nil, ClassEmpty, fmt.Errorf("%s: payload %d bytes below threshold", strat.Name, len(payload))
	}

	return payload, "", nil
}

// session returns the shared client, replacing it once it has served
// rotateAfter requests.
func (c *Chain) session() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests++
	if c.rotateAfter > 0 && c.requests > c.rotateAfter {
		if tr, ok := c.client.Transport.(*http.Transport); ok {
			tr.CloseIdleConnections()
		}
		c.client = newClient()
		c.requests = 1
	}
	return c.client
}

// backoff returns an exponential delay with jitter so concurrent sources do
// not retry in lockstep.
func (c *Chain) backoff(attempt int) time.Duration {
	d := c.backoffBase * time.Duration(1<<uint(attempt-1))
	jitter := 0.5 + rand.Float64()
	return time.Duration(float64(d) * jitter)
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

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
