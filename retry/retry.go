// Package retry wraps fallible operations with bounded retries, exponential
// backoff, jitter, and per-attempt timeouts. Transient failures (network
// errors, timeouts, 5xx, 429) are retried; other client errors are terminal.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// Outcome describes what a classifier decided about an attempt error.
type Outcome int

const (
	// OutcomeRetryable means the failure is transient and worth retrying.
	OutcomeRetryable Outcome = iota
	// OutcomeTerminal means retrying cannot succeed, stop immediately.
	OutcomeTerminal
)

// StatusError carries an HTTP status code so the classifier can distinguish
// transient server failures from terminal client errors.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "retry: status error"
	}
	if e.Body != "" {
		return fmt.Sprintf("retry: unexpected status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("retry: unexpected status %d", e.Code)
}

// ExhaustedError reports that every allowed attempt failed. It unwraps to
// the final attempt's error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	if e == nil {
		return "retry: attempts exhausted"
	}
	return fmt.Sprintf("retry: %d attempts exhausted: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Last
}

// Attempt is reported to the OnAttempt hook after each try.
type Attempt struct {
	// Number is 1-based.
	Number int
	// Err is nil when the attempt succeeded.
	Err error
	// Delay is how long the policy will wait before the next attempt.
	// Zero when WillRetry is false.
	Delay time.Duration
	// WillRetry reports whether another attempt follows this one.
	WillRetry bool
}

// Policy configures retry behavior. The zero value is usable: timing fields
// left at zero fall back to DefaultPolicy values, while zero MaxRetries
// means a single attempt and zero AttemptTimeout disables the per-attempt
// deadline.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt, so the
	// operation runs at most MaxRetries+1 times.
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration
	// JitterMax adds a uniform random duration in [0, JitterMax) to every
	// backoff delay so synchronized callers fan out.
	JitterMax time.Duration
	// AttemptTimeout bounds each individual attempt. Zero disables the
	// per-attempt deadline.
	AttemptTimeout time.Duration

	// Classify decides whether an attempt error is worth retrying.
	// Nil means DefaultClassify.
	Classify func(error) Outcome
	// OnAttempt observes every attempt, success or failure.
	OnAttempt func(Attempt)

	// Sleep and Jitter are injectable for tests.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func(max time.Duration) time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     3,
		InitialDelay:   500 * time.Millisecond,
		BackoffFactor:  2.0,
		MaxDelay:       10 * time.Second,
		JitterMax:      250 * time.Millisecond,
		AttemptTimeout: 10 * time.Second,
	}
}

// Execute runs op until it succeeds, a terminal error occurs, the context is
// canceled, or the attempt budget is spent. It returns nil on success, the
// terminal error as-is, or an *ExhaustedError wrapping the final failure.
func (p Policy) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if op == nil {
		return fmt.Errorf("retry: operation is required")
	}
	p = p.withDefaults()

	maxAttempts := p.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = p.runAttempt(ctx, op)
		if lastErr == nil {
			p.report(Attempt{Number: attempt})
			return nil
		}

		if p.Classify(lastErr) == OutcomeTerminal {
			p.report(Attempt{Number: attempt, Err: lastErr})
			return lastErr
		}
		if attempt == maxAttempts {
			p.report(Attempt{Number: attempt, Err: lastErr})
			break
		}

		delay := p.delayFor(attempt)
		p.report(Attempt{Number: attempt, Err: lastErr, Delay: delay, WillRetry: true})
		if err := p.Sleep(ctx, delay); err != nil {
			return err
		}
	}
	return &ExhaustedError{Attempts: maxAttempts, Last: lastErr}
}

// ExecuteValue runs op with the same retry semantics as Execute and returns
// the value of the successful attempt.
func ExecuteValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Execute(ctx, func(ctx context.Context) error {
		value, err := op(ctx)
		if err != nil {
			return err
		}
		out = value
		return nil
	})
	return out, err
}

func (p Policy) runAttempt(ctx context.Context, op func(ctx context.Context) error) error {
	if p.AttemptTimeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	return op(attemptCtx)
}

// delayFor computes the backoff before retrying attempt+1, jitter included.
func (p Policy) delayFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := float64(p.InitialDelay)
	multiplier := math.Pow(p.BackoffFactor, float64(attempt-1))
	next := time.Duration(base * multiplier)
	if next < 0 || next > p.MaxDelay {
		next = p.MaxDelay
	}
	if p.JitterMax > 0 {
		next += p.Jitter(p.JitterMax)
	}
	return next
}

func (p Policy) report(a Attempt) {
	if p.OnAttempt != nil {
		p.OnAttempt(a)
	}
}

func (p Policy) withDefaults() Policy {
	defaults := DefaultPolicy()
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = defaults.InitialDelay
	}
	if p.BackoffFactor < 1 {
		p.BackoffFactor = defaults.BackoffFactor
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaults.MaxDelay
	}
	if p.Classify == nil {
		p.Classify = DefaultClassify
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	if p.Jitter == nil {
		p.Jitter = randomJitter
	}
	return p
}

// DefaultClassify treats network errors, timeouts, HTTP 5xx, and HTTP 429 as
// retryable. Any other HTTP 4xx is terminal. Errors with no status attached
// default to retryable since transport failures usually are.
func DefaultClassify(err error) Outcome {
	if err == nil {
		return OutcomeTerminal
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code >= 500:
			return OutcomeRetryable
		case statusErr.Code == http.StatusTooManyRequests:
			return OutcomeRetryable
		case statusErr.Code >= 400:
			return OutcomeTerminal
		}
		return OutcomeRetryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeRetryable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return OutcomeRetryable
	}
	return OutcomeRetryable
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}
