package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func recordingPolicy(maxRetries int, sleeps *[]time.Duration) Policy {
	return Policy{
		MaxRetries:    maxRetries,
		InitialDelay:  100 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return nil
		},
		Jitter: func(max time.Duration) time.Duration { return 0 },
	}
}

func TestExecuteSucceedsAfterTransientFailures(t *testing.T) {
	var sleeps []time.Duration
	policy := recordingPolicy(3, &sleeps)

	calls := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &StatusError{Code: 503}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	expected := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if fmt.Sprint(sleeps) != fmt.Sprint(expected) {
		t.Fatalf("backoff schedule mismatch: got %v, want %v", sleeps, expected)
	}
}

func TestExecuteTerminalClientErrorStopsImmediately(t *testing.T) {
	var sleeps []time.Duration
	policy := recordingPolicy(3, &sleeps)

	calls := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return &StatusError{Code: 400, Body: "bad request"}
	})
	if calls != 1 {
		t.Fatalf("terminal error must not retry, got %d calls", calls)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 400 {
		t.Fatalf("expected the 400 status error back, got %v", err)
	}
	if len(sleeps) != 0 {
		t.Fatalf("no backoff expected for a terminal error, got %v", sleeps)
	}
}

func TestExecuteExhaustsBudget(t *testing.T) {
	var sleeps []time.Duration
	policy := recordingPolicy(2, &sleeps)

	calls := 0
	cause := errors.New("connection reset")
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return cause
	})
	if calls != 3 {
		t.Fatalf("expected 3 attempts (1 + 2 retries), got %d", calls)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected an exhausted error, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("expected 3 recorded attempts, got %d", exhausted.Attempts)
	}
	if !errors.Is(err, cause) {
		t.Fatal("exhausted error should unwrap to the final failure")
	}
}

func TestExecuteRespectsContextCancellation(t *testing.T) {
	policy := Policy{
		MaxRetries:   5,
		InitialDelay: time.Millisecond,
		Jitter:       func(max time.Duration) time.Duration { return 0 },
	}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := policy.Execute(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return &StatusError{Code: 500}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt before cancellation, got %d", calls)
	}
}

func TestExecuteReportsAttempts(t *testing.T) {
	var sleeps []time.Duration
	policy := recordingPolicy(2, &sleeps)

	var attempts []Attempt
	policy.OnAttempt = func(a Attempt) { attempts = append(attempts, a) }

	calls := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &StatusError{Code: 429}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempt reports, got %d", len(attempts))
	}
	if !attempts[0].WillRetry || attempts[0].Err == nil || attempts[0].Number != 1 {
		t.Fatalf("first report should be a retryable failure: %+v", attempts[0])
	}
	if attempts[1].WillRetry || attempts[1].Err != nil || attempts[1].Number != 2 {
		t.Fatalf("second report should be the success: %+v", attempts[1])
	}
}

func TestDefaultClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Outcome
	}{
		{&StatusError{Code: 500}, OutcomeRetryable},
		{&StatusError{Code: 503}, OutcomeRetryable},
		{&StatusError{Code: 429}, OutcomeRetryable},
		{&StatusError{Code: 400}, OutcomeTerminal},
		{&StatusError{Code: 404}, OutcomeTerminal},
		{context.DeadlineExceeded, OutcomeRetryable},
		{errors.New("dial tcp: connection refused"), OutcomeRetryable},
	}
	for _, tc := range cases {
		if got := DefaultClassify(tc.err); got != tc.want {
			t.Fatalf("classify(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestDelayCapsAtMax(t *testing.T) {
	policy := Policy{
		InitialDelay:  time.Second,
		BackoffFactor: 10,
		MaxDelay:      3 * time.Second,
		Jitter:        func(max time.Duration) time.Duration { return 0 },
	}.withDefaults()
	if d := policy.delayFor(5); d != 3*time.Second {
		t.Fatalf("expected delay capped at max, got %v", d)
	}
}

func TestConstantBackoffFactorIsHonored(t *testing.T) {
	policy := Policy{
		InitialDelay:  200 * time.Millisecond,
		BackoffFactor: 1,
		MaxDelay:      time.Second,
		Jitter:        func(max time.Duration) time.Duration { return 0 },
	}.withDefaults()
	if policy.BackoffFactor != 1 {
		t.Fatalf("a factor of 1 must not be replaced, got %f", policy.BackoffFactor)
	}
	for attempt := 1; attempt <= 4; attempt++ {
		if d := policy.delayFor(attempt); d != 200*time.Millisecond {
			t.Fatalf("attempt %d: expected constant 200ms delay, got %v", attempt, d)
		}
	}
}

func TestAttemptTimeoutBoundsEachTry(t *testing.T) {
	policy := Policy{
		MaxRetries:     1,
		AttemptTimeout: 10 * time.Millisecond,
		Sleep:          func(ctx context.Context, d time.Duration) error { return nil },
		Jitter:         func(max time.Duration) time.Duration { return 0 },
	}
	calls := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected exhaustion after timed-out attempts, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both attempts to run, got %d", calls)
	}
}

func TestExecuteValueReturnsSuccessfulAttempt(t *testing.T) {
	var sleeps []time.Duration
	policy := recordingPolicy(3, &sleeps)

	calls := 0
	value, err := ExecuteValue(context.Background(), policy, func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", &StatusError{Code: 503}
		}
		return "delivered", nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if value != "delivered" {
		t.Fatalf("expected value from successful attempt, got %q", value)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}

	_, err = ExecuteValue(context.Background(), policy, func(context.Context) (string, error) {
		return "", &StatusError{Code: 400}
	})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 400 {
		t.Fatalf("expected terminal status error, got %v", err)
	}
}
