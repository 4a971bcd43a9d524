// Package dispatch fans an accepted payment event out to downstream senders
// concurrently. Every sender runs under a retry policy, every outcome is
// collected, and a sender failure never propagates back to the webhook ack.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-payments/classifier"
	"github.com/goliatone/go-payments/core"
	"github.com/goliatone/go-payments/retry"
)

// Delivery is the unit of work handed to each sender: the parsed event plus
// the product detection computed once for the whole fan-out.
type Delivery struct {
	Event     core.ParsedEvent
	Detection classifier.Detection
}

// Sender pushes a delivery to one downstream system.
type Sender interface {
	Name() string
	Send(ctx context.Context, delivery Delivery) error
}

// Event types routed to the full sender set. Everything else still reaches
// persistence-only senders so failed and authorized payments leave a trail.
const (
	EventPaymentCaptured   = "payment.captured"
	EventPaymentFailed     = "payment.failed"
	EventPaymentAuthorized = "payment.authorized"
)

type Dispatcher struct {
	senders    []Sender
	persistent map[string]bool
	classifier *classifier.Classifier
	policy     retry.Policy
	logger     glog.Logger
}

type Option func(*Dispatcher)

// WithRetryPolicy overrides the retry policy applied to every sender.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(d *Dispatcher) {
		d.policy = policy
	}
}

func WithClassifier(c *classifier.Classifier) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.classifier = c
		}
	}
}

func WithLogger(logger glog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = glog.Ensure(logger)
	}
}

// WithPersistentSender marks a sender by name as persistence-style: it
// receives every event type, not just captured payments.
func WithPersistentSender(name string) Option {
	return func(d *Dispatcher) {
		d.persistent[strings.TrimSpace(name)] = true
	}
}

func New(senders []Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		senders:    senders,
		persistent: map[string]bool{},
		classifier: classifier.New(),
		policy:     retry.DefaultPolicy(),
		logger:     glog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Dispatch classifies the payment once and runs every routed sender in its
// own goroutine, returning one result per sender. It never returns an error:
// failures are values in the result slice.
func (d *Dispatcher) Dispatch(ctx context.Context, event core.ParsedEvent) []core.DispatchResult {
	if d == nil || len(d.senders) == 0 {
		return nil
	}

	delivery := Delivery{
		Event:     event,
		Detection: d.classifier.Classify(event.Payment),
	}
	targets := d.route(event.Type)
	if len(targets) == 0 {
		return nil
	}

	results := make([]core.DispatchResult, len(targets))
	var wg sync.WaitGroup
	for i, sender := range targets {
		wg.Add(1)
		go func(i int, sender Sender) {
			defer wg.Done()
			results[i] = d.runSender(ctx, sender, delivery)
		}(i, sender)
	}
	wg.Wait()
	return results
}

// route selects which senders receive this event type. Captured payments go
// everywhere; every other type only reaches persistence-style senders.
func (d *Dispatcher) route(eventType string) []Sender {
	if eventType == EventPaymentCaptured {
		return d.senders
	}
	targets := make([]Sender, 0, len(d.senders))
	for _, sender := range d.senders {
		if sender == nil {
			continue
		}
		if d.persistent[sender.Name()] {
			targets = append(targets, sender)
		}
	}
	return targets
}

func (d *Dispatcher) runSender(ctx context.Context, sender Sender, delivery Delivery) (result core.DispatchResult) {
	result = core.DispatchResult{Sender: "unknown"}
	if sender != nil {
		result.Sender = sender.Name()
	}
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("dispatch: sender %q panicked: %v", result.Sender, r)
			d.logger.Error("sender panicked", "sender", result.Sender, "panic", fmt.Sprint(r))
		}
	}()
	if sender == nil {
		result.Err = fmt.Errorf("dispatch: sender is nil")
		return result
	}

	policy := d.policy
	baseHook := policy.OnAttempt
	policy.OnAttempt = func(a retry.Attempt) {
		result.Attempts = a.Number
		if a.WillRetry {
			d.logger.Warn("sender attempt failed, retrying",
				"sender", result.Sender,
				"attempt", a.Number,
				"delay", a.Delay.String(),
				"error", a.Err.Error(),
			)
		}
		if baseHook != nil {
			baseHook(a)
		}
	}

	result.Err = policy.Execute(ctx, func(ctx context.Context) error {
		return sender.Send(ctx, delivery)
	})
	if result.Attempts == 0 {
		result.Attempts = 1
	}
	if result.Err != nil {
		d.logger.Error("sender delivery failed",
			"sender", result.Sender,
			"attempts", result.Attempts,
			"error", result.Err.Error(),
		)
	}
	return result
}

var _ core.EventDispatcher = (*Dispatcher)(nil)
