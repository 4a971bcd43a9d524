package core

import (
	"context"
	"encoding/json"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// PaymentAttributes carries the payment fields the classifier and senders
// consume. Amount is in minor units (paise).
type PaymentAttributes struct {
	PaymentID string
	OrderID   string
	Amount    int64
	Currency  string
	Method    string
	Email     string
	Contact   string
	Notes     map[string]string
}

// ParsedEvent is only ever constructed from a verified raw body. Raw keeps
// the exact bytes received so downstream consumers never re-serialize.
type ParsedEvent struct {
	Type    string
	Payment PaymentAttributes
	Raw     json.RawMessage
}

// DedupLedger is the injected deduplication port. Claim returns true exactly
// once per identity until the entry expires or is evicted.
type DedupLedger interface {
	Claim(ctx context.Context, identity string, ttl time.Duration) (bool, error)
	PurgeExpired(ctx context.Context) (int, error)
}

type DispatchResult struct {
	Sender   string
	Attempts int
	Err      error
}

func (r DispatchResult) Success() bool {
	return r.Err == nil
}

// EventDispatcher fans a parsed event out to downstream senders. It never
// returns an error: sender outcomes are captured per entry because there is
// no caller left to receive a failure once the acknowledgment is sent.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event ParsedEvent) []DispatchResult
}

// EventRecord is the persisted audit trail of one processed event.
type EventRecord struct {
	ID         string
	EventType  string
	PaymentID  string
	OrderID    string
	Amount     int64
	Currency   string
	Products   []string
	Confidence float64
	Method     string
	Status     string
	Error      string
	CreatedAt  time.Time
}

type EventStore interface {
	Record(ctx context.Context, record EventRecord) error
	Get(ctx context.Context, id string) (EventRecord, error)
	ListRecent(ctx context.Context, limit int) ([]EventRecord, error)
}

type StoreProvider interface {
	EventStore() EventStore
	DedupLedger() DedupLedger
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
