package payments

import "github.com/goliatone/go-payments/core"

type Config = core.Config

type SenderConfig = core.SenderConfig
type ConversionsConfig = core.ConversionsConfig
type RetryConfig = core.RetryConfig
type DedupConfig = core.DedupConfig

type Option = core.Option

type Service = core.Service

type ParsedEvent = core.ParsedEvent
type PaymentAttributes = core.PaymentAttributes
type ProcessOutcome = core.ProcessOutcome
type DispatchResult = core.DispatchResult
type EventRecord = core.EventRecord

type EventStore = core.EventStore
type DedupLedger = core.DedupLedger
type EventDispatcher = core.EventDispatcher

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithDedupLedger       = core.WithDedupLedger
	WithDispatcher        = core.WithDispatcher
	WithEventStore        = core.WithEventStore
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}
