package core

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// ProcessOutcome is the synchronous-path result of accepting one delivery.
// Dispatch happens separately so callers can acknowledge the provider first.
type ProcessOutcome struct {
	Event     ParsedEvent
	Identity  EventIdentity
	Duplicate bool
}

type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	ledger          DedupLedger
	dispatcher      EventDispatcher
	eventStore      EventStore
	now             func() time.Time
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorFactory    ErrorFactory
	ErrorMapper     ErrorMapper
	DedupLedger     DedupLedger
	Dispatcher      EventDispatcher
	EventStore      EventStore
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("payments", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("payments"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if (builder.eventStore == nil || builder.ledger == nil) && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				if builder.eventStore == nil {
					builder.eventStore = storeProvider.EventStore()
				}
				if builder.ledger == nil {
					builder.ledger = storeProvider.DedupLedger()
				}
			}
		}
	}
	if builder.ledger == nil {
		builder.ledger = NewMemoryDedupLedgerWithLimits(
			finalConfig.Dedup.TTL(),
			finalConfig.Dedup.MaxEntries,
		)
	}

	return &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		ledger:          builder.ledger,
		dispatcher:      builder.dispatcher,
		eventStore:      builder.eventStore,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Ledger() DedupLedger {
	if s == nil {
		return nil
	}
	return s.ledger
}

func (s *Service) EventStore() EventStore {
	if s == nil {
		return nil
	}
	return s.eventStore
}

func (s *Service) SetDispatcher(dispatcher EventDispatcher) {
	if s == nil {
		return
	}
	s.dispatcher = dispatcher
}

// ProcessEvent runs the synchronous acceptance path: verify the signature
// over the exact raw bytes, parse, derive the identity, and claim it in the
// ledger. Verification always completes before the ledger runs; callers send
// the acknowledgment before dispatching.
func (s *Service) ProcessEvent(ctx context.Context, rawBody []byte, signature string) (ProcessOutcome, error) {
	if s == nil {
		return ProcessOutcome{}, goerrors.New("core: service is not configured", goerrors.CategoryInternal).
			WithTextCode(ServiceErrorInternal)
	}
	startedAt := s.now()

	if !VerifySignature(rawBody, signature, s.config.SigningSecret) {
		err := goerrors.New("core: webhook signature verification failed", goerrors.CategoryAuth).
			WithTextCode(ServiceErrorUnauthorized)
		s.observeOperation(ctx, startedAt, "event_verify", err, map[string]any{
			"body_bytes": len(rawBody),
		})
		return ProcessOutcome{}, err
	}

	event, err := ParseEvent(rawBody)
	if err != nil {
		s.observeOperation(ctx, startedAt, "event_parse", err, map[string]any{
			"payload_shape": PayloadShape(rawBody),
		})
		return ProcessOutcome{}, s.mapError(err)
	}

	identity := DeriveIdentity(event.Type, event.Payment, s.now())
	if identity.Degraded {
		s.logWarn(ctx, "deduplication identity degraded to timestamp fallback", map[string]any{
			"event_type": event.Type,
			"degraded":   true,
		})
	}

	accepted, err := s.ledger.Claim(ctx, identity.Key, s.config.Dedup.TTL())
	if err != nil {
		s.observeOperation(ctx, startedAt, "event_dedup", err, map[string]any{
			"event_type": event.Type,
		})
		return ProcessOutcome{}, s.mapError(err)
	}

	outcome := ProcessOutcome{Event: event, Identity: identity, Duplicate: !accepted}
	s.observeOperation(ctx, startedAt, "event_accept", nil, map[string]any{
		"event_type": event.Type,
		"duplicate":  outcome.Duplicate,
	})
	return outcome, nil
}

// Dispatch fans the event out to the configured senders. It never returns an
// error: the acknowledgment has already been written, so sender outcomes are
// only observable through the results, logs, and metrics.
func (s *Service) Dispatch(ctx context.Context, event ParsedEvent) []DispatchResult {
	if s == nil || s.dispatcher == nil {
		return nil
	}
	startedAt := s.now()
	results := s.dispatcher.Dispatch(ctx, event)

	failed := 0
	for _, result := range results {
		if !result.Success() {
			failed++
		}
	}
	fields := map[string]any{
		"event_type": event.Type,
		"senders":    len(results),
		"failed":     failed,
	}
	var summaryErr error
	if failed > 0 {
		summaryErr = goerrors.New("core: one or more senders failed", goerrors.CategoryOperation).
			WithTextCode(ServiceErrorDispatchFailed)
	}
	s.observeOperation(ctx, startedAt, "event_dispatch", summaryErr, fields)
	return results
}

// ReplayEvent re-dispatches a stored event, bypassing deduplication. It is an
// operator surface for events whose downstream delivery exhausted its retry
// budget.
func (s *Service) ReplayEvent(ctx context.Context, eventID string) ([]DispatchResult, error) {
	if s == nil || s.eventStore == nil {
		return nil, goerrors.New("core: event store is not configured", goerrors.CategoryInternal).
			WithTextCode(ServiceErrorStoreUnavailable)
	}
	record, err := s.eventStore.Get(ctx, eventID)
	if err != nil {
		return nil, s.mapError(err)
	}
	event := ParsedEvent{
		Type: record.EventType,
		Payment: PaymentAttributes{
			PaymentID: record.PaymentID,
			OrderID:   record.OrderID,
			Amount:    record.Amount,
			Currency:  record.Currency,
			Notes:     map[string]string{},
		},
	}
	return s.Dispatch(ctx, event), nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
