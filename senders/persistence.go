package senders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-payments/core"
	"github.com/goliatone/go-payments/dispatch"
)

const PersistenceSenderName = "persistence"

// PersistenceSender writes an audit record for every routed event, captured
// or not, so there is always a queryable trail of what arrived and what the
// classifier decided.
type PersistenceSender struct {
	store  core.EventStore
	logger glog.Logger

	// Now is injectable for deterministic timestamps in tests.
	Now func() time.Time
}

func NewPersistenceSender(store core.EventStore, logger glog.Logger) (*PersistenceSender, error) {
	if store == nil {
		return nil, fmt.Errorf("senders: persistence sender requires an event store")
	}
	return &PersistenceSender{
		store:  store,
		logger: glog.Ensure(logger),
		Now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *PersistenceSender) Name() string { return PersistenceSenderName }

func (s *PersistenceSender) Send(ctx context.Context, delivery dispatch.Delivery) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("senders: persistence sender is not configured")
	}
	payment := delivery.Event.Payment

	record := core.EventRecord{
		ID:         uuid.NewString(),
		EventType:  delivery.Event.Type,
		PaymentID:  payment.PaymentID,
		OrderID:    payment.OrderID,
		Amount:     payment.Amount,
		Currency:   payment.Currency,
		Products:   delivery.Detection.Products,
		Confidence: delivery.Detection.Confidence,
		Method:     string(delivery.Detection.Method),
		Status:     eventStatus(delivery.Event.Type),
		CreatedAt:  s.now(),
	}
	if err := s.store.Record(ctx, record); err != nil {
		s.logger.Error("record payment event",
			"event_type", record.EventType,
			"payment_id", record.PaymentID,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

func (s *PersistenceSender) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func eventStatus(eventType string) string {
	switch eventType {
	case dispatch.EventPaymentCaptured:
		return "captured"
	case dispatch.EventPaymentFailed:
		return "failed"
	case dispatch.EventPaymentAuthorized:
		return "authorized"
	default:
		suffix := eventType
		if idx := strings.LastIndex(eventType, "."); idx >= 0 && idx < len(eventType)-1 {
			suffix = eventType[idx+1:]
		}
		return suffix
	}
}

var _ dispatch.Sender = (*PersistenceSender)(nil)
