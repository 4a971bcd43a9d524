package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-payments/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PaymentEventStore persists the audit trail of processed webhook events.
type PaymentEventStore struct {
	db   *bun.DB
	repo repository.Repository[*paymentEventRecord]
}

func NewPaymentEventStore(db *bun.DB) (*PaymentEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*paymentEventRecord](db, paymentEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid payment event repository wiring: %w", err)
		}
	}
	return &PaymentEventStore{db: db, repo: repo}, nil
}

func (s *PaymentEventStore) Record(ctx context.Context, record core.EventRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: payment event store is not configured")
	}
	record.ID = strings.TrimSpace(record.ID)
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	model := paymentEventFromDomain(record)
	if _, err := s.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return fmt.Errorf("sqlstore: insert payment event: %w", err)
	}
	return nil
}

func (s *PaymentEventStore) Get(ctx context.Context, id string) (core.EventRecord, error) {
	if s == nil || s.db == nil {
		return core.EventRecord{}, fmt.Errorf("sqlstore: payment event store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.EventRecord{}, fmt.Errorf("sqlstore: payment event id is required")
	}
	record := &paymentEventRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.EventRecord{}, fmt.Errorf("sqlstore: payment event %q not found", id)
		}
		return core.EventRecord{}, err
	}
	return paymentEventToDomain(record), nil
}

func (s *PaymentEventStore) ListRecent(ctx context.Context, limit int) ([]core.EventRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: payment event store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	var records []*paymentEventRecord
	err := s.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.EventRecord, 0, len(records))
	for _, record := range records {
		out = append(out, paymentEventToDomain(record))
	}
	return out, nil
}

func paymentEventFromDomain(record core.EventRecord) *paymentEventRecord {
	products := record.Products
	if products == nil {
		products = []string{}
	}
	return &paymentEventRecord{
		ID:         record.ID,
		EventType:  record.EventType,
		PaymentID:  record.PaymentID,
		OrderID:    record.OrderID,
		Amount:     record.Amount,
		Currency:   record.Currency,
		Products:   products,
		Confidence: record.Confidence,
		Method:     record.Method,
		Status:     record.Status,
		Error:      record.Error,
		CreatedAt:  record.CreatedAt.UTC(),
	}
}

func paymentEventToDomain(record *paymentEventRecord) core.EventRecord {
	if record == nil {
		return core.EventRecord{}
	}
	return core.EventRecord{
		ID:         record.ID,
		EventType:  record.EventType,
		PaymentID:  record.PaymentID,
		OrderID:    record.OrderID,
		Amount:     record.Amount,
		Currency:   record.Currency,
		Products:   append([]string(nil), record.Products...),
		Confidence: record.Confidence,
		Method:     record.Method,
		Status:     record.Status,
		Error:      record.Error,
		CreatedAt:  record.CreatedAt,
	}
}

var _ core.EventStore = (*PaymentEventStore)(nil)
