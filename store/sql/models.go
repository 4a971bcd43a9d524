package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type paymentEventRecord struct {
	bun.BaseModel `bun:"table:payment_events,alias:pe"`

	ID         string    `bun:"id,pk"`
	EventType  string    `bun:"event_type,notnull"`
	PaymentID  string    `bun:"payment_id,notnull"`
	OrderID    string    `bun:"order_id"`
	Amount     int64     `bun:"amount,notnull"`
	Currency   string    `bun:"currency,notnull"`
	Products   []string  `bun:"products,type:jsonb,notnull"`
	Confidence float64   `bun:"confidence,notnull"`
	Method     string    `bun:"method"`
	Status     string    `bun:"status,notnull"`
	Error      string    `bun:"error"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type dedupClaimRecord struct {
	bun.BaseModel `bun:"table:dedup_claims,alias:dc"`

	ID        string    `bun:"id,pk"`
	Identity  string    `bun:"identity,notnull,unique"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
