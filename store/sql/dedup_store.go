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

// SQLDedupLedger is the multi-instance deduplication ledger: a unique index
// on the event identity arbitrates concurrent claims, so two service
// replicas receiving the same provider retry agree on a single winner.
type SQLDedupLedger struct {
	db   *bun.DB
	repo repository.Repository[*dedupClaimRecord]

	// Now is injectable for expiry tests.
	Now func() time.Time
}

func NewSQLDedupLedger(db *bun.DB) (*SQLDedupLedger, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*dedupClaimRecord](db, dedupClaimHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid dedup claim repository wiring: %w", err)
		}
	}
	return &SQLDedupLedger{
		db:   db,
		repo: repo,
		Now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Claim inserts a claim row for the identity. A unique violation means a
// prior claim exists: the claim is re-granted only when that row already
// expired, otherwise the event is a duplicate.
func (s *SQLDedupLedger) Claim(ctx context.Context, identity string, ttl time.Duration) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: dedup ledger is not configured")
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return false, fmt.Errorf("sqlstore: claim identity is required")
	}
	now := s.now()
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	record := &dedupClaimRecord{
		ID:        uuid.NewString(),
		Identity:  identity,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if !isUniqueViolation(err) {
			return false, fmt.Errorf("sqlstore: insert dedup claim: %w", err)
		}
		return s.reclaimExpired(ctx, identity, ttl, now)
	}
	return true, nil
}

func (s *SQLDedupLedger) reclaimExpired(ctx context.Context, identity string, ttl time.Duration, now time.Time) (bool, error) {
	existing := &dedupClaimRecord{}
	err := s.db.NewSelect().
		Model(existing).
		Where("?TableAlias.identity = ?", identity).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			// The conflicting row vanished between insert and select; treat
			// the event as a duplicate rather than double-claim.
			return false, nil
		}
		return false, err
	}
	if now.Before(existing.ExpiresAt) {
		return false, nil
	}

	res, err := s.db.NewUpdate().
		Model((*dedupClaimRecord)(nil)).
		Set("expires_at = ?", now.Add(ttl)).
		Set("updated_at = ?", now).
		Where("identity = ?", identity).
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	// Zero rows means another replica re-claimed the identity first.
	return affected > 0, nil
}

func (s *SQLDedupLedger) PurgeExpired(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: dedup ledger is not configured")
	}
	res, err := s.db.NewDelete().
		Model((*dedupClaimRecord)(nil)).
		Where("expires_at <= ?", s.now()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *SQLDedupLedger) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}

var _ core.DedupLedger = (*SQLDedupLedger)(nil)
