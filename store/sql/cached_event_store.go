package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-payments/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const paymentEventCacheKeyPrefix = "go-payments::payment_event::v1"

// CachedPaymentEventStore layers a read-through cache over an event store.
// Replay lookups hit the same records repeatedly, so single-record reads are
// the only cached path; listings always go to the database.
type CachedPaymentEventStore struct {
	base  core.EventStore
	cache repositorycache.CacheService
}

func NewCachedPaymentEventStore(
	base core.EventStore,
	cacheService repositorycache.CacheService,
) (*CachedPaymentEventStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base payment event store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: payment event cache service is required")
	}
	return &CachedPaymentEventStore{base: base, cache: cacheService}, nil
}

// PaymentEventCacheKey returns the deterministic cache key for a single
// event read: go-payments::payment_event::v1::<id>, id URL-path escaped.
func PaymentEventCacheKey(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("sqlstore: payment event id is required")
	}
	return paymentEventCacheKeyPrefix + "::" + url.PathEscape(id), nil
}

func (s *CachedPaymentEventStore) Record(ctx context.Context, record core.EventRecord) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached payment event store is not configured")
	}
	if err := s.base.Record(ctx, record); err != nil {
		return err
	}
	if strings.TrimSpace(record.ID) == "" {
		return nil
	}
	cacheKey, err := PaymentEventCacheKey(record.ID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func (s *CachedPaymentEventStore) Get(ctx context.Context, id string) (core.EventRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.EventRecord{}, fmt.Errorf("sqlstore: cached payment event store is not configured")
	}
	cacheKey, err := PaymentEventCacheKey(id)
	if err != nil {
		return core.EventRecord{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.EventRecord, error) {
		return s.base.Get(ctx, id)
	})
}

func (s *CachedPaymentEventStore) ListRecent(ctx context.Context, limit int) ([]core.EventRecord, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached payment event store is not configured")
	}
	return s.base.ListRecent(ctx, limit)
}

var _ core.EventStore = (*CachedPaymentEventStore)(nil)
