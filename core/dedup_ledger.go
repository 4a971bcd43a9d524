package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultDedupLedgerTTL = 24 * time.Hour
const defaultDedupLedgerMaxEntries = 1000

// MemoryDedupLedger is the single-instance default DedupLedger. Entries
// expire after a TTL; once the set exceeds maxEntries only the most recently
// inserted half is retained, which bounds memory but admits a narrow
// re-processing window for very old identities. Deployments that scale past
// one instance should inject an externally-backed ledger instead.
type MemoryDedupLedger struct {
	mu         sync.Mutex
	defaultTTL time.Duration
	maxEntries int
	entries    map[string]time.Time
	order      []string
	Now        func() time.Time
}

func NewMemoryDedupLedger(defaultTTL time.Duration) *MemoryDedupLedger {
	return NewMemoryDedupLedgerWithLimits(defaultTTL, defaultDedupLedgerMaxEntries)
}

func NewMemoryDedupLedgerWithLimits(defaultTTL time.Duration, maxEntries int) *MemoryDedupLedger {
	if defaultTTL <= 0 {
		defaultTTL = defaultDedupLedgerTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultDedupLedgerMaxEntries
	}
	return &MemoryDedupLedger{
		defaultTTL: defaultTTL,
		maxEntries: maxEntries,
		entries:    map[string]time.Time{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (l *MemoryDedupLedger) Claim(_ context.Context, identity string, ttl time.Duration) (bool, error) {
	if l == nil {
		return false, fmt.Errorf("core: dedup ledger is not configured")
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return false, fmt.Errorf("core: dedup identity is required")
	}
	if ttl <= 0 {
		ttl = l.defaultTTL
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if expiresAt, ok := l.entries[identity]; ok {
		if now.Before(expiresAt) {
			return false, nil
		}
		delete(l.entries, identity)
	}
	l.entries[identity] = now.Add(ttl)
	l.order = append(l.order, identity)
	// Re-claims of expired identities leave stale order slots behind; compact
	// once they outnumber live entries so order stays bounded even when the
	// entry count never reaches the ceiling.
	if len(l.order) > 2*len(l.entries) {
		l.compactOrderLocked()
	}
	l.enforceCapacityLocked()
	return true, nil
}

func (l *MemoryDedupLedger) PurgeExpired(_ context.Context) (int, error) {
	if l == nil {
		return 0, fmt.Errorf("core: dedup ledger is not configured")
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	pruned := 0
	for identity, expiresAt := range l.entries {
		if !now.Before(expiresAt) {
			delete(l.entries, identity)
			pruned++
		}
	}
	l.compactOrderLocked()
	return pruned, nil
}

func (l *MemoryDedupLedger) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

// enforceCapacityLocked keeps only the most recently inserted half once the
// entry count exceeds the ceiling.
func (l *MemoryDedupLedger) enforceCapacityLocked() {
	if l.maxEntries <= 0 || len(l.entries) <= l.maxEntries {
		return
	}
	l.compactOrderLocked()
	keep := l.maxEntries / 2
	if keep < 1 {
		keep = 1
	}
	cut := len(l.order) - keep
	if cut <= 0 {
		return
	}
	for _, identity := range l.order[:cut] {
		delete(l.entries, identity)
	}
	l.order = append([]string(nil), l.order[cut:]...)
}

// compactOrderLocked drops order slots whose entries were already removed,
// keeping the newest slot for identities that were re-claimed.
func (l *MemoryDedupLedger) compactOrderLocked() {
	if len(l.order) == len(l.entries) {
		return
	}
	seen := make(map[string]struct{}, len(l.entries))
	compacted := make([]string, 0, len(l.entries))
	for i := len(l.order) - 1; i >= 0; i-- {
		identity := l.order[i]
		if _, ok := l.entries[identity]; !ok {
			continue
		}
		if _, dup := seen[identity]; dup {
			continue
		}
		seen[identity] = struct{}{}
		compacted = append(compacted, identity)
	}
	for left, right := 0, len(compacted)-1; left < right; left, right = left+1, right-1 {
		compacted[left], compacted[right] = compacted[right], compacted[left]
	}
	l.order = compacted
}

var _ DedupLedger = (*MemoryDedupLedger)(nil)
