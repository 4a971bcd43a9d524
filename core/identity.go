package core

import (
	"fmt"
	"strings"
	"time"
)

// EventIdentity is the deduplication key for one logical event occurrence.
// Degraded marks identities built from the timestamp fallback: those defeat
// deduplication and callers must log them as a degraded case.
type EventIdentity struct {
	Key      string
	Degraded bool
}

// DeriveIdentity prefers the most specific field available: payment id over
// order id over a timestamp of last resort. Two deliveries of the same
// occurrence yield the same key as long as either id is present.
func DeriveIdentity(eventType string, payment PaymentAttributes, now time.Time) EventIdentity {
	eventType = strings.TrimSpace(eventType)
	if id := strings.TrimSpace(payment.PaymentID); id != "" {
		return EventIdentity{Key: eventType + ":" + id}
	}
	if id := strings.TrimSpace(payment.OrderID); id != "" {
		return EventIdentity{Key: eventType + ":order:" + id}
	}
	return EventIdentity{
		Key:      fmt.Sprintf("%s:ts:%d", eventType, now.UTC().UnixNano()),
		Degraded: true,
	}
}
