// Package command exposes the payments operations as go-command messages so
// hosts can route webhook processing and replay through their command bus.
package command

import (
	"fmt"
	"strings"
)

const (
	TypeProcessEvent = "payments.command.event.process"
	TypeReplayEvent  = "payments.command.event.replay"
	TypePurgeClaims  = "payments.command.claims.purge"
)

// ProcessEventMessage carries one raw webhook delivery: the exact body bytes
// and the signature header value.
type ProcessEventMessage struct {
	Body      []byte
	Signature string
}

func (ProcessEventMessage) Type() string { return TypeProcessEvent }

func (m ProcessEventMessage) Validate() error {
	if len(m.Body) == 0 {
		return fmt.Errorf("command: event body is required")
	}
	return nil
}

// ReplayEventMessage re-dispatches a stored event by its audit record id.
type ReplayEventMessage struct {
	EventID string
}

func (ReplayEventMessage) Type() string { return TypeReplayEvent }

func (m ReplayEventMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" {
		return fmt.Errorf("command: event id is required")
	}
	return nil
}

// PurgeClaimsMessage removes expired deduplication claims.
type PurgeClaimsMessage struct{}

func (PurgeClaimsMessage) Type() string { return TypePurgeClaims }

func (PurgeClaimsMessage) Validate() error { return nil }
