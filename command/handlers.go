package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-payments/core"
)

// ProcessingService is the slice of core.Service the commands depend on.
type ProcessingService interface {
	ProcessEvent(ctx context.Context, rawBody []byte, signature string) (core.ProcessOutcome, error)
	Dispatch(ctx context.Context, event core.ParsedEvent) []core.DispatchResult
	ReplayEvent(ctx context.Context, eventID string) ([]core.DispatchResult, error)
	Ledger() core.DedupLedger
}

// ProcessEventResult is stored in the command result collector after a
// processed delivery.
type ProcessEventResult struct {
	Outcome core.ProcessOutcome
	Results []core.DispatchResult
}

type ProcessEventCommand struct {
	service ProcessingService
}

func NewProcessEventCommand(service ProcessingService) *ProcessEventCommand {
	return &ProcessEventCommand{service: service}
}

// Execute accepts the delivery and, when it is not a duplicate, runs the
// full fan-out synchronously. Bus callers have no acknowledgment deadline,
// so there is no reason to detach the dispatch.
func (c *ProcessEventCommand) Execute(ctx context.Context, msg ProcessEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: processing service is required")
	}
	if err := msg.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid process event message")
	}
	outcome, err := c.service.ProcessEvent(ctx, msg.Body, msg.Signature)
	if err != nil {
		return err
	}
	result := ProcessEventResult{Outcome: outcome}
	if !outcome.Duplicate {
		result.Results = c.service.Dispatch(ctx, outcome.Event)
	}
	storeResult(ctx, result)
	return nil
}

type ReplayEventCommand struct {
	service ProcessingService
}

func NewReplayEventCommand(service ProcessingService) *ReplayEventCommand {
	return &ReplayEventCommand{service: service}
}

func (c *ReplayEventCommand) Execute(ctx context.Context, msg ReplayEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: replay service is required")
	}
	if err := msg.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid replay message")
	}
	results, err := c.service.ReplayEvent(ctx, msg.EventID)
	if err != nil {
		return err
	}
	storeResult(ctx, results)
	return nil
}

type PurgeClaimsCommand struct {
	service ProcessingService
}

func NewPurgeClaimsCommand(service ProcessingService) *PurgeClaimsCommand {
	return &PurgeClaimsCommand{service: service}
}

func (c *PurgeClaimsCommand) Execute(ctx context.Context, msg PurgeClaimsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: purge service is required")
	}
	ledger := c.service.Ledger()
	if ledger == nil {
		return commandDependencyError("command: dedup ledger is required")
	}
	purged, err := ledger.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, purged)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
