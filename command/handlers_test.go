package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-payments/core"
)

type stubProcessingService struct {
	outcome     core.ProcessOutcome
	processErr  error
	dispatched  int
	replayed    []string
	replayErr   error
	ledger      core.DedupLedger
	lastBody    []byte
	lastSig     string
	lastReplay  string
	dispatchRes []core.DispatchResult
}

func (s *stubProcessingService) ProcessEvent(ctx context.Context, rawBody []byte, signature string) (core.ProcessOutcome, error) {
	s.lastBody = rawBody
	s.lastSig = signature
	return s.outcome, s.processErr
}

func (s *stubProcessingService) Dispatch(ctx context.Context, event core.ParsedEvent) []core.DispatchResult {
	s.dispatched++
	return s.dispatchRes
}

func (s *stubProcessingService) ReplayEvent(ctx context.Context, eventID string) ([]core.DispatchResult, error) {
	s.lastReplay = eventID
	s.replayed = append(s.replayed, eventID)
	return s.dispatchRes, s.replayErr
}

func (s *stubProcessingService) Ledger() core.DedupLedger {
	return s.ledger
}

func TestProcessEventCommandDispatchesAcceptedEvents(t *testing.T) {
	service := &stubProcessingService{
		outcome: core.ProcessOutcome{
			Event:    core.ParsedEvent{Type: "payment.captured"},
			Identity: core.EventIdentity{Key: "payment.captured:pay_1"},
		},
		dispatchRes: []core.DispatchResult{{Sender: "automation", Attempts: 1}},
	}
	cmd := NewProcessEventCommand(service)

	msg := ProcessEventMessage{Body: []byte(`{"event":"payment.captured"}`), Signature: "sig"}
	if err := cmd.Execute(context.Background(), msg); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if service.dispatched != 1 {
		t.Fatalf("accepted event must dispatch once, got %d", service.dispatched)
	}
	if string(service.lastBody) != `{"event":"payment.captured"}` || service.lastSig != "sig" {
		t.Fatal("message fields must pass through unchanged")
	}
}

func TestProcessEventCommandSkipsDuplicateDispatch(t *testing.T) {
	service := &stubProcessingService{
		outcome: core.ProcessOutcome{Duplicate: true},
	}
	cmd := NewProcessEventCommand(service)

	msg := ProcessEventMessage{Body: []byte(`{}`)}
	if err := cmd.Execute(context.Background(), msg); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if service.dispatched != 0 {
		t.Fatal("duplicate events must not dispatch")
	}
}

func TestProcessEventCommandValidatesMessage(t *testing.T) {
	cmd := NewProcessEventCommand(&stubProcessingService{})
	if err := cmd.Execute(context.Background(), ProcessEventMessage{}); err == nil {
		t.Fatal("empty body must fail validation")
	}
}

func TestProcessEventCommandRequiresService(t *testing.T) {
	cmd := NewProcessEventCommand(nil)
	err := cmd.Execute(context.Background(), ProcessEventMessage{Body: []byte(`{}`)})
	if err == nil {
		t.Fatal("expected dependency error")
	}
}

func TestReplayEventCommand(t *testing.T) {
	service := &stubProcessingService{
		dispatchRes: []core.DispatchResult{{Sender: "automation", Attempts: 2}},
	}
	cmd := NewReplayEventCommand(service)

	if err := cmd.Execute(context.Background(), ReplayEventMessage{EventID: "evt_1"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if service.lastReplay != "evt_1" {
		t.Fatalf("expected replay of evt_1, got %q", service.lastReplay)
	}

	if err := cmd.Execute(context.Background(), ReplayEventMessage{}); err == nil {
		t.Fatal("blank event id must fail validation")
	}

	service.replayErr = errors.New("not found")
	if err := cmd.Execute(context.Background(), ReplayEventMessage{EventID: "evt_missing"}); err == nil {
		t.Fatal("replay errors must propagate")
	}
}

func TestPurgeClaimsCommand(t *testing.T) {
	ledger := core.NewMemoryDedupLedger(time.Hour)
	service := &stubProcessingService{ledger: ledger}
	cmd := NewPurgeClaimsCommand(service)

	if err := cmd.Execute(context.Background(), PurgeClaimsMessage{}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	cmd = NewPurgeClaimsCommand(&stubProcessingService{})
	if err := cmd.Execute(context.Background(), PurgeClaimsMessage{}); err == nil {
		t.Fatal("missing ledger must be a dependency error")
	}
}
