package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-payments/core"
)

// maxRequestBodyBytes caps inbound payloads; provider webhooks are small.
const maxRequestBodyBytes int64 = 1 << 20

// ProcessingService is the slice of core.Service the endpoint depends on.
type ProcessingService interface {
	Config() core.Config
	ProcessEvent(ctx context.Context, rawBody []byte, signature string) (core.ProcessOutcome, error)
	Dispatch(ctx context.Context, event core.ParsedEvent) []core.DispatchResult
}

// Endpoint handles the provider's webhook POSTs. The acknowledgment is
// written before the fan-out starts: the provider only needs to know the
// event was accepted, and sender failures have their own retry story.
type Endpoint struct {
	service ProcessingService
	logger  glog.Logger

	// OnDispatchDone is invoked after the background fan-out for an accepted
	// event completes. Tests use it to synchronize on async deliveries.
	OnDispatchDone func(event core.ParsedEvent, results []core.DispatchResult)

	// Now is injectable for deterministic response timestamps in tests.
	Now func() time.Time
}

func NewEndpoint(service ProcessingService, logger glog.Logger) *Endpoint {
	return &Endpoint{
		service: service,
		logger:  glog.Ensure(logger),
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if e == nil || e.service == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Processing failed"})
		return
	}
	startedAt := e.now()

	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("webhook handler panicked", "panic", rec)
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":              "Processing failed",
				"processing_time_ms": elapsedMS(startedAt, e.now()),
			})
		}
	}()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "Method not allowed"})
		return
	}

	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid webhook payload"})
		return
	}
	signature := r.Header.Get(e.signatureHeader())

	outcome, err := e.service.ProcessEvent(r.Context(), rawBody, signature)
	if err != nil {
		e.writeError(w, err, startedAt)
		return
	}
	if outcome.Duplicate {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "duplicate_skipped",
			"event_id": outcome.Identity.Key,
		})
		return
	}

	now := e.now()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"event":              outcome.Event.Type,
		"processing_time_ms": elapsedMS(startedAt, now),
		"timestamp":          now.Format(time.RFC3339),
	})

	// The provider has its ack. Fan-out continues on a fresh context so it
	// survives the request's cancellation.
	go e.dispatch(outcome.Event)
}

func (e *Endpoint) dispatch(event core.ParsedEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("background dispatch panicked", "panic", rec, "event_type", event.Type)
		}
	}()
	results := e.service.Dispatch(context.Background(), event)
	if e.OnDispatchDone != nil {
		e.OnDispatchDone(event, results)
	}
}

func (e *Endpoint) writeError(w http.ResponseWriter, err error, startedAt time.Time) {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		switch rich.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz:
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Invalid signature"})
			return
		case goerrors.CategoryBadInput, goerrors.CategoryValidation:
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid webhook payload"})
			return
		}
	}
	e.logger.Error("webhook processing failed", "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error":              "Processing failed",
		"processing_time_ms": elapsedMS(startedAt, e.now()),
	})
}

func (e *Endpoint) signatureHeader() string {
	header := strings.TrimSpace(e.service.Config().SignatureHeader)
	if header == "" {
		header = core.DefaultSignatureHeader
	}
	return header
}

func (e *Endpoint) now() time.Time {
	if e != nil && e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func elapsedMS(startedAt, now time.Time) int64 {
	elapsed := now.Sub(startedAt).Milliseconds()
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
