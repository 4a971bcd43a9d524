package core

import (
	"testing"
)

func TestParseEvent_DecodesPaymentEntity(t *testing.T) {
	raw := []byte(`{
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_001",
					"order_id": "order_001",
					"amount": 199900,
					"currency": "inr",
					"method": "upi",
					"email": "buyer@example.com",
					"contact": "+919000000000",
					"notes": {"product": "course", "campaign": "launch"}
				}
			}
		}
	}`)

	event, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	if event.Type != "payment.captured" {
		t.Fatalf("unexpected event type %q", event.Type)
	}
	if event.Payment.PaymentID != "pay_001" || event.Payment.OrderID != "order_001" {
		t.Fatalf("unexpected payment ids: %+v", event.Payment)
	}
	if event.Payment.Amount != 199900 {
		t.Fatalf("expected amount in minor units, got %d", event.Payment.Amount)
	}
	if event.Payment.Currency != "INR" {
		t.Fatalf("expected normalized currency, got %q", event.Payment.Currency)
	}
	if event.Payment.Notes["product"] != "course" {
		t.Fatalf("expected notes to round-trip, got %+v", event.Payment.Notes)
	}
	if string(event.Raw) != string(raw) {
		t.Fatalf("expected raw bytes to be preserved exactly")
	}
}

func TestParseEvent_RejectsMissingEventType(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"payload":{}}`)); err == nil {
		t.Fatalf("expected error for missing event type")
	}
}

func TestParseEvent_RejectsMalformedJSON(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"event": "payment.captured"`)); err == nil {
		t.Fatalf("expected error for malformed body")
	}
}

func TestParseEvent_ToleratesNonObjectNotes(t *testing.T) {
	raw := []byte(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {"id": "pay_1", "amount": 0, "notes": ["course", 42]}}}
	}`)
	event, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	if event.Payment.Notes["0"] != "course" {
		t.Fatalf("expected list note to be indexed, got %+v", event.Payment.Notes)
	}
	if event.Payment.Notes["1"] != "42" {
		t.Fatalf("expected numeric note to be stringified, got %+v", event.Payment.Notes)
	}
}

func TestPayloadShape_RedactsValues(t *testing.T) {
	shape := PayloadShape([]byte(`{"event":"x","payload":{"payment":{}},"secret_field":"do-not-log"}`))
	if len(shape) != 3 {
		t.Fatalf("expected 3 top-level keys, got %v", shape)
	}
	for _, key := range shape {
		if key == "do-not-log" {
			t.Fatalf("payload shape leaked a value")
		}
	}
}
