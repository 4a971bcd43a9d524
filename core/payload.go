package core

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

type rawEventEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity rawPaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type rawPaymentEntity struct {
	ID       string          `json:"id"`
	OrderID  string          `json:"order_id"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Method   string          `json:"method"`
	Email    string          `json:"email"`
	Contact  string          `json:"contact"`
	Notes    json.RawMessage `json:"notes"`
}

// ParseEvent decodes a verified raw body into a ParsedEvent. Callers must
// gate this behind VerifySignature; a ParsedEvent is never constructed from
// unverified bytes.
func ParseEvent(raw []byte) (ParsedEvent, error) {
	var envelope rawEventEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ParsedEvent{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "core: parse webhook payload").
			WithTextCode(ServiceErrorBadInput)
	}
	eventType := strings.TrimSpace(strings.ToLower(envelope.Event))
	if eventType == "" {
		return ParsedEvent{}, goerrors.New("core: webhook event type is required", goerrors.CategoryBadInput).
			WithTextCode(ServiceErrorBadInput).
			WithMetadata(map[string]any{"payload_shape": PayloadShape(raw)})
	}

	entity := envelope.Payload.Payment.Entity
	return ParsedEvent{
		Type: eventType,
		Payment: PaymentAttributes{
			PaymentID: strings.TrimSpace(entity.ID),
			OrderID:   strings.TrimSpace(entity.OrderID),
			Amount:    entity.Amount,
			Currency:  strings.TrimSpace(strings.ToUpper(entity.Currency)),
			Method:    strings.TrimSpace(entity.Method),
			Email:     strings.TrimSpace(entity.Email),
			Contact:   strings.TrimSpace(entity.Contact),
			Notes:     decodeNotes(entity.Notes),
		},
		Raw: append(json.RawMessage(nil), raw...),
	}, nil
}

// decodeNotes tolerates the provider sending notes as an object, an array,
// or an empty value; anything non-string is stringified.
func decodeNotes(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return map[string]string{}
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err == nil {
		notes := make(map[string]string, len(asMap))
		for key, value := range asMap {
			notes[key] = stringifyNote(value)
		}
		return notes
	}
	var asList []any
	if err := json.Unmarshal(raw, &asList); err == nil {
		notes := make(map[string]string, len(asList))
		for i, value := range asList {
			notes[strconv.Itoa(i)] = stringifyNote(value)
		}
		return notes
	}
	return map[string]string{}
}

func stringifyNote(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

// PayloadShape returns the sorted top-level keys of a JSON body so malformed
// payloads can be logged without leaking their values.
func PayloadShape(raw []byte) []string {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return []string{}
	}
	keys := make([]string, 0, len(top))
	for key := range top {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
