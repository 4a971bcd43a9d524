package senders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-payments/dispatch"
	"github.com/goliatone/go-payments/retry"
	"github.com/goliatone/go-payments/transport"
)

const AutomationSenderName = "automation"

// RESTClient is the outbound HTTP surface senders depend on, satisfied by
// *transport.RESTAdapter.
type RESTClient interface {
	Do(ctx context.Context, req transport.Request) (transport.Response, error)
}

// AutomationSender posts captured payments to the fulfillment automation API
// so product delivery (course access, database share, guide download) kicks
// off.
type AutomationSender struct {
	client RESTClient
	url    string
	token  string
}

func NewAutomationSender(client RESTClient, url, token string) (*AutomationSender, error) {
	if client == nil {
		return nil, fmt.Errorf("senders: automation sender requires a rest client")
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("senders: automation sender requires a url")
	}
	return &AutomationSender{client: client, url: url, token: strings.TrimSpace(token)}, nil
}

func (s *AutomationSender) Name() string { return AutomationSenderName }

type automationTransaction struct {
	ID string `json:"id"`
	// Amount is in major currency units, converted from the provider's
	// minor-unit amounts.
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type automationCustomer struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type automationPayload struct {
	Transaction automationTransaction `json:"transaction"`
	Customer    automationCustomer    `json:"customer"`
	Products    []string              `json:"products"`
	Metadata    map[string]any        `json:"metadata"`
}

func (s *AutomationSender) Send(ctx context.Context, delivery dispatch.Delivery) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("senders: automation sender is not configured")
	}
	payment := delivery.Event.Payment

	payload := automationPayload{
		Transaction: automationTransaction{
			ID:       payment.PaymentID,
			Amount:   MajorUnits(payment.Amount),
			Currency: payment.Currency,
			Status:   "captured",
		},
		Customer: automationCustomer{
			Email: payment.Email,
			Phone: payment.Contact,
		},
		Products: delivery.Detection.Products,
		Metadata: map[string]any{
			"order_id":         payment.OrderID,
			"payment_method":   payment.Method,
			"detection_method": string(delivery.Detection.Method),
			"confidence":       delivery.Detection.Confidence,
			"flags":            delivery.Detection.Flags,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("senders: encode automation payload: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if s.token != "" {
		headers["Authorization"] = "Bearer " + s.token
	}
	res, err := s.client.Do(ctx, transport.Request{
		Method:  http.MethodPost,
		URL:     s.url,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &retry.StatusError{Code: res.StatusCode, Body: truncateBody(res.Body)}
	}
	return nil
}

// MajorUnits converts provider minor-unit amounts (paise) to whole currency
// units, truncating sub-unit remainders.
func MajorUnits(amount int64) int64 {
	return amount / 100
}

func truncateBody(body []byte) string {
	const limit = 256
	if len(body) > limit {
		body = body[:limit]
	}
	return strings.TrimSpace(string(body))
}

var _ dispatch.Sender = (*AutomationSender)(nil)
