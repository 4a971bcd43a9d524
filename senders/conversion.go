package senders

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-payments/dispatch"
	"github.com/goliatone/go-payments/retry"
	"github.com/goliatone/go-payments/transport"
)

const ConversionSenderName = "conversion"

// ConversionSender reports purchases to the ad-platform conversions API.
// Customer identifiers are SHA-256 hashed before leaving the process and the
// event id derives deterministically from the order so provider retries
// deduplicate server-side.
type ConversionSender struct {
	client      RESTClient
	url         string
	pixelID     string
	accessToken string

	// Now is injectable for deterministic event timestamps in tests.
	Now func() time.Time
}

func NewConversionSender(client RESTClient, url, pixelID, accessToken string) (*ConversionSender, error) {
	if client == nil {
		return nil, fmt.Errorf("senders: conversion sender requires a rest client")
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("senders: conversion sender requires a url")
	}
	return &ConversionSender{
		client:      client,
		url:         url,
		pixelID:     strings.TrimSpace(pixelID),
		accessToken: strings.TrimSpace(accessToken),
		Now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *ConversionSender) Name() string { return ConversionSenderName }

type conversionUserData struct {
	Emails []string `json:"em,omitempty"`
	Phones []string `json:"ph,omitempty"`
}

type conversionCustomData struct {
	Currency   string   `json:"currency"`
	Value      int64    `json:"value"`
	ContentIDs []string `json:"content_ids"`
}

type conversionEvent struct {
	EventName    string               `json:"event_name"`
	EventTime    int64                `json:"event_time"`
	EventID      string               `json:"event_id"`
	ActionSource string               `json:"action_source"`
	UserData     conversionUserData   `json:"user_data"`
	CustomData   conversionCustomData `json:"custom_data"`
}

type conversionPayload struct {
	Data []conversionEvent `json:"data"`
}

func (s *ConversionSender) Send(ctx context.Context, delivery dispatch.Delivery) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("senders: conversion sender is not configured")
	}
	payment := delivery.Event.Payment

	userData := conversionUserData{}
	if email := normalizeIdentifier(payment.Email); email != "" {
		userData.Emails = []string{hashIdentifier(email)}
	}
	if phone := normalizeIdentifier(payment.Contact); phone != "" {
		userData.Phones = []string{hashIdentifier(phone)}
	}

	payload := conversionPayload{
		Data: []conversionEvent{{
			EventName:    "Purchase",
			EventTime:    s.now().Unix(),
			EventID:      ConversionEventID(payment.OrderID, payment.PaymentID),
			ActionSource: "website",
			UserData:     userData,
			CustomData: conversionCustomData{
				Currency:   payment.Currency,
				Value:      MajorUnits(payment.Amount),
				ContentIDs: delivery.Detection.Products,
			},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("senders: encode conversion payload: %w", err)
	}

	query := map[string]string{}
	if s.accessToken != "" {
		query["access_token"] = s.accessToken
	}
	url := s.url
	if s.pixelID != "" {
		url = strings.TrimRight(url, "/") + "/" + s.pixelID + "/events"
	}
	res, err := s.client.Do(ctx, transport.Request{
		Method:  http.MethodPost,
		URL:     url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Query:   query,
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

func (s *ConversionSender) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// ConversionEventID derives a stable identifier from the order, falling back
// to the payment id when the provider omitted an order. The same purchase
// always produces the same id, so replays deduplicate downstream.
func ConversionEventID(orderID, paymentID string) string {
	source := strings.TrimSpace(orderID)
	if source == "" {
		source = strings.TrimSpace(paymentID)
	}
	return hashIdentifier(source)
}

func normalizeIdentifier(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func hashIdentifier(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

var _ dispatch.Sender = (*ConversionSender)(nil)
