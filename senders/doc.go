// Package senders implements the downstream deliveries a captured payment
// fans out to: the fulfillment automation API, the ad-platform conversions
// API, and the local event store.
package senders
