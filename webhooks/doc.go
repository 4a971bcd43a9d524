// Package webhooks exposes the inbound HTTP endpoint payment providers call.
// The endpoint acknowledges quickly: verify, parse, claim, respond, then fan
// out to downstream senders in the background.
package webhooks
