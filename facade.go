package payments

import (
	"fmt"

	glog "github.com/goliatone/go-logger/glog"

	paymentscommand "github.com/goliatone/go-payments/command"
	"github.com/goliatone/go-payments/core"
	"github.com/goliatone/go-payments/dispatch"
	"github.com/goliatone/go-payments/retry"
	"github.com/goliatone/go-payments/senders"
	"github.com/goliatone/go-payments/transport"
	"github.com/goliatone/go-payments/webhooks"
)

// Commands bundles the go-command wrappers for hosts that route payment
// operations through a command bus.
type Commands struct {
	ProcessEvent *paymentscommand.ProcessEventCommand
	ReplayEvent  *paymentscommand.ReplayEventCommand
	PurgeClaims  *paymentscommand.PurgeClaimsCommand
}

// Runtime assembles the full ingestion pipeline: the core service, the
// downstream senders, the fan-out dispatcher, and the HTTP endpoint.
type Runtime struct {
	service    *core.Service
	dispatcher *dispatch.Dispatcher
	endpoint   *webhooks.Endpoint
	commands   Commands
}

type RuntimeOption func(*runtimeOptions)

type runtimeOptions struct {
	httpClient     transport.HTTPDoer
	logger         glog.Logger
	serviceOptions []core.Option
	extraSenders   []dispatch.Sender
}

// WithHTTPClient overrides the HTTP client shared by the outbound senders.
func WithHTTPClient(client transport.HTTPDoer) RuntimeOption {
	return func(options *runtimeOptions) {
		options.httpClient = client
	}
}

// WithRuntimeLogger sets the logger used by the dispatcher and endpoint.
func WithRuntimeLogger(logger glog.Logger) RuntimeOption {
	return func(options *runtimeOptions) {
		options.logger = logger
	}
}

// WithServiceOptions forwards options to the underlying core service, e.g.
// WithPersistenceClient or WithEventStore.
func WithServiceOptions(opts ...core.Option) RuntimeOption {
	return func(options *runtimeOptions) {
		options.serviceOptions = append(options.serviceOptions, opts...)
	}
}

// WithExtraSenders registers additional downstream senders alongside the
// configured ones.
func WithExtraSenders(extra ...dispatch.Sender) RuntimeOption {
	return func(options *runtimeOptions) {
		options.extraSenders = append(options.extraSenders, extra...)
	}
}

// NewRuntime builds a service, its senders, and the dispatcher from cfg.
// Senders are only wired when their config section is populated, so a
// minimal config yields a pipeline that verifies, dedups, and acknowledges
// without any downstream fan-out.
func NewRuntime(cfg Config, opts ...RuntimeOption) (*Runtime, error) {
	options := runtimeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&options)
	}
	logger := glog.Ensure(options.logger)

	service, err := core.NewService(cfg, options.serviceOptions...)
	if err != nil {
		return nil, err
	}

	restClient := transport.NewRESTAdapter(options.httpClient)

	var downstream []dispatch.Sender
	if cfg.Automation.URL != "" {
		automation, err := senders.NewAutomationSender(restClient, cfg.Automation.URL, cfg.Automation.Token)
		if err != nil {
			return nil, fmt.Errorf("payments: automation sender: %w", err)
		}
		downstream = append(downstream, automation)
	}
	if cfg.Conversions.URL != "" && cfg.Conversions.PixelID != "" {
		conversion, err := senders.NewConversionSender(
			restClient,
			cfg.Conversions.URL,
			cfg.Conversions.PixelID,
			cfg.Conversions.AccessToken,
		)
		if err != nil {
			return nil, fmt.Errorf("payments: conversion sender: %w", err)
		}
		downstream = append(downstream, conversion)
	}
	if store := service.EventStore(); store != nil {
		persistent, err := senders.NewPersistenceSender(store, logger)
		if err != nil {
			return nil, fmt.Errorf("payments: persistence sender: %w", err)
		}
		downstream = append(downstream, persistent)
	}
	downstream = append(downstream, options.extraSenders...)

	dispatcher := dispatch.New(downstream,
		dispatch.WithRetryPolicy(RetryPolicyFromConfig(cfg.Retry)),
		dispatch.WithLogger(logger),
		dispatch.WithPersistentSender(senders.PersistenceSenderName),
	)
	service.SetDispatcher(dispatcher)

	runtime := &Runtime{
		service:    service,
		dispatcher: dispatcher,
		endpoint:   webhooks.NewEndpoint(service, logger),
	}
	runtime.commands = Commands{
		ProcessEvent: paymentscommand.NewProcessEventCommand(service),
		ReplayEvent:  paymentscommand.NewReplayEventCommand(service),
		PurgeClaims:  paymentscommand.NewPurgeClaimsCommand(service),
	}
	return runtime, nil
}

func (r *Runtime) Service() *core.Service {
	if r == nil {
		return nil
	}
	return r.service
}

func (r *Runtime) Dispatcher() *dispatch.Dispatcher {
	if r == nil {
		return nil
	}
	return r.dispatcher
}

// Endpoint returns the http.Handler terminating webhook deliveries.
func (r *Runtime) Endpoint() *webhooks.Endpoint {
	if r == nil {
		return nil
	}
	return r.endpoint
}

func (r *Runtime) Commands() Commands {
	if r == nil {
		return Commands{}
	}
	return r.commands
}

// RetryPolicyFromConfig maps the flat millisecond config onto a retry
// policy, keeping defaults for any timing field left at zero.
func RetryPolicyFromConfig(cfg core.RetryConfig) retry.Policy {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.MaxRetries
	if cfg.InitialDelayMS > 0 {
		policy.InitialDelay = cfg.InitialDelay()
	}
	if cfg.BackoffFactor > 0 {
		policy.BackoffFactor = cfg.BackoffFactor
	}
	if cfg.MaxDelayMS > 0 {
		policy.MaxDelay = cfg.MaxDelay()
	}
	if cfg.JitterMaxMS > 0 {
		policy.JitterMax = cfg.JitterMax()
	}
	if cfg.AttemptTimeoutMS > 0 {
		policy.AttemptTimeout = cfg.AttemptTimeout()
	}
	return policy
}
