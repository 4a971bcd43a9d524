package core

import (
	"fmt"
	"strings"
	"time"
)

const DefaultSignatureHeader = "X-Payment-Signature"

type SenderConfig struct {
	URL   string `koanf:"url" mapstructure:"url"`
	Token string `koanf:"token" mapstructure:"token"`
}

type ConversionsConfig struct {
	URL         string `koanf:"url" mapstructure:"url"`
	PixelID     string `koanf:"pixel_id" mapstructure:"pixel_id"`
	AccessToken string `koanf:"access_token" mapstructure:"access_token"`
}

// RetryConfig tunes the outbound retry wrapper. Durations are milliseconds so
// the values survive flat key/value configuration sources.
type RetryConfig struct {
	MaxRetries       int     `koanf:"max_retries" mapstructure:"max_retries"`
	InitialDelayMS   int     `koanf:"initial_delay_ms" mapstructure:"initial_delay_ms"`
	BackoffFactor    float64 `koanf:"backoff_factor" mapstructure:"backoff_factor"`
	MaxDelayMS       int     `koanf:"max_delay_ms" mapstructure:"max_delay_ms"`
	JitterMaxMS      int     `koanf:"jitter_max_ms" mapstructure:"jitter_max_ms"`
	AttemptTimeoutMS int     `koanf:"attempt_timeout_ms" mapstructure:"attempt_timeout_ms"`
}

type DedupConfig struct {
	MaxEntries int `koanf:"max_entries" mapstructure:"max_entries"`
	TTLMinutes int `koanf:"ttl_minutes" mapstructure:"ttl_minutes"`
}

func (c RetryConfig) InitialDelay() time.Duration {
	return time.Duration(c.InitialDelayMS) * time.Millisecond
}

func (c RetryConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMS) * time.Millisecond
}

func (c RetryConfig) JitterMax() time.Duration {
	return time.Duration(c.JitterMaxMS) * time.Millisecond
}

func (c RetryConfig) AttemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutMS) * time.Millisecond
}

func (c DedupConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

type Config struct {
	ServiceName     string            `koanf:"service_name" mapstructure:"service_name"`
	SigningSecret   string            `koanf:"signing_secret" mapstructure:"signing_secret"`
	SignatureHeader string            `koanf:"signature_header" mapstructure:"signature_header"`
	Automation      SenderConfig      `koanf:"automation" mapstructure:"automation"`
	Conversions     ConversionsConfig `koanf:"conversions" mapstructure:"conversions"`
	Retry           RetryConfig       `koanf:"retry" mapstructure:"retry"`
	Dedup           DedupConfig       `koanf:"dedup" mapstructure:"dedup"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:     "payments",
		SignatureHeader: DefaultSignatureHeader,
		Retry: RetryConfig{
			MaxRetries:       3,
			InitialDelayMS:   500,
			BackoffFactor:    2,
			MaxDelayMS:       10_000,
			JitterMaxMS:      250,
			AttemptTimeoutMS: 10_000,
		},
		Dedup: DedupConfig{
			MaxEntries: 1000,
			TTLMinutes: 24 * 60,
		},
	}
}

// Validate intentionally does not require SigningSecret: a missing secret
// must fail verification closed at request time, not crash startup.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("core: retry.max_retries must not be negative")
	}
	if c.Retry.BackoffFactor != 0 && c.Retry.BackoffFactor < 1 {
		return fmt.Errorf("core: retry.backoff_factor must be at least 1")
	}
	if c.Dedup.MaxEntries < 0 {
		return fmt.Errorf("core: dedup.max_entries must not be negative")
	}
	return nil
}
