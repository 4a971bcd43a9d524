package sqlstore

import (
	"testing"
	"time"
)

func TestPostgresSettingsDefaults(t *testing.T) {
	settings := PostgresSettings{DSN: "postgres://localhost/payments"}
	if settings.GetDriver() != "postgres" {
		t.Fatalf("expected postgres driver, got %q", settings.GetDriver())
	}
	if settings.GetPingTimeout() != 5*time.Second {
		t.Fatalf("expected default ping timeout, got %s", settings.GetPingTimeout())
	}
	if settings.GetOtelIdentifier() != "go-payments" {
		t.Fatalf("expected default otel identifier, got %q", settings.GetOtelIdentifier())
	}

	settings.PingTimeout = time.Second
	settings.OtelIdentifier = "payments-api"
	if settings.GetPingTimeout() != time.Second {
		t.Fatalf("expected overridden ping timeout, got %s", settings.GetPingTimeout())
	}
	if settings.GetOtelIdentifier() != "payments-api" {
		t.Fatalf("expected overridden otel identifier, got %q", settings.GetOtelIdentifier())
	}
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	if _, err := OpenPostgres(PostgresSettings{}); err == nil {
		t.Fatalf("expected error for missing dsn")
	}
}
