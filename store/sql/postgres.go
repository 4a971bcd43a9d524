package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// PostgresSettings configures the shared connection pool for the payment
// event tables. It satisfies the go-persistence-bun config contract so it
// can be handed straight to the client constructor.
type PostgresSettings struct {
	DSN             string
	Debug           bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
	OtelIdentifier  string
}

func (s PostgresSettings) GetDebug() bool { return s.Debug }

func (s PostgresSettings) GetDriver() string { return "postgres" }

func (s PostgresSettings) GetServer() string { return s.DSN }

func (s PostgresSettings) GetPingTimeout() time.Duration {
	if s.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return s.PingTimeout
}

func (s PostgresSettings) GetOtelIdentifier() string {
	if strings.TrimSpace(s.OtelIdentifier) == "" {
		return "go-payments"
	}
	return s.OtelIdentifier
}

// OpenPostgres opens a pooled postgres connection and wraps it in a
// persistence client ready for NewRepositoryFactory.
func OpenPostgres(settings PostgresSettings) (*persistence.Client, error) {
	if strings.TrimSpace(settings.DSN) == "" {
		return nil, fmt.Errorf("sqlstore: postgres dsn is required")
	}
	sqlDB, err := sql.Open("postgres", settings.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
	}

	maxOpen := settings.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := settings.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = maxOpen
	}
	lifetime := settings.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)

	client, err := persistence.New(settings, sqlDB, pgdialect.New())
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	return client, nil
}
