// internal/db/postgres.go
package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type PostgresDB struct {
	DB     *sqlx.DB
	logger logrus.FieldLogger
}

// NewPostgresDB opens a pooled connection through the pgx stdlib driver
// and verifies it with a ping.
func NewPostgresDB(databaseURL string, logger logrus.FieldLogger) (*PostgresDB, error) {
	conn, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Connection pool settings
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to PostgreSQL")
	return &PostgresDB{DB: conn, logger: logger}, nil
}

// Ping reports whether the database answers within ctx.
func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}

func (p *PostgresDB) Close() {
	if p.DB != nil {
		p.DB.Close()
		p.logger.Info("PostgreSQL connection closed")
	}
}
