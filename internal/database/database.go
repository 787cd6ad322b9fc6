package database

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/kkkkikiki/leadcrm/internal/config"
)

// DB wraps the Postgres pool shared by every repository. The claim
// arbitration relies on Postgres row-level semantics, so there is a
// single pool and no secondary store.
type DB struct {
	Postgres *sqlx.DB
}

// NewDB opens the Postgres pool, applies the configured pool bounds and
// verifies the connection before returning.
func NewDB(ctx context.Context, cfg *config.Config) (*DB, error) {
	postgres, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	postgres.SetMaxOpenConns(cfg.Database.MaxConns)
	postgres.SetMaxIdleConns(cfg.Database.MinConns)
	postgres.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime())

	if err := postgres.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	log.Printf("Connected to PostgreSQL (pool max=%d idle=%d)",
		cfg.Database.MaxConns, cfg.Database.MinConns)

	return &DB{Postgres: postgres}, nil
}

// Close closes the Postgres pool.
func (db *DB) Close() error {
	if err := db.Postgres.Close(); err != nil {
		return fmt.Errorf("failed to close PostgreSQL: %w", err)
	}
	return nil
}
