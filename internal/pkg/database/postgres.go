package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/reviewhub/catalog-reviews/internal/config"
)

// NewPostgresDB opens a pooled connection and verifies it with a ping.
func NewPostgresDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// WaitForDB retries the connection until it succeeds or attempts run out,
// covering the window where the container starts before the database.
func WaitForDB(cfg *config.Config, attempts int, delay time.Duration) (*sqlx.DB, error) {
	var lastErr error

	for i := 0; i < attempts; i++ {
		db, err := NewPostgresDB(cfg)
		if err == nil {
			return db, nil
		}
		lastErr = err

		if i < attempts-1 {
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("database not reachable after %d attempts: %w", attempts, lastErr)
}
