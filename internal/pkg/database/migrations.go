package database

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
)

// RunMigrations applies the schema files in order. Every statement uses
// IF NOT EXISTS, so running this on every startup is safe.
func RunMigrations(db *sqlx.DB) error {
	migrations := []string{
		"migrations/000001_create_products_table.up.sql",
		"migrations/000002_create_reviews_table.up.sql",
		"migrations/000003_create_review_votes_table.up.sql",
		"migrations/000004_add_performance_indexes.up.sql",
	}

	for _, path := range migrations {
		sql, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", path, err)
		}

		if err := applyMigration(db, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", path, err)
		}
	}

	return nil
}

func applyMigration(db *sqlx.DB, sql string) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(sql); err != nil {
		return err
	}

	return tx.Commit()
}
