// SPDX-License-Identifier: MIT

package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/brendacyc/brendacyc/internal/brenda"
	"github.com/brendacyc/brendacyc/internal/log"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	ec          TEXT NOT NULL,
	field       TEXT NOT NULL,
	description TEXT NOT NULL,
	PRIMARY KEY (ec, field)
);
CREATE INDEX IF NOT EXISTS idx_records_ec ON records (ec);
`

// WriteSQLite writes records into a fresh SQLite database at path. An
// existing database is replaced.
func WriteSQLite(ctx context.Context, path string, records []brenda.Record) error {
	logger := log.WithComponentFromContext(ctx, "export")

	// Rebuild from scratch so stale records never survive an import.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old SQLite export: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open SQLite export: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Warn().Err(cerr).Str("path", path).Msg("failed to close SQLite export")
		}
	}()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create SQLite schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin SQLite transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO records (ec, field, description) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare SQLite insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.EC, rec.Field, rec.Description); err != nil {
			return fmt.Errorf("insert record %s/%s: %w", rec.EC, rec.Field, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit SQLite transaction: %w", err)
	}

	logger.Info().
		Str("event", "export.sqlite").
		Str("path", path).
		Int("records", len(records)).
		Msg("SQLite export written")
	return nil
}
