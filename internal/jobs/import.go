// SPDX-License-Identifier: MIT

// Package jobs runs the import pipeline: parse the BRENDA dump, persist
// the records and write the configured exports.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/brendacyc/brendacyc/internal/brenda"
	"github.com/brendacyc/brendacyc/internal/config"
	"github.com/brendacyc/brendacyc/internal/export"
	"github.com/brendacyc/brendacyc/internal/log"
	"github.com/brendacyc/brendacyc/internal/metrics"
	"github.com/brendacyc/brendacyc/internal/store"
)

// ErrImportRunning is returned when another import holds the lease.
var ErrImportRunning = errors.New("jobs: import already running")

// Status reports the outcome of the last import run.
type Status struct {
	ImportID string    `json:"import_id"`
	LastRun  time.Time `json:"last_run"`
	Enzymes  int       `json:"enzymes"`
	Records  int       `json:"records"`
	Error    string    `json:"error,omitempty"`
}

// Import parses cfg.BrendaFile and replaces the store contents with the
// result. Exports run concurrently after the store write.
func Import(ctx context.Context, cfg config.AppConfig, st *store.Store) (*Status, error) {
	start := time.Now()
	status, err := runImport(ctx, cfg, st)
	metrics.RecordImport(err, time.Since(start))
	return status, err
}

func runImport(ctx context.Context, cfg config.AppConfig, st *store.Store) (*Status, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	importID := uuid.NewString()
	ctx = log.ContextWithImportID(ctx, importID)
	logger := log.WithComponentFromContext(ctx, "jobs")
	logger.Info().
		Str("event", "import.start").
		Str("source", cfg.BrendaFile).
		Msg("starting import")

	if err := st.TryAcquireImportLease(ctx, importID, cfg.ImportLeaseTTL); err != nil {
		if errors.Is(err, store.ErrImportLeaseHeld) {
			return nil, ErrImportRunning
		}
		return nil, fmt.Errorf("acquire import lease: %w", err)
	}
	defer func() {
		if err := st.ReleaseImportLease(ctx, importID); err != nil {
			logger.Warn().Err(err).Msg("failed to release import lease")
		}
	}()

	doc, err := brenda.ParseFile(cfg.BrendaFile)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	records := doc.Records
	if cfg.CleanEC {
		records = brenda.CleanECNumbers(records)
	}

	transferred := 0
	for _, rec := range records {
		if rec.Field == brenda.FieldTransferredDeleted {
			transferred++
		}
	}

	snap := store.Snapshot{
		ImportID:   importID,
		Source:     filepath.Base(cfg.BrendaFile),
		ImportedAt: time.Now().UTC(),
		Enzymes:    doc.Enzymes,
		Records:    len(records),
	}
	if err := st.ReplaceRecords(ctx, snap, records); err != nil {
		return nil, fmt.Errorf("store records: %w", err)
	}

	logger.Info().
		Str("event", "import.stored").
		Int("records", len(records)).
		Int("enzymes", doc.Enzymes).
		Int("transferred_deleted", transferred).
		Msg("records stored")

	if err := writeExports(ctx, cfg, records); err != nil {
		return nil, err
	}

	metrics.SetImportSizes(len(records), doc.Enzymes, transferred)

	status := &Status{
		ImportID: importID,
		LastRun:  snap.ImportedAt,
		Enzymes:  doc.Enzymes,
		Records:  len(records),
	}
	logger.Info().
		Str("event", "import.success").
		Int("records", status.Records).
		Dur("elapsed", time.Since(snap.ImportedAt)).
		Msg("import completed")
	return status, nil
}

func writeExports(ctx context.Context, cfg config.AppConfig, records []brenda.Record) error {
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.ExportJSON {
		g.Go(func() error {
			err := export.WriteJSON(gctx, filepath.Join(cfg.DataDir, "enzymes.json"), records)
			metrics.RecordExport(export.FormatJSON, err)
			if err != nil {
				return fmt.Errorf("JSON export: %w", err)
			}
			return nil
		})
	}
	if cfg.ExportTSV {
		g.Go(func() error {
			err := export.WriteTSV(gctx, filepath.Join(cfg.DataDir, "enzymes.tsv"), records)
			metrics.RecordExport(export.FormatTSV, err)
			if err != nil {
				return fmt.Errorf("TSV export: %w", err)
			}
			return nil
		})
	}
	if cfg.ExportSQLite {
		g.Go(func() error {
			err := export.WriteSQLite(gctx, filepath.Join(cfg.DataDir, "enzymes.db"), records)
			metrics.RecordExport(export.FormatSQLite, err)
			if err != nil {
				return fmt.Errorf("SQLite export: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func validateConfig(cfg config.AppConfig) error {
	if strings.TrimSpace(cfg.BrendaFile) == "" {
		return fmt.Errorf("brenda file path is empty")
	}
	info, err := os.Stat(cfg.BrendaFile)
	if err != nil {
		return fmt.Errorf("brenda file %q: %w", cfg.BrendaFile, err)
	}
	if info.IsDir() {
		return fmt.Errorf("brenda file %q is a directory", cfg.BrendaFile)
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("data dir is empty")
	}
	return nil
}
