// SPDX-License-Identifier: MIT

// Package export writes the parsed BRENDA records to files consumers can
// load directly: JSON, TSV and SQLite.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/brendacyc/brendacyc/internal/brenda"
	"github.com/brendacyc/brendacyc/internal/log"
)

// Format names used in metrics and log events.
const (
	FormatJSON   = "json"
	FormatTSV    = "tsv"
	FormatSQLite = "sqlite"
)

// WriteJSON atomically writes records as a JSON array to path.
func WriteJSON(ctx context.Context, path string, records []brenda.Record) error {
	logger := log.WithComponentFromContext(ctx, "export")

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending JSON file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending JSON file")
		}
	}()

	enc := json.NewEncoder(pending)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode JSON records: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace JSON file: %w", err)
	}

	logger.Info().
		Str("event", "export.json").
		Str("path", path).
		Int("records", len(records)).
		Msg("JSON export written")
	return nil
}

// WriteTSV atomically writes records as tab-separated values to path.
// Embedded newlines and tabs in descriptions are escaped so each record
// stays on one line.
func WriteTSV(ctx context.Context, path string, records []brenda.Record) error {
	logger := log.WithComponentFromContext(ctx, "export")

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending TSV file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending TSV file")
		}
	}()

	if _, err := fmt.Fprintln(pending, "ID\tfield\tdescription"); err != nil {
		return fmt.Errorf("write TSV header: %w", err)
	}
	for _, rec := range records {
		if _, err := fmt.Fprintf(pending, "%s\t%s\t%s\n", rec.EC, rec.Field, escapeTSV(rec.Description)); err != nil {
			return fmt.Errorf("write TSV record %s/%s: %w", rec.EC, rec.Field, err)
		}
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace TSV file: %w", err)
	}

	logger.Info().
		Str("event", "export.tsv").
		Str("path", path).
		Int("records", len(records)).
		Msg("TSV export written")
	return nil
}

var tsvEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"\n", "\\n",
	"\t", "\\t",
)

func escapeTSV(s string) string {
	return tsvEscaper.Replace(s)
}

// UnescapeTSV reverses the escaping applied by WriteTSV.
func UnescapeTSV(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
