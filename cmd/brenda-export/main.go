// SPDX-License-Identifier: MIT

// Command brenda-export converts a BRENDA flat-file dump into JSON, TSV
// or SQLite without running the daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brendacyc/brendacyc/internal/brenda"
	"github.com/brendacyc/brendacyc/internal/export"
	bclog "github.com/brendacyc/brendacyc/internal/log"
)

var version = "v1.0.0"

func main() {
	input := flag.String("input", "", "path to the BRENDA dump (required)")
	outDir := flag.String("out", ".", "output directory")
	formats := flag.String("formats", "json,tsv", "comma separated list: json, tsv, sqlite")
	clean := flag.Bool("clean", true, "normalize transferred/deleted EC numbers")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	bclog.Configure(bclog.Config{Level: "info", Service: "brenda-export", Version: version})
	logger := bclog.WithComponent("export")

	if strings.TrimSpace(*input) == "" {
		logger.Fatal().Msg("missing -input flag")
	}

	doc, err := brenda.ParseFile(*input)
	if err != nil {
		logger.Fatal().Err(err).Str("input", *input).Msg("parse failed")
	}

	records := doc.Records
	if *clean {
		records = brenda.CleanECNumbers(records)
	}
	logger.Info().
		Int("records", len(records)).
		Int("enzymes", doc.Enzymes).
		Msg("parsed dump")

	if err := os.MkdirAll(*outDir, 0o750); err != nil {
		logger.Fatal().Err(err).Str("dir", *outDir).Msg("failed to create output dir")
	}

	ctx := context.Background()
	for _, format := range strings.Split(*formats, ",") {
		format = strings.TrimSpace(strings.ToLower(format))
		if format == "" {
			continue
		}

		var (
			path string
			err  error
		)
		switch format {
		case export.FormatJSON:
			path = filepath.Join(*outDir, "enzymes.json")
			err = export.WriteJSON(ctx, path, records)
		case export.FormatTSV:
			path = filepath.Join(*outDir, "enzymes.tsv")
			err = export.WriteTSV(ctx, path, records)
		case export.FormatSQLite:
			path = filepath.Join(*outDir, "enzymes.db")
			err = export.WriteSQLite(ctx, path, records)
		default:
			logger.Fatal().Str("format", format).Msg("unknown format")
		}
		if err != nil {
			logger.Fatal().Err(err).Str("format", format).Msg("export failed")
		}
		logger.Info().Str("format", format).Str("path", path).Msg("export written")
	}
}
