// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/brendacyc/brendacyc/internal/config"
	"github.com/brendacyc/brendacyc/internal/log"
	"github.com/brendacyc/brendacyc/internal/store"
)

// Watcher re-imports when the BRENDA source file changes on disk.
type Watcher struct {
	cfg      func() config.AppConfig
	st       *store.Store
	debounce time.Duration
	importFn func(context.Context, config.AppConfig, *store.Store) (*Status, error)
	onStatus func(*Status, error)
}

// NewWatcher creates a file watcher. cfg is read at import time so hot
// reloads take effect; onStatus (optional) receives every import outcome.
func NewWatcher(cfg func() config.AppConfig, st *store.Store, onStatus func(*Status, error)) *Watcher {
	return &Watcher{
		cfg:      cfg,
		st:       st,
		debounce: 2 * time.Second,
		importFn: Import,
		onStatus: onStatus,
	}
}

// Start watches the source file until ctx is cancelled. It returns
// immediately after the watch is registered.
func (w *Watcher) Start(ctx context.Context) error {
	path := w.cfg().BrendaFile
	if path == "" {
		return fmt.Errorf("no brenda file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	logger := log.WithComponent("watch")
	logger.Info().
		Str("event", "watch.started").
		Str("path", path).
		Msg("watching brenda file for changes")

	go w.loop(ctx, watcher, logger)
	return nil
}

func (w *Watcher) loop(ctx context.Context, watcher *fsnotify.Watcher, logger zerolog.Logger) {
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close file watcher")
		}
	}()

	// Downloads arrive in many write events; debounce before importing.
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				logger.Debug().
					Str("event", "watch.file_changed").
					Str("op", event.Op.String()).
					Msg("brenda file changed")
				pending = time.After(w.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("file watcher error")
		case <-pending:
			pending = nil
			status, err := w.importFn(ctx, w.cfg(), w.st)
			if err != nil {
				logger.Error().
					Err(err).
					Str("event", "watch.import_failed").
					Msg("re-import after file change failed")
			} else {
				logger.Info().
					Str("event", "watch.import_success").
					Str("import_id", status.ImportID).
					Int("records", status.Records).
					Msg("re-import after file change completed")
			}
			if w.onStatus != nil {
				w.onStatus(status, err)
			}
		}
	}
}
