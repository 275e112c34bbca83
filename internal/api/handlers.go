// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brendacyc/brendacyc/internal/brenda"
	"github.com/brendacyc/brendacyc/internal/fsutil"
	"github.com/brendacyc/brendacyc/internal/jobs"
	"github.com/brendacyc/brendacyc/internal/log"
	"github.com/brendacyc/brendacyc/internal/metrics"
	"github.com/brendacyc/brendacyc/internal/store"
)

// ecPattern accepts standard EC numbers, including preliminary ones with
// an "n" in the serial position (e.g. 1.1.1.n1).
var ecPattern = regexp.MustCompile(`^\d+\.\d+\.\d+\.n?\d+$`)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 500
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := s.health.Health(r.Context())
	status := http.StatusOK
	if resp.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	resp := s.health.Ready(r.Context())
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

type statusResponse struct {
	Version    string          `json:"version,omitempty"`
	UptimeSecs int64           `json:"uptime_seconds"`
	Snapshot   *store.Snapshot `json:"snapshot,omitempty"`
	LastImport *jobs.Status    `json:"last_import,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(r.Context())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusInternalServerError, codeInternal, "failed to read snapshot")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Version:    s.cfg().Version,
		UptimeSecs: int64(time.Since(s.startTime).Seconds()),
		Snapshot:   snap,
		LastImport: s.getLastStatus(),
	})
}

func (s *Server) handleFields(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"fields": brenda.Fields()})
}

type enzymeResponse struct {
	EC      string          `json:"ec"`
	Records []brenda.Record `json:"records"`
}

func (s *Server) handleEnzyme(w http.ResponseWriter, r *http.Request) {
	ec := chi.URLParam(r, "ec")
	if !ecPattern.MatchString(ec) {
		respondError(w, http.StatusBadRequest, codeInvalidEC, "malformed EC number")
		return
	}

	cacheKey := "enzyme:" + ec
	if recs, ok := s.cache.Get(cacheKey); ok {
		metrics.RecordCacheLookup(true)
		writeJSON(w, http.StatusOK, enzymeResponse{EC: ec, Records: recs})
		return
	}
	metrics.RecordCacheLookup(false)

	recs, err := s.store.GetEnzyme(r.Context(), ec)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "unknown EC number")
			return
		}
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("enzyme lookup failed")
		respondError(w, http.StatusInternalServerError, codeInternal, "lookup failed")
		return
	}

	s.cache.Set(cacheKey, recs, s.cfg().CacheTTL)
	writeJSON(w, http.StatusOK, enzymeResponse{EC: ec, Records: recs})
}

func (s *Server) handleEnzymeField(w http.ResponseWriter, r *http.Request) {
	ec := chi.URLParam(r, "ec")
	field := chi.URLParam(r, "field")

	if !ecPattern.MatchString(ec) {
		respondError(w, http.StatusBadRequest, codeInvalidEC, "malformed EC number")
		return
	}
	if !brenda.IsField(field) {
		respondError(w, http.StatusBadRequest, codeUnknownField, "unknown field keyword")
		return
	}

	rec, err := s.store.GetField(r.Context(), ec, field)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "no such record")
			return
		}
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("field lookup failed")
		respondError(w, http.StatusInternalServerError, codeInternal, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

type searchResponse struct {
	Query   string          `json:"query"`
	Count   int             `json:"count"`
	Records []brenda.Record `json:"records"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, codeMissingQuery, "query parameter q is required")
		return
	}

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, codeMissingQuery, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	recs, err := s.store.Search(r.Context(), query, limit)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("search failed")
		respondError(w, http.StatusInternalServerError, codeInternal, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Query: query, Count: len(recs), Records: recs})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	// A client disconnect must not abort a half-finished import.
	ctx := context.WithoutCancel(r.Context())
	status, err := s.importFn(ctx, s.cfg(), s.store)
	if err != nil {
		if errors.Is(err, jobs.ErrImportRunning) {
			respondError(w, http.StatusConflict, codeImportRunning, "an import is already running")
			return
		}
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("import failed")
		respondError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	s.SetLastStatus(status)
	// cached lookups may now be stale
	s.cache.Clear()
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	path, err := fsutil.ConfineRelPath(s.cfg().DataDir, rel)
	if err != nil {
		respondError(w, http.StatusForbidden, codeForbiddenPath, "path escapes the data directory")
		return
	}
	if err := fsutil.IsRegularFile(path); err != nil {
		respondError(w, http.StatusNotFound, codeNotFound, "file not found")
		return
	}

	switch {
	case strings.HasSuffix(path, ".json"):
		w.Header().Set("Content-Type", "application/json")
	case strings.HasSuffix(path, ".tsv"):
		w.Header().Set("Content-Type", "text/tab-separated-values")
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	http.ServeFile(w, r, path)
}
