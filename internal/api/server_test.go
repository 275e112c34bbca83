// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brendacyc/brendacyc/internal/brenda"
	"github.com/brendacyc/brendacyc/internal/cache"
	"github.com/brendacyc/brendacyc/internal/config"
	"github.com/brendacyc/brendacyc/internal/health"
	"github.com/brendacyc/brendacyc/internal/jobs"
	"github.com/brendacyc/brendacyc/internal/store"
)

type staticProvider struct {
	cfg config.AppConfig
}

func (p staticProvider) Current() config.AppConfig { return p.cfg }

var testRecords = []brenda.Record{
	{EC: "1.1.1.1", Field: "PROTEIN", Description: "PR\t#1# Homo sapiens <1>"},
	{EC: "1.1.1.1", Field: "RECOMMENDED_NAME", Description: "RN\talcohol dehydrogenase"},
	{EC: "1.1.1.2", Field: "RECOMMENDED_NAME", Description: "RN\talcohol dehydrogenase (NADP+)"},
}

func newTestServer(t *testing.T, mutate func(*config.AppConfig)) (*Server, *httptest.Server) {
	t.Helper()

	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })

	snap := store.Snapshot{
		ImportID:   "test-import",
		Source:     "brenda_download.txt",
		ImportedAt: time.Now().UTC(),
		Enzymes:    2,
		Records:    len(testRecords),
	}
	require.NoError(t, st.ReplaceRecords(context.Background(), snap, testRecords))

	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.RateLimitEnabled = false
	if mutate != nil {
		mutate(&cfg)
	}

	hm := health.NewManager("test")
	hm.RegisterChecker(health.CheckFunc{CheckerName: "store", Fn: st.Ping})

	srv := New(staticProvider{cfg: cfg}, st, cache.NewNoOpCache(), hm)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestHealthEndpoints(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var hr health.HealthResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", &hr))
	assert.Equal(t, health.StatusHealthy, hr.Status)

	var rr health.ReadinessResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/readyz", &rr))
	assert.True(t, rr.Ready)
}

func TestStatus(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.SetLastStatus(&jobs.Status{ImportID: "test-import", Records: 3})

	var resp statusResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/status", &resp))
	require.NotNil(t, resp.Snapshot)
	assert.Equal(t, "test-import", resp.Snapshot.ImportID)
	require.NotNil(t, resp.LastImport)
	assert.Equal(t, 3, resp.LastImport.Records)
}

func TestFields(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var resp struct {
		Fields []string `json:"fields"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/fields", &resp))
	assert.Len(t, resp.Fields, 44)
	assert.Contains(t, resp.Fields, "KM_VALUE")
}

func TestGetEnzyme(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var resp enzymeResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/enzymes/1.1.1.1", &resp))
	assert.Equal(t, "1.1.1.1", resp.EC)
	assert.Len(t, resp.Records, 2)
}

func TestGetEnzymeNotFound(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var body errorBody
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/enzymes/9.9.9.9", &body))
	assert.Equal(t, codeNotFound, body.Code)
}

func TestGetEnzymeInvalidEC(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var body errorBody
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/v1/enzymes/not-an-ec", &body))
	assert.Equal(t, codeInvalidEC, body.Code)
}

func TestGetEnzymePreliminaryEC(t *testing.T) {
	_, ts := newTestServer(t, nil)

	// preliminary EC numbers carry an "n" serial and pass validation
	var body errorBody
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/enzymes/1.1.1.n1", &body))
	assert.Equal(t, codeNotFound, body.Code)
}

func TestGetEnzymeField(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var rec brenda.Record
	code := getJSON(t, ts.URL+"/api/v1/enzymes/1.1.1.1/RECOMMENDED_NAME", &rec)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "RN\talcohol dehydrogenase", rec.Description)
}

func TestGetEnzymeFieldUnknownKeyword(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var body errorBody
	code := getJSON(t, ts.URL+"/api/v1/enzymes/1.1.1.1/NOT_A_FIELD", &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, codeUnknownField, body.Code)
}

func TestSearch(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var resp searchResponse
	code := getJSON(t, ts.URL+"/api/v1/search?q=dehydrogenase", &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, resp.Count)

	// case-insensitive
	code = getJSON(t, ts.URL+"/api/v1/search?q=DEHYDROGENASE&limit=1", &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, resp.Count)
}

func TestSearchRequiresQuery(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var body errorBody
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/v1/search", &body))
	assert.Equal(t, codeMissingQuery, body.Code)
}

func TestImportConflict(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.importFn = func(context.Context, config.AppConfig, *store.Store) (*jobs.Status, error) {
		return nil, jobs.ErrImportRunning
	}

	resp, err := http.Post(ts.URL+"/api/v1/import", "", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestImportSuccessUpdatesStatus(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.importFn = func(context.Context, config.AppConfig, *store.Store) (*jobs.Status, error) {
		return &jobs.Status{ImportID: "manual-run", Records: 7}, nil
	}

	resp, err := http.Post(ts.URL+"/api/v1/import", "", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	last := srv.getLastStatus()
	require.NotNil(t, last)
	assert.Equal(t, "manual-run", last.ImportID)
}

func TestImportFailure(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.importFn = func(context.Context, config.AppConfig, *store.Store) (*jobs.Status, error) {
		return nil, errors.New("parse failed")
	}

	resp, err := http.Post(ts.URL+"/api/v1/import", "", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestImportDetachedFromRequestContext(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	srv.importFn = func(ctx context.Context, _ config.AppConfig, _ *store.Store) (*jobs.Status, error) {
		// a disconnected client must not cancel the import
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &jobs.Status{ImportID: "detached-run"}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	srv.handleImport(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	last := srv.getLastStatus()
	require.NotNil(t, last)
	assert.Equal(t, "detached-run", last.ImportID)
}

func TestImportAuth(t *testing.T) {
	srv, ts := newTestServer(t, func(cfg *config.AppConfig) {
		cfg.APIToken = "secret-token"
	})
	srv.importFn = func(context.Context, config.AppConfig, *store.Store) (*jobs.Status, error) {
		return &jobs.Status{ImportID: "authorized"}, nil
	}

	// missing token
	resp, err := http.Post(ts.URL+"/api/v1/import", "", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// wrong token
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/import", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// correct token
	req, err = http.NewRequest(http.MethodPost, ts.URL+"/api/v1/import", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFilesServesExports(t *testing.T) {
	var dataDir string
	_, ts := newTestServer(t, func(cfg *config.AppConfig) {
		dataDir = cfg.DataDir
	})
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "enzymes.json"), []byte(`[]`), 0o600))

	resp, err := http.Get(ts.URL + "/files/enzymes.json")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestFilesRejectsTraversal(t *testing.T) {
	_, ts := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/files/"+"%2e%2e%2fetc%2fpasswd", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestFilesNotFound(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/files/missing.tsv")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestIDHeader(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/v1/fields")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
