// SPDX-License-Identifier: MIT

// Package contract verifies that the served API matches the published
// OpenAPI document.
package contract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brendacyc/brendacyc/internal/api"
	"github.com/brendacyc/brendacyc/internal/brenda"
	"github.com/brendacyc/brendacyc/internal/cache"
	"github.com/brendacyc/brendacyc/internal/config"
	"github.com/brendacyc/brendacyc/internal/health"
	"github.com/brendacyc/brendacyc/internal/store"
)

const specPath = "../../api/openapi.yaml"

var (
	openapiOnce sync.Once
	openapiDoc  *openapi3.T
	openapiErr  error
)

func loadOpenAPIDoc(t *testing.T) *openapi3.T {
	t.Helper()
	openapiOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromFile(specPath)
		if err != nil {
			openapiErr = err
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			openapiErr = err
			return
		}
		openapiDoc = doc
	})
	if openapiErr != nil {
		t.Fatalf("openapi load failed: %v", openapiErr)
	}
	return openapiDoc
}

type staticProvider struct {
	cfg config.AppConfig
}

func (p staticProvider) Current() config.AppConfig { return p.cfg }

func newContractServer(t *testing.T) http.Handler {
	t.Helper()

	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })

	snap := store.Snapshot{
		ImportID:   "contract",
		Source:     "brenda_download.txt",
		ImportedAt: time.Now().UTC(),
		Enzymes:    1,
		Records:    1,
	}
	recs := []brenda.Record{
		{EC: "1.1.1.1", Field: "RECOMMENDED_NAME", Description: "RN\talcohol dehydrogenase"},
	}
	require.NoError(t, st.ReplaceRecords(context.Background(), snap, recs))

	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.RateLimitEnabled = false

	hm := health.NewManager("contract")
	srv := api.New(staticProvider{cfg: cfg}, st, cache.NewNoOpCache(), hm)
	return srv.Handler()
}

func TestOpenAPIDocumentIsValid(t *testing.T) {
	loadOpenAPIDoc(t)
}

func TestServedRoutesMatchDocument(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	router, err := legacy.NewRouter(doc)
	require.NoError(t, err)

	handler := newContractServer(t)

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/api/v1/status", http.StatusOK},
		{http.MethodGet, "/api/v1/fields", http.StatusOK},
		{http.MethodGet, "/api/v1/enzymes/1.1.1.1", http.StatusOK},
		{http.MethodGet, "/api/v1/enzymes/1.1.1.1/RECOMMENDED_NAME", http.StatusOK},
		{http.MethodGet, "/api/v1/search?q=alcohol", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "http://localhost:8080"+tc.path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

			// the route must exist in the document
			route, _, err := router.FindRoute(req)
			require.NoError(t, err, "route missing from openapi document")
			require.NotNil(t, route)
		})
	}
}

func TestErrorEnvelopeDocumented(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	schema, ok := doc.Components.Schemas["ErrorBody"]
	require.True(t, ok, "ErrorBody schema missing")
	assert.Contains(t, schema.Value.Required, "error")
	assert.Contains(t, schema.Value.Required, "code")
}
