// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
)

// errorBody is the JSON error envelope returned by all API endpoints.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	codeUnauthorized  = "unauthorized"
	codeNotFound      = "not_found"
	codeInternal      = "internal_error"
	codeImportRunning = "import_running"
	codeInvalidEC     = "invalid_ec_number"
	codeUnknownField  = "unknown_field"
	codeMissingQuery  = "missing_query"
	codeForbiddenPath = "forbidden_path"
	codeNoSnapshot    = "no_snapshot"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes the JSON error envelope.
func respondError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}
