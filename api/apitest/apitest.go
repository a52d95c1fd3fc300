// Package apitest holds request and envelope helpers for handler tests.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/outre-records/inventory-core/pkg/types"
)

// Request builds a request carrying chi URL params given as name/value pairs.
func Request(t *testing.T, method, target string, body any, params ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("encode body: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if len(params)%2 != 0 {
		t.Fatalf("params must be name/value pairs")
	}
	rc := chi.NewRouteContext()
	for i := 0; i < len(params); i += 2 {
		rc.URLParams.Add(params[i], params[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

// Serve runs the handler against req and returns the recorder.
func Serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// Data decodes the success envelope of rec into T and fails on a non-expected status.
func Data[T any](t *testing.T, rec *httptest.ResponseRecorder, status int) T {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d got %d: %s", status, rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data T `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

// ErrorCode returns the error code of an error envelope after checking the status.
func ErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int) string {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d got %d: %s", status, rec.Code, rec.Body.String())
	}
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return envelope.Error.Code
}
