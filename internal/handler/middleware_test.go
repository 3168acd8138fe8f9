package handler

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
)

func TestRequestLogger(t *testing.T) {
	logger := NewMockHandlerLogger()
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if !slices.Contains(logger.Messages(), "Request handled") {
		t.Fatalf("expected the request to be logged, got %v", logger.Messages())
	}
}

func TestRequestLogger_ServerError(t *testing.T) {
	logger := NewMockHandlerLogger()
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusInternalServerError, "boom")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !slices.Contains(logger.Messages(), "Request failed") {
		t.Fatalf("expected a failed request entry, got %v", logger.Messages())
	}
}

func TestRecoverer(t *testing.T) {
	logger := NewMockHandlerLogger()
	h := Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	if !slices.Contains(logger.Messages(), "Recovered from handler panic") {
		t.Fatalf("expected the panic to be logged, got %v", logger.Messages())
	}
}
