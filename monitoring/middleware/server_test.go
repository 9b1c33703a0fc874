package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusRecorderCapturesExplicitStatus(t *testing.T) {
	recorder := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	recorder.WriteHeader(http.StatusNotFound)
	if recorder.status != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", recorder.status, http.StatusNotFound)
	}
}

func TestServerMiddlewarePassesResponseThrough(t *testing.T) {
	wrapped := NewServerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	response := httptest.NewRecorder()
	wrapped.ServeHTTP(response, httptest.NewRequest("GET", "/posts", nil))

	if response.Code != http.StatusTeapot {
		t.Errorf("code: got %d, want %d", response.Code, http.StatusTeapot)
	}
	if response.Body.String() != "short and stout" {
		t.Errorf("body: got %q", response.Body.String())
	}
}

// Handlers that never call WriteHeader must still count as 200.
func TestServerMiddlewareDefaultsToOK(t *testing.T) {
	recorder := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).ServeHTTP(recorder, httptest.NewRequest("GET", "/", nil))

	if recorder.status != http.StatusOK {
		t.Errorf("status: got %d, want %d", recorder.status, http.StatusOK)
	}
}
