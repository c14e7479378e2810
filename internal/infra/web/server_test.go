// File: internal/infra/web/server_test.go
package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"interpretation-booking/internal/domain"
)

func newTestServer(apiKey string) (*Server, *http.ServeMux) {
	logger := zerolog.Nop()
	s := NewServer(nil, apiKey, &logger)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s, mux
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("should reject requests without a token", func(t *testing.T) {
		_, mux := newTestServer("secret")
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("should reject a malformed token", func(t *testing.T) {
		_, mux := newTestServer("secret")
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
		req.Header.Set("Authorization", "secret")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("should reject a wrong key", func(t *testing.T) {
		_, mux := newTestServer("secret")
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("should reject everything when no key is configured", func(t *testing.T) {
		_, mux := newTestServer("")
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
		req.Header.Set("Authorization", "Bearer anything")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}

func TestBookingsRouter(t *testing.T) {
	t.Run("should reject unsupported methods on the collection", func(t *testing.T) {
		_, mux := newTestServer("secret")
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings", nil)
		req.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("should 404 an unknown action", func(t *testing.T) {
		_, mux := newTestServer("secret")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/j1/frobnicate", nil)
		req.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("should reject GET on an action route", func(t *testing.T) {
		_, mux := newTestServer("secret")
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/j1/accept", nil)
		req.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
	})
}

func TestHealthz(t *testing.T) {
	_, mux := newTestServer("secret")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHTTPStatusFor(t *testing.T) {
	cases := []struct {
		code domain.OutcomeCode
		want int
	}{
		{domain.CodeNotFound, http.StatusNotFound},
		{domain.CodeAlreadyAssigned, http.StatusConflict},
		{domain.CodeJobLocked, http.StatusConflict},
		{domain.CodeValidationFailed, http.StatusBadRequest},
		{domain.CodePastDueDate, http.StatusBadRequest},
		{domain.CodeCommentRequired, http.StatusBadRequest},
		{domain.CodeTooLateToCancel, http.StatusUnprocessableEntity},
		{domain.CodeIneligibleTranslator, http.StatusUnprocessableEntity},
	}
	for _, c := range cases {
		if got := httpStatusFor(c.code); got != c.want {
			t.Errorf("%s: expected %d, got %d", c.code, c.want, got)
		}
	}
}
