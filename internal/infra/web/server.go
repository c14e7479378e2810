// File: internal/infra/web/server.go
package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"interpretation-booking/internal/infra/logging"
	"interpretation-booking/internal/infra/metrics"
	"interpretation-booking/internal/usecase"
)

type Server struct {
	uc     *usecase.BookingUseCase
	apiKey string
	log    *zerolog.Logger
}

func NewServer(uc *usecase.BookingUseCase, apiKey string, logger *zerolog.Logger) *Server {
	return &Server{
		uc:     uc,
		apiKey: apiKey,
		log:    logger,
	}
}

// RegisterRoutes sets up the routing for the booking API.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// All booking routes sit behind the auth middleware.
	bookings := s.authMiddleware(s.observe("bookings", s.bookingsRouter()))
	mux.Handle("/api/v1/bookings", bookings)
	mux.Handle("/api/v1/bookings/", bookings)

	translators := s.authMiddleware(s.observe("translators", s.translatorsRouter()))
	mux.Handle("/api/v1/translators/", translators)

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// authMiddleware provides simple Bearer token authentication for the API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) observe(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		metrics.ObserveHTTP(route, rec.status, float64(time.Since(start).Milliseconds()))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

// bookingsRouter acts as a sub-router for /api/v1/bookings.
func (s *Server) bookingsRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings")
		path = strings.Trim(path, "/")

		// Route /api/v1/bookings (no ID)
		if path == "" {
			switch r.Method {
			case http.MethodGet:
				bookingsListHandler(s.uc)(w, r)
			case http.MethodPost:
				bookingCreateHandler(s.uc)(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		// Route /api/v1/bookings/{id} and /api/v1/bookings/{id}/{action}
		id, action, _ := strings.Cut(path, "/")
		r = r.WithContext(logging.WithJobID(r.Context(), id))
		logging.With(r.Context(), s.log).Debug().Str("action", action).Msg("booking request")

		if action == "" {
			switch r.Method {
			case http.MethodPatch:
				adminUpdateHandler(s.uc, id)(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		if action == "session" && r.Method == http.MethodPatch {
			sessionUpdateHandler(s.uc, id)(w, r)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		switch action {
		case "accept":
			acceptHandler(s.uc, id)(w, r)
		case "cancel":
			cancelHandler(s.uc, id)(w, r)
		case "complete":
			completeHandler(s.uc, id)(w, r)
		case "reassign":
			reassignHandler(s.uc, id)(w, r)
		case "reopen":
			reopenHandler(s.uc, id)(w, r)
		case "not-carried-out":
			notCarriedOutHandler(s.uc, id)(w, r)
		case "timeout":
			timeoutHandler(s.uc, id)(w, r)
		case "email":
			storeEmailHandler(s.uc, id)(w, r)
		case "resend":
			resendHandler(s.uc, id, false)(w, r)
		case "resend-sms":
			resendHandler(s.uc, id, true)(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// translatorsRouter serves /api/v1/translators/{id}/jobs.
func (s *Server) translatorsRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/translators/")
		id, rest, _ := strings.Cut(strings.Trim(path, "/"), "/")
		if id == "" || rest != "jobs" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		r = r.WithContext(logging.WithTranslatorID(r.Context(), id))
		logging.With(r.Context(), s.log).Debug().Msg("translator jobs request")
		potentialJobsHandler(s.uc, id)(w, r)
	})
}
