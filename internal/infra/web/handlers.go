// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"interpretation-booking/internal/domain"
	"interpretation-booking/internal/domain/model"
	"interpretation-booking/internal/domain/ports/repository"
	"interpretation-booking/internal/infra/metrics"
	"interpretation-booking/internal/usecase"
)

// httpStatusFor maps a business rejection onto an HTTP status. Success is
// decided by the caller (200 or 201).
func httpStatusFor(code domain.OutcomeCode) int {
	switch code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeAlreadyAssigned, domain.CodeJobLocked:
		return http.StatusConflict
	case domain.CodeValidationFailed, domain.CodePastDueDate, domain.CodeCommentRequired:
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeOutcome(w http.ResponseWriter, oc domain.Outcome, successStatus int) {
	status := successStatus
	if !oc.OK() {
		status = httpStatusFor(oc.Code)
		metrics.IncRejection(string(oc.Code))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(oc)
}

// A struct to define the expected JSON request body for creating a booking.
type bookingCreateRequest struct {
	CustomerID         string   `json:"customer_id"`
	FromLanguageID     int64    `json:"from_language_id"`
	Immediate          bool     `json:"immediate"`
	DueDate            string   `json:"due_date"` // mm/dd/yyyy
	DueTime            string   `json:"due_time"` // HH:MM
	PhoneEnabled       bool     `json:"phone"`
	PhysicalEnabled    bool     `json:"physical"`
	Duration           int      `json:"duration"`
	Tags               []string `json:"tags"`
	CustomerEmail      string   `json:"customer_email"`
	Reference          string   `json:"reference"`
	Address            string   `json:"address"`
	Town               string   `json:"town"`
	Instructions       string   `json:"instructions"`
	ByAdmin            bool     `json:"by_admin"`
	SpecificTranslator string   `json:"specific_translator_id"`
}

func bookingCreateHandler(uc *usecase.BookingUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req bookingCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.CustomerID == "" {
			http.Error(w, "customer_id is required", http.StatusBadRequest)
			return
		}

		oc, err := uc.CreateBooking(ctx, req.CustomerID, usecase.BookingSpec{
			FromLanguageID:       req.FromLanguageID,
			Immediate:            req.Immediate,
			DueDate:              req.DueDate,
			DueTime:              req.DueTime,
			PhoneEnabled:         req.PhoneEnabled,
			PhysicalEnabled:      req.PhysicalEnabled,
			Duration:             req.Duration,
			Tags:                 req.Tags,
			CustomerEmail:        req.CustomerEmail,
			Reference:            req.Reference,
			Address:              req.Address,
			Town:                 req.Town,
			Instructions:         req.Instructions,
			ByAdmin:              req.ByAdmin,
			SpecificTranslatorID: req.SpecificTranslator,
		})
		if err != nil {
			http.Error(w, "Failed to create booking", http.StatusInternalServerError)
			return
		}
		if oc.OK() {
			jobType := ""
			if data, ok := oc.Data.(map[string]any); ok {
				if jt, ok := data["job_type"].(model.JobType); ok {
					jobType = string(jt)
				}
			}
			metrics.IncBookingCreated(jobType, req.Immediate)
		}
		writeOutcome(w, oc, http.StatusCreated)
	}
}

// bookingsListHandler serves the admin job listing.
// Filters arrive as query parameters, all optional.
func bookingsListHandler(uc *usecase.BookingUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()

		var filter repository.JobFilter
		if v := q.Get("status"); v != "" {
			for _, s := range strings.Split(v, ",") {
				filter.Statuses = append(filter.Statuses, model.JobStatus(strings.TrimSpace(s)))
			}
		}
		filter.LanguageID, _ = strconv.ParseInt(q.Get("language_id"), 10, 64)
		filter.JobType = model.JobType(q.Get("job_type"))
		filter.CustomerID = q.Get("customer_id")
		if v := q.Get("due_from"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				filter.DueFrom = t
			}
		}
		if v := q.Get("due_to"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				filter.DueTo = t
			}
		}
		if v := q.Get("flagged"); v != "" {
			f := v == "true" || v == "1"
			filter.Flagged = &f
		}
		filter.Limit, _ = strconv.Atoi(q.Get("limit"))
		if filter.Limit <= 0 || filter.Limit > 500 {
			filter.Limit = 100
		}

		oc, err := uc.ListJobs(ctx, filter)
		if err != nil {
			http.Error(w, "Failed to list bookings", http.StatusInternalServerError)
			return
		}
		writeOutcome(w, oc, http.StatusOK)
	}
}

type translatorActionRequest struct {
	TranslatorID string `json:"translator_id"`
}

func acceptHandler(uc *usecase.BookingUseCase, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req translatorActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TranslatorID == "" {
			http.Error(w, "translator_id is required", http.StatusBadRequest)
			return
		}

		oc, err := uc.AcceptAssignment(ctx, id, req.TranslatorID)
		if err != nil {
			http.Error(w, "Failed to accept booking", http.StatusInternalServerError)
			return
		}
		if oc.OK() {
			metrics.IncTransition("accept", string(model.JobStatusAssigned))
		} else if oc.Code == domain.CodeAlreadyAssigned {
			metrics.IncAcceptRaceLoss()
		}
		writeOutcome(w, oc, http.StatusOK)
	}
}

// cancelHandler withdraws a booking. A body with a translator_id releases the
// booking back to the pool; an empty body is a customer withdrawal.
func cancelHandler(uc *usecase.BookingUseCase, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req translatorActionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		var oc domain.Outcome
		var err error
		if req.TranslatorID != "" {
			oc, err = uc.CancelByTranslator(ctx, id, req.TranslatorID)
		} else {
			oc, err = uc.CancelByCustomer(ctx, id)
		}
		if err != nil {
			http.Error(w, "Failed to cancel booking", http.StatusInternalServerError)
			return
		}
		if oc.OK() {
			action := "customer_withdraw"
			if req.TranslatorID != "" {
				action = "translator_cancel"
			}
			metrics.IncTransition(action, statusFromOutcome(oc))
		}
		writeOutcome(w, oc, http.StatusOK)
	}
}

type completeRequest struct {
	CompletedBy string `json:"completed_by"`
}

func completeHandler(uc *usecase.BookingUseCase, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req completeRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		oc, err := uc.CompleteSession(ctx, id, req.CompletedBy)
		if err != nil {
			http.Error(w, "Failed to complete booking", http.StatusInternalServerError)
			return
		}
		if oc.OK() {
			metrics.IncTransition("complete", string(model.JobStatusCompleted))
		}
		writeOutcome(w, oc, http.StatusOK)
	}
}

type reassignRequest struct {
	TranslatorID string `json:"translator_id"`
	Actor        string `json:"actor"`
}

func reassignHandler(uc *usecase.BookingUseCase, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req reassignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TranslatorID == "" {
			http.Error(w, "translator_id is required", http.StatusBadRequest)
			return
		}

		oc, err := uc.ReassignTranslator(ctx, id, req.TranslatorID, req.Actor)
		if err != nil {
			http.Error(w, "Failed to reassign booking", http.StatusInternalServerError)
			return
		}
		writeOutcome(w, oc, http.StatusOK)
	}
}

type commentRequest struct {
	Actor   string `json:"actor"`
	Comment string `json:"comment"`
}

func reopenHandler(uc *usecase.BookingUseCase, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req commentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		oc, err := uc.Reopen(ctx, id, req.Actor, req.Comment)
		if err != nil {
			http.Error(w, "Failed to reopen booking", http.StatusInternalServerError)
			return
		}
		if oc.OK() {
			metrics.IncTransition("reopen", string(model.JobStatusPending))
		}
		writeOutcome(w, oc, http.StatusCreated)
	}
}

func notCarriedOutHandler(uc *usecase.BookingUseCase, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req commentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		oc, err := uc.MarkNotCarriedOut(ctx, id, req.Comment)
		if err != nil {
			http.Error(w, "Failed to mark booking", http.StatusInternalServerError)
			return
		}
		if oc.OK() {
			metrics.IncTransition("not_carried_out", string(model.JobStatusNotCarriedOut))
		}
		writeOutcome(w, oc, http.StatusOK)
	}
}

func timeoutHandler(uc *usecase.BookingUseCase, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req commentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		oc, err := uc.Timeout(ctx, id, req.Comment, false)
		if err != nil {
			http.Error(w, "Failed to time out booking", http.StatusInternalServerError)
			return
		}
		if oc.OK() {
			metrics.IncTransition("timeout", string(model.JobStatusTimedout))
		}
		writeOutcome(w, oc, http.StatusOK)
	}
}

// adminUpdateRequest carries the admin edit form. Absent fields leave the
// booking untouched.
type adminUpdateRequest struct {
	TranslatorID   string     `json:"translator_id"`
	Due            *time.Time `json:"due"`
	LanguageID     int64      `json:"language_id"`
	Status         string     `json:"status"`
	AdminComments  string     `json:"admin_comments"`
	SessionMinutes *int       `json:"session_minutes"`
	Reference      string     `json:"reference"`
	Actor          string     `json:"actor"`
}

func adminUpdateHandler(uc *usecase.BookingUseCase, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req adminUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		patch := usecase.AdminPatch{
			TranslatorID:  req.TranslatorID,
			Due:           req.Due,
			LanguageID:    req.LanguageID,
			Status:        model.JobStatus(req.Status),
			AdminComments: req.AdminComments,
			Reference:     req.Reference,
		}
		if req.SessionMinutes != nil {
			st := time.Duration(*req.SessionMinutes) * time.Minute
			patch.SessionTime = &st
		}

		oc, err := uc.AdminUpdate(ctx, id, patch, req.Actor)
		if err != nil {
			http.Error(w, "Failed to update booking", http.StatusInternalServerError)
			return
		}
		writeOutcome(w, oc, http.StatusOK)
	}
}

type sessionUpdateRequest struct {
	SessionMinutes  *int   `json:"session_minutes"`
	AdminComments   string `json:"admin_comments"`
	Flagged         *bool  `json:"flagged"`
	ManuallyHandled *bool  `json:"manually_handled"`
	ByAdmin         *bool  `json:"by_admin"`
}

func sessionUpdateHandler(uc *usecase.BookingUseCase, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req sessionUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		patch := usecase.SessionPatch{
			AdminComments:   req.AdminComments,
			Flagged:         req.Flagged,
			ManuallyHandled: req.ManuallyHandled,
			ByAdmin:         req.ByAdmin,
		}
		if req.SessionMinutes != nil {
			st := time.Duration(*req.SessionMinutes) * time.Minute
			patch.SessionTime = &st
		}

		oc, err := uc.UpdateSessionDetails(ctx, id, patch)
		if err != nil {
			http.Error(w, "Failed to update session details", http.StatusInternalServerError)
			return
		}
		writeOutcome(w, oc, http.StatusOK)
	}
}

type storeEmailRequest struct {
	Email        string `json:"email"`
	Reference    string `json:"reference"`
	Address      string `json:"address"`
	Town         string `json:"town"`
	Instructions string `json:"instructions"`
}

func storeEmailHandler(uc *usecase.BookingUseCase, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req storeEmailRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		oc, err := uc.StoreJobEmail(ctx, id, req.Email, req.Reference, req.Address, req.Town, req.Instructions)
		if err != nil {
			http.Error(w, "Failed to store booking contact details", http.StatusInternalServerError)
			return
		}
		writeOutcome(w, oc, http.StatusOK)
	}
}

func resendHandler(uc *usecase.BookingUseCase, id string, sms bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var oc domain.Outcome
		var err error
		if sms {
			oc, err = uc.ResendSMSNotifications(ctx, id)
		} else {
			oc, err = uc.ResendNotifications(ctx, id)
		}
		if err != nil {
			http.Error(w, "Failed to resend notifications", http.StatusInternalServerError)
			return
		}
		writeOutcome(w, oc, http.StatusOK)
	}
}

func potentialJobsHandler(uc *usecase.BookingUseCase, translatorID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		oc, err := uc.PotentialJobs(ctx, translatorID)
		if err != nil {
			http.Error(w, "Failed to list potential jobs", http.StatusInternalServerError)
			return
		}
		writeOutcome(w, oc, http.StatusOK)
	}
}

func statusFromOutcome(oc domain.Outcome) string {
	if data, ok := oc.Data.(map[string]any); ok {
		if st, ok := data["status"].(model.JobStatus); ok {
			return string(st)
		}
	}
	return ""
}
