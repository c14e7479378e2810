// File: internal/usecase/statemachine.go
package usecase

import (
	"fmt"
	"time"

	"interpretation-booking/internal/domain"
	"interpretation-booking/internal/domain/model"
)

// Action names the intent behind a status change. Together with the origin
// status it selects exactly one transition handler; anything not in the table
// is rejected.
type Action string

const (
	ActionAccept           Action = "accept"
	ActionStart            Action = "start"
	ActionTranslatorCancel Action = "translator_cancel"
	ActionCustomerWithdraw Action = "customer_withdraw"
	ActionComplete         Action = "complete"
	ActionTimeout          Action = "timeout"
	ActionReopen           Action = "reopen"
	ActionNotCarriedOut    Action = "not_carried_out"
	// ActionAdminWithdraw is an admin marking an assigned booking withdrawn
	// with an explicit target status instead of the time-derived one.
	ActionAdminWithdraw Action = "admin_withdraw"
)

// Patch carries the transition inputs supplied by the caller.
type Patch struct {
	AdminComments string
	SessionTime   *time.Duration
	// TargetStatus selects between the withdraw variants on ActionAdminWithdraw.
	TargetStatus model.JobStatus
	// FromSweeper marks a timeout raised by the expiry sweeper rather than an
	// admin; the sweeper carries no comment.
	FromSweeper bool
}

// ChangeEntry is one audit record of a field that actually changed.
type ChangeEntry struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Effect is an obligation the lifecycle service must discharge after the
// transition persists. Handlers stay pure; recipient resolution and delivery
// happen outside.
type Effect string

const (
	EffectNotifyCustomer   Effect = "notify_customer"
	EffectNotifyTranslator Effect = "notify_translator"
	EffectBroadcast        Effect = "broadcast_candidates"
	EffectCancelAssignment Effect = "cancel_assignment"
	EffectCloseAssignment  Effect = "close_assignment"
)

// Result is what a transition handler produces. Outcome is non-nil only on
// guard rejection, in which case Job is the untouched input.
type Result struct {
	Job     model.Job
	Changes []ChangeEntry
	Effects []Effect
}

type transitionKey struct {
	from   model.JobStatus
	action Action
}

type transitionFunc func(job model.Job, p Patch, now time.Time) (Result, *domain.Outcome)

// cancelThreshold is the 24-hour rule shared by customer withdrawal
// classification and the translator cancellation guard. The comparison is
// always due minus now.
const cancelThreshold = 24 * time.Hour

var transitions = map[transitionKey]transitionFunc{
	{model.JobStatusPending, ActionAccept}:              applyAccept,
	{model.JobStatusAssigned, ActionStart}:              applyStart,
	{model.JobStatusAssigned, ActionTranslatorCancel}:   applyTranslatorCancel,
	{model.JobStatusPending, ActionCustomerWithdraw}:    applyCustomerWithdraw,
	{model.JobStatusAssigned, ActionCustomerWithdraw}:   applyCustomerWithdraw,
	{model.JobStatusStarted, ActionComplete}:            applyComplete,
	{model.JobStatusAssigned, ActionComplete}:           applyComplete,
	{model.JobStatusPending, ActionTimeout}:             applyTimeout,
	{model.JobStatusAssigned, ActionTimeout}:            applyTimeout,
	{model.JobStatusStarted, ActionTimeout}:             applyTimeout,
	{model.JobStatusWithdrawAfter, ActionTimeout}:       applyTimeout,
	{model.JobStatusAssigned, ActionAdminWithdraw}:      applyAdminWithdraw,
	{model.JobStatusTimedout, ActionReopen}:             applyReopen,
	{model.JobStatusPending, ActionNotCarriedOut}:       applyNotCarriedOut,
	{model.JobStatusAssigned, ActionNotCarriedOut}:      applyNotCarriedOut,
	{model.JobStatusStarted, ActionNotCarriedOut}:       applyNotCarriedOut,
	{model.JobStatusTimedout, ActionNotCarriedOut}:      applyNotCarriedOut,
	{model.JobStatusWithdrawAfter, ActionNotCarriedOut}: applyNotCarriedOut,
}

// Apply dispatches the transition for (job.Status, action). Rejections leave
// the job untouched; nothing is partially applied.
func Apply(job model.Job, action Action, p Patch, now time.Time) (Result, *domain.Outcome) {
	fn, ok := transitions[transitionKey{job.Status, action}]
	if !ok {
		out := domain.Fail(domain.CodeValidationFailed,
			fmt.Sprintf("cannot %s a job in status %s", action, job.Status))
		return Result{Job: job}, &out
	}
	return fn(job, p, now)
}

func statusChange(job *model.Job, to model.JobStatus) ChangeEntry {
	e := ChangeEntry{Field: "status", Old: string(job.Status), New: string(to)}
	job.Status = to
	return e
}

func applyAccept(job model.Job, _ Patch, _ time.Time) (Result, *domain.Outcome) {
	change := statusChange(&job, model.JobStatusAssigned)
	return Result{
		Job:     job,
		Changes: []ChangeEntry{change},
		Effects: []Effect{EffectNotifyCustomer, EffectNotifyTranslator},
	}, nil
}

func applyStart(job model.Job, p Patch, _ time.Time) (Result, *domain.Outcome) {
	if p.AdminComments == "" {
		out := domain.Fail(domain.CodeCommentRequired, "an admin comment is required to start a session")
		return Result{Job: job}, &out
	}
	change := statusChange(&job, model.JobStatusStarted)
	job.AdminComments = p.AdminComments
	return Result{Job: job, Changes: []ChangeEntry{change}}, nil
}

func applyTranslatorCancel(job model.Job, _ Patch, now time.Time) (Result, *domain.Outcome) {
	if job.Due.Sub(now) <= cancelThreshold {
		out := domain.Fail(domain.CodeTooLateToCancel,
			"bookings cannot be cancelled by the translator within 24 hours of the session")
		return Result{Job: job}, &out
	}
	change := statusChange(&job, model.JobStatusPending)
	return Result{
		Job:     job,
		Changes: []ChangeEntry{change},
		Effects: []Effect{EffectCancelAssignment, EffectBroadcast},
	}, nil
}

func applyCustomerWithdraw(job model.Job, _ Patch, now time.Time) (Result, *domain.Outcome) {
	to := model.JobStatusWithdrawAfter
	if job.Due.Sub(now) >= cancelThreshold {
		to = model.JobStatusWithdrawBefore
	}
	withdrawAt := now
	job.WithdrawAt = &withdrawAt
	change := statusChange(&job, to)
	return Result{
		Job:     job,
		Changes: []ChangeEntry{change},
		Effects: []Effect{EffectNotifyTranslator},
	}, nil
}

func applyAdminWithdraw(job model.Job, p Patch, now time.Time) (Result, *domain.Outcome) {
	if p.TargetStatus != model.JobStatusWithdrawBefore && p.TargetStatus != model.JobStatusWithdrawAfter {
		out := domain.Fail(domain.CodeValidationFailed, "admin withdraw requires a withdraw target status")
		return Result{Job: job}, &out
	}
	if p.AdminComments == "" {
		out := domain.Fail(domain.CodeCommentRequired, "an admin comment is required to withdraw an assigned booking")
		return Result{Job: job}, &out
	}
	withdrawAt := now
	job.WithdrawAt = &withdrawAt
	change := statusChange(&job, p.TargetStatus)
	job.AdminComments = p.AdminComments
	return Result{
		Job:     job,
		Changes: []ChangeEntry{change},
		Effects: []Effect{EffectCancelAssignment, EffectNotifyCustomer, EffectNotifyTranslator},
	}, nil
}

func applyComplete(job model.Job, p Patch, now time.Time) (Result, *domain.Outcome) {
	if p.SessionTime == nil {
		out := domain.Fail(domain.CodeValidationFailed, "session time is required to complete a booking")
		return Result{Job: job}, &out
	}
	change := statusChange(&job, model.JobStatusCompleted)
	endAt := now
	job.EndAt = &endAt
	st := *p.SessionTime
	job.SessionTime = &st
	return Result{
		Job:     job,
		Changes: []ChangeEntry{change},
		Effects: []Effect{EffectCloseAssignment, EffectNotifyCustomer, EffectNotifyTranslator},
	}, nil
}

func applyTimeout(job model.Job, p Patch, _ time.Time) (Result, *domain.Outcome) {
	// Admin-driven timeouts out of assigned or withdrawafter24 must carry a
	// comment; the expiry sweeper never does.
	needsComment := job.Status == model.JobStatusAssigned || job.Status == model.JobStatusWithdrawAfter
	if needsComment && p.AdminComments == "" {
		out := domain.Fail(domain.CodeCommentRequired,
			fmt.Sprintf("an admin comment is required to time out a job in status %s", job.Status))
		return Result{Job: job}, &out
	}
	fromAssigned := job.Status == model.JobStatusAssigned
	change := statusChange(&job, model.JobStatusTimedout)
	if p.AdminComments != "" {
		job.AdminComments = p.AdminComments
	}
	res := Result{Job: job, Changes: []ChangeEntry{change}}
	if fromAssigned {
		res.Effects = []Effect{EffectCancelAssignment, EffectNotifyTranslator}
	}
	return res, nil
}

func applyReopen(job model.Job, p Patch, _ time.Time) (Result, *domain.Outcome) {
	if p.AdminComments == "" {
		out := domain.Fail(domain.CodeCommentRequired, "an admin comment is required to reopen a booking")
		return Result{Job: job}, &out
	}
	change := statusChange(&job, model.JobStatusPending)
	job.AdminComments = p.AdminComments
	return Result{
		Job:     job,
		Changes: []ChangeEntry{change},
		Effects: []Effect{EffectNotifyCustomer, EffectBroadcast},
	}, nil
}

func applyNotCarriedOut(job model.Job, p Patch, now time.Time) (Result, *domain.Outcome) {
	change := statusChange(&job, model.JobStatusNotCarriedOut)
	if p.AdminComments != "" {
		job.AdminComments = p.AdminComments
	}
	endAt := now
	job.EndAt = &endAt
	return Result{
		Job:     job,
		Changes: []ChangeEntry{change},
		Effects: []Effect{EffectNotifyCustomer, EffectNotifyTranslator},
	}, nil
}
