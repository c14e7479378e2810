// File: internal/usecase/admin_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"interpretation-booking/internal/domain"
	"interpretation-booking/internal/domain/expiry"
	"interpretation-booking/internal/domain/model"
	"interpretation-booking/internal/domain/ports/adapter"
	"interpretation-booking/internal/domain/ports/repository"
)

// AdminPatch is a partial booking edit. Zero values mean "leave unchanged";
// the apply order is fixed: translator, due, language, status.
type AdminPatch struct {
	TranslatorID  string
	Due           *time.Time
	LanguageID    int64
	Status        model.JobStatus
	AdminComments string
	// SessionTime must be set when Status moves the booking to completed.
	SessionTime *time.Duration
	Reference   string
}

// statusAction maps an admin-requested target status onto the transition
// action that reaches it. Assigned is absent on purpose: assignment happens
// through the translator field, never through a bare status edit.
func statusAction(target model.JobStatus) (Action, bool) {
	switch target {
	case model.JobStatusPending:
		return ActionReopen, true
	case model.JobStatusStarted:
		return ActionStart, true
	case model.JobStatusCompleted:
		return ActionComplete, true
	case model.JobStatusTimedout:
		return ActionTimeout, true
	case model.JobStatusWithdrawBefore, model.JobStatusWithdrawAfter:
		return ActionAdminWithdraw, true
	case model.JobStatusNotCarriedOut:
		return ActionNotCarriedOut, true
	}
	return "", false
}

// AdminUpdate edits a booking in place. It is idempotent: a patch that changes
// nothing produces no save, no change log and no notifications. When the
// booking is already past due the edit persists but nobody is notified.
func (uc *BookingUseCase) AdminUpdate(ctx context.Context, jobID string, patch AdminPatch, actor string) (domain.Outcome, error) {
	unlock, busy := uc.lockJob(ctx, jobID)
	if busy != nil {
		return *busy, nil
	}
	defer unlock()

	job, err := uc.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.CodeNotFound, "booking not found"), nil
		}
		return domain.Outcome{}, err
	}

	now := uc.clock.Now()

	// Finished bookings only ever take a comment edit.
	if job.Status.Terminal() {
		if patch.AdminComments == "" || patch.AdminComments == job.AdminComments {
			return domain.Success(map[string]any{"changes": []ChangeEntry{}}), nil
		}
		entry := ChangeEntry{Field: "admin_comments", Old: job.AdminComments, New: patch.AdminComments}
		job.AdminComments = patch.AdminComments
		if err := uc.jobs.Save(ctx, repository.NoTX, job); err != nil {
			return domain.Outcome{}, fmt.Errorf("save job: %w", err)
		}
		return domain.Success(map[string]any{"changes": []ChangeEntry{entry}}), nil
	}

	var (
		changes       []ChangeEntry
		intents       []adapter.NotificationIntent
		newAssignment *model.Assignment
		cancelOldID   string
		rebroadcast   bool
	)

	current, err := uc.assignments.FindCurrent(ctx, repository.NoTX, jobID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Outcome{}, err
	}

	// 1. Translator.
	if patch.TranslatorID != "" && (current == nil || current.TranslatorID != patch.TranslatorID) {
		newTranslator, err := uc.translators.FindByID(ctx, repository.NoTX, patch.TranslatorID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Fail(domain.CodeNotFound, "translator not found"), nil
			}
			return domain.Outcome{}, err
		}
		oldEmail := ""
		var oldTranslator *model.Translator
		if current != nil {
			cancelOldID = current.ID
			if oldTranslator, err = uc.translators.FindByID(ctx, repository.NoTX, current.TranslatorID); err == nil {
				oldEmail = oldTranslator.Email
			}
		}
		newAssignment = &model.Assignment{
			ID:           uuid.NewString(),
			JobID:        jobID,
			TranslatorID: patch.TranslatorID,
			AssignedAt:   now,
		}
		if job.Status == model.JobStatusPending {
			changes = append(changes, statusChange(job, model.JobStatusAssigned))
		}
		changes = append(changes, ChangeEntry{Field: "translator", Old: oldEmail, New: newTranslator.Email})
		intents = append(intents, uc.translatorChangedIntents(ctx, job, oldTranslator, newTranslator)...)
	}

	// 2. Due date.
	if patch.Due != nil && !patch.Due.Equal(job.Due) {
		old := job.Due
		changes = append(changes, ChangeEntry{
			Field: "due",
			Old:   old.Format("2006-01-02 15:04"),
			New:   patch.Due.Format("2006-01-02 15:04"),
		})
		job.Due = *patch.Due
		intents = append(intents, uc.fieldChangedIntents(ctx, job, TemplateJobChangedDate,
			fmt.Sprintf("Booking #%s has been given a new session time", job.ID))...)
	}

	// 3. Language.
	if patch.LanguageID != 0 && patch.LanguageID != job.FromLanguageID {
		changes = append(changes, ChangeEntry{
			Field: "language",
			Old:   uc.languageName(ctx, job.FromLanguageID),
			New:   uc.languageName(ctx, patch.LanguageID),
		})
		job.FromLanguageID = patch.LanguageID
		intents = append(intents, uc.fieldChangedIntents(ctx, job, TemplateJobChangedLang,
			fmt.Sprintf("Booking #%s has been given a new language", job.ID))...)
	}

	// 4. Status, through the transition table.
	if patch.Status != "" && patch.Status != job.Status {
		action, ok := statusAction(patch.Status)
		if !ok {
			return domain.Fail(domain.CodeValidationFailed,
				fmt.Sprintf("status %s cannot be set directly", patch.Status)), nil
		}
		res, reject := Apply(*job, action, Patch{
			AdminComments: patch.AdminComments,
			SessionTime:   patch.SessionTime,
			TargetStatus:  patch.Status,
		}, now)
		if reject != nil {
			return *reject, nil
		}
		*job = res.Job
		changes = append(changes, res.Changes...)
		notifyCustomer, notifyTranslator := false, false
		for _, eff := range res.Effects {
			switch eff {
			case EffectCancelAssignment:
				if current != nil && cancelOldID == "" {
					cancelOldID = current.ID
				}
			case EffectBroadcast:
				rebroadcast = true
			case EffectNotifyCustomer:
				notifyCustomer = true
			case EffectNotifyTranslator:
				notifyTranslator = true
			}
		}
		// A booking sent back to the pool needs a fresh offer window, or the
		// sweeper would expire it again on the next tick.
		if job.Status == model.JobStatusPending {
			job.WillExpireAt = expiry.WillExpireAt(job.Due, now)
		}
		if notifyCustomer || notifyTranslator {
			intents = append(intents, uc.statusChangedIntents(ctx, job, action, current, notifyCustomer, notifyTranslator)...)
		}
	} else if patch.AdminComments != "" && patch.AdminComments != job.AdminComments {
		changes = append(changes, ChangeEntry{Field: "admin_comments", Old: job.AdminComments, New: patch.AdminComments})
		job.AdminComments = patch.AdminComments
	}
	if patch.Reference != "" && patch.Reference != job.Reference {
		changes = append(changes, ChangeEntry{Field: "reference", Old: job.Reference, New: patch.Reference})
		job.Reference = patch.Reference
	}

	if len(changes) == 0 {
		return domain.Success(map[string]any{"changes": []ChangeEntry{}}), nil
	}

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if cancelOldID != "" {
			if err := uc.assignments.Cancel(ctx, tx, cancelOldID, now); err != nil {
				return err
			}
		}
		if newAssignment != nil {
			if err := uc.assignments.Save(ctx, tx, newAssignment); err != nil {
				return err
			}
		}
		return uc.jobs.Save(ctx, tx, job)
	})
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("admin update: %w", err)
	}

	logEvent := uc.log.Info().Str("job_id", jobID).Str("actor", actor)
	for _, c := range changes {
		logEvent = logEvent.Str("changed_"+c.Field, c.Old+" -> "+c.New)
	}
	logEvent.Msg("booking updated by admin")

	if rebroadcast {
		if bcast, berr := uc.broadcastIntents(ctx, job, nil); berr != nil {
			uc.log.Warn().Err(berr).Str("job_id", jobID).Msg("could not compute broadcast recipients")
		} else {
			intents = append(intents, bcast...)
		}
	}

	// Nobody is told about edits to a session already in the past.
	if job.Due.After(now) {
		uc.dispatch(ctx, intents)
	}
	return domain.Success(map[string]any{"changes": changes}), nil
}

// statusChangedIntents emails the affected parties about an admin-driven
// status change, picking the template that matches the move.
func (uc *BookingUseCase) statusChangedIntents(ctx context.Context, job *model.Job, action Action, current *model.Assignment, toCustomer, toTranslator bool) []adapter.NotificationIntent {
	var templateID, subject string
	switch action {
	case ActionReopen:
		templateID, subject = TemplateJobReopened, fmt.Sprintf("Booking #%s has been reopened", job.ID)
	case ActionAdminWithdraw:
		templateID, subject = TemplateJobCancelled, fmt.Sprintf("Booking #%s has been withdrawn", job.ID)
	case ActionComplete:
		templateID, subject = TemplateSessionEnded, fmt.Sprintf("Session ended for booking #%s", job.ID)
	case ActionTimeout:
		templateID, subject = TemplateJobCancelled, fmt.Sprintf("Booking #%s was not filled in time", job.ID)
	case ActionNotCarriedOut:
		templateID, subject = TemplateJobNotCarriedOut, fmt.Sprintf("Session not carried out for booking #%s", job.ID)
	default:
		return nil
	}
	lang := uc.languageName(ctx, job.FromLanguageID)
	var intents []adapter.NotificationIntent
	if toCustomer {
		if customer, err := uc.customers.FindByID(ctx, repository.NoTX, job.CustomerID); err == nil {
			intents = append(intents, emailIntent(customerRecipient(customer, job), job, templateID, subject, jobPayload(job, lang)))
		} else {
			uc.log.Warn().Err(err).Str("job_id", job.ID).Msg("status change: customer lookup failed")
		}
	}
	if toTranslator && current != nil {
		if translator, err := uc.translators.FindByID(ctx, repository.NoTX, current.TranslatorID); err == nil && !translator.NotGetEmails {
			intents = append(intents, emailIntent(translatorRecipient(translator), job, templateID, subject, jobPayload(job, lang)))
		}
	}
	return intents
}

// fieldChangedIntents emails the customer and the current translator about an
// edited booking field.
func (uc *BookingUseCase) fieldChangedIntents(ctx context.Context, job *model.Job, templateID, subject string) []adapter.NotificationIntent {
	lang := uc.languageName(ctx, job.FromLanguageID)
	var intents []adapter.NotificationIntent
	if customer, err := uc.customers.FindByID(ctx, repository.NoTX, job.CustomerID); err == nil {
		intents = append(intents, emailIntent(customerRecipient(customer, job), job, templateID, subject, jobPayload(job, lang)))
	}
	if current, err := uc.assignments.FindCurrent(ctx, repository.NoTX, job.ID); err == nil {
		if translator, terr := uc.translators.FindByID(ctx, repository.NoTX, current.TranslatorID); terr == nil && !translator.NotGetEmails {
			intents = append(intents, emailIntent(translatorRecipient(translator), job, templateID, subject, jobPayload(job, lang)))
		}
	}
	return intents
}

// Timeout expires a booking. The sweeper calls it with fromSweeper=true and no
// comment; admins must supply one when the booking was already taken.
func (uc *BookingUseCase) Timeout(ctx context.Context, jobID, comment string, fromSweeper bool) (domain.Outcome, error) {
	unlock, busy := uc.lockJob(ctx, jobID)
	if busy != nil {
		return *busy, nil
	}
	defer unlock()

	job, err := uc.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.CodeNotFound, "booking not found"), nil
		}
		return domain.Outcome{}, err
	}

	now := uc.clock.Now()
	res, reject := Apply(*job, ActionTimeout, Patch{AdminComments: comment, FromSweeper: fromSweeper}, now)
	if reject != nil {
		return *reject, nil
	}

	cancelCurrent := false
	for _, eff := range res.Effects {
		if eff == EffectCancelAssignment {
			cancelCurrent = true
		}
	}
	if cancelCurrent {
		current, err := uc.assignments.FindCurrent(ctx, repository.NoTX, jobID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.Outcome{}, err
		}
		err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if current != nil {
				if err := uc.assignments.Cancel(ctx, tx, current.ID, now); err != nil {
					return err
				}
			}
			return uc.jobs.Save(ctx, tx, &res.Job)
		})
		if err != nil {
			return domain.Outcome{}, fmt.Errorf("timeout: %w", err)
		}
		if current != nil {
			if translator, terr := uc.translators.FindByID(ctx, repository.NoTX, current.TranslatorID); terr == nil {
				lang := uc.languageName(ctx, job.FromLanguageID)
				text := fmt.Sprintf("Your booking for a %s translator, %d min at %s, has been cancelled.",
					lang, job.Duration, job.Due.Format("2006-01-02 15:04"))
				uc.dispatch(ctx, []adapter.NotificationIntent{
					pushIntent(translatorRecipient(translator), &res.Job, TemplateJobCancelled,
						map[string]string{"en": text}, pushDelay(translator, now)),
				})
			}
		}
	} else {
		if err := uc.jobs.Save(ctx, repository.NoTX, &res.Job); err != nil {
			return domain.Outcome{}, fmt.Errorf("save job: %w", err)
		}
	}

	uc.log.Info().Str("job_id", jobID).Bool("from_sweeper", fromSweeper).Msg("booking timed out")
	return domain.Success(nil), nil
}

// SweepExpired times out every pending booking whose offer window has closed.
// It returns how many bookings were expired.
func (uc *BookingUseCase) SweepExpired(ctx context.Context) (int, error) {
	expired, err := uc.jobs.FindExpiredPending(ctx, repository.NoTX, uc.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("find expired pending: %w", err)
	}
	n := 0
	for _, job := range expired {
		out, err := uc.Timeout(ctx, job.ID, "", true)
		if err != nil {
			uc.log.Error().Err(err).Str("job_id", job.ID).Msg("sweep: timeout failed")
			continue
		}
		if !out.OK() {
			// A lock holder or a freshly accepted job; the next sweep will see it.
			uc.log.Debug().Str("job_id", job.ID).Str("code", string(out.Code)).Msg("sweep: skipped")
			continue
		}
		n++
	}
	return n, nil
}

// SessionPatch edits post-session bookkeeping fields.
type SessionPatch struct {
	SessionTime     *time.Duration
	AdminComments   string
	Flagged         *bool
	ManuallyHandled *bool
	ByAdmin         *bool
}

// UpdateSessionDetails applies a post-session correction. Flagging a booking
// requires an accompanying comment.
func (uc *BookingUseCase) UpdateSessionDetails(ctx context.Context, jobID string, patch SessionPatch) (domain.Outcome, error) {
	job, err := uc.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.CodeNotFound, "booking not found"), nil
		}
		return domain.Outcome{}, err
	}

	if patch.Flagged != nil && *patch.Flagged && patch.AdminComments == "" && job.AdminComments == "" {
		return domain.Fail(domain.CodeCommentRequired, "a comment is required when flagging a booking"), nil
	}

	if patch.SessionTime != nil {
		st := *patch.SessionTime
		job.SessionTime = &st
	}
	if patch.AdminComments != "" {
		job.AdminComments = patch.AdminComments
	}
	if patch.Flagged != nil {
		job.Flagged = *patch.Flagged
	}
	if patch.ManuallyHandled != nil {
		job.ManuallyHandled = *patch.ManuallyHandled
	}
	if patch.ByAdmin != nil {
		job.ByAdmin = *patch.ByAdmin
	}

	if err := uc.jobs.Save(ctx, repository.NoTX, job); err != nil {
		return domain.Outcome{}, fmt.Errorf("save job: %w", err)
	}
	return domain.Success(map[string]any{"job": job}), nil
}

// ListJobs is the admin listing behind the management console.
func (uc *BookingUseCase) ListJobs(ctx context.Context, filter repository.JobFilter) (domain.Outcome, error) {
	jobs, err := uc.jobs.List(ctx, repository.NoTX, filter)
	if err != nil {
		return domain.Outcome{}, err
	}
	return domain.Success(map[string]any{"jobs": jobs}), nil
}
