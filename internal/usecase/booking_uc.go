// File: internal/usecase/booking_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"interpretation-booking/internal/domain"
	"interpretation-booking/internal/domain/expiry"
	"interpretation-booking/internal/domain/model"
	"interpretation-booking/internal/domain/ports/adapter"
	"interpretation-booking/internal/domain/ports/repository"
)

// dueInputLayout is the wire format for scheduled bookings: "05/01/2025" "10:00".
const dueInputLayout = "01/02/2006 15:04"

// defaultJobLockTTL bounds how long a lifecycle operation may hold the
// per-job lock when no TTL is configured.
const defaultJobLockTTL = 10 * time.Second

// BookingSpec is the raw creation request before derivation.
type BookingSpec struct {
	FromLanguageID  int64
	Immediate       bool
	DueDate         string // mm/dd/yyyy, required unless immediate
	DueTime         string // HH:MM, required unless immediate
	PhoneEnabled    bool
	PhysicalEnabled bool
	Duration        int // minutes
	// Tags: male, female, normal, certified, certified_in_law, certified_in_health
	Tags []string

	CustomerEmail        string
	Reference            string
	Address              string
	Town                 string
	Instructions         string
	ByAdmin              bool
	SpecificTranslatorID string
}

// BookingUseCase orchestrates the booking lifecycle: it composes the Matcher
// and the transition table, persists through the repositories, and hands
// notification intents to the dispatcher. All business rejections surface as
// Outcome values; returned errors are infrastructure faults only.
type BookingUseCase struct {
	jobs        repository.JobRepository
	assignments repository.AssignmentRepository
	translators repository.TranslatorRepository
	customers   repository.CustomerRepository
	languages   repository.LanguageRepository
	tm          repository.TransactionManager
	matcher     *Matcher
	locker      adapter.Locker
	lockTTL     time.Duration
	clock       adapter.Clock
	notifier    adapter.Notifier
	log         *zerolog.Logger
}

// NewBookingUseCase wires the lifecycle engine. lockTTL caps how long a
// single operation may hold a per-job lock; zero picks the default.
func NewBookingUseCase(
	jobs repository.JobRepository,
	assignments repository.AssignmentRepository,
	translators repository.TranslatorRepository,
	customers repository.CustomerRepository,
	languages repository.LanguageRepository,
	tm repository.TransactionManager,
	matcher *Matcher,
	locker adapter.Locker,
	lockTTL time.Duration,
	clock adapter.Clock,
	notifier adapter.Notifier,
	logger *zerolog.Logger,
) *BookingUseCase {
	if lockTTL <= 0 {
		lockTTL = defaultJobLockTTL
	}
	return &BookingUseCase{
		jobs:        jobs,
		assignments: assignments,
		translators: translators,
		customers:   customers,
		languages:   languages,
		tm:          tm,
		matcher:     matcher,
		locker:      locker,
		lockTTL:     lockTTL,
		clock:       clock,
		notifier:    notifier,
		log:         logger,
	}
}

// lockJob serializes lifecycle operations per job id. The returned release
// func is safe to defer; a nil Outcome means the lock is held.
func (uc *BookingUseCase) lockJob(ctx context.Context, jobID string) (func(), *domain.Outcome) {
	token, err := uc.locker.TryLock(ctx, "job:"+jobID, uc.lockTTL)
	if err != nil {
		out := domain.Fail(domain.CodeJobLocked, "another operation on this booking is in progress, try again")
		return nil, &out
	}
	return func() {
		if err := uc.locker.Unlock(context.WithoutCancel(ctx), "job:"+jobID, token); err != nil {
			uc.log.Warn().Err(err).Str("job_id", jobID).Msg("failed to release job lock")
		}
	}, nil
}

// dispatch hands intents to the notifier. Delivery is best-effort: failures
// are logged and never fail the transition that produced them.
func (uc *BookingUseCase) dispatch(ctx context.Context, intents []adapter.NotificationIntent) {
	if len(intents) == 0 {
		return
	}
	if err := uc.notifier.Dispatch(ctx, intents); err != nil {
		uc.log.Warn().Err(err).Int("count", len(intents)).Msg("notification dispatch failed")
	}
}

func (uc *BookingUseCase) languageName(ctx context.Context, id int64) string {
	lang, err := uc.languages.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return fmt.Sprintf("language %d", id)
	}
	return lang.Name
}

// CreateBooking validates the request, derives requirement enums and persists a
// pending job, then offers it to every eligible translator.
func (uc *BookingUseCase) CreateBooking(ctx context.Context, customerID string, spec BookingSpec) (domain.Outcome, error) {
	customer, err := uc.customers.FindByID(ctx, repository.NoTX, customerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.CodeNotFound, "customer not found"), nil
		}
		return domain.Outcome{}, err
	}

	if msg := validateSpec(spec); msg != "" {
		return domain.Fail(domain.CodeValidationFailed, msg), nil
	}

	now := uc.clock.Now()
	var due time.Time
	phoneEnabled := spec.PhoneEnabled
	if spec.Immediate {
		due = now.Add(model.ImmediateLeadTime)
		phoneEnabled = true
	} else {
		due, err = time.ParseInLocation(dueInputLayout, spec.DueDate+" "+spec.DueTime, now.Location())
		if err != nil {
			return domain.Fail(domain.CodeValidationFailed, "invalid due date or time"), nil
		}
		if !due.After(now) {
			return domain.Fail(domain.CodePastDueDate, "cannot create a booking in the past"), nil
		}
	}

	town := spec.Town
	if town == "" {
		town = customer.Town
	}

	job := &model.Job{
		ID:                   uuid.NewString(),
		CustomerID:           customer.ID,
		FromLanguageID:       spec.FromLanguageID,
		Status:               model.JobStatusPending,
		Immediate:            spec.Immediate,
		Due:                  due,
		Duration:             spec.Duration,
		Gender:               genderFromTags(spec.Tags),
		Certification:        certificationFromTags(spec.Tags),
		JobType:              model.JobTypeForConsumer(customer.ConsumerType),
		PhoneEnabled:         phoneEnabled,
		PhysicalEnabled:      spec.PhysicalEnabled,
		CreatedAt:            now,
		WillExpireAt:         expiry.WillExpireAt(due, now),
		ByAdmin:              spec.ByAdmin,
		CustomerEmail:        spec.CustomerEmail,
		Reference:            spec.Reference,
		Address:              spec.Address,
		Town:                 town,
		Instructions:         spec.Instructions,
		SpecificTranslatorID: spec.SpecificTranslatorID,
	}
	if err := job.Validate(); err != nil {
		return domain.Fail(domain.CodeValidationFailed, "booking is missing required fields"), nil
	}

	if err := uc.jobs.Save(ctx, repository.NoTX, job); err != nil {
		return domain.Outcome{}, fmt.Errorf("save job: %w", err)
	}
	uc.log.Info().Str("job_id", job.ID).Str("customer_id", customer.ID).
		Str("job_type", string(job.JobType)).Time("due", job.Due).Msg("booking created")

	intents, err := uc.broadcastIntents(ctx, job, nil)
	if err != nil {
		uc.log.Warn().Err(err).Str("job_id", job.ID).Msg("could not compute broadcast recipients")
	} else {
		uc.dispatch(ctx, intents)
	}

	return domain.Success(map[string]any{"id": job.ID, "job_type": job.JobType}), nil
}

func validateSpec(spec BookingSpec) string {
	if spec.FromLanguageID == 0 {
		return "you must provide a language"
	}
	if !spec.Immediate && (spec.DueDate == "" || spec.DueTime == "") {
		return "you must provide a due date and time for non-immediate bookings"
	}
	if !spec.PhoneEnabled && !spec.PhysicalEnabled && !spec.Immediate {
		return "you must choose either phone or on-site interpretation"
	}
	if spec.Duration <= 0 {
		return "you must specify the booking duration"
	}
	for _, tag := range spec.Tags {
		switch tag {
		case "male", "female", "normal", "certified", "certified_in_law", "certified_in_health":
		default:
			return "invalid value for booking requirements: " + tag
		}
	}
	return ""
}

func genderFromTags(tags []string) model.Gender {
	for _, t := range tags {
		if t == "male" {
			return model.GenderMale
		}
	}
	for _, t := range tags {
		if t == "female" {
			return model.GenderFemale
		}
	}
	return model.GenderNone
}

// certificationFromTags applies the fixed precedence law > health > certified > normal.
func certificationFromTags(tags []string) model.Certification {
	has := make(map[string]bool, len(tags))
	for _, t := range tags {
		has[t] = true
	}
	switch {
	case has["certified_in_law"]:
		return model.CertificationLaw
	case has["certified_in_health"]:
		return model.CertificationHealth
	case has["certified"]:
		return model.CertificationYes
	case has["normal"]:
		return model.CertificationNormal
	}
	return model.CertificationNone
}

// AcceptAssignment is the race-safe accept: the current-assignment check, the
// insert and the status flip run as one atomic store call. The loser of a race
// deterministically gets an already_assigned outcome.
func (uc *BookingUseCase) AcceptAssignment(ctx context.Context, jobID, translatorID string) (domain.Outcome, error) {
	job, err := uc.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.CodeNotFound, "booking not found"), nil
		}
		return domain.Outcome{}, err
	}
	translator, err := uc.translators.FindByID(ctx, repository.NoTX, translatorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.CodeNotFound, "translator not found"), nil
		}
		return domain.Outcome{}, err
	}

	eligible, err := uc.matcher.IsEligible(ctx, translator, job)
	if err != nil {
		return domain.Outcome{}, err
	}
	if !eligible {
		return domain.Fail(domain.CodeIneligibleTranslator, "you are not eligible for this booking"), nil
	}

	// Early rejection only; the authoritative same-due check runs inside
	// AcceptPending's transaction.
	doubleBooked, err := uc.assignments.IsDoubleBooked(ctx, repository.NoTX, translatorID, job.Due)
	if err != nil {
		return domain.Outcome{}, err
	}
	if doubleBooked {
		return domain.Fail(domain.CodeAlreadyAssigned,
			fmt.Sprintf("you already have a booking at %s", job.Due.Format("2006-01-02 15:04"))), nil
	}

	now := uc.clock.Now()
	if _, err := uc.assignments.AcceptPending(ctx, jobID, translatorID, now); err != nil {
		if errors.Is(err, domain.ErrDoubleBooked) {
			return domain.Fail(domain.CodeAlreadyAssigned,
				fmt.Sprintf("you already have a booking at %s", job.Due.Format("2006-01-02 15:04"))), nil
		}
		if errors.Is(err, domain.ErrAssignmentConflict) {
			lang := uc.languageName(ctx, job.FromLanguageID)
			return domain.Fail(domain.CodeAlreadyAssigned,
				fmt.Sprintf("this %s booking, %d min at %s, has already been accepted by another translator",
					lang, job.Duration, job.Due.Format("2006-01-02 15:04"))), nil
		}
		return domain.Outcome{}, fmt.Errorf("accept assignment: %w", err)
	}

	res, reject := Apply(*job, ActionAccept, Patch{}, now)
	if reject != nil {
		// The store already guaranteed the pending->assigned flip; a table miss
		// here would be a programming error.
		return domain.Outcome{}, fmt.Errorf("accept transition rejected after store flip: %s", reject.Message)
	}
	uc.log.Info().Str("job_id", jobID).Str("translator_id", translatorID).Msg("booking accepted")

	uc.dispatch(ctx, uc.acceptedIntents(ctx, &res.Job, translator))

	potential, err := uc.matcher.PotentialJobsFor(ctx, translator)
	if err != nil {
		uc.log.Warn().Err(err).Str("translator_id", translatorID).Msg("could not recompute potential jobs")
		potential = nil
	}
	return domain.Success(map[string]any{"job": &res.Job, "jobs": potential}), nil
}

func (uc *BookingUseCase) acceptedIntents(ctx context.Context, job *model.Job, translator *model.Translator) []adapter.NotificationIntent {
	lang := uc.languageName(ctx, job.FromLanguageID)
	var intents []adapter.NotificationIntent
	customer, err := uc.customers.FindByID(ctx, repository.NoTX, job.CustomerID)
	if err != nil {
		uc.log.Warn().Err(err).Str("job_id", job.ID).Msg("accepted: customer lookup failed")
	} else {
		r := customerRecipient(customer, job)
		subject := fmt.Sprintf("Confirmation - a translator has accepted your booking #%s", job.ID)
		intents = append(intents, emailIntent(r, job, TemplateJobAccepted, subject, jobPayload(job, lang)))
		text := fmt.Sprintf("Your booking for a %s translator, %d min at %s, has been accepted. Open the app for details.",
			lang, job.Duration, job.Due.Format("2006-01-02 15:04"))
		intents = append(intents, pushIntent(r, job, TemplateJobAccepted, map[string]string{"en": text}, nil))
	}
	if !translator.NotGetEmails {
		subject := fmt.Sprintf("You have accepted booking #%s", job.ID)
		intents = append(intents, emailIntent(translatorRecipient(translator), job, TemplateJobAccepted, subject, jobPayload(job, lang)))
	}
	return intents
}

// broadcastIntents offers a pending job to all eligible translators, excluding
// the given ids (e.g. a translator who just cancelled).
func (uc *BookingUseCase) broadcastIntents(ctx context.Context, job *model.Job, exclude []string) ([]adapter.NotificationIntent, error) {
	candidates, err := uc.matcher.EligibleTranslatorsFor(ctx, job)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	lang := uc.languageName(ctx, job.FromLanguageID)
	now := uc.clock.Now()
	var intents []adapter.NotificationIntent
	for _, t := range candidates {
		if skip[t.ID] {
			continue
		}
		r := translatorRecipient(t)
		if !t.NotGetEmails {
			intents = append(intents, emailIntent(r, job, TemplateNewJob, "New booking available", jobPayload(job, lang)))
		}
		if !t.NotGetNotification {
			text := fmt.Sprintf("A new booking has been added for a %s translator, %d min at %s",
				lang, job.Duration, job.Due.Format("2006-01-02 15:04"))
			intents = append(intents, pushIntent(r, job, TemplateNewJob, map[string]string{"en": text}, pushDelay(t, now)))
		}
	}
	return intents, nil
}

// CancelByCustomer withdraws the booking; 24 hours or more before the session
// it counts as withdrawbefore24, later as withdrawafter24.
func (uc *BookingUseCase) CancelByCustomer(ctx context.Context, jobID string) (domain.Outcome, error) {
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
	res, reject := Apply(*job, ActionCustomerWithdraw, Patch{}, now)
	if reject != nil {
		return *reject, nil
	}
	if err := uc.jobs.Save(ctx, repository.NoTX, &res.Job); err != nil {
		return domain.Outcome{}, fmt.Errorf("save job: %w", err)
	}
	uc.log.Info().Str("job_id", jobID).Str("status", string(res.Job.Status)).Msg("booking withdrawn by customer")

	// Notify the current translator, if the job was already taken.
	current, err := uc.assignments.FindCurrent(ctx, repository.NoTX, jobID)
	if err == nil {
		if translator, terr := uc.translators.FindByID(ctx, repository.NoTX, current.TranslatorID); terr == nil {
			lang := uc.languageName(ctx, job.FromLanguageID)
			text := fmt.Sprintf("The customer has cancelled the booking for a %s translator, %d min at %s. Check your bookings for details.",
				lang, job.Duration, job.Due.Format("2006-01-02 15:04"))
			uc.dispatch(ctx, []adapter.NotificationIntent{
				pushIntent(translatorRecipient(translator), &res.Job, TemplateJobCancelled,
					map[string]string{"en": text}, pushDelay(translator, now)),
			})
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Outcome{}, err
	}

	return domain.Success(map[string]any{"status": res.Job.Status}), nil
}

// CancelByTranslator releases an assigned booking back to pending, but only
// more than 24 hours ahead of the session.
func (uc *BookingUseCase) CancelByTranslator(ctx context.Context, jobID, translatorID string) (domain.Outcome, error) {
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
	current, err := uc.assignments.FindCurrent(ctx, repository.NoTX, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.CodeNotFound, "no current assignment for this booking"), nil
		}
		return domain.Outcome{}, err
	}
	if current.TranslatorID != translatorID {
		return domain.Fail(domain.CodeValidationFailed, "booking is not assigned to you"), nil
	}

	now := uc.clock.Now()
	res, reject := Apply(*job, ActionTranslatorCancel, Patch{}, now)
	if reject != nil {
		return *reject, nil
	}
	// Back to pending with a fresh offer window.
	res.Job.CreatedAt = now
	res.Job.WillExpireAt = expiry.WillExpireAt(res.Job.Due, now)

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.assignments.Cancel(ctx, tx, current.ID, now); err != nil {
			return err
		}
		return uc.jobs.Save(ctx, tx, &res.Job)
	})
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("translator cancel: %w", err)
	}
	uc.log.Info().Str("job_id", jobID).Str("translator_id", translatorID).Msg("booking released by translator")

	intents, err := uc.broadcastIntents(ctx, &res.Job, []string{translatorID})
	if err != nil {
		uc.log.Warn().Err(err).Str("job_id", jobID).Msg("could not compute broadcast recipients")
	} else {
		uc.dispatch(ctx, intents)
	}
	return domain.Success(nil), nil
}

// CompleteSession ends the session: elapsed time is the wall-clock delta
// between the due time and now, the current assignment is closed, and both
// parties are informed.
func (uc *BookingUseCase) CompleteSession(ctx context.Context, jobID, completedBy string) (domain.Outcome, error) {
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
	sessionTime := now.Sub(job.Due)
	res, reject := Apply(*job, ActionComplete, Patch{SessionTime: &sessionTime}, now)
	if reject != nil {
		return *reject, nil
	}

	current, err := uc.assignments.FindCurrent(ctx, repository.NoTX, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.CodeNotFound, "no current assignment for this booking"), nil
		}
		return domain.Outcome{}, err
	}

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.assignments.Complete(ctx, tx, current.ID, now, completedBy); err != nil {
			return err
		}
		return uc.jobs.Save(ctx, tx, &res.Job)
	})
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("complete session: %w", err)
	}
	uc.log.Info().Str("job_id", jobID).Dur("session_time", sessionTime).Msg("session completed")

	uc.dispatch(ctx, uc.sessionEndedIntents(ctx, &res.Job, current.TranslatorID, sessionTime))
	return domain.Success(map[string]any{"session_time": sessionTime.String()}), nil
}

func (uc *BookingUseCase) sessionEndedIntents(ctx context.Context, job *model.Job, translatorID string, sessionTime time.Duration) []adapter.NotificationIntent {
	lang := uc.languageName(ctx, job.FromLanguageID)
	subject := fmt.Sprintf("Summary of the completed session for booking #%s", job.ID)
	payload := jobPayload(job, lang)
	payload["session_time"] = fmt.Sprintf("%d h %d min", int(sessionTime.Hours()), int(sessionTime.Minutes())%60)

	var intents []adapter.NotificationIntent
	if customer, err := uc.customers.FindByID(ctx, repository.NoTX, job.CustomerID); err == nil {
		p := make(map[string]string, len(payload)+1)
		for k, v := range payload {
			p[k] = v
		}
		p["for_text"] = "invoice"
		intents = append(intents, emailIntent(customerRecipient(customer, job), job, TemplateSessionEnded, subject, p))
	}
	if translator, err := uc.translators.FindByID(ctx, repository.NoTX, translatorID); err == nil {
		p := make(map[string]string, len(payload)+1)
		for k, v := range payload {
			p[k] = v
		}
		p["for_text"] = "salary"
		intents = append(intents, emailIntent(translatorRecipient(translator), job, TemplateSessionEnded, subject, p))
	}
	return intents
}

// ReassignTranslator moves the booking to another translator, preserving the
// old assignment as cancelled history.
func (uc *BookingUseCase) ReassignTranslator(ctx context.Context, jobID, newTranslatorID, actor string) (domain.Outcome, error) {
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
	current, err := uc.assignments.FindCurrent(ctx, repository.NoTX, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.CodeNotFound, "no current assignment to replace"), nil
		}
		return domain.Outcome{}, err
	}
	newTranslator, err := uc.translators.FindByID(ctx, repository.NoTX, newTranslatorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.CodeNotFound, "translator not found"), nil
		}
		return domain.Outcome{}, err
	}

	now := uc.clock.Now()
	replacement := &model.Assignment{
		ID:           uuid.NewString(),
		JobID:        jobID,
		TranslatorID: newTranslatorID,
		AssignedAt:   now,
	}
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.assignments.Cancel(ctx, tx, current.ID, now); err != nil {
			return err
		}
		return uc.assignments.Save(ctx, tx, replacement)
	})
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("reassign: %w", err)
	}

	oldEmail := ""
	oldTranslator, err := uc.translators.FindByID(ctx, repository.NoTX, current.TranslatorID)
	if err == nil {
		oldEmail = oldTranslator.Email
	}
	uc.log.Info().Str("job_id", jobID).Str("actor", actor).
		Str("old_translator", oldEmail).Str("new_translator", newTranslator.Email).
		Msg("booking reassigned")

	uc.dispatch(ctx, uc.translatorChangedIntents(ctx, job, oldTranslator, newTranslator))
	return domain.Success(map[string]any{"assignment_id": replacement.ID}), nil
}

func (uc *BookingUseCase) translatorChangedIntents(ctx context.Context, job *model.Job, oldT, newT *model.Translator) []adapter.NotificationIntent {
	subject := fmt.Sprintf("Notice about translator assignment for booking #%s", job.ID)
	lang := uc.languageName(ctx, job.FromLanguageID)
	payload := jobPayload(job, lang)

	var intents []adapter.NotificationIntent
	if customer, err := uc.customers.FindByID(ctx, repository.NoTX, job.CustomerID); err == nil {
		intents = append(intents, emailIntent(customerRecipient(customer, job), job, TemplateJobChangedTransl, subject, payload))
	}
	if oldT != nil && !oldT.NotGetEmails {
		intents = append(intents, emailIntent(translatorRecipient(oldT), job, TemplateJobChangedTransl, subject, payload))
	}
	if newT != nil && !newT.NotGetEmails {
		intents = append(intents, emailIntent(translatorRecipient(newT), job, TemplateJobChangedTransl, subject, payload))
	}
	return intents
}

// MarkNotCarriedOut records a customer no-show on any non-terminal booking.
func (uc *BookingUseCase) MarkNotCarriedOut(ctx context.Context, jobID, adminComment string) (domain.Outcome, error) {
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
	res, reject := Apply(*job, ActionNotCarriedOut, Patch{AdminComments: adminComment}, now)
	if reject != nil {
		return *reject, nil
	}
	if err := uc.jobs.Save(ctx, repository.NoTX, &res.Job); err != nil {
		return domain.Outcome{}, fmt.Errorf("save job: %w", err)
	}
	uc.log.Info().Str("job_id", jobID).Msg("booking marked not carried out")

	lang := uc.languageName(ctx, job.FromLanguageID)
	var intents []adapter.NotificationIntent
	if customer, err := uc.customers.FindByID(ctx, repository.NoTX, job.CustomerID); err == nil {
		subject := fmt.Sprintf("Session not carried out for booking #%s", job.ID)
		intents = append(intents, emailIntent(customerRecipient(customer, job), &res.Job, TemplateJobNotCarriedOut, subject, jobPayload(job, lang)))
	}
	if current, err := uc.assignments.FindCurrent(ctx, repository.NoTX, jobID); err == nil {
		if translator, terr := uc.translators.FindByID(ctx, repository.NoTX, current.TranslatorID); terr == nil {
			subject := fmt.Sprintf("Notice about a session not carried out for booking #%s", job.ID)
			intents = append(intents, emailIntent(translatorRecipient(translator), &res.Job, TemplateJobNotCarriedOut, subject, jobPayload(job, lang)))
		}
	}
	uc.dispatch(ctx, intents)
	return domain.Success(nil), nil
}

// Reopen creates a fresh pending copy of a timed-out booking, leaving the old
// record as history.
func (uc *BookingUseCase) Reopen(ctx context.Context, jobID, actor, comment string) (domain.Outcome, error) {
	unlock, busy := uc.lockJob(ctx, jobID)
	if busy != nil {
		return *busy, nil
	}
	defer unlock()

	old, err := uc.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.CodeNotFound, "booking not found"), nil
		}
		return domain.Outcome{}, err
	}

	now := uc.clock.Now()
	res, reject := Apply(*old, ActionReopen, Patch{AdminComments: comment}, now)
	if reject != nil {
		return *reject, nil
	}

	fresh := res.Job
	fresh.ID = uuid.NewString()
	fresh.CreatedAt = now
	fresh.WillExpireAt = expiry.WillExpireAt(fresh.Due, now)
	fresh.WithdrawAt = nil
	fresh.EndAt = nil
	fresh.SessionTime = nil
	if err := uc.jobs.Save(ctx, repository.NoTX, &fresh); err != nil {
		return domain.Outcome{}, fmt.Errorf("save reopened job: %w", err)
	}
	uc.log.Info().Str("actor", actor).Str("old_job_id", old.ID).Str("new_job_id", fresh.ID).
		Str("old_status", string(old.Status)).Str("new_status", string(fresh.Status)).
		Msg("booking reopened")

	intents, err := uc.broadcastIntents(ctx, &fresh, nil)
	if err != nil {
		uc.log.Warn().Err(err).Str("job_id", fresh.ID).Msg("could not compute broadcast recipients")
	} else {
		uc.dispatch(ctx, intents)
	}
	return domain.Success(map[string]any{"id": fresh.ID}), nil
}

// PotentialJobs returns the pending jobs the translator may be offered.
func (uc *BookingUseCase) PotentialJobs(ctx context.Context, translatorID string) (domain.Outcome, error) {
	translator, err := uc.translators.FindByID(ctx, repository.NoTX, translatorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.CodeNotFound, "translator not found"), nil
		}
		return domain.Outcome{}, err
	}
	jobs, err := uc.matcher.PotentialJobsFor(ctx, translator)
	if err != nil {
		return domain.Outcome{}, err
	}
	return domain.Success(map[string]any{"jobs": jobs}), nil
}

// ResendNotifications re-broadcasts an open booking to eligible translators.
func (uc *BookingUseCase) ResendNotifications(ctx context.Context, jobID string) (domain.Outcome, error) {
	job, err := uc.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.CodeNotFound, "booking not found"), nil
		}
		return domain.Outcome{}, err
	}
	intents, err := uc.broadcastIntents(ctx, job, nil)
	if err != nil {
		return domain.Outcome{}, err
	}
	uc.dispatch(ctx, intents)
	return domain.Success(map[string]any{"sent": len(intents)}), nil
}

// ResendSMSNotifications texts every eligible translator about the booking.
func (uc *BookingUseCase) ResendSMSNotifications(ctx context.Context, jobID string) (domain.Outcome, error) {
	job, err := uc.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.CodeNotFound, "booking not found"), nil
		}
		return domain.Outcome{}, err
	}
	candidates, err := uc.matcher.EligibleTranslatorsFor(ctx, job)
	if err != nil {
		return domain.Outcome{}, err
	}
	lang := uc.languageName(ctx, job.FromLanguageID)
	text := fmt.Sprintf("New booking: #%s, language: %s, duration: %d min, due: %s",
		job.ID, lang, job.Duration, job.Due.Format("2006-01-02 15:04"))
	var intents []adapter.NotificationIntent
	for _, t := range candidates {
		if t.Phone == "" {
			continue
		}
		intents = append(intents, smsIntent(translatorRecipient(t), job, text))
	}
	uc.dispatch(ctx, intents)
	return domain.Success(map[string]any{"sent": len(intents)}), nil
}

// StoreJobEmail updates the per-booking contact fields and confirms the
// booking to the customer.
func (uc *BookingUseCase) StoreJobEmail(ctx context.Context, jobID string, email, reference, address, town, instructions string) (domain.Outcome, error) {
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
	customer, err := uc.customers.FindByID(ctx, repository.NoTX, job.CustomerID)
	if err != nil {
		return domain.Outcome{}, err
	}

	if email != "" {
		job.CustomerEmail = email
	}
	job.Reference = reference
	if address != "" {
		job.Address = address
	}
	if town != "" {
		job.Town = town
	} else if job.Town == "" {
		job.Town = customer.Town
	}
	if instructions != "" {
		job.Instructions = instructions
	}
	if err := uc.jobs.Save(ctx, repository.NoTX, job); err != nil {
		return domain.Outcome{}, fmt.Errorf("save job: %w", err)
	}

	lang := uc.languageName(ctx, job.FromLanguageID)
	subject := fmt.Sprintf("We have received your booking. Booking no: #%s", job.ID)
	uc.dispatch(ctx, []adapter.NotificationIntent{
		emailIntent(customerRecipient(customer, job), job, TemplateJobCreated, subject, jobPayload(job, lang)),
	})
	return domain.Success(map[string]any{"job": job}), nil
}
