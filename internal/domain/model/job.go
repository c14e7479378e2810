package model

import (
	"time"

	"interpretation-booking/internal/domain"
)

type JobStatus string

const (
	JobStatusPending        JobStatus = "pending"
	JobStatusAssigned       JobStatus = "assigned"
	JobStatusStarted        JobStatus = "started"
	JobStatusCompleted      JobStatus = "completed"
	JobStatusWithdrawBefore JobStatus = "withdrawbefore24"
	JobStatusWithdrawAfter  JobStatus = "withdrawafter24"
	JobStatusTimedout       JobStatus = "timedout"
	JobStatusNotCarriedOut  JobStatus = "not_carried_out_customer"
)

// Terminal reports whether the status permits no further transition besides
// editing admin comments. Timedout is excluded: it may be reopened, and
// withdrawafter24 may still be moved to timedout by an admin.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusWithdrawBefore, JobStatusNotCarriedOut:
		return true
	}
	return false
}

type Gender string

const (
	GenderNone   Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type Certification string

const (
	CertificationNone   Certification = ""
	CertificationNormal Certification = "normal"
	CertificationYes    Certification = "yes"
	CertificationLaw    Certification = "law"
	CertificationHealth Certification = "health"
	CertificationBoth   Certification = "both"
)

type JobType string

const (
	JobTypePaid   JobType = "paid"
	JobTypeRWS    JobType = "rws"
	JobTypeUnpaid JobType = "unpaid"
)

// ImmediateLeadTime is how far in the future an immediate job is due.
const ImmediateLeadTime = 5 * time.Minute

// Job is a single requested interpretation booking.
type Job struct {
	ID              string // UUID
	CustomerID      string
	FromLanguageID  int64
	Status          JobStatus
	Immediate       bool
	Due             time.Time
	Duration        int // minutes
	Gender          Gender
	Certification   Certification
	JobType         JobType
	PhoneEnabled    bool
	PhysicalEnabled bool
	CreatedAt       time.Time
	WillExpireAt    time.Time
	WithdrawAt      *time.Time
	EndAt           *time.Time
	SessionTime     *time.Duration
	AdminComments   string
	Flagged         bool
	ManuallyHandled bool
	ByAdmin         bool

	// Contact fields a customer may override per booking.
	CustomerEmail string
	Reference     string
	Address       string
	Town          string
	Instructions  string

	// SpecificTranslatorID pins the job to one translator when non-empty.
	SpecificTranslatorID string
}

// Validate checks the structural invariants that hold for every persisted job.
func (j *Job) Validate() error {
	if j.ID == "" || j.CustomerID == "" || j.FromLanguageID == 0 {
		return domain.ErrInvalidArgument
	}
	if !j.PhoneEnabled && !j.PhysicalEnabled {
		return domain.ErrInvalidArgument
	}
	if j.Duration <= 0 {
		return domain.ErrInvalidArgument
	}
	return nil
}

// TranslatorTypeForJob maps a job type to the translator type allowed to take it.
func TranslatorTypeForJob(jt JobType) TranslatorType {
	switch jt {
	case JobTypePaid:
		return TranslatorTypeProfessional
	case JobTypeRWS:
		return TranslatorTypeRWS
	default:
		return TranslatorTypeVolunteer
	}
}

// JobTypeForConsumer maps a customer's consumer type to the job type their
// bookings are created with.
func JobTypeForConsumer(consumerType string) JobType {
	switch consumerType {
	case "RWS", "rws":
		return JobTypeRWS
	case "paid":
		return JobTypePaid
	default:
		return JobTypeUnpaid
	}
}

// LevelsForCertification expands a certification requirement into the set of
// translator levels that satisfy it.
func LevelsForCertification(c Certification) []TranslatorLevel {
	switch c {
	case CertificationLaw:
		return []TranslatorLevel{LevelCertifiedLaw}
	case CertificationHealth:
		return []TranslatorLevel{LevelCertifiedHealth}
	case CertificationNormal:
		return []TranslatorLevel{LevelLayman, LevelReadCourses}
	default: // none, yes and both accept every level
		return []TranslatorLevel{
			LevelCertified,
			LevelCertifiedLaw,
			LevelCertifiedHealth,
			LevelLayman,
			LevelReadCourses,
		}
	}
}
