package repository

import (
	"context"
	"time"

	"interpretation-booking/internal/domain/model"
)

// JobFilter narrows admin job listings. Zero values mean "no constraint".
type JobFilter struct {
	Statuses   []model.JobStatus
	LanguageID int64
	JobType    model.JobType
	CustomerID string
	DueFrom    time.Time
	DueTo      time.Time
	Flagged    *bool
	Limit      int
}

type JobRepository interface {
	Save(ctx context.Context, tx Tx, job *model.Job) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Job, error)
	// FindPendingByCriteria returns pending jobs matching a translator's
	// profile: language spoken, job type, gender and certification level.
	FindPendingByCriteria(ctx context.Context, tx Tx, languages []int64, jobType model.JobType, gender model.Gender, levels []model.TranslatorLevel) ([]*model.Job, error)
	// FindExpiredPending returns pending jobs whose will_expire_at has passed.
	FindExpiredPending(ctx context.Context, tx Tx, asOf time.Time) ([]*model.Job, error)
	List(ctx context.Context, tx Tx, filter JobFilter) ([]*model.Job, error)
}
