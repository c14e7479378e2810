// File: internal/infra/db/postgres/job_repo.go
package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"interpretation-booking/internal/domain"
	"interpretation-booking/internal/domain/model"
	"interpretation-booking/internal/domain/ports/repository"
)

// Ensure jobRepo implements repository.JobRepository
var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
}

const jobColumns = `
  id, customer_id, from_language_id, status, immediate, due, duration,
  gender, certification, job_type, phone_enabled, physical_enabled,
  created_at, will_expire_at, withdraw_at, end_at, session_seconds,
  admin_comments, flagged, manually_handled, by_admin,
  customer_email, reference, address, town, instructions, specific_translator_id`

func (r *jobRepo) Save(ctx context.Context, tx repository.Tx, job *model.Job) error {
	const q = `
INSERT INTO jobs (
  id, customer_id, from_language_id, status, immediate, due, duration,
  gender, certification, job_type, phone_enabled, physical_enabled,
  created_at, will_expire_at, withdraw_at, end_at, session_seconds,
  admin_comments, flagged, manually_handled, by_admin,
  customer_email, reference, address, town, instructions, specific_translator_id
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)
ON CONFLICT (id) DO UPDATE SET
  from_language_id=$3, status=$4, due=$6, duration=$7,
  gender=$8, certification=$9, job_type=$10, phone_enabled=$11, physical_enabled=$12,
  created_at=$13, will_expire_at=$14, withdraw_at=$15, end_at=$16, session_seconds=$17,
  admin_comments=$18, flagged=$19, manually_handled=$20, by_admin=$21,
  customer_email=$22, reference=$23, address=$24, town=$25, instructions=$26, specific_translator_id=$27;`

	var sessionSeconds *int64
	if job.SessionTime != nil {
		s := int64(job.SessionTime.Seconds())
		sessionSeconds = &s
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		job.ID, job.CustomerID, job.FromLanguageID, job.Status, job.Immediate, job.Due, job.Duration,
		job.Gender, job.Certification, job.JobType, job.PhoneEnabled, job.PhysicalEnabled,
		job.CreatedAt, job.WillExpireAt, job.WithdrawAt, job.EndAt, sessionSeconds,
		job.AdminComments, job.Flagged, job.ManuallyHandled, job.ByAdmin,
		job.CustomerEmail, job.Reference, job.Address, job.Town, job.Instructions, job.SpecificTranslatorID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *jobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return job, nil
}

// certificationsForLevels inverts the certification-to-level expansion: the
// requirement values a translator holding the given levels can serve.
func certificationsForLevels(levels []model.TranslatorLevel) []model.Certification {
	all := []model.Certification{
		model.CertificationNone,
		model.CertificationNormal,
		model.CertificationYes,
		model.CertificationLaw,
		model.CertificationHealth,
		model.CertificationBoth,
	}
	held := make(map[model.TranslatorLevel]bool, len(levels))
	for _, l := range levels {
		held[l] = true
	}
	var out []model.Certification
	for _, c := range all {
		for _, want := range model.LevelsForCertification(c) {
			if held[want] {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func (r *jobRepo) FindPendingByCriteria(ctx context.Context, tx repository.Tx, languages []int64, jobType model.JobType, gender model.Gender, levels []model.TranslatorLevel) ([]*model.Job, error) {
	q := `
SELECT ` + jobColumns + `
  FROM jobs
 WHERE status='pending'
   AND from_language_id = ANY($1)
   AND job_type = $2
   AND (gender = '' OR gender = $3)
   AND certification = ANY($4)
 ORDER BY due ASC;`

	certs := certificationsForLevels(levels)
	certStrings := make([]string, 0, len(certs))
	for _, c := range certs {
		certStrings = append(certStrings, string(c))
	}
	rows, err := queryRows(ctx, r.pool, tx, q, languages, jobType, gender, certStrings)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *jobRepo) FindExpiredPending(ctx context.Context, tx repository.Tx, asOf time.Time) ([]*model.Job, error) {
	q := `
SELECT ` + jobColumns + `
  FROM jobs
 WHERE status='pending' AND will_expire_at <= $1
 ORDER BY will_expire_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, asOf)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *jobRepo) List(ctx context.Context, tx repository.Tx, filter repository.JobFilter) ([]*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE TRUE`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if len(filter.Statuses) > 0 {
		ss := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			ss = append(ss, string(s))
		}
		q += ` AND status = ANY(` + arg(ss) + `)`
	}
	if filter.LanguageID != 0 {
		q += ` AND from_language_id = ` + arg(filter.LanguageID)
	}
	if filter.JobType != "" {
		q += ` AND job_type = ` + arg(filter.JobType)
	}
	if filter.CustomerID != "" {
		q += ` AND customer_id = ` + arg(filter.CustomerID)
	}
	if !filter.DueFrom.IsZero() {
		q += ` AND due >= ` + arg(filter.DueFrom)
	}
	if !filter.DueTo.IsZero() {
		q += ` AND due <= ` + arg(filter.DueTo)
	}
	if filter.Flagged != nil {
		q += ` AND flagged = ` + arg(*filter.Flagged)
	}
	q += ` ORDER BY due DESC`
	if filter.Limit > 0 {
		q += ` LIMIT ` + arg(filter.Limit)
	}

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return collectJobs(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		j              model.Job
		sessionSeconds *int64
	)
	err := row.Scan(
		&j.ID, &j.CustomerID, &j.FromLanguageID, &j.Status, &j.Immediate, &j.Due, &j.Duration,
		&j.Gender, &j.Certification, &j.JobType, &j.PhoneEnabled, &j.PhysicalEnabled,
		&j.CreatedAt, &j.WillExpireAt, &j.WithdrawAt, &j.EndAt, &sessionSeconds,
		&j.AdminComments, &j.Flagged, &j.ManuallyHandled, &j.ByAdmin,
		&j.CustomerEmail, &j.Reference, &j.Address, &j.Town, &j.Instructions, &j.SpecificTranslatorID,
	)
	if err != nil {
		return nil, err
	}
	if sessionSeconds != nil {
		d := time.Duration(*sessionSeconds) * time.Second
		j.SessionTime = &d
	}
	return &j, nil
}

func collectJobs(rows pgx.Rows) ([]*model.Job, error) {
	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
