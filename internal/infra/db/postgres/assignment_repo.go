// File: internal/infra/db/postgres/assignment_repo.go
package postgres

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"interpretation-booking/internal/domain"
	"interpretation-booking/internal/domain/model"
	"interpretation-booking/internal/domain/ports/repository"
)

// Ensure assignmentRepo implements repository.AssignmentRepository
var _ repository.AssignmentRepository = (*assignmentRepo)(nil)

type assignmentRepo struct {
	pool *pgxpool.Pool
}

func NewAssignmentRepo(pool *pgxpool.Pool) *assignmentRepo {
	return &assignmentRepo{pool: pool}
}

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

const assignmentColumns = `id, job_id, translator_id, assigned_at, cancel_at, completed_at, completed_by`

// AcceptPending is the compound accept: a transaction takes a per-job advisory
// lock, verifies the job is still pending with no current assignment and that
// the translator holds no other current assignment at the same due, inserts
// the row and flips the status. Concurrent acceptors of one job serialize on
// the job lock; a translator racing accepts on two jobs with the same due
// serializes on the translator lock. Exactly one wins; the rest get
// domain.ErrAssignmentConflict or domain.ErrDoubleBooked.
func (r *assignmentRepo) AcceptPending(ctx context.Context, jobID, translatorID string, at time.Time) (*model.Assignment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(jobID)); err != nil {
		return nil, domain.ErrOperationFailed
	}
	// Job lock first, translator lock second, everywhere; the order matters.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(translatorID)); err != nil {
		return nil, domain.ErrOperationFailed
	}

	var status model.JobStatus
	var due time.Time
	if err := tx.QueryRow(ctx, `SELECT status, due FROM jobs WHERE id=$1 FOR UPDATE`, jobID).Scan(&status, &due); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	if status != model.JobStatusPending {
		return nil, domain.ErrAssignmentConflict
	}

	var existing int
	err = tx.QueryRow(ctx,
		`SELECT count(*) FROM assignments WHERE job_id=$1 AND cancel_at IS NULL AND completed_at IS NULL`,
		jobID).Scan(&existing)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	if existing > 0 {
		return nil, domain.ErrAssignmentConflict
	}

	var clashing int
	err = tx.QueryRow(ctx, `
SELECT count(*)
  FROM assignments a
  JOIN jobs j ON j.id = a.job_id
 WHERE a.translator_id=$1
   AND a.cancel_at IS NULL AND a.completed_at IS NULL
   AND j.due = $2`,
		translatorID, due).Scan(&clashing)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	if clashing > 0 {
		return nil, domain.ErrDoubleBooked
	}

	a := &model.Assignment{
		ID:           uuid.NewString(),
		JobID:        jobID,
		TranslatorID: translatorID,
		AssignedAt:   at,
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO assignments (id, job_id, translator_id, assigned_at) VALUES ($1,$2,$3,$4)`,
		a.ID, a.JobID, a.TranslatorID, a.AssignedAt)
	if err != nil {
		// The partial unique index is the last line of defense.
		return nil, domain.ErrAssignmentConflict
	}
	if _, err := tx.Exec(ctx, `UPDATE jobs SET status=$1 WHERE id=$2`, model.JobStatusAssigned, jobID); err != nil {
		return nil, domain.ErrOperationFailed
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrOperationFailed
	}
	return a, nil
}

func (r *assignmentRepo) Save(ctx context.Context, tx repository.Tx, a *model.Assignment) error {
	const q = `
INSERT INTO assignments (id, job_id, translator_id, assigned_at, cancel_at, completed_at, completed_by)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  cancel_at=$5, completed_at=$6, completed_by=$7;`
	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.JobID, a.TranslatorID, a.AssignedAt, a.CancelAt, a.CompletedAt, a.CompletedBy)
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

func (r *assignmentRepo) FindCurrent(ctx context.Context, tx repository.Tx, jobID string) (*model.Assignment, error) {
	q := `SELECT ` + assignmentColumns + `
  FROM assignments
 WHERE job_id=$1 AND cancel_at IS NULL AND completed_at IS NULL
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, jobID)
	if err != nil {
		return nil, err
	}
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return a, nil
}

func (r *assignmentRepo) FindByJob(ctx context.Context, tx repository.Tx, jobID string) ([]*model.Assignment, error) {
	q := `SELECT ` + assignmentColumns + ` FROM assignments WHERE job_id=$1 ORDER BY assigned_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, jobID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []*model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *assignmentRepo) Cancel(ctx context.Context, tx repository.Tx, assignmentID string, at time.Time) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE assignments SET cancel_at=$1 WHERE id=$2 AND cancel_at IS NULL AND completed_at IS NULL`,
		at, assignmentID)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *assignmentRepo) Complete(ctx context.Context, tx repository.Tx, assignmentID string, at time.Time, completedBy string) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE assignments SET completed_at=$1, completed_by=$2 WHERE id=$3 AND cancel_at IS NULL AND completed_at IS NULL`,
		at, completedBy, assignmentID)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *assignmentRepo) IsDoubleBooked(ctx context.Context, tx repository.Tx, translatorID string, due time.Time) (bool, error) {
	q := `
SELECT count(*)
  FROM assignments a
  JOIN jobs j ON j.id = a.job_id
 WHERE a.translator_id=$1
   AND a.cancel_at IS NULL AND a.completed_at IS NULL
   AND j.due = $2;`
	row, err := pickRow(ctx, r.pool, tx, q, translatorID, due)
	if err != nil {
		return false, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return n > 0, nil
}

func scanAssignment(row rowScanner) (*model.Assignment, error) {
	var a model.Assignment
	err := row.Scan(&a.ID, &a.JobID, &a.TranslatorID, &a.AssignedAt, &a.CancelAt, &a.CompletedAt, &a.CompletedBy)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
