package repository

import (
	"context"
	"time"

	"interpretation-booking/internal/domain/model"
)

type AssignmentRepository interface {
	// AcceptPending atomically inserts an assignment for a pending job and
	// flips its status to assigned. It fails with domain.ErrAssignmentConflict
	// when the job is no longer pending or already has a current assignment,
	// and with domain.ErrDoubleBooked when the translator already holds a
	// current assignment at the same due. Both checks run inside the same
	// atomic operation; two racing acceptors yield exactly one winner.
	AcceptPending(ctx context.Context, jobID, translatorID string, at time.Time) (*model.Assignment, error)

	Save(ctx context.Context, tx Tx, a *model.Assignment) error
	// FindCurrent returns the single assignment with neither cancel nor
	// completion recorded, or domain.ErrNotFound.
	FindCurrent(ctx context.Context, tx Tx, jobID string) (*model.Assignment, error)
	FindByJob(ctx context.Context, tx Tx, jobID string) ([]*model.Assignment, error)
	// Cancel soft-cancels the assignment, preserving it as history.
	Cancel(ctx context.Context, tx Tx, assignmentID string, at time.Time) error
	// Complete closes the assignment with who ended the session and when.
	Complete(ctx context.Context, tx Tx, assignmentID string, at time.Time, completedBy string) error
	// IsDoubleBooked reports whether the translator already holds a current
	// assignment for another job due at the same time.
	IsDoubleBooked(ctx context.Context, tx Tx, translatorID string, due time.Time) (bool, error)
}
