package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrAssignmentConflict = errors.New("job already has a current assignment")
	ErrDoubleBooked       = errors.New("translator already holds a booking at this time")
	ErrJobLocked          = errors.New("another operation is in progress for this job")
	ErrInvalidExecContext = errors.New("invalid sql execution context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
