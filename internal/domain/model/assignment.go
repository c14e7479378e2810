package model

import "time"

// Assignment binds one translator to one job for a span of time.
// For a given job at most one row may have both CancelAt and CompletedAt
// unset; that row is the current assignment. Reassignment soft-cancels the
// old row and inserts a new one so history is never rewritten.
type Assignment struct {
	ID           string // UUID
	JobID        string
	TranslatorID string
	AssignedAt   time.Time
	CancelAt     *time.Time
	CompletedAt  *time.Time
	CompletedBy  string
}

// Current reports whether this row is the job's active binding.
func (a *Assignment) Current() bool {
	return a.CancelAt == nil && a.CompletedAt == nil
}
