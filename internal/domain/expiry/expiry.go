// Package expiry derives when an unaccepted booking stops being offered.
package expiry

import "time"

const (
	shortNotice  = 90 * time.Minute
	dayNotice    = 24 * time.Hour
	longNotice   = 72 * time.Hour
	acceptWindow = 90 * time.Minute
	midWindow    = 16 * time.Hour
	farCutoff    = 48 * time.Hour
)

// WillExpireAt returns the moment a pending job times out, derived from how
// far ahead of creation the session is due:
//
//	due within 90 min        -> the due time itself
//	due within 24 hours      -> 90 min after creation
//	due within 72 hours      -> 16 hours after creation
//	further out              -> 48 hours before due
func WillExpireAt(due, createdAt time.Time) time.Time {
	diff := due.Sub(createdAt)
	switch {
	case diff <= shortNotice:
		return due
	case diff <= dayNotice:
		return createdAt.Add(acceptWindow)
	case diff <= longNotice:
		return createdAt.Add(midWindow)
	default:
		return due.Add(-farCutoff)
	}
}
