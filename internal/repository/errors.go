package repository

import "errors"

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrSequenceConflict means another writer advanced the booking's
	// snapshot sequence between read and update.
	ErrSequenceConflict = errors.New("snapshot sequence conflict")
)
