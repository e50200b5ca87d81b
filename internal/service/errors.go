package service

import (
	"errors"

	"booking-pricing/internal/repository"
)

var (
	ErrBookingNotFound  = repository.ErrBookingNotFound
	ErrSnapshotNotFound = repository.ErrSnapshotNotFound
	// ErrSnapshotConflict means every attempt lost the version race.
	ErrSnapshotConflict = errors.New("snapshot version conflict")
	// ErrSnapshotBusy means another snapshot of the booking held the lock
	// for longer than the configured wait.
	ErrSnapshotBusy  = errors.New("snapshot in progress for booking")
	ErrInvalidSource = errors.New("invalid snapshot source")
)
