package repository

import (
	"context"

	"booking-pricing/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SnapshotRepository is append-only: there is no update or delete.
type SnapshotRepository interface {
	Create(ctx context.Context, tx *gorm.DB, snapshot *model.BookingPriceSnapshot) error
	// Latest returns the highest version for the booking, or nil when there is none.
	Latest(ctx context.Context, tx *gorm.DB, bookingID uint) (*model.BookingPriceSnapshot, error)
	FindByVersion(ctx context.Context, bookingID uint, version int) (*model.BookingPriceSnapshot, error)
	ListByBooking(ctx context.Context, bookingID uint) ([]*model.BookingPriceSnapshot, error)
}

type snapshotRepoImpl struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepoImpl{
		db: db,
	}
}

func (r *snapshotRepoImpl) Create(ctx context.Context, tx *gorm.DB, snapshot *model.BookingPriceSnapshot) error {
	if err := tx.WithContext(ctx).Create(snapshot).Error; err != nil {
		return errors.Wrapf(err, "insert snapshot v%d for booking %d", snapshot.SequenceNumber, snapshot.BookingID)
	}
	return nil
}

func (r *snapshotRepoImpl) Latest(ctx context.Context, tx *gorm.DB, bookingID uint) (*model.BookingPriceSnapshot, error) {
	if tx == nil {
		tx = r.db
	}

	var snapshot model.BookingPriceSnapshot
	err := tx.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("version DESC").
		Limit(1).
		Find(&snapshot).Error
	if err != nil {
		return nil, errors.Wrap(err, "find latest snapshot")
	}
	if snapshot.ID == 0 {
		return nil, nil
	}

	return &snapshot, nil
}

func (r *snapshotRepoImpl) FindByVersion(ctx context.Context, bookingID uint, version int) (*model.BookingPriceSnapshot, error) {
	var snapshot model.BookingPriceSnapshot
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND version = ?", bookingID, version).
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find snapshot by version")
	}

	return &snapshot, nil
}

func (r *snapshotRepoImpl) ListByBooking(ctx context.Context, bookingID uint) ([]*model.BookingPriceSnapshot, error) {
	var snapshots []*model.BookingPriceSnapshot
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("version ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, errors.Wrap(err, "list snapshots")
	}

	return snapshots, nil
}
