package repository

import (
	"context"

	"booking-pricing/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type BookingLogRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entry *model.BookingLog) error
	ListByBooking(ctx context.Context, bookingID uint) ([]*model.BookingLog, error)
}

type bookingLogRepoImpl struct {
	db *gorm.DB
}

func NewBookingLogRepository(db *gorm.DB) BookingLogRepository {
	return &bookingLogRepoImpl{
		db: db,
	}
}

func (r *bookingLogRepoImpl) Create(ctx context.Context, tx *gorm.DB, entry *model.BookingLog) error {
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return errors.Wrap(err, "insert booking log")
	}
	return nil
}

func (r *bookingLogRepoImpl) ListByBooking(ctx context.Context, bookingID uint) ([]*model.BookingLog, error) {
	var entries []*model.BookingLog
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, errors.Wrap(err, "list booking logs")
	}

	return entries, nil
}
