package repository

import (
	"context"

	"booking-pricing/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type BookingRepository interface {
	// FindForPricing loads the booking with every relation pricing reads:
	// lines with course dates, courses with intervals and their active
	// discounts ordered by min_days, and payments.
	FindForPricing(ctx context.Context, bookingID uint) (*model.Booking, error)
	Exists(ctx context.Context, bookingID uint) (bool, error)
}

type bookingRepoImpl struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepoImpl{
		db: db,
	}
}

func (r *bookingRepoImpl) FindForPricing(ctx context.Context, bookingID uint) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).
		Preload("BookingUsers", func(db *gorm.DB) *gorm.DB {
			return db.Order("date ASC, id ASC")
		}).
		Preload("BookingUsers.CourseDate").
		Preload("BookingUsers.Course").
		Preload("BookingUsers.Course.Intervals").
		Preload("BookingUsers.Course.Intervals.Discounts", func(db *gorm.DB) *gorm.DB {
			return db.Where("active = ?", true).Order("min_days ASC, id ASC")
		}).
		Preload("Payments").
		First(&booking, bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load booking %d for pricing", bookingID)
	}

	return &booking, nil
}

func (r *bookingRepoImpl) Exists(ctx context.Context, bookingID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ?", bookingID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "count bookings")
	}

	return count > 0, nil
}
