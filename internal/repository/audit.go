package repository

import (
	"context"

	"booking-pricing/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Create(ctx context.Context, tx *gorm.DB, audit *model.BookingPriceAudit) error
	ListByBooking(ctx context.Context, bookingID uint) ([]*model.BookingPriceAudit, error)
}

type auditRepoImpl struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepoImpl{
		db: db,
	}
}

func (r *auditRepoImpl) Create(ctx context.Context, tx *gorm.DB, audit *model.BookingPriceAudit) error {
	if err := tx.WithContext(ctx).Create(audit).Error; err != nil {
		return errors.Wrap(err, "insert price audit")
	}
	return nil
}

func (r *auditRepoImpl) ListByBooking(ctx context.Context, bookingID uint) ([]*model.BookingPriceAudit, error) {
	var audits []*model.BookingPriceAudit
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("id ASC").
		Find(&audits).Error
	if err != nil {
		return nil, errors.Wrap(err, "list price audits")
	}

	return audits, nil
}
