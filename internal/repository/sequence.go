package repository

import (
	"context"
	"time"

	"booking-pricing/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SequenceRepository issues per-booking snapshot versions.
type SequenceRepository interface {
	// Next returns the next version for the booking. It returns
	// ErrSequenceConflict when a concurrent writer won the increment, and a
	// wrapped gorm.ErrDuplicatedKey when two writers seed the counter at once.
	Next(ctx context.Context, tx *gorm.DB, bookingID uint) (int, error)
}

type sequenceRepoImpl struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepoImpl{
		db: db,
	}
}

func (r *sequenceRepoImpl) Next(ctx context.Context, tx *gorm.DB, bookingID uint) (int, error) {
	var seq model.BookingSnapshotSequence
	result := tx.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Limit(1).
		Find(&seq)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "read snapshot sequence")
	}
	if result.RowsAffected == 0 {
		return r.seed(ctx, tx, bookingID)
	}

	// compare-and-swap on the value we read
	result = tx.WithContext(ctx).Model(&model.BookingSnapshotSequence{}).
		Where("booking_id = ? AND last_version = ?", bookingID, seq.LastVersion).
		Updates(map[string]interface{}{
			"last_version": gorm.Expr("last_version + 1"),
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "advance snapshot sequence")
	}
	if result.RowsAffected == 0 {
		return 0, ErrSequenceConflict
	}

	return seq.LastVersion + 1, nil
}

// seed creates the counter, continuing after any snapshots written before the
// counter existed.
func (r *sequenceRepoImpl) seed(ctx context.Context, tx *gorm.DB, bookingID uint) (int, error) {
	var maxVersion int
	err := tx.WithContext(ctx).Model(&model.BookingPriceSnapshot{}).
		Where("booking_id = ?", bookingID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error
	if err != nil {
		return 0, errors.Wrap(err, "read max snapshot version")
	}

	seq := model.BookingSnapshotSequence{
		BookingID:   bookingID,
		LastVersion: maxVersion + 1,
		UpdatedAt:   time.Now(),
	}
	if err := tx.WithContext(ctx).Create(&seq).Error; err != nil {
		return 0, errors.Wrap(err, "seed snapshot sequence")
	}

	return seq.LastVersion, nil
}
