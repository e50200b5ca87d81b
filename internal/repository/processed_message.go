package repository

import (
	"context"
	"time"

	"booking-pricing/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProcessedMessageRepository interface {
	Exists(ctx context.Context, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, messageID, queue string) error
}

type processedMessageRepoImpl struct {
	db *gorm.DB
}

func NewProcessedMessageRepository(db *gorm.DB) ProcessedMessageRepository {
	return &processedMessageRepoImpl{db: db}
}

func (r *processedMessageRepoImpl) Exists(ctx context.Context, messageID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ProcessedMessage{}).
		Where("message_id = ?", messageID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check processed message")
	}

	return count > 0, nil
}

// MarkProcessed is a no-op for ids already recorded.
func (r *processedMessageRepoImpl) MarkProcessed(ctx context.Context, messageID, queue string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ProcessedMessage{
			MessageID:   messageID,
			Queue:       queue,
			ProcessedAt: time.Now(),
		}).Error
}
