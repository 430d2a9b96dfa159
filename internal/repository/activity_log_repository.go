package repository

import (
	"context"
	"study_companion_backend/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ActivityLogRepository struct {
	DB *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) *ActivityLogRepository {
	return &ActivityLogRepository{DB: db}
}

func (r *ActivityLogRepository) Create(ctx context.Context, entry *model.ActivityLog) error {
	return errors.Wrap(r.DB.WithContext(ctx).Create(entry).Error, "create activity log")
}

func (r *ActivityLogRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.ActivityLog, error) {
	var logs []model.ActivityLog
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, errors.Wrapf(err, "list activity of user %d", userID)
}
