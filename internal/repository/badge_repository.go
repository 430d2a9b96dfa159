package repository

import (
	"context"
	"study_companion_backend/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

// UpsertCatalog 按 code 写入徽章定义
func (r *BadgeRepository) UpsertCatalog(ctx context.Context, badges []model.Badge) error {
	if len(badges) == 0 {
		return nil
	}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "icon", "rarity", "trigger_event", "metric", "target", "updated_at"}),
	}).Create(&badges).Error
	return errors.Wrap(err, "upsert badge catalog")
}

func (r *BadgeRepository) ListProgress(ctx context.Context, userID uint) ([]model.LearnerBadgeProgress, error) {
	var progress []model.LearnerBadgeProgress
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&progress).Error
	return progress, errors.Wrapf(err, "list badge progress of user %d", userID)
}

// SaveProgress 按 (user_id, badge_code) 插入或更新进度
func (r *BadgeRepository) SaveProgress(ctx context.Context, progress *model.LearnerBadgeProgress) error {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"current", "target", "earned", "earned_at", "updated_at"}),
	}).Create(progress).Error
	return errors.Wrapf(err, "save badge %s of user %d", progress.BadgeCode, progress.UserID)
}

func (r *BadgeRepository) CountEarned(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.LearnerBadgeProgress{}).
		Where("user_id = ? AND earned = ?", userID, true).
		Count(&count).Error
	return count, errors.Wrapf(err, "count badges of user %d", userID)
}
