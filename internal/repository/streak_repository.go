package repository

import (
	"context"
	"study_companion_backend/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type StreakRepository struct {
	DB *gorm.DB
}

func NewStreakRepository(db *gorm.DB) *StreakRepository {
	return &StreakRepository{DB: db}
}

// FindByUser 没有记录时返回 nil
func (r *StreakRepository) FindByUser(ctx context.Context, userID uint) (*model.LearnerStreak, error) {
	var streaks []model.LearnerStreak
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&streaks).Error
	if err != nil {
		return nil, errors.Wrapf(err, "find streak of user %d", userID)
	}
	if len(streaks) == 0 {
		return nil, nil
	}
	return &streaks[0], nil
}

func (r *StreakRepository) Save(ctx context.Context, streak *model.LearnerStreak) error {
	return errors.Wrapf(r.DB.WithContext(ctx).Save(streak).Error, "save streak of user %d", streak.UserID)
}
