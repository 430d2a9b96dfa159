package repository

import (
	"context"
	"study_companion_backend/internal/model"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	// 确保创建时间被设置
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	return errors.Wrap(r.DB.WithContext(ctx).Create(user).Error, "create user")
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, errors.Wrapf(err, "find user %d", id)
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, errors.Wrap(err, "find user by email")
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	return errors.Wrapf(r.DB.WithContext(ctx).Save(user).Error, "update user %d", user.ID)
}

// UpdatePreferences 只更新学习偏好和时区
func (r *UserRepository) UpdatePreferences(ctx context.Context, userID uint, prefs model.LearningPreferences, timezone string) error {
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"pref_style":             prefs.Style,
			"pref_pace":              prefs.Pace,
			"pref_detail_level":      prefs.DetailLevel,
			"pref_example_frequency": prefs.ExampleFrequency,
			"pref_assistant_tone":    prefs.AssistantTone,
			"timezone":               timezone,
		}).Error
	return errors.Wrapf(err, "update preferences of user %d", userID)
}

func (r *UserRepository) TouchLastSeen(ctx context.Context, userID uint, at time.Time) error {
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_seen", at).Error
	return errors.Wrapf(err, "touch user %d", userID)
}
