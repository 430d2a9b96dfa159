package service

import (
	"context"
	"strings"
	"study_companion_backend/internal/model"
	"study_companion_backend/internal/util"
	"time"

	"github.com/pkg/errors"
)

type UserService struct {
	Users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{Users: users}
}

type UpdatePreferencesRequest struct {
	model.LearningPreferences
	Timezone string `json:"timezone"`
}

func (s *UserService) GetProfile(ctx context.Context, learnerID uint) (*model.User, error) {
	user, err := s.Users.FindByID(ctx, learnerID)
	if err != nil {
		return nil, translateNotFound(err, "learner %d", learnerID)
	}
	return user, nil
}

// UpdatePreferences 空字段保持原值
func (s *UserService) UpdatePreferences(ctx context.Context, learnerID uint, req UpdatePreferencesRequest) (*model.User, error) {
	user, err := s.GetProfile(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	prefs := user.Preferences
	if req.Style != "" {
		prefs.Style = req.Style
	}
	if req.Pace != "" {
		prefs.Pace = req.Pace
	}
	if req.DetailLevel != "" {
		prefs.DetailLevel = req.DetailLevel
	}
	if req.ExampleFrequency != "" {
		prefs.ExampleFrequency = req.ExampleFrequency
	}
	if req.AssistantTone != "" {
		prefs.AssistantTone = req.AssistantTone
	}

	timezone := user.Timezone
	if tz := strings.TrimSpace(req.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, errors.Wrapf(util.ErrValidation, "unknown timezone %q", tz)
		}
		timezone = tz
	}

	if err := s.Users.UpdatePreferences(ctx, learnerID, prefs, timezone); err != nil {
		return nil, err
	}
	user.Preferences = prefs
	user.Timezone = timezone
	return user, nil
}

// TouchLastSeen 记录最近活跃时间
func (s *UserService) TouchLastSeen(ctx context.Context, learnerID uint) error {
	return s.Users.TouchLastSeen(ctx, learnerID, time.Now())
}
