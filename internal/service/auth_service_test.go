package service

import (
	"context"
	"testing"
	"time"

	"study_companion_backend/internal/config"
	"study_companion_backend/internal/model"
	"study_companion_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	users := newMemUsers()
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}}
	svc := NewAuthService(users, cfg)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{Name: "Mei", Email: " Mei@Example.com ", Password: "s3cret!", Timezone: "Asia/Shanghai"})
	require.NoError(t, err)
	assert.Equal(t, "mei@example.com", user.Email)
	assert.NotEqual(t, "s3cret!", user.Password)
	assert.Equal(t, model.StyleReading, user.Preferences.Style)

	_, err = svc.Register(ctx, RegisterRequest{Name: "Mei", Email: "mei@example.com", Password: "another"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	_, err = svc.Register(ctx, RegisterRequest{Name: "Kai", Email: "kai@example.com", Password: "secret", Timezone: "Nowhere/City"})
	assert.ErrorIs(t, err, util.ErrValidation)

	token, loggedIn, err := svc.Login(ctx, "MEI@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	claims, err := util.ParseJWT(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, _, err = svc.Login(ctx, "mei@example.com", "wrong")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "ghost@example.com", "s3cret!")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}

func TestUpdatePreferences(t *testing.T) {
	users := newMemUsers()
	ctx := context.Background()
	require.NoError(t, users.Create(ctx, &model.User{
		BaseModel:   model.BaseModel{ID: 1},
		Timezone:    "UTC",
		Preferences: model.LearningPreferences{Style: model.StyleReading, Pace: "normal", AssistantTone: "friendly"},
	}))
	svc := NewUserService(users)

	var req UpdatePreferencesRequest
	req.Style = model.StyleHandsOn
	req.Timezone = "Europe/Berlin"
	user, err := svc.UpdatePreferences(ctx, 1, req)
	require.NoError(t, err)
	assert.Equal(t, model.StyleHandsOn, user.Preferences.Style)
	assert.Equal(t, "normal", user.Preferences.Pace)
	assert.Equal(t, "Europe/Berlin", user.Timezone)

	stored, err := users.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "friendly", stored.Preferences.AssistantTone)

	req = UpdatePreferencesRequest{Timezone: "Atlantis/Deep"}
	_, err = svc.UpdatePreferences(ctx, 1, req)
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = svc.GetProfile(ctx, 404)
	assert.ErrorIs(t, err, util.ErrNotFound)

	require.NoError(t, svc.TouchLastSeen(ctx, 1))
	stored, _ = users.FindByID(ctx, 1)
	assert.False(t, stored.LastSeen.IsZero())
}
