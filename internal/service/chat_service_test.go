package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"study_companion_backend/internal/ai"
	mock_ai "study_companion_backend/internal/mocks/ai"
	"study_companion_backend/internal/model"
	"study_companion_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newChatFixture(t *testing.T) (*ChatService, *mock_ai.MockGenerator, *memChats) {
	t.Helper()
	ctrl := gomock.NewController(t)
	generator := mock_ai.NewMockGenerator(ctrl)

	users := newMemUsers()
	require.NoError(t, users.Create(context.Background(), &model.User{
		BaseModel: model.BaseModel{ID: 1},
		Email:     "ana@example.com",
		Preferences: model.LearningPreferences{
			Style:         model.StyleVisual,
			AssistantTone: "encouraging",
		},
	}))
	chats := &memChats{}
	svc := NewChatService(chats, users, generator, RetryPolicy{Attempts: 2, Delay: time.Millisecond})
	return svc, generator, chats
}

func TestAsk_PersistsExchangeWithPreferences(t *testing.T) {
	svc, generator, chats := newChatFixture(t)
	ctx := context.Background()

	generator.EXPECT().
		Answer(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req ai.AnswerRequest) (*ai.Answer, error) {
			assert.Equal(t, "What is a closure?", req.Question)
			assert.Equal(t, model.StyleVisual, req.Preferences.Style)
			assert.Empty(t, req.History)
			return &ai.Answer{
				Text:  "A function bundled with its environment.",
				Media: []model.MediaItem{{Type: "code", Payload: "func() {}", Language: "go"}},
			}, nil
		})

	resp, err := svc.Ask(ctx, 1, "  What is a closure? ")
	require.NoError(t, err)
	assert.Equal(t, model.ChatRoleUser, resp.Question.Role)
	assert.Equal(t, model.ChatRoleAssistant, resp.Answer.Role)
	require.Len(t, resp.Answer.Media, 1)
	assert.Equal(t, "go", resp.Answer.Media[0].Language)
	assert.Len(t, chats.messages, 2)

	generator.EXPECT().
		Answer(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req ai.AnswerRequest) (*ai.Answer, error) {
			require.Len(t, req.History, 2)
			assert.Equal(t, ai.RoleUser, req.History[0].Role)
			assert.Equal(t, ai.RoleAssistant, req.History[1].Role)
			return &ai.Answer{Text: "Yes."}, nil
		})
	_, err = svc.Ask(ctx, 1, "Can closures capture loop variables?")
	require.NoError(t, err)

	history, err := svc.History(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestAsk_Failures(t *testing.T) {
	svc, generator, chats := newChatFixture(t)
	ctx := context.Background()

	_, err := svc.Ask(ctx, 1, "   ")
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = svc.Ask(ctx, 99, "hello")
	assert.ErrorIs(t, err, util.ErrNotFound)

	generator.EXPECT().
		Answer(gomock.Any(), gomock.Any()).
		Return(nil, &ai.ErrProviderUnavailable{Err: errors.New("502")}).
		Times(2)
	_, err = svc.Ask(ctx, 1, "hello")
	assert.ErrorIs(t, err, util.ErrGenerationFailed)
	assert.Empty(t, chats.messages)

	svc.Generator = nil
	_, err = svc.Ask(ctx, 1, "hello")
	assert.ErrorIs(t, err, util.ErrGenerationFailed)
}
