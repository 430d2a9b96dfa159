package service

import (
	"context"
	"strings"
	"study_companion_backend/internal/ai"
	"study_companion_backend/internal/model"
	"study_companion_backend/internal/util"
	"study_companion_backend/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const chatHistoryTurns = 10

// ChatService 对话辅导，不修改任何引擎状态
type ChatService struct {
	Messages  ChatStore
	Users     UserStore
	Generator ai.Generator
	Retry     RetryPolicy
}

func NewChatService(messages ChatStore, users UserStore, generator ai.Generator, retry RetryPolicy) *ChatService {
	return &ChatService{Messages: messages, Users: users, Generator: generator, Retry: retry}
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

type AskResponse struct {
	Question model.ChatMessage `json:"question"`
	Answer   model.ChatMessage `json:"answer"`
}

func (s *ChatService) Ask(ctx context.Context, learnerID uint, question string) (*AskResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.Wrap(util.ErrValidation, "question is required")
	}
	if s.Generator == nil {
		return nil, errors.Wrap(util.ErrGenerationFailed, "content generation is disabled")
	}

	user, err := s.Users.FindByID(ctx, learnerID)
	if err != nil {
		return nil, translateNotFound(err, "learner %d", learnerID)
	}

	history, err := s.Messages.ListRecent(ctx, learnerID, chatHistoryTurns*2)
	if err != nil {
		return nil, err
	}

	req := ai.AnswerRequest{
		Question:    question,
		History:     toAIMessages(history),
		Preferences: user.Preferences,
	}

	var answer *ai.Answer
	err = s.Retry.Do(ctx, func(ctx context.Context) error {
		var genErr error
		answer, genErr = s.Generator.Answer(ctx, req)
		return genErr
	})
	if err != nil {
		logger.Log.Warn("Tutor answer failed", zap.Uint("learnerID", learnerID), zap.Error(err))
		return nil, errors.Wrap(util.ErrGenerationFailed, err.Error())
	}

	q := &model.ChatMessage{UserID: learnerID, Role: model.ChatRoleUser, Content: question}
	a := &model.ChatMessage{UserID: learnerID, Role: model.ChatRoleAssistant, Content: answer.Text, Media: answer.Media}
	if err := s.Messages.CreateExchange(ctx, q, a); err != nil {
		return nil, err
	}
	return &AskResponse{Question: *q, Answer: *a}, nil
}

func (s *ChatService) History(ctx context.Context, learnerID uint, limit int) ([]model.ChatMessage, error) {
	return s.Messages.ListRecent(ctx, learnerID, limit)
}

func toAIMessages(history []model.ChatMessage) []ai.Message {
	out := make([]ai.Message, 0, len(history))
	for _, m := range history {
		role := ai.RoleUser
		if m.Role == model.ChatRoleAssistant {
			role = ai.RoleAssistant
		}
		out = append(out, ai.Message{Role: role, Content: m.Content})
	}
	return out
}
