package repository

import (
	"context"
	"study_companion_backend/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ChatRepository struct {
	DB *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{DB: db}
}

// CreateExchange 在同一事务中保存提问和回答
func (r *ChatRepository) CreateExchange(ctx context.Context, question, answer *model.ChatMessage) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(question).Error; err != nil {
			return err
		}
		return tx.Create(answer).Error
	})
	return errors.Wrap(err, "save chat exchange")
}

// ListRecent 返回最近的消息，按时间正序
func (r *ChatRepository) ListRecent(ctx context.Context, userID uint, limit int) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list chat messages of user %d", userID)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
