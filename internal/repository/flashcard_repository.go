package repository

import (
	"context"
	"study_companion_backend/internal/model"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type FlashcardRepository struct {
	DB *gorm.DB
}

func NewFlashcardRepository(db *gorm.DB) *FlashcardRepository {
	return &FlashcardRepository{DB: db}
}

func (r *FlashcardRepository) Create(ctx context.Context, card *model.Flashcard) error {
	return errors.Wrap(r.DB.WithContext(ctx).Create(card).Error, "create flashcard")
}

func (r *FlashcardRepository) CreateBatch(ctx context.Context, cards []model.Flashcard) error {
	if len(cards) == 0 {
		return nil
	}
	return errors.Wrap(r.DB.WithContext(ctx).CreateInBatches(cards, 100).Error, "create flashcards")
}

func (r *FlashcardRepository) FindByID(ctx context.Context, id uint) (*model.Flashcard, error) {
	var card model.Flashcard
	if err := r.DB.WithContext(ctx).First(&card, id).Error; err != nil {
		return nil, errors.Wrapf(err, "find flashcard %d", id)
	}
	return &card, nil
}

func (r *FlashcardRepository) Save(ctx context.Context, card *model.Flashcard) error {
	return errors.Wrapf(r.DB.WithContext(ctx).Save(card).Error, "save flashcard %d", card.ID)
}

func (r *FlashcardRepository) ListByUser(ctx context.Context, userID uint, topic string, limit int) ([]model.Flashcard, error) {
	var cards []model.Flashcard
	query := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if topic != "" {
		query = query.Where("topic = ?", topic)
	}
	err := query.Order("id DESC").Limit(limit).Find(&cards).Error
	return cards, errors.Wrapf(err, "list flashcards of user %d", userID)
}

// DueCursor 到期卡片分页游标，指向上一页最后一张卡片
type DueCursor struct {
	NextReviewAt time.Time
	ID           uint
}

// FindDuePage 按 (next_review_at, id) 升序返回到期卡片，after 为空时从头开始
func (r *FlashcardRepository) FindDuePage(ctx context.Context, userID uint, now time.Time, after *DueCursor, limit int) ([]model.Flashcard, error) {
	var cards []model.Flashcard
	query := r.DB.WithContext(ctx).
		Where("user_id = ? AND next_review_at <= ?", userID, now)
	if after != nil {
		query = query.Where("(next_review_at > ? OR (next_review_at = ? AND id > ?))",
			after.NextReviewAt, after.NextReviewAt, after.ID)
	}
	err := query.Order("next_review_at ASC, id ASC").Limit(limit).Find(&cards).Error
	return cards, errors.Wrapf(err, "find due flashcards of user %d", userID)
}

func (r *FlashcardRepository) CountDue(ctx context.Context, userID uint, now time.Time) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Flashcard{}).
		Where("user_id = ? AND next_review_at <= ?", userID, now).
		Count(&count).Error
	return count, errors.Wrapf(err, "count due flashcards of user %d", userID)
}

// SumReviewCount 学习者所有卡片的累计复习次数
func (r *FlashcardRepository) SumReviewCount(ctx context.Context, userID uint) (int64, error) {
	var total int64
	err := r.DB.WithContext(ctx).Model(&model.Flashcard{}).
		Select("COALESCE(SUM(review_count), 0)").
		Where("user_id = ?", userID).
		Scan(&total).Error
	return total, errors.Wrapf(err, "sum reviews of user %d", userID)
}
