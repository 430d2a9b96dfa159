package repository

import (
	"context"
	"study_companion_backend/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

// CreateQuiz 在同一事务中写入测验和题目
func (r *QuizRepository) CreateQuiz(ctx context.Context, quiz *model.Quiz) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(quiz).Error
	})
	return errors.Wrap(err, "create quiz")
}

func (r *QuizRepository) FindQuizByID(ctx context.Context, id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&quiz, id).Error
	if err != nil {
		return nil, errors.Wrapf(err, "find quiz %d", id)
	}
	return &quiz, nil
}

// FindResultByID 没有记录时返回 nil
func (r *QuizRepository) FindResultByID(ctx context.Context, id string) (*model.QuizResult, error) {
	var results []model.QuizResult
	err := r.DB.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&results).Error
	if err != nil {
		return nil, errors.Wrapf(err, "find quiz result %s", id)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

func (r *QuizRepository) CreateResult(ctx context.Context, result *model.QuizResult) error {
	return errors.Wrap(r.DB.WithContext(ctx).Create(result).Error, "create quiz result")
}

func (r *QuizRepository) ListResultsByUser(ctx context.Context, userID uint, limit int) ([]model.QuizResult, error) {
	var results []model.QuizResult
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC").
		Limit(limit).
		Find(&results).Error
	return results, errors.Wrapf(err, "list quiz results of user %d", userID)
}

// QuizSummary 测验结果汇总
type QuizSummary struct {
	Taken        int64
	Perfect      int64
	AverageScore float64
}

func (r *QuizRepository) ResultSummary(ctx context.Context, userID uint) (QuizSummary, error) {
	var summary QuizSummary
	err := r.DB.WithContext(ctx).Model(&model.QuizResult{}).
		Select("COUNT(*) AS taken, "+
			"COALESCE(SUM(CASE WHEN correct_count = total_questions AND total_questions > 0 THEN 1 ELSE 0 END), 0) AS perfect, "+
			"COALESCE(AVG(score), 0) AS average_score").
		Where("user_id = ?", userID).
		Scan(&summary).Error
	return summary, errors.Wrapf(err, "summarize quiz results of user %d", userID)
}
