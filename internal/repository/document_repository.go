package repository

import (
	"context"
	"study_companion_backend/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type DocumentRepository struct {
	DB *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	return errors.Wrap(r.DB.WithContext(ctx).Create(doc).Error, "create document")
}

func (r *DocumentRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.Document, error) {
	var docs []model.Document
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&docs).Error
	return docs, errors.Wrapf(err, "list documents of user %d", userID)
}

func (r *DocumentRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Document{}).Where("user_id = ?", userID).Count(&count).Error
	return count, errors.Wrapf(err, "count documents of user %d", userID)
}

// CountByType 按文档类型分组计数
func (r *DocumentRepository) CountByType(ctx context.Context, userID uint) ([]model.TypeCount, error) {
	var rows []model.TypeCount
	err := r.DB.WithContext(ctx).Model(&model.Document{}).
		Select("type, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("type").
		Scan(&rows).Error
	return rows, errors.Wrapf(err, "count document types of user %d", userID)
}
