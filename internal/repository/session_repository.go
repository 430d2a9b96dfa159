package repository

import (
	"context"
	"study_companion_backend/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.StudySession) error {
	return errors.Wrap(r.DB.WithContext(ctx).Create(session).Error, "create session")
}

func (r *SessionRepository) FindByID(ctx context.Context, id uint) (*model.StudySession, error) {
	var session model.StudySession
	if err := r.DB.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, errors.Wrapf(err, "find session %d", id)
	}
	return &session, nil
}

func (r *SessionRepository) Save(ctx context.Context, session *model.StudySession) error {
	return errors.Wrapf(r.DB.WithContext(ctx).Save(session).Error, "save session %d", session.ID)
}

// FindOpenByUser 返回学习者未结束的会话，没有时返回 nil
func (r *SessionRepository) FindOpenByUser(ctx context.Context, userID uint) (*model.StudySession, error) {
	var sessions []model.StudySession
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []model.SessionStatus{model.SessionActive, model.SessionPaused}).
		Order("start_time DESC").
		Limit(1).
		Find(&sessions).Error
	if err != nil {
		return nil, errors.Wrapf(err, "find open session of user %d", userID)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.StudySession, error) {
	var sessions []model.StudySession
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_time DESC, id DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, errors.Wrapf(err, "list sessions of user %d", userID)
}

// CompletedSummary 已完成会话的数量和总时长（秒）
func (r *SessionRepository) CompletedSummary(ctx context.Context, userID uint) (count int64, seconds int64, err error) {
	var row struct {
		Count   int64
		Seconds int64
	}
	err = r.DB.WithContext(ctx).Model(&model.StudySession{}).
		Select("COUNT(*) AS count, COALESCE(SUM(active_ms), 0) DIV 1000 AS seconds").
		Where("user_id = ? AND status = ?", userID, model.SessionCompleted).
		Scan(&row).Error
	if err != nil {
		return 0, 0, errors.Wrapf(err, "summarize sessions of user %d", userID)
	}
	return row.Count, row.Seconds, nil
}

func (r *SessionRepository) SubjectBreakdown(ctx context.Context, userID uint) ([]model.SubjectStudyTime, error) {
	var rows []model.SubjectStudyTime
	err := r.DB.WithContext(ctx).Model(&model.StudySession{}).
		Select("subject, COALESCE(SUM(active_ms), 0) DIV 1000 AS seconds, COUNT(*) AS sessions").
		Where("user_id = ? AND status = ?", userID, model.SessionCompleted).
		Group("subject").
		Order("seconds DESC").
		Scan(&rows).Error
	return rows, errors.Wrapf(err, "subject breakdown of user %d", userID)
}
