package service

import (
	"context"
	"study_companion_backend/internal/model"
	"study_companion_backend/internal/repository"
	"time"
)

// 引擎依赖的存储接口，由 repository 包中的 gorm 实现满足

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	UpdatePreferences(ctx context.Context, userID uint, prefs model.LearningPreferences, timezone string) error
	TouchLastSeen(ctx context.Context, userID uint, at time.Time) error
}

type SessionStore interface {
	Create(ctx context.Context, session *model.StudySession) error
	FindByID(ctx context.Context, id uint) (*model.StudySession, error)
	Save(ctx context.Context, session *model.StudySession) error
	FindOpenByUser(ctx context.Context, userID uint) (*model.StudySession, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]model.StudySession, error)
	CompletedSummary(ctx context.Context, userID uint) (count int64, seconds int64, err error)
	SubjectBreakdown(ctx context.Context, userID uint) ([]model.SubjectStudyTime, error)
}

type StreakStore interface {
	FindByUser(ctx context.Context, userID uint) (*model.LearnerStreak, error)
	Save(ctx context.Context, streak *model.LearnerStreak) error
}

type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz *model.Quiz) error
	FindQuizByID(ctx context.Context, id uint) (*model.Quiz, error)
	FindResultByID(ctx context.Context, id string) (*model.QuizResult, error)
	CreateResult(ctx context.Context, result *model.QuizResult) error
	ListResultsByUser(ctx context.Context, userID uint, limit int) ([]model.QuizResult, error)
	ResultSummary(ctx context.Context, userID uint) (repository.QuizSummary, error)
}

type FlashcardStore interface {
	Create(ctx context.Context, card *model.Flashcard) error
	CreateBatch(ctx context.Context, cards []model.Flashcard) error
	FindByID(ctx context.Context, id uint) (*model.Flashcard, error)
	Save(ctx context.Context, card *model.Flashcard) error
	ListByUser(ctx context.Context, userID uint, topic string, limit int) ([]model.Flashcard, error)
	FindDuePage(ctx context.Context, userID uint, now time.Time, after *repository.DueCursor, limit int) ([]model.Flashcard, error)
	CountDue(ctx context.Context, userID uint, now time.Time) (int64, error)
	SumReviewCount(ctx context.Context, userID uint) (int64, error)
}

type BadgeStore interface {
	UpsertCatalog(ctx context.Context, badges []model.Badge) error
	ListProgress(ctx context.Context, userID uint) ([]model.LearnerBadgeProgress, error)
	SaveProgress(ctx context.Context, progress *model.LearnerBadgeProgress) error
	CountEarned(ctx context.Context, userID uint) (int64, error)
}

type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]model.Document, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	CountByType(ctx context.Context, userID uint) ([]model.TypeCount, error)
}

type ChatStore interface {
	CreateExchange(ctx context.Context, question, answer *model.ChatMessage) error
	ListRecent(ctx context.Context, userID uint, limit int) ([]model.ChatMessage, error)
}

type ActivityLogStore interface {
	Create(ctx context.Context, entry *model.ActivityLog) error
}

// Clock 可替换的时间源
type Clock func() time.Time
