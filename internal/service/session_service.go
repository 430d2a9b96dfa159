package service

import (
	"context"
	"strings"
	"study_companion_backend/internal/model"
	"study_companion_backend/internal/util"
	"study_companion_backend/pkg/logger"
	"study_companion_backend/pkg/monitoring"
	"study_companion_backend/pkg/tracing"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionService 学习会话状态机 active ⇄ paused → completed
type SessionService struct {
	Sessions   SessionStore
	Streaks    *StreakService
	Badges     *BadgeService
	Locks      *LearnerLocks
	Dispatcher *NotificationDispatcher
	now        Clock
}

func NewSessionService(
	sessions SessionStore,
	streaks *StreakService,
	badges *BadgeService,
	locks *LearnerLocks,
	dispatcher *NotificationDispatcher,
) *SessionService {
	return &SessionService{
		Sessions:   sessions,
		Streaks:    streaks,
		Badges:     badges,
		Locks:      locks,
		Dispatcher: dispatcher,
		now:        time.Now,
	}
}

func (s *SessionService) StartSession(ctx context.Context, learnerID uint, subject string) (*model.SessionView, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, errors.Wrap(util.ErrValidation, "subject is required")
	}

	unlock := s.Locks.Lock(learnerID, ScopeSession)
	defer unlock()

	open, err := s.Sessions.FindOpenByUser(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, errors.Wrapf(util.ErrConflict, "learner %d already has an open session %d", learnerID, open.ID)
	}

	now := s.now()
	session := &model.StudySession{
		UserID:      learnerID,
		Subject:     subject,
		Status:      model.SessionActive,
		StartTime:   now,
		ActiveSince: &now,
	}
	if err := s.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	view := model.NewSessionView(session, now)
	return &view, nil
}

func (s *SessionService) PauseSession(ctx context.Context, learnerID, sessionID uint) (*model.SessionView, error) {
	unlock := s.Locks.Lock(learnerID, ScopeSession)
	defer unlock()

	session, err := s.ownedSession(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionActive {
		return nil, errors.Wrapf(util.ErrInvalidState, "cannot pause %s session %d", session.Status, session.ID)
	}

	now := s.now()
	accrue(session, now)
	session.Status = model.SessionPaused
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	view := model.NewSessionView(session, now)
	return &view, nil
}

func (s *SessionService) ResumeSession(ctx context.Context, learnerID, sessionID uint) (*model.SessionView, error) {
	unlock := s.Locks.Lock(learnerID, ScopeSession)
	defer unlock()

	session, err := s.ownedSession(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionPaused {
		return nil, errors.Wrapf(util.ErrInvalidState, "cannot resume %s session %d", session.Status, session.ID)
	}

	now := s.now()
	session.Status = model.SessionActive
	session.ActiveSince = &now
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	view := model.NewSessionView(session, now)
	return &view, nil
}

// Tick 心跳，只记录时间，不改变累计时长
func (s *SessionService) Tick(ctx context.Context, learnerID, sessionID uint) (*model.SessionView, error) {
	unlock := s.Locks.Lock(learnerID, ScopeSession)
	defer unlock()

	session, err := s.ownedSession(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsOpen() {
		return nil, errors.Wrapf(util.ErrInvalidState, "session %d is %s", session.ID, session.Status)
	}

	now := s.now()
	session.LastHeartbeatAt = &now
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	view := model.NewSessionView(session, now)
	return &view, nil
}

// CompletionResult 会话完成后的派生状态
type CompletionResult struct {
	Session      model.SessionView    `json:"session"`
	Streak       *model.LearnerStreak `json:"streak,omitempty"`
	EarnedBadges []model.Badge        `json:"earnedBadges"`
}

// CompleteSession 结束会话并同步更新连续天数和徽章，通知在释放锁之后发送
func (s *SessionService) CompleteSession(ctx context.Context, learnerID, sessionID uint) (*CompletionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "session.complete",
		attribute.Int64("learner.id", int64(learnerID)),
		attribute.Int64("session.id", int64(sessionID)),
	)
	defer span.End()

	result, notes, err := s.completeLocked(ctx, learnerID, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	monitoring.SessionsCompleted.Inc()
	s.Dispatcher.Dispatch(ctx, notes...)
	return result, nil
}

func (s *SessionService) completeLocked(ctx context.Context, learnerID, sessionID uint) (*CompletionResult, []model.Notification, error) {
	unlock := s.Locks.Lock(learnerID, ScopeSession, ScopeProgress)
	defer unlock()

	session, err := s.ownedSession(ctx, learnerID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if !session.IsOpen() {
		return nil, nil, errors.Wrapf(util.ErrInvalidState, "session %d is already %s", session.ID, session.Status)
	}

	now := s.now()
	accrue(session, now)
	session.Status = model.SessionCompleted
	session.EndTime = &now
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, nil, err
	}

	result := &CompletionResult{Session: model.NewSessionView(session, now)}
	notes := []model.Notification{{
		UserID:     learnerID,
		Kind:       model.EventSessionCompleted,
		OccurredAt: now,
		Data: map[string]interface{}{
			"sessionId":       session.ID,
			"subject":         session.Subject,
			"durationSeconds": result.Session.DurationSeconds,
		},
	}}

	// 会话已经落库，派生状态更新失败只记录日志，可通过重新评估补齐
	streak, changed, err := s.Streaks.onSessionCompleted(ctx, session)
	if err != nil {
		logger.Log.Error("Failed to update streak",
			zap.Uint("learnerID", learnerID),
			zap.Uint("sessionID", session.ID),
			zap.Error(err),
		)
	} else {
		result.Streak = streak
		if changed {
			notes = append(notes, model.Notification{
				UserID:     learnerID,
				Kind:       model.EventStreakUpdated,
				OccurredAt: now,
				Data: map[string]interface{}{
					"current": streak.Current,
					"max":     streak.Max,
				},
			})
		}
	}

	earned, err := s.Badges.evaluateLocked(ctx, learnerID, model.EventSessionCompleted, model.EventStreakUpdated)
	if err != nil {
		logger.Log.Error("Failed to evaluate badges",
			zap.Uint("learnerID", learnerID),
			zap.Uint("sessionID", session.ID),
			zap.Error(err),
		)
	}
	result.EarnedBadges = earned
	notes = append(notes, s.Badges.earnedNotifications(learnerID, earned)...)

	return result, notes, nil
}

func (s *SessionService) GetSession(ctx context.Context, learnerID, sessionID uint) (*model.SessionView, error) {
	session, err := s.ownedSession(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}
	view := model.NewSessionView(session, s.now())
	return &view, nil
}

// ActiveSession 学习者当前未结束的会话，没有时返回 nil
func (s *SessionService) ActiveSession(ctx context.Context, learnerID uint) (*model.SessionView, error) {
	session, err := s.Sessions.FindOpenByUser(ctx, learnerID)
	if err != nil || session == nil {
		return nil, err
	}
	view := model.NewSessionView(session, s.now())
	return &view, nil
}

func (s *SessionService) ListSessions(ctx context.Context, learnerID uint, limit int) ([]model.SessionView, error) {
	sessions, err := s.Sessions.ListByUser(ctx, learnerID, limit)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]model.SessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, model.NewSessionView(&sessions[i], now))
	}
	return views, nil
}

// ownedSession 不属于该学习者的会话视为不存在
func (s *SessionService) ownedSession(ctx context.Context, learnerID, sessionID uint) (*model.StudySession, error) {
	session, err := s.Sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, translateNotFound(err, "session %d", sessionID)
	}
	if session.UserID != learnerID {
		return nil, errors.Wrapf(util.ErrNotFound, "session %d", sessionID)
	}
	return session, nil
}

// accrue 把当前 active 区间计入累计时长
func accrue(session *model.StudySession, now time.Time) {
	if session.Status == model.SessionActive && session.ActiveSince != nil && now.After(*session.ActiveSince) {
		session.ActiveMillis += now.Sub(*session.ActiveSince).Milliseconds()
	}
	session.ActiveSince = nil
}

// translateNotFound 把 gorm.ErrRecordNotFound 转换为 util.ErrNotFound
func translateNotFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, util.ErrNotFound) {
		return errors.Wrapf(util.ErrNotFound, format, args...)
	}
	return err
}
