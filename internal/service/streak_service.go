package service

import (
	"context"
	"study_companion_backend/internal/model"
	"study_companion_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
)

// StreakService 根据会话完成记录维护连续学习天数
type StreakService struct {
	Streaks    StreakStore
	Users      UserStore
	DefaultLoc *time.Location
}

func NewStreakService(streaks StreakStore, users UserStore, defaultLoc *time.Location) *StreakService {
	if defaultLoc == nil {
		defaultLoc = time.Local
	}
	return &StreakService{Streaks: streaks, Users: users, DefaultLoc: defaultLoc}
}

// GetStreak 没有记录时返回零值
func (s *StreakService) GetStreak(ctx context.Context, learnerID uint) (*model.LearnerStreak, error) {
	streak, err := s.Streaks.FindByUser(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if streak == nil {
		return &model.LearnerStreak{UserID: learnerID}, nil
	}
	return streak, nil
}

// onSessionCompleted 调用方必须持有该学习者的 ScopeProgress。
// 已处理过的会话（id 不大于 LastSessionID）直接跳过，重放不会改变结果。
func (s *StreakService) onSessionCompleted(ctx context.Context, session *model.StudySession) (*model.LearnerStreak, bool, error) {
	if session.EndTime == nil {
		return nil, false, nil
	}

	streak, err := s.Streaks.FindByUser(ctx, session.UserID)
	if err != nil {
		return nil, false, err
	}
	if streak == nil {
		streak = &model.LearnerStreak{UserID: session.UserID}
	}
	if session.ID <= streak.LastSessionID {
		return streak, false, nil
	}

	day := civilDate(*session.EndTime, s.learnerLocation(ctx, session.UserID))
	if streak.LastStudyDate != nil && streak.Current > 0 && !day.After(civilDate(*streak.LastStudyDate, time.UTC)) {
		// 同一天或更早的完成事件不影响当前连续天数
		streak.LastSessionID = session.ID
		return streak, false, s.Streaks.Save(ctx, streak)
	}

	streak.Current = nextStreak(streak, day)
	if streak.Current > streak.Max {
		streak.Max = streak.Current
	}
	streak.LastStudyDate = &day
	streak.LastSessionID = session.ID

	if err := s.Streaks.Save(ctx, streak); err != nil {
		return nil, false, err
	}
	return streak, true, nil
}

func nextStreak(streak *model.LearnerStreak, day time.Time) int {
	if streak.LastStudyDate == nil || streak.Current == 0 {
		return 1
	}
	switch daysBetween(civilDate(*streak.LastStudyDate, time.UTC), day) {
	case 0:
		return streak.Current
	case 1:
		return streak.Current + 1
	default:
		return 1
	}
}

func (s *StreakService) learnerLocation(ctx context.Context, learnerID uint) *time.Location {
	if s.Users == nil {
		return s.DefaultLoc
	}
	user, err := s.Users.FindByID(ctx, learnerID)
	if err != nil {
		logger.Log.Debug("Falling back to default timezone", zap.Uint("learnerID", learnerID), zap.Error(err))
		return s.DefaultLoc
	}
	return user.Location(s.DefaultLoc)
}

// civilDate 把时间换算为 loc 下的日历日期，以 UTC 零点表示
func civilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
