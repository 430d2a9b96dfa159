package service

import (
	"context"
	"study_companion_backend/internal/model"
	"time"

	"golang.org/x/sync/errgroup"
)

const recentItems = 5

// StatsService 只读汇总，不获取任何学习者锁
type StatsService struct {
	Sessions   SessionStore
	Streaks    StreakStore
	Quizzes    QuizStore
	Flashcards FlashcardStore
	Badges     BadgeStore
	Documents  DocumentStore
	now        Clock
}

func NewStatsService(
	sessions SessionStore,
	streaks StreakStore,
	quizzes QuizStore,
	flashcards FlashcardStore,
	badges BadgeStore,
	documents DocumentStore,
) *StatsService {
	return &StatsService{
		Sessions:   sessions,
		Streaks:    streaks,
		Quizzes:    quizzes,
		Flashcards: flashcards,
		Badges:     badges,
		Documents:  documents,
		now:        time.Now,
	}
}

// GetStats 新学习者返回全零视图
func (s *StatsService) GetStats(ctx context.Context, learnerID uint) (*model.StudyStatsView, error) {
	view := &model.StudyStatsView{
		DocumentTypeBreakdown: map[string]int64{},
		SubjectBreakdown:      []model.SubjectStudyTime{},
		RecentSessions:        []model.StudySession{},
		RecentDocuments:       []model.Document{},
		RecentQuizResults:     []model.QuizResult{},
	}
	now := s.now()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		count, seconds, err := s.Sessions.CompletedSummary(ctx, learnerID)
		if err != nil {
			return err
		}
		view.CompletedSessions = count
		view.TotalStudySeconds = seconds
		if count > 0 {
			view.AverageSessionSeconds = seconds / count
		}
		return nil
	})
	g.Go(func() error {
		subjects, err := s.Sessions.SubjectBreakdown(ctx, learnerID)
		if err != nil {
			return err
		}
		if subjects != nil {
			view.SubjectBreakdown = subjects
		}
		return nil
	})
	g.Go(func() error {
		recent, err := s.Sessions.ListByUser(ctx, learnerID, recentItems)
		if err != nil {
			return err
		}
		if recent != nil {
			view.RecentSessions = recent
		}
		return nil
	})
	g.Go(func() error {
		streak, err := s.Streaks.FindByUser(ctx, learnerID)
		if err != nil || streak == nil {
			return err
		}
		view.CurrentStreak = streak.Current
		view.MaxStreak = streak.Max
		view.LastStudyDate = streak.LastStudyDate
		return nil
	})
	g.Go(func() error {
		summary, err := s.Quizzes.ResultSummary(ctx, learnerID)
		if err != nil {
			return err
		}
		view.QuizzesTaken = summary.Taken
		view.PerfectQuizzes = summary.Perfect
		view.AverageQuizScore = summary.AverageScore
		return nil
	})
	g.Go(func() error {
		results, err := s.Quizzes.ListResultsByUser(ctx, learnerID, recentItems)
		if err != nil {
			return err
		}
		if results != nil {
			view.RecentQuizResults = results
		}
		return nil
	})
	g.Go(func() error {
		reviewed, err := s.Flashcards.SumReviewCount(ctx, learnerID)
		if err != nil {
			return err
		}
		view.CardsReviewed = reviewed
		return nil
	})
	g.Go(func() error {
		due, err := s.Flashcards.CountDue(ctx, learnerID, now)
		if err != nil {
			return err
		}
		view.CardsDue = due
		return nil
	})
	g.Go(func() error {
		earned, err := s.Badges.CountEarned(ctx, learnerID)
		if err != nil {
			return err
		}
		view.BadgesEarned = earned
		return nil
	})
	g.Go(func() error {
		types, err := s.Documents.CountByType(ctx, learnerID)
		if err != nil {
			return err
		}
		breakdown := make(map[string]int64, len(types))
		var total int64
		for _, t := range types {
			breakdown[t.Type] = t.Count
			total += t.Count
		}
		view.DocumentTypeBreakdown = breakdown
		view.TotalDocuments = total
		return nil
	})
	g.Go(func() error {
		docs, err := s.Documents.ListByUser(ctx, learnerID, recentItems)
		if err != nil {
			return err
		}
		if docs != nil {
			view.RecentDocuments = docs
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}
