package service

import (
	"context"
	"sort"
	"study_companion_backend/internal/model"
	"study_companion_backend/pkg/logger"
	"study_companion_backend/pkg/monitoring"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CreateInitialBadges 内置徽章目录
func CreateInitialBadges() []model.Badge {
	return []model.Badge{
		{Code: "first_session", Name: "First Steps", Description: "Complete your first study session", Rarity: model.RarityCommon, Trigger: model.EventSessionCompleted, Metric: model.MetricCompletedSessions, Target: 1},
		{Code: "ten_sessions", Name: "Regular", Description: "Complete 10 study sessions", Rarity: model.RarityRare, Trigger: model.EventSessionCompleted, Metric: model.MetricCompletedSessions, Target: 10},
		{Code: "five_hours", Name: "Deep Focus", Description: "Study for 5 hours in total", Rarity: model.RarityEpic, Trigger: model.EventSessionCompleted, Metric: model.MetricStudyMinutes, Target: 300},
		{Code: "streak_3", Name: "On a Roll", Description: "Study 3 days in a row", Rarity: model.RarityCommon, Trigger: model.EventStreakUpdated, Metric: model.MetricCurrentStreak, Target: 3},
		{Code: "streak_7", Name: "Week Warrior", Description: "Study 7 days in a row", Rarity: model.RarityRare, Trigger: model.EventStreakUpdated, Metric: model.MetricCurrentStreak, Target: 7},
		{Code: "streak_30", Name: "Unstoppable", Description: "Reach a 30 day streak", Rarity: model.RarityLegendary, Trigger: model.EventStreakUpdated, Metric: model.MetricMaxStreak, Target: 30},
		{Code: "first_quiz", Name: "Quiz Taker", Description: "Finish your first quiz", Rarity: model.RarityCommon, Trigger: model.EventQuizScored, Metric: model.MetricQuizzesTaken, Target: 1},
		{Code: "perfect_quiz", Name: "Flawless", Description: "Score 100 on a quiz", Rarity: model.RarityRare, Trigger: model.EventQuizScored, Metric: model.MetricPerfectQuizzes, Target: 1},
		{Code: "quiz_master", Name: "Quiz Master", Description: "Score 100 on 10 quizzes", Rarity: model.RarityEpic, Trigger: model.EventQuizScored, Metric: model.MetricPerfectQuizzes, Target: 10},
		{Code: "card_reviewer", Name: "Card Shark", Description: "Review 50 flashcards", Rarity: model.RarityRare, Trigger: model.EventFlashcardReviewed, Metric: model.MetricCardReviews, Target: 50},
		{Code: "librarian", Name: "Librarian", Description: "Upload 5 documents", Rarity: model.RarityCommon, Trigger: model.EventDocumentUploaded, Metric: model.MetricDocuments, Target: 5},
	}
}

// BadgeCatalog 只读徽章目录，启动时加载，之后不再修改
type BadgeCatalog struct {
	badges    []model.Badge
	byTrigger map[model.EventKind][]model.Badge
	byCode    map[string]model.Badge
}

func NewBadgeCatalog(badges []model.Badge) *BadgeCatalog {
	c := &BadgeCatalog{
		badges:    append([]model.Badge(nil), badges...),
		byTrigger: make(map[model.EventKind][]model.Badge),
		byCode:    make(map[string]model.Badge, len(badges)),
	}
	for _, b := range c.badges {
		c.byTrigger[b.Trigger] = append(c.byTrigger[b.Trigger], b)
		c.byCode[b.Code] = b
	}
	return c
}

func (c *BadgeCatalog) All() []model.Badge {
	return append([]model.Badge(nil), c.badges...)
}

func (c *BadgeCatalog) Lookup(code string) (model.Badge, bool) {
	b, ok := c.byCode[code]
	return b, ok
}

// ForTriggers 返回匹配任一触发器的规则，未指定触发器时返回全部
func (c *BadgeCatalog) ForTriggers(triggers ...model.EventKind) []model.Badge {
	if len(triggers) == 0 {
		return c.All()
	}
	var rules []model.Badge
	seen := make(map[model.EventKind]bool, len(triggers))
	for _, t := range triggers {
		if seen[t] {
			continue
		}
		seen[t] = true
		rules = append(rules, c.byTrigger[t]...)
	}
	return rules
}

// LearnerMetrics 从各存储读取徽章规则使用的最新计数
type LearnerMetrics struct {
	Sessions   SessionStore
	Streaks    StreakStore
	Quizzes    QuizStore
	Flashcards FlashcardStore
	Documents  DocumentStore
}

func (m *LearnerMetrics) Value(ctx context.Context, learnerID uint, metric model.BadgeMetric) (int, error) {
	switch metric {
	case model.MetricCompletedSessions, model.MetricStudyMinutes:
		count, seconds, err := m.Sessions.CompletedSummary(ctx, learnerID)
		if err != nil {
			return 0, err
		}
		if metric == model.MetricStudyMinutes {
			return int(seconds / 60), nil
		}
		return int(count), nil
	case model.MetricCurrentStreak, model.MetricMaxStreak:
		streak, err := m.Streaks.FindByUser(ctx, learnerID)
		if err != nil || streak == nil {
			return 0, err
		}
		if metric == model.MetricMaxStreak {
			return streak.Max, nil
		}
		return streak.Current, nil
	case model.MetricQuizzesTaken, model.MetricPerfectQuizzes:
		summary, err := m.Quizzes.ResultSummary(ctx, learnerID)
		if err != nil {
			return 0, err
		}
		if metric == model.MetricPerfectQuizzes {
			return int(summary.Perfect), nil
		}
		return int(summary.Taken), nil
	case model.MetricCardReviews:
		total, err := m.Flashcards.SumReviewCount(ctx, learnerID)
		return int(total), err
	case model.MetricDocuments:
		count, err := m.Documents.CountByUser(ctx, learnerID)
		return int(count), err
	}
	return 0, errors.Errorf("unknown badge metric %q", metric)
}

// BadgeMetricSource 徽章规则的计数来源
type BadgeMetricSource interface {
	Value(ctx context.Context, learnerID uint, metric model.BadgeMetric) (int, error)
}

type BadgeService struct {
	Catalog    *BadgeCatalog
	Progress   BadgeStore
	Metrics    BadgeMetricSource
	Locks      *LearnerLocks
	Dispatcher *NotificationDispatcher
	now        Clock
}

func NewBadgeService(catalog *BadgeCatalog, progress BadgeStore, metrics BadgeMetricSource, locks *LearnerLocks, dispatcher *NotificationDispatcher) *BadgeService {
	return &BadgeService{
		Catalog:    catalog,
		Progress:   progress,
		Metrics:    metrics,
		Locks:      locks,
		Dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Evaluate 重新检查与触发器匹配的规则，返回本次新获得的徽章
func (s *BadgeService) Evaluate(ctx context.Context, learnerID uint, triggers ...model.EventKind) ([]model.Badge, error) {
	unlock := s.Locks.Lock(learnerID, ScopeProgress)
	earned, err := s.evaluateLocked(ctx, learnerID, triggers...)
	unlock()
	if err != nil {
		return nil, err
	}

	s.Dispatcher.Dispatch(ctx, s.earnedNotifications(learnerID, earned)...)
	return earned, nil
}

// evaluateLocked 调用方必须持有该学习者的 ScopeProgress
func (s *BadgeService) evaluateLocked(ctx context.Context, learnerID uint, triggers ...model.EventKind) ([]model.Badge, error) {
	rules := s.Catalog.ForTriggers(triggers...)
	if len(rules) == 0 {
		return nil, nil
	}

	existing, err := s.Progress.ListProgress(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	progressByCode := make(map[string]model.LearnerBadgeProgress, len(existing))
	for _, p := range existing {
		progressByCode[p.BadgeCode] = p
	}

	values := make(map[model.BadgeMetric]int)
	var earned []model.Badge
	for _, rule := range rules {
		current, ok := progressByCode[rule.Code]
		if ok && current.Earned {
			continue
		}

		value, cached := values[rule.Metric]
		if !cached {
			value, err = s.Metrics.Value(ctx, learnerID, rule.Metric)
			if err != nil {
				return earned, errors.Wrapf(err, "evaluate badge %s", rule.Code)
			}
			values[rule.Metric] = value
		}

		next := model.LearnerBadgeProgress{
			UserID:    learnerID,
			BadgeCode: rule.Code,
			Current:   min(value, rule.Target),
			Target:    rule.Target,
			Earned:    value >= rule.Target,
		}
		if ok && current.Current == next.Current && current.Target == next.Target && !next.Earned {
			continue
		}
		if next.Earned {
			at := s.now()
			next.EarnedAt = &at
		}
		if ok {
			next.ID = current.ID
			next.CreatedAt = current.CreatedAt
		}
		if err := s.Progress.SaveProgress(ctx, &next); err != nil {
			return earned, err
		}
		if next.Earned {
			earned = append(earned, rule)
			monitoring.BadgesEarned.WithLabelValues(rule.Code).Inc()
			logger.Log.Info("Badge earned", zap.Uint("learnerID", learnerID), zap.String("badge", rule.Code))
		}
	}
	return earned, nil
}

func (s *BadgeService) earnedNotifications(learnerID uint, earned []model.Badge) []model.Notification {
	notes := make([]model.Notification, 0, len(earned))
	for _, b := range earned {
		notes = append(notes, model.Notification{
			UserID:     learnerID,
			Kind:       model.EventBadgeEarned,
			OccurredAt: s.now(),
			Data: map[string]interface{}{
				"badge":  b.Code,
				"name":   b.Name,
				"rarity": b.Rarity,
			},
		})
	}
	return notes
}

// ListBadges 合并徽章目录和学习者进度
func (s *BadgeService) ListBadges(ctx context.Context, learnerID uint) ([]model.BadgeStatus, error) {
	progress, err := s.Progress.ListProgress(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]model.LearnerBadgeProgress, len(progress))
	for _, p := range progress {
		byCode[p.BadgeCode] = p
	}

	statuses := make([]model.BadgeStatus, 0, len(s.Catalog.badges))
	for _, b := range s.Catalog.All() {
		status := model.BadgeStatus{Badge: b}
		if p, ok := byCode[b.Code]; ok {
			status.Current = p.Current
			status.Earned = p.Earned
			status.EarnedAt = p.EarnedAt
		}
		statuses = append(statuses, status)
	}
	sort.SliceStable(statuses, func(i, j int) bool {
		return statuses[i].Earned && !statuses[j].Earned
	})
	return statuses, nil
}

// SyncCatalog 把内置目录写入数据库，便于关联查询
func (s *BadgeService) SyncCatalog(ctx context.Context) error {
	return s.Progress.UpsertCatalog(ctx, s.Catalog.All())
}
