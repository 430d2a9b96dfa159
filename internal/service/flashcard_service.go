package service

import (
	"context"
	"iter"
	"strings"
	"study_companion_backend/internal/ai"
	"study_companion_backend/internal/config"
	"study_companion_backend/internal/model"
	"study_companion_backend/internal/repository"
	"study_companion_backend/internal/util"
	"study_companion_backend/pkg/logger"
	"study_companion_backend/pkg/monitoring"
	"study_companion_backend/pkg/tracing"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// FlashcardService 闪卡与间隔重复调度
type FlashcardService struct {
	Cards      FlashcardStore
	Badges     *BadgeService
	Locks      *LearnerLocks
	Dispatcher *NotificationDispatcher
	Generator  ai.Generator
	Schedule   config.FlashcardConfig
	PageSize   int
	Retry      RetryPolicy
	now        Clock
}

func NewFlashcardService(
	cards FlashcardStore,
	badges *BadgeService,
	locks *LearnerLocks,
	dispatcher *NotificationDispatcher,
	generator ai.Generator,
	cfg *config.Config,
) *FlashcardService {
	return &FlashcardService{
		Cards:      cards,
		Badges:     badges,
		Locks:      locks,
		Dispatcher: dispatcher,
		Generator:  generator,
		Schedule:   cfg.Engine.Flashcard,
		PageSize:   cfg.Engine.DuePageSize,
		Retry:      NewRetryPolicy(cfg.AI),
		now:        time.Now,
	}
}

type CreateCardRequest struct {
	Topic      string `json:"topic"`
	Front      string `json:"front" binding:"required"`
	Back       string `json:"back" binding:"required"`
	Difficulty *int   `json:"difficulty"`
}

type GenerateCardsRequest struct {
	Topic string `json:"topic" binding:"required"`
	Count int    `json:"count" binding:"omitempty,min=1,max=20"`
}

// NextReview 根据复习结果计算新的难度和下次复习时间。
// hard: 难度 +1（不超过上限），短延迟后复习；
// easy: 难度 -1（不低于下限），间隔随难度降低而变长。
func NextReview(cfg config.FlashcardConfig, difficulty int, outcome model.ReviewOutcome, now time.Time) (int, time.Time) {
	switch outcome {
	case model.ReviewHard:
		d := min(difficulty+1, cfg.MaxDifficulty)
		return d, now.Add(cfg.HardDelay)
	default:
		d := max(difficulty-1, cfg.MinDifficulty)
		factor := cfg.MaxDifficulty - d + 1
		return d, now.Add(cfg.EasyBaseInterval * time.Duration(factor))
	}
}

// ParseOutcome 大小写不敏感
func ParseOutcome(s string) (model.ReviewOutcome, error) {
	switch model.ReviewOutcome(strings.ToLower(strings.TrimSpace(s))) {
	case model.ReviewEasy:
		return model.ReviewEasy, nil
	case model.ReviewHard:
		return model.ReviewHard, nil
	}
	return "", errors.Wrapf(util.ErrValidation, "unknown review outcome %q", s)
}

func (s *FlashcardService) clampDifficulty(d int) int {
	return min(max(d, s.Schedule.MinDifficulty), s.Schedule.MaxDifficulty)
}

func (s *FlashcardService) CreateCard(ctx context.Context, learnerID uint, req CreateCardRequest) (*model.Flashcard, error) {
	front, back := strings.TrimSpace(req.Front), strings.TrimSpace(req.Back)
	if front == "" || back == "" {
		return nil, errors.Wrap(util.ErrValidation, "front and back are required")
	}

	difficulty := (s.Schedule.MinDifficulty + s.Schedule.MaxDifficulty) / 2
	if req.Difficulty != nil {
		difficulty = s.clampDifficulty(*req.Difficulty)
	}

	card := &model.Flashcard{
		UserID:       learnerID,
		Topic:        strings.TrimSpace(req.Topic),
		Front:        front,
		Back:         back,
		Difficulty:   difficulty,
		NextReviewAt: s.now(),
	}
	if err := s.Cards.Create(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *FlashcardService) ListCards(ctx context.Context, learnerID uint, topic string, limit int) ([]model.Flashcard, error) {
	return s.Cards.ListByUser(ctx, learnerID, strings.TrimSpace(topic), limit)
}

type ReviewResult struct {
	Card         model.Flashcard `json:"card"`
	EarnedBadges []model.Badge   `json:"earnedBadges"`
}

func (s *FlashcardService) ReviewCard(ctx context.Context, learnerID, cardID uint, outcome model.ReviewOutcome) (*ReviewResult, error) {
	if outcome != model.ReviewEasy && outcome != model.ReviewHard {
		return nil, errors.Wrapf(util.ErrValidation, "unknown review outcome %q", outcome)
	}

	ctx, span := tracing.StartSpan(ctx, "flashcard.review",
		attribute.Int64("learner.id", int64(learnerID)),
		attribute.Int64("card.id", int64(cardID)),
		attribute.String("review.outcome", string(outcome)),
	)
	defer span.End()

	result, notes, err := s.reviewLocked(ctx, learnerID, cardID, outcome)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	monitoring.FlashcardReviews.WithLabelValues(string(outcome)).Inc()
	s.Dispatcher.Dispatch(ctx, notes...)
	return result, nil
}

func (s *FlashcardService) reviewLocked(ctx context.Context, learnerID, cardID uint, outcome model.ReviewOutcome) (*ReviewResult, []model.Notification, error) {
	unlock := s.Locks.Lock(learnerID, ScopeProgress)
	defer unlock()

	card, err := s.Cards.FindByID(ctx, cardID)
	if err != nil {
		return nil, nil, translateNotFound(err, "flashcard %d", cardID)
	}
	if card.UserID != learnerID {
		return nil, nil, errors.Wrapf(util.ErrNotFound, "flashcard %d", cardID)
	}

	now := s.now()
	card.Difficulty, card.NextReviewAt = NextReview(s.Schedule, s.clampDifficulty(card.Difficulty), outcome, now)
	card.ReviewCount++
	card.LastReviewedAt = &now
	card.LastOutcome = outcome
	if err := s.Cards.Save(ctx, card); err != nil {
		return nil, nil, err
	}

	// 复习结果已落库，徽章评估失败只记录日志，重试会重复调整难度
	earned, err := s.Badges.evaluateLocked(ctx, learnerID, model.EventFlashcardReviewed)
	if err != nil {
		logger.Log.Error("Failed to evaluate badges",
			zap.Uint("learnerID", learnerID),
			zap.Uint("cardID", card.ID),
			zap.Error(err),
		)
	}

	return &ReviewResult{Card: *card, EarnedBadges: earned},
		s.Badges.earnedNotifications(learnerID, earned), nil
}

// DueCards 按 (NextReviewAt, ID) 升序惰性分页读取到期卡片。
// 每次 range 都从头开始，可重复遍历。
func (s *FlashcardService) DueCards(ctx context.Context, learnerID uint, now time.Time) iter.Seq2[model.Flashcard, error] {
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	return func(yield func(model.Flashcard, error) bool) {
		var cursor *repository.DueCursor
		for {
			page, err := s.Cards.FindDuePage(ctx, learnerID, now, cursor, pageSize)
			if err != nil {
				yield(model.Flashcard{}, err)
				return
			}
			for _, card := range page {
				if !yield(card, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			last := page[len(page)-1]
			cursor = &repository.DueCursor{NextReviewAt: last.NextReviewAt, ID: last.ID}
		}
	}
}

// ListDue 最多返回 limit 张到期卡片
func (s *FlashcardService) ListDue(ctx context.Context, learnerID uint, limit int) ([]model.Flashcard, error) {
	cards := make([]model.Flashcard, 0, limit)
	for card, err := range s.DueCards(ctx, learnerID, s.now()) {
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
		if len(cards) >= limit {
			break
		}
	}
	return cards, nil
}

// GenerateCards 调用内容生成服务批量创建闪卡，生成期间不持有任何学习者锁
func (s *FlashcardService) GenerateCards(ctx context.Context, learnerID uint, req GenerateCardsRequest) ([]model.Flashcard, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, errors.Wrap(util.ErrValidation, "topic is required")
	}
	if s.Generator == nil {
		return nil, errors.Wrap(util.ErrGenerationFailed, "content generation is disabled")
	}
	count := req.Count
	if count <= 0 {
		count = 5
	}

	var drafts []ai.CardDraft
	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		var genErr error
		drafts, genErr = s.Generator.GenerateFlashcards(ctx, ai.FlashcardRequest{Topic: topic, Count: count})
		return genErr
	})
	if err != nil {
		return nil, errors.Wrap(util.ErrGenerationFailed, err.Error())
	}

	now := s.now()
	difficulty := (s.Schedule.MinDifficulty + s.Schedule.MaxDifficulty) / 2
	cards := make([]model.Flashcard, 0, len(drafts))
	for _, d := range drafts {
		front, back := strings.TrimSpace(d.Front), strings.TrimSpace(d.Back)
		if front == "" || back == "" {
			continue
		}
		cards = append(cards, model.Flashcard{
			UserID:       learnerID,
			Topic:        topic,
			Front:        front,
			Back:         back,
			Difficulty:   difficulty,
			NextReviewAt: now,
		})
		if len(cards) == count {
			break
		}
	}
	if len(cards) == 0 {
		return nil, errors.Wrap(util.ErrGenerationFailed, "generator returned no usable cards")
	}

	if err := s.Cards.CreateBatch(ctx, cards); err != nil {
		return nil, err
	}
	return cards, nil
}
