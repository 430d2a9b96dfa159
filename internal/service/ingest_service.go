package service

import (
	"context"
	"sort"
	"strings"
	"study_companion_backend/internal/model"
	"study_companion_backend/internal/util"
	"time"

	"github.com/pkg/errors"
)

// RawEvent 客户端上报的原始学习事件
type RawEvent struct {
	Kind       string        `json:"kind"`
	LearnerID  uint          `json:"learnerId"`
	OccurredAt *time.Time    `json:"occurredAt"`
	SessionID  uint          `json:"sessionId"`
	Subject    string        `json:"subject"`
	QuizID     uint          `json:"quizId"`
	AttemptID  string        `json:"attemptId"`
	Answers    []AnswerInput `json:"answers"`
	CardID     uint          `json:"cardId"`
	Outcome    string        `json:"outcome"`
}

// LearnerEvent 规范化后的事件
type LearnerEvent struct {
	Kind       model.EventKind
	LearnerID  uint
	OccurredAt time.Time
	SessionID  uint
	Subject    string
	QuizID     uint
	AttemptID  string
	Answers    []AnswerInput
	CardID     uint
	Outcome    model.ReviewOutcome
}

// NormalizeEvent 校验必填字段并统一大小写，缺省发生时间为 now
func NormalizeEvent(raw RawEvent, now time.Time) (LearnerEvent, error) {
	ev := LearnerEvent{
		Kind:       model.EventKind(strings.ToLower(strings.TrimSpace(raw.Kind))),
		LearnerID:  raw.LearnerID,
		OccurredAt: now,
		SessionID:  raw.SessionID,
		Subject:    strings.TrimSpace(raw.Subject),
		QuizID:     raw.QuizID,
		AttemptID:  strings.TrimSpace(raw.AttemptID),
		Answers:    raw.Answers,
		CardID:     raw.CardID,
	}
	if raw.OccurredAt != nil && !raw.OccurredAt.IsZero() {
		ev.OccurredAt = *raw.OccurredAt
	}
	if ev.LearnerID == 0 {
		return ev, errors.Wrap(util.ErrValidation, "learnerId is required")
	}

	switch ev.Kind {
	case model.EventSessionStart:
		if ev.Subject == "" {
			return ev, errors.Wrap(util.ErrValidation, "subject is required for session.start")
		}
	case model.EventSessionPause, model.EventSessionResume, model.EventSessionTick, model.EventSessionComplete:
		if ev.SessionID == 0 {
			return ev, errors.Wrapf(util.ErrValidation, "sessionId is required for %s", ev.Kind)
		}
	case model.EventQuizSubmit:
		if ev.QuizID == 0 {
			return ev, errors.Wrap(util.ErrValidation, "quizId is required for quiz.submit")
		}
		if len(ev.Answers) == 0 {
			return ev, errors.Wrap(util.ErrValidation, "answers are required for quiz.submit")
		}
	case model.EventFlashcardReview:
		if ev.CardID == 0 {
			return ev, errors.Wrap(util.ErrValidation, "cardId is required for flashcard.review")
		}
		outcome, err := ParseOutcome(raw.Outcome)
		if err != nil {
			return ev, err
		}
		ev.Outcome = outcome
	default:
		return ev, errors.Wrapf(util.ErrValidation, "unknown event kind %q", raw.Kind)
	}
	return ev, nil
}

// EventResult 单个事件的处理结果
type EventResult struct {
	Index   int             `json:"index"`
	Kind    model.EventKind `json:"kind"`
	Status  string          `json:"status"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    interface{}     `json:"data,omitempty"`
}

// IngestService 把事件分发到对应组件
type IngestService struct {
	Sessions   *SessionService
	Quizzes    *QuizService
	Flashcards *FlashcardService
	now        Clock
}

func NewIngestService(sessions *SessionService, quizzes *QuizService, flashcards *FlashcardService) *IngestService {
	return &IngestService{Sessions: sessions, Quizzes: quizzes, Flashcards: flashcards, now: time.Now}
}

// Ingest 按发生时间稳定排序后逐个处理，单个事件失败不影响其余事件。
// 结果按原始顺序返回。
func (s *IngestService) Ingest(ctx context.Context, learnerID uint, raws []RawEvent) []EventResult {
	now := s.now()
	results := make([]EventResult, len(raws))

	type indexed struct {
		index int
		event LearnerEvent
	}
	var events []indexed
	for i, raw := range raws {
		ev, err := NormalizeEvent(raw, now)
		if err == nil && ev.LearnerID != learnerID {
			err = errors.Wrapf(util.ErrValidation, "event belongs to learner %d", ev.LearnerID)
		}
		if err != nil {
			results[i] = failed(i, ev.Kind, err)
			continue
		}
		events = append(events, indexed{index: i, event: ev})
	}

	sort.SliceStable(events, func(a, b int) bool {
		return events[a].event.OccurredAt.Before(events[b].event.OccurredAt)
	})

	for _, item := range events {
		data, err := s.dispatch(ctx, item.event)
		if err != nil {
			results[item.index] = failed(item.index, item.event.Kind, err)
			continue
		}
		results[item.index] = EventResult{Index: item.index, Kind: item.event.Kind, Status: "ok", Data: data}
	}
	return results
}

func (s *IngestService) dispatch(ctx context.Context, ev LearnerEvent) (interface{}, error) {
	switch ev.Kind {
	case model.EventSessionStart:
		return s.Sessions.StartSession(ctx, ev.LearnerID, ev.Subject)
	case model.EventSessionPause:
		return s.Sessions.PauseSession(ctx, ev.LearnerID, ev.SessionID)
	case model.EventSessionResume:
		return s.Sessions.ResumeSession(ctx, ev.LearnerID, ev.SessionID)
	case model.EventSessionTick:
		return s.Sessions.Tick(ctx, ev.LearnerID, ev.SessionID)
	case model.EventSessionComplete:
		return s.Sessions.CompleteSession(ctx, ev.LearnerID, ev.SessionID)
	case model.EventQuizSubmit:
		return s.Quizzes.SubmitQuiz(ctx, ev.LearnerID, ev.QuizID, SubmitQuizRequest{AttemptID: ev.AttemptID, Answers: ev.Answers})
	case model.EventFlashcardReview:
		return s.Flashcards.ReviewCard(ctx, ev.LearnerID, ev.CardID, ev.Outcome)
	}
	return nil, errors.Wrapf(util.ErrValidation, "unknown event kind %q", ev.Kind)
}

func failed(index int, kind model.EventKind, err error) EventResult {
	return EventResult{
		Index:   index,
		Kind:    kind,
		Status:  "error",
		Error:   util.ErrorKind(err),
		Message: err.Error(),
	}
}
