package service

import (
	"context"
	"testing"
	"time"

	"study_companion_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(minute int) *time.Time {
	t := time.Date(2025, 3, 10, 8, minute, 0, 0, time.UTC)
	return &t
}

func TestNormalizeEvent(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	ev, err := NormalizeEvent(RawEvent{Kind: " Flashcard.Review ", LearnerID: 1, CardID: 4, Outcome: "HARD"}, now)
	require.NoError(t, err)
	assert.Equal(t, model.EventFlashcardReview, ev.Kind)
	assert.Equal(t, model.ReviewHard, ev.Outcome)
	assert.Equal(t, now, ev.OccurredAt)

	tests := []struct {
		name string
		raw  RawEvent
	}{
		{name: "missing learner", raw: RawEvent{Kind: "session.start", Subject: "math"}},
		{name: "unknown kind", raw: RawEvent{Kind: "session.teleport", LearnerID: 1}},
		{name: "start without subject", raw: RawEvent{Kind: "session.start", LearnerID: 1}},
		{name: "pause without session", raw: RawEvent{Kind: "session.pause", LearnerID: 1}},
		{name: "quiz without answers", raw: RawEvent{Kind: "quiz.submit", LearnerID: 1, QuizID: 3}},
		{name: "review with bad outcome", raw: RawEvent{Kind: "flashcard.review", LearnerID: 1, CardID: 2, Outcome: "meh"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeEvent(tt.raw, now)
			assert.Error(t, err)
		})
	}
}

func TestIngest_AppliesEventsInOccurrenceOrder(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	view, err := e.sessionSvc.StartSession(ctx, 1, "algebra")
	require.NoError(t, err)

	// 按提交顺序处理时 complete 会先执行，pause 和 resume 都会失败
	results := e.ingestSvc.Ingest(ctx, 1, []RawEvent{
		{Kind: "session.complete", LearnerID: 1, SessionID: view.ID, OccurredAt: at(30)},
		{Kind: "session.pause", LearnerID: 1, SessionID: view.ID, OccurredAt: at(10)},
		{Kind: "session.resume", LearnerID: 1, SessionID: view.ID, OccurredAt: at(20)},
	})

	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, "ok", r.Status, r.Message)
	}
	assert.Equal(t, model.EventSessionComplete, results[0].Kind)

	stored, err := e.sessions.FindByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, stored.Status)
}

func TestIngest_PartialFailures(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	quiz := createQuiz(t, e, 1)

	results := e.ingestSvc.Ingest(ctx, 1, []RawEvent{
		{Kind: "session.start", LearnerID: 1, Subject: "algebra", OccurredAt: at(1)},
		{Kind: "session.start", LearnerID: 2, Subject: "algebra", OccurredAt: at(2)},
		{Kind: "quiz.submit", LearnerID: 1, QuizID: quiz.ID, Answers: []AnswerInput{{QuestionIndex: 0, Selected: "Paris"}}, OccurredAt: at(3)},
		{Kind: "session.start", LearnerID: 1, Subject: "physics", OccurredAt: at(4)},
		{Kind: "flashcard.review", LearnerID: 1, CardID: 77, Outcome: "easy", OccurredAt: at(5)},
		{Kind: "badge.grant", LearnerID: 1},
	})

	require.Len(t, results, 6)
	assert.Equal(t, "ok", results[0].Status)
	assert.Equal(t, "validation", results[1].Error)
	assert.Equal(t, "ok", results[2].Status)
	sub, ok := results[2].Data.(*QuizSubmission)
	require.True(t, ok)
	assert.Equal(t, 25, sub.Result.Score)
	assert.Equal(t, "conflict", results[3].Error)
	assert.Equal(t, "not_found", results[4].Error)
	assert.Equal(t, "validation", results[5].Error)
	assert.Equal(t, "error", results[5].Status)
}
