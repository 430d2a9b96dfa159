package model

import (
	"time"
)

// EventKind 引擎事件类型，同时作为徽章触发器
type EventKind string

const (
	EventSessionStart    EventKind = "session.start"
	EventSessionPause    EventKind = "session.pause"
	EventSessionResume   EventKind = "session.resume"
	EventSessionTick     EventKind = "session.tick"
	EventSessionComplete EventKind = "session.complete"
	EventQuizSubmit      EventKind = "quiz.submit"
	EventFlashcardReview EventKind = "flashcard.review"
)

// 状态变化后产生的派生事件，同时作为徽章触发器和通知类型
const (
	EventSessionCompleted  EventKind = "session.completed"
	EventStreakUpdated     EventKind = "streak.updated"
	EventQuizScored        EventKind = "quiz.scored"
	EventFlashcardReviewed EventKind = "flashcard.reviewed"
	EventDocumentUploaded  EventKind = "document.uploaded"
	EventBadgeEarned       EventKind = "badge.earned"
)

// Notification 状态变化后发给外部通道的通知
type Notification struct {
	UserID     uint                   `json:"userId"`
	Kind       EventKind              `json:"kind"`
	OccurredAt time.Time              `json:"occurredAt"`
	Data       map[string]interface{} `json:"data,omitempty"`
}
