package model

import (
	"time"
)

type ReviewOutcome string

const (
	ReviewEasy ReviewOutcome = "easy"
	ReviewHard ReviewOutcome = "hard"
)

// swagger:model Flashcard
type Flashcard struct {
	BaseModel
	UserID         uint          `gorm:"index:idx_flashcard_due,priority:1;not null" json:"userId"`
	Topic          string        `gorm:"size:100" json:"topic"`
	Front          string        `gorm:"type:text;not null" json:"front"`
	Back           string        `gorm:"type:text;not null" json:"back"`
	Difficulty     int           `gorm:"not null" json:"difficulty"`
	NextReviewAt   time.Time     `gorm:"index:idx_flashcard_due,priority:2;not null" json:"nextReviewAt"`
	ReviewCount    int           `gorm:"default:0" json:"reviewCount"`
	LastReviewedAt *time.Time    `json:"lastReviewedAt,omitempty"`
	LastOutcome    ReviewOutcome `gorm:"size:10" json:"lastOutcome,omitempty"`
}

func (Flashcard) TableName() string {
	return "flashcards"
}
