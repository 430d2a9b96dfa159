package model

import (
	"time"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// BadgeMetric 徽章进度所依据的统计指标
type BadgeMetric string

const (
	MetricCompletedSessions BadgeMetric = "completed_sessions"
	MetricStudyMinutes      BadgeMetric = "study_minutes"
	MetricCurrentStreak     BadgeMetric = "current_streak"
	MetricMaxStreak         BadgeMetric = "max_streak"
	MetricQuizzesTaken      BadgeMetric = "quizzes_taken"
	MetricPerfectQuizzes    BadgeMetric = "perfect_quizzes"
	MetricCardReviews       BadgeMetric = "card_reviews"
	MetricDocuments         BadgeMetric = "documents"
)

// Badge 徽章定义，按 Code 唯一
// swagger:model Badge
type Badge struct {
	BaseModel
	Code        string      `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name        string      `gorm:"size:100;not null" json:"name"`
	Description string      `gorm:"size:255" json:"description"`
	Icon        string      `gorm:"size:255" json:"icon"`
	Rarity      Rarity      `gorm:"size:20;not null" json:"rarity"`
	Trigger     EventKind   `gorm:"column:trigger_event;size:50;index;not null" json:"trigger"`
	Metric      BadgeMetric `gorm:"size:50;not null" json:"metric"`
	Target      int         `gorm:"not null" json:"target"`
}

func (Badge) TableName() string {
	return "badges"
}

// LearnerBadgeProgress 学习者对某个徽章的进度，earned 一旦为 true 不再回退
type LearnerBadgeProgress struct {
	BaseModel
	UserID    uint       `gorm:"uniqueIndex:idx_learner_badge;not null" json:"userId"`
	BadgeCode string     `gorm:"size:50;uniqueIndex:idx_learner_badge;not null" json:"badgeCode"`
	Current   int        `gorm:"default:0" json:"current"`
	Target    int        `gorm:"not null" json:"target"`
	Earned    bool       `gorm:"default:false" json:"earned"`
	EarnedAt  *time.Time `json:"earnedAt,omitempty"`
}

func (LearnerBadgeProgress) TableName() string {
	return "learner_badge_progress"
}

// BadgeStatus 徽章定义与学习者进度的合并视图
type BadgeStatus struct {
	Badge
	Current  int        `json:"current"`
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earnedAt,omitempty"`
}
