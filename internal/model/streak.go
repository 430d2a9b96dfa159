package model

import (
	"time"
)

// LearnerStreak 学习者的连续学习天数
// swagger:model LearnerStreak
type LearnerStreak struct {
	UserID        uint       `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	Current       int        `gorm:"default:0" json:"current"`
	Max           int        `gorm:"default:0" json:"max"`
	LastStudyDate *time.Time `gorm:"type:date" json:"lastStudyDate,omitempty"` // 学习者本地日期
	LastSessionID uint       `gorm:"default:0" json:"lastSessionId"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (LearnerStreak) TableName() string {
	return "learner_streaks"
}
