package model

import (
	"time"
)

type LearningStyle string

const (
	StyleVisual   LearningStyle = "visual"
	StyleReading  LearningStyle = "reading"
	StyleHandsOn  LearningStyle = "hands_on"
	StyleAuditory LearningStyle = "auditory"
)

// LearningPreferences 学习偏好，只影响对话辅导的表达方式，引擎不会修改
type LearningPreferences struct {
	Style            LearningStyle `gorm:"size:20;default:'reading'" json:"style" binding:"omitempty,oneof=visual reading hands_on auditory"`
	Pace             string        `gorm:"size:20;default:'normal'" json:"pace" binding:"omitempty,oneof=slow normal fast"`
	DetailLevel      string        `gorm:"size:20;default:'medium'" json:"detailLevel" binding:"omitempty,oneof=brief medium detailed"`
	ExampleFrequency string        `gorm:"size:20;default:'sometimes'" json:"exampleFrequency" binding:"omitempty,oneof=rarely sometimes often"`
	AssistantTone    string        `gorm:"size:20;default:'friendly'" json:"assistantTone" binding:"omitempty,oneof=friendly formal encouraging socratic"`
}

// swagger:model User
type User struct {
	BaseModel
	Name        string              `gorm:"size:100;not null" json:"name"`
	Email       string              `gorm:"size:100;unique;not null" json:"email"`
	Password    string              `gorm:"size:100;not null" json:"-"`
	Timezone    string              `gorm:"size:64" json:"timezone"`
	Preferences LearningPreferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
	LastLogin   time.Time           `json:"lastLogin"`
	LastSeen    time.Time           `json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

// Location 学习者本地时区，未设置或非法时返回 fallback
func (u *User) Location(fallback *time.Location) *time.Location {
	if u == nil || u.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}
