package model

import (
	"time"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
)

// StudySession 一次学习会话，状态机 active ⇄ paused → completed
// swagger:model StudySession
type StudySession struct {
	BaseModel
	UserID          uint          `gorm:"index:idx_session_user_status;not null" json:"userId"`
	Subject         string        `gorm:"size:100;not null" json:"subject"`
	Status          SessionStatus `gorm:"size:20;index:idx_session_user_status;not null" json:"status"`
	StartTime       time.Time     `gorm:"not null" json:"startTime"`
	EndTime         *time.Time    `gorm:"index" json:"endTime,omitempty"`
	ActiveSince     *time.Time    `json:"-"`                                   // 当前计时区间的起点，仅 active 时非空
	ActiveMillis    int64         `gorm:"column:active_ms;default:0" json:"-"` // 已结束 active 区间的毫秒总和
	LastHeartbeatAt *time.Time    `json:"lastHeartbeatAt,omitempty"`
}

func (StudySession) TableName() string {
	return "study_sessions"
}

// IsOpen active 或 paused
func (s *StudySession) IsOpen() bool {
	return s.Status == SessionActive || s.Status == SessionPaused
}

// Elapsed 已累计的有效学习时长，只计算 active 区间
func (s *StudySession) Elapsed(now time.Time) time.Duration {
	d := time.Duration(s.ActiveMillis) * time.Millisecond
	if s.Status == SessionActive && s.ActiveSince != nil && now.After(*s.ActiveSince) {
		d += now.Sub(*s.ActiveSince)
	}
	return d
}

// SessionView 返回给调用方的会话快照，时长只在这里取整到秒
type SessionView struct {
	StudySession
	DurationSeconds int64 `json:"durationSeconds"`
}

func NewSessionView(s *StudySession, now time.Time) SessionView {
	return SessionView{
		StudySession:    *s,
		DurationSeconds: int64(s.Elapsed(now) / time.Second),
	}
}
