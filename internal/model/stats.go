package model

import "time"

// StudyStatsView 仪表盘使用的学习统计，读取时实时计算，不落库
// swagger:model StudyStatsView
type StudyStatsView struct {
	TotalStudySeconds     int64              `json:"totalStudySeconds"`
	CompletedSessions     int64              `json:"completedSessions"`
	AverageSessionSeconds int64              `json:"averageSessionSeconds"`
	CurrentStreak         int                `json:"currentStreak"`
	MaxStreak             int                `json:"maxStreak"`
	LastStudyDate         *time.Time         `json:"lastStudyDate,omitempty"`
	QuizzesTaken          int64              `json:"quizzesTaken"`
	AverageQuizScore      float64            `json:"averageQuizScore"`
	PerfectQuizzes        int64              `json:"perfectQuizzes"`
	CardsReviewed         int64              `json:"cardsReviewed"`
	CardsDue              int64              `json:"cardsDue"`
	BadgesEarned          int64              `json:"badgesEarned"`
	TotalDocuments        int64              `json:"totalDocuments"`
	DocumentTypeBreakdown map[string]int64   `json:"documentTypeBreakdown"`
	SubjectBreakdown      []SubjectStudyTime `json:"subjectBreakdown"`
	RecentSessions        []StudySession     `json:"recentSessions"`
	RecentDocuments       []Document         `json:"recentDocuments"`
	RecentQuizResults     []QuizResult       `json:"recentQuizResults"`
}

// SubjectStudyTime 按科目汇总的已完成学习时长
type SubjectStudyTime struct {
	Subject  string `json:"subject"`
	Seconds  int64  `json:"seconds"`
	Sessions int64  `json:"sessions"`
}

// TypeCount 分组计数
type TypeCount struct {
	Type  string
	Count int64
}
