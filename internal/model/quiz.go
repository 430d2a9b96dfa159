package model

import (
	"time"

	"gorm.io/datatypes"
)

// Quiz 创建后不可修改
// swagger:model Quiz
type Quiz struct {
	BaseModel
	UserID     uint           `gorm:"index;not null" json:"userId"`
	Subject    string         `gorm:"size:100;not null" json:"subject"`
	Difficulty int            `gorm:"default:1" json:"difficulty"`
	Questions  []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

type QuizQuestion struct {
	BaseModel
	QuizID        uint                        `gorm:"index;not null" json:"quizId"`
	Position      int                         `gorm:"not null" json:"position"`
	Text          string                      `gorm:"type:text;not null" json:"text"`
	Options       datatypes.JSONSlice[string] `json:"options"`
	CorrectAnswer string                      `gorm:"size:255;not null" json:"-"`
	Explanation   string                      `gorm:"type:text" json:"-"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// AnswerRecord 单题作答记录
type AnswerRecord struct {
	QuestionIndex int    `json:"questionIndex"`
	Selected      string `json:"selected"`
	Correct       bool   `json:"correct"`
}

// QuizResult 只追加不修改，ID 即作答尝试 ID
// swagger:model QuizResult
type QuizResult struct {
	UUIDBase
	QuizID         uint                              `gorm:"index;not null" json:"quizId"`
	UserID         uint                              `gorm:"index;not null" json:"userId"`
	Subject        string                            `gorm:"size:100" json:"subject"`
	Answers        datatypes.JSONSlice[AnswerRecord] `json:"answers"`
	CorrectCount   int                               `gorm:"not null" json:"correctCount"`
	TotalQuestions int                               `gorm:"not null" json:"totalQuestions"`
	Score          int                               `gorm:"not null" json:"score"`
	CompletedAt    time.Time                         `gorm:"index" json:"completedAt"`
}

func (QuizResult) TableName() string {
	return "quiz_results"
}

// IsPerfect 全部答对
func (r *QuizResult) IsPerfect() bool {
	return r.TotalQuestions > 0 && r.CorrectCount == r.TotalQuestions
}
