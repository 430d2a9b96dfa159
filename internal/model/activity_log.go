package model

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog 记录学习者的学习活动与引擎事件
type ActivityLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index;not null" json:"userId"`
	Kind      string         `gorm:"size:50;index;not null" json:"kind"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
