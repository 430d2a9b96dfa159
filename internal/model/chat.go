package model

import (
	"gorm.io/datatypes"
)

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// MediaItem 回答中附带的富媒体片段
type MediaItem struct {
	Type     string `json:"type" binding:"oneof=image graph code"`
	Payload  string `json:"payload"`
	Language string `json:"language,omitempty"` // 仅 code 类型
}

// ChatMessage 辅导对话的一条消息
// swagger:model ChatMessage
type ChatMessage struct {
	UUIDBase
	UserID  uint                           `gorm:"index:idx_chat_user_created;not null" json:"userId"`
	Role    ChatRole                       `gorm:"size:20;not null" json:"role"`
	Content string                         `gorm:"type:text" json:"content"`
	Media   datatypes.JSONSlice[MediaItem] `json:"media,omitempty"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
