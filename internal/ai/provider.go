package ai

import (
	"context"
)

// Provider 大模型调用的最小抽象，返回原始文本
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	ModelID() string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
	// JSON 要求模型只输出 JSON 对象
	JSON bool
}
