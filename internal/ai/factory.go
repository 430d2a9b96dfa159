package ai

import (
	"fmt"
	"study_companion_backend/internal/config"
)

// NewProvider 按配置创建 Provider，provider 为 none 时返回 ErrDisabled
func NewProvider(cfg config.AIConfig) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "openai":
		p, err = NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "anthropic":
		p, err = NewAnthropicProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "none", "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown AI provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	return p, nil
}
