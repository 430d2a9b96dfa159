package ai

import "study_companion_backend/internal/config"

func configFor(provider string) config.AIConfig {
	return config.AIConfig{
		Provider:  provider,
		APIKey:    "test-key",
		Model:     "claude-test",
		MaxTokens: 256,
	}
}
