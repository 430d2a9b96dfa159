package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"study_companion_backend/internal/model"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  "gpt-4o-mini",
	}
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
}

func TestTutorGenerator_Answer(t *testing.T) {
	var gotSystem string
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var body openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotSystem = body.Messages[0].Content

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion("```json\n" +
			`{"answer":"Use the quadratic formula.","media":[{"type":"code","payload":"x = (-b + sqrt(d)) / 2a","language":"python"},{"type":"video","payload":"skip"}]}` +
			"\n```"))
	})

	g := NewTutorGenerator(p, 256)
	ans, err := g.Answer(context.Background(), AnswerRequest{
		Question:    "How do I solve x^2 - 4 = 0?",
		Preferences: model.LearningPreferences{Style: model.StyleHandsOn, AssistantTone: "encouraging"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Use the quadratic formula.", ans.Text)
	require.Len(t, ans.Media, 1)
	assert.Equal(t, "code", ans.Media[0].Type)
	assert.Equal(t, "python", ans.Media[0].Language)
	assert.Contains(t, gotSystem, "encouraging")
	assert.Contains(t, gotSystem, "short exercise")
}

func TestTutorGenerator_AnswerFallsBackToPlainText(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion("Just revise chapter 3."))
	})

	ans, err := NewTutorGenerator(p, 256).Answer(context.Background(), AnswerRequest{Question: "what next?"})
	require.NoError(t, err)
	assert.Equal(t, "Just revise chapter 3.", ans.Text)
	assert.Empty(t, ans.Media)
}

func TestTutorGenerator_GenerateFlashcards(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion(`{"cards":[{"front":"2+2?","back":"4"},{"front":"3*3?","back":"9"}]}`))
	})

	cards, err := NewTutorGenerator(p, 256).GenerateFlashcards(context.Background(), FlashcardRequest{Topic: "arithmetic", Count: 2})
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "4", cards[0].Back)
}

func TestTutorGenerator_GenerateFlashcardsInvalidJSON(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion("not json"))
	})

	_, err := NewTutorGenerator(p, 256).GenerateFlashcards(context.Background(), FlashcardRequest{Topic: "x", Count: 1})
	var invalid *ErrInvalidResponse
	require.True(t, errors.As(err, &invalid))
	assert.True(t, IsRetryable(err))
}

func TestOpenAIProvider_RateLimitIsRetryable(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "slow down", "type": "rate_limit_error"},
		})
	})

	_, err := p.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	var rateLimit *ErrRateLimit
	require.True(t, errors.As(err, &rateLimit))
	assert.True(t, IsRetryable(err))
}

func TestOpenAIProvider_BadRequestIsNotRetryable(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "bad model", "type": "invalid_request_error"},
		})
	})

	_, err := p.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(configFor("none"))
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = NewProvider(configFor("gemini"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown AI provider"))

	p, err := NewProvider(configFor("anthropic"))
	require.NoError(t, err)
	assert.Equal(t, "claude-test", p.ModelID())
}
