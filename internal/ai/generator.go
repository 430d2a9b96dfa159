package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"study_companion_backend/internal/model"
)

//go:generate mockgen -source=generator.go -destination=../mocks/ai/mock_generator.go -package=mock_ai

// Generator 对话辅导与闪卡生成，对引擎而言是不透明的外部服务
type Generator interface {
	Answer(ctx context.Context, req AnswerRequest) (*Answer, error)
	GenerateFlashcards(ctx context.Context, req FlashcardRequest) ([]CardDraft, error)
}

type AnswerRequest struct {
	Question    string
	History     []Message
	Preferences model.LearningPreferences
}

// Answer 文本回答和按顺序排列的富媒体片段
type Answer struct {
	Text  string            `json:"answer"`
	Media []model.MediaItem `json:"media"`
}

type FlashcardRequest struct {
	Topic string
	Count int
}

type CardDraft struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// TutorGenerator 基于 Provider 的 Generator 实现
type TutorGenerator struct {
	Provider  Provider
	MaxTokens int
}

func NewTutorGenerator(provider Provider, maxTokens int) *TutorGenerator {
	return &TutorGenerator{Provider: provider, MaxTokens: maxTokens}
}

const answerFormat = `Reply with a JSON object: {"answer": string, "media": [{"type": "image"|"graph"|"code", "payload": string, "language": string}]}. ` +
	`"media" is optional and ordered; "language" is only used for code.`

func (g *TutorGenerator) Answer(ctx context.Context, req AnswerRequest) (*Answer, error) {
	messages := append([]Message(nil), req.History...)
	messages = append(messages, Message{Role: RoleUser, Content: req.Question})

	raw, err := g.Provider.Complete(ctx, Request{
		System:    TutorPrompt(req.Preferences) + "\n" + answerFormat,
		Messages:  messages,
		MaxTokens: g.MaxTokens,
		JSON:      true,
	})
	if err != nil {
		return nil, err
	}
	return parseAnswer(raw), nil
}

func (g *TutorGenerator) GenerateFlashcards(ctx context.Context, req FlashcardRequest) ([]CardDraft, error) {
	prompt := fmt.Sprintf("Create %d study flashcards about %q. "+
		`Reply with a JSON object: {"cards": [{"front": string, "back": string}]}. `+
		"Keep the front a short question and the back a concise answer.", req.Count, req.Topic)

	raw, err := g.Provider.Complete(ctx, Request{
		System:    "You write accurate, self-contained flashcards for students.",
		Messages:  []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens: g.MaxTokens,
		JSON:      true,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Cards []CardDraft `json:"cards"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &out); err != nil {
		return nil, &ErrInvalidResponse{Content: raw, Err: err}
	}
	if len(out.Cards) == 0 {
		return nil, &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("no cards in response")}
	}
	return out.Cards, nil
}

// TutorPrompt 根据学习偏好生成系统提示词
func TutorPrompt(p model.LearningPreferences) string {
	var b strings.Builder
	b.WriteString("You are a patient study tutor.")
	if p.AssistantTone != "" {
		fmt.Fprintf(&b, " Use a %s tone.", p.AssistantTone)
	}
	switch p.Style {
	case model.StyleVisual:
		b.WriteString(" The learner prefers visual explanations; include an image or graph when it helps.")
	case model.StyleHandsOn:
		b.WriteString(" The learner learns by doing; end with a short exercise.")
	case model.StyleAuditory:
		b.WriteString(" Explain as if speaking aloud, in a conversational way.")
	case model.StyleReading:
		b.WriteString(" The learner prefers well structured written explanations.")
	}
	if p.DetailLevel != "" {
		fmt.Fprintf(&b, " Detail level: %s.", p.DetailLevel)
	}
	if p.Pace != "" {
		fmt.Fprintf(&b, " Pace: %s.", p.Pace)
	}
	if p.ExampleFrequency != "" {
		fmt.Fprintf(&b, " Give examples %s.", p.ExampleFrequency)
	}
	return b.String()
}

// parseAnswer 返回内容不是 JSON 时整体作为文本回答
func parseAnswer(raw string) *Answer {
	var ans Answer
	if err := json.Unmarshal([]byte(extractJSON(raw)), &ans); err != nil || strings.TrimSpace(ans.Text) == "" {
		return &Answer{Text: strings.TrimSpace(raw)}
	}

	media := ans.Media[:0]
	for _, m := range ans.Media {
		switch m.Type {
		case "image", "graph":
			m.Language = ""
		case "code":
		default:
			continue
		}
		if strings.TrimSpace(m.Payload) == "" {
			continue
		}
		media = append(media, m)
	}
	ans.Media = media
	return &ans
}

// extractJSON 去掉 markdown 代码块包裹
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
