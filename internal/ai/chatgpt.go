package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrGraderUnavailable is returned when no API key is configured or the API fails
var ErrGraderUnavailable = errors.New("ai grader unavailable")

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-4o-mini"

// Verdict is the LLM's judgement of one answer
type Verdict struct {
	Passed   bool   `json:"passed"`
	Feedback string `json:"feedback"`
}

// ChatGPT grades free-text answers with the OpenAI chat API
type ChatGPT struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// Config for the grader. BaseURL is for OpenAI-compatible endpoints.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// New creates a new ChatGPT grader
func New(cfg Config) (*ChatGPT, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is not set: %w", ErrGraderUnavailable)
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &ChatGPT{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		maxTokens:   150,
		temperature: 0,
	}, nil
}

const systemPrompt = `You grade flashcard answers for a language learner.
Accept answers that mean the same as the expected answer, including synonyms,
minor spelling mistakes and missing articles. Reject answers with a different meaning.
Reply with a JSON object: {"passed": true|false, "feedback": "<one short sentence>"}.`

// Grade asks the model whether answer is an acceptable response to prompt.
func (c *ChatGPT) Grade(ctx context.Context, prompt, expected, answer string) (Verdict, error) {
	user := fmt.Sprintf("Prompt: %s\nExpected answer: %s\nLearner answer: %s", prompt, expected, answer)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxCompletionTokens: c.maxTokens,
		Temperature:         c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrGraderUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return Verdict{}, fmt.Errorf("%w: no choices in response", ErrGraderUnavailable)
	}
	return parseVerdict(resp.Choices[0].Message.Content)
}

func parseVerdict(content string) (Verdict, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```"), "```")

	var v Verdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &v); err != nil {
		return Verdict{}, fmt.Errorf("failed to decode verdict: %w", err)
	}
	v.Feedback = strings.TrimSpace(v.Feedback)
	return v, nil
}
