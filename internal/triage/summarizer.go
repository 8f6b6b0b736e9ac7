// Package triage asks an OpenAI model to explain failed scenarios.
package triage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nbenliogludev/go-booking-e2e/internal/scenario"
)

// ErrNoAPIKey is returned when OPENAI_API_KEY is unset.
var ErrNoAPIKey = errors.New("OPENAI_API_KEY is not set")

const maxPromptBytes = 30000

type Summarizer struct {
	client *openai.Client
	model  string
}

// New uses an existing client.
func New(client *openai.Client, model string) *Summarizer {
	return &Summarizer{client: client, model: model}
}

// FromEnv builds a summarizer from OPENAI_API_KEY.
func FromEnv(model string) (*Summarizer, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return New(openai.NewClient(apiKey), model), nil
}

// Summarize implements scenario.Summarizer.
func (s *Summarizer) Summarize(ctx context.Context, r *scenario.Report) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(r)},
		},
		Temperature: 0.2,
		MaxTokens:   600,
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no summary choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// BuildPrompt renders the failed scenarios of r.
func BuildPrompt(r *scenario.Report) string {
	var sb strings.Builder
	sb.WriteString("RUN:\n" + r.RunID + "\n\n")
	fmt.Fprintf(&sb, "RESULT:\n%d/%d passed\n\n", r.PassedCount(), len(r.Results))

	for _, res := range r.Failed() {
		sb.WriteString("SCENARIO: " + res.Name + "\n")
		sb.WriteString("OUTCOME: " + res.Outcome.String() + "\n")
		if res.Dates != "" {
			sb.WriteString("DATES: " + res.Dates + "\n")
		}
		if res.Err != nil {
			sb.WriteString("ERROR: " + res.Err.Error() + "\n")
		}
		for _, m := range res.Messages {
			sb.WriteString("MESSAGE: " + m + "\n")
		}
		for _, n := range res.Notes {
			sb.WriteString("NOTE: " + n + "\n")
		}
		sb.WriteString("\n")
	}

	out := sb.String()
	if len(out) > maxPromptBytes {
		cut := maxPromptBytes
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut] + "\n... (truncated)"
	}
	return out
}

var _ scenario.Summarizer = (*Summarizer)(nil)
