package triage

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jarcoal/httpmock"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/go-booking-e2e/internal/classify"
	"github.com/nbenliogludev/go-booking-e2e/internal/scenario"
)

func failingReport() *scenario.Report {
	return &scenario.Report{
		RunID: "run-7",
		Results: []scenario.Result{
			{Name: scenario.MissingEmail, Passed: true},
			{
				Name:     scenario.CompleteBooking,
				Outcome:  classify.ValidationError,
				Dates:    "2026-10-15..2026-10-16",
				Messages: []string{"size must be between 11 and 21"},
				Err:      &scenario.AssertionError{Scenario: scenario.CompleteBooking, Expected: "success", Got: "validation_error"},
			},
		},
	}
}

func TestBuildPromptListsOnlyFailures(t *testing.T) {
	p := BuildPrompt(failingReport())

	assert.Contains(t, p, "RESULT:\n1/2 passed")
	assert.Contains(t, p, "SCENARIO: complete-booking\nOUTCOME: validation_error\nDATES: 2026-10-15..2026-10-16\n")
	assert.Contains(t, p, "MESSAGE: size must be between 11 and 21")
	assert.NotContains(t, p, "SCENARIO: missing-email")
}

func TestBuildPromptTruncates(t *testing.T) {
	r := failingReport()
	r.Results[1].Notes = []string{strings.Repeat("x", maxPromptBytes)}

	p := BuildPrompt(r)
	assert.True(t, strings.HasSuffix(p, "... (truncated)"))
}

func TestBuildPromptTruncatesOnRuneBoundary(t *testing.T) {
	r := failingReport()
	r.Results[1].Notes = []string{strings.Repeat("ü", maxPromptBytes)}

	p := BuildPrompt(r)
	assert.True(t, utf8.ValidString(p))
	assert.True(t, strings.HasSuffix(p, "... (truncated)"))
	assert.LessOrEqual(t, len(p), maxPromptBytes+len("\n... (truncated)"))
}

func newMockedSummarizer(t *testing.T) (*Summarizer, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	cfg := openai.DefaultConfig("sk-test")
	cfg.HTTPClient = &http.Client{Transport: transport}
	return New(openai.NewClientWithConfig(cfg), "gpt-4o-mini"), transport
}

func TestSummarize(t *testing.T) {
	s, transport := newMockedSummarizer(t)
	var got openai.ChatCompletionRequest
	transport.RegisterResponder("POST", "https://api.openai.com/v1/chat/completions", func(req *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
			return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
		}
		return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": "The phone is too short."}}},
		})
	})

	text, err := s.Summarize(context.Background(), failingReport())
	require.NoError(t, err)
	assert.Equal(t, "The phone is too short.", text)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "SCENARIO: complete-booking")
}

func TestSummarizeNoChoices(t *testing.T) {
	s, transport := newMockedSummarizer(t)
	transport.RegisterResponder("POST", "https://api.openai.com/v1/chat/completions",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{"choices": []any{}}))

	_, err := s.Summarize(context.Background(), failingReport())
	assert.ErrorContains(t, err, "no summary choices")
}

func TestSummarizeAPIError(t *testing.T) {
	s, transport := newMockedSummarizer(t)
	transport.RegisterResponder("POST", "https://api.openai.com/v1/chat/completions",
		httpmock.NewJsonResponderOrPanic(http.StatusTooManyRequests, map[string]any{
			"error": map[string]string{"message": "Rate limit reached", "type": "requests"},
		}))

	_, err := s.Summarize(context.Background(), failingReport())
	require.Error(t, err)

	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.HTTPStatusCode)
}

func TestFromEnvRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := FromEnv("gpt-4o-mini")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
