package scenario

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/go-booking-e2e/internal/classify"
)

type stubSummarizer struct {
	text  string
	err   error
	calls int
}

func (s *stubSummarizer) Summarize(context.Context, *Report) (string, error) {
	s.calls++
	return s.text, s.err
}

func sampleReport() *Report {
	start := time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)
	return &Report{
		RunID:    "run-1",
		Started:  start,
		Finished: start.Add(3 * time.Second),
		Results: []Result{
			{Name: MissingEmail, Passed: true, Outcome: classify.ValidationError},
			{
				Name:     CompleteBooking,
				Outcome:  classify.Unknown,
				Messages: []string{"Please wait"},
				Notes:    []string{"no free dates within 60 days, using unverified fallback"},
				Err:      &AssertionError{Scenario: CompleteBooking, Expected: "success", Got: "unknown"},
			},
		},
	}
}

func TestReporterSummaryWithTriage(t *testing.T) {
	var out bytes.Buffer
	s := &stubSummarizer{text: "  The confirmation never rendered.\n"}
	NewReporter(&out, s).Summary(context.Background(), sampleReport())

	text := out.String()
	assert.Contains(t, text, "Run:      run-1")
	assert.Contains(t, text, "Duration: 3s")
	assert.Contains(t, text, "1/2 passed")
	assert.Contains(t, text, "FAIL complete-booking")
	assert.Contains(t, text, "--- TRIAGE ---\nThe confirmation never rendered.\n")
	assert.Equal(t, 1, s.calls)
}

func TestReporterSkipsTriageWhenAllPassed(t *testing.T) {
	var out bytes.Buffer
	s := &stubSummarizer{text: "unused"}
	r := sampleReport()
	r.Results = r.Results[:1]

	NewReporter(&out, s).Summary(context.Background(), r)
	assert.Zero(t, s.calls)
	assert.NotContains(t, out.String(), "TRIAGE")
}

func TestReporterTriageFailureIsPrinted(t *testing.T) {
	var out bytes.Buffer
	NewReporter(&out, &stubSummarizer{err: errors.New("quota exceeded")}).Summary(context.Background(), sampleReport())
	assert.Contains(t, out.String(), "(failed to generate summary: quota exceeded)")
}

func TestReporterScenarioFinished(t *testing.T) {
	var out bytes.Buffer
	res := sampleReport().Results[1]
	res.Artifacts = []string{filepath.Join("test-results", "run-1", "complete-booking.html")}

	NewReporter(&out, nil).ScenarioFinished(res)

	text := out.String()
	assert.Contains(t, text, "FAIL complete-booking [0s] outcome=unknown")
	assert.Contains(t, text, "  message: Please wait\n")
	assert.Contains(t, text, "  note:    no free dates")
	assert.Contains(t, text, "  error:   complete-booking: expected success, got unknown")
	assert.Contains(t, text, "  saved:   "+res.Artifacts[0])
}

func TestNilReporterIsSilent(t *testing.T) {
	var r *Reporter
	require.NotPanics(t, func() {
		r.ScenarioStarted(Scenario{Name: MissingEmail})
		r.ScenarioFinished(Result{})
		r.Summary(context.Background(), sampleReport())
	})
}
