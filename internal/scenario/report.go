package scenario

import (
	"time"

	"github.com/nbenliogludev/go-booking-e2e/internal/classify"
)

// Result is the outcome of one scenario.
type Result struct {
	Name      string
	Passed    bool
	Dates     string
	Outcome   classify.Outcome
	Messages  []string
	Notes     []string
	Err       error
	Duration  time.Duration
	Artifacts []string
}

// Report is one suite run.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Results  []Result
}

func (r *Report) PassedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed {
			n++
		}
	}
	return n
}

// Failed returns the results that did not pass.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// ExitCode is 0 when every scenario passed and 1 otherwise. An empty report
// counts as failed.
func (r *Report) ExitCode() int {
	if r == nil || len(r.Results) == 0 || r.PassedCount() != len(r.Results) {
		return 1
	}
	return 0
}
