package scenario

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Summarizer turns a report with failures into a short triage text.
type Summarizer interface {
	Summarize(ctx context.Context, r *Report) (string, error)
}

// Reporter prints human-readable progress to w. A nil Reporter prints nothing.
type Reporter struct {
	w          io.Writer
	summarizer Summarizer

	title, pass, fail, dim lipgloss.Style
}

func NewReporter(w io.Writer, s Summarizer) *Reporter {
	re := lipgloss.NewRenderer(w)
	return &Reporter{
		w:          w,
		summarizer: s,
		title:      re.NewStyle().Bold(true),
		pass:       re.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		fail:       re.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		dim:        re.NewStyle().Faint(true),
	}
}

func (p *Reporter) ScenarioStarted(sc Scenario) {
	if p == nil {
		return
	}
	fmt.Fprintln(p.w, strings.Repeat("-", 40))
	fmt.Fprintf(p.w, "%s %s\n", p.title.Render("SCENARIO"), sc.Name)
	if sc.Description != "" {
		fmt.Fprintln(p.w, p.dim.Render(sc.Description))
	}
}

func (p *Reporter) ScenarioFinished(res Result) {
	if p == nil {
		return
	}
	status := p.pass.Render("PASS")
	if !res.Passed {
		status = p.fail.Render("FAIL")
	}
	fmt.Fprintf(p.w, "%s %s [%s] outcome=%s\n", status, res.Name, res.Duration.Truncate(time.Millisecond), res.Outcome)
	if res.Dates != "" {
		fmt.Fprintf(p.w, "  dates:   %s\n", res.Dates)
	}
	for _, m := range res.Messages {
		fmt.Fprintf(p.w, "  message: %s\n", m)
	}
	for _, n := range res.Notes {
		fmt.Fprintf(p.w, "  note:    %s\n", n)
	}
	if res.Err != nil {
		fmt.Fprintf(p.w, "  error:   %v\n", res.Err)
	}
	for _, a := range res.Artifacts {
		fmt.Fprintf(p.w, "  saved:   %s\n", a)
	}
}

// Summary prints the execution report and, when failures exist and a
// summarizer is set, its triage.
func (p *Reporter) Summary(ctx context.Context, r *Report) {
	if p == nil || r == nil {
		return
	}
	passed := p.passedLine(r)

	fmt.Fprintln(p.w, "\n"+p.title.Render("===== EXECUTION REPORT ====="))
	fmt.Fprintf(p.w, "Run:      %s\n", r.RunID)
	fmt.Fprintf(p.w, "Duration: %s\n", r.Finished.Sub(r.Started).Truncate(time.Millisecond))
	fmt.Fprintf(p.w, "Result:   %s\n", passed)
	for _, res := range r.Results {
		mark := p.pass.Render("PASS")
		if !res.Passed {
			mark = p.fail.Render("FAIL")
		}
		fmt.Fprintf(p.w, "  %s %s\n", mark, res.Name)
	}

	if p.summarizer != nil && len(r.Failed()) > 0 {
		fmt.Fprintln(p.w, "\n--- TRIAGE ---")
		text, err := p.summarizer.Summarize(ctx, r)
		if err != nil {
			fmt.Fprintf(p.w, "(failed to generate summary: %v)\n", err)
		} else {
			fmt.Fprintln(p.w, strings.TrimSpace(text))
		}
	}
	fmt.Fprintln(p.w, p.title.Render("===== END OF REPORT ====="))
}

// passedLine renders "N/M passed".
func (p *Reporter) passedLine(r *Report) string {
	line := fmt.Sprintf("%d/%d passed", r.PassedCount(), len(r.Results))
	if r.ExitCode() == 0 {
		return p.pass.Render(line)
	}
	return p.fail.Render(line)
}
