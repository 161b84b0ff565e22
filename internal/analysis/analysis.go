// Package analysis turns a finished attempt into coaching feedback via
// an external AI CLI. Failures are surfaced as errors so callers can
// degrade to showing results without analysis.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"keyduel/internal/model"
)

// DefaultTimeout bounds one analysis request.
const DefaultTimeout = 30 * time.Second

// ErrUnavailable is returned when no analysis backend can be found.
var ErrUnavailable = errors.New("analysis backend unavailable")

// Analysis is the coaching feedback for one attempt.
type Analysis struct {
	PositiveFeedback       string `json:"positiveFeedback"`
	MainAreaForImprovement string `json:"mainAreaForImprovement"`
	ImprovementTip         string `json:"improvementTip"`
	PracticeSuggestion     string `json:"practiceSuggestion"`
}

// Analyzer produces coaching feedback from a finished attempt.
type Analyzer interface {
	Available() bool
	Analyze(ctx context.Context, result model.TestResult) (Analysis, error)
}

// CLIAnalyzer shells out to the claude CLI.
type CLIAnalyzer struct {
	cliPath string
	timeout time.Duration
}

// NewCLIAnalyzer builds an analyzer with the default timeout.
func NewCLIAnalyzer() *CLIAnalyzer {
	return &CLIAnalyzer{timeout: DefaultTimeout}
}

// Available checks whether the claude CLI is on PATH.
func (a *CLIAnalyzer) Available() bool {
	path, err := exec.LookPath("claude")
	if err != nil {
		return false
	}
	a.cliPath = path
	return true
}

// Analyze sends the attempt to the CLI and parses the JSON reply.
func (a *CLIAnalyzer) Analyze(ctx context.Context, result model.TestResult) (Analysis, error) {
	if a.cliPath == "" && !a.Available() {
		return Analysis{}, ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.cliPath, "--print")
	cmd.Stdin = strings.NewReader(buildPrompt(result))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Analysis{}, fmt.Errorf("analysis timed out after %v", a.timeout)
		}
		if stderr.Len() > 0 {
			return Analysis{}, fmt.Errorf("analysis failed: %s", strings.TrimSpace(stderr.String()))
		}
		return Analysis{}, fmt.Errorf("analysis failed: %w", err)
	}
	return ParseResponse(stdout.String())
}

// ParseResponse extracts the Analysis object from a CLI reply, which
// may wrap the JSON in prose or a code fence.
func ParseResponse(response string) (Analysis, error) {
	raw := extractJSON(response)
	if raw == "" {
		return Analysis{}, fmt.Errorf("no JSON object in analysis response")
	}
	var a Analysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Analysis{}, fmt.Errorf("decode analysis response: %w", err)
	}
	if a.PositiveFeedback == "" && a.MainAreaForImprovement == "" {
		return Analysis{}, fmt.Errorf("analysis response missing required fields")
	}
	return a, nil
}

func extractJSON(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return ""
	}
	return response[start : end+1]
}

func buildPrompt(r model.TestResult) string {
	var b strings.Builder
	b.WriteString("You are a typing coach. A user completed a typing test with these results:\n")
	fmt.Fprintf(&b, "- WPM: %d\n- Accuracy: %d%%\n- Consistency: %d\n", r.WPM, r.Accuracy, r.Consistency)
	fmt.Fprintf(&b, "Target text: %q\n", r.TargetText)
	fmt.Fprintf(&b, "What the user typed: %q\n", r.UserInput)
	b.WriteString("\nRespond with ONLY a JSON object with these string fields: ")
	b.WriteString("positiveFeedback, mainAreaForImprovement, improvementTip, practiceSuggestion. ")
	b.WriteString("Keep each field to one or two sentences.")
	return b.String()
}
