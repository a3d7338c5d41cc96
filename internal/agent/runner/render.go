package runner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/incidentlab/responder/internal/incident"
)

// Reporter receives progress callbacks while a diagnosis runs.
// Callbacks arrive sequentially from the event loop goroutine.
type Reporter interface {
	SessionStarted(sessionID, model, incidentID string)
	AgentActivated(agent string)
	ToolStarted(agent, tool string)
	ToolCompleted(agent, tool string, success bool, duration time.Duration)
	AgentText(agent, text string)
	ContextUpdate(usedTokens, maxTokens int)
	Completed(duration time.Duration)
}

// nopReporter discards all progress.
type nopReporter struct{}

func (nopReporter) SessionStarted(string, string, string) {}
func (nopReporter) AgentActivated(string) {}
func (nopReporter) ToolStarted(string, string) {}
func (nopReporter) ToolCompleted(string, string, bool, time.Duration) {}
func (nopReporter) AgentText(string, string) {}
func (nopReporter) ContextUpdate(int, int) {}
func (nopReporter) Completed(time.Duration) {}

// Color palette for console output
var (
	colorPrimary = lipgloss.Color("#00D4FF") // Cyan
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#6B7280") // Gray
	colorDim     = lipgloss.Color("#4B5563") // Dark gray
)

var (
	agentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	toolStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// ConsoleReporter renders diagnosis progress as styled lines, one per
// event. It is the plain-terminal counterpart of a full TUI: agents in
// bold, tools indented underneath, timings dimmed.
type ConsoleReporter struct {
	w io.Writer
}

// NewConsoleReporter creates a reporter writing to w.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

func (c *ConsoleReporter) SessionStarted(sessionID, model, incidentID string) {
	fmt.Fprintf(c.w, "%s %s\n", dimStyle.Render("session:"), sessionID)
	fmt.Fprintf(c.w, "%s %s\n", dimStyle.Render("model:"), model)
	fmt.Fprintf(c.w, "%s %s\n\n", dimStyle.Render("incident:"), incidentID)
}

func (c *ConsoleReporter) AgentActivated(agent string) {
	fmt.Fprintf(c.w, "%s\n", agentStyle.Render("▶ "+agent))
}

func (c *ConsoleReporter) ToolStarted(agent, tool string) {
	fmt.Fprintf(c.w, "  %s\n", toolStyle.Render("⚙ "+tool))
}

func (c *ConsoleReporter) ToolCompleted(agent, tool string, success bool, duration time.Duration) {
	elapsed := dimStyle.Render(duration.Round(time.Millisecond).String())
	if success {
		fmt.Fprintf(c.w, "  %s %s %s\n", successStyle.Render("✓"), tool, elapsed)
		return
	}
	fmt.Fprintf(c.w, "  %s %s %s\n", errorStyle.Render("✗"), tool, elapsed)
}

func (c *ConsoleReporter) AgentText(agent, text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}
	fmt.Fprintf(c.w, "  %s\n", strings.ReplaceAll(trimmed, "\n", "\n  "))
}

func (c *ConsoleReporter) ContextUpdate(usedTokens, maxTokens int) {}

func (c *ConsoleReporter) Completed(duration time.Duration) {
	fmt.Fprintf(c.w, "\n%s diagnosis complete in %s\n\n",
		successStyle.Render("✓"), duration.Round(time.Millisecond))
}

// RenderMarkdown renders markdown for terminal display. Output going to
// a pipe, and any renderer failure, falls back to the raw text.
func RenderMarkdown(text string) string {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return text
	}

	width := 76
	if w, _, err := term.GetSize(fd); err == nil && w > 8 {
		width = w - 8
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}

	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return out
}

// FormatVerdict renders a verdict as a markdown report.
func FormatVerdict(v incident.Verdict) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Incident Verdict: %s\n\n", v.IncidentID)
	fmt.Fprintf(&b, "**Severity:** %s\n\n", v.Severity)
	fmt.Fprintf(&b, "**Root cause:** %s (confidence %.2f)\n\n", v.RootCause, v.Confidence)

	if len(v.FailureSummary) > 0 {
		b.WriteString("**What failed:**\n\n")
		for _, item := range v.FailureSummary {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}

	b.WriteString("**Recommended actions:**\n\n")
	writeActionTier(&b, "Immediate", v.RecommendedActions.Immediate)
	writeActionTier(&b, "Short term", v.RecommendedActions.ShortTerm)
	writeActionTier(&b, "Long term", v.RecommendedActions.LongTerm)

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeActionTier(b *strings.Builder, tier string, actions []string) {
	if len(actions) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s:**\n\n", tier)
	for _, action := range actions {
		fmt.Fprintf(b, "- %s\n", action)
	}
	b.WriteString("\n")
}
