// Package resultsui shows a finished attempt: overview cards, the WPM
// curve, keystroke replay, and optional AI coaching.
package resultsui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"keyduel/internal/analysis"
	"keyduel/internal/replay"
	"keyduel/internal/stats"
	"keyduel/internal/tui"
)

type tab int

const (
	tabOverview tab = iota
	tabPlot
	tabReplay
	tabAnalysis
	tabCount
)

var tabNames = [tabCount]string{"Overview", "WPM", "Replay", "Coach"}

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2).
			MarginRight(1)
	cardLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Bold(true)
	passStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	failStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	activeTabStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	passiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	noticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
)

type replayTickMsg struct{}

type analysisMsg struct {
	analysis analysis.Analysis
	err      error
}

// Model renders a saved attempt.
type Model struct {
	outcome  tui.Outcome
	analyzer analysis.Analyzer

	player  *replay.Player
	playing bool

	coach        *analysis.Analysis
	coachErr     error
	coachPending bool

	tab    tab
	width  int
	height int
}

// NewModel builds the results screen. The analyzer may be nil.
func NewModel(outcome tui.Outcome, analyzer analysis.Analyzer) *Model {
	r := outcome.Result
	return &Model{
		outcome:  outcome,
		analyzer: analyzer,
		player:   replay.NewPlayer(r.TargetText, r.Keystrokes),
	}
}

// ShowReplay opens the screen on the replay tab with playback running.
func (m *Model) ShowReplay() {
	m.tab = tabReplay
	m.playing = true
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.playing {
		return replayTick(0)
	}
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case replayTickMsg:
		if !m.playing {
			return m, nil
		}
		delay, done := m.player.Advance()
		if done {
			m.playing = false
			return m, nil
		}
		return m, replayTick(delay)
	case analysisMsg:
		m.coachPending = false
		if msg.err != nil {
			m.coachErr = msg.err
		} else {
			m.coach = &msg.analysis
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "tab", "right", "l":
		m.tab = (m.tab + 1) % tabCount
		return m, m.enterTab()
	case "shift+tab", "left", "h":
		m.tab = (m.tab + tabCount - 1) % tabCount
		return m, m.enterTab()
	case "r":
		if m.tab == tabReplay {
			m.player.Reset()
			m.playing = true
			return m, replayTick(0)
		}
	case " ":
		if m.tab == tabReplay {
			return m, m.toggleReplay()
		}
	}
	return m, nil
}

func (m *Model) enterTab() tea.Cmd {
	switch m.tab {
	case tabReplay:
		if !m.playing && m.player.Index() == 0 {
			m.playing = true
			return replayTick(0)
		}
	case tabAnalysis:
		if m.coach == nil && m.coachErr == nil && !m.coachPending {
			return m.requestAnalysis()
		}
	}
	return nil
}

func (m *Model) toggleReplay() tea.Cmd {
	if m.player.Paused() {
		m.player.Resume()
		m.playing = true
		return replayTick(0)
	}
	m.player.Pause()
	m.playing = false
	return nil
}

func (m *Model) requestAnalysis() tea.Cmd {
	if m.analyzer == nil || !m.analyzer.Available() {
		m.coachErr = analysis.ErrUnavailable
		return nil
	}
	m.coachPending = true
	result := m.outcome.Result
	analyzer := m.analyzer
	return func() tea.Msg {
		a, err := analyzer.Analyze(context.Background(), result)
		return analysisMsg{analysis: a, err: err}
	}
}

func replayTick(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return replayTickMsg{}
	})
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	switch m.tab {
	case tabOverview:
		b.WriteString(m.renderOverview())
	case tabPlot:
		b.WriteString(m.renderPlot())
	case tabReplay:
		b.WriteString(m.renderReplay())
	case tabAnalysis:
		b.WriteString(m.renderAnalysis())
	}
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render("tab: switch  q: close"))
	return b.String()
}

func (m *Model) renderTabs() string {
	parts := make([]string, tabCount)
	for i, name := range tabNames {
		if tab(i) == m.tab {
			parts[i] = activeTabStyle.Render(name)
		} else {
			parts[i] = passiveTabStyle.Render(name)
		}
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderOverview() string {
	r := m.outcome.Result
	verdict := passStyle.Render("passed")
	if !r.Passed {
		verdict = failStyle.Render("failed")
	}
	cards := []string{
		card("wpm", fmt.Sprintf("%d", r.WPM)),
		card("raw", fmt.Sprintf("%d", r.RawWPM)),
		card("accuracy", fmt.Sprintf("%d%%", r.Accuracy)),
		card("consistency", fmt.Sprintf("%d", r.Consistency)),
		card("time", fmt.Sprintf("%ds", r.ElapsedSeconds)),
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, cards...)

	var b strings.Builder
	b.WriteString(row)
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s · %s · %s\n", r.Level, r.Language, verdict)
	if len(r.WordsWithErrors) > 0 {
		fmt.Fprintf(&b, "words with errors: %d\n", len(r.WordsWithErrors))
	}
	for _, line := range m.notices() {
		b.WriteString(noticeStyle.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) notices() []string {
	var lines []string
	if m.outcome.NewPersonalBest {
		lines = append(lines, "new personal best!")
	}
	if m.outcome.OnLeaderboard {
		lines = append(lines, "posted to the leaderboard")
	}
	for _, a := range m.outcome.Unlocked {
		lines = append(lines, fmt.Sprintf("achievement unlocked: %s", a.Name))
	}
	return lines
}

func (m *Model) renderPlot() string {
	history := m.outcome.Result.WpmHistory
	if len(history) < 2 {
		return hintStyle.Render("not enough samples to plot")
	}
	wpm := make([]float64, len(history))
	raw := make([]float64, len(history))
	for i, s := range history {
		wpm[i] = float64(s.WPM)
		raw[i] = float64(s.RawWPM)
	}
	width := stats.PlotWidthFor(m.width)
	var b strings.Builder
	if err := stats.PlotSeries(&b, "WPM over time", []stats.Series{
		{Name: "wpm", Values: wpm},
		{Name: "raw", Values: raw},
	}, width, 10); err != nil {
		return hintStyle.Render("plot unavailable")
	}
	return b.String()
}

func (m *Model) renderReplay() string {
	state := m.player.State()
	target := []rune(m.outcome.Result.TargetText)
	input := []rune(state.UserInput)
	cursorIndex := -1
	if len(input) < len(target) {
		cursorIndex = len(input)
	}
	contentWidth := int(float64(m.width) * 0.70)
	text := tui.RenderTyping(target, input, cursorIndex, contentWidth)

	status := "playing"
	switch {
	case m.player.Finished():
		status = "finished · r: restart"
	case m.player.Paused():
		status = "paused · space: resume"
	default:
		status = "playing · space: pause"
	}
	return text + "\n\n" + hintStyle.Render(status)
}

func (m *Model) renderAnalysis() string {
	switch {
	case m.coachPending:
		return hintStyle.Render("asking the coach...")
	case m.coachErr != nil:
		return hintStyle.Render(fmt.Sprintf("coaching unavailable: %v", m.coachErr))
	case m.coach == nil:
		return hintStyle.Render("no analysis yet")
	}
	a := m.coach
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", a.PositiveFeedback)
	fmt.Fprintf(&b, "Focus area: %s\n", a.MainAreaForImprovement)
	fmt.Fprintf(&b, "Tip: %s\n", a.ImprovementTip)
	fmt.Fprintf(&b, "Practice: %s\n", a.PracticeSuggestion)
	return b.String()
}

func card(label, value string) string {
	inner := lipgloss.JoinVertical(lipgloss.Center,
		cardValueStyle.Render(value),
		cardLabelStyle.Render(label))
	return cardStyle.Render(inner)
}
