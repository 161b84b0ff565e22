// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"keyduel/internal/engine"
	"keyduel/internal/metrics"
	"keyduel/internal/model"
)

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Copy().Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model drives one typing attempt through an Engine.
type Model struct {
	eng   *engine.Engine
	saver *Saver

	width  int
	height int

	outcome *Outcome
	saveErr error
	aborted bool
	counted bool
}

// NewModel wraps an engine. The saver may be nil, in which case the
// result is not persisted.
func NewModel(eng *engine.Engine, saver *Saver) *Model {
	return &Model{eng: eng, saver: saver}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		m.eng.Tick(time.Time(msg))
		if m.eng.Status() == model.StatusCompleted {
			return m, m.finish()
		}
		return m, tick()
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyCtrlR:
			m.restart()
			return m, nil
		case tea.KeyBackspace, tea.KeyDelete:
			m.eng.ApplyKeystroke(model.KeyBackspace, time.Now())
		case tea.KeySpace:
			m.eng.ApplyKeystroke(" ", time.Now())
		case tea.KeyRunes:
			now := time.Now()
			for _, r := range msg.Runes {
				m.eng.ApplyKeystroke(string(r), now)
			}
		default:
			return m, nil
		}
		if !m.counted && m.eng.Status() != model.StatusPending {
			m.counted = true
			if m.saver != nil {
				if err := m.saver.RecordStart(); err != nil {
					logErrf("failed to record attempt start: %v\n", err)
				}
			}
		}
		if m.eng.Status() == model.StatusCompleted {
			return m, m.finish()
		}
		return m, nil
	default:
		return m, nil
	}
}

// restart discards the attempt and starts over on the same text.
func (m *Model) restart() {
	if m.eng.Status() == model.StatusCompleted {
		return
	}
	eng, err := engine.New(m.eng.Config())
	if err != nil {
		// The config was already validated once.
		return
	}
	m.eng = eng
	m.counted = false
}

func (m *Model) finish() tea.Cmd {
	result, ok := m.eng.Result()
	if !ok {
		return tea.Quit
	}
	if m.saver != nil {
		outcome, err := m.saver.Save(result)
		if err != nil {
			m.saveErr = err
		} else {
			m.outcome = &outcome
		}
	} else {
		m.outcome = &Outcome{Result: result}
	}
	return tea.Quit
}

// Outcome returns the saved attempt, or ok=false when the run was
// aborted before completion.
func (m *Model) Outcome() (Outcome, bool) {
	if m.outcome == nil {
		return Outcome{}, false
	}
	return *m.outcome, true
}

// SaveErr reports a persistence failure during completion, if any.
func (m *Model) SaveErr() error {
	return m.saveErr
}

// Aborted reports whether the user quit before finishing.
func (m *Model) Aborted() bool {
	return m.aborted
}

// View implements tea.Model.
func (m *Model) View() string {
	target := []rune(m.eng.TargetText())
	if len(target) == 0 {
		return ""
	}
	input := []rune(m.eng.UserInput())
	cursorIndex := -1
	if len(input) < len(target) {
		cursorIndex = len(input)
	}
	cells := styleCells(target, input, cursorIndex)
	if m.width == 0 || m.height == 0 {
		return renderCells(cells)
	}
	contentWidth := int(float64(m.width) * 0.70)
	if contentWidth < 1 {
		contentWidth = 1
	}
	wrapped := wrapCells(cells, contentWidth)
	content := lipgloss.NewStyle().Width(contentWidth).Render(wrapped)
	footer := m.renderFooter(time.Now())
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderFooter(now time.Time) string {
	segments := []string{timerSegment(m.eng, now)}

	correct, incorrect := m.eng.Counts()
	elapsed := m.eng.Elapsed(now).Seconds()
	if correct+incorrect > 0 {
		segments = append(segments,
			fmt.Sprintf("%d WPM", metrics.WPM(correct, elapsed)),
			fmt.Sprintf("%d%% acc", metrics.Accuracy(correct, incorrect)))
	}
	if seg := mistakeSegment(m.eng.MistakeMode(), incorrect); seg != "" {
		segments = append(segments, seg)
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func timerSegment(eng *engine.Engine, now time.Time) string {
	if remaining, ok := eng.Remaining(now); ok {
		return fmt.Sprintf("%s left", formatClock(remaining))
	}
	return formatClock(int(eng.Elapsed(now).Seconds()))
}

func mistakeSegment(mode model.MistakeMode, incorrect int) string {
	switch mode {
	case model.ModePro:
		return fmt.Sprintf("pro %d/5", incorrect)
	case model.ModeGod:
		return "god"
	default:
		return ""
	}
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
