// Package duelui drives a 1v1 race over a shared match record: lobby
// and ready-up, the start countdown, the race itself, and the final
// scoreboard.
package duelui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"keyduel/internal/engine"
	"keyduel/internal/match"
	"keyduel/internal/metrics"
	"keyduel/internal/model"
	"keyduel/internal/tui"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	opponentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	countdownBig  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	winStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#52C41A"))
	loseStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF4D4F"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

const actionTimeout = 10 * time.Second

type matchMsg model.Match

type watchClosedMsg struct{}

type countdownMsg struct{}

type raceTickMsg time.Time

type actionErrMsg struct{ err error }

// Model runs one duel from invitation to final scoreboard.
type Model struct {
	coord   *match.Coordinator
	updates <-chan model.Match

	match     model.Match
	eng       *engine.Engine
	spin      spinner.Model
	countdown int
	submitted bool
	finalized bool

	width  int
	height int
	err    error
}

// NewModel wraps a coordinator and a watch channel for one match.
func NewModel(coord *match.Coordinator, current model.Match, updates <-chan model.Match) *Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = opponentStyle
	return &Model{coord: coord, match: current, updates: updates, spin: sp}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForUpdate(), m.onMatch(m.match), m.spin.Tick)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case matchMsg:
		m.match = model.Match(msg)
		return m, tea.Batch(m.waitForUpdate(), m.onMatch(m.match))
	case watchClosedMsg:
		if !terminal(m.match.Status) {
			m.err = fmt.Errorf("lost connection to the relay")
			return m, tea.Quit
		}
		return m, nil
	case countdownMsg:
		return m, m.stepCountdown()
	case raceTickMsg:
		if m.eng != nil {
			m.eng.Tick(time.Time(msg))
			if cmd := m.maybeSubmit(); cmd != nil {
				return m, cmd
			}
			if m.eng.Status() == model.StatusActive || m.eng.Status() == model.StatusPending {
				return m, raceTick()
			}
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case actionErrMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
		return m, m.quit()
	}
	switch m.match.Status {
	case model.MatchPending:
		if !m.coord.IsChallenger(m.match) {
			switch msg.String() {
			case "y":
				return m, m.do(m.coord.Accept, m.match.ID)
			case "n":
				return m, m.do(m.coord.Decline, m.match.ID)
			}
		}
	case model.MatchActive:
		if msg.String() == "r" && !m.ready() {
			return m, m.doMatch(m.coord.SetReady, m.match)
		}
	case model.MatchInProgress:
		if m.eng != nil && m.eng.Status() != model.StatusCompleted {
			m.applyRaceKey(msg)
			return m, m.maybeSubmit()
		}
	case model.MatchCompleted, model.MatchDeclined:
		if msg.String() == "q" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Model) applyRaceKey(msg tea.KeyMsg) {
	now := time.Now()
	switch msg.Type {
	case tea.KeyBackspace, tea.KeyDelete:
		m.eng.ApplyKeystroke(model.KeyBackspace, now)
	case tea.KeySpace:
		m.eng.ApplyKeystroke(" ", now)
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			m.eng.ApplyKeystroke(string(r), now)
		}
	}
}

// onMatch reacts to a new snapshot of the shared record. Challenger
// drives the shared transitions; both sides build their engine when
// the race opens.
func (m *Model) onMatch(rec model.Match) tea.Cmd {
	var cmds []tea.Cmd
	switch rec.Status {
	case model.MatchActive:
		if m.coord.IsChallenger(rec) {
			if rec.TargetText == "" {
				cmds = append(cmds, m.doMatch(m.coord.EnsureText, rec))
			} else if rec.Player1Ready && rec.Player2Ready {
				cmds = append(cmds, m.doMatch(m.coord.TryStart, rec))
			}
		}
	case model.MatchStarting:
		if m.countdown == 0 {
			m.countdown = match.CountdownSeconds
			cmds = append(cmds, countdownTick())
		}
	case model.MatchInProgress:
		if m.eng == nil && rec.TargetText != "" {
			eng, err := engine.New(engine.Config{
				Level:     model.LevelSimple,
				Text:      rec.TargetText,
				WordCount: rec.WordCount,
				Language:  m.coord.Language(),
			})
			if err != nil {
				m.err = err
				return tea.Quit
			}
			m.eng = eng
			cmds = append(cmds, raceTick())
		}
		if m.coord.IsChallenger(rec) && rec.Player1Result != nil && rec.Player2Result != nil && !m.finalized {
			m.finalized = true
			cmds = append(cmds, m.doMatch(m.coord.Finalize, rec))
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (m *Model) stepCountdown() tea.Cmd {
	if m.match.Status != model.MatchStarting {
		return nil
	}
	m.countdown--
	if m.countdown > 0 {
		return countdownTick()
	}
	if m.coord.IsChallenger(m.match) {
		return m.doMatch(m.coord.BeginRace, m.match)
	}
	return nil
}

func (m *Model) maybeSubmit() tea.Cmd {
	if m.eng == nil || m.submitted {
		return nil
	}
	result, ok := m.eng.Result()
	if !ok {
		return nil
	}
	m.submitted = true
	current := m.match
	submission := model.MatchResult{
		WPM:            result.WPM,
		Accuracy:       result.Accuracy,
		ElapsedSeconds: result.ElapsedSeconds,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := m.coord.SubmitResult(ctx, current, submission); err != nil {
			return actionErrMsg{err}
		}
		return actionErrMsg{}
	}
}

// quit forfeits a live race and cancels an unanswered challenge,
// otherwise just leaves.
func (m *Model) quit() tea.Cmd {
	if m.match.Status == model.MatchInProgress && !m.submitted {
		current := m.match
		coord := m.coord
		return tea.Sequence(func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
			defer cancel()
			if err := coord.Forfeit(ctx, current); err != nil {
				return actionErrMsg{err}
			}
			return actionErrMsg{}
		}, tea.Quit)
	}
	if m.match.Status == model.MatchPending && m.coord.IsChallenger(m.match) {
		return tea.Sequence(m.do(m.coord.Decline, m.match.ID), tea.Quit)
	}
	return tea.Quit
}

func (m *Model) waitForUpdate() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		rec, ok := <-updates
		if !ok {
			return watchClosedMsg{}
		}
		return matchMsg(rec)
	}
}

func (m *Model) do(f func(context.Context, string) error, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := f(ctx, id); err != nil {
			return actionErrMsg{err}
		}
		return actionErrMsg{}
	}
}

func (m *Model) doMatch(f func(context.Context, model.Match) error, rec model.Match) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := f(ctx, rec); err != nil {
			return actionErrMsg{err}
		}
		return actionErrMsg{}
	}
}

func terminal(s model.MatchStatus) bool {
	return s == model.MatchCompleted || s == model.MatchDeclined
}

// Err reports a fatal duel error, if any.
func (m *Model) Err() error {
	return m.err
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.match.Status {
	case model.MatchPending:
		body = m.viewPending()
	case model.MatchActive:
		body = m.viewLobby()
	case model.MatchStarting:
		body = m.viewCountdown()
	case model.MatchInProgress:
		body = m.viewRace()
	case model.MatchCompleted:
		body = m.viewCompleted()
	case model.MatchDeclined:
		body = titleStyle.Render("Match declined.") + "\n\n" + hintStyle.Render("q: close")
	default:
		body = hintStyle.Render("waiting for the match record...")
	}
	if m.err != nil {
		body += "\n" + errStyle.Render(m.err.Error())
	}
	if m.width == 0 || m.height == 0 {
		return body
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}

func (m *Model) viewPending() string {
	if m.coord.IsChallenger(m.match) {
		return m.spin.View() + titleStyle.Render(fmt.Sprintf(" Waiting for %s to accept...", m.match.Player2Name))
	}
	return titleStyle.Render(fmt.Sprintf("%s challenged you to a %d-word race!", m.match.Player1Name, m.match.WordCount)) +
		"\n\n" + hintStyle.Render("y: accept  n: decline")
}

func (m *Model) viewLobby() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s vs %s", m.match.Player1Name, m.match.Player2Name)))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s\n", readyMark(m.match.Player1Ready), m.match.Player1Name)
	fmt.Fprintf(&b, "%s %s\n", readyMark(m.match.Player2Ready), m.match.Player2Name)
	b.WriteString("\n")
	if m.ready() {
		b.WriteString(hintStyle.Render("waiting for your opponent..."))
	} else {
		b.WriteString(hintStyle.Render("r: ready up"))
	}
	return b.String()
}

func (m *Model) viewCountdown() string {
	n := m.countdown
	if n <= 0 {
		n = 1
	}
	return countdownBig.Render(fmt.Sprintf("Race starts in %d...", n))
}

func (m *Model) viewRace() string {
	if m.eng == nil {
		return hintStyle.Render("starting...")
	}
	target := []rune(m.eng.TargetText())
	input := []rune(m.eng.UserInput())
	cursorIndex := -1
	if len(input) < len(target) {
		cursorIndex = len(input)
	}
	contentWidth := int(float64(m.width) * 0.70)
	text := tui.RenderTyping(target, input, cursorIndex, contentWidth)

	var footer string
	if m.submitted {
		footer = hintStyle.Render("finished! waiting for your opponent...")
	} else {
		now := time.Now()
		correct, incorrect := m.eng.Counts()
		elapsed := m.eng.Elapsed(now).Seconds()
		footer = hintStyle.Render(fmt.Sprintf("%d WPM  %d%% acc  %s",
			metrics.WPM(correct, elapsed),
			metrics.Accuracy(correct, incorrect),
			opponentStyle.Render(m.opponentStatus())))
	}
	return text + "\n\n" + footer
}

func (m *Model) opponentStatus() string {
	var name string
	var result *model.MatchResult
	if m.coord.IsChallenger(m.match) {
		name = m.match.Player2Name
		result = m.match.Player2Result
	} else {
		name = m.match.Player1Name
		result = m.match.Player1Result
	}
	if result != nil {
		return fmt.Sprintf("%s finished at %d WPM", name, result.WPM)
	}
	return fmt.Sprintf("%s is typing...", name)
}

func (m *Model) viewCompleted() string {
	var b strings.Builder
	winnerID := m.match.WinnerID
	if winnerID == "" {
		winnerID = match.Winner(m.match)
	}
	switch winnerID {
	case "":
		b.WriteString(titleStyle.Render("Race over."))
	case m.selfID():
		b.WriteString(winStyle.Render("You won!"))
	default:
		b.WriteString(loseStyle.Render(fmt.Sprintf("%s won.", m.winnerName(winnerID))))
	}
	b.WriteString("\n\n")
	b.WriteString(resultLine(m.match.Player1Name, m.match.Player1Result))
	b.WriteString("\n")
	b.WriteString(resultLine(m.match.Player2Name, m.match.Player2Result))
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render("q: close"))
	return b.String()
}

func (m *Model) selfID() string {
	if m.coord.IsChallenger(m.match) {
		return m.match.Player1ID
	}
	return m.match.Player2ID
}

func (m *Model) winnerName(id string) string {
	if id == m.match.Player1ID {
		return m.match.Player1Name
	}
	return m.match.Player2Name
}

func (m *Model) ready() bool {
	if m.coord.IsChallenger(m.match) {
		return m.match.Player1Ready
	}
	return m.match.Player2Ready
}

func readyMark(ready bool) string {
	if ready {
		return "[ready]"
	}
	return "[....]"
}

func resultLine(name string, r *model.MatchResult) string {
	if r == nil {
		return fmt.Sprintf("%s: no result", name)
	}
	return fmt.Sprintf("%s: %d WPM · %d%% · %ds", name, r.WPM, r.Accuracy, r.ElapsedSeconds)
}

func countdownTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return countdownMsg{}
	})
}

func raceTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return raceTickMsg(t)
	})
}
