// Package engine owns the lifecycle of a single typing attempt.
package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"keyduel/internal/feedback"
	"keyduel/internal/metrics"
	"keyduel/internal/model"
)

// Construction errors. The caller must not start an attempt after any
// of these.
var (
	ErrEmptyText        = errors.New("empty target text")
	ErrInvalidWordCount = errors.New("word count must be positive")
	ErrInvalidTimeLimit = errors.New("time limit must be positive")
)

// Config describes one typing attempt. Text is the resolved target:
// either generated for the level or supplied externally (match mode,
// practice runs).
type Config struct {
	Level            model.DifficultyLevel
	Text             string
	WordCount        int
	TimeLimitSeconds int
	Language         string
	MistakeMode      model.MistakeMode
	Feedback         feedback.Sink
}

// TimerMode selects how an attempt's clock behaves. The zero value is
// a stopwatch.
type TimerMode struct {
	limitSeconds int
}

// Stopwatch counts up with no forced end.
func Stopwatch() TimerMode {
	return TimerMode{}
}

// Countdown forces completion once limitSeconds have elapsed.
func Countdown(limitSeconds int) TimerMode {
	return TimerMode{limitSeconds: limitSeconds}
}

// Limit returns the countdown bound, or ok=false for a stopwatch.
func (m TimerMode) Limit() (seconds int, ok bool) {
	return m.limitSeconds, m.limitSeconds > 0
}

// Pace targets used to derive countdown limits for word-count levels.
const (
	paceSimple       = 40
	paceIntermediate = 40
	paceExpert       = 50
	paceMixed        = 45
)

// TimerModeFor resolves the timing policy for a level. Word-count
// levels other than simple get a countdown long enough to finish the
// text at the level's pace target; the time level runs for its fixed
// duration.
func TimerModeFor(level model.DifficultyLevel, wordCount, timeLimitSeconds int) (TimerMode, error) {
	switch level {
	case model.LevelSimple:
		return Stopwatch(), nil
	case model.LevelTime:
		if timeLimitSeconds <= 0 {
			return TimerMode{}, ErrInvalidTimeLimit
		}
		return Countdown(timeLimitSeconds), nil
	case model.LevelIntermediate, model.LevelExpert, model.LevelMixed:
		if wordCount <= 0 {
			return TimerMode{}, ErrInvalidWordCount
		}
		pace := paceIntermediate
		switch level {
		case model.LevelExpert:
			pace = paceExpert
		case model.LevelMixed:
			pace = paceMixed
		}
		limit := (wordCount*60 + pace - 1) / pace
		return Countdown(limit), nil
	default:
		return TimerMode{}, fmt.Errorf("unknown level %q", level)
	}
}

// Engine is the state machine for one attempt: pending until the first
// keystroke, active while typing, completed forever after. Reset means
// constructing a new Engine.
type Engine struct {
	cfg   Config
	mode  TimerMode
	sink  feedback.Sink
	runes []rune

	status    model.TestStatus
	startedAt time.Time

	input           []rune
	errorSet        map[int]struct{}
	wordsWithErrors map[int]struct{}
	correct         int
	incorrect       int
	keystrokes      []model.Keystroke
	wpmHistory      []model.WpmSample
	errorTimestamps []int

	mistakeFailed bool
	timedOut      bool
	result        *model.TestResult
}

// New validates the config and builds a pending attempt.
func New(cfg Config) (*Engine, error) {
	if cfg.Text == "" {
		return nil, fmt.Errorf("engine config: %w", ErrEmptyText)
	}
	if cfg.WordCount < 0 {
		return nil, fmt.Errorf("engine config: %w", ErrInvalidWordCount)
	}
	mode, err := TimerModeFor(cfg.Level, cfg.WordCount, cfg.TimeLimitSeconds)
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if cfg.MistakeMode == "" {
		cfg.MistakeMode = model.ModeDefault
	}
	sink := cfg.Feedback
	if sink == nil {
		sink = feedback.Silent{}
	}
	return &Engine{
		cfg:             cfg,
		mode:            mode,
		sink:            sink,
		runes:           []rune(cfg.Text),
		status:          model.StatusPending,
		errorSet:        map[int]struct{}{},
		wordsWithErrors: map[int]struct{}{},
	}, nil
}

// Status returns the current lifecycle state.
func (e *Engine) Status() model.TestStatus {
	return e.status
}

// TimerMode returns the resolved timing policy.
func (e *Engine) TimerMode() TimerMode {
	return e.mode
}

// TargetText returns the text being typed against.
func (e *Engine) TargetText() string {
	return e.cfg.Text
}

// MistakeMode returns the configured mistake policy.
func (e *Engine) MistakeMode() model.MistakeMode {
	return e.cfg.MistakeMode
}

// Config returns the validated configuration, so a caller can build a
// fresh engine for a restart.
func (e *Engine) Config() Config {
	return e.cfg
}

// UserInput returns the input typed so far.
func (e *Engine) UserInput() string {
	return string(e.input)
}

// ErrorPositions returns the sorted positions where input mismatches
// the target.
func (e *Engine) ErrorPositions() []int {
	return sortedKeys(e.errorSet)
}

// HasErrorAt reports whether position pos currently holds a mismatch.
func (e *Engine) HasErrorAt(pos int) bool {
	_, ok := e.errorSet[pos]
	return ok
}

// Counts returns the cumulative correct and incorrect keystroke counts.
func (e *Engine) Counts() (correct, incorrect int) {
	return e.correct, e.incorrect
}

// Keystrokes returns a copy of the recorded log.
func (e *Engine) Keystrokes() []model.Keystroke {
	out := make([]model.Keystroke, len(e.keystrokes))
	copy(out, e.keystrokes)
	return out
}

// Elapsed returns time since the first keystroke, or zero while
// pending.
func (e *Engine) Elapsed(now time.Time) time.Duration {
	if e.status == model.StatusPending {
		return 0
	}
	return now.Sub(e.startedAt)
}

// Remaining returns countdown seconds left, or ok=false for a
// stopwatch.
func (e *Engine) Remaining(now time.Time) (seconds int, ok bool) {
	limit, ok := e.mode.Limit()
	if !ok {
		return 0, false
	}
	left := limit - int(e.Elapsed(now).Seconds())
	if left < 0 {
		left = 0
	}
	return left, true
}

// Result returns the finalized record, or ok=false before completion.
func (e *Engine) Result() (model.TestResult, bool) {
	if e.result == nil {
		return model.TestResult{}, false
	}
	return *e.result, true
}

// ApplyKeystroke feeds one raw key event into the attempt. Events
// arriving after completion are ignored. Backspace removes the last
// input character; a single printable character is appended and
// classified against the target. Every event lands in the keystroke
// log.
func (e *Engine) ApplyKeystroke(key string, at time.Time) {
	if e.status == model.StatusCompleted {
		return
	}
	if e.status == model.StatusPending {
		e.status = model.StatusActive
		e.startedAt = at
	}
	elapsed := at.Sub(e.startedAt).Milliseconds()

	switch {
	case key == model.KeyBackspace:
		if len(e.input) > 0 {
			pos := len(e.input) - 1
			e.input = e.input[:pos]
			delete(e.errorSet, pos)
		}
	case isPrintable(key):
		pos := len(e.input)
		e.input = append(e.input, []rune(key)[0])
		if pos < len(e.runes) && e.input[pos] == e.runes[pos] {
			e.correct++
			e.sink.Play(feedback.Correct)
		} else {
			e.incorrect++
			e.errorSet[pos] = struct{}{}
			e.wordsWithErrors[wordIndexAt(e.runes, pos)] = struct{}{}
			e.errorTimestamps = append(e.errorTimestamps, int(elapsed/1000))
			e.sink.Play(feedback.Incorrect)
		}
	}
	e.keystrokes = append(e.keystrokes, model.Keystroke{Key: key, ElapsedMillis: elapsed})

	if e.mistakeLimitExceeded() {
		e.mistakeFailed = true
		e.complete(at)
		return
	}
	if e.cfg.Level != model.LevelTime && len(e.input) >= len(e.runes) {
		e.complete(at)
	}
}

// Tick records a per-second speed sample and enforces the countdown.
// Deadlines are checked against wall-clock deltas so a late tick does
// not drift.
func (e *Engine) Tick(now time.Time) {
	if e.status != model.StatusActive {
		return
	}
	elapsed := now.Sub(e.startedAt).Seconds()
	e.wpmHistory = append(e.wpmHistory, model.WpmSample{
		ElapsedSeconds:   int(elapsed),
		WPM:              metrics.WPM(e.correct, elapsed),
		RawWPM:           metrics.RawWPM(e.correct+e.incorrect, elapsed),
		CumulativeErrors: e.incorrect,
	})
	if limit, ok := e.mode.Limit(); ok && elapsed >= float64(limit) {
		e.timedOut = true
		e.complete(now)
	}
}

func (e *Engine) mistakeLimitExceeded() bool {
	switch e.cfg.MistakeMode {
	case model.ModePro:
		return e.incorrect > 5
	case model.ModeGod:
		return e.incorrect > 0
	default:
		return false
	}
}

func (e *Engine) complete(at time.Time) {
	e.status = model.StatusCompleted
	elapsed := at.Sub(e.startedAt).Seconds()
	seconds := int(math.Round(elapsed))

	var wordCount *int
	if e.cfg.Level != model.LevelTime && e.cfg.WordCount > 0 {
		wc := e.cfg.WordCount
		wordCount = &wc
	}

	e.result = &model.TestResult{
		WPM:            metrics.WPM(e.correct, elapsed),
		RawWPM:         metrics.RawWPM(e.correct+e.incorrect, elapsed),
		Accuracy:       metrics.Accuracy(e.correct, e.incorrect),
		Consistency:    metrics.Consistency(e.wpmHistory),
		ElapsedSeconds: seconds,
		Level:          e.cfg.Level,
		Language:       e.cfg.Language,
		WordCount:      wordCount,
		Passed:         e.passed(),
		CharacterStats: model.CharacterStats{
			Correct:   e.correct,
			Incorrect: e.incorrect,
			Total:     e.correct + e.incorrect,
		},
		WpmHistory:      e.wpmHistory,
		ErrorTimestamps: e.errorTimestamps,
		TargetText:      e.cfg.Text,
		UserInput:       string(e.input),
		Keystrokes:      e.keystrokes,
		WordsWithErrors: sortedKeys(e.wordsWithErrors),
		StartedAt:       e.startedAt,
	}
}

func (e *Engine) passed() bool {
	if e.mistakeFailed {
		return false
	}
	if e.cfg.Level == model.LevelTime {
		return e.correct+e.incorrect > 0
	}
	return len(e.input) >= len(e.runes) && !e.timedOut
}

func isPrintable(key string) bool {
	runes := []rune(key)
	if len(runes) != 1 {
		return false
	}
	r := runes[0]
	return r == ' ' || (r > 0x1F && r != 0x7F)
}

func wordIndexAt(target []rune, pos int) int {
	if pos > len(target) {
		pos = len(target)
	}
	index := 0
	for i := 0; i < pos; i++ {
		if target[i] == ' ' {
			index++
		}
	}
	return index
}

func sortedKeys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
