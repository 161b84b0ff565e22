package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyduel/internal/model"
)

var testStart = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func typeText(t *testing.T, e *Engine, text string, spacing time.Duration) {
	t.Helper()
	at := testStart
	for _, r := range text {
		e.ApplyKeystroke(string(r), at)
		at = at.Add(spacing)
	}
}

func newSimple(t *testing.T, text string, mode model.MistakeMode) *Engine {
	t.Helper()
	e, err := New(Config{
		Level:       model.LevelSimple,
		Text:        text,
		Language:    "en",
		MistakeMode: mode,
	})
	require.NoError(t, err)
	return e
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Level: model.LevelSimple, Text: ""})
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = New(Config{Level: model.LevelTime, Text: "x"})
	assert.ErrorIs(t, err, ErrInvalidTimeLimit)

	_, err = New(Config{Level: model.LevelExpert, Text: "x"})
	assert.ErrorIs(t, err, ErrInvalidWordCount)
}

func TestTimerModeFor(t *testing.T) {
	mode, err := TimerModeFor(model.LevelSimple, 15, 0)
	require.NoError(t, err)
	_, ok := mode.Limit()
	assert.False(t, ok, "simple is a stopwatch")

	// 20 words at 40 wpm: exactly 30s.
	mode, err = TimerModeFor(model.LevelIntermediate, 20, 0)
	require.NoError(t, err)
	limit, ok := mode.Limit()
	require.True(t, ok)
	assert.Equal(t, 30, limit)

	// 20 words at 50 wpm: 24s.
	mode, err = TimerModeFor(model.LevelExpert, 20, 0)
	require.NoError(t, err)
	limit, _ = mode.Limit()
	assert.Equal(t, 24, limit)

	// 20 words at 45 wpm: 26.66 rounds up to 27.
	mode, err = TimerModeFor(model.LevelMixed, 20, 0)
	require.NoError(t, err)
	limit, _ = mode.Limit()
	assert.Equal(t, 27, limit)

	mode, err = TimerModeFor(model.LevelTime, 0, 30)
	require.NoError(t, err)
	limit, _ = mode.Limit()
	assert.Equal(t, 30, limit)
}

func TestCleanRunCompletes(t *testing.T) {
	e := newSimple(t, "the cat sat", model.ModeDefault)
	assert.Equal(t, model.StatusPending, e.Status())

	typeText(t, e, "the cat sat", 100*time.Millisecond)

	require.Equal(t, model.StatusCompleted, e.Status())
	result, ok := e.Result()
	require.True(t, ok)
	assert.True(t, result.Passed)
	assert.Equal(t, 100, result.Accuracy)
	assert.Equal(t, 11, result.CharacterStats.Correct)
	assert.Equal(t, 0, result.CharacterStats.Incorrect)
	assert.Equal(t, "the cat sat", result.UserInput)
	assert.Len(t, result.Keystrokes, 11)
	assert.Empty(t, result.WordsWithErrors)
}

func TestGodModeFailsOnFirstMistake(t *testing.T) {
	e := newSimple(t, "the cat sat", model.ModeGod)
	at := testStart
	for _, r := range "the d" {
		e.ApplyKeystroke(string(r), at)
		at = at.Add(100 * time.Millisecond)
	}

	require.Equal(t, model.StatusCompleted, e.Status())
	result, ok := e.Result()
	require.True(t, ok)
	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.CharacterStats.Incorrect)
	assert.Equal(t, "the d", result.UserInput)
}

func TestProModeSixthMistakeFails(t *testing.T) {
	e := newSimple(t, "aaaaaaaaaa", model.ModePro)
	at := testStart
	for i := 0; i < 5; i++ {
		e.ApplyKeystroke("b", at)
		at = at.Add(time.Millisecond)
	}
	assert.Equal(t, model.StatusActive, e.Status(), "five mistakes stay within the limit")

	e.ApplyKeystroke("b", at)
	require.Equal(t, model.StatusCompleted, e.Status())
	result, _ := e.Result()
	assert.False(t, result.Passed)
	assert.Equal(t, 6, result.CharacterStats.Incorrect)
}

func TestBackspaceRestoresState(t *testing.T) {
	e := newSimple(t, "abc", model.ModeDefault)
	e.ApplyKeystroke("a", testStart)
	input := e.UserInput()
	errs := e.ErrorPositions()

	e.ApplyKeystroke("x", testStart.Add(time.Millisecond))
	assert.Equal(t, []int{1}, e.ErrorPositions())

	e.ApplyKeystroke(model.KeyBackspace, testStart.Add(2*time.Millisecond))
	assert.Equal(t, input, e.UserInput())
	assert.Equal(t, errs, e.ErrorPositions())
	assert.Len(t, e.Keystrokes(), 3, "backspace is still logged")
}

func TestBackspaceOnEmptyInput(t *testing.T) {
	e := newSimple(t, "abc", model.ModeDefault)
	e.ApplyKeystroke(model.KeyBackspace, testStart)
	assert.Equal(t, "", e.UserInput())
	assert.Equal(t, model.StatusActive, e.Status())
	assert.Len(t, e.Keystrokes(), 1)
}

func TestTimeLevelEndsOnCountdown(t *testing.T) {
	e, err := New(Config{
		Level:            model.LevelTime,
		Text:             "one two three four five six seven eight nine ten",
		TimeLimitSeconds: 15,
		Language:         "en",
	})
	require.NoError(t, err)

	e.ApplyKeystroke("o", testStart)
	e.ApplyKeystroke("n", testStart.Add(200*time.Millisecond))
	e.ApplyKeystroke("e", testStart.Add(400*time.Millisecond))

	for s := 1; s <= 14; s++ {
		e.Tick(testStart.Add(time.Duration(s) * time.Second))
		assert.Equal(t, model.StatusActive, e.Status())
	}
	e.Tick(testStart.Add(15 * time.Second))

	require.Equal(t, model.StatusCompleted, e.Status())
	result, ok := e.Result()
	require.True(t, ok)
	assert.True(t, result.Passed, "timed run passes without mistake-policy violation")
	assert.Equal(t, 15, result.ElapsedSeconds)
	assert.Len(t, result.WpmHistory, 15)
}

func TestTimeLevelFailsWithoutInput(t *testing.T) {
	e, err := New(Config{
		Level:            model.LevelTime,
		Text:             "one two three",
		TimeLimitSeconds: 15,
	})
	require.NoError(t, err)

	// Backspaces only: the attempt starts but no character is typed.
	e.ApplyKeystroke(model.KeyBackspace, testStart)
	e.Tick(testStart.Add(15 * time.Second))

	result, ok := e.Result()
	require.True(t, ok)
	assert.False(t, result.Passed)
}

func TestCountdownExpiryFailsWordRun(t *testing.T) {
	e, err := New(Config{
		Level:     model.LevelIntermediate,
		Text:      "alpha beta gamma",
		WordCount: 3,
	})
	require.NoError(t, err)
	limit, ok := e.TimerMode().Limit()
	require.True(t, ok)

	e.ApplyKeystroke("a", testStart)
	e.Tick(testStart.Add(time.Duration(limit) * time.Second))

	result, ok := e.Result()
	require.True(t, ok)
	assert.False(t, result.Passed, "running out of time before full length fails")
}

func TestLateEventsIgnored(t *testing.T) {
	e := newSimple(t, "ab", model.ModeDefault)
	typeText(t, e, "ab", 50*time.Millisecond)
	require.Equal(t, model.StatusCompleted, e.Status())
	before, _ := e.Result()

	e.ApplyKeystroke("c", testStart.Add(time.Second))
	e.Tick(testStart.Add(2 * time.Second))

	after, _ := e.Result()
	assert.Equal(t, before, after)
	assert.Len(t, e.Keystrokes(), 2)
}

func TestErrorsTrackWordIndices(t *testing.T) {
	e := newSimple(t, "the cat sat", model.ModeDefault)
	typeText(t, e, "the cop sat", 10*time.Millisecond)

	result, ok := e.Result()
	require.True(t, ok)
	assert.True(t, result.Passed, "default mode tolerates mistakes")
	assert.Equal(t, []int{1}, result.WordsWithErrors)
	assert.Equal(t, 2, result.CharacterStats.Incorrect)
	assert.Equal(t, 9, result.CharacterStats.Correct)
}
