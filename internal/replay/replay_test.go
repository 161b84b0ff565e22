package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyduel/internal/engine"
	"keyduel/internal/model"
)

func logFrom(keys []string, spacingMillis int64) []model.Keystroke {
	log := make([]model.Keystroke, len(keys))
	for i, k := range keys {
		log[i] = model.Keystroke{Key: k, ElapsedMillis: int64(i) * spacingMillis}
	}
	return log
}

func TestStateAtMatchesLiveEngine(t *testing.T) {
	target := "the cat sat"
	keys := []string{"t", "h", "e", " ", "c", "o", model.KeyBackspace, "a", "t", " ", "s", "a", "t"}
	log := logFrom(keys, 100)

	e, err := engine.New(engine.Config{
		Level:    model.LevelSimple,
		Text:     target,
		Language: "en",
	})
	require.NoError(t, err)

	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	for n, ks := range log {
		e.ApplyKeystroke(ks.Key, start.Add(time.Duration(ks.ElapsedMillis)*time.Millisecond))
		state := StateAt(log, target, n+1)
		assert.Equal(t, e.UserInput(), state.UserInput, "input at position %d", n+1)
		assert.Equal(t, e.ErrorPositions(), state.ErrorPositions, "errors at position %d", n+1)
	}
}

func TestStateAtBounds(t *testing.T) {
	log := logFrom([]string{"a", "b"}, 50)
	assert.Equal(t, "", StateAt(log, "ab", 0).UserInput)
	assert.Equal(t, "ab", StateAt(log, "ab", 99).UserInput, "index past the log clamps to the end")
}

func TestStateAtBackspaceOnEmpty(t *testing.T) {
	log := logFrom([]string{model.KeyBackspace, "a"}, 50)
	state := StateAt(log, "a", 2)
	assert.Equal(t, "a", state.UserInput)
	assert.Empty(t, state.ErrorPositions)
}

func TestPlayerDelays(t *testing.T) {
	log := []model.Keystroke{
		{Key: "a", ElapsedMillis: 0},
		{Key: "b", ElapsedMillis: 5},
		{Key: "c", ElapsedMillis: 305},
	}
	p := NewPlayer("abc", log)

	delay, done := p.Advance()
	require.False(t, done)
	assert.Equal(t, MinDelay, delay, "5ms gap floors to the minimum")

	delay, done = p.Advance()
	require.False(t, done)
	assert.Equal(t, 300*time.Millisecond, delay)

	_, done = p.Advance()
	assert.True(t, done)
	assert.True(t, p.Finished())
	assert.Equal(t, "abc", p.State().UserInput)

	_, done = p.Advance()
	assert.True(t, done, "advancing past the end stays done")
}

func TestPlayerPauseAndReset(t *testing.T) {
	log := logFrom([]string{"a", "b", "c"}, 100)
	p := NewPlayer("abc", log)

	p.Advance()
	p.Pause()
	index := p.Index()
	p.Advance()
	assert.Equal(t, index, p.Index(), "paused player holds position")

	p.Resume()
	p.Advance()
	assert.Equal(t, index+1, p.Index())

	p.Reset()
	assert.Equal(t, 0, p.Index())
	assert.False(t, p.Paused())
	assert.Equal(t, "", p.State().UserInput)
}
