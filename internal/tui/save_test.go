package tui

import (
	"context"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"keyduel/internal/engine"
	"keyduel/internal/identity"
	"keyduel/internal/model"
	"keyduel/internal/store"
)

func newSavingModel(t *testing.T) (*Model, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "keyduel.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	eng, err := engine.New(engine.Config{
		Level:    model.LevelSimple,
		Text:     "the cat sat",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return NewModel(eng, &Saver{Store: st, User: identity.User{ID: "u1", Anonymous: true}}), st
}

func TestFirstKeystrokeRecordsStart(t *testing.T) {
	m, st := newSavingModel(t)
	ctx := context.Background()

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})

	p, err := st.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.TestsStarted != 1 {
		t.Fatalf("expected one started attempt, got %d", p.TestsStarted)
	}
}

func TestCompletedAttemptCountsStartAndFinish(t *testing.T) {
	m, st := newSavingModel(t)
	ctx := context.Background()

	for _, r := range "the cat sat" {
		if r == ' ' {
			m.Update(tea.KeyMsg{Type: tea.KeySpace})
			continue
		}
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	if _, ok := m.Outcome(); !ok {
		t.Fatal("expected a saved outcome after typing the full text")
	}
	p, err := st.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.TestsStarted != 1 || p.TestsCompleted != 1 {
		t.Fatalf("expected started=1 completed=1, got %+v", p)
	}
}
