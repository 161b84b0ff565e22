package tui

import (
	"strings"
	"testing"
)

func TestStyleCellsCursorUnderline(t *testing.T) {
	cells := styleCells([]rune("ab"), []rune("a"), 1)
	if len(cells) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(cells))
	}
	if cells[0].text != correctStyle.Render("a") {
		t.Fatalf("expected correct style for typed cell")
	}
	if cells[1].text != cursorStyle.Render("b") {
		t.Fatalf("expected underlined cursor cell")
	}
}

func TestStyleCellsKeepsTargetOnMistype(t *testing.T) {
	cells := styleCells([]rune("ab"), []rune("ax"), 2)
	if cells[1].text != incorrectStyle.Render("b") {
		t.Fatalf("expected incorrect style showing the target rune")
	}
}

func TestStyleCellsWrongSpaceBullet(t *testing.T) {
	cells := styleCells([]rune("a b"), []rune("ax"), 2)
	if len(cells) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(cells))
	}
	if cells[1].text != incorrectStyle.Render("•") {
		t.Fatalf("expected red bullet for mistyped space")
	}
	if !cells[1].space {
		t.Fatalf("expected space flag preserved for wrapping")
	}
}

func TestStyleCellsCurrentWordHighlight(t *testing.T) {
	cells := styleCells([]rune("one two"), []rune("o"), 1)
	if cells[1].text != currentWordStyle.Render("n") {
		t.Fatalf("expected current-word style inside cursor word")
	}
	if cells[4].text != pendingStyle.Render("t") {
		t.Fatalf("expected pending style for the next word")
	}
}

func TestCurrentWordBounds(t *testing.T) {
	target := []rune("one two")
	if start, end := currentWordBounds(target, 1); start != 0 || end != 3 {
		t.Fatalf("cursor inside word: got (%d, %d)", start, end)
	}
	if start, end := currentWordBounds(target, 3); start != 4 || end != 7 {
		t.Fatalf("cursor on space picks next word: got (%d, %d)", start, end)
	}
	if start, end := currentWordBounds(target, -1); start != -1 || end != -1 {
		t.Fatalf("cursor outside text: got (%d, %d)", start, end)
	}
}

func TestWrapCellsBreaksAtSpaces(t *testing.T) {
	target := []rune("one two three")
	out := wrapCells(styleCells(target, nil, -1), 7)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
	if !strings.Contains(lines[1], "three") {
		t.Fatalf("expected three on its own line: %q", lines[1])
	}
}

func TestWrapCellsHardBreaksLongWord(t *testing.T) {
	target := []rune("abcdefgh")
	out := wrapCells(styleCells(target, nil, -1), 3)
	if got := len(strings.Split(out, "\n")); got != 3 {
		t.Fatalf("expected 3 lines for an 8-rune word at width 3, got %d", got)
	}
}
