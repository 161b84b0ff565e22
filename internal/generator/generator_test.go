package generator

import (
	"strings"
	"testing"

	"keyduel/internal/model"
)

func TestGenerateWordCount(t *testing.T) {
	g := NewSeeded(1)
	for _, level := range []model.DifficultyLevel{
		model.LevelSimple, model.LevelIntermediate, model.LevelExpert, model.LevelMixed, model.LevelTime,
	} {
		text, err := g.Generate(level, "en", 25)
		if err != nil {
			t.Fatalf("%s: %v", level, err)
		}
		if text == "" {
			t.Fatalf("%s: empty text", level)
		}
		if got := len(strings.Fields(text)); got != 25 {
			t.Fatalf("%s: expected 25 words, got %d", level, got)
		}
	}
}

func TestGenerateRejectsZeroCount(t *testing.T) {
	g := NewSeeded(1)
	if _, err := g.Generate(model.LevelSimple, "en", 0); err == nil {
		t.Fatal("expected error for zero word count")
	}
}

func TestExpertUsesTrickyWords(t *testing.T) {
	g := NewSeeded(2)
	text, err := g.Generate(model.LevelExpert, "en", 40)
	if err != nil {
		t.Fatal(err)
	}
	// Common filler like "the" never appears in the curated list.
	for _, w := range strings.Fields(text) {
		if w == "the" || w == "and" {
			t.Fatalf("expert text contains common word %q", w)
		}
	}
}

func TestTimedTextIsOverLong(t *testing.T) {
	g := NewSeeded(3)
	text, err := g.TimedText("en", 60)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(strings.Fields(text)); got < 240 {
		t.Fatalf("expected at least 240 words for a 60s test, got %d", got)
	}

	short, err := g.TimedText("en", 15)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(strings.Fields(short)); got < MinTimedWords {
		t.Fatalf("expected the %d-word floor, got %d", MinTimedWords, got)
	}
}

func TestPracticeTextFavorsMissedWords(t *testing.T) {
	g := NewSeeded(4)
	missed := map[string]int{"rhythm": 0, "water": 5, "system": 5}
	text, err := g.PracticeText("en", 200, missed, 50)
	if err != nil {
		t.Fatal(err)
	}
	hits := 0
	for _, w := range strings.Fields(text) {
		if w == "water" || w == "system" {
			hits++
		}
	}
	if hits < 20 {
		t.Fatalf("expected missed words to dominate, got %d hits in 200 words", hits)
	}
}

func TestSetPoolOverridesCommonWords(t *testing.T) {
	g := NewSeeded(7)
	g.SetPool("en", []string{"zebra"})

	text, err := g.Generate(model.LevelSimple, "en", 5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, w := range strings.Fields(text) {
		if w != "zebra" {
			t.Fatalf("expected override pool only, got %q", w)
		}
	}

	g.SetPool("en", nil)
	text, err = g.Generate(model.LevelSimple, "en", 20)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	seen := map[string]bool{}
	for _, w := range strings.Fields(text) {
		seen[w] = true
	}
	if len(seen) < 2 {
		t.Fatal("expected embedded pool after clearing override")
	}
}
