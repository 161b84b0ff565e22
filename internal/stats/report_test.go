package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"keyduel/internal/model"
	"keyduel/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "keyduel.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		wc := 15
		r := model.TestResult{
			WPM:             50 + i,
			RawWPM:          55 + i,
			Accuracy:        95,
			ElapsedSeconds:  30,
			Level:           model.LevelSimple,
			Language:        "en",
			WordCount:       &wc,
			Passed:          true,
			WpmHistory:      []model.WpmSample{},
			ErrorTimestamps: []int{},
			TargetText:      "the cat sat",
			UserInput:       "the cot sat",
			Keystrokes:      []model.Keystroke{},
			WordsWithErrors: []int{1},
			StartedAt:       base.Add(time.Duration(i) * time.Hour),
		}
		if _, err := st.InsertResult(ctx, r); err != nil {
			t.Fatalf("insert result: %v", err)
		}
	}
	if err := st.AddLeaderboardEntry(ctx, model.LeaderboardEntry{
		Name: "ada", WPM: 52, Accuracy: 95, Level: model.LevelSimple, Language: "en", CreatedAt: base,
	}); err != nil {
		t.Fatalf("add leaderboard entry: %v", err)
	}

	report, err := BuildReport(ctx, st, ReportConfig{
		Filter:          model.HistoryFilter{Last: 2},
		LeaderboardSize: 10,
		MissedWindow:    10,
		MissedTop:       5,
	})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(report.History))
	}
	if len(report.Leaderboard) != 1 {
		t.Fatalf("expected 1 leaderboard entry, got %d", len(report.Leaderboard))
	}
	if len(report.MissedWords) != 1 || report.MissedWords[0].Word != "cat" || report.MissedWords[0].Count != 3 {
		t.Fatalf("unexpected missed words: %+v", report.MissedWords)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	entries := []model.HistoryEntry{
		{WPM: 50, Accuracy: 90},
		{WPM: 70, Accuracy: 100},
	}
	if err := RenderSummary(&buf, entries); err != nil {
		t.Fatalf("render summary: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Tests: 2", "Avg WPM: 60.0", "Best WPM: 70", "Avg Accuracy: 95.0%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRankMissedWords(t *testing.T) {
	missed := map[string]int{"cat": 3, "sat": 1, "rhythm": 3, "dog": 2}
	ranked := RankMissedWords(missed, 3)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(ranked))
	}
	if ranked[0].Word != "cat" || ranked[1].Word != "rhythm" || ranked[2].Word != "dog" {
		t.Fatalf("unexpected order: %+v", ranked)
	}
}
