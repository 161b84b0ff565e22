package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"keyduel/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "keyduel.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return s
}

func sampleResult(startedAt time.Time) model.TestResult {
	wc := 15
	return model.TestResult{
		WPM:            62,
		RawWPM:         66,
		Accuracy:       97,
		Consistency:    84,
		ElapsedSeconds: 30,
		Level:          model.LevelSimple,
		Language:       "en",
		WordCount:      &wc,
		Passed:         true,
		CharacterStats: model.CharacterStats{Correct: 80, Incorrect: 3, Total: 83},
		WpmHistory: []model.WpmSample{
			{ElapsedSeconds: 1, WPM: 60, RawWPM: 62},
			{ElapsedSeconds: 2, WPM: 62, RawWPM: 66, CumulativeErrors: 1},
		},
		ErrorTimestamps: []int{2, 11, 20},
		TargetText:      "the cat sat on the mat",
		UserInput:       "the cot sat on the mat",
		Keystrokes: []model.Keystroke{
			{Key: "t", ElapsedMillis: 0},
			{Key: "h", ElapsedMillis: 120},
		},
		WordsWithErrors: []int{1},
		StartedAt:       startedAt,
	}
}

func TestInsertAndLoadResult(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	startedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	id, err := s.InsertResult(ctx, sampleResult(startedAt))
	if err != nil {
		t.Fatalf("insert result: %v", err)
	}

	got, err := s.LoadResult(ctx, id)
	if err != nil {
		t.Fatalf("load result: %v", err)
	}
	if got.WPM != 62 || got.Accuracy != 97 || !got.Passed {
		t.Fatalf("unexpected summary: %+v", got)
	}
	if got.TargetText != "the cat sat on the mat" {
		t.Fatalf("unexpected target text %q", got.TargetText)
	}
	if len(got.Keystrokes) != 2 || got.Keystrokes[1].ElapsedMillis != 120 {
		t.Fatalf("unexpected keystrokes: %+v", got.Keystrokes)
	}
	if got.WordCount == nil || *got.WordCount != 15 {
		t.Fatalf("unexpected word count: %v", got.WordCount)
	}
	if !got.StartedAt.Equal(startedAt) {
		t.Fatalf("unexpected start time %v", got.StartedAt)
	}
}

func TestListHistoryFilters(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		r := sampleResult(base.Add(time.Duration(i) * 24 * time.Hour))
		if i == 1 {
			r.Level = model.LevelExpert
		}
		if _, err := s.InsertResult(ctx, r); err != nil {
			t.Fatalf("insert result: %v", err)
		}
	}

	all, err := s.ListHistory(ctx, model.HistoryFilter{})
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if !all[0].CreatedAt.Before(all[2].CreatedAt) {
		t.Fatal("expected oldest-first ordering")
	}

	expert, err := s.ListHistory(ctx, model.HistoryFilter{Level: model.LevelExpert})
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(expert) != 1 {
		t.Fatalf("expected 1 expert entry, got %d", len(expert))
	}

	lastTwo, err := s.ListHistory(ctx, model.HistoryFilter{Last: 2})
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(lastTwo) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(lastTwo))
	}
	if !lastTwo[1].CreatedAt.Equal(all[2].CreatedAt) {
		t.Fatal("expected the most recent entries")
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	now := time.Now().UTC()

	entries := []model.LeaderboardEntry{
		{Name: "ada", WPM: 80, Accuracy: 95, Level: model.LevelSimple, Language: "en", CreatedAt: now},
		{Name: "grace", WPM: 80, Accuracy: 97, Level: model.LevelSimple, Language: "en", CreatedAt: now},
		{Name: "erm", WPM: 60, Accuracy: 100, Level: model.LevelSimple, Language: "en", CreatedAt: now},
	}
	for _, e := range entries {
		if err := s.AddLeaderboardEntry(ctx, e); err != nil {
			t.Fatalf("add entry: %v", err)
		}
	}

	top, err := s.TopLeaderboard(ctx, 2)
	if err != nil {
		t.Fatalf("top leaderboard: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(top))
	}
	if top[0].Name != "grace" {
		t.Fatalf("expected accuracy tiebreak to favor grace, got %s", top[0].Name)
	}
}

func TestProfileStreak(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	p, err := s.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected a generated user id")
	}

	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if _, err := s.RecordCompletion(ctx, sampleResult(day1)); err != nil {
		t.Fatalf("record completion: %v", err)
	}
	// Second test the same day keeps the streak at 1.
	if _, err := s.RecordCompletion(ctx, sampleResult(day1.Add(2*time.Hour))); err != nil {
		t.Fatalf("record completion: %v", err)
	}
	p, _ = s.Profile(ctx)
	if p.CurrentStreak != 1 || p.TestsCompleted != 2 {
		t.Fatalf("unexpected profile after day1: %+v", p)
	}

	day2 := day1.Add(24 * time.Hour)
	if _, err := s.RecordCompletion(ctx, sampleResult(day2)); err != nil {
		t.Fatalf("record completion: %v", err)
	}
	p, _ = s.Profile(ctx)
	if p.CurrentStreak != 2 || p.LongestStreak != 2 {
		t.Fatalf("expected streak 2, got %+v", p)
	}

	// A gap restarts the streak but keeps the longest.
	day5 := day1.Add(4 * 24 * time.Hour)
	if _, err := s.RecordCompletion(ctx, sampleResult(day5)); err != nil {
		t.Fatalf("record completion: %v", err)
	}
	p, _ = s.Profile(ctx)
	if p.CurrentStreak != 1 || p.LongestStreak != 2 {
		t.Fatalf("expected reset streak, got %+v", p)
	}
}

func TestRecordStartCountsAbandonedRuns(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	// Two starts, one finish: the abandoned run still counts.
	if err := s.RecordStart(ctx); err != nil {
		t.Fatalf("record start: %v", err)
	}
	if err := s.RecordStart(ctx); err != nil {
		t.Fatalf("record start: %v", err)
	}
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if _, err := s.RecordCompletion(ctx, sampleResult(day)); err != nil {
		t.Fatalf("record completion: %v", err)
	}

	p, err := s.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.TestsStarted != 2 || p.TestsCompleted != 1 {
		t.Fatalf("expected started=2 completed=1, got %+v", p)
	}
}

func TestPersonalBests(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	improved, err := s.CheckPersonalBest(ctx, "words", 15, 60, 95)
	if err != nil {
		t.Fatalf("check personal best: %v", err)
	}
	if !improved {
		t.Fatal("first score is always a best")
	}

	improved, _ = s.CheckPersonalBest(ctx, "words", 15, 55, 100)
	if improved {
		t.Fatal("lower wpm is not a best")
	}

	improved, _ = s.CheckPersonalBest(ctx, "words", 15, 60, 97)
	if !improved {
		t.Fatal("equal wpm with higher accuracy is a best")
	}

	pb, ok, err := s.PersonalBest(ctx, "words", 15)
	if err != nil || !ok {
		t.Fatalf("personal best: ok=%v err=%v", ok, err)
	}
	if pb.WPM != 60 || pb.Accuracy != 97 {
		t.Fatalf("unexpected best: %+v", pb)
	}
}

func TestAchievementsPersist(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	first := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if err := s.UnlockAchievements(ctx, []string{"speed-60", "tests-10"}, first); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	// Re-unlocking keeps the original timestamp.
	if err := s.UnlockAchievements(ctx, []string{"speed-60"}, first.Add(time.Hour)); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	unlocked, err := s.UnlockedAchievements(ctx)
	if err != nil {
		t.Fatalf("unlocked: %v", err)
	}
	if len(unlocked) != 2 {
		t.Fatalf("expected 2 achievements, got %d", len(unlocked))
	}
	if !unlocked["speed-60"].Equal(first) {
		t.Fatalf("expected original unlock time, got %v", unlocked["speed-60"])
	}
}

func TestWrongWords(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	r := sampleResult(base)
	r.TargetText = "the cat sat"
	r.WordsWithErrors = []int{1, 2}
	if _, err := s.InsertResult(ctx, r); err != nil {
		t.Fatalf("insert: %v", err)
	}

	r2 := sampleResult(base.Add(time.Hour))
	r2.TargetText = "a cat ran"
	r2.WordsWithErrors = []int{1}
	if _, err := s.InsertResult(ctx, r2); err != nil {
		t.Fatalf("insert: %v", err)
	}

	missed, err := s.WrongWords(ctx, 10)
	if err != nil {
		t.Fatalf("wrong words: %v", err)
	}
	if missed["cat"] != 2 || missed["sat"] != 1 {
		t.Fatalf("unexpected aggregation: %v", missed)
	}
}
