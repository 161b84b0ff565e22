package tui

import (
	"context"
	"fmt"
	"time"

	"keyduel/internal/achievements"
	"keyduel/internal/identity"
	"keyduel/internal/model"
	"keyduel/internal/store"
)

// Outcome is everything worth showing after an attempt is persisted.
type Outcome struct {
	ResultID        int64
	Result          model.TestResult
	NewPersonalBest bool
	Unlocked        []achievements.Achievement
	OnLeaderboard   bool
}

// Saver persists a finished attempt and derives its side effects.
type Saver struct {
	Store *store.Store
	User  identity.User
}

// RecordStart notes that an attempt left the pending state.
func (s *Saver) RecordStart() error {
	return s.Store.RecordStart(context.Background())
}

// Save records the result, updates the profile, checks personal bests
// and achievements, and posts passed runs to the leaderboard for named
// users.
func (s *Saver) Save(r model.TestResult) (Outcome, error) {
	ctx := context.Background()
	out := Outcome{Result: r}

	id, err := s.Store.InsertResult(ctx, r)
	if err != nil {
		return out, fmt.Errorf("save result: %w", err)
	}
	out.ResultID = id

	profile, err := s.Store.RecordCompletion(ctx, r)
	if err != nil {
		return out, fmt.Errorf("update profile: %w", err)
	}

	mode, value := bestBucket(r)
	improved, err := s.Store.CheckPersonalBest(ctx, mode, value, r.WPM, r.Accuracy)
	if err != nil {
		return out, fmt.Errorf("check personal best: %w", err)
	}
	out.NewPersonalBest = improved

	if r.Passed && !s.User.Anonymous {
		entry := model.LeaderboardEntry{
			Name:      s.User.DisplayName,
			WPM:       r.WPM,
			Accuracy:  r.Accuracy,
			Level:     r.Level,
			Language:  r.Language,
			WordCount: r.WordCount,
			CreatedAt: r.StartedAt,
		}
		if r.Level == model.LevelTime {
			seconds := r.ElapsedSeconds
			entry.Seconds = &seconds
		}
		if err := s.Store.AddLeaderboardEntry(ctx, entry); err != nil {
			return out, fmt.Errorf("post leaderboard: %w", err)
		}
		out.OnLeaderboard = true
	}

	history, err := s.Store.ListHistory(ctx, model.HistoryFilter{})
	if err != nil {
		return out, fmt.Errorf("load history: %w", err)
	}
	unlockedAt, err := s.Store.UnlockedAchievements(ctx)
	if err != nil {
		return out, fmt.Errorf("load achievements: %w", err)
	}
	unlocked := make(map[string]bool, len(unlockedAt))
	for id := range unlockedAt {
		unlocked[id] = true
	}
	newly := achievements.NewlyMet(history, profile, unlocked)
	if len(newly) > 0 {
		ids := make([]string, len(newly))
		for i, a := range newly {
			ids[i] = a.ID
		}
		if err := s.Store.UnlockAchievements(ctx, ids, time.Now()); err != nil {
			return out, fmt.Errorf("unlock achievements: %w", err)
		}
		out.Unlocked = newly
	}
	return out, nil
}

func bestBucket(r model.TestResult) (mode string, value int) {
	if r.Level == model.LevelTime {
		return string(model.LevelTime), r.ElapsedSeconds
	}
	value = 0
	if r.WordCount != nil {
		value = *r.WordCount
	}
	return string(r.Level), value
}
