// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"

	"keyduel/internal/model"
	"keyduel/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	History     []model.HistoryEntry
	Leaderboard []model.LeaderboardEntry
	MissedWords []MissedWord
}

// ReportConfig narrows what BuildReport loads.
type ReportConfig struct {
	Filter          model.HistoryFilter
	LeaderboardSize int
	MissedWindow    int
	MissedTop       int
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg ReportConfig) (Report, error) {
	history, err := st.ListHistory(ctx, cfg.Filter)
	if err != nil {
		return Report{}, err
	}
	leaderboard, err := st.TopLeaderboard(ctx, cfg.LeaderboardSize)
	if err != nil {
		return Report{}, err
	}
	missed, err := st.WrongWords(ctx, cfg.MissedWindow)
	if err != nil {
		return Report{}, err
	}
	return Report{
		History:     history,
		Leaderboard: leaderboard,
		MissedWords: RankMissedWords(missed, cfg.MissedTop),
	}, nil
}
