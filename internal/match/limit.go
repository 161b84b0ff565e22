package match

import (
	"time"

	"keyduel/internal/model"
)

// Challenge rate limits, advisory on the challenger's own counters.
const (
	ChallengeCooldown = 60 * time.Second
	DailyChallengeCap = 10
)

// CanAct reports whether a new challenge is allowed: the cooldown since
// the last one has passed and the daily cap is not exhausted. The daily
// window resets at local midnight.
func CanAct(s model.ChallengeStats, now time.Time) bool {
	if !s.LastActionAt.IsZero() && now.Sub(s.LastActionAt) < ChallengeCooldown {
		return false
	}
	if sameDay(s.WindowStart, now) && s.Count >= DailyChallengeCap {
		return false
	}
	return true
}

// RecordAction returns the counters after one challenge at now.
func RecordAction(s model.ChallengeStats, now time.Time) model.ChallengeStats {
	if !sameDay(s.WindowStart, now) {
		s.Count = 0
		s.WindowStart = startOfDay(now)
	}
	s.Count++
	s.LastActionAt = now
	return s
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
