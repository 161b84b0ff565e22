// Package achievements defines unlockable milestones checked against
// test history and the profile.
package achievements

import (
	"keyduel/internal/model"
)

// Achievement is one unlockable milestone. Check is pure: it inspects
// history and profile and reports whether the milestone is met.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Check       func(history []model.HistoryEntry, profile model.Profile) bool
}

// All lists every achievement in display order.
var All = []Achievement{
	{
		ID:          "speed_demon_1",
		Name:        "Speed Demon I",
		Description: "Reach 60 WPM in any test.",
		Check:       anyTest(func(e model.HistoryEntry) bool { return e.WPM >= 60 }),
	},
	{
		ID:          "speed_demon_2",
		Name:        "Speed Demon II",
		Description: "Reach 80 WPM in any test.",
		Check:       anyTest(func(e model.HistoryEntry) bool { return e.WPM >= 80 }),
	},
	{
		ID:          "speed_demon_3",
		Name:        "Speed Demon III",
		Description: "Reach 100 WPM in any test.",
		Check:       anyTest(func(e model.HistoryEntry) bool { return e.WPM >= 100 }),
	},
	{
		ID:          "accuracy_1",
		Name:        "The Wall",
		Description: "Achieve 99% accuracy on any test.",
		Check:       anyTest(func(e model.HistoryEntry) bool { return e.Accuracy >= 99 }),
	},
	{
		ID:          "accuracy_2",
		Name:        "Perfectionist",
		Description: "Achieve 100% accuracy on any test with at least 15 words.",
		Check: anyTest(func(e model.HistoryEntry) bool {
			return e.Accuracy == 100 && e.WordCount != nil && *e.WordCount >= 15
		}),
	},
	{
		ID:          "consistency_1",
		Name:        "Getting Started",
		Description: "Complete 10 tests.",
		Check: func(history []model.HistoryEntry, _ model.Profile) bool {
			return len(history) >= 10
		},
	},
	{
		ID:          "consistency_2",
		Name:        "Dedicated",
		Description: "Complete 50 tests.",
		Check: func(history []model.HistoryEntry, _ model.Profile) bool {
			return len(history) >= 50
		},
	},
	{
		ID:          "consistency_3",
		Name:        "Veteran",
		Description: "Complete 100 tests.",
		Check: func(history []model.HistoryEntry, _ model.Profile) bool {
			return len(history) >= 100
		},
	},
	{
		ID:          "expert_1",
		Name:        "Expert Typist",
		Description: "Complete an expert level test with over 60 WPM.",
		Check: anyTest(func(e model.HistoryEntry) bool {
			return e.Level == model.LevelExpert && e.WPM >= 60
		}),
	},
	{
		ID:          "language_1",
		Name:        "Polyglot",
		Description: "Complete a test in at least 3 different languages.",
		Check: func(history []model.HistoryEntry, _ model.Profile) bool {
			languages := map[string]struct{}{}
			for _, e := range history {
				languages[e.Language] = struct{}{}
			}
			return len(languages) >= 3
		},
	},
	{
		ID:          "flawless_simple",
		Name:        "Simple & Flawless",
		Description: "Achieve 100% accuracy on a simple test.",
		Check: anyTest(func(e model.HistoryEntry) bool {
			return e.Level == model.LevelSimple && e.Accuracy == 100
		}),
	},
	{
		ID:          "light_touch",
		Name:        "Light Touch",
		Description: "Complete an intermediate test with over 70 WPM and 98% accuracy.",
		Check: anyTest(func(e model.HistoryEntry) bool {
			return e.Level == model.LevelIntermediate && e.WPM >= 70 && e.Accuracy >= 98
		}),
	},
	{
		ID:          "streak_365",
		Name:        "Unbroken",
		Description: "Maintain a daily streak for 365 consecutive days.",
		Check: func(_ []model.HistoryEntry, profile model.Profile) bool {
			return profile.CurrentStreak >= 365
		},
	},
}

func anyTest(match func(model.HistoryEntry) bool) func([]model.HistoryEntry, model.Profile) bool {
	return func(history []model.HistoryEntry, _ model.Profile) bool {
		for _, e := range history {
			if match(e) {
				return true
			}
		}
		return false
	}
}

// Check returns the achievements currently met by history and profile.
func Check(history []model.HistoryEntry, profile model.Profile) []Achievement {
	var met []Achievement
	for _, a := range All {
		if a.Check(history, profile) {
			met = append(met, a)
		}
	}
	return met
}

// NewlyMet filters met achievements down to ones not yet in unlocked.
func NewlyMet(history []model.HistoryEntry, profile model.Profile, unlocked map[string]bool) []Achievement {
	var fresh []Achievement
	for _, a := range Check(history, profile) {
		if !unlocked[a.ID] {
			fresh = append(fresh, a)
		}
	}
	return fresh
}

// ByID returns the achievement with the given id.
func ByID(id string) (Achievement, bool) {
	for _, a := range All {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}
