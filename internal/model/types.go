// Package model defines shared data structures.
package model

import "time"

// TestStatus tracks the lifecycle of a single typing attempt.
type TestStatus string

// Attempt lifecycle states. A completed attempt never changes again.
const (
	StatusPending   TestStatus = "pending"
	StatusActive    TestStatus = "active"
	StatusCompleted TestStatus = "completed"
)

// DifficultyLevel selects target-text generation and timing policy.
type DifficultyLevel string

// Supported difficulty levels.
const (
	LevelSimple       DifficultyLevel = "simple"
	LevelIntermediate DifficultyLevel = "intermediate"
	LevelExpert       DifficultyLevel = "expert"
	LevelMixed        DifficultyLevel = "mixed"
	LevelTime         DifficultyLevel = "time"
)

// MistakeMode governs how many incorrect keystrokes force early failure.
type MistakeMode string

// Mistake modes. Pro fails on the 6th mistake, god on the 1st.
const (
	ModeDefault MistakeMode = "default"
	ModePro     MistakeMode = "pro"
	ModeGod     MistakeMode = "god"
)

// Keystroke is one recorded key event, ordered by occurrence.
// The log is append-only and never mutated once recorded.
type Keystroke struct {
	Key           string `json:"key"`
	ElapsedMillis int64  `json:"elapsedMillis"`
}

// KeyBackspace is the named key for deletions in the keystroke log.
const KeyBackspace = "Backspace"

// WpmSample is one per-second snapshot of typing speed.
type WpmSample struct {
	ElapsedSeconds   int `json:"elapsedSeconds"`
	WPM              int `json:"wpm"`
	RawWPM           int `json:"rawWpm"`
	CumulativeErrors int `json:"cumulativeErrors"`
}

// CharacterStats counts typed characters for one attempt.
type CharacterStats struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Total     int `json:"total"`
}

// TestResult is the immutable record emitted when an attempt completes.
type TestResult struct {
	WPM             int             `json:"wpm"`
	RawWPM          int             `json:"rawWpm"`
	Accuracy        int             `json:"accuracy"`
	Consistency     int             `json:"consistency"`
	ElapsedSeconds  int             `json:"elapsedSeconds"`
	Level           DifficultyLevel `json:"level"`
	Language        string          `json:"language"`
	WordCount       *int            `json:"wordCount"`
	Passed          bool            `json:"passed"`
	CharacterStats  CharacterStats  `json:"characterStats"`
	WpmHistory      []WpmSample     `json:"wpmHistory"`
	ErrorTimestamps []int           `json:"errorTimestamps"`
	TargetText      string          `json:"targetText"`
	UserInput       string          `json:"userInput"`
	Keystrokes      []Keystroke     `json:"keystrokes"`
	WordsWithErrors []int           `json:"wordsWithErrors"`
	StartedAt       time.Time       `json:"startedAt"`
}

// MatchStatus tracks the shared duel lifecycle.
type MatchStatus string

// Duel states. Completed and declined are terminal.
const (
	MatchPending    MatchStatus = "pending"
	MatchActive     MatchStatus = "active"
	MatchStarting   MatchStatus = "starting"
	MatchInProgress MatchStatus = "inprogress"
	MatchCompleted  MatchStatus = "completed"
	MatchDeclined   MatchStatus = "declined"
)

// MatchResult is the per-player summary written into a match record.
type MatchResult struct {
	WPM            int `json:"wpm"`
	Accuracy       int `json:"accuracy"`
	ElapsedSeconds int `json:"elapsedSeconds"`
}

// Match is the shared record both duel participants observe and mutate.
// TargetText is write-once; result slots are write-once; WinnerID is
// set at most once, by player1.
type Match struct {
	ID            string       `json:"id"`
	Player1ID     string       `json:"player1Id"`
	Player1Name   string       `json:"player1Name"`
	Player2ID     string       `json:"player2Id"`
	Player2Name   string       `json:"player2Name"`
	Status        MatchStatus  `json:"status"`
	WordCount     int          `json:"wordCount"`
	TargetText    string       `json:"targetText,omitempty"`
	Player1Ready  bool         `json:"player1Ready"`
	Player2Ready  bool         `json:"player2Ready"`
	Player1Result *MatchResult `json:"player1Result"`
	Player2Result *MatchResult `json:"player2Result"`
	WinnerID      string       `json:"winnerId,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// ChallengeStats is the challenger-side rate-limit state, persisted on
// the profile and evaluated with pure functions.
type ChallengeStats struct {
	Count        int       `json:"count"`
	WindowStart  time.Time `json:"windowStart"`
	LastActionAt time.Time `json:"lastActionAt"`
}

// LeaderboardEntry is one saved score on the global board.
type LeaderboardEntry struct {
	ID        int64
	Name      string
	WPM       int
	Accuracy  int
	Level     DifficultyLevel
	Language  string
	WordCount *int
	Seconds   *int
	CreatedAt time.Time
}

// HistoryEntry summarizes one saved attempt for reporting and
// achievement checks.
type HistoryEntry struct {
	ID        int64
	WPM       int
	Accuracy  int
	Level     DifficultyLevel
	Language  string
	WordCount *int
	Seconds   *int
	CreatedAt time.Time
}

// PersonalBest is the record score for one test bucket.
type PersonalBest struct {
	WPM      int
	Accuracy int
}

// Profile is the local user row.
type Profile struct {
	ID             string
	Name           string
	EmailVerified  bool
	TestsStarted   int
	TestsCompleted int
	TotalSeconds   int
	CurrentStreak  int
	LongestStreak  int
	LastTestDay    *time.Time
	Challenge      ChallengeStats
}

// Anonymous reports whether the profile has no display name yet.
func (p Profile) Anonymous() bool {
	return p.Name == ""
}

// HistoryFilter narrows history queries for reports.
type HistoryFilter struct {
	Level    DifficultyLevel
	Language string
	Since    *time.Time
	Last     int
}
