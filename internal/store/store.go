// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"keyduel/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

const profileRowID = "local"

// Store wraps SQLite access for results, leaderboard and profile data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			wpm INTEGER NOT NULL,
			raw_wpm INTEGER NOT NULL,
			accuracy INTEGER NOT NULL,
			consistency INTEGER NOT NULL,
			elapsed_seconds INTEGER NOT NULL,
			level TEXT NOT NULL,
			language TEXT NOT NULL,
			word_count INTEGER,
			passed INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			total INTEGER NOT NULL,
			wpm_history TEXT NOT NULL,
			error_timestamps TEXT NOT NULL,
			words_with_errors TEXT NOT NULL,
			target_text TEXT NOT NULL,
			user_input TEXT NOT NULL,
			keystrokes TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS leaderboard (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			wpm INTEGER NOT NULL,
			accuracy INTEGER NOT NULL,
			level TEXT NOT NULL,
			language TEXT NOT NULL,
			word_count INTEGER,
			seconds INTEGER,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS profile (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			email_verified INTEGER NOT NULL,
			tests_started INTEGER NOT NULL,
			tests_completed INTEGER NOT NULL,
			total_seconds INTEGER NOT NULL,
			current_streak INTEGER NOT NULL,
			longest_streak INTEGER NOT NULL,
			last_test_day TEXT,
			challenge_count INTEGER NOT NULL,
			challenge_window_start TEXT NOT NULL,
			challenge_last_action TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS personal_bests (
			mode TEXT NOT NULL,
			value INTEGER NOT NULL,
			wpm INTEGER NOT NULL,
			accuracy INTEGER NOT NULL,
			PRIMARY KEY (mode, value)
		);`,
		`CREATE TABLE IF NOT EXISTS achievements (
			id TEXT PRIMARY KEY,
			unlocked_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_started_at ON results(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_wpm ON leaderboard(wpm DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertResult stores a finalized attempt including its keystroke log.
func (s *Store) InsertResult(ctx context.Context, r model.TestResult) (int64, error) {
	history, err := json.Marshal(r.WpmHistory)
	if err != nil {
		return 0, err
	}
	timestamps, err := json.Marshal(r.ErrorTimestamps)
	if err != nil {
		return 0, err
	}
	wordErrs, err := json.Marshal(r.WordsWithErrors)
	if err != nil {
		return 0, err
	}
	keystrokes, err := json.Marshal(r.Keystrokes)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO results (started_at, wpm, raw_wpm, accuracy, consistency, elapsed_seconds, level, language, word_count, passed, correct, incorrect, total, wpm_history, error_timestamps, words_with_errors, target_text, user_input, keystrokes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt.Format(time.RFC3339Nano),
		r.WPM, r.RawWPM, r.Accuracy, r.Consistency, r.ElapsedSeconds,
		string(r.Level), r.Language, nullableInt(r.WordCount), boolToInt(r.Passed),
		r.CharacterStats.Correct, r.CharacterStats.Incorrect, r.CharacterStats.Total,
		string(history), string(timestamps), string(wordErrs),
		r.TargetText, r.UserInput, string(keystrokes),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LoadResult returns a stored attempt by id, primarily for replay.
func (s *Store) LoadResult(ctx context.Context, id int64) (model.TestResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT started_at, wpm, raw_wpm, accuracy, consistency, elapsed_seconds, level, language, word_count, passed, correct, incorrect, total, wpm_history, error_timestamps, words_with_errors, target_text, user_input, keystrokes
		 FROM results WHERE id = ?`, id)

	var r model.TestResult
	var startedAt, level, history, timestamps, wordErrs, keystrokes string
	var wordCount sql.NullInt64
	var passed int
	err := row.Scan(&startedAt, &r.WPM, &r.RawWPM, &r.Accuracy, &r.Consistency, &r.ElapsedSeconds,
		&level, &r.Language, &wordCount, &passed,
		&r.CharacterStats.Correct, &r.CharacterStats.Incorrect, &r.CharacterStats.Total,
		&history, &timestamps, &wordErrs, &r.TargetText, &r.UserInput, &keystrokes)
	if err != nil {
		return model.TestResult{}, err
	}
	r.Level = model.DifficultyLevel(level)
	r.Passed = passed != 0
	if wordCount.Valid {
		wc := int(wordCount.Int64)
		r.WordCount = &wc
	}
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return model.TestResult{}, err
	}
	if err := json.Unmarshal([]byte(history), &r.WpmHistory); err != nil {
		return model.TestResult{}, err
	}
	if err := json.Unmarshal([]byte(timestamps), &r.ErrorTimestamps); err != nil {
		return model.TestResult{}, err
	}
	if err := json.Unmarshal([]byte(wordErrs), &r.WordsWithErrors); err != nil {
		return model.TestResult{}, err
	}
	if err := json.Unmarshal([]byte(keystrokes), &r.Keystrokes); err != nil {
		return model.TestResult{}, err
	}
	return r, nil
}

// ListHistory returns attempt summaries matching the filter, oldest
// first.
func (s *Store) ListHistory(ctx context.Context, filter model.HistoryFilter) ([]model.HistoryEntry, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Level != "" {
		clauses = append(clauses, "level = ?")
		args = append(args, string(filter.Level))
	}
	if filter.Language != "" {
		clauses = append(clauses, "language = ?")
		args = append(args, filter.Language)
	}
	if filter.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, filter.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, wpm, accuracy, level, language, word_count, elapsed_seconds, started_at
		FROM results
		WHERE %s
		ORDER BY started_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var level, startedAt string
		var wordCount sql.NullInt64
		var seconds int
		if err := rows.Scan(&e.ID, &e.WPM, &e.Accuracy, &level, &e.Language, &wordCount, &seconds, &startedAt); err != nil {
			return nil, err
		}
		e.Level = model.DifficultyLevel(level)
		if wordCount.Valid {
			wc := int(wordCount.Int64)
			e.WordCount = &wc
		}
		e.Seconds = &seconds
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if filter.Last > 0 && len(entries) > filter.Last {
		entries = entries[len(entries)-filter.Last:]
	}
	return entries, nil
}

// AddLeaderboardEntry records a passed attempt on the board.
func (s *Store) AddLeaderboardEntry(ctx context.Context, e model.LeaderboardEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leaderboard (name, wpm, accuracy, level, language, word_count, seconds, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Name, e.WPM, e.Accuracy, string(e.Level), e.Language,
		nullableInt(e.WordCount), nullableInt(e.Seconds),
		e.CreatedAt.Format(time.RFC3339Nano))
	return err
}

// TopLeaderboard returns the highest-WPM entries, accuracy breaking
// ties.
func (s *Store) TopLeaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, wpm, accuracy, level, language, word_count, seconds, created_at
		 FROM leaderboard
		 ORDER BY wpm DESC, accuracy DESC, created_at ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		var level, createdAt string
		var wordCount, seconds sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Name, &e.WPM, &e.Accuracy, &level, &e.Language, &wordCount, &seconds, &createdAt); err != nil {
			return nil, err
		}
		e.Level = model.DifficultyLevel(level)
		if wordCount.Valid {
			wc := int(wordCount.Int64)
			e.WordCount = &wc
		}
		if seconds.Valid {
			sec := int(seconds.Int64)
			e.Seconds = &sec
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Profile loads the local profile row, creating it on first use.
func (s *Store) Profile(ctx context.Context) (model.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, email_verified, tests_started, tests_completed, total_seconds, current_streak, longest_streak, last_test_day, challenge_count, challenge_window_start, challenge_last_action
		 FROM profile WHERE id = ?`, profileRowID)

	var p model.Profile
	var emailVerified int
	var lastTestDay sql.NullString
	var windowStart, lastAction string
	err := row.Scan(&p.ID, &p.Name, &emailVerified, &p.TestsStarted, &p.TestsCompleted, &p.TotalSeconds,
		&p.CurrentStreak, &p.LongestStreak, &lastTestDay,
		&p.Challenge.Count, &windowStart, &lastAction)
	if err == sql.ErrNoRows {
		p = model.Profile{ID: uuid.NewString()}
		if err := s.UpdateProfile(ctx, p); err != nil {
			return model.Profile{}, err
		}
		return p, nil
	}
	if err != nil {
		return model.Profile{}, err
	}
	p.EmailVerified = emailVerified != 0
	if lastTestDay.Valid {
		day, err := time.Parse(time.RFC3339Nano, lastTestDay.String)
		if err != nil {
			return model.Profile{}, err
		}
		p.LastTestDay = &day
	}
	if p.Challenge.WindowStart, err = parseTimeOrZero(windowStart); err != nil {
		return model.Profile{}, err
	}
	if p.Challenge.LastActionAt, err = parseTimeOrZero(lastAction); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// UpdateProfile writes the full profile row.
func (s *Store) UpdateProfile(ctx context.Context, p model.Profile) error {
	var lastTestDay any
	if p.LastTestDay != nil {
		lastTestDay = p.LastTestDay.Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profile (id, user_id, name, email_verified, tests_started, tests_completed, total_seconds, current_streak, longest_streak, last_test_day, challenge_count, challenge_window_start, challenge_last_action)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			email_verified = excluded.email_verified,
			tests_started = excluded.tests_started,
			tests_completed = excluded.tests_completed,
			total_seconds = excluded.total_seconds,
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_test_day = excluded.last_test_day,
			challenge_count = excluded.challenge_count,
			challenge_window_start = excluded.challenge_window_start,
			challenge_last_action = excluded.challenge_last_action`,
		profileRowID, p.ID, p.Name, boolToInt(p.EmailVerified),
		p.TestsStarted, p.TestsCompleted, p.TotalSeconds,
		p.CurrentStreak, p.LongestStreak, lastTestDay,
		p.Challenge.Count, formatTimeOrEmpty(p.Challenge.WindowStart), formatTimeOrEmpty(p.Challenge.LastActionAt))
	return err
}

// RecordStart bumps the started-attempts counter as soon as typing
// begins, so abandoned runs still show in the totals.
func (s *Store) RecordStart(ctx context.Context) error {
	p, err := s.Profile(ctx)
	if err != nil {
		return err
	}
	p.TestsStarted++
	return s.UpdateProfile(ctx, p)
}

// RecordCompletion folds a finished attempt into the profile counters
// and the daily streak.
func (s *Store) RecordCompletion(ctx context.Context, r model.TestResult) (model.Profile, error) {
	p, err := s.Profile(ctx)
	if err != nil {
		return model.Profile{}, err
	}
	p.TestsCompleted++
	p.TotalSeconds += r.ElapsedSeconds
	p = advanceStreak(p, r.StartedAt)
	if err := s.UpdateProfile(ctx, p); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// advanceStreak extends, keeps or restarts the daily streak for an
// attempt on day.
func advanceStreak(p model.Profile, day time.Time) model.Profile {
	today := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	switch {
	case p.LastTestDay == nil:
		p.CurrentStreak = 1
	case p.LastTestDay.Equal(today):
		// Same day, streak unchanged.
	case today.Sub(*p.LastTestDay) <= 24*time.Hour:
		p.CurrentStreak++
	default:
		p.CurrentStreak = 1
	}
	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	p.LastTestDay = &today
	return p
}

// PersonalBest returns the stored best for a bucket, ok=false when the
// bucket has never been scored.
func (s *Store) PersonalBest(ctx context.Context, mode string, value int) (model.PersonalBest, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT wpm, accuracy FROM personal_bests WHERE mode = ? AND value = ?`, mode, value)
	var pb model.PersonalBest
	err := row.Scan(&pb.WPM, &pb.Accuracy)
	if err == sql.ErrNoRows {
		return model.PersonalBest{}, false, nil
	}
	if err != nil {
		return model.PersonalBest{}, false, err
	}
	return pb, true, nil
}

// CheckPersonalBest records the score when it beats the bucket's best:
// higher WPM, or equal WPM with higher accuracy.
func (s *Store) CheckPersonalBest(ctx context.Context, mode string, value, wpm, accuracy int) (bool, error) {
	current, ok, err := s.PersonalBest(ctx, mode, value)
	if err != nil {
		return false, err
	}
	if ok && (wpm < current.WPM || (wpm == current.WPM && accuracy <= current.Accuracy)) {
		return false, nil
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO personal_bests (mode, value, wpm, accuracy) VALUES (?, ?, ?, ?)
		 ON CONFLICT(mode, value) DO UPDATE SET wpm = excluded.wpm, accuracy = excluded.accuracy`,
		mode, value, wpm, accuracy)
	if err != nil {
		return false, err
	}
	return true, nil
}

// UnlockAchievements records newly unlocked achievement ids. Already
// unlocked ids keep their original timestamp.
func (s *Store) UnlockAchievements(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO achievements (id, unlocked_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, id := range ids {
		if _, err = stmt.ExecContext(ctx, id, at.Format(time.RFC3339Nano)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UnlockedAchievements returns unlocked ids with their unlock times.
func (s *Store) UnlockedAchievements(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, unlocked_at FROM achievements`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	unlocked := map[string]time.Time{}
	for rows.Next() {
		var id, at string
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, err
		}
		unlocked[id] = parsed
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return unlocked, nil
}

// WrongWords aggregates the words containing errors over the most
// recent window attempts, mapping word to miss count.
func (s *Store) WrongWords(ctx context.Context, window int) (map[string]int, error) {
	if window <= 0 {
		return map[string]int{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT target_text, words_with_errors FROM results ORDER BY started_at DESC LIMIT ?`, window)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	missed := map[string]int{}
	for rows.Next() {
		var target, wordErrs string
		if err := rows.Scan(&target, &wordErrs); err != nil {
			return nil, err
		}
		var indices []int
		if err := json.Unmarshal([]byte(wordErrs), &indices); err != nil {
			return nil, err
		}
		words := strings.Fields(target)
		for _, idx := range indices {
			if idx >= 0 && idx < len(words) {
				missed[strings.Trim(words[idx], ".,;:!?\"'")]++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	delete(missed, "")
	return missed, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTimeOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTimeOrZero(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
