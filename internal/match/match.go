// Package match coordinates two-player typing duels over a shared
// document. Both participants observe the same record through a live
// subscription; every multi-writer step is either written by a single
// designated party (player1) or guarded so a redundant write cannot
// corrupt state.
package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"keyduel/internal/docstore"
	"keyduel/internal/model"
)

// CountdownSeconds is the local pre-race countdown each device runs
// once the match is starting.
const CountdownSeconds = 5

// Coordinator errors. Protocol violations (readying up a completed
// match, duplicate transitions) are deliberate no-ops, not errors.
var (
	ErrNotFound    = errors.New("match not found")
	ErrRateLimited = errors.New("challenge rate limit reached")
)

// TextGenerator produces the shared race text. Exactly one participant
// calls it per match.
type TextGenerator interface {
	Generate(level model.DifficultyLevel, language string, wordCount int) (string, error)
}

// Player identifies one duel participant.
type Player struct {
	ID   string
	Name string
}

// Coordinator drives one participant's side of the duel protocol.
type Coordinator struct {
	store    docstore.Store
	gen      TextGenerator
	self     Player
	language string
}

// NewCoordinator builds a coordinator acting as self.
func NewCoordinator(store docstore.Store, gen TextGenerator, self Player, language string) *Coordinator {
	return &Coordinator{store: store, gen: gen, self: self, language: language}
}

func matchPath(id string) string {
	return "matches/" + id
}

func playerPath(id string) string {
	return "players/" + id
}

// Create writes a new pending challenge against opponent, enforcing the
// challenger's own cooldown and daily cap first.
func (c *Coordinator) Create(ctx context.Context, opponent Player, wordCount int) (model.Match, error) {
	now := time.Now()
	var stats model.ChallengeStats
	err := c.store.Get(ctx, playerPath(c.self.ID), &stats)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return model.Match{}, fmt.Errorf("load challenge counters: %w", err)
	}
	if !CanAct(stats, now) {
		return model.Match{}, ErrRateLimited
	}
	stats = RecordAction(stats, now)
	if err := c.store.Set(ctx, playerPath(c.self.ID), stats); err != nil {
		return model.Match{}, fmt.Errorf("store challenge counters: %w", err)
	}

	m := model.Match{
		ID:          uuid.NewString(),
		Player1ID:   c.self.ID,
		Player1Name: c.self.Name,
		Player2ID:   opponent.ID,
		Player2Name: opponent.Name,
		Status:      model.MatchPending,
		WordCount:   wordCount,
		CreatedAt:   now,
	}
	if err := c.store.Set(ctx, matchPath(m.ID), m); err != nil {
		return model.Match{}, fmt.Errorf("create match: %w", err)
	}
	return m, nil
}

// Load fetches the current match record.
func (c *Coordinator) Load(ctx context.Context, id string) (model.Match, error) {
	var m model.Match
	if err := c.store.Get(ctx, matchPath(id), &m); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return model.Match{}, ErrNotFound
		}
		return model.Match{}, fmt.Errorf("load match %s: %w", id, err)
	}
	return m, nil
}

// Watch subscribes to the match record, decoding every change. The
// channel closes when ctx is cancelled.
func (c *Coordinator) Watch(ctx context.Context, id string) (<-chan model.Match, error) {
	changes, err := c.store.Subscribe(ctx, matchPath(id))
	if err != nil {
		return nil, fmt.Errorf("watch match %s: %w", id, err)
	}
	out := make(chan model.Match, 4)
	go func() {
		defer close(out)
		for change := range changes {
			m, err := decodeMatch(change)
			if err != nil {
				continue
			}
			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Accept transitions a pending challenge to active. Only the invited
// party accepts; anything but pending is a no-op.
func (c *Coordinator) Accept(ctx context.Context, id string) error {
	m, err := c.Load(ctx, id)
	if err != nil {
		return err
	}
	if m.Status != model.MatchPending || c.self.ID != m.Player2ID {
		return nil
	}
	return c.update(ctx, id, map[string]any{"status": model.MatchActive})
}

// Decline ends a pending challenge: the invited party declines, or the
// challenger cancels.
func (c *Coordinator) Decline(ctx context.Context, id string) error {
	m, err := c.Load(ctx, id)
	if err != nil {
		return err
	}
	if m.Status != model.MatchPending {
		return nil
	}
	return c.update(ctx, id, map[string]any{"status": model.MatchDeclined})
}

// EnsureText generates and writes the shared race text once the match
// is active. Only the challenger generates so both sides race on
// identical text; a text already present is left alone.
func (c *Coordinator) EnsureText(ctx context.Context, m model.Match) error {
	if c.self.ID != m.Player1ID {
		return nil
	}
	if m.Status != model.MatchActive || m.TargetText != "" {
		return nil
	}
	current, err := c.Load(ctx, m.ID)
	if err != nil {
		return err
	}
	if current.TargetText != "" {
		return nil
	}
	text, err := c.gen.Generate(model.LevelSimple, c.language, m.WordCount)
	if err != nil {
		return fmt.Errorf("generate race text: %w", err)
	}
	return c.update(ctx, m.ID, map[string]any{"targetText": text})
}

// SetReady raises this participant's ready flag.
func (c *Coordinator) SetReady(ctx context.Context, m model.Match) error {
	if m.Status != model.MatchActive {
		return nil
	}
	field := "player1Ready"
	if c.self.ID == m.Player2ID {
		field = "player2Ready"
	}
	return c.update(ctx, m.ID, map[string]any{field: true})
}

// TryStart moves an active match with both players ready into the
// countdown. Written only by the challenger, so the two sides cannot
// race on the transition.
func (c *Coordinator) TryStart(ctx context.Context, m model.Match) error {
	if c.self.ID != m.Player1ID {
		return nil
	}
	if m.Status != model.MatchActive || !m.Player1Ready || !m.Player2Ready {
		return nil
	}
	return c.update(ctx, m.ID, map[string]any{"status": model.MatchStarting})
}

// BeginRace moves the match from starting to inprogress once the local
// countdown reaches zero. Challenger-only.
func (c *Coordinator) BeginRace(ctx context.Context, m model.Match) error {
	if c.self.ID != m.Player1ID {
		return nil
	}
	if m.Status != model.MatchStarting {
		return nil
	}
	return c.update(ctx, m.ID, map[string]any{"status": model.MatchInProgress})
}

// SubmitResult writes this participant's finished-race summary into its
// own slot. A slot already holding a result is never overwritten.
func (c *Coordinator) SubmitResult(ctx context.Context, m model.Match, result model.MatchResult) error {
	current, err := c.Load(ctx, m.ID)
	if err != nil {
		return err
	}
	field := "player1Result"
	existing := current.Player1Result
	if c.self.ID == m.Player2ID {
		field = "player2Result"
		existing = current.Player2Result
	}
	if existing != nil {
		return nil
	}
	return c.update(ctx, m.ID, map[string]any{field: result})
}

// Finalize computes the winner and completes the match once both result
// slots are filled. Challenger-only, and only while the winner is
// unset, so concurrent attempts collapse into one effective write.
func (c *Coordinator) Finalize(ctx context.Context, m model.Match) error {
	if c.self.ID != m.Player1ID {
		return nil
	}
	current, err := c.Load(ctx, m.ID)
	if err != nil {
		return err
	}
	if current.Status == model.MatchCompleted || current.WinnerID != "" {
		return nil
	}
	if current.Player1Result == nil || current.Player2Result == nil {
		return nil
	}
	return c.update(ctx, m.ID, map[string]any{
		"status":   model.MatchCompleted,
		"winnerId": Winner(current),
	})
}

// Forfeit abandons the match, awarding the win to the opponent.
func (c *Coordinator) Forfeit(ctx context.Context, m model.Match) error {
	current, err := c.Load(ctx, m.ID)
	if err != nil {
		return err
	}
	if current.Status == model.MatchCompleted || current.Status == model.MatchDeclined {
		return nil
	}
	winner := current.Player1ID
	if c.self.ID == current.Player1ID {
		winner = current.Player2ID
	}
	fields := map[string]any{"status": model.MatchCompleted}
	if current.WinnerID == "" {
		fields["winnerId"] = winner
	}
	return c.update(ctx, m.ID, fields)
}

// Winner picks the winning player id from both result slots: higher
// WPM wins, ties fall to higher accuracy, and a present result beats a
// missing one. Empty when neither side has a result.
func Winner(m model.Match) string {
	p1, p2 := m.Player1Result, m.Player2Result
	switch {
	case p1 == nil && p2 == nil:
		return ""
	case p2 == nil:
		return m.Player1ID
	case p1 == nil:
		return m.Player2ID
	case p1.WPM > p2.WPM:
		return m.Player1ID
	case p2.WPM > p1.WPM:
		return m.Player2ID
	case p1.Accuracy >= p2.Accuracy:
		return m.Player1ID
	default:
		return m.Player2ID
	}
}

// IsChallenger reports whether this coordinator acts as player1.
// Language returns the word-pool language races are generated in.
func (c *Coordinator) Language() string {
	return c.language
}

func (c *Coordinator) IsChallenger(m model.Match) bool {
	return c.self.ID == m.Player1ID
}

func (c *Coordinator) update(ctx context.Context, id string, fields map[string]any) error {
	if err := c.store.Update(ctx, matchPath(id), fields); err != nil {
		return fmt.Errorf("update match %s: %w", id, err)
	}
	return nil
}

func decodeMatch(change docstore.Change) (model.Match, error) {
	var m model.Match
	if err := json.Unmarshal(change.Doc, &m); err != nil {
		return model.Match{}, err
	}
	return m, nil
}
