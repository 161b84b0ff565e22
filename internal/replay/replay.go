// Package replay reconstructs typing-attempt state from a recorded
// keystroke log.
package replay

import (
	"sort"
	"time"

	"keyduel/internal/model"
)

// MinDelay is the floor applied to inter-keystroke delays so playback
// never bursts through zero-delay runs.
const MinDelay = 20 * time.Millisecond

// State is the reconstructed view at one log position.
type State struct {
	UserInput      string
	ErrorPositions []int
}

// StateAt replays log[0:n] against target from scratch and returns the
// resulting input and error positions. Recomputing the full prefix on
// every call keeps the result independent of any previous position, so
// it always matches what the live attempt showed at the same point.
func StateAt(log []model.Keystroke, target string, n int) State {
	if n > len(log) {
		n = len(log)
	}
	runes := []rune(target)
	var input []rune
	errorSet := map[int]struct{}{}
	for _, ks := range log[:n] {
		switch {
		case ks.Key == model.KeyBackspace:
			if len(input) > 0 {
				pos := len(input) - 1
				input = input[:pos]
				delete(errorSet, pos)
			}
		case isPrintable(ks.Key):
			pos := len(input)
			input = append(input, []rune(ks.Key)[0])
			if pos >= len(runes) || input[pos] != runes[pos] {
				errorSet[pos] = struct{}{}
			}
		}
	}
	positions := make([]int, 0, len(errorSet))
	for pos := range errorSet {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	return State{UserInput: string(input), ErrorPositions: positions}
}

func isPrintable(key string) bool {
	runes := []rune(key)
	if len(runes) != 1 {
		return false
	}
	r := runes[0]
	return r == ' ' || (r > 0x1F && r != 0x7F)
}

// Player steps through a keystroke log at its recorded pace. The
// caller schedules each returned delay; Player itself never sleeps.
type Player struct {
	target string
	log    []model.Keystroke
	index  int
	paused bool
}

// NewPlayer builds a player positioned before the first keystroke.
func NewPlayer(target string, log []model.Keystroke) *Player {
	return &Player{target: target, log: log}
}

// State returns the reconstructed view at the current position.
func (p *Player) State() State {
	return StateAt(p.log, p.target, p.index)
}

// Index returns the number of keystrokes applied so far.
func (p *Player) Index() int {
	return p.index
}

// Finished reports whether the last keystroke has been applied.
func (p *Player) Finished() bool {
	return p.index >= len(p.log)
}

// Paused reports whether playback is paused.
func (p *Player) Paused() bool {
	return p.paused
}

// Pause stops playback at the current position.
func (p *Player) Pause() {
	p.paused = true
}

// Resume continues playback from the current position.
func (p *Player) Resume() {
	p.paused = false
}

// Reset returns playback to the start.
func (p *Player) Reset() {
	p.index = 0
	p.paused = false
}

// Advance applies the next keystroke and returns the recorded delay
// before the one after it, floored at MinDelay. done is true once the
// log is exhausted; a paused player does not advance.
func (p *Player) Advance() (delay time.Duration, done bool) {
	if p.paused {
		return 0, p.Finished()
	}
	if p.Finished() {
		return 0, true
	}
	p.index++
	if p.Finished() {
		return 0, true
	}
	gap := p.log[p.index].ElapsedMillis - p.log[p.index-1].ElapsedMillis
	delay = time.Duration(gap) * time.Millisecond
	if delay < MinDelay {
		delay = MinDelay
	}
	return delay, false
}
