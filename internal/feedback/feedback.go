// Package feedback delivers keystroke feedback side effects.
package feedback

import (
	"fmt"
	"os"
)

// Kind classifies a keystroke for feedback purposes.
type Kind int

// Feedback kinds.
const (
	Correct Kind = iota
	Incorrect
)

// Sink receives fire-and-forget feedback events. Implementations must
// never block input handling.
type Sink interface {
	Play(kind Kind)
}

// Silent discards all feedback.
type Silent struct{}

// Play implements Sink.
func (Silent) Play(Kind) {}

// Bell rings the terminal bell on incorrect keystrokes.
type Bell struct{}

// Play implements Sink.
func (Bell) Play(kind Kind) {
	if kind != Incorrect {
		return
	}
	if _, err := fmt.Fprint(os.Stderr, "\a"); err != nil {
		// Best-effort terminal bell.
		_ = err
	}
}
