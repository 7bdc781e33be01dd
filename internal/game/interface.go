// Package game defines the pluggable game-variant interfaces and registry.
// A variant contributes a scoring rule per mode and an outcome source; the
// match engine drives every variant through these two capabilities.
package game

import (
	"context"
	"errors"
)

// ErrUnknownMode is returned when a variant does not support the
// requested mode.
var ErrUnknownMode = errors.New("unknown game mode")

// Verdict is the result of evaluating one round.
type Verdict int

const (
	// RoundDraw means no side scored; the round repeats.
	RoundDraw Verdict = iota
	// RoundWinnerA means the first slot won the round.
	RoundWinnerA
	// RoundWinnerB means the second slot won the round.
	RoundWinnerB
)

// String returns a short label for logging.
func (v Verdict) String() string {
	switch v {
	case RoundWinnerA:
		return "winner_a"
	case RoundWinnerB:
		return "winner_b"
	default:
		return "draw"
	}
}

// ScoreRule converts two completed outcome buffers into a round verdict.
// Implementations must be pure: same buffers, same verdict.
type ScoreRule interface {
	// Evaluate decides the round from both slots' collected outcomes.
	// Each buffer holds exactly OutcomesPerTurn values.
	Evaluate(a, b []int) Verdict

	// OutcomesPerTurn is how many outcomes each slot must collect
	// before the round can be evaluated (1 or 2).
	OutcomesPerTurn() int
}

// OutcomeSource produces one randomized turn result, for a human-invoked
// turn or a synthetic opponent turn. Implementations hold no per-match
// state.
type OutcomeSource interface {
	Next(ctx context.Context) (int, error)
}

// Variant is one playable game (darts, football, coin). Adding a game only
// requires implementing this interface and registering it.
type Variant interface {
	// Command returns the chat command that starts this game (e.g. "darts").
	Command() string

	// Name returns the display name.
	Name() string

	// Description returns a brief description of the game.
	Description() string

	// Modes returns the selectable modes, in presentation order.
	Modes() []string

	// Rule returns the scoring rule for a mode, or ErrUnknownMode.
	Rule(mode string) (ScoreRule, error)

	// Outcomes returns the variant's outcome source.
	Outcomes() OutcomeSource
}
