// Package coin implements the coin-flip variant.
// Each slot flips once per round; heads beats tails and matching faces
// replay the round.
package coin

import (
	"context"
	"math/rand"

	"duel-game-bot/internal/game"
)

// Coin faces.
const (
	Tails = 1
	Heads = 2
)

// ModeNormal is the only coin mode.
const ModeNormal = "normal"

// Coin implements game.Variant.
type Coin struct {
	source game.OutcomeSource
}

// New creates the coin variant.
func New() *Coin {
	return &Coin{source: flipSource{}}
}

// Command returns the chat command that starts this game.
func (c *Coin) Command() string { return "coin" }

// Name returns the display name.
func (c *Coin) Name() string { return "Coin Flip" }

// Description returns a brief description of the game.
func (c *Coin) Description() string {
	return "Flip a coin against a player or the house. Heads beats tails."
}

// Modes returns the selectable modes.
func (c *Coin) Modes() []string { return []string{ModeNormal} }

// Rule returns the scoring rule for a mode.
func (c *Coin) Rule(mode string) (game.ScoreRule, error) {
	if mode != ModeNormal {
		return nil, game.ErrUnknownMode
	}
	return rule{}, nil
}

// Outcomes returns the flip source.
func (c *Coin) Outcomes() game.OutcomeSource { return c.source }

// flipSource produces a fair coin face.
type flipSource struct{}

func (flipSource) Next(_ context.Context) (int, error) {
	return rand.Intn(2) + 1, nil
}

// rule scores a coin round: the higher face (heads) wins.
type rule struct{}

func (rule) OutcomesPerTurn() int { return 1 }

func (rule) Evaluate(a, b []int) game.Verdict {
	switch {
	case a[0] > b[0]:
		return game.RoundWinnerA
	case b[0] > a[0]:
		return game.RoundWinnerB
	default:
		return game.RoundDraw
	}
}
