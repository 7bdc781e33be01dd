// Package darts implements the darts duel variant.
// Normal: one throw each, higher face wins the round. Double: two throws
// each, higher sum wins. Crazy: one throw each with faces inverted, so the
// lower face wins.
package darts

import (
	"duel-game-bot/internal/game"
)

// Modes supported by darts.
const (
	ModeNormal = "normal"
	ModeDouble = "double"
	ModeCrazy  = "crazy"
)

// Darts implements game.Variant.
type Darts struct {
	source game.OutcomeSource
}

// New creates the darts variant.
func New() *Darts {
	return &Darts{source: game.NewDieSource(6)}
}

// Command returns the chat command that starts this game.
func (d *Darts) Command() string { return "darts" }

// Name returns the display name.
func (d *Darts) Name() string { return "Darts" }

// Description returns a brief description of the game.
func (d *Darts) Description() string {
	return "Throw darts against a player or the house. Highest throw takes the round."
}

// Modes returns the selectable modes.
func (d *Darts) Modes() []string {
	return []string{ModeNormal, ModeDouble, ModeCrazy}
}

// Rule returns the scoring rule for a mode.
func (d *Darts) Rule(mode string) (game.ScoreRule, error) {
	switch mode {
	case ModeNormal:
		return rule{throws: 1, invert: false}, nil
	case ModeDouble:
		return rule{throws: 2, invert: false}, nil
	case ModeCrazy:
		return rule{throws: 1, invert: true}, nil
	default:
		return nil, game.ErrUnknownMode
	}
}

// Outcomes returns the dart throw source.
func (d *Darts) Outcomes() game.OutcomeSource { return d.source }

// rule scores a darts round by comparing throw totals.
type rule struct {
	throws int
	invert bool
}

func (r rule) OutcomesPerTurn() int { return r.throws }

func (r rule) Evaluate(a, b []int) game.Verdict {
	scoreA := r.score(a)
	scoreB := r.score(b)

	switch {
	case scoreA > scoreB:
		return game.RoundWinnerA
	case scoreB > scoreA:
		return game.RoundWinnerB
	default:
		return game.RoundDraw
	}
}

func (r rule) score(throws []int) int {
	total := 0
	for _, t := range throws {
		if r.invert {
			// Inverted board: a 1 counts as 6, a 6 as 1.
			total += 7 - t
		} else {
			total += t
		}
	}
	return total
}
