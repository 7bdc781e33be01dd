// Package football implements the penalty shoot-out variant.
// A shot of 3, 4 or 5 is a goal in normal and double modes; crazy mode
// scores only on a 1. A round point is awarded only when exactly one side
// scores, so trading goals (or trading misses) replays the round.
package football

import (
	"duel-game-bot/internal/game"
)

// Modes supported by football.
const (
	ModeNormal = "normal"
	ModeDouble = "double"
	ModeCrazy  = "crazy"
)

// Football implements game.Variant.
type Football struct {
	source game.OutcomeSource
}

// New creates the football variant.
func New() *Football {
	return &Football{source: game.NewDieSource(5)}
}

// Command returns the chat command that starts this game.
func (f *Football) Command() string { return "football" }

// Name returns the display name.
func (f *Football) Name() string { return "Football" }

// Description returns a brief description of the game.
func (f *Football) Description() string {
	return "Take penalty shots against a player or the house. Score when your opponent misses."
}

// Modes returns the selectable modes.
func (f *Football) Modes() []string {
	return []string{ModeNormal, ModeDouble, ModeCrazy}
}

// Rule returns the scoring rule for a mode.
func (f *Football) Rule(mode string) (game.ScoreRule, error) {
	switch mode {
	case ModeNormal:
		return rule{shots: 1, crazy: false}, nil
	case ModeDouble:
		return rule{shots: 2, crazy: false}, nil
	case ModeCrazy:
		return rule{shots: 1, crazy: true}, nil
	default:
		return nil, game.ErrUnknownMode
	}
}

// Outcomes returns the shot source.
func (f *Football) Outcomes() game.OutcomeSource { return f.source }

// rule scores a football round from effective goal totals.
type rule struct {
	shots int
	crazy bool
}

func (r rule) OutcomesPerTurn() int { return r.shots }

func (r rule) Evaluate(a, b []int) game.Verdict {
	scoreA := r.effective(a)
	scoreB := r.effective(b)

	// A point is awarded only when exactly one side scores.
	switch {
	case scoreA > 0 && scoreB == 0:
		return game.RoundWinnerA
	case scoreB > 0 && scoreA == 0:
		return game.RoundWinnerB
	default:
		return game.RoundDraw
	}
}

func (r rule) effective(shots []int) int {
	total := 0
	for _, s := range shots {
		if r.crazy {
			if s == 1 {
				total++
			}
			continue
		}
		// Shots 3..5 hit the goal, 1 and 2 miss.
		if s >= 3 {
			total += s
		}
	}
	return total
}
