package coin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duel-game-bot/internal/game"
)

func TestCoin_SingleMode(t *testing.T) {
	c := New()
	assert.Equal(t, "coin", c.Command())
	assert.Equal(t, []string{ModeNormal}, c.Modes())

	_, err := c.Rule("double")
	assert.ErrorIs(t, err, game.ErrUnknownMode)
}

func TestCoin_HeadsBeatsTails(t *testing.T) {
	c := New()
	r, err := c.Rule(ModeNormal)
	require.NoError(t, err)
	require.Equal(t, 1, r.OutcomesPerTurn())

	assert.Equal(t, game.RoundWinnerA, r.Evaluate([]int{Heads}, []int{Tails}))
	assert.Equal(t, game.RoundWinnerB, r.Evaluate([]int{Tails}, []int{Heads}))
	assert.Equal(t, game.RoundDraw, r.Evaluate([]int{Heads}, []int{Heads}))
	assert.Equal(t, game.RoundDraw, r.Evaluate([]int{Tails}, []int{Tails}))
}

func TestCoin_FlipProducesValidFaces(t *testing.T) {
	c := New()
	source := c.Outcomes()

	for i := 0; i < 100; i++ {
		face, err := source.Next(context.Background())
		require.NoError(t, err)
		assert.Contains(t, []int{Tails, Heads}, face)
	}
}
