package match

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// playBotMatch runs a one-round bot match to completion so a summary
// exists for the rematch flow. The script decides who wins.
func playBotMatch(t *testing.T, f *fixture, wager int64, script ...int) {
	t.Helper()
	ctx := context.Background()
	f.source.push(script...)

	s, err := f.engine.BeginBotMatch(ctx, testChat, testAlice, params(wager, 1))
	require.NoError(t, err)
	require.NoError(t, f.engine.SetAnchor(s.Key, 1001))

	res, err := f.engine.SubmitTurn(ctx, ParticipantKey{ChatID: testChat, UserID: testAlice}, 1001, 1)
	require.NoError(t, err)
	require.NotNil(t, res.Round.Match)
}

func TestRematch_PlayAgainRepeatsBotMatch(t *testing.T) {
	f := newFixture(t)
	b := newBroker(f, time.Minute)
	r := NewRematch(f.engine, b)
	alice := ParticipantKey{ChatID: testChat, UserID: testAlice}

	playBotMatch(t, f, 10_00, 1, 5) // house wins, 490.00 left

	out, err := r.PlayAgain(context.Background(), alice)
	require.NoError(t, err)
	require.NotNil(t, out.Session)
	assert.Nil(t, out.Challenge)
	assert.Equal(t, int64(10_00), out.Params.Wager)

	// The new match escrowed the same stake again.
	assert.Equal(t, int64(480_00), f.balance(t, testAlice))
}

func TestRematch_DoubleOrNothingDoublesWager(t *testing.T) {
	f := newFixture(t)
	b := newBroker(f, time.Minute)
	r := NewRematch(f.engine, b)
	alice := ParticipantKey{ChatID: testChat, UserID: testAlice}

	playBotMatch(t, f, 10_00, 1, 5)

	out, err := r.DoubleOrNothing(context.Background(), alice)
	require.NoError(t, err)
	require.NotNil(t, out.Session)
	assert.Equal(t, int64(20_00), out.Params.Wager)
	assert.Equal(t, int64(470_00), f.balance(t, testAlice))
}

func TestRematch_DoubleOrNothingNeedsFunds(t *testing.T) {
	f := newFixture(t)
	b := newBroker(f, time.Minute)
	r := NewRematch(f.engine, b)
	alice := ParticipantKey{ChatID: testChat, UserID: testAlice}

	// Lose nearly everything: 495.00 staked, 5.00 left. Doubling to
	// 990.00 cannot be covered.
	playBotMatch(t, f, 495_00, 1, 5)
	require.Equal(t, int64(5_00), f.balance(t, testAlice))

	_, err := r.DoubleOrNothing(context.Background(), alice)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// The failed rematch didn't touch the balance or the summary.
	assert.Equal(t, int64(5_00), f.balance(t, testAlice))
	_, ok := f.engine.Summaries().Get(alice)
	assert.True(t, ok)
}

func TestRematch_NoPriorSession(t *testing.T) {
	f := newFixture(t)
	b := newBroker(f, time.Minute)
	r := NewRematch(f.engine, b)

	_, err := r.PlayAgain(context.Background(), ParticipantKey{ChatID: testChat, UserID: testAlice})
	assert.ErrorIs(t, err, ErrNoPriorSession)
}

func TestRematch_HumanOpponentGoesThroughChallenge(t *testing.T) {
	f := newFixture(t)
	b := newBroker(f, time.Minute)
	r := NewRematch(f.engine, b)
	ctx := context.Background()
	alice := ParticipantKey{ChatID: testChat, UserID: testAlice}
	bob := ParticipantKey{ChatID: testChat, UserID: testBob}

	// Play a PvP match to completion.
	f.source.push(6, 2)
	s, err := f.engine.StartPlayerMatch(ctx, testChat, testAlice, testBob, params(10_00, 1))
	require.NoError(t, err)
	require.NoError(t, f.engine.SetAnchor(s.Key, 1001))
	_, err = f.engine.SubmitTurn(ctx, alice, 1001, 1)
	require.NoError(t, err)
	require.NoError(t, f.engine.SetAnchor(s.Key, 1002))
	res, err := f.engine.SubmitTurn(ctx, bob, 1002, 1)
	require.NoError(t, err)
	require.NotNil(t, res.Round.Match)

	// The loser asks for a rematch: it becomes a fresh challenge, not an
	// immediate match.
	out, err := r.PlayAgain(ctx, bob)
	require.NoError(t, err)
	assert.Nil(t, out.Session)
	require.NotNil(t, out.Challenge)
	assert.Equal(t, testBob, out.Challenge.Initiator)
	assert.Equal(t, testAlice, out.Challenge.Opponent)
	assert.Equal(t, int64(10_00), out.Challenge.Params.Wager)

	// Accepting it starts the return match.
	s2, err := b.Accept(ctx, out.Challenge.ID, testAlice)
	require.NoError(t, err)
	require.NotNil(t, s2)
}
