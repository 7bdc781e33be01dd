package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duel-game-bot/internal/config"
	"duel-game-bot/internal/game"
	"duel-game-bot/internal/ledger"
	"duel-game-bot/internal/metrics"
	"duel-game-bot/internal/pkg/lock"
)

const (
	testChat  int64 = 10
	testAlice int64 = 111
	testBob   int64 = 222
)

// scriptedSource replays a fixed outcome sequence so tests control every
// throw.
type scriptedSource struct {
	mu     sync.Mutex
	values []int
}

func (s *scriptedSource) push(values ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, values...)
}

func (s *scriptedSource) Next(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0, errors.New("outcome script exhausted")
	}
	v := s.values[0]
	s.values = s.values[1:]
	return v, nil
}

// highRule awards the round to the higher total.
type highRule struct{ throws int }

func (r highRule) OutcomesPerTurn() int { return r.throws }

func (r highRule) Evaluate(a, b []int) game.Verdict {
	sum := func(vs []int) int {
		total := 0
		for _, v := range vs {
			total += v
		}
		return total
	}
	switch sa, sb := sum(a), sum(b); {
	case sa > sb:
		return game.RoundWinnerA
	case sb > sa:
		return game.RoundWinnerB
	default:
		return game.RoundDraw
	}
}

// testVariant is a minimal variant backed by a scripted source.
type testVariant struct{ source *scriptedSource }

func (v *testVariant) Command() string     { return "duel" }
func (v *testVariant) Name() string        { return "Duel" }
func (v *testVariant) Description() string { return "test duel" }
func (v *testVariant) Modes() []string     { return []string{"normal", "double"} }

func (v *testVariant) Rule(mode string) (game.ScoreRule, error) {
	switch mode {
	case "normal":
		return highRule{throws: 1}, nil
	case "double":
		return highRule{throws: 2}, nil
	default:
		return nil, game.ErrUnknownMode
	}
}

func (v *testVariant) Outcomes() game.OutcomeSource { return v.source }

type fixture struct {
	engine *Engine
	ledger *ledger.MemoryLedger
	source *scriptedSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	source := &scriptedSource{}
	games := game.NewRegistry()
	require.NoError(t, games.Register(&testVariant{source: source}))

	led := ledger.NewMemoryLedger()
	led.Open(testAlice, 500_00)
	led.Open(testBob, 500_00)

	cfg := config.GamesConfig{
		PayoutPercent: 192,
		MinWager:      1_00,
		WinTargets:    []int{1, 2, 3},
		ChallengeTTL:  time.Minute,
	}

	engine := NewEngine(cfg, games, led, lock.NewKeyLock(), metrics.New(prometheus.NewRegistry()), zerolog.Nop())
	return &fixture{engine: engine, ledger: led, source: source}
}

func (f *fixture) balance(t *testing.T, id int64) int64 {
	t.Helper()
	balance, err := f.ledger.Balance(context.Background(), id)
	require.NoError(t, err)
	return balance
}

func params(wager int64, target int) Params {
	return Params{Game: "duel", Mode: "normal", WinTarget: target, Wager: wager}
}

func TestEngine_BotMatchWinSettles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.push(6, 2)

	s, err := f.engine.BeginBotMatch(ctx, testChat, testAlice, params(10_00, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(490_00), f.balance(t, testAlice), "wager escrowed at start")

	require.NoError(t, f.engine.SetAnchor(s.Key, 1001))

	res, err := f.engine.SubmitTurn(ctx, ParticipantKey{ChatID: testChat, UserID: testAlice}, 1001, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Outcome)
	assert.Equal(t, []int{2}, res.HouseOutcomes)

	require.NotNil(t, res.Round)
	assert.Equal(t, game.RoundWinnerA, res.Round.Verdict)
	require.NotNil(t, res.Round.Match)
	assert.Equal(t, testAlice, res.Round.Match.WinnerID)
	assert.Equal(t, int64(19_20), res.Round.Match.Payout)
	assert.Equal(t, int64(29_20), res.Round.Match.Credited)

	// Stake returned plus winnings.
	assert.Equal(t, int64(519_20), f.balance(t, testAlice))

	// Session fully torn down.
	assert.Equal(t, 0, f.engine.Registry().Count())
	assert.False(t, f.engine.Registry().IsBusy(ParticipantKey{ChatID: testChat, UserID: testAlice}))

	// Summary recorded for the rematch flow.
	summary, ok := f.engine.Summaries().Get(ParticipantKey{ChatID: testChat, UserID: testAlice})
	require.True(t, ok)
	assert.Equal(t, House, summary.Opponent)
	assert.Equal(t, int64(10_00), summary.Params.Wager)
}

func TestEngine_HouseWinRetainsEscrow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.push(1, 5)

	s, err := f.engine.BeginBotMatch(ctx, testChat, testAlice, params(10_00, 1))
	require.NoError(t, err)
	require.NoError(t, f.engine.SetAnchor(s.Key, 1001))

	res, err := f.engine.SubmitTurn(ctx, ParticipantKey{ChatID: testChat, UserID: testAlice}, 1001, 1)
	require.NoError(t, err)
	require.NotNil(t, res.Round.Match)
	assert.Equal(t, House, res.Round.Match.WinnerID)
	assert.Zero(t, res.Round.Match.Payout)
	assert.Zero(t, res.Round.Match.Credited)

	// No credit: the escrowed stake stays gone.
	assert.Equal(t, int64(490_00), f.balance(t, testAlice))
	assert.Equal(t, 0, f.engine.Registry().Count())
}

func TestEngine_DrawReplaysRound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.push(3, 3, 6, 1)
	actor := ParticipantKey{ChatID: testChat, UserID: testAlice}

	s, err := f.engine.BeginBotMatch(ctx, testChat, testAlice, params(10_00, 1))
	require.NoError(t, err)
	require.NoError(t, f.engine.SetAnchor(s.Key, 1001))

	res, err := f.engine.SubmitTurn(ctx, actor, 1001, 1)
	require.NoError(t, err)
	require.NotNil(t, res.Round)
	assert.Equal(t, game.RoundDraw, res.Round.Verdict)
	assert.Nil(t, res.Round.Match)

	// Fresh round: buffers cleared, number advanced, prompt unanchored.
	assert.Equal(t, 2, s.Round)
	assert.Empty(t, s.Buffers[0])
	assert.Empty(t, s.Buffers[1])
	assert.Equal(t, 0, s.Turn)
	assert.Equal(t, Anchor(0), s.Anchor)

	require.NoError(t, f.engine.SetAnchor(s.Key, 1002))
	res, err = f.engine.SubmitTurn(ctx, actor, 1002, 2)
	require.NoError(t, err)
	require.NotNil(t, res.Round.Match)
	assert.Equal(t, testAlice, res.Round.Match.WinnerID)
}

func TestEngine_StaleActionsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.push(3, 3, 6, 1)
	actor := ParticipantKey{ChatID: testChat, UserID: testAlice}

	s, err := f.engine.BeginBotMatch(ctx, testChat, testAlice, params(10_00, 1))
	require.NoError(t, err)

	// Nothing anchored yet: every action is stale.
	_, err = f.engine.SubmitTurn(ctx, actor, 1001, 1)
	assert.ErrorIs(t, err, ErrStaleAnchor)

	require.NoError(t, f.engine.SetAnchor(s.Key, 1001))
	_, err = f.engine.SubmitTurn(ctx, actor, 1001, 1)
	require.NoError(t, err)

	// A duplicate of the consumed prompt is stale, not double-applied.
	_, err = f.engine.SubmitTurn(ctx, actor, 1001, 2)
	assert.ErrorIs(t, err, ErrStaleAnchor)

	// A fresh anchor with an outdated round number is rejected too.
	require.NoError(t, f.engine.SetAnchor(s.Key, 1002))
	_, err = f.engine.SubmitTurn(ctx, actor, 1002, 1)
	assert.ErrorIs(t, err, ErrWrongRound)

	// State is untouched by the rejections: round 2 still plays out.
	res, err := f.engine.SubmitTurn(ctx, actor, 1002, 2)
	require.NoError(t, err)
	require.NotNil(t, res.Round.Match)
}

func TestEngine_PlayerMatchTurnOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.push(6, 2)
	alice := ParticipantKey{ChatID: testChat, UserID: testAlice}
	bob := ParticipantKey{ChatID: testChat, UserID: testBob}

	s, err := f.engine.StartPlayerMatch(ctx, testChat, testAlice, testBob, params(10_00, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(490_00), f.balance(t, testAlice))
	assert.Equal(t, int64(490_00), f.balance(t, testBob))

	require.NoError(t, f.engine.SetAnchor(s.Key, 1001))

	// The initiator opens the round.
	_, err = f.engine.SubmitTurn(ctx, bob, 1001, 1)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	res, err := f.engine.SubmitTurn(ctx, alice, 1001, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NextSlot)
	assert.Empty(t, res.HouseOutcomes)
	assert.Nil(t, res.Round)

	require.NoError(t, f.engine.SetAnchor(s.Key, 1002))
	res, err = f.engine.SubmitTurn(ctx, bob, 1002, 1)
	require.NoError(t, err)
	require.NotNil(t, res.Round.Match)
	assert.Equal(t, testAlice, res.Round.Match.WinnerID)

	// Winner takes stake plus winnings; the loser's stake is retained.
	assert.Equal(t, int64(519_20), f.balance(t, testAlice))
	assert.Equal(t, int64(490_00), f.balance(t, testBob))
	assert.False(t, f.engine.Registry().IsBusy(alice))
	assert.False(t, f.engine.Registry().IsBusy(bob))
}

func TestEngine_MultiThrowTurns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.push(4, 5, 2, 1)
	actor := ParticipantKey{ChatID: testChat, UserID: testAlice}

	p := params(10_00, 1)
	p.Mode = "double"
	s, err := f.engine.BeginBotMatch(ctx, testChat, testAlice, p)
	require.NoError(t, err)
	require.NoError(t, f.engine.SetAnchor(s.Key, 1001))

	// First throw of two: same player continues.
	res, err := f.engine.SubmitTurn(ctx, actor, 1001, 1)
	require.NoError(t, err)
	assert.True(t, res.AwaitSame)
	assert.Nil(t, res.Round)

	require.NoError(t, f.engine.SetAnchor(s.Key, 1002))
	res, err = f.engine.SubmitTurn(ctx, actor, 1002, 1)
	require.NoError(t, err)
	assert.False(t, res.AwaitSame)
	assert.Equal(t, []int{2, 1}, res.HouseOutcomes)
	require.NotNil(t, res.Round)
	assert.Equal(t, [2][]int{{4, 5}, {2, 1}}, res.Round.Buffers)
	require.NotNil(t, res.Round.Match)
	assert.Equal(t, testAlice, res.Round.Match.WinnerID)
}

func TestEngine_BeginValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.BeginBotMatch(ctx, testChat, testAlice, Params{Game: "roulette", Mode: "normal", WinTarget: 1, Wager: 10_00})
	assert.ErrorIs(t, err, ErrUnknownGame)

	_, err = f.engine.BeginBotMatch(ctx, testChat, testAlice, Params{Game: "duel", Mode: "triple", WinTarget: 1, Wager: 10_00})
	assert.ErrorIs(t, err, game.ErrUnknownMode)

	_, err = f.engine.BeginBotMatch(ctx, testChat, testAlice, params(10_00, 9))
	assert.ErrorIs(t, err, ErrInvalidWinTarget)

	_, err = f.engine.BeginBotMatch(ctx, testChat, testAlice, params(50, 1))
	assert.ErrorIs(t, err, ErrInvalidWager)

	_, err = f.engine.BeginBotMatch(ctx, testChat, testAlice, params(9_999_00, 1))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// Nothing was escrowed by any rejected begin.
	assert.Equal(t, int64(500_00), f.balance(t, testAlice))
}

func TestEngine_OneSessionPerParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.BeginBotMatch(ctx, testChat, testAlice, params(10_00, 3))
	require.NoError(t, err)

	_, err = f.engine.BeginBotMatch(ctx, testChat, testAlice, params(10_00, 1))
	assert.ErrorIs(t, err, ErrAlreadyInSession)

	_, err = f.engine.StartPlayerMatch(ctx, testChat, testBob, testAlice, params(10_00, 1))
	assert.ErrorIs(t, err, ErrEitherBusy)

	// Only the first begin escrowed.
	assert.Equal(t, int64(490_00), f.balance(t, testAlice))
	assert.Equal(t, int64(500_00), f.balance(t, testBob))
}

func TestEngine_ConcurrentBeginsExcludeEachOther(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 16
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.BeginBotMatch(ctx, testChat, testAlice, params(10_00, 1))
		}(i)
	}
	wg.Wait()

	started := 0
	for _, err := range errs {
		if err == nil {
			started++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyInSession)
		}
	}
	assert.Equal(t, 1, started)
	assert.Equal(t, int64(490_00), f.balance(t, testAlice), "exactly one wager escrowed")
	require.NoError(t, f.engine.Registry().CheckConsistency())
}

func TestEngine_SubmitWithoutSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.SubmitTurn(context.Background(), ParticipantKey{ChatID: testChat, UserID: testAlice}, 1001, 1)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}
