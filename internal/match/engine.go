package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"duel-game-bot/internal/config"
	"duel-game-bot/internal/game"
	"duel-game-bot/internal/ledger"
	"duel-game-bot/internal/metrics"
	"duel-game-bot/internal/model"
)

// Engine drives active matches from first turn to settlement. All state
// transitions for one session are serialized behind its session-key lock;
// unrelated sessions proceed in parallel.
type Engine struct {
	cfg       config.GamesConfig
	games     *game.Registry
	ledger    ledger.Ledger
	registry  *Registry
	summaries *SummaryStore
	locks     keyLocker
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// keyLocker is the narrow locking surface the engine needs. Satisfied by
// lock.KeyLock; declared here so tests can substitute.
type keyLocker interface {
	Lock(key string)
	Unlock(key string)
	LockPair(a, b string)
	UnlockPair(a, b string)
}

// NewEngine creates the turn-coordination engine.
func NewEngine(
	cfg config.GamesConfig,
	games *game.Registry,
	led ledger.Ledger,
	locks keyLocker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		cfg:       cfg,
		games:     games,
		ledger:    led,
		registry:  NewRegistry(),
		summaries: NewSummaryStore(),
		locks:     locks,
		metrics:   m,
		log:       logger.With().Str("component", "engine").Logger(),
	}
}

// TurnResult reports what one accepted turn action did.
type TurnResult struct {
	Slot    int
	Outcome int

	// AwaitSame means the same slot must produce another outcome before
	// the turn passes (multi-throw modes).
	AwaitSame bool

	// NextSlot is the human slot now holding the turn; -1 when the
	// action completed the round.
	NextSlot int

	// HouseOutcomes holds outcomes drawn eagerly for the house when the
	// turn passed to it during this action.
	HouseOutcomes []int

	// Round is set when this action completed a round.
	Round *RoundResult
}

// RoundResult reports one evaluated round.
type RoundResult struct {
	Number  int
	Buffers [2][]int
	Verdict game.Verdict
	Scores  [2]int

	// Degraded is set when the round was discarded and replayed because
	// an outcome buffer was found incomplete at evaluation time.
	Degraded bool

	// Match is set when the round decided the match.
	Match *MatchResult
}

// MatchResult reports a settled match.
type MatchResult struct {
	WinnerSlot int
	WinnerID   int64 // House when the house won
	Payout     int64 // net winnings beyond the returned stake
	Credited   int64 // amount credited to the winner (payout + stake)
	Scores     [2]int
	Params     Params
}

// Registry exposes the session registry for the broker and front end.
func (e *Engine) Registry() *Registry { return e.registry }

// Summaries exposes the last-match summary store.
func (e *Engine) Summaries() *SummaryStore { return e.summaries }

// Games exposes the variant registry.
func (e *Engine) Games() *game.Registry { return e.games }

// Config returns the shared game configuration.
func (e *Engine) Config() config.GamesConfig { return e.cfg }

// ValidateWager checks the wager against the configured bounds.
func (e *Engine) ValidateWager(wager int64) error {
	if wager <= 0 || wager < e.cfg.MinWager {
		return ErrInvalidWager
	}
	if e.cfg.MaxWager > 0 && wager > e.cfg.MaxWager {
		return ErrInvalidWager
	}
	return nil
}

// resolve checks the params against the variant registry and configured
// win targets and returns the variant's capabilities.
func (e *Engine) resolve(p Params) (game.ScoreRule, game.OutcomeSource, error) {
	variant, ok := e.games.Get(p.Game)
	if !ok {
		return nil, nil, ErrUnknownGame
	}
	rule, err := variant.Rule(p.Mode)
	if err != nil {
		return nil, nil, err
	}
	if !e.cfg.IsWinTarget(p.WinTarget) {
		return nil, nil, ErrInvalidWinTarget
	}
	if err := e.ValidateWager(p.Wager); err != nil {
		return nil, nil, err
	}
	return rule, variant.Outcomes(), nil
}

// BeginBotMatch escrows the initiator's wager and starts a match against
// the house. The house's stake is implicit: it is never escrowed, and a
// house win simply retains the debited wager.
func (e *Engine) BeginBotMatch(ctx context.Context, chatID, userID int64, p Params) (*Session, error) {
	rule, source, err := e.resolve(p)
	if err != nil {
		e.reject(err)
		return nil, err
	}

	pk := ParticipantKey{ChatID: chatID, UserID: userID}
	e.locks.Lock(pk.String())
	defer e.locks.Unlock(pk.String())

	if e.registry.IsBusy(pk) {
		e.reject(ErrAlreadyInSession)
		return nil, ErrAlreadyInSession
	}

	if err := e.escrow(ctx, userID, p); err != nil {
		e.reject(err)
		return nil, err
	}

	s := e.newSession(SessionKey{ChatID: chatID, PlayerA: userID, PlayerB: House}, p, rule, source)
	if err := e.registry.Insert(s); err != nil {
		// Cannot happen while we hold the participant lock; refund the
		// escrow rather than stranding it.
		e.refund(ctx, userID, p)
		return nil, err
	}

	e.metrics.MatchesStarted.WithLabelValues(p.Game, "house").Inc()
	e.metrics.ActiveSessions.Set(float64(e.registry.Count()))
	e.log.Info().
		Int64("chat", chatID).
		Int64("player", userID).
		Str("game", p.Game).
		Str("mode", p.Mode).
		Int64("wager", p.Wager).
		Msg("Bot match started")

	return s, nil
}

// StartPlayerMatch escrows both wagers and starts a player-vs-player
// match. Busy and balance states are checked under both participant locks
// so the debits and the registry insert form one critical section.
func (e *Engine) StartPlayerMatch(ctx context.Context, chatID, initiator, opponent int64, p Params) (*Session, error) {
	rule, source, err := e.resolve(p)
	if err != nil {
		e.reject(err)
		return nil, err
	}

	a := ParticipantKey{ChatID: chatID, UserID: initiator}
	b := ParticipantKey{ChatID: chatID, UserID: opponent}
	e.locks.LockPair(a.String(), b.String())
	defer e.locks.UnlockPair(a.String(), b.String())

	if e.registry.IsBusy(a) || e.registry.IsBusy(b) {
		e.reject(ErrEitherBusy)
		return nil, ErrEitherBusy
	}

	if err := e.escrow(ctx, initiator, p); err != nil {
		e.reject(err)
		return nil, err
	}
	if err := e.escrow(ctx, opponent, p); err != nil {
		// Undo the first debit; nothing else has happened yet.
		e.refund(ctx, initiator, p)
		if errors.Is(err, ErrInsufficientBalance) {
			err = ErrOpponentUnderfunded
		}
		e.reject(err)
		return nil, err
	}

	s := e.newSession(SessionKey{ChatID: chatID, PlayerA: initiator, PlayerB: opponent}, p, rule, source)
	if err := e.registry.Insert(s); err != nil {
		e.refund(ctx, initiator, p)
		e.refund(ctx, opponent, p)
		return nil, err
	}

	e.metrics.MatchesStarted.WithLabelValues(p.Game, "player").Inc()
	e.metrics.ActiveSessions.Set(float64(e.registry.Count()))
	e.log.Info().
		Int64("chat", chatID).
		Int64("initiator", initiator).
		Int64("opponent", opponent).
		Str("game", p.Game).
		Int64("wager", p.Wager).
		Msg("Player match started")

	return s, nil
}

// SetAnchor records the prompt message the next turn action must answer.
// Called by the front end after it posts each round prompt.
func (e *Engine) SetAnchor(key SessionKey, anchor Anchor) error {
	skey := key.String()
	e.locks.Lock(skey)
	defer e.locks.Unlock(skey)

	s, ok := e.registry.Get(key)
	if !ok {
		return ErrNoActiveSession
	}
	s.Anchor = anchor
	return nil
}

// SubmitTurn processes one turn action from a human participant. The
// anchor must match the session's current prompt and the round number must
// be current; a rejected action never mutates session state, so duplicate
// or delayed deliveries are idempotent.
//
// When the action completes the deciding round, the returned result is
// valid even if the settlement credit fails; the error then reports the
// ledger failure.
func (e *Engine) SubmitTurn(ctx context.Context, actor ParticipantKey, anchor Anchor, round int) (*TurnResult, error) {
	s, ok := e.registry.Lookup(actor)
	if !ok {
		e.reject(ErrNoActiveSession)
		return nil, ErrNoActiveSession
	}

	skey := s.Key.String()
	e.locks.Lock(skey)
	defer e.locks.Unlock(skey)

	// The session may have settled while we waited for the lock.
	if _, ok := e.registry.Get(s.Key); !ok || s.Done {
		e.reject(ErrMatchAlreadyOver)
		return nil, ErrMatchAlreadyOver
	}

	if anchor == 0 || anchor != s.Anchor {
		e.reject(ErrStaleAnchor)
		return nil, ErrStaleAnchor
	}
	for slot := 0; slot < 2; slot++ {
		if s.Scores[slot] >= s.Params.WinTarget {
			e.reject(ErrMatchAlreadyOver)
			return nil, ErrMatchAlreadyOver
		}
	}
	slot := s.SlotOf(actor.UserID)
	if slot != s.Turn {
		e.reject(ErrNotYourTurn)
		return nil, ErrNotYourTurn
	}
	if round != s.Round {
		e.reject(ErrWrongRound)
		return nil, ErrWrongRound
	}

	outcome, err := s.source.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("outcome source failed: %w", err)
	}

	s.Buffers[slot] = append(s.Buffers[slot], outcome)
	s.Collected[slot]++
	// The prompt is consumed; replays of the same anchor are stale until
	// the front end anchors the next prompt.
	s.Anchor = 0

	res := &TurnResult{Slot: slot, Outcome: outcome, NextSlot: -1}
	quota := s.rule.OutcomesPerTurn()

	if s.Collected[slot] < quota {
		res.AwaitSame = true
		return res, nil
	}

	other := 1 - slot
	if s.Collected[other] < quota {
		s.Turn = other
		if !s.IsHouseSlot(other) {
			res.NextSlot = other
			return res, nil
		}
		// Synthetic opponent turns resolve eagerly; there is no
		// externally visible waiting state for the house.
		for s.Collected[other] < quota {
			houseOutcome, err := s.source.Next(ctx)
			if err != nil {
				return nil, fmt.Errorf("outcome source failed: %w", err)
			}
			s.Buffers[other] = append(s.Buffers[other], houseOutcome)
			s.Collected[other]++
			res.HouseOutcomes = append(res.HouseOutcomes, houseOutcome)
		}
	}

	roundRes, err := e.evaluateRound(ctx, s)
	res.Round = roundRes
	return res, err
}

// evaluateRound scores a completed round and either advances the match,
// replays a drawn round, or settles the match. Caller holds the session
// lock.
func (e *Engine) evaluateRound(ctx context.Context, s *Session) (*RoundResult, error) {
	quota := s.rule.OutcomesPerTurn()
	if len(s.Buffers[0]) != quota || len(s.Buffers[1]) != quota {
		// Internal invariant violation: evaluation must only run with
		// full buffers. Discard the round and replay rather than
		// guessing a verdict.
		e.log.Error().
			Str("session", s.Key.String()).
			Int("round", s.Round).
			Ints("buffer_a", s.Buffers[0]).
			Ints("buffer_b", s.Buffers[1]).
			Int("quota", quota).
			Msg("Round evaluated with incomplete buffers; replaying round")
		res := &RoundResult{Number: s.Round, Degraded: true, Scores: s.Scores}
		s.resetRound()
		return res, nil
	}

	res := &RoundResult{
		Number:  s.Round,
		Buffers: [2][]int{append([]int(nil), s.Buffers[0]...), append([]int(nil), s.Buffers[1]...)},
	}

	res.Verdict = s.rule.Evaluate(s.Buffers[0], s.Buffers[1])
	e.metrics.RoundsEvaluated.WithLabelValues(s.Params.Game, res.Verdict.String()).Inc()

	winnerSlot := -1
	switch res.Verdict {
	case game.RoundWinnerA:
		winnerSlot = 0
	case game.RoundWinnerB:
		winnerSlot = 1
	}
	if winnerSlot >= 0 {
		s.Scores[winnerSlot]++
	}
	res.Scores = s.Scores

	e.log.Info().
		Str("session", s.Key.String()).
		Int("round", s.Round).
		Str("verdict", res.Verdict.String()).
		Ints("buffer_a", res.Buffers[0]).
		Ints("buffer_b", res.Buffers[1]).
		Msg("Round evaluated")

	if winnerSlot >= 0 && s.Scores[winnerSlot] >= s.Params.WinTarget {
		match, err := e.settle(ctx, s, winnerSlot)
		res.Match = match
		return res, err
	}

	// Draws and non-deciding rounds both start a fresh round with slot
	// A opening.
	s.Round++
	s.resetRound()
	return res, nil
}

// settle pays the winner, records rematch summaries for every human
// participant and removes the session with all its registry pointers.
// Exactly one of two things happens to the escrowed pot: it is credited
// to a human winner (stake plus payout), or retained when the house wins.
func (e *Engine) settle(ctx context.Context, s *Session, winnerSlot int) (*MatchResult, error) {
	s.Done = true

	winnerID := s.Key.PlayerB
	if winnerSlot == 0 {
		winnerID = s.Key.PlayerA
	}

	match := &MatchResult{
		WinnerSlot: winnerSlot,
		WinnerID:   winnerID,
		Scores:     s.Scores,
		Params:     s.Params,
	}

	var creditErr error
	if winnerID != House {
		// Round to the minor unit at the final credit step only.
		match.Payout = (s.Params.Wager*e.cfg.PayoutPercent + 50) / 100
		match.Credited = match.Payout + s.Params.Wager

		desc := fmt.Sprintf("%s match won, stake %d returned plus %d winnings", s.Params.Game, s.Params.Wager, match.Payout)
		if _, err := e.ledger.Adjust(ctx, winnerID, match.Credited, model.TxTypePayout, desc); err != nil {
			creditErr = fmt.Errorf("settlement credit failed: %w", err)
			e.log.Error().Err(err).
				Str("session", s.Key.String()).
				Int64("winner", winnerID).
				Int64("amount", match.Credited).
				Msg("Settlement credit failed")
		} else {
			e.metrics.PaidOutTotal.Add(float64(match.Credited))
		}
	}

	for slot := 0; slot < 2; slot++ {
		id := s.Key.PlayerA
		opponent := s.Key.PlayerB
		if slot == 1 {
			id, opponent = opponent, id
		}
		if id == House {
			continue
		}
		e.summaries.Record(
			ParticipantKey{ChatID: s.Key.ChatID, UserID: id},
			Summary{Opponent: opponent, Params: s.Params},
		)
	}

	e.registry.Remove(s.Key)
	e.metrics.ActiveSessions.Set(float64(e.registry.Count()))

	winnerLabel := "player"
	if winnerID == House {
		winnerLabel = "house"
	}
	e.metrics.MatchesSettled.WithLabelValues(s.Params.Game, winnerLabel).Inc()

	e.log.Info().
		Str("session", s.Key.String()).
		Int64("winner", winnerID).
		Int64("payout", match.Payout).
		Msg("Match settled")

	return match, creditErr
}

// escrow debits one participant's wager into the pot.
func (e *Engine) escrow(ctx context.Context, userID int64, p Params) error {
	desc := fmt.Sprintf("%s match wager", p.Game)
	if _, err := e.ledger.Adjust(ctx, userID, -p.Wager, model.TxTypeEscrow, desc); err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return ErrInsufficientBalance
		case errors.Is(err, ledger.ErrNoSuchAccount):
			return err
		default:
			return fmt.Errorf("escrow debit failed: %w", err)
		}
	}
	e.metrics.EscrowedTotal.Add(float64(p.Wager))
	return nil
}

// refund returns an escrowed wager after a failed session start.
func (e *Engine) refund(ctx context.Context, userID int64, p Params) {
	desc := fmt.Sprintf("%s match aborted, wager returned", p.Game)
	if _, err := e.ledger.Adjust(ctx, userID, p.Wager, model.TxTypeRefund, desc); err != nil {
		e.log.Error().Err(err).Int64("player", userID).Int64("amount", p.Wager).
			Msg("Escrow refund failed")
	}
}

// newSession builds a registered-ready session for the given key.
func (e *Engine) newSession(key SessionKey, p Params, rule game.ScoreRule, source game.OutcomeSource) *Session {
	return &Session{
		Key:    key,
		Params: p,
		Round:  1,
		rule:   rule,
		source: source,
	}
}

// reject counts a rejected action by its reason.
func (e *Engine) reject(err error) {
	e.metrics.RejectedActions.WithLabelValues(err.Error()).Inc()
}
