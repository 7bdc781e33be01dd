package match

import "context"

// RematchOutcome is the result of a rematch request. Exactly one of
// Session and Challenge is set: house rematches start immediately, human
// rematches go back through a challenge the prior opponent must accept.
type RematchOutcome struct {
	Session   *Session
	Challenge *Challenge
	Params    Params
}

// Rematch restarts a participant's most recent match, either as played
// or with the stake doubled.
type Rematch struct {
	engine *Engine
	broker *Broker
}

// NewRematch creates the rematch coordinator.
func NewRematch(engine *Engine, broker *Broker) *Rematch {
	return &Rematch{engine: engine, broker: broker}
}

// PlayAgain restarts the caller's last match with identical parameters.
func (r *Rematch) PlayAgain(ctx context.Context, actor ParticipantKey) (*RematchOutcome, error) {
	return r.restart(ctx, actor, 1)
}

// DoubleOrNothing restarts the caller's last match with the wager
// doubled. The doubled wager goes through the same bounds and balance
// checks as a fresh match, so a streak of doubles ends the moment either
// party can no longer cover it.
func (r *Rematch) DoubleOrNothing(ctx context.Context, actor ParticipantKey) (*RematchOutcome, error) {
	return r.restart(ctx, actor, 2)
}

func (r *Rematch) restart(ctx context.Context, actor ParticipantKey, multiplier int64) (*RematchOutcome, error) {
	summary, ok := r.engine.Summaries().Get(actor)
	if !ok {
		return nil, ErrNoPriorSession
	}

	p := summary.Params
	p.Wager *= multiplier

	if summary.Opponent == House {
		s, err := r.engine.BeginBotMatch(ctx, actor.ChatID, actor.UserID, p)
		if err != nil {
			return nil, err
		}
		return &RematchOutcome{Session: s, Params: p}, nil
	}

	ch, err := r.broker.Propose(ctx, actor.ChatID, actor.UserID, summary.Opponent, p)
	if err != nil {
		return nil, err
	}
	return &RematchOutcome{Challenge: &ch, Params: p}, nil
}
