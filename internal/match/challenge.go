package match

import (
	"context"
	"sync"
	"time"
)

// Challenge is a pending player-versus-player invitation. It binds the
// full parameter set at proposal time; nothing is renegotiated on accept.
// A zero ExpiresAt means the challenge never expires.
type Challenge struct {
	ID        int64
	ChatID    int64
	Initiator int64
	Opponent  int64
	Params    Params
	ExpiresAt time.Time
}

// Broker manages pending challenges between players. Challenges expire
// after a configured TTL; expiry is lazy, enforced whenever the pending
// set is touched, so no background reaper is needed.
type Broker struct {
	engine *Engine
	ttl    time.Duration

	mu      sync.Mutex
	nextID  int64
	pending map[int64]*Challenge

	now func() time.Time
}

// NewBroker creates a challenge broker with the given time-to-live for
// pending challenges. A non-positive TTL disables expiry.
func NewBroker(engine *Engine, ttl time.Duration) *Broker {
	return &Broker{
		engine:  engine,
		ttl:     ttl,
		pending: make(map[int64]*Challenge),
		now:     time.Now,
	}
}

// Propose creates a pending challenge from initiator to opponent. Both
// parties must be free and able to cover the wager; these are advisory
// checks repeated authoritatively when the challenge is accepted.
func (b *Broker) Propose(ctx context.Context, chatID, initiator, opponent int64, p Params) (Challenge, error) {
	if initiator == opponent {
		return Challenge{}, ErrSelfChallenge
	}
	if _, _, err := b.engine.resolve(p); err != nil {
		return Challenge{}, err
	}

	reg := b.engine.Registry()
	if reg.IsBusy(ParticipantKey{ChatID: chatID, UserID: initiator}) {
		return Challenge{}, ErrAlreadyInSession
	}
	if reg.IsBusy(ParticipantKey{ChatID: chatID, UserID: opponent}) {
		return Challenge{}, ErrOpponentBusy
	}

	balance, err := b.engine.ledger.Balance(ctx, initiator)
	if err != nil {
		return Challenge{}, err
	}
	if balance < p.Wager {
		return Challenge{}, ErrInsufficientBalance
	}
	balance, err = b.engine.ledger.Balance(ctx, opponent)
	if err != nil {
		return Challenge{}, err
	}
	if balance < p.Wager {
		return Challenge{}, ErrOpponentUnderfunded
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune()

	b.nextID++
	ch := &Challenge{
		ID:        b.nextID,
		ChatID:    chatID,
		Initiator: initiator,
		Opponent:  opponent,
		Params:    p,
	}
	if b.ttl > 0 {
		ch.ExpiresAt = b.now().Add(b.ttl)
	}
	b.pending[ch.ID] = ch
	return *ch, nil
}

// Accept consumes the challenge and starts the match. Only the challenged
// opponent may accept; actions from anyone else are ignored and the
// challenge stays pending. If the match cannot start (either party became
// busy or underfunded), the challenge is restored so it can be retried
// until its TTL runs out.
//
// A nil session with a nil error means the action was ignored.
func (b *Broker) Accept(ctx context.Context, challengeID, responder int64) (*Session, error) {
	b.mu.Lock()
	b.prune()
	ch, ok := b.pending[challengeID]
	if !ok {
		b.mu.Unlock()
		return nil, ErrChallengeNotFound
	}
	if responder != ch.Opponent {
		b.mu.Unlock()
		return nil, nil
	}
	// Claim the challenge so a racing accept sees it gone.
	delete(b.pending, challengeID)
	b.mu.Unlock()

	s, err := b.engine.StartPlayerMatch(ctx, ch.ChatID, ch.Initiator, ch.Opponent, ch.Params)
	if err != nil {
		b.mu.Lock()
		if ch.ExpiresAt.IsZero() || b.now().Before(ch.ExpiresAt) {
			b.pending[challengeID] = ch
		}
		b.mu.Unlock()
		return nil, err
	}
	return s, nil
}

// Decline withdraws the challenge. Both the initiator and the opponent
// may decline; anyone else is ignored. Returns true when the challenge
// was removed.
func (b *Broker) Decline(challengeID, actor int64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune()

	ch, ok := b.pending[challengeID]
	if !ok {
		return false, ErrChallengeNotFound
	}
	if actor != ch.Initiator && actor != ch.Opponent {
		return false, nil
	}
	delete(b.pending, challengeID)
	return true, nil
}

// Get returns a pending challenge by id.
func (b *Broker) Get(challengeID int64) (Challenge, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune()

	ch, ok := b.pending[challengeID]
	if !ok {
		return Challenge{}, false
	}
	return *ch, true
}

// prune drops expired challenges. Caller holds b.mu.
func (b *Broker) prune() {
	now := b.now()
	for id, ch := range b.pending {
		if !ch.ExpiresAt.IsZero() && !now.Before(ch.ExpiresAt) {
			delete(b.pending, id)
		}
	}
}
