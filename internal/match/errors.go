package match

import "errors"

// Expected, recoverable rejections. Every operation returns one of these as
// a structured result; none of them is fatal and none leaves a partial
// mutation behind.
var (
	// ErrInvalidWager is returned when the wager is non-positive or
	// outside the configured bounds.
	ErrInvalidWager = errors.New("invalid wager")

	// ErrInsufficientBalance is returned when the caller cannot cover
	// the wager.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAlreadyInSession is returned when the caller already has an
	// active match in this chat.
	ErrAlreadyInSession = errors.New("already in an active match")

	// ErrNotYourSetup is returned when a setup action comes from someone
	// other than the initiator, or responds to a replaced prompt.
	ErrNotYourSetup = errors.New("not your setup")

	// ErrStaleAnchor is returned when an action responds to a prompt
	// that is no longer current.
	ErrStaleAnchor = errors.New("stale prompt")

	// ErrNotYourTurn is returned when the actor is not the current turn
	// holder.
	ErrNotYourTurn = errors.New("not your turn")

	// ErrWrongRound is returned when an action references a round other
	// than the current one.
	ErrWrongRound = errors.New("wrong round")

	// ErrMatchAlreadyOver is returned when a turn arrives after a slot
	// reached the win target.
	ErrMatchAlreadyOver = errors.New("match already over")

	// ErrNoActiveSession is returned when an action references a session
	// that is not registered.
	ErrNoActiveSession = errors.New("no active match")

	// ErrChallengeNotFound is returned when the challenge id is absent
	// from the pending table.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrSelfChallenge is returned when a player challenges themselves.
	ErrSelfChallenge = errors.New("cannot challenge yourself")

	// ErrOpponentBusy is returned when the challenged player already has
	// an active match.
	ErrOpponentBusy = errors.New("opponent already in a match")

	// ErrEitherBusy is returned at accept time when either party has
	// entered a match since the challenge was proposed.
	ErrEitherBusy = errors.New("a participant is already in a match")

	// ErrOpponentUnderfunded is returned when the challenged player
	// cannot cover the wager.
	ErrOpponentUnderfunded = errors.New("opponent cannot cover the wager")

	// ErrNoPriorSession is returned when a rematch is requested without
	// a completed match to repeat.
	ErrNoPriorSession = errors.New("no previous match")

	// ErrUnknownGame is returned when the game command is not registered.
	ErrUnknownGame = errors.New("unknown game")

	// ErrInvalidWinTarget is returned when the win target is not one of
	// the configured choices.
	ErrInvalidWinTarget = errors.New("invalid win target")

	// ErrSetupIncomplete is returned when confirm arrives before mode
	// and win target were selected.
	ErrSetupIncomplete = errors.New("setup incomplete")
)
