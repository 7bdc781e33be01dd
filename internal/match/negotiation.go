package match

import (
	"context"
	"sync"
)

// SetupStep tracks how far a pre-match setup dialog has advanced.
type SetupStep int

const (
	StepMode SetupStep = iota
	StepTarget
	StepConfirm
)

// Setup is an in-flight pre-match dialog. It belongs to exactly one
// initiator and lives until confirmed, cancelled or replaced by a newer
// setup from the same initiator.
type Setup struct {
	Initiator ParticipantKey
	Opponent  int64 // House when the match is against the bot
	Game      string
	Wager     int64
	Mode      string
	WinTarget int
	Step      SetupStep
	Anchor    Anchor
}

// MatchParams returns the parameters collected by the dialog.
func (s Setup) MatchParams() Params {
	return Params{
		Game:      s.Game,
		Mode:      s.Mode,
		WinTarget: s.WinTarget,
		Wager:     s.Wager,
	}
}

// Negotiation runs the setup dialog that turns a game command into
// confirmed match parameters. Setups are keyed per initiator; starting a
// new one discards the old, so abandoned dialogs never need reaping.
type Negotiation struct {
	engine *Engine

	mu     sync.Mutex
	setups map[ParticipantKey]*Setup
}

// NewNegotiation creates the setup workflow backed by the engine's
// variant registry, ledger and configuration.
func NewNegotiation(engine *Engine) *Negotiation {
	return &Negotiation{
		engine: engine,
		setups: make(map[ParticipantKey]*Setup),
	}
}

// Begin starts a setup dialog for the given game and wager. Opponent is
// House for a bot match, or the challenged player's id. The wager is
// validated against bounds and the initiator's balance up front so a
// doomed dialog never gets off the ground; the balance is checked again
// at escrow time when the match actually starts.
func (n *Negotiation) Begin(ctx context.Context, initiator ParticipantKey, opponent int64, gameCmd string, wager int64) (Setup, error) {
	variant, ok := n.engine.Games().Get(gameCmd)
	if !ok {
		return Setup{}, ErrUnknownGame
	}
	if opponent == initiator.UserID {
		return Setup{}, ErrSelfChallenge
	}
	if err := n.engine.ValidateWager(wager); err != nil {
		return Setup{}, err
	}
	if n.engine.Registry().IsBusy(initiator) {
		return Setup{}, ErrAlreadyInSession
	}
	balance, err := n.engine.ledger.Balance(ctx, initiator.UserID)
	if err != nil {
		return Setup{}, err
	}
	if balance < wager {
		return Setup{}, ErrInsufficientBalance
	}

	setup := &Setup{
		Initiator: initiator,
		Opponent:  opponent,
		Game:      gameCmd,
		Wager:     wager,
		Step:      StepMode,
	}
	// Single-mode games skip straight to target selection.
	if modes := variant.Modes(); len(modes) == 1 {
		setup.Mode = modes[0]
		setup.Step = StepTarget
	}

	n.mu.Lock()
	n.setups[initiator] = setup
	n.mu.Unlock()

	return *setup, nil
}

// SetAnchor records the dialog message the next setup action must answer.
func (n *Negotiation) SetAnchor(initiator ParticipantKey, anchor Anchor) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	setup, ok := n.setups[initiator]
	if !ok {
		return ErrNotYourSetup
	}
	setup.Anchor = anchor
	return nil
}

// claim fetches the caller's setup and checks the action against the
// current dialog anchor. Caller holds n.mu.
func (n *Negotiation) claim(actor ParticipantKey, anchor Anchor) (*Setup, error) {
	setup, ok := n.setups[actor]
	if !ok {
		return nil, ErrNotYourSetup
	}
	if anchor == 0 || anchor != setup.Anchor {
		return nil, ErrNotYourSetup
	}
	return setup, nil
}

// SelectMode records the chosen scoring mode and advances the dialog.
func (n *Negotiation) SelectMode(actor ParticipantKey, anchor Anchor, mode string) (Setup, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	setup, err := n.claim(actor, anchor)
	if err != nil {
		return Setup{}, err
	}
	if setup.Step != StepMode {
		return Setup{}, ErrNotYourSetup
	}
	variant, ok := n.engine.Games().Get(setup.Game)
	if !ok {
		return Setup{}, ErrUnknownGame
	}
	if _, err := variant.Rule(mode); err != nil {
		return Setup{}, err
	}
	setup.Mode = mode
	setup.Step = StepTarget
	setup.Anchor = 0
	return *setup, nil
}

// SelectTarget records the chosen win target and advances the dialog.
func (n *Negotiation) SelectTarget(actor ParticipantKey, anchor Anchor, target int) (Setup, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	setup, err := n.claim(actor, anchor)
	if err != nil {
		return Setup{}, err
	}
	if setup.Step != StepTarget {
		return Setup{}, ErrNotYourSetup
	}
	if !n.engine.Config().IsWinTarget(target) {
		return Setup{}, ErrInvalidWinTarget
	}
	setup.WinTarget = target
	setup.Step = StepConfirm
	setup.Anchor = 0
	return *setup, nil
}

// Confirm finalizes the dialog and returns the agreed setup. The setup is
// destroyed whether or not the subsequent match start succeeds; a failed
// start means negotiating again.
func (n *Negotiation) Confirm(actor ParticipantKey, anchor Anchor) (Setup, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	setup, err := n.claim(actor, anchor)
	if err != nil {
		return Setup{}, err
	}
	if setup.Step != StepConfirm {
		return Setup{}, ErrSetupIncomplete
	}
	delete(n.setups, actor)
	return *setup, nil
}

// Cancel abandons the dialog.
func (n *Negotiation) Cancel(actor ParticipantKey, anchor Anchor) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, err := n.claim(actor, anchor); err != nil {
		return err
	}
	delete(n.setups, actor)
	return nil
}

// Get returns the caller's current setup, if any.
func (n *Negotiation) Get(actor ParticipantKey) (Setup, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	setup, ok := n.setups[actor]
	if !ok {
		return Setup{}, false
	}
	return *setup, true
}
