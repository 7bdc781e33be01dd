// Package match implements the session lifecycle and turn-coordination
// engine for two-party wagering duels: negotiation, challenges, round play
// against a player or the house, settlement and rematches. All state is
// in-memory and per-process; persistence is limited to the balance ledger.
package match

import (
	"fmt"

	"duel-game-bot/internal/game"
)

// House is the synthetic opponent's participant id. It owns no ledger
// account: its stakes are never escrowed and its wins retain the pot.
const House int64 = 0

// ParticipantKey identifies a participant within one chat. It is the
// session-membership key: at most one active session may exist per key.
type ParticipantKey struct {
	ChatID int64
	UserID int64
}

// String renders the key for keyed locking.
func (k ParticipantKey) String() string {
	return fmt.Sprintf("player:%d:%d", k.ChatID, k.UserID)
}

// SessionKey identifies one active match.
type SessionKey struct {
	ChatID  int64
	PlayerA int64
	PlayerB int64 // House for bot matches
}

// String renders the key for keyed locking.
func (k SessionKey) String() string {
	return fmt.Sprintf("session:%d:%d:%d", k.ChatID, k.PlayerA, k.PlayerB)
}

// Anchor ties an incoming action to the prompt message it responds to.
// Zero means no prompt is currently anchored and every action is stale.
type Anchor int

// Params is a finalized wager configuration produced by negotiation and
// consumed by session construction.
type Params struct {
	Game      string
	Mode      string
	WinTarget int
	Wager     int64
}

// Session is one active match between two slots. Slot 0 is always the
// initiator and opens every round; slot 1 may be the house. All mutation
// happens under the engine's per-session lock.
type Session struct {
	Key       SessionKey
	Params    Params
	Scores    [2]int
	Buffers   [2][]int
	Collected [2]int
	Turn      int // slot index holding the turn
	Round     int
	Anchor    Anchor
	Done      bool

	rule   game.ScoreRule
	source game.OutcomeSource
}

// IsHouseSlot reports whether the given slot is the synthetic opponent.
func (s *Session) IsHouseSlot(slot int) bool {
	return s.slotID(slot) == House
}

// SlotOf resolves a participant id to its slot index, or -1.
func (s *Session) SlotOf(userID int64) int {
	switch userID {
	case s.Key.PlayerA:
		return 0
	case s.Key.PlayerB:
		return 1
	default:
		return -1
	}
}

// Humans returns the participant keys of all human slots.
func (s *Session) Humans() []ParticipantKey {
	keys := make([]ParticipantKey, 0, 2)
	for slot := 0; slot < 2; slot++ {
		if id := s.slotID(slot); id != House {
			keys = append(keys, ParticipantKey{ChatID: s.Key.ChatID, UserID: id})
		}
	}
	return keys
}

// OutcomesPerTurn is each slot's per-round outcome quota.
func (s *Session) OutcomesPerTurn() int {
	return s.rule.OutcomesPerTurn()
}

// PlayerID returns the participant id occupying a slot.
func (s *Session) PlayerID(slot int) int64 {
	return s.slotID(slot)
}

func (s *Session) slotID(slot int) int64 {
	if slot == 0 {
		return s.Key.PlayerA
	}
	return s.Key.PlayerB
}

// resetRound clears both buffers and hands the opening turn back to slot 0.
func (s *Session) resetRound() {
	s.Buffers[0] = nil
	s.Buffers[1] = nil
	s.Collected[0] = 0
	s.Collected[1] = 0
	s.Turn = 0
	s.Anchor = 0
}
