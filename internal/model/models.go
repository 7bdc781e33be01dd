// Package model defines the data models for the wagering duel bot.
package model

import "time"

// Account represents a participant's ledger account. Balance is held in
// minor currency units (cents).
type Account struct {
	TelegramID int64     `db:"telegram_id"`
	Username   string    `db:"username"`
	Balance    int64     `db:"balance"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Transaction represents a balance change record.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeInitial = "initial" // Initial balance on account creation
	TxTypeEscrow  = "escrow"  // Wager debited at match start
	TxTypePayout  = "payout"  // Stake plus winnings credited to the match winner
	TxTypeRefund  = "refund"  // Escrow returned after a failed match start
	TxTypeAdmin   = "admin"   // Manual adjustment
)
