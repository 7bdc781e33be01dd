// Package ledger defines the balance ledger consumed by the match engine.
// A ledger must be atomic per account: concurrent debits and credits for the
// same account never interleave their read-modify-write.
package ledger

import (
	"context"
	"errors"
)

// Common ledger errors.
var (
	// ErrNoSuchAccount is returned when the account is not registered.
	ErrNoSuchAccount = errors.New("no such account")
	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Ledger reads and adjusts participant balances in minor currency units.
type Ledger interface {
	// Balance returns the current balance for an account.
	Balance(ctx context.Context, accountID int64) (int64, error)

	// Adjust applies a delta (negative to debit) and returns the new
	// balance. A debit below zero fails with ErrInsufficientFunds.
	// Any error means the balance was left unchanged; implementations
	// must not fail after the balance update took effect.
	Adjust(ctx context.Context, accountID int64, delta int64, txType string, description string) (int64, error)
}
