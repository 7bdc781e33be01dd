package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"duel-game-bot/internal/repository"
)

// PostgresLedger backs the Ledger interface with the account and
// transaction repositories. Atomicity per account comes from the single
// guarded UPDATE in AccountRepository.AdjustBalance.
type PostgresLedger struct {
	accounts *repository.AccountRepository
	txs      *repository.TransactionRepository
}

// NewPostgresLedger creates a ledger over the given repositories.
func NewPostgresLedger(accounts *repository.AccountRepository, txs *repository.TransactionRepository) *PostgresLedger {
	return &PostgresLedger{accounts: accounts, txs: txs}
}

// Balance returns the current balance for an account.
func (l *PostgresLedger) Balance(ctx context.Context, accountID int64) (int64, error) {
	acct, err := l.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return 0, ErrNoSuchAccount
		}
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return acct.Balance, nil
}

// Adjust applies a delta and journals the change.
func (l *PostgresLedger) Adjust(ctx context.Context, accountID int64, delta int64, txType string, description string) (int64, error) {
	acct, err := l.accounts.AdjustBalance(ctx, accountID, delta)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAccountNotFound):
			return 0, ErrNoSuchAccount
		case errors.Is(err, repository.ErrInsufficientFunds):
			return 0, ErrInsufficientFunds
		default:
			return 0, fmt.Errorf("failed to adjust balance: %w", err)
		}
	}

	// The balance update is committed at this point. A failed journal
	// write must not be reported as a failed adjustment: callers treat an
	// Adjust error as "no money moved" and would retry or abort, losing
	// or double-counting the committed delta.
	if _, err := l.txs.Create(ctx, accountID, delta, txType, &description); err != nil {
		log.Error().Err(err).
			Int64("account", accountID).
			Int64("delta", delta).
			Str("type", txType).
			Msg("Journal write failed after balance update")
	}

	return acct.Balance, nil
}
