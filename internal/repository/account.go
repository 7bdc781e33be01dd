// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"duel-game-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// AccountRepository handles ledger account persistence.
type AccountRepository struct {
	pool           *pgxpool.Pool
	initialBalance int64
}

// NewAccountRepository creates a new AccountRepository instance.
// initialBalance is the opening balance granted on account creation.
func NewAccountRepository(pool *pgxpool.Pool, initialBalance int64) *AccountRepository {
	return &AccountRepository{pool: pool, initialBalance: initialBalance}
}

// Create creates a new account with the given Telegram ID and username.
func (r *AccountRepository) Create(ctx context.Context, telegramID int64, username string) (*model.Account, error) {
	const query = `
		INSERT INTO accounts (telegram_id, username, balance, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING telegram_id, username, balance, created_at, updated_at
	`

	var acct model.Account
	err := r.pool.QueryRow(ctx, query, telegramID, username, r.initialBalance).Scan(
		&acct.TelegramID,
		&acct.Username,
		&acct.Balance,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return &acct, nil
}

// GetByID retrieves an account by its Telegram ID.
// Returns ErrAccountNotFound if the account does not exist.
func (r *AccountRepository) GetByID(ctx context.Context, telegramID int64) (*model.Account, error) {
	const query = `
		SELECT telegram_id, username, balance, created_at, updated_at
		FROM accounts
		WHERE telegram_id = $1
	`

	var acct model.Account
	err := r.pool.QueryRow(ctx, query, telegramID).Scan(
		&acct.TelegramID,
		&acct.Username,
		&acct.Balance,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acct, nil
}

// GetOrCreate retrieves an account by Telegram ID, creating one if it doesn't exist.
func (r *AccountRepository) GetOrCreate(ctx context.Context, telegramID int64, username string) (*model.Account, bool, error) {
	acct, err := r.GetByID(ctx, telegramID)
	if err == nil {
		return acct, false, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, false, err
	}

	acct, err = r.Create(ctx, telegramID, username)
	if err != nil {
		// Handle race condition: another request might have created the account
		acct, err = r.GetByID(ctx, telegramID)
		if err != nil {
			return nil, false, err
		}
		return acct, false, nil
	}

	return acct, true, nil
}

// AdjustBalance updates an account's balance by adding the specified amount.
// The amount can be negative to debit. A debit that would take the balance
// below zero fails with ErrInsufficientFunds and leaves the row untouched.
func (r *AccountRepository) AdjustBalance(ctx context.Context, telegramID int64, amount int64) (*model.Account, error) {
	const query = `
		UPDATE accounts
		SET balance = balance + $2, updated_at = NOW()
		WHERE telegram_id = $1 AND balance + $2 >= 0
		RETURNING telegram_id, username, balance, created_at, updated_at
	`

	var acct model.Account
	err := r.pool.QueryRow(ctx, query, telegramID, amount).Scan(
		&acct.TelegramID,
		&acct.Username,
		&acct.Balance,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either no such account or the guard rejected the debit.
			if _, getErr := r.GetByID(ctx, telegramID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}

	return &acct, nil
}

// UpdateUsername updates an account's username.
func (r *AccountRepository) UpdateUsername(ctx context.Context, telegramID int64, username string) error {
	const query = `
		UPDATE accounts
		SET username = $2, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.pool.Exec(ctx, query, telegramID, username)
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// GetByUsername resolves a username to an account, for @mention challenges.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	const query = `
		SELECT telegram_id, username, balance, created_at, updated_at
		FROM accounts
		WHERE username = $1
	`

	var acct model.Account
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&acct.TelegramID,
		&acct.Username,
		&acct.Balance,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by username: %w", err)
	}

	return &acct, nil
}

// Exists checks if an account with the given Telegram ID exists.
func (r *AccountRepository) Exists(ctx context.Context, telegramID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM accounts WHERE telegram_id = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, telegramID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}

	return exists, nil
}
