// Tests use testcontainers-go to spin up a PostgreSQL container.
package ledger

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"duel-game-bot/internal/model"
	"duel-game-bot/internal/repository"
)

const testInitialBalance int64 = 500_00

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupLedger creates a PostgreSQL container, applies the schema and
// returns a ledger over it. Skips the test if Docker is not available.
func setupLedger(t *testing.T, withJournal bool) (*PostgresLedger, *pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	require.NoError(t, err)

	if withJournal {
		_, err = pool.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS transactions (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES accounts(telegram_id) ON DELETE CASCADE,
				amount BIGINT NOT NULL,
				type VARCHAR(50) NOT NULL,
				description TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`)
		require.NoError(t, err)
	}

	accounts := repository.NewAccountRepository(pool, testInitialBalance)
	txs := repository.NewTransactionRepository(pool)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return NewPostgresLedger(accounts, txs), pool, cleanup
}

func TestPostgresLedger_AdjustAndBalance(t *testing.T) {
	led, pool, cleanup := setupLedger(t, true)
	defer cleanup()

	ctx := context.Background()
	accounts := repository.NewAccountRepository(pool, testInitialBalance)
	_, err := accounts.Create(ctx, 111, "alice")
	require.NoError(t, err)

	newBalance, err := led.Adjust(ctx, 111, -100_00, model.TxTypeEscrow, "darts match wager")
	require.NoError(t, err)
	assert.Equal(t, testInitialBalance-100_00, newBalance)

	balance, err := led.Balance(ctx, 111)
	require.NoError(t, err)
	assert.Equal(t, newBalance, balance)

	_, err = led.Adjust(ctx, 111, -testInitialBalance, model.TxTypeEscrow, "over-debit")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = led.Adjust(ctx, 999, -1_00, model.TxTypeEscrow, "no such player")
	assert.ErrorIs(t, err, ErrNoSuchAccount)

	_, err = led.Balance(ctx, 999)
	assert.ErrorIs(t, err, ErrNoSuchAccount)
}

// TestPostgresLedger_JournalFailureKeepsAdjustment drops the journal out
// from under the ledger. The balance update commits on its own, so a
// failed journal write must surface as a successful adjustment: reporting
// an error here would make callers treat committed money as unmoved.
func TestPostgresLedger_JournalFailureKeepsAdjustment(t *testing.T) {
	led, pool, cleanup := setupLedger(t, false)
	defer cleanup()

	ctx := context.Background()
	accounts := repository.NewAccountRepository(pool, testInitialBalance)
	_, err := accounts.Create(ctx, 111, "alice")
	require.NoError(t, err)

	newBalance, err := led.Adjust(ctx, 111, -100_00, model.TxTypeEscrow, "darts match wager")
	require.NoError(t, err)
	assert.Equal(t, testInitialBalance-100_00, newBalance)

	balance, err := led.Balance(ctx, 111)
	require.NoError(t, err)
	assert.Equal(t, testInitialBalance-100_00, balance)
}
