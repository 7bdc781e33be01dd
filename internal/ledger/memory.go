package ledger

import (
	"context"
	"sync"
)

// MemoryLedger is an in-memory Ledger used in tests and as a stand-in when
// no database is configured. Safe for concurrent use.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[int64]int64
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[int64]int64)}
}

// Open registers an account with an opening balance, replacing any
// existing balance.
func (l *MemoryLedger) Open(accountID int64, balance int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[accountID] = balance
}

// Balance returns the current balance for an account.
func (l *MemoryLedger) Balance(_ context.Context, accountID int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[accountID]
	if !ok {
		return 0, ErrNoSuchAccount
	}
	return bal, nil
}

// Adjust applies a delta under the ledger mutex.
func (l *MemoryLedger) Adjust(_ context.Context, accountID int64, delta int64, _ string, _ string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[accountID]
	if !ok {
		return 0, ErrNoSuchAccount
	}
	if bal+delta < 0 {
		return 0, ErrInsufficientFunds
	}
	l.balances[accountID] = bal + delta
	return bal + delta, nil
}
