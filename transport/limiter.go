package transport

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// AccountLimiter serializes mutating submissions per signing account.
// Concurrent submissions from one account race on sequence-number assignment
// and the ledger rejects the loser, so at most one mutating submission may be
// in flight per account. Read-only queries need no limiting.
//
// A single limiter may be shared by several clients signing for the same
// accounts; the zero value is not usable, construct with NewAccountLimiter.
type AccountLimiter struct {
	mu    sync.Mutex
	slots map[string]*semaphore.Weighted
}

// NewAccountLimiter creates an empty limiter.
func NewAccountLimiter() *AccountLimiter {
	return &AccountLimiter{slots: make(map[string]*semaphore.Weighted)}
}

// Acquire blocks until the account's submission slot is free or ctx is done.
func (l *AccountLimiter) Acquire(ctx context.Context, account string) error {
	return l.slot(account).Acquire(ctx, 1)
}

// Release frees the account's submission slot.
func (l *AccountLimiter) Release(account string) {
	l.slot(account).Release(1)
}

func (l *AccountLimiter) slot(account string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[account]
	if !ok {
		s = semaphore.NewWeighted(1)
		l.slots[account] = s
	}
	return s
}
