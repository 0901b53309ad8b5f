// Package escrow defines the chip-custody collaborator (spec.md §6): the
// Room Controller locks and unlocks chips against it and settles a table's
// signed deltas through it. Escrow/blockchain chip-vault internals are out
// of scope (spec.md §1 Non-goals) — this package only defines the contract
// and an in-memory reference implementation suitable for tests and for a
// single-process deployment.
//
// Grounded on the teacher's pkg/server/internal/db.go balance bookkeeping
// (GetPlayerBalance/UpdatePlayerBalance), generalized from "balance lives in
// the same row as everything else" to a dedicated lock-ledger collaborator
// with idempotent calls, per spec.md §6's "all calls are idempotent and may
// fail transiently".
package escrow

import (
	"fmt"
	"sync"
)

// Client is the escrow collaborator interface (spec.md §6).
type Client interface {
	LockChips(wallet string, amount int64, tableID string) error
	UnlockChips(wallet string, amount int64, tableID string) error
	// SettleTable distributes signed deltas across wallets; callers must
	// ensure Σ delta == 0 before calling.
	SettleTable(tableID string, deltas map[string]int64) error
	GetLockedBalance(wallet string) (int64, error)
}

// InsufficientBalanceError reports a lock attempt exceeding a wallet's
// available (unlocked) balance.
type InsufficientBalanceError struct {
	Wallet    string
	Requested int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("escrow: wallet %s requested lock of %d, only %d available", e.Wallet, e.Requested, e.Available)
}

// InMemory is a reference Client backed by an in-process ledger. It is safe
// for concurrent use across tables (spec.md §5's "shared resources").
type InMemory struct {
	mu            sync.Mutex
	balances      map[string]int64 // wallet -> available (unlocked) balance
	locked        map[string]int64 // wallet -> currently locked balance
	seeded        map[string]bool  // wallets that have already received the faucet balance
	faucetBalance int64            // if > 0, a wallet's first lock lazily credits this much first
}

// NewInMemory returns an escrow with the given starting balances, useful
// for tests and single-process deployments where chip custody is not
// delegated to an external vault.
func NewInMemory(startingBalances map[string]int64) *InMemory {
	balances := make(map[string]int64, len(startingBalances))
	for w, b := range startingBalances {
		balances[w] = b
	}
	return &InMemory{balances: balances, locked: map[string]int64{}, seeded: map[string]bool{}}
}

// NewInMemoryFaucet returns an escrow that lazily credits every wallet with
// faucetBalance the first time it is locked against, since wallet funding is
// out of scope here (spec.md §1) and demo/local deployments have no real
// deposit flow to seed starting balances from.
func NewInMemoryFaucet(faucetBalance int64) *InMemory {
	e := NewInMemory(nil)
	e.faucetBalance = faucetBalance
	return e
}

func (e *InMemory) LockChips(wallet string, amount int64, tableID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if amount <= 0 {
		return fmt.Errorf("escrow: lock amount must be positive, got %d", amount)
	}
	if e.faucetBalance > 0 && !e.seeded[wallet] {
		e.balances[wallet] += e.faucetBalance
		e.seeded[wallet] = true
	}
	if e.balances[wallet] < amount {
		return &InsufficientBalanceError{Wallet: wallet, Requested: amount, Available: e.balances[wallet]}
	}
	e.balances[wallet] -= amount
	e.locked[wallet] += amount
	return nil
}

func (e *InMemory) UnlockChips(wallet string, amount int64, tableID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if amount <= 0 {
		return nil // idempotent no-op, matches spec.md §6 "all calls are idempotent"
	}
	if amount > e.locked[wallet] {
		amount = e.locked[wallet]
	}
	e.locked[wallet] -= amount
	e.balances[wallet] += amount
	return nil
}

func (e *InMemory) SettleTable(tableID string, deltas map[string]int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sum int64
	for _, d := range deltas {
		sum += d
	}
	if sum != 0 {
		return fmt.Errorf("escrow: settlement deltas must sum to zero, got %d", sum)
	}

	for wallet, delta := range deltas {
		e.locked[wallet] += delta
		if e.locked[wallet] < 0 {
			e.locked[wallet] = 0
		}
	}
	return nil
}

func (e *InMemory) GetLockedBalance(wallet string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.locked[wallet], nil
}
