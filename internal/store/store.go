// Package store defines the ledger store for the payments engine: the sole
// owner of account and transaction-history state for one processing run.
package store

import (
	"context"
	"errors"

	"github.com/atmx/payments-engine/internal/model"
)

var (
	// ErrAccountNotFound is returned by GetAccount for an unseen client.
	ErrAccountNotFound = errors.New("store: account not found")

	// ErrTxNotFound is returned by FindHistory for an unknown tx id.
	ErrTxNotFound = errors.New("store: transaction not found")

	// ErrDuplicateTx is returned by RecordHistory when the tx id already exists.
	ErrDuplicateTx = errors.New("store: duplicate transaction id")

	// ErrStateConflict is returned by TransitionHistory when the entry is
	// not in the expected state.
	ErrStateConflict = errors.New("store: dispute state conflict")
)

// Stats summarizes the contents of a store.
type Stats struct {
	Accounts       int `json:"accounts"`
	LockedAccounts int `json:"locked_accounts"`
	HistoryEntries int `json:"history_entries"`
}

// Store is the ledger store interface. Every mutation touches exactly one
// account or one history entry; nothing here has cross-account effects.
// Returned values are copies; callers mutate state only through
// UpdateAccount and TransitionHistory.
type Store interface {
	// --- Accounts ---

	// GetOrCreateAccount returns the account for id, creating a zeroed,
	// unlocked one on first reference.
	GetOrCreateAccount(ctx context.Context, id model.ClientID) (*model.Account, error)

	// GetAccount returns an existing account without creating it.
	GetAccount(ctx context.Context, id model.ClientID) (*model.Account, error)

	// UpdateAccount applies fn to a copy of the account and commits the copy
	// only if fn returns nil. The account must already exist.
	UpdateAccount(ctx context.Context, id model.ClientID, fn func(*model.Account) error) error

	// --- Transaction history ---

	// RecordHistory stores a new entry for an accepted deposit or withdrawal.
	RecordHistory(ctx context.Context, entry *model.HistoryEntry) error

	// FindHistory looks up an entry by tx id.
	FindHistory(ctx context.Context, tx model.TxID) (*model.HistoryEntry, error)

	// TransitionHistory moves an entry from one dispute state to another.
	TransitionHistory(ctx context.Context, tx model.TxID, from, to model.DisputeState) error

	// --- Read-out ---

	// SnapshotAll returns every account in discovery order.
	SnapshotAll(ctx context.Context) ([]model.Account, error)

	// Stats returns current counts.
	Stats(ctx context.Context) (Stats, error)
}
