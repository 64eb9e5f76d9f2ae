package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/atmx/payments-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. It holds all ledger
// state for a single run; nothing is persisted.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[model.ClientID]*model.Account
	order    []model.ClientID // discovery order
	history  map[model.TxID]*model.HistoryEntry
	locked   int
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[model.ClientID]*model.Account),
		history:  make(map[model.TxID]*model.HistoryEntry),
	}
}

func (s *MemoryStore) GetOrCreateAccount(_ context.Context, id model.ClientID) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		a = model.NewAccount(id)
		s.accounts[id] = a
		s.order = append(s.order, id)
	}
	copy := *a
	return &copy, nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id model.ClientID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: client %d", ErrAccountNotFound, id)
	}
	copy := *a
	return &copy, nil
}

func (s *MemoryStore) UpdateAccount(_ context.Context, id model.ClientID, fn func(*model.Account) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%w: client %d", ErrAccountNotFound, id)
	}

	next := *a
	if err := fn(&next); err != nil {
		return err
	}
	// Client is the key and never changes; locked never clears.
	next.Client = a.Client
	if a.Locked {
		next.Locked = true
	} else if next.Locked {
		s.locked++
	}
	*a = next
	return nil
}

func (s *MemoryStore) RecordHistory(_ context.Context, entry *model.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.history[entry.Tx]; exists {
		return fmt.Errorf("%w: tx %d", ErrDuplicateTx, entry.Tx)
	}
	copy := *entry
	s.history[entry.Tx] = &copy
	return nil
}

func (s *MemoryStore) FindHistory(_ context.Context, tx model.TxID) (*model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.history[tx]
	if !ok {
		return nil, fmt.Errorf("%w: tx %d", ErrTxNotFound, tx)
	}
	copy := *e
	return &copy, nil
}

func (s *MemoryStore) TransitionHistory(_ context.Context, tx model.TxID, from, to model.DisputeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.history[tx]
	if !ok {
		return fmt.Errorf("%w: tx %d", ErrTxNotFound, tx)
	}
	if e.State != from || !from.CanTransition(to) {
		return fmt.Errorf("%w: tx %d is %s, cannot move %s -> %s", ErrStateConflict, tx, e.State, from, to)
	}
	e.State = to
	return nil
}

func (s *MemoryStore) SnapshotAll(_ context.Context) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]model.Account, 0, len(s.order))
	for _, id := range s.order {
		accounts = append(accounts, *s.accounts[id])
	}
	return accounts, nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Accounts:       len(s.accounts),
		LockedAccounts: s.locked,
		HistoryEntries: len(s.history),
	}, nil
}
