// Package engine implements the transaction processor: it interprets each
// record against the ledger store, enforces balance invariants and drives
// the dispute lifecycle of deposits and withdrawals.
//
// Monetary values are shopspring/decimal throughout. Never float64.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/payments-engine/internal/logging"
	"github.com/atmx/payments-engine/internal/metrics"
	"github.com/atmx/payments-engine/internal/model"
	"github.com/atmx/payments-engine/internal/store"
)

// Notifier receives ledger events worth surfacing outside the engine.
type Notifier interface {
	AccountLocked(account model.Account, tx model.TxID)
}

// Processor applies records to a ledger store. It keeps no state of its own;
// the store owns every account and history entry.
type Processor struct {
	store  store.Store
	notify Notifier // optional
}

// NewProcessor creates a processor over st.
// Pass nil for n if lock events are not needed.
func NewProcessor(st store.Store, n Notifier) *Processor {
	return &Processor{store: st, notify: n}
}

// Store returns the ledger store the processor writes to.
func (p *Processor) Store() store.Store {
	return p.store
}

// Apply interprets a single record. A non-nil error for which IsRejection
// is true means the record was dropped without touching the ledger.
func (p *Processor) Apply(ctx context.Context, tx model.Transaction) error {
	start := time.Now()
	err := p.apply(ctx, tx)
	metrics.ApplyLatency.WithLabelValues(string(tx.Kind())).Observe(time.Since(start).Seconds())
	return err
}

func (p *Processor) apply(ctx context.Context, tx model.Transaction) error {
	acct, err := p.store.GetOrCreateAccount(ctx, tx.ClientID())
	if err != nil {
		return fmt.Errorf("engine: load account %d: %w", tx.ClientID(), err)
	}
	// A chargeback freezes the account for the rest of the run.
	if acct.Locked {
		return ErrAccountLocked
	}

	switch t := tx.(type) {
	case model.Deposit:
		return p.deposit(ctx, t)
	case model.Withdrawal:
		return p.withdraw(ctx, acct, t)
	case model.Dispute:
		return p.dispute(ctx, t)
	case model.Resolve:
		return p.resolve(ctx, t)
	case model.Chargeback:
		return p.chargeback(ctx, t)
	}
	return fmt.Errorf("engine: unsupported transaction %T", tx)
}

func (p *Processor) deposit(ctx context.Context, t model.Deposit) error {
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if err := p.record(ctx, t.Tx, t.Client, model.KindDeposit, t.Amount); err != nil {
		return err
	}
	return p.update(ctx, t.Client, func(a *model.Account) error {
		a.Credit(t.Amount)
		return nil
	})
}

func (p *Processor) withdraw(ctx context.Context, acct *model.Account, t model.Withdrawal) error {
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if !acct.CanDebit(t.Amount) {
		return ErrInsufficientFunds
	}
	if err := p.record(ctx, t.Tx, t.Client, model.KindWithdrawal, t.Amount); err != nil {
		return err
	}
	return p.update(ctx, t.Client, func(a *model.Account) error {
		if !a.CanDebit(t.Amount) {
			return ErrInsufficientFunds
		}
		a.Debit(t.Amount)
		return nil
	})
}

func (p *Processor) dispute(ctx context.Context, t model.Dispute) error {
	entry, err := p.lookup(ctx, t.Client, t.Tx)
	if err != nil {
		return err
	}
	if !entry.State.CanTransition(model.StateDisputed) {
		return ErrNotDisputable
	}
	if err := p.transition(ctx, entry, model.StateDisputed, ErrNotDisputable); err != nil {
		return err
	}
	return p.update(ctx, t.Client, func(a *model.Account) error {
		a.Hold(entry.Amount)
		return nil
	})
}

func (p *Processor) resolve(ctx context.Context, t model.Resolve) error {
	entry, err := p.lookup(ctx, t.Client, t.Tx)
	if err != nil {
		return err
	}
	if entry.State != model.StateDisputed {
		return ErrNotDisputed
	}
	if err := p.transition(ctx, entry, model.StateResolved, ErrNotDisputed); err != nil {
		return err
	}
	return p.update(ctx, t.Client, func(a *model.Account) error {
		a.Release(entry.Amount)
		return nil
	})
}

func (p *Processor) chargeback(ctx context.Context, t model.Chargeback) error {
	entry, err := p.lookup(ctx, t.Client, t.Tx)
	if err != nil {
		return err
	}
	if entry.State != model.StateDisputed {
		return ErrNotDisputed
	}
	if err := p.transition(ctx, entry, model.StateChargedBack, ErrNotDisputed); err != nil {
		return err
	}

	var locked model.Account
	err = p.update(ctx, t.Client, func(a *model.Account) error {
		a.Reverse(entry.Amount)
		locked = *a
		return nil
	})
	if err != nil {
		return err
	}

	metrics.LockedAccounts.Inc()
	logging.FromContext(ctx).Info("account locked",
		"client", t.Client,
		"tx", t.Tx,
		"amount", entry.Amount.String(),
	)
	if p.notify != nil {
		p.notify.AccountLocked(locked, t.Tx)
	}
	return nil
}

// record stores the history entry for an accepted deposit or withdrawal.
func (p *Processor) record(ctx context.Context, tx model.TxID, client model.ClientID, kind model.Kind, amount decimal.Decimal) error {
	err := p.store.RecordHistory(ctx, &model.HistoryEntry{
		Tx:     tx,
		Client: client,
		Kind:   kind,
		Amount: amount,
		State:  model.StateNormal,
	})
	if errors.Is(err, store.ErrDuplicateTx) {
		return ErrDuplicateTx
	}
	return err
}

// lookup finds the entry a dispute-family record refers to and checks that
// it belongs to the same client.
func (p *Processor) lookup(ctx context.Context, client model.ClientID, tx model.TxID) (*model.HistoryEntry, error) {
	entry, err := p.store.FindHistory(ctx, tx)
	if errors.Is(err, store.ErrTxNotFound) {
		return nil, ErrUnknownTx
	}
	if err != nil {
		return nil, err
	}
	if entry.Client != client {
		return nil, ErrClientMismatch
	}
	return entry, nil
}

func (p *Processor) transition(ctx context.Context, entry *model.HistoryEntry, to model.DisputeState, conflict error) error {
	err := p.store.TransitionHistory(ctx, entry.Tx, entry.State, to)
	if errors.Is(err, store.ErrStateConflict) {
		return conflict
	}
	return err
}

func (p *Processor) update(ctx context.Context, client model.ClientID, fn func(*model.Account) error) error {
	return p.store.UpdateAccount(ctx, client, func(a *model.Account) error {
		if a.Locked {
			return ErrAccountLocked
		}
		return fn(a)
	})
}

// Run consumes src until it is exhausted, applying every record in arrival
// order. Rejections are counted and skipped; only a failing source or a
// cancelled context ends the run early.
func (p *Processor) Run(ctx context.Context, src Source) (Summary, error) {
	sum := newSummary()
	claims := txClaims{}
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		tx, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("engine: read record: %w", err)
		}
		if err := p.admit(ctx, tx, claims); err != nil {
			p.tally(ctx, tx, err, &sum)
			continue
		}
		p.handle(ctx, tx, &sum)
	}
	p.refreshGauges(ctx)
	return sum, nil
}

// admit registers the record's account and claims its tx id. Callers run it
// in arrival order, so discovery order and duplicate detection never depend
// on how records are scheduled afterwards.
func (p *Processor) admit(ctx context.Context, tx model.Transaction, claims txClaims) error {
	if _, err := p.store.GetOrCreateAccount(ctx, tx.ClientID()); err != nil {
		return fmt.Errorf("engine: register account %d: %w", tx.ClientID(), err)
	}
	if !claims.claim(tx) {
		return ErrDuplicateTx
	}
	return nil
}

// handle applies tx and tallies the outcome.
func (p *Processor) handle(ctx context.Context, tx model.Transaction, sum *Summary) {
	p.tally(ctx, tx, p.Apply(ctx, tx), sum)
}

func (p *Processor) tally(ctx context.Context, tx model.Transaction, err error, sum *Summary) {
	if err == nil {
		sum.applied()
		metrics.RecordsTotal.WithLabelValues(string(tx.Kind()), "applied").Inc()
		return
	}

	reason := Reason(err)
	sum.rejected(reason)
	metrics.RecordsTotal.WithLabelValues(string(tx.Kind()), "rejected").Inc()
	metrics.RejectionsTotal.WithLabelValues(reason).Inc()

	log := logging.FromContext(ctx)
	if reason == ReasonInternal {
		log.Error("record failed", "kind", tx.Kind(), "client", tx.ClientID(), "tx", tx.TxID(), "err", err)
		return
	}
	log.Debug("record rejected", "kind", tx.Kind(), "client", tx.ClientID(), "tx", tx.TxID(), "reason", reason)
}

func (p *Processor) refreshGauges(ctx context.Context) {
	stats, err := p.store.Stats(ctx)
	if err != nil {
		return
	}
	metrics.Accounts.Set(float64(stats.Accounts))
	metrics.LockedAccounts.Set(float64(stats.LockedAccounts))
}
