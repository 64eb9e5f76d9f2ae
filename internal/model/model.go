// Package model defines the core domain types shared across the payments engine.
// Monetary values are shopspring/decimal throughout, never float64.
package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ClientID identifies a client account.
type ClientID uint16

// TxID identifies a deposit or withdrawal. Assumed unique across a stream.
type TxID uint32

// Kind names a transaction variant.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindDispute    Kind = "dispute"
	KindResolve    Kind = "resolve"
	KindChargeback Kind = "chargeback"
)

// ParseKind maps the wire name of a transaction type to its Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback:
		return k, nil
	}
	return "", fmt.Errorf("model: unknown transaction type %q", s)
}

// HasAmount reports whether records of this kind carry an amount.
func (k Kind) HasAmount() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// Transaction is one parsed input record. The set of implementations is
// closed: Deposit, Withdrawal, Dispute, Resolve and Chargeback.
type Transaction interface {
	Kind() Kind
	ClientID() ClientID
	TxID() TxID
	transaction()
}

// Deposit credits the client's available funds.
type Deposit struct {
	Client ClientID
	Tx     TxID
	Amount decimal.Decimal
}

// Withdrawal debits the client's available funds.
type Withdrawal struct {
	Client ClientID
	Tx     TxID
	Amount decimal.Decimal
}

// Dispute opens a claim against an earlier deposit or withdrawal.
type Dispute struct {
	Client ClientID
	Tx     TxID
}

// Resolve closes an open dispute and releases the held funds.
type Resolve struct {
	Client ClientID
	Tx     TxID
}

// Chargeback closes an open dispute by reversing it and freezes the account.
type Chargeback struct {
	Client ClientID
	Tx     TxID
}

func (Deposit) Kind() Kind    { return KindDeposit }
func (Withdrawal) Kind() Kind { return KindWithdrawal }
func (Dispute) Kind() Kind    { return KindDispute }
func (Resolve) Kind() Kind    { return KindResolve }
func (Chargeback) Kind() Kind { return KindChargeback }

func (t Deposit) ClientID() ClientID    { return t.Client }
func (t Withdrawal) ClientID() ClientID { return t.Client }
func (t Dispute) ClientID() ClientID    { return t.Client }
func (t Resolve) ClientID() ClientID    { return t.Client }
func (t Chargeback) ClientID() ClientID { return t.Client }

func (t Deposit) TxID() TxID    { return t.Tx }
func (t Withdrawal) TxID() TxID { return t.Tx }
func (t Dispute) TxID() TxID    { return t.Tx }
func (t Resolve) TxID() TxID    { return t.Tx }
func (t Chargeback) TxID() TxID { return t.Tx }

func (Deposit) transaction()    {}
func (Withdrawal) transaction() {}
func (Dispute) transaction()    {}
func (Resolve) transaction()    {}
func (Chargeback) transaction() {}
