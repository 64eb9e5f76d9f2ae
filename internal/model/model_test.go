package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"deposit", "withdrawal", "dispute", "resolve", "chargeback"} {
		k, err := ParseKind(s)
		require.NoError(t, err)
		assert.Equal(t, Kind(s), k)
	}

	_, err := ParseKind("transfer")
	assert.Error(t, err)
	_, err = ParseKind("Deposit")
	assert.Error(t, err, "kinds are lowercase on the wire")
}

func TestKind_HasAmount(t *testing.T) {
	assert.True(t, KindDeposit.HasAmount())
	assert.True(t, KindWithdrawal.HasAmount())
	assert.False(t, KindDispute.HasAmount())
	assert.False(t, KindResolve.HasAmount())
	assert.False(t, KindChargeback.HasAmount())
}

func TestTransaction_Variants(t *testing.T) {
	txs := []Transaction{
		Deposit{Client: 1, Tx: 10, Amount: d("1.5")},
		Withdrawal{Client: 2, Tx: 11, Amount: d("0.5")},
		Dispute{Client: 3, Tx: 12},
		Resolve{Client: 4, Tx: 13},
		Chargeback{Client: 5, Tx: 14},
	}
	kinds := []Kind{KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback}

	for i, tx := range txs {
		assert.Equal(t, kinds[i], tx.Kind())
		assert.Equal(t, ClientID(i+1), tx.ClientID())
		assert.Equal(t, TxID(10+i), tx.TxID())
	}
}

func TestAccount_MutationsKeepBalance(t *testing.T) {
	a := NewAccount(7)
	require.True(t, a.Balanced())

	steps := []func(){
		func() { a.Credit(d("10")) },
		func() { a.Debit(d("2.5")) },
		func() { a.Hold(d("10")) },
		func() { a.Release(d("4")) },
		func() { a.Reverse(d("6")) },
	}
	for i, step := range steps {
		step()
		assert.True(t, a.Balanced(), "unbalanced after step %d: %+v", i, a)
	}

	assert.True(t, a.Available.Equal(d("1.5")), "available=%s", a.Available)
	assert.True(t, a.Held.IsZero(), "held=%s", a.Held)
	assert.True(t, a.Total.Equal(d("1.5")), "total=%s", a.Total)
	assert.True(t, a.Locked)
}

func TestAccount_CanDebit(t *testing.T) {
	a := NewAccount(1)
	assert.True(t, a.CanDebit(decimal.Zero))
	assert.False(t, a.CanDebit(d("0.0001")))

	a.Credit(d("5"))
	assert.True(t, a.CanDebit(d("5")))
	assert.False(t, a.CanDebit(d("5.0001")))
}

func TestAccount_HoldCanGoNegative(t *testing.T) {
	a := NewAccount(1)
	a.Credit(d("5"))
	a.Hold(d("10"))

	assert.True(t, a.Available.Equal(d("-5")))
	assert.True(t, a.Held.Equal(d("10")))
	assert.True(t, a.Total.Equal(d("5")))
}

func TestDisputeState_CanTransition(t *testing.T) {
	tests := []struct {
		from, to DisputeState
		want     bool
	}{
		{StateNormal, StateDisputed, true},
		{StateNormal, StateResolved, false},
		{StateNormal, StateChargedBack, false},
		{StateDisputed, StateDisputed, false},
		{StateDisputed, StateResolved, true},
		{StateDisputed, StateChargedBack, true},
		{StateResolved, StateDisputed, true},
		{StateResolved, StateChargedBack, false},
		{StateChargedBack, StateDisputed, false},
		{StateChargedBack, StateResolved, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}
