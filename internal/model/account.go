package model

import "github.com/shopspring/decimal"

// Account is the per-client balance sheet.
// Invariant: Total == Available + Held after every mutation.
type Account struct {
	Client    ClientID        `json:"client"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Total     decimal.Decimal `json:"total"`
	Locked    bool            `json:"locked"`
}

// NewAccount returns a zeroed, unlocked account.
func NewAccount(id ClientID) *Account {
	return &Account{
		Client:    id,
		Available: decimal.Zero,
		Held:      decimal.Zero,
		Total:     decimal.Zero,
	}
}

// Credit adds amount to available and total funds.
func (a *Account) Credit(amount decimal.Decimal) {
	a.Available = a.Available.Add(amount)
	a.Total = a.Total.Add(amount)
}

// Debit removes amount from available and total funds. Callers check
// CanDebit first; Debit itself does not refuse.
func (a *Account) Debit(amount decimal.Decimal) {
	a.Available = a.Available.Sub(amount)
	a.Total = a.Total.Sub(amount)
}

// CanDebit reports whether available funds cover amount.
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return a.Available.GreaterThanOrEqual(amount)
}

// Hold moves amount from available to held. Available may go negative.
func (a *Account) Hold(amount decimal.Decimal) {
	a.Available = a.Available.Sub(amount)
	a.Held = a.Held.Add(amount)
}

// Release moves amount from held back to available.
func (a *Account) Release(amount decimal.Decimal) {
	a.Held = a.Held.Sub(amount)
	a.Available = a.Available.Add(amount)
}

// Reverse removes held funds from the ledger and locks the account.
func (a *Account) Reverse(amount decimal.Decimal) {
	a.Held = a.Held.Sub(amount)
	a.Total = a.Total.Sub(amount)
	a.Locked = true
}

// Balanced reports whether Total == Available + Held.
func (a *Account) Balanced() bool {
	return a.Total.Equal(a.Available.Add(a.Held))
}
