package engine

import "github.com/atmx/payments-engine/internal/model"

// txClaims tracks the deposit and withdrawal ids seen in one run. The first
// record carrying an id claims it whether or not it is applied; any later
// deposit or withdrawal with the same id is a duplicate.
type txClaims map[model.TxID]struct{}

func (c txClaims) claim(tx model.Transaction) bool {
	if !tx.Kind().HasAmount() {
		return true
	}
	if _, dup := c[tx.TxID()]; dup {
		return false
	}
	c[tx.TxID()] = struct{}{}
	return true
}
