package model

import "github.com/shopspring/decimal"

// DisputeState tracks where a history entry sits in the dispute lifecycle.
type DisputeState string

const (
	StateNormal      DisputeState = "normal"
	StateDisputed    DisputeState = "disputed"
	StateResolved    DisputeState = "resolved"
	StateChargedBack DisputeState = "charged_back"
)

// transitions lists the states reachable from each state.
// ChargedBack is terminal; Resolved may be disputed again.
var transitions = map[DisputeState][]DisputeState{
	StateNormal:   {StateDisputed},
	StateResolved: {StateDisputed},
	StateDisputed: {StateResolved, StateChargedBack},
}

// CanTransition reports whether moving from s to next is a legal step.
func (s DisputeState) CanTransition(next DisputeState) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// HistoryEntry is the retained record of an accepted deposit or withdrawal.
// Dispute, resolve and chargeback records never create entries; they move
// an existing entry through its dispute lifecycle.
type HistoryEntry struct {
	Tx     TxID            `json:"tx"`
	Client ClientID        `json:"client"`
	Kind   Kind            `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	State  DisputeState    `json:"state"`
}
