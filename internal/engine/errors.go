package engine

import "errors"

// Rejections. A rejected record has no effect on the ledger and processing
// continues with the next record.
var (
	ErrAccountLocked     = errors.New("engine: account is locked")
	ErrNegativeAmount    = errors.New("engine: amount must not be negative")
	ErrInsufficientFunds = errors.New("engine: insufficient available funds")
	ErrDuplicateTx       = errors.New("engine: duplicate transaction id")
	ErrUnknownTx         = errors.New("engine: unknown transaction id")
	ErrClientMismatch    = errors.New("engine: transaction belongs to another client")
	ErrNotDisputable     = errors.New("engine: transaction cannot be disputed in its current state")
	ErrNotDisputed       = errors.New("engine: transaction is not under dispute")
)

var rejectionReasons = []struct {
	err    error
	reason string
}{
	{ErrAccountLocked, "account_locked"},
	{ErrNegativeAmount, "negative_amount"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrDuplicateTx, "duplicate_tx"},
	{ErrUnknownTx, "unknown_tx"},
	{ErrClientMismatch, "client_mismatch"},
	{ErrNotDisputable, "not_disputable"},
	{ErrNotDisputed, "not_disputed"},
}

// ReasonInternal labels failures that are not rejections.
const ReasonInternal = "internal"

// IsRejection reports whether err is an expected precondition failure.
func IsRejection(err error) bool {
	return Reason(err) != ReasonInternal
}

// Reason returns a stable label for err, suitable for metrics.
func Reason(err error) string {
	for _, r := range rejectionReasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonInternal
}
