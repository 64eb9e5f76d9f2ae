// Package csvio reads transaction records from CSV and writes account
// snapshots back out as CSV.
//
// Input columns are `type, client, tx, amount`. Whitespace around fields is
// ignored. Dispute-family rows may omit the trailing amount column, and an
// amount given on such a row is ignored. Amounts are rounded to Precision
// fractional digits on input. Rows that do not parse are logged and dropped
// before any account is created for them; the engine only ever sees
// well-formed records.
package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atmx/payments-engine/internal/logging"
	"github.com/atmx/payments-engine/internal/metrics"
	"github.com/atmx/payments-engine/internal/model"
)

// Precision is the number of fractional digits amounts are rounded to.
const Precision int32 = 4

var (
	ErrBadHeader     = errors.New("csvio: unexpected header")
	ErrMissingAmount = errors.New("csvio: amount is required")
	ErrNegative      = errors.New("csvio: amount must not be negative")
)

var header = []string{"type", "client", "tx", "amount"}

// Reader streams transaction records from CSV input one row at a time.
type Reader struct {
	r       *csv.Reader
	started bool
	line    int
	dropped int
}

// NewReader wraps r. Nothing is read until the first call to Next.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &Reader{r: cr}
}

// Dropped returns the number of malformed rows skipped so far.
func (r *Reader) Dropped() int {
	return r.dropped
}

// Next returns the next well-formed record, or io.EOF at end of input.
// Malformed rows are skipped; only errors from the underlying reader and
// a bad header are returned.
func (r *Reader) Next(ctx context.Context) (model.Transaction, error) {
	if !r.started {
		r.started = true
		if err := r.readHeader(); err != nil {
			return nil, err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.r.Read()
		r.line++
		if err == io.EOF {
			return nil, io.EOF
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			r.drop(ctx, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("csvio: read line %d: %w", r.line, err)
		}

		tx, err := ParseRow(row)
		if err != nil {
			r.drop(ctx, err)
			continue
		}
		return tx, nil
	}
}

func (r *Reader) readHeader() error {
	row, err := r.r.Read()
	r.line++
	if err != nil {
		return err
	}
	if len(row) < len(header)-1 || len(row) > len(header) {
		return fmt.Errorf("%w: %q", ErrBadHeader, row)
	}
	for i, col := range row {
		if strings.ToLower(strings.TrimSpace(col)) != header[i] {
			return fmt.Errorf("%w: %q", ErrBadHeader, row)
		}
	}
	return nil
}

func (r *Reader) drop(ctx context.Context, err error) {
	r.dropped++
	metrics.MalformedRowsTotal.Inc()
	logging.FromContext(ctx).Warn("skipping invalid row", "line", r.line, "err", err)
}

// ParseRow converts one CSV row into a transaction record.
func ParseRow(row []string) (model.Transaction, error) {
	if len(row) < 3 || len(row) > 4 {
		return nil, fmt.Errorf("csvio: expected 3 or 4 fields, got %d", len(row))
	}

	kind, err := model.ParseKind(strings.ToLower(strings.TrimSpace(row[0])))
	if err != nil {
		return nil, err
	}

	client, err := strconv.ParseUint(strings.TrimSpace(row[1]), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("csvio: invalid client %q: %w", row[1], err)
	}
	tx, err := strconv.ParseUint(strings.TrimSpace(row[2]), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("csvio: invalid tx %q: %w", row[2], err)
	}

	var raw string
	if len(row) == 4 {
		raw = strings.TrimSpace(row[3])
	}

	c, id := model.ClientID(client), model.TxID(tx)

	if !kind.HasAmount() {
		switch kind {
		case model.KindDispute:
			return model.Dispute{Client: c, Tx: id}, nil
		case model.KindResolve:
			return model.Resolve{Client: c, Tx: id}, nil
		default:
			return model.Chargeback{Client: c, Tx: id}, nil
		}
	}

	amount, err := ParseAmount(raw)
	if err != nil {
		return nil, err
	}
	if kind == model.KindDeposit {
		return model.Deposit{Client: c, Tx: id, Amount: amount}, nil
	}
	return model.Withdrawal{Client: c, Tx: id, Amount: amount}, nil
}

// ParseAmount parses a non-negative decimal, rounded half away from zero to
// Precision fractional digits.
func ParseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, ErrMissingAmount
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("csvio: invalid amount %q: %w", raw, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNegative, raw)
	}
	return amount.Round(Precision), nil
}
