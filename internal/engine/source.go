package engine

import (
	"context"
	"io"

	"github.com/atmx/payments-engine/internal/model"
)

// Source yields transaction records one at a time in arrival order.
// Next returns io.EOF once the stream is exhausted. Implementations must
// only deliver well-formed records; malformed input is dropped upstream.
type Source interface {
	Next(ctx context.Context) (model.Transaction, error)
}

// SliceSource serves records from memory.
type SliceSource struct {
	txs []model.Transaction
	pos int
}

// FromSlice returns a Source over txs.
func FromSlice(txs ...model.Transaction) *SliceSource {
	return &SliceSource{txs: txs}
}

func (s *SliceSource) Next(ctx context.Context) (model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.txs) {
		return nil, io.EOF
	}
	tx := s.txs[s.pos]
	s.pos++
	return tx, nil
}
