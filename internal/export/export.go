// Package export publishes a finished account snapshot to external sinks.
// Sinks are write-only; the engine never reads an exported snapshot back.
package export

import (
	"context"
	"errors"

	"github.com/atmx/payments-engine/internal/model"
)

// Exporter writes the final snapshot of one run.
type Exporter interface {
	Export(ctx context.Context, runID string, accounts []model.Account) error
}

// Multi fans a snapshot out to several exporters. Every exporter runs even
// if an earlier one fails; the errors are joined.
type Multi []Exporter

func (m Multi) Export(ctx context.Context, runID string, accounts []model.Account) error {
	var errs []error
	for _, e := range m {
		if err := e.Export(ctx, runID, accounts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
