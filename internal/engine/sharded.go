package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/atmx/payments-engine/internal/model"
)

// DefaultQueueSize is the per-worker channel buffer.
const DefaultQueueSize = 256

// ShardedRunner processes records for different clients in parallel.
// Records are routed to a worker by client id, so every record for one
// client is applied by the same worker in arrival order. Accounts and
// history entries are never shared between clients, which makes the
// per-client order the only one that matters.
type ShardedRunner struct {
	proc    *Processor
	workers int
	queue   int
}

// NewShardedRunner creates a runner with the given number of workers.
// workers < 1 is treated as 1.
func NewShardedRunner(p *Processor, workers int) *ShardedRunner {
	if workers < 1 {
		workers = 1
	}
	return &ShardedRunner{proc: p, workers: workers, queue: DefaultQueueSize}
}

// Run consumes src to exhaustion and returns the merged summary.
func (r *ShardedRunner) Run(ctx context.Context, src Source) (Summary, error) {
	if r.workers == 1 {
		return r.proc.Run(ctx, src)
	}

	g, gctx := errgroup.WithContext(ctx)

	queues := make([]chan model.Transaction, r.workers)
	results := make([]Summary, r.workers)
	for i := range queues {
		i := i
		queues[i] = make(chan model.Transaction, r.queue)
		results[i] = newSummary()
		g.Go(func() error {
			// Drain the queue even after cancellation so the dispatcher
			// never blocks on a dead worker.
			for tx := range queues[i] {
				r.proc.handle(gctx, tx, &results[i])
			}
			return nil
		})
	}

	claims := txClaims{}
	dispatched := newSummary()
	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		for {
			if err := gctx.Err(); err != nil {
				return err
			}
			tx, err := src.Next(gctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("engine: read record: %w", err)
			}
			// Accounts and tx ids are claimed here, in arrival order. A
			// duplicate id from another client would otherwise race with
			// the first occurrence on a different worker.
			if err := r.proc.admit(gctx, tx, claims); err != nil {
				if !IsRejection(err) {
					return err
				}
				r.proc.tally(gctx, tx, err, &dispatched)
				continue
			}
			select {
			case queues[r.shard(tx.ClientID())] <- tx:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	err := g.Wait()

	sum := dispatched
	for _, res := range results {
		sum.Merge(res)
	}
	r.proc.refreshGauges(ctx)
	return sum, err
}

func (r *ShardedRunner) shard(id model.ClientID) int {
	return int(id) % r.workers
}
