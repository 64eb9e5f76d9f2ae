package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/payments-engine/internal/model"
)

// RedisExporter caches each account of a run as JSON under
// snapshot:<run>:<client>, with snapshot:<run> listing clients in order.
// Every key expires after ttl.
type RedisExporter struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisExporter(rdb *redis.Client, ttl time.Duration) *RedisExporter {
	return &RedisExporter{rdb: rdb, ttl: ttl}
}

// accountJSON renders amounts as fixed four-decimal strings.
type accountJSON struct {
	Client    model.ClientID `json:"client"`
	Available string         `json:"available"`
	Held      string         `json:"held"`
	Total     string         `json:"total"`
	Locked    bool           `json:"locked"`
}

func (e *RedisExporter) Export(ctx context.Context, runID string, accounts []model.Account) error {
	pipe := e.rdb.TxPipeline()
	index := indexKey(runID)
	pipe.Del(ctx, index)
	for _, a := range accounts {
		data, err := json.Marshal(accountJSON{
			Client:    a.Client,
			Available: a.Available.StringFixed(4),
			Held:      a.Held.StringFixed(4),
			Total:     a.Total.StringFixed(4),
			Locked:    a.Locked,
		})
		if err != nil {
			return err
		}
		pipe.Set(ctx, accountKey(runID, a.Client), data, e.ttl)
		pipe.RPush(ctx, index, int(a.Client))
	}
	pipe.Expire(ctx, index, e.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("export: redis run %s: %w", runID, err)
	}
	return nil
}

func indexKey(run string) string { return fmt.Sprintf("snapshot:%s", run) }

func accountKey(run string, id model.ClientID) string {
	return fmt.Sprintf("snapshot:%s:%d", run, id)
}
