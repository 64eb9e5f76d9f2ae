package export

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atmx/payments-engine/internal/model"
)

// Schema creates the snapshot table. Amounts are NUMERIC for exact precision.
const Schema = `CREATE TABLE IF NOT EXISTS account_snapshots (
	run_id    TEXT     NOT NULL,
	position  INTEGER  NOT NULL,
	client_id INTEGER  NOT NULL,
	available NUMERIC  NOT NULL,
	held      NUMERIC  NOT NULL,
	total     NUMERIC  NOT NULL,
	locked    BOOLEAN  NOT NULL,
	PRIMARY KEY (run_id, client_id)
)`

// PostgresExporter writes snapshot rows into account_snapshots.
type PostgresExporter struct {
	pool *pgxpool.Pool
}

func NewPostgresExporter(pool *pgxpool.Pool) *PostgresExporter {
	return &PostgresExporter{pool: pool}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (e *PostgresExporter) EnsureSchema(ctx context.Context) error {
	if _, err := e.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("export: create schema: %w", err)
	}
	return nil
}

// Export inserts every account in one transaction. Re-exporting a run id
// replaces its rows.
func (e *PostgresExporter) Export(ctx context.Context, runID string, accounts []model.Account) error {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("export: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM account_snapshots WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("export: clear run %s: %w", runID, err)
	}

	batch := &pgx.Batch{}
	for i, a := range accounts {
		batch.Queue(
			`INSERT INTO account_snapshots (run_id, position, client_id, available, held, total, locked)
			 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7)`,
			runID, i, int32(a.Client),
			a.Available.String(), a.Held.String(), a.Total.String(),
			a.Locked,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("export: insert run %s: %w", runID, err)
	}
	return tx.Commit(ctx)
}

// Load reads a run's snapshot back in export order.
func (e *PostgresExporter) Load(ctx context.Context, runID string) ([]model.Account, error) {
	rows, err := e.pool.Query(ctx,
		`SELECT client_id, available::TEXT, held::TEXT, total::TEXT, locked
		 FROM account_snapshots WHERE run_id = $1 ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var (
			a                      model.Account
			client                 int32
			available, held, total string
		)
		if err := rows.Scan(&client, &available, &held, &total, &a.Locked); err != nil {
			return nil, err
		}
		a.Client = model.ClientID(client)
		if a.Available, err = parseNumeric("available", available); err != nil {
			return nil, err
		}
		if a.Held, err = parseNumeric("held", held); err != nil {
			return nil, err
		}
		if a.Total, err = parseNumeric("total", total); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func parseNumeric(column, raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("export: parse %s %q: %w", column, raw, err)
	}
	return v, nil
}
