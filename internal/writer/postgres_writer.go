// Package writer is the Durable Writer: it persists one flush's
// aggregate snapshots and signals such that, upon successful return, a
// reader observes the new snapshot for every mint in the input and every
// signal appears in the append log.
package writer

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/solflowhq/solflow/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// defaultBatchSize is FLUSH_BATCH_SIZE's default; callers override via
// config.
const defaultBatchSize = 500

// PostgresWriter batches per-flush writes into transactions of at most
// BatchSize mints each, so one flush's tail latency is bounded by the
// slowest batch rather than by one monolithic transaction.
type PostgresWriter struct {
	pool      *pgxpool.Pool
	log       *logrus.Entry
	BatchSize int
}

// New constructs a PostgresWriter over an already-connected pool.
func New(pool *pgxpool.Pool, log *logrus.Entry, batchSize int) *PostgresWriter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &PostgresWriter{pool: pool, log: log, BatchSize: batchSize}
}

// InitSchema creates every durable table if it does not already exist.
func (w *PostgresWriter) InitSchema(ctx context.Context) error {
	if _, err := w.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("writer: failed to initialize schema: %w", err)
	}
	return nil
}

// Write persists aggregates and signals from one flush. Aggregates are
// split into batches of at most BatchSize mints; each batch is one
// transaction. A batch that fails is rolled back and retried once;
// persistent failure is logged and the write continues with subsequent
// batches rather than aborting the whole flush, and Write then returns
// an error once the signals have been written.
func (w *PostgresWriter) Write(ctx context.Context, aggregates []model.TokenAggregateRow, signals []model.Signal) error {
	failedBatches := 0
	for start := 0; start < len(aggregates); start += w.BatchSize {
		end := start + w.BatchSize
		if end > len(aggregates) {
			end = len(aggregates)
		}
		batch := aggregates[start:end]

		if err := w.writeBatchWithRetry(ctx, batch); err != nil {
			w.log.WithError(err).WithField("batch_size", len(batch)).
				Error("durable writer: batch failed after retry, continuing with remaining batches")
			failedBatches++
		}
	}

	if err := w.writeSignals(ctx, signals); err != nil {
		w.log.WithError(err).Error("durable writer: failed to append signals")
		return err
	}

	if failedBatches > 0 {
		return fmt.Errorf("writer: %d aggregate batch(es) failed after retry", failedBatches)
	}
	return nil
}

func (w *PostgresWriter) writeBatchWithRetry(ctx context.Context, batch []model.TokenAggregateRow) error {
	err := w.writeBatch(ctx, batch)
	if err == nil {
		return nil
	}
	w.log.WithError(err).Warn("durable writer: batch failed, retrying once")
	return w.writeBatch(ctx, batch)
}

const upsertAggregateSQL = `
INSERT INTO token_aggregates (
	mint, net_flow_60s_sol, net_flow_300s_sol, net_flow_900s_sol,
	net_flow_3600s_sol, net_flow_7200s_sol, net_flow_14400s_sol,
	dca_buys_60s, dca_buys_300s, dca_buys_900s, dca_buys_3600s, dca_buys_14400s,
	unique_wallets_300s, volume_300s_sol, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (mint) DO UPDATE SET
	net_flow_60s_sol    = EXCLUDED.net_flow_60s_sol,
	net_flow_300s_sol   = EXCLUDED.net_flow_300s_sol,
	net_flow_900s_sol   = EXCLUDED.net_flow_900s_sol,
	net_flow_3600s_sol  = EXCLUDED.net_flow_3600s_sol,
	net_flow_7200s_sol  = EXCLUDED.net_flow_7200s_sol,
	net_flow_14400s_sol = EXCLUDED.net_flow_14400s_sol,
	dca_buys_60s        = EXCLUDED.dca_buys_60s,
	dca_buys_300s       = EXCLUDED.dca_buys_300s,
	dca_buys_900s       = EXCLUDED.dca_buys_900s,
	dca_buys_3600s      = EXCLUDED.dca_buys_3600s,
	dca_buys_14400s     = EXCLUDED.dca_buys_14400s,
	unique_wallets_300s = EXCLUDED.unique_wallets_300s,
	volume_300s_sol     = EXCLUDED.volume_300s_sol,
	updated_at          = EXCLUDED.updated_at;
`

func (w *PostgresWriter) writeBatch(ctx context.Context, batch []model.TokenAggregateRow) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, row := range batch {
		_, err := tx.Exec(ctx, upsertAggregateSQL,
			row.Mint,
			row.NetFlow60sSOL, row.NetFlow300sSOL, row.NetFlow900sSOL,
			row.NetFlow3600sSOL, row.NetFlow7200sSOL, row.NetFlow14400sSOL,
			row.DCABuys60s, row.DCABuys300s, row.DCABuys900s, row.DCABuys3600s, row.DCABuys14400s,
			row.UniqueWallets300s, row.Volume300sSOL, row.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert token_aggregates for %s: %w", row.Mint, err)
		}
	}

	return tx.Commit(ctx)
}

const insertSignalSQL = `
INSERT INTO token_signals (mint, signal_type, severity, created_at, details_json)
VALUES ($1, $2, $3, $4, $5);
`

// writeSignals appends every signal from the flush. Signals are
// append-only and are not required to be globally deduplicated — only
// not duplicated within this single flush, which the caller (the
// Pipeline Engine) already guarantees by construction (one Signal record
// per detector per mint per flush).
func (w *PostgresWriter) writeSignals(ctx context.Context, signals []model.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, sig := range signals {
		detailsJSON, err := json.Marshal(sig.Details)
		if err != nil {
			return fmt.Errorf("marshal signal details for %s: %w", sig.Mint, err)
		}

		_, err = tx.Exec(ctx, insertSignalSQL, sig.Mint, string(sig.Type), sig.Severity, sig.CreatedAt, string(detailsJSON))
		if err != nil {
			return fmt.Errorf("insert token_signal for %s: %w", sig.Mint, err)
		}
	}

	return tx.Commit(ctx)
}
