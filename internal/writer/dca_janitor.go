package writer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/solflowhq/solflow/internal/model"
	"github.com/solflowhq/solflow/internal/registry"
)

// dcaBucketRetention is how long a 1-minute DCA activity bucket survives
// before the janitor removes it.
const dcaBucketRetention = 2 * time.Hour

const upsertDCABucketSQL = `
INSERT INTO dca_activity_buckets (mint, bucket_timestamp, buy_count)
VALUES ($1, $2, 1)
ON CONFLICT (mint, bucket_timestamp) DO UPDATE SET buy_count = dca_activity_buckets.buy_count + 1;
`

// RecordDCABuy increments the (mint, 1-minute bucket) counter for a trade
// whose source program is the DCA program and whose side is BUY. Any
// other trade is a no-op — the caller may call this unconditionally per
// trade.
func RecordDCABuy(ctx context.Context, pool *pgxpool.Pool, ev model.TradeEvent) error {
	if ev.SourceProgramName != registry.DCAProgramName || ev.Side != model.Buy {
		return nil
	}

	bucket := ev.Timestamp - (ev.Timestamp % 60)
	_, err := pool.Exec(ctx, upsertDCABucketSQL, ev.Mint, bucket)
	return err
}

const deleteStaleDCABucketsSQL = `DELETE FROM dca_activity_buckets WHERE bucket_timestamp < $1;`

// DCAJanitor periodically removes DCA activity buckets older than
// dcaBucketRetention — a separate, low-frequency task per the
// specification, deliberately decoupled from the main flush cadence so a
// slow cleanup never delays a flush.
type DCAJanitor struct {
	pool   *pgxpool.Pool
	log    *logrus.Entry
	period time.Duration
}

// NewDCAJanitor constructs a janitor that sweeps on the given period.
func NewDCAJanitor(pool *pgxpool.Pool, period time.Duration, log *logrus.Entry) *DCAJanitor {
	return &DCAJanitor{pool: pool, period: period, log: log}
}

// Run sweeps on a fixed interval until ctx is canceled.
func (j *DCAJanitor) Run(ctx context.Context, now func() int64) {
	ticker := time.NewTicker(j.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.sweep(ctx, now()); err != nil {
				j.log.WithError(err).Warn("dca janitor: sweep failed")
			}
		}
	}
}

func (j *DCAJanitor) sweep(ctx context.Context, now int64) error {
	cutoff := now - int64(dcaBucketRetention.Seconds())
	tag, err := j.pool.Exec(ctx, deleteStaleDCABucketsSQL, cutoff)
	if err != nil {
		return err
	}
	if n := tag.RowsAffected(); n > 0 {
		j.log.WithField("rows_deleted", n).Info("dca janitor: swept stale buckets")
	}
	return nil
}
