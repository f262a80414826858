package pipeline

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Reconciler recomputes the 300-second net flow of every mint in a
// Delta-flush result from the engine's rolling state and logs any
// divergence; the other windows and counters are not compared. It never
// changes what gets written to the durable store — a pure observability
// check that the touched-set bookkeeping matches what a full scan would
// have produced, adapted from the production/shadow comparison the
// teacher runs before promoting an experimental heuristic.
type Reconciler struct {
	engine *Engine
	log    *logrus.Entry

	divergenceTolerance float64
}

// NewReconciler builds a Reconciler over engine. tolerance bounds the
// acceptable absolute difference in NetFlowSOL (in SOL) before a divergence is
// logged (floating-point accumulation order can legitimately differ by a
// small amount between two flushes taken microseconds apart).
func NewReconciler(engine *Engine, tolerance float64, log *logrus.Entry) *Reconciler {
	return &Reconciler{engine: engine, log: log, divergenceTolerance: tolerance}
}

// Sample recomputes window stats for each mint in the given Delta-flush
// result directly from the engine's live rolling state and compares the
// freshly-computed net flow against what the Delta flush already
// produced for the same window. It does not re-flush to the durable
// store; it only checks for drift.
func (r *Reconciler) Sample(result FlushResult, now int64) {
	for _, row := range result.Aggregates {
		entry, ok := r.engine.mints[row.Mint]
		if !ok {
			continue
		}

		recomputed := entry.rolling.Stats(now, 300)
		if !within(recomputed.NetFlowSOL, row.NetFlow300sSOL, r.divergenceTolerance) {
			r.log.WithFields(logrus.Fields{
				"mint":       row.Mint,
				"flushed":    row.NetFlow300sSOL,
				"recomputed": recomputed.NetFlowSOL,
			}).Warn("reconcile: touched-set flush diverges from full recompute")
		}
	}
}

func within(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}
