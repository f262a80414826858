// Package pipeline owns the Pipeline Engine: the single writer of all
// Token Rolling State. Exactly one task — the Ingestion Loop — calls
// ProcessTrade and Flush; callers must not share an Engine across
// concurrent writers.
package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/solflowhq/solflow/internal/model"
)

// mintState is the lifecycle stage a tracked mint occupies. Only Live is
// represented: a mint that is pruned is deleted from the engine, so
// flush only ever observes Live.
type mintState int

const (
	stateLive mintState = iota
)

type mintEntry struct {
	rolling *model.TokenRollingState
	state   mintState
}

// Engine owns every mint's Token Rolling State and the touched-set used
// to scope Delta flushes. It is not safe for concurrent use — the single-
// writer discipline is enforced by convention (one Ingestion Loop
// goroutine), not by locking, the same posture the teacher's registry
// takes toward its read-only-after-startup data.
type Engine struct {
	log *logrus.Entry

	mints   map[string]*mintEntry
	touched map[string]struct{}

	cfg SignalConfig

	channelLen func() int
	channelCap int
}

// New constructs an Engine. channelLen reports the current depth of the
// upstream bounded channel so ChannelUsage can compute occupancy without
// the engine holding a reference to the channel type itself.
func New(cfg SignalConfig, channelCap int, channelLen func() int, log *logrus.Entry) *Engine {
	return &Engine{
		log:        log,
		mints:      make(map[string]*mintEntry),
		touched:    make(map[string]struct{}),
		cfg:        cfg,
		channelLen: channelLen,
		channelCap: channelCap,
	}
}

// ProcessTrade incorporates one Trade Event: inserting the observation
// into the mint's rolling state (creating it on first trade, the
// Absent→Live transition), marking the mint touched, and refreshing
// last_seen_ts.
func (e *Engine) ProcessTrade(ev model.TradeEvent) {
	entry, ok := e.mints[ev.Mint]
	if !ok {
		entry = &mintEntry{
			rolling: model.NewTokenRollingState(ev.Mint, ev.Timestamp),
			state:   stateLive,
		}
		e.mints[ev.Mint] = entry
	}

	entry.rolling.Insert(model.Observation{
		Timestamp:   ev.Timestamp,
		Program:     ev.SourceProgramName,
		Side:        ev.Side,
		SOLVolume:   ev.SOLVolume,
		TokenVolume: ev.TokenVolume,
		Wallet:      ev.UserAccountIndex,
	})

	e.touched[ev.Mint] = struct{}{}
}

// FlushMode selects which mints a Flush iterates.
type FlushMode int

const (
	// Delta iterates only touched mints, cleared after the flush.
	Delta FlushMode = iota
	// Full iterates every live mint, the safety net against touched-set
	// maintenance bugs.
	Full
)

// FlushResult is what one flush produces for the Durable Writer.
type FlushResult struct {
	Aggregates []model.TokenAggregateRow
	Signals    []model.Signal
}

// Flush computes an Aggregate snapshot and any Signals for the selected
// mint set at instant now. A Delta flush clears the touched set on
// return; a Full flush leaves it untouched so an in-flight Delta cycle's
// bookkeeping is undisturbed. Per-mint computation errors are logged and
// the offending mint skipped — a single bad mint never aborts a flush.
func (e *Engine) Flush(now int64, mode FlushMode) FlushResult {
	var mints []string
	if mode == Delta {
		mints = make([]string, 0, len(e.touched))
		for mint := range e.touched {
			mints = append(mints, mint)
		}
	} else {
		mints = make([]string, 0, len(e.mints))
		for mint := range e.mints {
			mints = append(mints, mint)
		}
	}

	result := FlushResult{
		Aggregates: make([]model.TokenAggregateRow, 0, len(mints)),
	}

	for _, mint := range mints {
		entry, ok := e.mints[mint]
		if !ok {
			// Touched but since pruned; nothing to flush.
			continue
		}

		row, signals, err := e.flushOne(mint, entry, now)
		if err != nil {
			e.log.WithError(err).WithField("mint", mint).Warn("skipping mint in flush")
			continue
		}
		result.Aggregates = append(result.Aggregates, row)
		result.Signals = append(result.Signals, signals...)
	}

	if mode == Delta {
		e.touched = make(map[string]struct{})
	}

	return result
}

func (e *Engine) flushOne(mint string, entry *mintEntry, now int64) (model.TokenAggregateRow, []model.Signal, error) {
	entry.rolling.TrimBefore(now - model.MaxWindow)
	stats := entry.rolling.AllWindowStats(now)
	row := model.NewTokenAggregateRow(mint, stats, now)
	signals := detectSignals(mint, stats, entry.rolling, now, e.cfg)
	return row, signals, nil
}

// Prune removes every mint whose last_seen_ts is older than threshold
// seconds, the Live→Absent transition, and returns the count removed.
func (e *Engine) Prune(now int64, threshold int64) int {
	removed := 0
	for mint, entry := range e.mints {
		if now-entry.rolling.LastSeenTS > threshold {
			delete(e.mints, mint)
			delete(e.touched, mint)
			removed++
		}
	}
	return removed
}

// ChannelUsage reports current in-flight count and capacity of the
// upstream bounded channel, for the Ingestion Loop's backpressure
// watermark checks.
func (e *Engine) ChannelUsage() (inFlight, capacity int) {
	return e.channelLen(), e.channelCap
}

// LiveMintCount reports how many mints currently hold rolling state, for
// ops metrics.
func (e *Engine) LiveMintCount() int {
	return len(e.mints)
}
