// Package ingest runs the Ingestion Loop: the single task that owns the
// Pipeline Engine, pulling Trade Events off the bounded channel, flushing
// on a fixed cadence, and watching the channel for backpressure.
package ingest

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/solflowhq/solflow/internal/model"
	"github.com/solflowhq/solflow/internal/pipeline"
	"github.com/solflowhq/solflow/internal/writer"
)

// Config holds the tunables the loop reads from the environment.
type Config struct {
	FlushInterval          time.Duration
	FullFlushInterval      time.Duration
	MintPruneThreshold     int64
	ChannelHighWatermark   float64 // e.g. 0.80
	ChannelCriticalWatermark float64 // e.g. 0.95
}

// Writer is the subset of the Durable Writer the loop depends on.
type Writer interface {
	Write(ctx context.Context, aggregates []model.TokenAggregateRow, signals []model.Signal) error
}

// Publisher is the subset of the ops Signal Hub the loop depends on. A
// nil Publisher is valid — the loop simply doesn't fan signals out to
// any websocket observer, durable persistence is unaffected either way.
type Publisher interface {
	Publish(sig model.Signal)
}

// Loop composes the bounded channel, the Pipeline Engine, and the
// Durable Writer.
type Loop struct {
	cfg     Config
	engine  *pipeline.Engine
	writer  Writer
	pub     Publisher
	events  <-chan model.TradeEvent
	log     *logrus.Entry
	now     func() int64
	recon   *pipeline.Reconciler

	lastFullFlush int64

	channelWarnings  prometheus.Counter
	channelCriticals prometheus.Counter
}

// New constructs a Loop. now supplies the current unix timestamp and is
// injected so tests can control time deterministically. pub may be nil.
func New(cfg Config, engine *pipeline.Engine, w Writer, events <-chan model.TradeEvent, recon *pipeline.Reconciler, pub Publisher, log *logrus.Entry, now func() int64) *Loop {
	return &Loop{
		cfg:    cfg,
		engine: engine,
		writer: w,
		pub:    pub,
		events: events,
		recon:  recon,
		log:    log,
		now:    now,
		channelWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solflow_channel_watermark_warnings_total",
			Help: "Number of times channel occupancy crossed the high watermark.",
		}),
		channelCriticals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solflow_channel_watermark_criticals_total",
			Help: "Number of times channel occupancy crossed the critical watermark.",
		}),
	}
}

// Metrics exposes the loop's Prometheus collectors for registration.
func (l *Loop) Metrics() []prometheus.Collector {
	return []prometheus.Collector{l.channelWarnings, l.channelCriticals}
}

// Run pulls events and flushes on a fixed interval until ctx is
// canceled, then drains the channel and performs one final Full flush so
// no accepted trade is lost on shutdown.
func (l *Loop) Run(ctx context.Context) {
	flushTicker := time.NewTicker(l.cfg.FlushInterval)
	defer flushTicker.Stop()

	l.lastFullFlush = l.now()

	for {
		select {
		case <-ctx.Done():
			l.drainAndFinalFlush()
			return
		case ev, ok := <-l.events:
			if !ok {
				l.drainAndFinalFlush()
				return
			}
			l.engine.ProcessTrade(ev)
		case <-flushTicker.C:
			l.flushAndCheckBackpressure()
		}
	}
}

func (l *Loop) flushAndCheckBackpressure() {
	now := l.now()

	mode := pipeline.Delta
	if now-l.lastFullFlush >= int64(l.cfg.FullFlushInterval.Seconds()) {
		mode = pipeline.Full
		l.lastFullFlush = now
	}

	result := l.engine.Flush(now, mode)

	if err := l.writer.Write(context.Background(), result.Aggregates, result.Signals); err != nil {
		l.log.WithError(err).Error("ingestion loop: durable write failed")
	}
	l.publishSignals(result.Signals)

	if l.recon != nil && mode == pipeline.Delta {
		l.recon.Sample(result, now)
	}

	removed := l.engine.Prune(now, l.cfg.MintPruneThreshold)
	if removed > 0 {
		l.log.WithField("removed", removed).Debug("ingestion loop: pruned stale mints")
	}

	l.checkBackpressure()
}

func (l *Loop) checkBackpressure() {
	inFlight, capacity := l.engine.ChannelUsage()
	if capacity == 0 {
		return
	}
	occupancy := float64(inFlight) / float64(capacity)

	switch {
	case occupancy >= l.cfg.ChannelCriticalWatermark:
		l.channelCriticals.Inc()
		l.log.WithFields(logrus.Fields{"in_flight": inFlight, "capacity": capacity}).
			Error("ingestion loop: channel occupancy at critical watermark")
	case occupancy >= l.cfg.ChannelHighWatermark:
		l.channelWarnings.Inc()
		l.log.WithFields(logrus.Fields{"in_flight": inFlight, "capacity": capacity}).
			Warn("ingestion loop: channel occupancy at high watermark")
	}
}

// drainAndFinalFlush consumes any events already in flight in the
// channel, then performs one last Full flush before the loop exits.
func (l *Loop) drainAndFinalFlush() {
	for {
		select {
		case ev, ok := <-l.events:
			if !ok {
				l.finalFlush()
				return
			}
			l.engine.ProcessTrade(ev)
		default:
			l.finalFlush()
			return
		}
	}
}

func (l *Loop) finalFlush() {
	now := l.now()
	result := l.engine.Flush(now, pipeline.Full)
	if err := l.writer.Write(context.Background(), result.Aggregates, result.Signals); err != nil {
		l.log.WithError(err).Error("ingestion loop: final flush write failed")
	}
	l.publishSignals(result.Signals)
}

// publishSignals fans every signal from a flush out to the ops websocket
// feed. Best-effort: a nil Publisher or a full broadcast channel never
// blocks or fails the flush that produced the signal.
func (l *Loop) publishSignals(signals []model.Signal) {
	if l.pub == nil {
		return
	}
	for _, sig := range signals {
		l.pub.Publish(sig)
	}
}
