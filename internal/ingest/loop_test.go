package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solflowhq/solflow/internal/model"
	"github.com/solflowhq/solflow/internal/pipeline"
)

type fakeWriter struct {
	mu         sync.Mutex
	writeCalls int
	lastAggs   []model.TokenAggregateRow
}

func (f *fakeWriter) Write(ctx context.Context, aggs []model.TokenAggregateRow, signals []model.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeCalls++
	f.lastAggs = aggs
	return nil
}

func (f *fakeWriter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeCalls
}

func TestLoop_ProcessesEventsAndFlushesOnInterval(t *testing.T) {
	events := make(chan model.TradeEvent, 10)
	engine := pipeline.New(pipeline.DefaultSignalConfig(), 10, func() int { return len(events) }, logrus.NewEntry(logrus.New()))
	fw := &fakeWriter{}

	cfg := Config{
		FlushInterval:            20 * time.Millisecond,
		FullFlushInterval:        time.Hour,
		MintPruneThreshold:       7200,
		ChannelHighWatermark:     0.80,
		ChannelCriticalWatermark: 0.95,
	}

	var tick int64 = 1000
	loop := New(cfg, engine, fw, events, nil, nil, logrus.NewEntry(logrus.New()), func() int64 { return tick })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	events <- model.TradeEvent{Timestamp: 1000, Mint: "MintA", Side: model.Buy, SOLVolume: 1.0, TokenVolume: 10}

	time.Sleep(60 * time.Millisecond)
	cancel()
	<-done

	assert.GreaterOrEqual(t, fw.calls(), 1)
}

type fakePublisher struct {
	mu   sync.Mutex
	seen []model.Signal
}

func (f *fakePublisher) Publish(sig model.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, sig)
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func TestLoop_PublishesSignalsFromFlush(t *testing.T) {
	events := make(chan model.TradeEvent, 10)
	engine := pipeline.New(pipeline.DefaultSignalConfig(), 10, func() int { return len(events) }, logrus.NewEntry(logrus.New()))
	fw := &fakeWriter{}
	fp := &fakePublisher{}

	cfg := Config{
		FlushInterval:            time.Hour,
		FullFlushInterval:        time.Hour,
		MintPruneThreshold:       7200,
		ChannelHighWatermark:     0.80,
		ChannelCriticalWatermark: 0.95,
	}

	var tick int64 = 1000
	loop := New(cfg, engine, fw, events, nil, fp, logrus.NewEntry(logrus.New()), func() int64 { return tick })

	// Three 5 SOL sells within the breakout window, no preceding window
	// activity, crosses DefaultSignalConfig's 10 SOL net-flow threshold.
	for i := 0; i < 3; i++ {
		engine.ProcessTrade(model.TradeEvent{
			Timestamp:        tick,
			Mint:             "MintA",
			Side:             model.Sell,
			SOLVolume:        5.0,
			TokenVolume:      10,
			UserAccountIndex: uint16(i),
		})
	}

	loop.flushAndCheckBackpressure()

	require.GreaterOrEqual(t, fp.count(), 1)
	assert.Equal(t, "MintA", fp.seen[0].Mint)
}

func TestLoop_BackpressureWatermarkDoesNotPanic(t *testing.T) {
	events := make(chan model.TradeEvent, 2)
	events <- model.TradeEvent{Mint: "A"}
	events <- model.TradeEvent{Mint: "B"}

	engine := pipeline.New(pipeline.DefaultSignalConfig(), 2, func() int { return len(events) }, logrus.NewEntry(logrus.New()))
	fw := &fakeWriter{}
	cfg := Config{
		FlushInterval:            time.Hour,
		FullFlushInterval:        time.Hour,
		MintPruneThreshold:       7200,
		ChannelHighWatermark:     0.80,
		ChannelCriticalWatermark: 0.95,
	}
	loop := New(cfg, engine, fw, events, nil, nil, logrus.NewEntry(logrus.New()), func() int64 { return 1000 })

	require.NotPanics(t, func() {
		loop.checkBackpressure()
	})
}
