package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solflowhq/solflow/internal/model"
)

func TestDetectSurge_FiresWhenBuyCountDoublesOverPreceding(t *testing.T) {
	rolling := model.NewTokenRollingState("MintA", 0)
	// Preceding window [-300, 0): 2 buys.
	rolling.Insert(model.Observation{Timestamp: -200, Side: model.Buy, SOLVolume: 1, TokenVolume: 1, Wallet: 1})
	rolling.Insert(model.Observation{Timestamp: -100, Side: model.Buy, SOLVolume: 1, TokenVolume: 1, Wallet: 2})
	// Current window [0, 300]: 5 buys.
	for i, ts := range []int64{10, 20, 30, 40, 50} {
		rolling.Insert(model.Observation{Timestamp: ts, Side: model.Buy, SOLVolume: 1, TokenVolume: 1, Wallet: uint16(i + 10)})
	}

	cfg := DefaultSignalConfig()
	now := int64(300)
	stats := rolling.AllWindowStats(now)

	sig := detectSurge("MintA", stats, rolling, now, cfg)
	if assert.NotNil(t, sig) {
		assert.Equal(t, model.SignalSurge, sig.Type)
	}
}

func TestDetectSurge_NoBaselineNoSignal(t *testing.T) {
	rolling := model.NewTokenRollingState("MintA", 0)
	rolling.Insert(model.Observation{Timestamp: 10, Side: model.Buy, SOLVolume: 1, TokenVolume: 1, Wallet: 1})

	cfg := DefaultSignalConfig()
	now := int64(300)
	stats := rolling.AllWindowStats(now)

	sig := detectSurge("MintA", stats, rolling, now, cfg)
	assert.Nil(t, sig)
}

func TestDetectFocused_FiresWithManyDistinctLightTraders(t *testing.T) {
	rolling := model.NewTokenRollingState("MintA", 0)
	for i := 0; i < 6; i++ {
		rolling.Insert(model.Observation{Timestamp: int64(10 + i), Side: model.Buy, SOLVolume: 0.1, TokenVolume: 1, Wallet: uint16(i)})
	}

	cfg := DefaultSignalConfig()
	now := int64(300)
	stats := rolling.AllWindowStats(now)

	sig := detectFocused("MintA", stats, now, cfg)
	if assert.NotNil(t, sig) {
		assert.Equal(t, model.SignalFocused, sig.Type)
		assert.Equal(t, 6, sig.Details.UniqueWallets)
	}
}

func TestDetectFocused_BelowMinWalletsNoSignal(t *testing.T) {
	rolling := model.NewTokenRollingState("MintA", 0)
	rolling.Insert(model.Observation{Timestamp: 10, Side: model.Buy, SOLVolume: 0.1, TokenVolume: 1, Wallet: 1})

	cfg := DefaultSignalConfig()
	now := int64(300)
	stats := rolling.AllWindowStats(now)

	sig := detectFocused("MintA", stats, now, cfg)
	assert.Nil(t, sig)
}

func TestDetectBreakout_FiresOnFreshCrossing(t *testing.T) {
	rolling := model.NewTokenRollingState("MintA", 0)
	// Preceding window below threshold, current window above.
	rolling.Insert(model.Observation{Timestamp: 10, Side: model.Sell, SOLVolume: 15, TokenVolume: 1, Wallet: 1})

	cfg := DefaultSignalConfig()
	now := int64(300)
	stats := rolling.AllWindowStats(now)

	sig := detectBreakout("MintA", stats, rolling, now, cfg)
	if assert.NotNil(t, sig) {
		assert.Equal(t, model.SignalBreakout, sig.Type)
	}
}

func TestDetectBreakout_NoSignalBelowThreshold(t *testing.T) {
	rolling := model.NewTokenRollingState("MintA", 0)
	rolling.Insert(model.Observation{Timestamp: 10, Side: model.Sell, SOLVolume: 1, TokenVolume: 1, Wallet: 1})

	cfg := DefaultSignalConfig()
	now := int64(300)
	stats := rolling.AllWindowStats(now)

	sig := detectBreakout("MintA", stats, rolling, now, cfg)
	assert.Nil(t, sig)
}
