package pipeline

import (
	"github.com/google/uuid"

	"github.com/solflowhq/solflow/internal/model"
)

// SignalConfig carries the thresholds configuring each signal detector.
// The detectors read every threshold from this struct; the defaults come
// from DefaultSignalConfig, and internal/config loads no signal
// thresholds from the environment.
type SignalConfig struct {
	BreakoutWindow       int64
	BreakoutNetFlowSOL   float64
	SurgeWindow          int64
	SurgeRatio           float64
	FocusedWindow        int64
	FocusedMinWallets    int
	FocusedWalletRatio   float64
	BotDropoffWindow     int64
	BotDropoffFraction   float64
}

// DefaultSignalConfig returns reasonable starting thresholds, grounded on
// the orders of magnitude described for each signal.
func DefaultSignalConfig() SignalConfig {
	return SignalConfig{
		BreakoutWindow:     300,
		BreakoutNetFlowSOL: 10,
		SurgeWindow:        300,
		SurgeRatio:         2.0,
		FocusedWindow:      300,
		FocusedMinWallets:  5,
		FocusedWalletRatio: 0.6,
		BotDropoffWindow:   300,
		BotDropoffFraction: 0.2,
	}
}

func detectSignals(mint string, stats map[int64]model.WindowStats, rolling *model.TokenRollingState, now int64, cfg SignalConfig) []model.Signal {
	var signals []model.Signal

	if s := detectBreakout(mint, stats, rolling, now, cfg); s != nil {
		signals = append(signals, *s)
	}
	if s := detectSurge(mint, stats, rolling, now, cfg); s != nil {
		signals = append(signals, *s)
	}
	focused := detectFocused(mint, stats, now, cfg)
	if focused != nil {
		signals = append(signals, *focused)
	}
	if s := detectBotDropoff(mint, stats, rolling, now, cfg, focused != nil); s != nil {
		signals = append(signals, *s)
	}

	return signals
}

// detectBreakout fires when net flow over the window crosses the
// configured positive threshold but the preceding equivalent window did
// not — a fresh crossing, not a sustained one.
func detectBreakout(mint string, stats map[int64]model.WindowStats, rolling *model.TokenRollingState, now int64, cfg SignalConfig) *model.Signal {
	current, ok := stats[cfg.BreakoutWindow]
	if !ok || current.NetFlowSOL < cfg.BreakoutNetFlowSOL {
		return nil
	}

	preceding := rolling.Stats(now-cfg.BreakoutWindow, cfg.BreakoutWindow)
	if preceding.NetFlowSOL >= cfg.BreakoutNetFlowSOL {
		return nil
	}

	return &model.Signal{
		ID:        uuid.New().String(),
		Mint:      mint,
		Type:      model.SignalBreakout,
		Severity:  severityFromRatio(current.NetFlowSOL, cfg.BreakoutNetFlowSOL),
		CreatedAt: now,
		Details: model.SignalDetails{
			Window:        cfg.BreakoutWindow,
			NetFlowSOL:    current.NetFlowSOL,
			BuyCount:      current.BuyCount,
			SellCount:     current.SellCount,
			VolumeSOL:     current.VolumeSOL,
			UniqueWallets: current.UniqueWallets,
		},
	}
}

// detectSurge fires when the buy count in the window exceeds the
// configured ratio of the preceding window's buy count.
func detectSurge(mint string, stats map[int64]model.WindowStats, rolling *model.TokenRollingState, now int64, cfg SignalConfig) *model.Signal {
	current, ok := stats[cfg.SurgeWindow]
	if !ok || current.BuyCount == 0 {
		return nil
	}

	preceding := rolling.Stats(now-cfg.SurgeWindow, cfg.SurgeWindow)
	if preceding.BuyCount == 0 {
		// No baseline to compare against; treat any buys as a surge only
		// once a preceding window exists with at least one buy.
		return nil
	}

	ratio := float64(current.BuyCount) / float64(preceding.BuyCount)
	if ratio < cfg.SurgeRatio {
		return nil
	}

	return &model.Signal{
		ID:        uuid.New().String(),
		Mint:      mint,
		Type:      model.SignalSurge,
		Severity:  severityFromRatio(ratio, cfg.SurgeRatio),
		CreatedAt: now,
		Details: model.SignalDetails{
			Window:        cfg.SurgeWindow,
			NetFlowSOL:    current.NetFlowSOL,
			BuyCount:      current.BuyCount,
			SellCount:     current.SellCount,
			VolumeSOL:     current.VolumeSOL,
			UniqueWallets: current.UniqueWallets,
		},
	}
}

// detectFocused fires when unique-wallet count exceeds a configured
// minimum and the wallet-to-trade ratio exceeds a configured threshold —
// many distinct wallets, each trading only a little, rather than one
// wallet wash-trading.
func detectFocused(mint string, stats map[int64]model.WindowStats, now int64, cfg SignalConfig) *model.Signal {
	current, ok := stats[cfg.FocusedWindow]
	if !ok || current.UniqueWallets < cfg.FocusedMinWallets {
		return nil
	}

	trades := current.BuyCount + current.SellCount
	if trades == 0 {
		return nil
	}

	ratio := float64(current.UniqueWallets) / float64(trades)
	if ratio < cfg.FocusedWalletRatio {
		return nil
	}

	return &model.Signal{
		ID:        uuid.New().String(),
		Mint:      mint,
		Type:      model.SignalFocused,
		Severity:  severityFromRatio(ratio, cfg.FocusedWalletRatio),
		CreatedAt: now,
		Details: model.SignalDetails{
			Window:        cfg.FocusedWindow,
			NetFlowSOL:    current.NetFlowSOL,
			BuyCount:      current.BuyCount,
			SellCount:     current.SellCount,
			VolumeSOL:     current.VolumeSOL,
			UniqueWallets: current.UniqueWallets,
		},
	}
}

// detectBotDropoff fires when a prior FOCUSED condition no longer holds
// and the trade rate has collapsed below the configured fraction of its
// recent mean — the hand-off from organic distributed interest to an
// abrupt stop, typically bot-driven activity pausing.
func detectBotDropoff(mint string, stats map[int64]model.WindowStats, rolling *model.TokenRollingState, now int64, cfg SignalConfig, stillFocused bool) *model.Signal {
	if stillFocused {
		return nil
	}

	current, ok := stats[cfg.BotDropoffWindow]
	if !ok {
		return nil
	}

	preceding := rolling.Stats(now-cfg.BotDropoffWindow, cfg.BotDropoffWindow)
	precedingTrades := preceding.BuyCount + preceding.SellCount
	if precedingTrades == 0 {
		return nil
	}

	// Only meaningful once the mint actually was focused in the
	// preceding window — otherwise every quiet mint would "drop off".
	if preceding.UniqueWallets < cfg.FocusedMinWallets {
		return nil
	}
	if float64(preceding.UniqueWallets)/float64(precedingTrades) < cfg.FocusedWalletRatio {
		return nil
	}

	currentTrades := current.BuyCount + current.SellCount
	fraction := float64(currentTrades) / float64(precedingTrades)
	if fraction >= cfg.BotDropoffFraction {
		return nil
	}

	return &model.Signal{
		ID:        uuid.New().String(),
		Mint:      mint,
		Type:      model.SignalBotDropoff,
		Severity:  severityFromRatio(cfg.BotDropoffFraction, fraction+0.001),
		CreatedAt: now,
		Details: model.SignalDetails{
			Window:        cfg.BotDropoffWindow,
			NetFlowSOL:    current.NetFlowSOL,
			BuyCount:      current.BuyCount,
			SellCount:     current.SellCount,
			VolumeSOL:     current.VolumeSOL,
			UniqueWallets: current.UniqueWallets,
		},
	}
}

// severityFromRatio maps "how far past threshold" onto the small
// integer severity scale 1 (just crossed) through 4 (far past).
func severityFromRatio(value, threshold float64) int {
	if threshold == 0 {
		return 1
	}
	ratio := value / threshold
	switch {
	case ratio >= 4:
		return 4
	case ratio >= 2:
		return 3
	case ratio >= 1.2:
		return 2
	default:
		return 1
	}
}
