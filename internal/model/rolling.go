package model

// Windows is the fixed list of rolling window widths, in seconds, every
// mint's rolling state is evaluated over.
var Windows = [6]int64{60, 300, 900, 3600, 7200, 14400}

// MaxWindow is the widest configured window; a flush trims observations
// older than now-MaxWindow, so no observation is trimmed while any window
// still covers it. Pruning of whole mints uses its own configured
// threshold, not MaxWindow.
const MaxWindow = int64(14400)

const dcaProgramName = "DCA"

// Observation is one trade folded into a mint's rolling state. It
// captures just enough to answer every windowed statistic the Pipeline
// Engine computes without retaining the originating TradeEvent.
type Observation struct {
	Timestamp   int64
	Program     string
	Side        Side
	SOLVolume   float64
	TokenVolume float64
	Wallet      uint16
}

// TokenRollingState is the in-memory, per-mint state the Pipeline Engine
// owns exclusively. Observations accumulate in insertion order; reads
// tail-trim anything older than MaxWindow before computing per-window
// aggregates, so the buffer's steady-state size is bounded by trade
// volume over the longest window rather than growing without bound.
type TokenRollingState struct {
	Mint         string
	Observations []Observation
	LastSeenTS   int64
}

// NewTokenRollingState creates empty Live state for a mint, first
// observed at ts.
func NewTokenRollingState(mint string, ts int64) *TokenRollingState {
	return &TokenRollingState{Mint: mint, LastSeenTS: ts}
}

// Insert folds one trade observation into the state and refreshes
// LastSeenTS. Callers do this from process_trade; it never suspends.
func (s *TokenRollingState) Insert(obs Observation) {
	s.Observations = append(s.Observations, obs)
	if obs.Timestamp > s.LastSeenTS {
		s.LastSeenTS = obs.Timestamp
	}
}

// TrimBefore discards observations older than cutoff. Called lazily on
// read (tail-trim) rather than eagerly on every insert, so a burst of
// inserts pays the trim cost once per flush rather than once per trade.
func (s *TokenRollingState) TrimBefore(cutoff int64) {
	i := 0
	for i < len(s.Observations) && s.Observations[i].Timestamp < cutoff {
		i++
	}
	if i > 0 {
		s.Observations = s.Observations[i:]
	}
}

// WindowStats is the computed snapshot for one window width at one mint.
type WindowStats struct {
	Window        int64
	NetFlowSOL    float64 // BUY subtracts, SELL adds — see sign convention in DESIGN.md
	BuyCount      int
	SellCount     int
	VolumeSOL     float64
	VolumeToken   float64
	UniqueWallets int
	DCABuyCount   int // buys attributed to the DCA program within this window
}

// Stats computes the windowed statistics as of instant now. It depends
// only on observations with Timestamp in [now-W, now], never on state
// mutated after now — this is what the "flush reads a consistent instant"
// invariant rests on, since the engine is single-writer and flush never
// interleaves with process_trade.
func (s *TokenRollingState) Stats(now int64, window int64) WindowStats {
	stats := WindowStats{Window: window}
	floor := now - window
	wallets := make(map[uint16]struct{})

	for _, obs := range s.Observations {
		if obs.Timestamp < floor || obs.Timestamp > now {
			continue
		}
		switch obs.Side {
		case Buy:
			stats.BuyCount++
			stats.NetFlowSOL -= obs.SOLVolume
			if obs.Program == dcaProgramName {
				stats.DCABuyCount++
			}
		case Sell:
			stats.SellCount++
			stats.NetFlowSOL += obs.SOLVolume
		}
		stats.VolumeSOL += obs.SOLVolume
		stats.VolumeToken += obs.TokenVolume
		wallets[obs.Wallet] = struct{}{}
	}
	stats.UniqueWallets = len(wallets)
	return stats
}

// AllWindowStats computes WindowStats for every configured window.
func (s *TokenRollingState) AllWindowStats(now int64) map[int64]WindowStats {
	out := make(map[int64]WindowStats, len(Windows))
	for _, w := range Windows {
		out[w] = s.Stats(now, w)
	}
	return out
}
