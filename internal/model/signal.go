package model

// SignalType enumerates the bounded family of patterns the Pipeline
// Engine detects on every flushed mint.
type SignalType string

const (
	SignalBreakout   SignalType = "BREAKOUT"
	SignalSurge      SignalType = "SURGE"
	SignalFocused    SignalType = "FOCUSED"
	SignalBotDropoff SignalType = "BOT_DROPOFF"
)

// Signal is the durable, append-only record of a detected pattern.
// Details carries enough of the triggering window's counters that a
// dashboard sparkline can be reconstructed without re-querying the
// rolling state that produced it (which will have moved on by the time
// anyone reads the signal). ID is not part of the durable schema (the
// append-only table's identity is its BIGSERIAL row id); it exists so
// the ops websocket feed gives a reconnecting client a stable key to
// dedup a signal it may have already seen.
type Signal struct {
	ID        string
	Mint      string
	Type      SignalType
	Severity  int
	CreatedAt int64
	Details   SignalDetails
}

// SignalDetails is the structured detail bag, computed from the same
// WindowStats as the token_aggregates row of the same flush. NetFlowSOL
// equals that row's net_flow_<Window>s_sol; for a 300-second window,
// VolumeSOL and UniqueWallets equal volume_300s_sol and
// unique_wallets_300s. BuyCount and SellCount have no token_aggregates
// column.
type SignalDetails struct {
	Window      int64   `json:"window"`
	NetFlowSOL  float64 `json:"netFlowSol"`
	BuyCount    int     `json:"buyCount"`
	SellCount   int     `json:"sellCount"`
	VolumeSOL   float64 `json:"volumeSol"`
	UniqueWallets int   `json:"uniqueWallets"`
}
