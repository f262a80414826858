package model

// Side is the inferred direction of a Trade Event relative to the user
// account identified by the Trade Extractor.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// TradeEvent is produced by the Trade Extractor from balance deltas,
// enqueued into the bounded channel exactly once, consumed exactly once
// by the Pipeline Engine, then dropped. It carries no reference back to
// the TransactionRecord it was derived from.
type TradeEvent struct {
	Timestamp         int64 // seconds since epoch
	Signature         string
	Mint              string
	Decimals          uint8
	SOLVolume         float64
	TokenVolume       float64
	Side              Side
	SourceProgramName string
	UserAccountIndex  uint16
}
