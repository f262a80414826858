package model

// TokenAggregateRow is the durable snapshot written per mint per flush —
// the sole read surface the dashboard's main view depends on. Field
// names mirror the token_aggregates schema in spec.md §6 exactly so the
// Durable Writer can marshal one to the other without a translation
// layer.
type TokenAggregateRow struct {
	Mint string

	NetFlow60sSOL    float64
	NetFlow300sSOL   float64
	NetFlow900sSOL   float64
	NetFlow3600sSOL  float64
	NetFlow7200sSOL  float64
	NetFlow14400sSOL float64

	DCABuys60s   int
	DCABuys300s  int
	DCABuys900s  int
	DCABuys3600s int
	DCABuys14400s int

	UniqueWallets300s int
	Volume300sSOL     float64

	UpdatedAt int64
}

// NewTokenAggregateRow builds the durable row from the per-window stats
// computed by TokenRollingState.AllWindowStats at instant now.
func NewTokenAggregateRow(mint string, stats map[int64]WindowStats, now int64) TokenAggregateRow {
	row := TokenAggregateRow{Mint: mint, UpdatedAt: now}
	if s, ok := stats[60]; ok {
		row.NetFlow60sSOL = s.NetFlowSOL
		row.DCABuys60s = s.DCABuyCount
	}
	if s, ok := stats[300]; ok {
		row.NetFlow300sSOL = s.NetFlowSOL
		row.DCABuys300s = s.DCABuyCount
		row.UniqueWallets300s = s.UniqueWallets
		row.Volume300sSOL = s.VolumeSOL
	}
	if s, ok := stats[900]; ok {
		row.NetFlow900sSOL = s.NetFlowSOL
		row.DCABuys900s = s.DCABuyCount
	}
	if s, ok := stats[3600]; ok {
		row.NetFlow3600sSOL = s.NetFlowSOL
		row.DCABuys3600s = s.DCABuyCount
	}
	if s, ok := stats[7200]; ok {
		row.NetFlow7200sSOL = s.NetFlowSOL
	}
	if s, ok := stats[14400]; ok {
		row.NetFlow14400sSOL = s.NetFlowSOL
		row.DCABuys14400s = s.DCABuyCount
	}
	return row
}
