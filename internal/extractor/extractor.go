// Package extractor infers a trade from a transaction's balance deltas
// alone, without decoding any program's instruction payload. This keeps
// the extractor portable across every tracked program and robust to
// upstream instruction-schema drift, at the cost of instruction-level
// granularity — deliberate trade-offs that must be preserved by any
// change here.
package extractor

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/solflowhq/solflow/internal/model"
)

// noiseFloorSOL is the minimum absolute user SOL change for a balance
// shift to be considered a trade rather than fee/rent noise.
const noiseFloorSOL = 0.0001

const solDecimals = 9

// Extract computes a Trade Event from a matched transaction's balance
// deltas, the resolved source-program name, and the timestamp the caller
// assigns to it (the Scanner has already identified program and path;
// this package only needs meta, not the full account-key vector, since
// indexes here are account indexes, not program indexes).
func Extract(meta *model.Meta, signature string, timestamp int64, sourceProgramName string) (model.TradeEvent, bool) {
	if meta == nil {
		return model.TradeEvent{}, false
	}

	solDeltas := solBalanceDeltas(meta)
	tokenDeltas := tokenBalanceDeltas(meta)

	userIdx, userDelta, ok := largestAbsSOLDelta(solDeltas)
	if !ok {
		return model.TradeEvent{}, false
	}

	var side model.Side
	switch {
	case userDelta.RawChange.Sign() < 0:
		side = model.Buy
	case userDelta.RawChange.Sign() > 0:
		side = model.Sell
	default:
		return model.TradeEvent{}, false
	}

	if absf(userDelta.UIChange) < noiseFloorSOL {
		return model.TradeEvent{}, false
	}

	primaryMint, mintFound := primaryMint(tokenDeltas)
	if !mintFound {
		return model.TradeEvent{}, false
	}

	tokenVolume, decimals, ok := userTokenDelta(tokenDeltas, primaryMint)
	if !ok {
		return model.TradeEvent{}, false
	}

	return model.TradeEvent{
		Timestamp:         timestamp,
		Signature:         signature,
		Mint:              primaryMint,
		Decimals:          decimals,
		SOLVolume:         absf(userDelta.UIChange),
		TokenVolume:       absf(tokenVolume),
		Side:              side,
		SourceProgramName: sourceProgramName,
		UserAccountIndex:  userIdx,
	}, true
}

// solBalanceDeltas pairs each pre-balance with its post-balance by
// account index and emits one delta per account whose balance changed.
func solBalanceDeltas(meta *model.Meta) []model.BalanceDelta {
	n := len(meta.PreBalances)
	if len(meta.PostBalances) < n {
		n = len(meta.PostBalances)
	}

	deltas := make([]model.BalanceDelta, 0, n)
	for i := 0; i < n; i++ {
		pre := meta.PreBalances[i]
		post := meta.PostBalances[i]
		if pre == post {
			continue
		}
		raw := decimalFromUint64(post).Sub(decimalFromUint64(pre))
		uiChange, _ := raw.Div(decimal.NewFromInt(1_000_000_000)).Float64()
		deltas = append(deltas, model.BalanceDelta{
			AccountIndex: uint16(i),
			Mint:         "",
			RawChange:    raw,
			UIChange:     uiChange,
			Decimals:     solDecimals,
			IsNativeSOL:  true,
		})
	}
	return deltas
}

type tokenBalanceKey struct {
	accountIndex uint16
	mint         string
}

// tokenBalanceDeltas pairs pre/post token balances by (account_index,
// mint). A pair whose decimals disagree between pre and post is dropped
// rather than guessed at.
func tokenBalanceDeltas(meta *model.Meta) []model.BalanceDelta {
	pre := make(map[tokenBalanceKey]model.TokenBalance, len(meta.PreTokenBalances))
	for _, tb := range meta.PreTokenBalances {
		pre[tokenBalanceKey{tb.AccountIndex, tb.Mint}] = tb
	}

	deltas := make([]model.BalanceDelta, 0, len(meta.PostTokenBalances))
	for _, post := range meta.PostTokenBalances {
		key := tokenBalanceKey{post.AccountIndex, post.Mint}
		preTB, ok := pre[key]
		if !ok {
			continue
		}
		if preTB.Decimals != post.Decimals {
			continue
		}

		raw := decimalFromUint64(post.Amount).Sub(decimalFromUint64(preTB.Amount))
		deltas = append(deltas, model.BalanceDelta{
			AccountIndex: post.AccountIndex,
			Mint:         post.Mint,
			RawChange:    raw,
			UIChange:     post.UIAmount - preTB.UIAmount,
			Decimals:     post.Decimals,
			IsNativeSOL:  false,
		})
	}
	return deltas
}

// largestAbsSOLDelta returns the account index and delta with the
// largest absolute SOL raw_change. Ties are broken by first occurrence.
// This is symmetric between inflow and outflow — the specific guard
// against a "largest negative" rule that would suppress every SELL.
func largestAbsSOLDelta(deltas []model.BalanceDelta) (uint16, model.BalanceDelta, bool) {
	if len(deltas) == 0 {
		return 0, model.BalanceDelta{}, false
	}

	best := deltas[0]
	for _, d := range deltas[1:] {
		if d.RawChange.Abs().GreaterThan(best.RawChange.Abs()) {
			best = d
		}
	}
	return best.AccountIndex, best, true
}

// primaryMint chooses the mint with the largest |raw_change| among all
// token deltas, regardless of which account holds it.
func primaryMint(deltas []model.BalanceDelta) (string, bool) {
	if len(deltas) == 0 {
		return "", false
	}

	best := deltas[0]
	for _, d := range deltas[1:] {
		if d.RawChange.Abs().GreaterThan(best.RawChange.Abs()) {
			best = d
		}
	}
	return best.Mint, true
}

// userTokenDelta returns the token volume and decimals for the entry
// with the largest |raw_change| among deltas carrying mint.
func userTokenDelta(deltas []model.BalanceDelta, mint string) (float64, uint8, bool) {
	var best *model.BalanceDelta
	for i := range deltas {
		if deltas[i].Mint != mint {
			continue
		}
		if best == nil || deltas[i].RawChange.Abs().GreaterThan(best.RawChange.Abs()) {
			best = &deltas[i]
		}
	}
	if best == nil {
		return 0, 0, false
	}
	return best.UIChange, best.Decimals, true
}

// decimalFromUint64 converts a raw on-chain amount without passing it
// through int64, so values above math.MaxInt64 keep their magnitude.
func decimalFromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
