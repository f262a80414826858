package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solflowhq/solflow/internal/model"
)

func TestExtract_BuySubtractsSOLFromUser(t *testing.T) {
	meta := &model.Meta{
		PreBalances:  []uint64{5_000_000_000, 1_000_000_000},
		PostBalances: []uint64{4_000_000_000, 1_900_000_000},
		PreTokenBalances: []model.TokenBalance{
			{AccountIndex: 1, Mint: "MintA", Decimals: 6, UIAmount: 0, Amount: 0},
		},
		PostTokenBalances: []model.TokenBalance{
			{AccountIndex: 1, Mint: "MintA", Decimals: 6, UIAmount: 1000, Amount: 1_000_000_000},
		},
	}

	event, ok := Extract(meta, "sig1", 1000, "RaydiumAMM")
	require.True(t, ok)
	assert.Equal(t, model.Buy, event.Side)
	assert.Equal(t, "MintA", event.Mint)
	assert.Equal(t, uint16(0), event.UserAccountIndex)
	assert.InDelta(t, 1.0, event.SOLVolume, 1e-9)
	assert.InDelta(t, 1000.0, event.TokenVolume, 1e-9)
	assert.Equal(t, uint8(6), event.Decimals)
	assert.Equal(t, "RaydiumAMM", event.SourceProgramName)
}

func TestExtract_SellIsNotSuppressedByLargestNegativeBug(t *testing.T) {
	// User receives SOL (positive delta), counterparty pays out a smaller
	// negative delta elsewhere — a naive "largest negative" rule would
	// pick the counterparty and misclassify this as a BUY.
	meta := &model.Meta{
		PreBalances:  []uint64{10_000_000_000, 1_000_000_000},
		PostBalances: []uint64{9_100_000_000, 2_000_000_000},
		PreTokenBalances: []model.TokenBalance{
			{AccountIndex: 0, Mint: "MintA", Decimals: 6, UIAmount: 1000, Amount: 1_000_000_000},
		},
		PostTokenBalances: []model.TokenBalance{
			{AccountIndex: 0, Mint: "MintA", Decimals: 6, UIAmount: 0, Amount: 0},
		},
	}

	event, ok := Extract(meta, "sig2", 1000, "PumpSwap")
	require.True(t, ok)
	assert.Equal(t, model.Sell, event.Side)
	assert.Equal(t, uint16(1), event.UserAccountIndex)
}

func TestExtract_NoiseFloorDropsTinyDelta(t *testing.T) {
	meta := &model.Meta{
		PreBalances:  []uint64{1_000_000_000},
		PostBalances: []uint64{999_995_000}, // 0.000005 SOL, below noise floor
		PreTokenBalances: []model.TokenBalance{
			{AccountIndex: 0, Mint: "MintA", Decimals: 6, UIAmount: 100, Amount: 100_000_000},
		},
		PostTokenBalances: []model.TokenBalance{
			{AccountIndex: 0, Mint: "MintA", Decimals: 6, UIAmount: 101, Amount: 101_000_000},
		},
	}

	_, ok := Extract(meta, "sig3", 1000, "RaydiumAMM")
	assert.False(t, ok)
}

func TestExtract_NoTokenDeltaReturnsNone(t *testing.T) {
	meta := &model.Meta{
		PreBalances:  []uint64{1_000_000_000},
		PostBalances: []uint64{2_000_000_000},
	}

	_, ok := Extract(meta, "sig4", 1000, "RaydiumAMM")
	assert.False(t, ok)
}

func TestExtract_DecimalsMismatchDropsTokenPair(t *testing.T) {
	meta := &model.Meta{
		PreBalances:  []uint64{1_000_000_000},
		PostBalances: []uint64{2_000_000_000},
		PreTokenBalances: []model.TokenBalance{
			{AccountIndex: 0, Mint: "MintA", Decimals: 6, UIAmount: 0, Amount: 0},
		},
		PostTokenBalances: []model.TokenBalance{
			{AccountIndex: 0, Mint: "MintA", Decimals: 9, UIAmount: 1000, Amount: 1_000_000_000_000},
		},
	}

	_, ok := Extract(meta, "sig5", 1000, "RaydiumAMM")
	assert.False(t, ok)
}

func TestExtract_ZeroSOLDeltaReturnsNone(t *testing.T) {
	meta := &model.Meta{
		PreBalances:  []uint64{1_000_000_000},
		PostBalances: []uint64{1_000_000_000},
	}

	_, ok := Extract(meta, "sig6", 1000, "RaydiumAMM")
	assert.False(t, ok)
}

func TestExtract_NilMetaReturnsNone(t *testing.T) {
	_, ok := Extract(nil, "sig7", 1000, "RaydiumAMM")
	assert.False(t, ok)
}
