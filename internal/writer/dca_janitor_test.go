package writer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solflowhq/solflow/internal/model"
	"github.com/solflowhq/solflow/internal/registry"
)

func TestRecordDCABuy_NonDCAProgramIsNoOp(t *testing.T) {
	ev := model.TradeEvent{SourceProgramName: "RaydiumAMM", Side: model.Buy, Mint: "MintA", Timestamp: 100}
	err := RecordDCABuy(nil, nil, ev)
	assert.NoError(t, err)
}

func TestRecordDCABuy_SellOnDCAProgramIsNoOp(t *testing.T) {
	ev := model.TradeEvent{SourceProgramName: registry.DCAProgramName, Side: model.Sell, Mint: "MintA", Timestamp: 100}
	err := RecordDCABuy(nil, nil, ev)
	assert.NoError(t, err)
}
