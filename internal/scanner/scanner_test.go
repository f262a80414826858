package scanner

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solflowhq/solflow/internal/model"
	"github.com/solflowhq/solflow/internal/registry"
)

func mustKey(t *testing.T, s string) solana.PublicKey {
	t.Helper()
	pk, err := solana.PublicKeyFromBase58(s)
	require.NoError(t, err)
	return pk
}

func newTestRegistry(t *testing.T) (*registry.Registry, solana.PublicKey, solana.PublicKey) {
	t.Helper()
	raydium := mustKey(t, "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	pumpswap := mustKey(t, "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	reg, err := registry.New([]registry.Entry{
		{Identity: raydium, Name: "RaydiumAMM"},
		{Identity: pumpswap, Name: "PumpSwap"},
	})
	require.NoError(t, err)
	return reg, raydium, pumpswap
}

func TestScan_MatchesTopLevel(t *testing.T) {
	reg, raydium, _ := newTestRegistry(t)
	s := New(reg)

	unrelated := mustKey(t, "11111111111111111111111111111111")
	tx := &model.TransactionRecord{
		Message: model.Message{
			AccountKeys: []solana.PublicKey{unrelated, raydium},
			Instructions: []model.CompiledInstruction{
				{ProgramIDIndex: 0},
				{ProgramIDIndex: 1},
			},
		},
	}

	match, ok := s.Scan(tx)
	require.True(t, ok)
	assert.Equal(t, PathOuter, match.Path.Kind)
	assert.Equal(t, 1, match.Path.OuterIndex)
	assert.Equal(t, "RaydiumAMM", match.ProgramName)
}

func TestScan_MatchesInnerOnlyWhenNoOuterMatch(t *testing.T) {
	reg, _, pumpswap := newTestRegistry(t)
	s := New(reg)

	unrelated := mustKey(t, "11111111111111111111111111111111")
	tx := &model.TransactionRecord{
		Message: model.Message{
			AccountKeys: []solana.PublicKey{unrelated, pumpswap},
			Instructions: []model.CompiledInstruction{
				{ProgramIDIndex: 0},
			},
		},
		Meta: &model.Meta{
			InnerInstructions: []model.InnerInstructionGroup{
				{
					Index: 0,
					Instructions: []model.InnerInstruction{
						{ProgramIDIndex: 0},
						{ProgramIDIndex: 1},
					},
				},
			},
		},
	}

	match, ok := s.Scan(tx)
	require.True(t, ok)
	assert.Equal(t, PathInner, match.Path.Kind)
	assert.Equal(t, 0, match.Path.OuterIndex)
	assert.Equal(t, []int{1}, match.Path.InnerPositions)
	assert.Equal(t, "PumpSwap", match.ProgramName)
}

func TestScan_NoMatch(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	s := New(reg)

	unrelated := mustKey(t, "11111111111111111111111111111111")
	tx := &model.TransactionRecord{
		Message: model.Message{
			AccountKeys:  []solana.PublicKey{unrelated},
			Instructions: []model.CompiledInstruction{{ProgramIDIndex: 0}},
		},
	}

	_, ok := s.Scan(tx)
	assert.False(t, ok)
}

func TestScan_OutOfRangeProgramIndexSkipped(t *testing.T) {
	reg, raydium, _ := newTestRegistry(t)
	s := New(reg)

	tx := &model.TransactionRecord{
		Message: model.Message{
			AccountKeys: []solana.PublicKey{raydium},
			Instructions: []model.CompiledInstruction{
				{ProgramIDIndex: 99},
			},
		},
	}

	_, ok := s.Scan(tx)
	assert.False(t, ok)
}

func TestScan_NilMetaRestrictsToTopLevel(t *testing.T) {
	reg, _, pumpswap := newTestRegistry(t)
	s := New(reg)

	unrelated := mustKey(t, "11111111111111111111111111111111")
	tx := &model.TransactionRecord{
		Message: model.Message{
			AccountKeys:  []solana.PublicKey{unrelated, pumpswap},
			Instructions: []model.CompiledInstruction{{ProgramIDIndex: 0}},
		},
		Meta: nil,
	}

	_, ok := s.Scan(tx)
	assert.False(t, ok)
}
