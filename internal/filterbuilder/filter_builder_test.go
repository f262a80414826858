package filterbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_OnePerProgram(t *testing.T) {
	ids := []string{
		"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",
		"6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P",
	}
	names := []string{"RaydiumAMM", "PumpSwap"}

	filters, err := Build(ids, names)
	require.NoError(t, err)
	assert.Len(t, filters, len(ids))

	for _, f := range filters {
		assert.Len(t, f.AccountRequired, 1)
		assert.False(t, f.Vote)
		assert.False(t, f.Failed)
	}

	_, ok := filters["RaydiumAMM_filter"]
	assert.True(t, ok)
	_, ok = filters["PumpSwap_filter"]
	assert.True(t, ok)
}

func TestBuild_EmptyListIsConfigError(t *testing.T) {
	_, err := Build(nil, nil)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestBuild_UnparseableIdentity(t *testing.T) {
	_, err := Build([]string{"not-a-valid-base58-pubkey!!"}, []string{"Bad"})
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
