package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/core/native"
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/util"
)

func TestFeerReadsPolicyAndBalanceFromChain(t *testing.T) {
	bc, err := NewBlockchain(storage.NewMemoryStore(), Config{})
	require.NoError(t, err)

	f := NewFeer(bc)
	require.Equal(t, int64(native.DefaultFeePerByte), f.FeePerByte())
	require.Equal(t, uint32(0), f.BlockHeight())
	require.False(t, f.IsBlocked(util.Uint160{1, 2, 3}))
	require.Equal(t, int64(0), f.GetUtilityTokenBalance(util.Uint160{1, 2, 3}).Int64())
}
