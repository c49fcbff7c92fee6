package native

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/util"
)

func TestGasTokenBalanceOfReadsNep17Storage(t *testing.T) {
	ic, acc := newNep17TestContext(t)
	nep17Mint(ic, IDGasToken, util.Uint160{6}, acc, big.NewInt(500))

	g := &GasToken{md: NewContractMD(IDGasToken, NameGasToken)}
	require.Equal(t, big.NewInt(500), g.BalanceOf(ic.Store, acc))
}

func TestGasTokenSymbolAndDecimals(t *testing.T) {
	neo := NewNeoToken(7, 4)
	g := NewGasToken(neo, 7)
	ic, _ := newNep17TestContext(t)

	sym, err := g.Metadata().Invoke(ic, "symbol", g.Metadata().Methods["symbol"].RequiredFlags, nil)
	require.NoError(t, err)
	require.Equal(t, "GAS", string(sym.Value().([]byte)))

	dec, err := g.Metadata().Invoke(ic, "decimals", g.Metadata().Methods["decimals"].RequiredFlags, nil)
	require.NoError(t, err)
	require.Equal(t, int64(GasDecimals), dec.Value().(*big.Int).Int64())
}
