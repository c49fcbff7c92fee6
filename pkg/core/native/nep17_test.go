package native

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm"
)

type nep17FakeLedger struct{}

func (nep17FakeLedger) CurrentHeight() uint32                                    { return 0 }
func (nep17FakeLedger) CurrentBlockHash() util.Uint256                           { return util.Uint256{} }
func (nep17FakeLedger) GetContractState(int32) (interop.ContractState, bool)     { return interop.ContractState{}, false }
func (nep17FakeLedger) GetContractStateByHash(util.Uint160) (interop.ContractState, bool) {
	return interop.ContractState{}, false
}

func newNep17TestContext(t *testing.T) (*interop.Context, util.Uint160) {
	t.Helper()
	store := storage.NewMemCachedStore(storage.NewMemoryStore())
	ic := interop.NewContext(interop.TriggerApplication, nep17FakeLedger{}, store, nil, 10_000_000, 1)
	ic.LoadScript([]byte{0x51}, vm.CallFlagAll)
	return ic, ic.CurrentScriptHash()
}

const testContractID int32 = -100

func TestNep17MintCreditsBalanceAndSupply(t *testing.T) {
	ic, acc := newNep17TestContext(t)
	nep17Mint(ic, testContractID, util.Uint160{7}, acc, big.NewInt(100))

	require.Equal(t, big.NewInt(100), nep17Balance(ic, testContractID, acc))
	require.Equal(t, big.NewInt(100), nep17TotalSupply(ic, testContractID))
	require.Len(t, ic.Notifications, 1)
	require.Equal(t, "Transfer", ic.Notifications[0].Name)
}

func TestNep17BurnDebitsBalanceAndRejectsOverdraft(t *testing.T) {
	ic, acc := newNep17TestContext(t)
	nep17Mint(ic, testContractID, util.Uint160{7}, acc, big.NewInt(50))

	require.NoError(t, nep17Burn(ic, testContractID, util.Uint160{7}, acc, big.NewInt(30)))
	require.Equal(t, big.NewInt(20), nep17Balance(ic, testContractID, acc))

	require.ErrorIs(t, nep17Burn(ic, testContractID, util.Uint160{7}, acc, big.NewInt(100)), errInsufficientFunds)
}

func TestNep17TransferMovesBalanceWithWitness(t *testing.T) {
	ic, from := newNep17TestContext(t)
	to := util.Uint160{2, 2, 2}
	nep17Mint(ic, testContractID, util.Uint160{7}, from, big.NewInt(100))

	require.NoError(t, nep17Transfer(ic, testContractID, util.Uint160{7}, from, to, big.NewInt(40)))
	require.Equal(t, big.NewInt(60), nep17Balance(ic, testContractID, from))
	require.Equal(t, big.NewInt(40), nep17Balance(ic, testContractID, to))
}

func TestNep17TransferRejectsUnauthorizedSender(t *testing.T) {
	ic, _ := newNep17TestContext(t)
	strangerFrom := util.Uint160{5, 5, 5}
	to := util.Uint160{2}
	nep17Mint(ic, testContractID, util.Uint160{7}, strangerFrom, big.NewInt(100))

	err := nep17Transfer(ic, testContractID, util.Uint160{7}, strangerFrom, to, big.NewInt(10))
	require.ErrorIs(t, err, errNoAuthorization)
}

func TestNep17TransferRejectsNegativeAmount(t *testing.T) {
	ic, from := newNep17TestContext(t)
	err := nep17Transfer(ic, testContractID, util.Uint160{7}, from, from, big.NewInt(-1))
	require.ErrorIs(t, err, errNegativeAmount)
}
