package native

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/vm"
)

func TestNewContractsRegistersAllByIDAndHash(t *testing.T) {
	cs := NewContracts(Config{}, nil)
	require.Len(t, cs.Contracts, 9)

	for _, want := range []int32{
		IDContractManagement, IDStdLib, IDCryptoLib, IDLedgerContract,
		IDNeoToken, IDGasToken, IDPolicyContract, IDRoleManagement, IDOracleContract,
	} {
		ct, ok := cs.ByID(want)
		require.True(t, ok, "missing native id %d", want)
		_, ok = cs.ByHash(ct.Metadata().Hash)
		require.True(t, ok)
	}
}

func TestNewContractsAppliesDefaultCommitteeSizing(t *testing.T) {
	cs := NewContracts(Config{}, nil)
	require.NotNil(t, cs.NEO)
	require.NotNil(t, cs.GAS)
}

func TestContractsInvokeDispatchesToNative(t *testing.T) {
	cs := NewContracts(Config{}, nil)
	ic := newCryptoTestContext(t)

	res, err := cs.Invoke(ic, IDPolicyContract, "getFeePerByte", vm.CallFlagAll, nil)
	require.NoError(t, err)
	require.NotNil(t, res)
}

func TestContractsInvokeRejectsUnknownID(t *testing.T) {
	cs := NewContracts(Config{}, nil)
	ic := newCryptoTestContext(t)

	_, err := cs.Invoke(ic, -9999, "anything", vm.CallFlagAll, nil)
	require.ErrorIs(t, err, ErrMethodNotFound)
}

func TestContractsOnPersistAndPostPersistAllRunWithoutError(t *testing.T) {
	cs := NewContracts(Config{}, nil)
	ic := newCryptoTestContext(t)

	require.NoError(t, cs.OnPersistAll(ic))
	require.NoError(t, cs.PostPersistAll(ic))
}
