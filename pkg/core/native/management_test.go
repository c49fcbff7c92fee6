package native

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/smartcontract/manifest"
	"github.com/n3-go/n3node/pkg/smartcontract/nef"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

func deployArgs(t *testing.T, script []byte, hash func([]byte) [20]byte) ([]byte, []byte) {
	t.Helper()
	nefFile, err := nef.NewFile(script)
	require.NoError(t, err)
	nefBytes, err := nefFile.Bytes()
	require.NoError(t, err)

	mf := manifest.NewManifest("test-contract")
	mjson, err := json.Marshal(mf)
	require.NoError(t, err)
	return nefBytes, mjson
}

func TestContractManagementDeployStoresAndReturnsContract(t *testing.T) {
	c := NewContractManagement()
	ic := newCryptoTestContext(t)

	nefBytes, mjson := deployArgs(t, []byte{0x51, 0x40}, nil)
	res, err := c.Metadata().Invoke(ic, "deploy", vm.CallFlagAll, []stackitem.Item{
		stackitem.NewByteString(nefBytes), stackitem.NewByteString(mjson),
	})
	require.NoError(t, err)
	st := res.(*stackitem.Struct)
	require.Len(t, st.Value().([]stackitem.Item), 5)
	require.Len(t, ic.Notifications, 1)
	require.Equal(t, "Deploy", ic.Notifications[0].Name)
}

func TestContractManagementDeployRejectsDuplicateHash(t *testing.T) {
	c := NewContractManagement()
	ic := newCryptoTestContext(t)

	nefBytes, mjson := deployArgs(t, []byte{0x51}, nil)
	args := []stackitem.Item{stackitem.NewByteString(nefBytes), stackitem.NewByteString(mjson)}

	_, err := c.Metadata().Invoke(ic, "deploy", vm.CallFlagAll, args)
	require.NoError(t, err)

	_, err = c.Metadata().Invoke(ic, "deploy", vm.CallFlagAll, args)
	require.ErrorIs(t, err, ErrContractAlreadyExists)
}

func TestContractManagementGetContractReturnsNullWhenAbsent(t *testing.T) {
	c := NewContractManagement()
	ic := newCryptoTestContext(t)

	res, err := c.Metadata().Invoke(ic, "getContract", vm.CallFlagAll, []stackitem.Item{
		stackitem.NewByteString(make([]byte, 20)),
	})
	require.NoError(t, err)
	require.Equal(t, stackitem.NewNull(), res)
}
