package native

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

func TestRoleManagementDesignateAndQuery(t *testing.T) {
	r := NewRoleManagement()
	ic := newCryptoTestContext(t)

	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)
	pk := priv.PublicKey()

	_, err = r.Metadata().Invoke(ic, "designateAsRole", vm.CallFlagAll, []stackitem.Item{
		stackitem.NewInteger(int64(RoleOracle)),
		stackitem.NewArray([]stackitem.Item{stackitem.NewByteString(pk.Bytes())}),
	})
	require.NoError(t, err)

	res, err := r.Metadata().Invoke(ic, "getDesignatedByRole", vm.CallFlagAll, []stackitem.Item{
		stackitem.NewInteger(int64(RoleOracle)),
		stackitem.NewInteger(1),
	})
	require.NoError(t, err)
	arr := res.(*stackitem.Array).Value().([]stackitem.Item)
	require.Len(t, arr, 1)
	require.Equal(t, pk.Bytes(), []byte(arr[0].(stackitem.ByteString)))
}

func TestRoleManagementGetDesignatedByRoleReturnsEmptyBeforeAnyDesignation(t *testing.T) {
	r := NewRoleManagement()
	ic := newCryptoTestContext(t)

	res, err := r.Metadata().Invoke(ic, "getDesignatedByRole", vm.CallFlagAll, []stackitem.Item{
		stackitem.NewInteger(int64(RoleStateValidator)),
		stackitem.NewInteger(100),
	})
	require.NoError(t, err)
	require.Len(t, res.(*stackitem.Array).Value().([]stackitem.Item), 0)
}
