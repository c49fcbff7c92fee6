package native

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

func newOracleTestContext(t *testing.T) *interop.Context {
	t.Helper()
	store := storage.NewMemCachedStore(storage.NewMemoryStore())
	ic := interop.NewContext(interop.TriggerApplication, nep17FakeLedger{}, store, nil, 1_000_000_000, 1)
	ic.LoadScript([]byte{0x51}, vm.CallFlagAll)
	return ic
}

func TestOracleContractGetPriceDefaultsAndIsSettable(t *testing.T) {
	o := NewOracleContract()
	ic := newOracleTestContext(t)

	res, err := o.Metadata().Invoke(ic, "getPrice", vm.CallFlagAll, nil)
	require.NoError(t, err)
	require.Equal(t, int64(DefaultOracleRequestPrice), res.Value().(interface{ Int64() int64 }).Int64())

	_, err = o.Metadata().Invoke(ic, "setPrice", vm.CallFlagAll, []stackitem.Item{stackitem.NewInteger(99)})
	require.NoError(t, err)

	res, err = o.Metadata().Invoke(ic, "getPrice", vm.CallFlagAll, nil)
	require.NoError(t, err)
	require.Equal(t, int64(99), res.Value().(interface{ Int64() int64 }).Int64())
}

func TestOracleContractRequestRejectsInsufficientGas(t *testing.T) {
	o := NewOracleContract()
	ic := newOracleTestContext(t)

	_, err := o.Metadata().Invoke(ic, "request", vm.CallFlagAll, []stackitem.Item{
		stackitem.NewByteString([]byte("https://example.com")),
		stackitem.NewNull(),
		stackitem.NewByteString([]byte("callback")),
		stackitem.NewByteString(nil),
		stackitem.NewInteger(1),
	})
	require.Error(t, err)
}

func TestOracleContractRequestThenFinishEmitsNotifications(t *testing.T) {
	o := NewOracleContract()
	ic := newOracleTestContext(t)

	_, err := o.Metadata().Invoke(ic, "request", vm.CallFlagAll, []stackitem.Item{
		stackitem.NewByteString([]byte("https://example.com")),
		stackitem.NewNull(),
		stackitem.NewByteString([]byte("callback")),
		stackitem.NewByteString(nil),
		stackitem.NewInteger(DefaultOracleRequestPrice),
	})
	require.NoError(t, err)
	require.Len(t, ic.Notifications, 1)
	require.Equal(t, "OracleRequest", ic.Notifications[0].Name)

	_, err = o.Metadata().Invoke(ic, "finish", vm.CallFlagAll, []stackitem.Item{
		stackitem.NewInteger(1),
		stackitem.NewInteger(0),
		stackitem.NewByteString([]byte("response")),
	})
	require.NoError(t, err)
	require.Len(t, ic.Notifications, 2)
	require.Equal(t, "OracleResponse", ic.Notifications[1].Name)
}

func TestOracleContractFinishRejectsUnknownRequest(t *testing.T) {
	o := NewOracleContract()
	ic := newOracleTestContext(t)

	_, err := o.Metadata().Invoke(ic, "finish", vm.CallFlagAll, []stackitem.Item{
		stackitem.NewInteger(42),
		stackitem.NewInteger(0),
		stackitem.NewByteString(nil),
	})
	require.ErrorIs(t, err, ErrContractNotFound)
}
