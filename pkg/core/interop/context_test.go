package interop

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

type fakeLedger struct{}

func (fakeLedger) CurrentHeight() uint32                                              { return 0 }
func (fakeLedger) CurrentBlockHash() util.Uint256                                      { return util.Uint256{} }
func (fakeLedger) GetContractState(int32) (ContractState, bool)                        { return ContractState{}, false }
func (fakeLedger) GetContractStateByHash(util.Uint160) (ContractState, bool)           { return ContractState{}, false }

func newTestContext() *Context {
	store := storage.NewMemCachedStore(storage.NewMemoryStore())
	return NewContext(TriggerApplication, fakeLedger{}, store, nil, 10_000_000, 1)
}

func TestLoadScriptTracksEntryAndCallingHash(t *testing.T) {
	ctx := newTestContext()
	script1 := []byte{0x51}
	script2 := []byte{0x52}

	ctx.LoadScript(script1, vm.CallFlagAll)
	require.Equal(t, ctx.CurrentScriptHash(), ctx.EntryScriptHash())
	require.Equal(t, util.Uint160{}, ctx.CallingScriptHash())

	ctx.LoadScript(script2, vm.CallFlagAll)
	require.NotEqual(t, ctx.CurrentScriptHash(), ctx.EntryScriptHash())
	require.Equal(t, ctx.EntryScriptHash(), ctx.CallingScriptHash())

	ctx.PopScriptHash()
	require.Equal(t, ctx.EntryScriptHash(), ctx.CurrentScriptHash())
}

func TestInvocationCounterIncrementsPerLoad(t *testing.T) {
	ctx := newTestContext()
	script := []byte{0x51}

	ctx.LoadScript(script, vm.CallFlagAll)
	h := ctx.CurrentScriptHash()
	require.Equal(t, 1, ctx.InvocationCounter(h))

	ctx.LoadScript(script, vm.CallFlagAll)
	require.Equal(t, 2, ctx.InvocationCounter(h))
}

func TestAddNotificationBuffersEvent(t *testing.T) {
	ctx := newTestContext()
	ctx.AddNotification(util.Uint160{1}, "Transfer", stackitem.NewArray(nil))
	require.Len(t, ctx.Notifications, 1)
	require.Equal(t, "Transfer", ctx.Notifications[0].Name)
}

func TestNewEngineWiresInteropTable(t *testing.T) {
	store := storage.NewMemCachedStore(storage.NewMemoryStore())
	eng := NewEngine(TriggerApplication, fakeLedger{}, store, nil, 10_000_000, 1)
	require.NotNil(t, eng.VM.Interops)
	require.NotEmpty(t, eng.VM.Interops)
}
