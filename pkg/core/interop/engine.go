package interop

import (
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/vm"
)

// NewEngine builds a Context with its full syscall table installed,
// scoped to trigger t. Set the returned Context's NativeCall field
// before execution to wire System.Contract.Call targets resolving to a
// native contract into the native registry (pkg/core/native); leave it
// nil outside a native-aware host (e.g. unit tests exercising the VM in
// isolation).
func NewEngine(t Trigger, ledger Ledger, store *storage.MemCachedStore, container any, gasLimit int64, execFeeFactor int64) *Context {
	ctx := NewContext(t, ledger, store, container, gasLimit, execFeeFactor)

	table := make(vm.InteropTable)
	RegisterRuntime(table, ctx)
	RegisterStorage(table, ctx)
	RegisterContract(table, ctx)
	RegisterCrypto(table, ctx)
	RegisterIterator(table, ctx)
	ctx.VM.Interops = table

	return ctx
}
