package interop

import (
	"errors"

	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// NotificationEvent is one System.Runtime.Notify emission, attached to
// the triggering contract and buffered for the RPC/event subscription
// layer (§4.3, §4.7).
type NotificationEvent struct {
	ScriptHash util.Uint160
	Name       string
	Item       *stackitem.Array
}

// Ledger is the minimal read surface the application engine needs from
// the ledger (§4.7) to serve System.Runtime/System.Blockchain syscalls
// without importing the ledger package directly (breaking the
// core/interop -> core import cycle the native contracts would
// otherwise create).
type Ledger interface {
	CurrentHeight() uint32
	CurrentBlockHash() util.Uint256
	GetContractState(id int32) (ContractState, bool)
	GetContractStateByHash(hash util.Uint160) (ContractState, bool)
}

// ContractState is the subset of deployed-contract metadata the engine
// needs to resolve a System.Contract.Call target (§4.6).
type ContractState struct {
	ID       int32
	Hash     util.Uint160
	NEF      []byte
	Manifest ContractManifest
}

// ContractManifest is the minimal ABI/permission surface consulted during
// a contract call (full NEF/manifest parsing lives in pkg/core/state).
type ContractManifest struct {
	Name        string
	Groups      []*keys.PublicKey
	Permissions []Permission
}

// Permission restricts which contract/method pairs this contract may call.
type Permission struct {
	Contract util.Uint160
	Methods  []string
}

// Context is the application engine: a VM plus the host state syscalls
// operate against — ledger snapshot, trigger, container, call-stack of
// script hashes and the notification/log buffers a single invocation
// accumulates (§4.3).
type Context struct {
	VM      *vm.VM
	Trigger Trigger
	Ledger  Ledger
	Store   *storage.MemCachedStore

	// NativeCall, if set, lets callContract dispatch a target that
	// resolves to a native contract (negative ContractState.ID)
	// straight into the native contract registry (pkg/core/native)
	// instead of LoadScript-ing a NEF a native contract does not have.
	// Left nil outside a native-aware host (unit tests exercising the
	// VM in isolation).
	NativeCall func(ic *Context, id int32, method string, flags vm.CallFlags, args []stackitem.Item) (stackitem.Item, error)

	Container any

	scriptHashStack []util.Uint160
	entryHash       util.Uint160

	Notifications []NotificationEvent
	Logs          []string

	invocationCounter map[util.Uint160]int

	// BlockTime is used by System.Runtime.GetTime; the persistence
	// pipeline sets it to the persisting block's timestamp and it is zero
	// otherwise, never wall-clock time, so that verification is
	// deterministic.
	BlockTime uint64

	// ExecFeeFactor scales every opcode's gas price (PolicyContract's
	// governance knob); PriceFactor replaces the vm package's own fixed
	// factor of 1 once this context is built via NewContext.
	ExecFeeFactor int64
}

// ErrCallFlagsEscalation is returned when a nested invocation would grant
// itself flags the caller did not hold.
var ErrCallFlagsEscalation = errors.New("interop: callee cannot acquire flags caller lacks")

// NewContext returns a fresh application engine for a script executing
// under trigger t, with gasLimit datoshi available.
func NewContext(t Trigger, ledger Ledger, store *storage.MemCachedStore, container any, gasLimit int64, execFeeFactor int64) *Context {
	if execFeeFactor <= 0 {
		execFeeFactor = 1
	}
	return &Context{
		VM:                vm.New(gasLimit, execFeeFactor),
		Trigger:           t,
		Ledger:            ledger,
		Store:             store,
		Container:         container,
		invocationCounter: make(map[util.Uint160]int),
		ExecFeeFactor:     execFeeFactor,
	}
}

// LoadScript pushes script as a new invocation context with flags,
// tracking its script hash on the engine's call stack for
// GetCallingScriptHash/GetEntryScriptHash, and returns the VM context so
// callers that need it after Run (e.g. to read its Estack once the
// invocation stack has unwound past it) can hold onto it directly.
func (c *Context) LoadScript(script []byte, flags vm.CallFlags) *vm.Context {
	h := hash.Hash160(script)
	if len(c.scriptHashStack) == 0 {
		c.entryHash = h
	}
	c.scriptHashStack = append(c.scriptHashStack, h)
	c.invocationCounter[h]++
	return c.VM.LoadScript(script, flags)
}

// CurrentScriptHash returns the executing contract's script hash.
func (c *Context) CurrentScriptHash() util.Uint160 {
	if len(c.scriptHashStack) == 0 {
		return util.Uint160{}
	}
	return c.scriptHashStack[len(c.scriptHashStack)-1]
}

// CallingScriptHash returns the caller of the current context, or the
// zero hash at the entry frame.
func (c *Context) CallingScriptHash() util.Uint160 {
	if len(c.scriptHashStack) < 2 {
		return util.Uint160{}
	}
	return c.scriptHashStack[len(c.scriptHashStack)-2]
}

// EntryScriptHash returns the outermost script hash of this invocation.
func (c *Context) EntryScriptHash() util.Uint160 {
	return c.entryHash
}

// InvocationCounter returns how many times h has been loaded as a script
// within this invocation (System.Runtime.GetInvocationCounter).
func (c *Context) InvocationCounter(h util.Uint160) int {
	return c.invocationCounter[h]
}

// PopScriptHash removes the script hash the most recent LoadScript
// pushed. Nothing in this package calls it automatically when a VM
// context returns.
func (c *Context) PopScriptHash() {
	if len(c.scriptHashStack) > 0 {
		c.scriptHashStack = c.scriptHashStack[:len(c.scriptHashStack)-1]
	}
}

// AddNotification buffers a notification event without checking any
// limit itself; the System.Runtime.Notify syscall applies its limits
// before calling it (§4.3, §4.6).
func (c *Context) AddNotification(scriptHash util.Uint160, name string, item *stackitem.Array) {
	c.Notifications = append(c.Notifications, NotificationEvent{
		ScriptHash: scriptHash,
		Name:       name,
		Item:       item,
	})
}

// MaxNotificationCount bounds Notifications per invocation.
const MaxNotificationCount = 512

// MaxNotificationNameLength bounds a Notify event's name.
const MaxNotificationNameLength = 32
