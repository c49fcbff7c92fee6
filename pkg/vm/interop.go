package vm

// InteropFunction is one entry of the engine's syscall table: a named
// host function with a required CallFlags mask, a gas price (fixed or
// computed on invocation by Func itself for size-dependent costs) and
// the handler proper (§4.3).
type InteropFunction struct {
	Name          string
	ID            uint32
	RequiredFlags CallFlags
	Price         int64
	Func          func(v *VM) error
}

// InteropTable maps a syscall's 4-byte ID (see emit.SyscallID) to its
// InteropFunction.
type InteropTable map[uint32]*InteropFunction

// Register installs fn in the table. The application engine builds one
// InteropTable per trigger so that, e.g., Verification-triggered scripts
// never see the state-mutating syscalls.
func (t InteropTable) Register(fn *InteropFunction) {
	t[fn.ID] = fn
}
