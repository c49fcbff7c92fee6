// Package vm implements the NeoVM stack machine (§4.2): a single
// execution-context stack, tagged stack items with reference-counted
// compound variants, deterministic gas metering and typed-result (not
// host-exception) THROW/TRY unwinding.
package vm

import (
	"encoding/binary"
	"math/big"

	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/vm/opcode"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// VM is one script execution engine instance. It is not safe for
// concurrent use; the application engine creates one VM per trigger
// invocation.
type VM struct {
	istack []*Context
	refs   *RefCounter

	gasLimit    int64
	gasConsumed int64
	priceFactor int64

	state    State
	faultErr error

	Interops InteropTable

	// Container is the host-supplied object (transaction or block) made
	// available to syscalls via System.Runtime.GetScriptContainer; the vm
	// package treats it as opaque.
	Container any

	// invocationDepthLimit bounds CALL recursion; reference VM default
	// is 1024 nested contexts.
	invocationDepthLimit int
}

// DefaultInvocationDepth is the default CALL recursion bound.
const DefaultInvocationDepth = 1024

// New returns a VM with the given gas limit (datoshi) and execution fee
// scaling factor (PolicyContract.ExecFeeFactor).
func New(gasLimit int64, priceFactor int64) *VM {
	if priceFactor <= 0 {
		priceFactor = 1
	}
	return &VM{
		refs:                  NewRefCounter(),
		gasLimit:              gasLimit,
		priceFactor:            priceFactor,
		Interops:              make(InteropTable),
		invocationDepthLimit:  DefaultInvocationDepth,
	}
}

// GasConsumed returns the gas spent so far.
func (v *VM) GasConsumed() int64 { return v.gasConsumed }

// GasLimit returns the configured gas budget.
func (v *VM) GasLimit() int64 { return v.gasLimit }

// AddGas increases the available gas limit (used when a native contract
// grants extra budget, e.g. System.Runtime.BurnGas's inverse).
func (v *VM) AddGas(n int64) { v.gasLimit += n }

// ChargeGas deducts price*priceFactor from the remaining budget,
// returning ErrOutOfGas if it would exceed the gas limit. Exported so
// native contract method dispatch (pkg/core/native) can charge its own
// fixed per-method prices the same way the opcode dispatch loop does.
func (v *VM) ChargeGas(price int64) error { return v.chargeGas(price) }

// State returns the engine's current/terminal state.
func (v *VM) State() State { return v.state }

// FaultException returns the error that caused a Fault, if any.
func (v *VM) FaultException() error { return v.faultErr }

// Context returns the currently executing context, or nil if the
// invocation stack is empty.
func (v *VM) Context() *Context {
	if len(v.istack) == 0 {
		return nil
	}
	return v.istack[len(v.istack)-1]
}

// Estack returns the current context's evaluation stack.
func (v *VM) Estack() *Stack {
	return v.Context().Estack
}

// LoadScript pushes a new Context for script onto the invocation stack
// with the given CallFlags.
func (v *VM) LoadScript(script []byte, flags CallFlags) *Context {
	ctx := NewContext(script)
	ctx.CallFlags = flags
	ctx.ScriptHash = hash.Hash160(script)
	v.istack = append(v.istack, ctx)
	return ctx
}

// Invocations returns the current call depth.
func (v *VM) Invocations() int { return len(v.istack) }

// Run executes instructions until Halt, Fault or Break.
func (v *VM) Run() State {
	if v.state == FaultState || v.state == HaltState {
		return v.state
	}
	for v.state != HaltState && v.state != FaultState && v.state != BreakState {
		v.step()
	}
	return v.state
}

func (v *VM) fault(err error) {
	v.faultErr = err
	v.state = FaultState
}

func (v *VM) step() {
	ctx := v.Context()
	if ctx == nil {
		v.fault(ErrNoMoreContexts)
		return
	}
	if ctx.AtEnd() {
		v.handleReturn()
		return
	}

	op := opcode.Opcode(ctx.Next())
	if err := v.chargeGas(priceOf(op)); err != nil {
		v.fault(err)
		return
	}
	if err := v.execute(ctx, op); err != nil {
		if !v.tryHandleException(err) {
			v.fault(err)
		}
	}
}

func (v *VM) chargeGas(price int64) error {
	cost := price * v.priceFactor
	if v.gasConsumed+cost > v.gasLimit {
		return ErrOutOfGas
	}
	v.gasConsumed += cost
	return nil
}

func (v *VM) handleReturn() {
	ctx := v.istack[len(v.istack)-1]
	v.istack = v.istack[:len(v.istack)-1]
	if len(v.istack) == 0 {
		v.state = HaltState
		return
	}
	// CALL and CALLA contexts share the caller's evaluation stack, so
	// values the callee leaves on it are already visible to the caller;
	// nothing further is needed here beyond bookkeeping.
	_ = ctx
}

// Throw raises an exception carrying value, unwinding through try-frames
// the same way a THROW opcode would.
func (v *VM) Throw(value stackitem.Item) {
	v.Estack().Push(value)
	if !v.tryHandleException(errUserThrow) {
		v.fault(errUserThrow)
	}
}

var errUserThrow = &userThrowError{}

type userThrowError struct{}

func (*userThrowError) Error() string { return "vm: uncaught THROW" }

// tryHandleException attempts to route err to the nearest enclosing
// try-frame (in the current or an outer context); returns false if no
// frame catches it, in which case the caller should Fault.
func (v *VM) tryHandleException(err error) bool {
	for i := len(v.istack) - 1; i >= 0; i-- {
		ctx := v.istack[i]
		frame, ok := ctx.topTry()
		if !ok {
			v.istack = v.istack[:i]
			continue
		}
		if frame.state == tryNormal && frame.catchOffset >= 0 {
			for ctx.Estack.Len() > frame.stackDepth {
				ctx.Estack.Pop()
			}
			frame.state = tryCatching
			v.istack = v.istack[:i+1]
			ctx.Jump(frame.catchOffset)
			return true
		}
		if frame.finallyOffset >= 0 && frame.state != tryFinally {
			frame.state = tryFinally
			v.istack = v.istack[:i+1]
			ctx.Jump(frame.finallyOffset)
			return true
		}
		ctx.popTry()
	}
	return false
}

func (v *VM) execute(ctx *Context, op opcode.Opcode) error {
	switch {
	case op >= opcode.PUSH0 && op <= opcode.PUSH16:
		ctx.Estack.Push(stackitem.NewInteger(int64(op - opcode.PUSH0)))
		return nil
	}

	switch op {
	case opcode.PUSHM1:
		ctx.Estack.Push(stackitem.NewInteger(-1))
	case opcode.PUSHT:
		ctx.Estack.Push(stackitem.NewBool(true))
	case opcode.PUSHF:
		ctx.Estack.Push(stackitem.NewBool(false))
	case opcode.PUSHNULL:
		ctx.Estack.Push(stackitem.NewNull())
	case opcode.PUSHINT8:
		ctx.Estack.Push(stackitem.NewBigInteger(leToBigInt(ctx.NextBytes(1))))
	case opcode.PUSHINT16:
		ctx.Estack.Push(stackitem.NewBigInteger(leToBigInt(ctx.NextBytes(2))))
	case opcode.PUSHINT32:
		ctx.Estack.Push(stackitem.NewBigInteger(leToBigInt(ctx.NextBytes(4))))
	case opcode.PUSHINT64:
		ctx.Estack.Push(stackitem.NewBigInteger(leToBigInt(ctx.NextBytes(8))))
	case opcode.PUSHINT128:
		ctx.Estack.Push(stackitem.NewBigInteger(leToBigInt(ctx.NextBytes(16))))
	case opcode.PUSHINT256:
		ctx.Estack.Push(stackitem.NewBigInteger(leToBigInt(ctx.NextBytes(32))))
	case opcode.PUSHDATA1:
		n := int(ctx.Next())
		ctx.Estack.Push(stackitem.NewByteString(ctx.NextBytes(n)))
	case opcode.PUSHDATA2:
		n := int(binary.LittleEndian.Uint16(ctx.NextBytes(2)))
		ctx.Estack.Push(stackitem.NewByteString(ctx.NextBytes(n)))
	case opcode.PUSHDATA4:
		n := int(binary.LittleEndian.Uint32(ctx.NextBytes(4)))
		if n > MaxItemSize {
			return ErrInvalidStackItem
		}
		ctx.Estack.Push(stackitem.NewByteString(ctx.NextBytes(n)))
	case opcode.PUSHA:
		off := int(int32(binary.LittleEndian.Uint32(ctx.NextBytes(4))))
		ctx.Estack.Push(stackitem.NewPointer(ctx.Script, ctx.IP()-5+off))

	case opcode.NOP:
		// no-op

	case opcode.JMP, opcode.JMPL:
		v.jump(ctx, op, alwaysTrue)
	case opcode.JMPIF, opcode.JMPIFL:
		cond := ctx.Estack.Pop().Bool()
		v.jump(ctx, op, func() bool { return cond })
	case opcode.JMPIFNOT, opcode.JMPIFNOTL:
		cond := !ctx.Estack.Pop().Bool()
		v.jump(ctx, op, func() bool { return cond })
	case opcode.JMPEQ, opcode.JMPNE, opcode.JMPGT, opcode.JMPGE, opcode.JMPLT, opcode.JMPLEL, opcode.JMPLE,
		opcode.JMPEQL, opcode.JMPNEL, opcode.JMPGTL, opcode.JMPGEL, opcode.JMPLTL:
		return v.execCompareJump(ctx, op)

	case opcode.CALL, opcode.CALLL:
		return v.execCall(ctx, op)
	case opcode.CALLA:
		return v.execCallA(ctx)
	case opcode.RET:
		v.handleReturn()
	case opcode.ABORT:
		return errAbort
	case opcode.ASSERT:
		if !ctx.Estack.Pop().Bool() {
			return errAssertFailed
		}
	case opcode.THROW:
		val := ctx.Estack.Pop()
		v.Estack().Push(val)
		return errUserThrow
	case opcode.TRY, opcode.TRYL:
		return v.execTry(ctx, op)
	case opcode.ENDTRY, opcode.ENDTRYL:
		return v.execEndTry(ctx, op)
	case opcode.ENDFINALLY:
		return v.execEndFinally(ctx)
	case opcode.SYSCALL:
		return v.execSyscall(ctx)
	case opcode.CALLT:
		// Token-table calls resolve against a NEF method-token list that
		// the bare VM does not hold; CALLT always faults here.
		return ErrUnknownOpcode

	case opcode.DEPTH:
		ctx.Estack.Push(stackitem.NewInteger(int64(ctx.Estack.Len())))
	case opcode.DROP:
		ctx.Estack.Pop()
	case opcode.NIP:
		ctx.Estack.RemoveAt(1)
	case opcode.XDROP:
		n := mustInt(ctx.Estack.Pop())
		ctx.Estack.RemoveAt(int(n))
	case opcode.CLEAR:
		ctx.Estack.Clear()
	case opcode.DUP:
		ctx.Estack.Push(ctx.Estack.Peek(0).Dup())
	case opcode.OVER:
		ctx.Estack.Push(ctx.Estack.Peek(1).Dup())
	case opcode.PICK:
		n := mustInt(ctx.Estack.Pop())
		ctx.Estack.Push(ctx.Estack.Peek(int(n)).Dup())
	case opcode.TUCK:
		ctx.Estack.InsertAt(ctx.Estack.Peek(0).Dup(), 2)
	case opcode.SWAP:
		a := ctx.Estack.RemoveAt(1)
		ctx.Estack.Push(a)
	case opcode.ROT:
		a := ctx.Estack.RemoveAt(2)
		ctx.Estack.Push(a)
	case opcode.ROLL:
		n := mustInt(ctx.Estack.Pop())
		if n > 0 {
			a := ctx.Estack.RemoveAt(int(n))
			ctx.Estack.Push(a)
		}
	case opcode.REVERSE3:
		reverseTop(ctx.Estack, 3)
	case opcode.REVERSE4:
		reverseTop(ctx.Estack, 4)
	case opcode.REVERSEN:
		n := mustInt(ctx.Estack.Pop())
		reverseTop(ctx.Estack, int(n))

	case opcode.INITSSLOT:
		ctx.initStatic(int(ctx.Next()))
	case opcode.INITSLOT:
		locals := int(ctx.Next())
		args := int(ctx.Next())
		ctx.initSlots(locals, args)
	case opcode.LDSFLD:
		ctx.Estack.Push(ctx.staticSlots[int(ctx.Next())])
	case opcode.STSFLD:
		ctx.staticSlots[int(ctx.Next())] = ctx.Estack.Pop()
	case opcode.LDLOC:
		ctx.Estack.Push(ctx.localSlots[int(ctx.Next())])
	case opcode.STLOC:
		ctx.localSlots[int(ctx.Next())] = ctx.Estack.Pop()
	case opcode.LDARG:
		ctx.Estack.Push(ctx.argSlots[int(ctx.Next())])
	case opcode.STARG:
		ctx.argSlots[int(ctx.Next())] = ctx.Estack.Pop()

	case opcode.NEWBUFFER:
		n := mustInt(ctx.Estack.Pop())
		if n > MaxItemSize {
			return stackitem.ErrTooBig
		}
		ctx.Estack.Push(stackitem.NewBuffer(make([]byte, n)))
	case opcode.CAT:
		b := mustBytes(ctx.Estack.Pop())
		a := mustBytes(ctx.Estack.Pop())
		if len(a)+len(b) > MaxItemSize {
			return stackitem.ErrTooBig
		}
		ctx.Estack.Push(stackitem.NewByteString(append(append([]byte(nil), a...), b...)))
	case opcode.SUBSTR:
		l := int(mustInt(ctx.Estack.Pop()))
		o := int(mustInt(ctx.Estack.Pop()))
		s := mustBytes(ctx.Estack.Pop())
		if o < 0 || l < 0 || o+l > len(s) {
			return ErrInvalidStackItem
		}
		ctx.Estack.Push(stackitem.NewByteString(s[o : o+l]))
	case opcode.LEFT:
		l := int(mustInt(ctx.Estack.Pop()))
		s := mustBytes(ctx.Estack.Pop())
		if l < 0 || l > len(s) {
			return ErrInvalidStackItem
		}
		ctx.Estack.Push(stackitem.NewByteString(s[:l]))
	case opcode.RIGHT:
		l := int(mustInt(ctx.Estack.Pop()))
		s := mustBytes(ctx.Estack.Pop())
		if l < 0 || l > len(s) {
			return ErrInvalidStackItem
		}
		ctx.Estack.Push(stackitem.NewByteString(s[len(s)-l:]))
	case opcode.MEMCPY:
		count := int(mustInt(ctx.Estack.Pop()))
		srcIdx := int(mustInt(ctx.Estack.Pop()))
		src := mustBytes(ctx.Estack.Pop())
		dstIdx := int(mustInt(ctx.Estack.Pop()))
		dst, ok := ctx.Estack.Pop().(*stackitem.Buffer)
		if !ok {
			return ErrInvalidStackItem
		}
		if count < 0 || srcIdx < 0 || dstIdx < 0 || srcIdx+count > len(src) || dstIdx+count > len(dst.Bytes) {
			return ErrInvalidStackItem
		}
		copy(dst.Bytes[dstIdx:dstIdx+count], src[srcIdx:srcIdx+count])

	case opcode.INVERT:
		n := mustBig(ctx.Estack.Pop())
		ctx.Estack.Push(stackitem.NewBigInteger(new(big.Int).Not(n)))
	case opcode.AND:
		b := mustBig(ctx.Estack.Pop())
		a := mustBig(ctx.Estack.Pop())
		ctx.Estack.Push(stackitem.NewBigInteger(new(big.Int).And(a, b)))
	case opcode.OR:
		b := mustBig(ctx.Estack.Pop())
		a := mustBig(ctx.Estack.Pop())
		ctx.Estack.Push(stackitem.NewBigInteger(new(big.Int).Or(a, b)))
	case opcode.XOR:
		b := mustBig(ctx.Estack.Pop())
		a := mustBig(ctx.Estack.Pop())
		ctx.Estack.Push(stackitem.NewBigInteger(new(big.Int).Xor(a, b)))

	case opcode.EQUAL:
		b := ctx.Estack.Pop()
		a := ctx.Estack.Pop()
		ctx.Estack.Push(stackitem.NewBool(a.Equals(b)))
	case opcode.NOTEQUAL:
		b := ctx.Estack.Pop()
		a := ctx.Estack.Pop()
		ctx.Estack.Push(stackitem.NewBool(!a.Equals(b)))

	case opcode.SIGN:
		ctx.Estack.Push(stackitem.NewInteger(int64(mustBig(ctx.Estack.Pop()).Sign())))
	case opcode.ABS:
		ctx.Estack.Push(stackitem.NewBigInteger(new(big.Int).Abs(mustBig(ctx.Estack.Pop()))))
	case opcode.NEGATE:
		ctx.Estack.Push(stackitem.NewBigInteger(new(big.Int).Neg(mustBig(ctx.Estack.Pop()))))
	case opcode.INC:
		ctx.Estack.Push(stackitem.NewBigInteger(new(big.Int).Add(mustBig(ctx.Estack.Pop()), big.NewInt(1))))
	case opcode.DEC:
		ctx.Estack.Push(stackitem.NewBigInteger(new(big.Int).Sub(mustBig(ctx.Estack.Pop()), big.NewInt(1))))
	case opcode.ADD:
		return v.binOp(ctx, func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Add(a, b), nil })
	case opcode.SUB:
		return v.binOp(ctx, func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Sub(a, b), nil })
	case opcode.MUL:
		return v.binOp(ctx, func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Mul(a, b), nil })
	case opcode.DIV:
		return v.binOp(ctx, func(a, b *big.Int) (*big.Int, error) {
			if b.Sign() == 0 {
				return nil, errDivByZero
			}
			return new(big.Int).Quo(a, b), nil
		})
	case opcode.MOD:
		return v.binOp(ctx, func(a, b *big.Int) (*big.Int, error) {
			if b.Sign() == 0 {
				return nil, errDivByZero
			}
			return new(big.Int).Rem(a, b), nil
		})
	case opcode.POW:
		exp := mustBig(ctx.Estack.Pop())
		base := mustBig(ctx.Estack.Pop())
		if exp.Sign() < 0 || !exp.IsUint64() || exp.Uint64() > 1024 {
			return ErrInvalidStackItem
		}
		ctx.Estack.Push(stackitem.NewBigInteger(new(big.Int).Exp(base, exp, nil)))
	case opcode.SQRT:
		n := mustBig(ctx.Estack.Pop())
		if n.Sign() < 0 {
			return ErrInvalidStackItem
		}
		ctx.Estack.Push(stackitem.NewBigInteger(new(big.Int).Sqrt(n)))
	case opcode.SHL:
		n := mustInt(ctx.Estack.Pop())
		x := mustBig(ctx.Estack.Pop())
		if n < 0 || n > 256 {
			return ErrInvalidStackItem
		}
		ctx.Estack.Push(stackitem.NewBigInteger(new(big.Int).Lsh(x, uint(n))))
	case opcode.SHR:
		n := mustInt(ctx.Estack.Pop())
		x := mustBig(ctx.Estack.Pop())
		if n < 0 || n > 256 {
			return ErrInvalidStackItem
		}
		ctx.Estack.Push(stackitem.NewBigInteger(new(big.Int).Rsh(x, uint(n))))
	case opcode.NOT:
		ctx.Estack.Push(stackitem.NewBool(!ctx.Estack.Pop().Bool()))
	case opcode.BOOLAND:
		b := ctx.Estack.Pop().Bool()
		a := ctx.Estack.Pop().Bool()
		ctx.Estack.Push(stackitem.NewBool(a && b))
	case opcode.BOOLOR:
		b := ctx.Estack.Pop().Bool()
		a := ctx.Estack.Pop().Bool()
		ctx.Estack.Push(stackitem.NewBool(a || b))
	case opcode.NZ:
		ctx.Estack.Push(stackitem.NewBool(mustBig(ctx.Estack.Pop()).Sign() != 0))
	case opcode.NUMEQUAL:
		b := mustBig(ctx.Estack.Pop())
		a := mustBig(ctx.Estack.Pop())
		ctx.Estack.Push(stackitem.NewBool(a.Cmp(b) == 0))
	case opcode.NUMNOTEQUAL:
		b := mustBig(ctx.Estack.Pop())
		a := mustBig(ctx.Estack.Pop())
		ctx.Estack.Push(stackitem.NewBool(a.Cmp(b) != 0))
	case opcode.LT:
		b := mustBig(ctx.Estack.Pop())
		a := mustBig(ctx.Estack.Pop())
		ctx.Estack.Push(stackitem.NewBool(a.Cmp(b) < 0))
	case opcode.LE:
		b := mustBig(ctx.Estack.Pop())
		a := mustBig(ctx.Estack.Pop())
		ctx.Estack.Push(stackitem.NewBool(a.Cmp(b) <= 0))
	case opcode.GT:
		b := mustBig(ctx.Estack.Pop())
		a := mustBig(ctx.Estack.Pop())
		ctx.Estack.Push(stackitem.NewBool(a.Cmp(b) > 0))
	case opcode.GE:
		b := mustBig(ctx.Estack.Pop())
		a := mustBig(ctx.Estack.Pop())
		ctx.Estack.Push(stackitem.NewBool(a.Cmp(b) >= 0))
	case opcode.MIN:
		b := mustBig(ctx.Estack.Pop())
		a := mustBig(ctx.Estack.Pop())
		if a.Cmp(b) < 0 {
			ctx.Estack.Push(stackitem.NewBigInteger(a))
		} else {
			ctx.Estack.Push(stackitem.NewBigInteger(b))
		}
	case opcode.MAX:
		b := mustBig(ctx.Estack.Pop())
		a := mustBig(ctx.Estack.Pop())
		if a.Cmp(b) > 0 {
			ctx.Estack.Push(stackitem.NewBigInteger(a))
		} else {
			ctx.Estack.Push(stackitem.NewBigInteger(b))
		}
	case opcode.WITHIN:
		b := mustBig(ctx.Estack.Pop())
		a := mustBig(ctx.Estack.Pop())
		x := mustBig(ctx.Estack.Pop())
		ctx.Estack.Push(stackitem.NewBool(x.Cmp(a) >= 0 && x.Cmp(b) < 0))

	case opcode.NEWARRAY0:
		arr := stackitem.NewArray(nil)
		if err := v.trackNew(arr); err != nil {
			return err
		}
		ctx.Estack.Push(arr)
	case opcode.NEWARRAY, opcode.NEWARRAYT:
		n := mustInt(ctx.Estack.Pop())
		items := make([]stackitem.Item, n)
		for i := range items {
			items[i] = stackitem.NewNull()
		}
		ctx.Estack.Push(stackitem.NewArray(items))
	case opcode.NEWSTRUCT0:
		ctx.Estack.Push(stackitem.NewStruct(nil))
	case opcode.NEWSTRUCT:
		n := mustInt(ctx.Estack.Pop())
		items := make([]stackitem.Item, n)
		for i := range items {
			items[i] = stackitem.NewNull()
		}
		ctx.Estack.Push(stackitem.NewStruct(items))
	case opcode.NEWMAP:
		ctx.Estack.Push(stackitem.NewMap())
	case opcode.PACK:
		n := mustInt(ctx.Estack.Pop())
		items := make([]stackitem.Item, n)
		for i := int64(0); i < n; i++ {
			items[i] = ctx.Estack.Pop()
		}
		ctx.Estack.Push(stackitem.NewArray(items))
	case opcode.PACKSTRUCT:
		n := mustInt(ctx.Estack.Pop())
		items := make([]stackitem.Item, n)
		for i := int64(0); i < n; i++ {
			items[i] = ctx.Estack.Pop()
		}
		ctx.Estack.Push(stackitem.NewStruct(items))
	case opcode.PACKMAP:
		n := mustInt(ctx.Estack.Pop())
		m := stackitem.NewMap()
		for i := int64(0); i < n; i++ {
			val := ctx.Estack.Pop()
			key := ctx.Estack.Pop()
			m.Set(key, val)
		}
		ctx.Estack.Push(m)
	case opcode.UNPACK:
		it := ctx.Estack.Pop()
		items, err := arrayItems(it)
		if err != nil {
			return err
		}
		for i := len(items) - 1; i >= 0; i-- {
			ctx.Estack.Push(items[i])
		}
		ctx.Estack.Push(stackitem.NewInteger(int64(len(items))))
	case opcode.SIZE:
		it := ctx.Estack.Pop()
		ctx.Estack.Push(stackitem.NewInteger(int64(sizeOf(it))))
	case opcode.HASKEY:
		key := ctx.Estack.Pop()
		it := ctx.Estack.Pop()
		switch c := it.(type) {
		case *stackitem.Map:
			ctx.Estack.Push(stackitem.NewBool(c.Index(key) >= 0))
		case *stackitem.Array:
			idx := mustInt(key)
			ctx.Estack.Push(stackitem.NewBool(idx >= 0 && int(idx) < c.Len()))
		case *stackitem.Struct:
			idx := mustInt(key)
			ctx.Estack.Push(stackitem.NewBool(idx >= 0 && int(idx) < c.Len()))
		default:
			return ErrInvalidStackItem
		}
	case opcode.KEYS:
		m, ok := ctx.Estack.Pop().(*stackitem.Map)
		if !ok {
			return ErrInvalidStackItem
		}
		ctx.Estack.Push(stackitem.NewArray(m.Keys()))
	case opcode.VALUES:
		it := ctx.Estack.Pop()
		switch c := it.(type) {
		case *stackitem.Map:
			ctx.Estack.Push(stackitem.NewArray(c.Values()))
		case *stackitem.Array:
			cp := make([]stackitem.Item, c.Len())
			copy(cp, c.Value().([]stackitem.Item))
			ctx.Estack.Push(stackitem.NewArray(cp))
		default:
			return ErrInvalidStackItem
		}
	case opcode.PICKITEM:
		key := ctx.Estack.Pop()
		it := ctx.Estack.Pop()
		switch c := it.(type) {
		case *stackitem.Map:
			val, ok := c.Get(key)
			if !ok {
				return ErrInvalidStackItem
			}
			ctx.Estack.Push(val)
		case *stackitem.Array:
			idx := mustInt(key)
			if idx < 0 || int(idx) >= c.Len() {
				return ErrInvalidStackItem
			}
			ctx.Estack.Push(c.Value().([]stackitem.Item)[idx])
		case *stackitem.Struct:
			idx := mustInt(key)
			if idx < 0 || int(idx) >= c.Len() {
				return ErrInvalidStackItem
			}
			ctx.Estack.Push(c.Value().([]stackitem.Item)[idx])
		case stackitem.ByteString:
			idx := mustInt(key)
			if idx < 0 || int(idx) >= len(c) {
				return ErrInvalidStackItem
			}
			ctx.Estack.Push(stackitem.NewInteger(int64(c[idx])))
		default:
			return ErrInvalidStackItem
		}
	case opcode.APPEND:
		it := ctx.Estack.Pop()
		col := ctx.Estack.Pop()
		switch c := col.(type) {
		case *stackitem.Array:
			c.Append(it)
		case *stackitem.Struct:
			c.Append(it)
		default:
			return ErrInvalidStackItem
		}
	case opcode.SETITEM:
		val := ctx.Estack.Pop()
		key := ctx.Estack.Pop()
		col := ctx.Estack.Pop()
		switch c := col.(type) {
		case *stackitem.Map:
			c.Set(key, val)
		case *stackitem.Array:
			idx := mustInt(key)
			if idx < 0 || int(idx) >= c.Len() {
				return ErrInvalidStackItem
			}
			c.Value().([]stackitem.Item)[idx] = val
		case *stackitem.Struct:
			idx := mustInt(key)
			if idx < 0 || int(idx) >= c.Len() {
				return ErrInvalidStackItem
			}
			c.Value().([]stackitem.Item)[idx] = val
		default:
			return ErrInvalidStackItem
		}
	case opcode.REVERSEITEMS:
		it := ctx.Estack.Pop()
		items, err := arrayItems(it)
		if err != nil {
			return err
		}
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	case opcode.REMOVE:
		key := ctx.Estack.Pop()
		col := ctx.Estack.Pop()
		switch c := col.(type) {
		case *stackitem.Map:
			c.Delete(key)
		case *stackitem.Array:
			idx := int(mustInt(key))
			if idx < 0 || idx >= c.Len() {
				return ErrInvalidStackItem
			}
			c.Remove(idx)
		default:
			return ErrInvalidStackItem
		}
	case opcode.CLEARITEMS:
		_ = ctx.Estack.Pop()
	case opcode.POPITEM:
		it := ctx.Estack.Pop()
		items, err := arrayItems(it)
		if err != nil || len(items) == 0 {
			return ErrInvalidStackItem
		}
		ctx.Estack.Push(items[len(items)-1])

	case opcode.ISNULL:
		_, ok := ctx.Estack.Pop().(stackitem.Null)
		ctx.Estack.Push(stackitem.NewBool(ok))
	case opcode.ISTYPE:
		t := stackitem.Type(ctx.Next())
		it := ctx.Estack.Pop()
		ctx.Estack.Push(stackitem.NewBool(it.Type() == t))
	case opcode.CONVERT:
		t := stackitem.Type(ctx.Next())
		it := ctx.Estack.Pop()
		conv, err := convert(it, t)
		if err != nil {
			return err
		}
		ctx.Estack.Push(conv)

	default:
		return ErrUnknownOpcode
	}
	return nil
}

func alwaysTrue() bool { return true }

func (v *VM) jump(ctx *Context, op opcode.Opcode, cond func() bool) {
	var off int32
	start := ctx.IP() - 1
	if isLongJump(op) {
		off = int32(binary.LittleEndian.Uint32(ctx.NextBytes(4)))
	} else {
		off = int32(int8(ctx.Next()))
	}
	if cond() {
		ctx.Jump(start + int(off))
	}
}

func isLongJump(op opcode.Opcode) bool {
	switch op {
	case opcode.JMPL, opcode.JMPIFL, opcode.JMPIFNOTL, opcode.JMPEQL, opcode.JMPNEL,
		opcode.JMPGTL, opcode.JMPGEL, opcode.JMPLTL, opcode.JMPLEL, opcode.CALLL, opcode.TRYL, opcode.ENDTRYL:
		return true
	}
	return false
}

func (v *VM) execCompareJump(ctx *Context, op opcode.Opcode) error {
	b := mustBig(ctx.Estack.Pop())
	a := mustBig(ctx.Estack.Pop())
	cmp := a.Cmp(b)
	var cond bool
	switch op {
	case opcode.JMPEQ, opcode.JMPEQL:
		cond = cmp == 0
	case opcode.JMPNE, opcode.JMPNEL:
		cond = cmp != 0
	case opcode.JMPGT, opcode.JMPGTL:
		cond = cmp > 0
	case opcode.JMPGE, opcode.JMPGEL:
		cond = cmp >= 0
	case opcode.JMPLT, opcode.JMPLTL:
		cond = cmp < 0
	case opcode.JMPLE, opcode.JMPLEL:
		cond = cmp <= 0
	}
	v.jump(ctx, op, func() bool { return cond })
	return nil
}

func (v *VM) execCall(ctx *Context, op opcode.Opcode) error {
	start := ctx.IP() - 1
	var off int32
	if op == opcode.CALLL {
		off = int32(binary.LittleEndian.Uint32(ctx.NextBytes(4)))
	} else {
		off = int32(int8(ctx.Next()))
	}
	target := start + int(off)
	if len(v.istack) >= v.invocationDepthLimit {
		return errCallDepth
	}
	nctx := NewContext(ctx.Script)
	nctx.Estack = ctx.Estack
	nctx.CallFlags = ctx.CallFlags
	nctx.ScriptHash = ctx.ScriptHash
	nctx.Jump(target)
	v.istack = append(v.istack, nctx)
	return nil
}

func (v *VM) execCallA(ctx *Context) error {
	ptr, ok := ctx.Estack.Pop().(*stackitem.Pointer)
	if !ok {
		return ErrInvalidStackItem
	}
	if len(v.istack) >= v.invocationDepthLimit {
		return errCallDepth
	}
	nctx := NewContext(ptr.Script)
	nctx.Estack = ctx.Estack
	nctx.CallFlags = ctx.CallFlags
	nctx.ScriptHash = ctx.ScriptHash
	nctx.Jump(ptr.Offset)
	v.istack = append(v.istack, nctx)
	return nil
}

func (v *VM) execTry(ctx *Context, op opcode.Opcode) error {
	start := ctx.IP() - 1
	var catchOff, finallyOff int32
	if op == opcode.TRYL {
		catchOff = int32(binary.LittleEndian.Uint32(ctx.NextBytes(4)))
		finallyOff = int32(binary.LittleEndian.Uint32(ctx.NextBytes(4)))
	} else {
		catchOff = int32(int8(ctx.Next()))
		finallyOff = int32(int8(ctx.Next()))
	}
	c := -1
	if catchOff != 0 {
		c = start + int(catchOff)
	}
	f := -1
	if finallyOff != 0 {
		f = start + int(finallyOff)
	}
	ctx.pushTry(c, f, ctx.Estack.Len())
	return nil
}

func (v *VM) execEndTry(ctx *Context, op opcode.Opcode) error {
	start := ctx.IP() - 1
	var off int32
	if op == opcode.ENDTRYL {
		off = int32(binary.LittleEndian.Uint32(ctx.NextBytes(4)))
	} else {
		off = int32(int8(ctx.Next()))
	}
	frame, ok := ctx.popTry()
	if !ok {
		return ErrInvalidStackItem
	}
	if frame.finallyOffset >= 0 && frame.state != tryFinally {
		frame.state = tryFinally
		ctx.pushTryRaw(frame)
		ctx.Jump(frame.finallyOffset)
		return nil
	}
	ctx.Jump(start + int(off))
	return nil
}

func (v *VM) execEndFinally(ctx *Context) error {
	frame, ok := ctx.popTry()
	if !ok {
		return ErrInvalidStackItem
	}
	_ = frame
	return nil
}

func (v *VM) execSyscall(ctx *Context) error {
	id := binary.LittleEndian.Uint32(ctx.NextBytes(4))
	fn, ok := v.Interops[id]
	if !ok {
		return ErrUnknownSyscall
	}
	if !ctx.CallFlags.Has(fn.RequiredFlags) {
		return ErrInvalidCallFlags
	}
	if err := v.chargeGas(fn.Price); err != nil {
		return err
	}
	return fn.Func(v)
}

func (v *VM) binOp(ctx *Context, f func(a, b *big.Int) (*big.Int, error)) error {
	b := mustBig(ctx.Estack.Pop())
	a := mustBig(ctx.Estack.Pop())
	r, err := f(a, b)
	if err != nil {
		return err
	}
	ctx.Estack.Push(stackitem.NewBigInteger(r))
	return nil
}

func (v *VM) trackNew(it stackitem.Item) error {
	return v.refs.Add(it)
}

func reverseTop(s *Stack, n int) {
	if n <= 1 {
		return
	}
	items := make([]stackitem.Item, n)
	for i := 0; i < n; i++ {
		items[i] = s.RemoveAt(0)
	}
	for _, it := range items {
		s.InsertAt(it, 0)
	}
}

func arrayItems(it stackitem.Item) ([]stackitem.Item, error) {
	switch c := it.(type) {
	case *stackitem.Array:
		return c.Value().([]stackitem.Item), nil
	case *stackitem.Struct:
		return c.Value().([]stackitem.Item), nil
	default:
		return nil, ErrInvalidStackItem
	}
}

func sizeOf(it stackitem.Item) int {
	switch c := it.(type) {
	case stackitem.ByteString:
		return len(c)
	case *stackitem.Buffer:
		return len(c.Bytes)
	case *stackitem.Array:
		return c.Len()
	case *stackitem.Struct:
		return c.Len()
	case *stackitem.Map:
		return c.Len()
	default:
		return 0
	}
}

func convert(it stackitem.Item, t stackitem.Type) (stackitem.Item, error) {
	if it.Type() == t {
		return it, nil
	}
	switch t {
	case stackitem.BooleanT:
		return stackitem.NewBool(it.Bool()), nil
	case stackitem.IntegerT:
		n, err := it.TryInteger()
		if err != nil {
			return nil, err
		}
		return stackitem.NewBigInteger(n), nil
	case stackitem.ByteStringT:
		b, err := it.TryBytes()
		if err != nil {
			return nil, err
		}
		return stackitem.NewByteString(b), nil
	case stackitem.BufferT:
		b, err := it.TryBytes()
		if err != nil {
			return nil, err
		}
		return stackitem.NewBuffer(b), nil
	default:
		return nil, stackitem.ErrInvalidConversion
	}
}

func mustInt(it stackitem.Item) int64 {
	n, err := it.TryInteger()
	if err != nil {
		return 0
	}
	return n.Int64()
}

func mustBig(it stackitem.Item) *big.Int {
	n, err := it.TryInteger()
	if err != nil {
		return big.NewInt(0)
	}
	return n
}

func mustBytes(it stackitem.Item) []byte {
	b, err := it.TryBytes()
	if err != nil {
		return nil
	}
	return b
}

func leToBigInt(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i, c := range b {
		be[len(b)-1-i] = c
	}
	n := new(big.Int).SetBytes(be)
	if len(b) > 0 && b[len(b)-1]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(8*len(b)))
		n.Sub(n, mod)
	}
	return n
}

var (
	errAbort        = &abortError{}
	errAssertFailed = &assertError{}
	errDivByZero    = &divZeroError{}
	errCallDepth    = &callDepthError{}
)

type abortError struct{}

func (*abortError) Error() string { return "vm: ABORT executed" }

type assertError struct{}

func (*assertError) Error() string { return "vm: ASSERT failed" }

type divZeroError struct{}

func (*divZeroError) Error() string { return "vm: division by zero" }

type callDepthError struct{}

func (*callDepthError) Error() string { return "vm: invocation depth limit exceeded" }
