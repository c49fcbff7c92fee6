package vm

import "github.com/n3-go/n3node/pkg/vm/stackitem"

// tryFrame records one active TRY block: where to jump on a caught
// exception, where to jump for the finally clause, and the evaluation
// stack depth to restore on unwind (§4.2, §9's exception-as-data-not-
// host-exception redesign).
type tryFrame struct {
	catchOffset   int // -1 if no catch
	finallyOffset int // -1 if no finally
	stackDepth    int
	state         tryState
}

type tryState byte

const (
	tryNormal tryState = iota
	tryCatching
	tryFinally
)

// Context is one execution context on the engine's invocation stack: a
// script plus its instruction pointer, evaluation stack, alt-stack,
// static/local/argument slots and try-frame stack.
type Context struct {
	Script []byte
	ip     int

	Estack *Stack
	Astack *Stack

	staticSlots []stackitem.Item
	localSlots  []stackitem.Item
	argSlots    []stackitem.Item

	tryStack []tryFrame

	// CallFlags restricts which syscalls this context (and anything it
	// CALLs into without a widening System.Contract.Call) may invoke.
	CallFlags CallFlags

	// ScriptHash is the Hash160 of Script, cached at push time.
	ScriptHash [20]byte
}

// NewContext creates a Context over script at instruction pointer 0.
func NewContext(script []byte) *Context {
	return &Context{
		Script: script,
		Estack: NewStack(),
		Astack: NewStack(),
	}
}

// IP returns the current instruction pointer.
func (c *Context) IP() int { return c.ip }

// Jump sets the instruction pointer to an absolute offset.
func (c *Context) Jump(offset int) { c.ip = offset }

// Next reads and returns the next byte, advancing ip.
func (c *Context) Next() byte {
	b := c.Script[c.ip]
	c.ip++
	return b
}

// NextBytes reads and returns the next n bytes, advancing ip.
func (c *Context) NextBytes(n int) []byte {
	b := c.Script[c.ip : c.ip+n]
	c.ip += n
	return b
}

// AtEnd reports whether ip has reached the end of Script.
func (c *Context) AtEnd() bool { return c.ip >= len(c.Script) }

// initSlots allocates static, local and argument slots (INITSSLOT /
// INITSLOT), each entry starting as Null.
func (c *Context) initStatic(n int) {
	c.staticSlots = newNullSlots(n)
}

func (c *Context) initSlots(locals, args int) {
	c.localSlots = newNullSlots(locals)
	c.argSlots = newNullSlots(args)
}

func newNullSlots(n int) []stackitem.Item {
	s := make([]stackitem.Item, n)
	for i := range s {
		s[i] = stackitem.NewNull()
	}
	return s
}

func (c *Context) pushTry(catch, finally, depth int) {
	c.tryStack = append(c.tryStack, tryFrame{catchOffset: catch, finallyOffset: finally, stackDepth: depth})
}

func (c *Context) popTry() (tryFrame, bool) {
	if len(c.tryStack) == 0 {
		return tryFrame{}, false
	}
	f := c.tryStack[len(c.tryStack)-1]
	c.tryStack = c.tryStack[:len(c.tryStack)-1]
	return f, true
}

// pushTryRaw re-pushes a frame popped by popTry, used when ENDTRY finds a
// pending finally clause that still needs to execute.
func (c *Context) pushTryRaw(f tryFrame) {
	c.tryStack = append(c.tryStack, f)
}

func (c *Context) topTry() (*tryFrame, bool) {
	if len(c.tryStack) == 0 {
		return nil, false
	}
	return &c.tryStack[len(c.tryStack)-1], true
}
