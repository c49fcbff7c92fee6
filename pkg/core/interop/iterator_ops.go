package interop

import (
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// stackIterator is implemented by any Interop-wrapped host object that
// System.Iterator.Next/Value can drive — currently only kvIterator
// (System.Storage.Find's result set).
type stackIterator interface {
	Next() bool
	Value() stackitem.Item
}

// RegisterIterator installs the System.Iterator.* syscalls into table.
func RegisterIterator(table vm.InteropTable, ctx *Context) {
	reg := func(name string, flags vm.CallFlags, price int64, fn func(v *vm.VM) error) {
		table.Register(&vm.InteropFunction{Name: name, ID: sysID(name), RequiredFlags: flags, Price: price, Func: fn})
	}

	// Next/Value only peek the iterator: it is left in place on the
	// evaluation stack so a contract's loop (DUP; Next; JMPIFNOT; ...)
	// can keep calling both without re-supplying the receiver.
	reg(SystemIteratorNext, vm.CallFlagReadStates, 1<<15, func(v *vm.VM) error {
		si, err := peekIterator(v)
		if err != nil {
			return err
		}
		v.Estack().Push(stackitem.NewBool(si.Next()))
		return nil
	})

	reg(SystemIteratorValue, vm.CallFlagReadStates, 1<<4, func(v *vm.VM) error {
		si, err := peekIterator(v)
		if err != nil {
			return err
		}
		v.Estack().Push(si.Value())
		return nil
	})
}

func peekIterator(v *vm.VM) (stackIterator, error) {
	it, ok := v.Estack().Peek(0).(*stackitem.Interop)
	if !ok {
		return nil, vm.ErrInvalidStackItem
	}
	si, ok := it.Value().(stackIterator)
	if !ok {
		return nil, vm.ErrInvalidStackItem
	}
	return si, nil
}
