package interop

import (
	"errors"

	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// MaxStorageKeySize and MaxStorageValueSize bound System.Storage.Put's
// arguments (§3, §4.6).
const (
	MaxStorageKeySize   = 64
	MaxStorageValueSize = 65535
)

// StorageContext is the handle System.Storage.GetContext hands back to
// scripts: a contract ID plus whether writes are permitted.
type StorageContext struct {
	ContractID int32
	ReadOnly   bool
}

// RegisterStorage installs the System.Storage.* syscalls into table.
func RegisterStorage(table vm.InteropTable, ctx *Context) {
	reg := func(name string, flags vm.CallFlags, price int64, fn func(v *vm.VM) error) {
		table.Register(&vm.InteropFunction{Name: name, ID: sysID(name), RequiredFlags: flags, Price: price, Func: fn})
	}

	reg(SystemStorageGetContext, vm.CallFlagReadStates, 1<<4, func(v *vm.VM) error {
		id := contractIDFromHash(ctx, ctx.CurrentScriptHash())
		v.Estack().Push(stackitem.NewInterop(&StorageContext{ContractID: id}))
		return nil
	})
	reg(SystemStorageGetReadOnlyContext, vm.CallFlagReadStates, 1<<4, func(v *vm.VM) error {
		id := contractIDFromHash(ctx, ctx.CurrentScriptHash())
		v.Estack().Push(stackitem.NewInterop(&StorageContext{ContractID: id, ReadOnly: true}))
		return nil
	})
	reg(SystemStorageAsReadOnly, vm.CallFlagReadStates, 1<<4, func(v *vm.VM) error {
		sc, err := popStorageContext(v)
		if err != nil {
			return err
		}
		v.Estack().Push(stackitem.NewInterop(&StorageContext{ContractID: sc.ContractID, ReadOnly: true}))
		return nil
	})
	reg(SystemStorageGet, vm.CallFlagReadStates, 1<<15, func(v *vm.VM) error {
		key, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		sc, err := popStorageContext(v)
		if err != nil {
			return err
		}
		k := storage.AppendContractID(sc.ContractID, key)
		val, err := ctx.Store.Get(k)
		if err != nil {
			v.Estack().Push(stackitem.NewNull())
			return nil
		}
		v.Estack().Push(stackitem.NewByteString(val))
		return nil
	})
	reg(SystemStoragePut, vm.CallFlagWriteStates, 1<<15, func(v *vm.VM) error {
		value, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		key, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		sc, err := popStorageContext(v)
		if err != nil {
			return err
		}
		if sc.ReadOnly {
			return errors.New("interop: storage context is read-only")
		}
		if len(key) > MaxStorageKeySize {
			return errors.New("interop: storage key too long")
		}
		if len(value) > MaxStorageValueSize {
			return errors.New("interop: storage value too long")
		}
		k := storage.AppendContractID(sc.ContractID, key)
		return ctx.Store.Put(k, value)
	})
	reg(SystemStorageDelete, vm.CallFlagWriteStates, 1<<15, func(v *vm.VM) error {
		key, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		sc, err := popStorageContext(v)
		if err != nil {
			return err
		}
		if sc.ReadOnly {
			return errors.New("interop: storage context is read-only")
		}
		k := storage.AppendContractID(sc.ContractID, key)
		return ctx.Store.Delete(k)
	})
	reg(SystemStorageFind, vm.CallFlagReadStates, 1<<15, func(v *vm.VM) error {
		_, err := v.Estack().Pop().TryInteger() // find options, unused by this minimal iterator
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		prefix, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		sc, err := popStorageContext(v)
		if err != nil {
			return err
		}
		full := storage.AppendContractID(sc.ContractID, prefix)
		var kvs []storage.KeyValue
		ctx.Store.Seek(full, storage.SeekForward, func(k, val []byte) bool {
			kvs = append(kvs, storage.KeyValue{Key: k, Value: val})
			return true
		})
		v.Estack().Push(stackitem.NewInterop(newKVIterator(kvs, len(full)-len(prefix))))
		return nil
	})
}

func popStorageContext(v *vm.VM) (*StorageContext, error) {
	it, ok := v.Estack().Pop().(*stackitem.Interop)
	if !ok {
		return nil, vm.ErrInvalidStackItem
	}
	sc, ok := it.Value().(*StorageContext)
	if !ok {
		return nil, vm.ErrInvalidStackItem
	}
	return sc, nil
}

func contractIDFromHash(ctx *Context, h [20]byte) int32 {
	if cs, ok := ctx.Ledger.GetContractStateByHash(h); ok {
		return cs.ID
	}
	return 0
}

// kvIterator implements the host-side cursor backing System.Iterator.Next
// /Value over a System.Storage.Find result set.
type kvIterator struct {
	items    []storage.KeyValue
	pos      int
	keyTrim  int
}

func newKVIterator(items []storage.KeyValue, keyTrim int) *kvIterator {
	return &kvIterator{items: items, pos: -1, keyTrim: keyTrim}
}

// Next advances the cursor, returning false once exhausted.
func (it *kvIterator) Next() bool {
	it.pos++
	return it.pos < len(it.items)
}

// Value returns the current (key, value) pair as a 2-element Array, with
// the key's contract-ID prefix trimmed off.
func (it *kvIterator) Value() stackitem.Item {
	if it.pos < 0 || it.pos >= len(it.items) {
		return stackitem.NewNull()
	}
	kv := it.items[it.pos]
	key := kv.Key
	if len(key) >= it.keyTrim {
		key = key[it.keyTrim:]
	}
	return stackitem.NewArray([]stackitem.Item{
		stackitem.NewByteString(key),
		stackitem.NewByteString(kv.Value),
	})
}
