package interop

import (
	"errors"

	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// ErrContractNotFound is returned when System.Contract.Call targets a
// script hash not present in the ledger's contract state.
var ErrContractNotFound = errors.New("interop: target contract not found")

// ErrMethodNotAllowed is returned when a contract's manifest permissions
// do not authorize the call to the requested method.
var ErrMethodNotAllowed = errors.New("interop: method call not permitted by manifest")

// RegisterContract installs the System.Contract.* syscalls into table.
// Native contract dispatch rides System.Contract.Call like any other
// target (see callContract) via ctx.NativeCall, set by the host
// constructing the engine.
func RegisterContract(table vm.InteropTable, ctx *Context) {
	reg := func(name string, flags vm.CallFlags, price int64, fn func(v *vm.VM) error) {
		table.Register(&vm.InteropFunction{Name: name, ID: sysID(name), RequiredFlags: flags, Price: price, Func: fn})
	}

	reg(SystemContractCall, vm.CallFlagAllowCall, 1<<15, func(v *vm.VM) error {
		args, ok := v.Estack().Pop().(*stackitem.Array)
		if !ok {
			return vm.ErrInvalidStackItem
		}
		flagsItem, err := v.Estack().Pop().TryInteger()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		requested := vm.CallFlags(flagsItem.Int64())
		method, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		hashBytes, err := v.Estack().Pop().TryBytes()
		if err != nil || len(hashBytes) != util.Uint160Size {
			return vm.ErrInvalidStackItem
		}
		var target util.Uint160
		copy(target[:], hashBytes)

		return ctx.callContract(v, target, string(method), requested, args.Value().([]stackitem.Item))
	})

	reg(SystemContractGetCallFlags, vm.CallFlagNone, 1<<10, func(v *vm.VM) error {
		v.Estack().Push(stackitem.NewInteger(int64(v.Context().CallFlags)))
		return nil
	})

	reg(SystemContractCreateStandardAccount, vm.CallFlagNone, 1<<16, func(v *vm.VM) error {
		pub, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		h, err := standardAccountHash(pub)
		if err != nil {
			return err
		}
		v.Estack().Push(stackitem.NewByteString(h[:]))
		return nil
	})

	reg(SystemContractCreateMultisigAccount, vm.CallFlagNone, 1<<16, func(v *vm.VM) error {
		pubsItem, ok := v.Estack().Pop().(*stackitem.Array)
		if !ok {
			return vm.ErrInvalidStackItem
		}
		m, err := v.Estack().Pop().TryInteger()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		h, err := multisigAccountHash(int(m.Int64()), pubsItem.Value().([]stackitem.Item))
		if err != nil {
			return err
		}
		v.Estack().Push(stackitem.NewByteString(h[:]))
		return nil
	})

}

// callContract loads the target contract's script under a narrowed set of
// call flags (never wider than the caller's own — ErrCallFlagsEscalation),
// pushes args, and invokes method, per §4.6's cross-contract call rules.
func (c *Context) callContract(v *vm.VM, target util.Uint160, method string, requested vm.CallFlags, args []stackitem.Item) error {
	callerFlags := v.Context().CallFlags
	if requested&^callerFlags != 0 {
		return ErrCallFlagsEscalation
	}
	cs, ok := c.Ledger.GetContractStateByHash(target)
	if !ok {
		return ErrContractNotFound
	}
	if !c.manifestAllows(cs, method) {
		return ErrMethodNotAllowed
	}
	narrowed := requested & callerFlags

	if cs.ID < 0 && c.NativeCall != nil {
		result, err := c.NativeCall(c, cs.ID, method, narrowed, args)
		if err != nil {
			return err
		}
		if result == nil {
			result = stackitem.NewNull()
		}
		v.Estack().Push(result)
		return nil
	}

	for i := len(args) - 1; i >= 0; i-- {
		v.Estack().Push(args[i])
	}
	v.Estack().Push(stackitem.NewByteString([]byte(method)))
	c.LoadScript(cs.NEF, narrowed)
	return nil
}

// manifestAllows reports whether cs's manifest permissions allow calling
// method on the contract currently executing in c.
func (c *Context) manifestAllows(cs ContractState, method string) bool {
	if len(cs.Manifest.Permissions) == 0 {
		return true
	}
	caller := c.CurrentScriptHash()
	for _, p := range cs.Manifest.Permissions {
		if p.Contract != (util.Uint160{}) && !p.Contract.Equals(caller) {
			continue
		}
		if len(p.Methods) == 0 {
			return true
		}
		for _, m := range p.Methods {
			if m == "*" || m == method {
				return true
			}
		}
	}
	return false
}

// standardAccountHash returns the script hash of pub's single-signature
// verification script.
func standardAccountHash(pub []byte) (util.Uint160, error) {
	pk, err := keys.NewPublicKeyFromBytes(pub)
	if err != nil {
		return util.Uint160{}, err
	}
	return pk.GetScriptHash(), nil
}

// multisigAccountHash returns the script hash of the m-of-n multisig
// verification script over pubItems.
func multisigAccountHash(m int, pubItems []stackitem.Item) (util.Uint160, error) {
	pks := make(keys.PublicKeys, len(pubItems))
	for i, it := range pubItems {
		b, err := it.TryBytes()
		if err != nil {
			return util.Uint160{}, vm.ErrInvalidStackItem
		}
		pk, err := keys.NewPublicKeyFromBytes(b)
		if err != nil {
			return util.Uint160{}, err
		}
		pks[i] = pk
	}
	return keys.GetVerificationScriptHash(m, pks)
}
