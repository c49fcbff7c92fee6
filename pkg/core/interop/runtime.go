package interop

import (
	"bytes"
	"errors"

	"github.com/n3-go/n3node/pkg/core/transaction"
	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/emit"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// ErrNotImplemented is the error for a syscall this engine names but
// does not implement; none of the Register* functions in this package
// installs a syscall that returns it.
var ErrNotImplemented = errors.New("interop: syscall not wired for this engine")

// RegisterRuntime installs the System.Runtime.* syscalls into table.
func RegisterRuntime(table vm.InteropTable, ctx *Context) {
	reg := func(name string, flags vm.CallFlags, price int64, fn func(v *vm.VM) error) {
		table.Register(&vm.InteropFunction{Name: name, ID: sysID(name), RequiredFlags: flags, Price: price, Func: fn})
	}

	reg(SystemRuntimePlatform, vm.CallFlagNone, 1<<3, func(v *vm.VM) error {
		v.Estack().Push(stackitem.NewByteString([]byte("NEO")))
		return nil
	})
	reg(SystemRuntimeGetTrigger, vm.CallFlagNone, 1<<3, func(v *vm.VM) error {
		v.Estack().Push(stackitem.NewInteger(int64(ctx.Trigger)))
		return nil
	})
	reg(SystemRuntimeGetTime, vm.CallFlagReadStates, 1<<3, func(v *vm.VM) error {
		v.Estack().Push(stackitem.NewInteger(int64(ctx.BlockTime)))
		return nil
	})
	reg(SystemRuntimeGetScriptContainer, vm.CallFlagNone, 1<<3, func(v *vm.VM) error {
		v.Estack().Push(stackitem.NewInterop(ctx.Container))
		return nil
	})
	reg(SystemRuntimeGetExecutingScriptHash, vm.CallFlagNone, 1<<3, func(v *vm.VM) error {
		h := ctx.CurrentScriptHash()
		v.Estack().Push(stackitem.NewByteString(h[:]))
		return nil
	})
	reg(SystemRuntimeGetCallingScriptHash, vm.CallFlagNone, 1<<3, func(v *vm.VM) error {
		h := ctx.CallingScriptHash()
		v.Estack().Push(stackitem.NewByteString(h[:]))
		return nil
	})
	reg(SystemRuntimeGetEntryScriptHash, vm.CallFlagNone, 1<<3, func(v *vm.VM) error {
		h := ctx.EntryScriptHash()
		v.Estack().Push(stackitem.NewByteString(h[:]))
		return nil
	})
	reg(SystemRuntimeCheckWitness, vm.CallFlagNone, 1<<10, func(v *vm.VM) error {
		b, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		ok, err := ctx.CheckWitness(b)
		if err != nil {
			return err
		}
		v.Estack().Push(stackitem.NewBool(ok))
		return nil
	})
	reg(SystemRuntimeGetInvocationCounter, vm.CallFlagNone, 1<<3, func(v *vm.VM) error {
		v.Estack().Push(stackitem.NewInteger(int64(ctx.InvocationCounter(ctx.CurrentScriptHash()))))
		return nil
	})
	reg(SystemRuntimeLog, vm.CallFlagAllowNotify, 1<<15, func(v *vm.VM) error {
		b, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		if len(b) > MaxNotificationNameLength*4 {
			return errors.New("interop: log message too long")
		}
		ctx.Logs = append(ctx.Logs, string(b))
		return nil
	})
	reg(SystemRuntimeNotify, vm.CallFlagAllowNotify, 1<<15, func(v *vm.VM) error {
		args, ok := v.Estack().Pop().(*stackitem.Array)
		if !ok {
			return vm.ErrInvalidStackItem
		}
		name, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		if len(name) > MaxNotificationNameLength {
			return errors.New("interop: notification name too long")
		}
		if len(ctx.Notifications) >= MaxNotificationCount {
			return errors.New("interop: too many notifications")
		}
		ctx.AddNotification(ctx.CurrentScriptHash(), string(name), args)
		return nil
	})
	reg(SystemRuntimeGasLeft, vm.CallFlagNone, 1<<4, func(v *vm.VM) error {
		v.Estack().Push(stackitem.NewInteger(v.GasLimit() - v.GasConsumed()))
		return nil
	})
	reg(SystemRuntimeBurnGas, vm.CallFlagNone, 1<<4, func(v *vm.VM) error {
		n, err := v.Estack().Pop().TryInteger()
		if err != nil || n.Sign() <= 0 {
			return vm.ErrInvalidStackItem
		}
		v.AddGas(-n.Int64())
		return nil
	})
}

func sysID(name string) uint32 {
	return emit.SyscallID(name)
}

// CheckWitness reports whether hashOrKey (a Uint160 script hash or a
// 33-byte compressed public key) authorizes the currently executing
// context, per its Signer's scope (§4.3, §4.5's WitnessScope).
func (c *Context) CheckWitness(hashOrKey []byte) (bool, error) {
	var target util.Uint160
	switch len(hashOrKey) {
	case util.Uint160Size:
		copy(target[:], hashOrKey)
	case 33:
		pk, err := keys.NewPublicKeyFromBytes(hashOrKey)
		if err != nil {
			return false, err
		}
		target = pk.GetScriptHash()
	default:
		return false, errors.New("interop: CheckWitness expects a script hash or compressed public key")
	}

	tx, ok := c.Container.(*transaction.Transaction)
	if !ok {
		// Block/OnPersist containers only match the calling contract's
		// own hash (e.g. the consensus NextConsensus multisig).
		return target.Equals(c.CurrentScriptHash()), nil
	}
	calling := c.CurrentScriptHash()
	for _, s := range tx.Signers {
		if !s.Account.Equals(target) {
			continue
		}
		switch {
		case s.Scopes&transaction.Global != 0:
			return true, nil
		case s.Scopes&transaction.CalledByEntry != 0 && calling.Equals(c.EntryScriptHash()):
			return true, nil
		case s.Scopes&transaction.CustomContracts != 0:
			for _, a := range s.AllowedContracts {
				if a.Equals(calling) {
					return true, nil
				}
			}
		case s.Scopes&transaction.CustomGroups != 0:
			if c.callingContractInGroups(calling, s.AllowedGroups) {
				return true, nil
			}
		case s.Scopes&transaction.Rules != 0:
			groups := groupHashes(s.AllowedGroups)
			for _, r := range s.Rules {
				if r.Condition.Match(calling, c.EntryScriptHash(), groups) {
					return r.Action == transaction.WitnessAllow, nil
				}
			}
		}
	}
	return false, nil
}

// callingContractInGroups reports whether the contract at calling
// declares membership (in its manifest's Groups) in any of allowed —
// the CustomGroups scope's actual authorization rule (§4.5), as opposed
// to a direct script-hash match.
func (c *Context) callingContractInGroups(calling util.Uint160, allowed []*keys.PublicKey) bool {
	cs, ok := c.Ledger.GetContractStateByHash(calling)
	if !ok {
		return false
	}
	for _, g := range cs.Manifest.Groups {
		for _, a := range allowed {
			if bytes.Equal(g.Bytes(), a.Bytes()) {
				return true
			}
		}
	}
	return false
}

func groupHashes(pks []*keys.PublicKey) []util.Uint160 {
	out := make([]util.Uint160, len(pks))
	for i, pk := range pks {
		out[i] = pk.GetScriptHash()
	}
	return out
}
