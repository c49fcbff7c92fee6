package native

import (
	"math/big"

	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// Default governance knobs, the values a freshly-bootstrapped chain
// starts with before any setter transaction changes them.
const (
	DefaultFeePerByte      = 1000
	DefaultExecFeeFactor   = 30
	DefaultStoragePrice    = 100000
	MaxExecFeeFactor       = 1000
	MaxFeePerByte          = 100_000_000
	MaxStoragePrice        = 10_000_000
	MaxAttributeFeeAmount  = 10_000_000_00
)

const (
	policyPrefixFeePerByte    = byte(0x0a)
	policyPrefixExecFeeFactor = byte(0x12)
	policyPrefixStoragePrice  = byte(0x13)
	policyPrefixBlockedAccount = byte(0x0f)
	policyPrefixAttributeFee  = byte(0x14)
)

// PolicyContract exposes the network's tunable fee/limit parameters
// and an account blocklist, both consulted by fee calculation and
// transaction verification (§4.6).
type PolicyContract struct {
	md *ContractMD
}

// NewPolicyContract builds the PolicyContract native contract.
func NewPolicyContract() *PolicyContract {
	p := &PolicyContract{md: NewContractMD(IDPolicyContract, NamePolicyContract)}
	md := p.md
	md.Register(&Method{Name: "getFeePerByte", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: p.getFeePerByte})
	md.Register(&Method{Name: "setFeePerByte", RequiredFlags: vm.CallFlagStates, Price: 1 << 15, Func: p.setFeePerByte})
	md.Register(&Method{Name: "getExecFeeFactor", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: p.getExecFeeFactor})
	md.Register(&Method{Name: "setExecFeeFactor", RequiredFlags: vm.CallFlagStates, Price: 1 << 15, Func: p.setExecFeeFactor})
	md.Register(&Method{Name: "getStoragePrice", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: p.getStoragePrice})
	md.Register(&Method{Name: "setStoragePrice", RequiredFlags: vm.CallFlagStates, Price: 1 << 15, Func: p.setStoragePrice})
	md.Register(&Method{Name: "getAttributeFee", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: p.getAttributeFee})
	md.Register(&Method{Name: "setAttributeFee", RequiredFlags: vm.CallFlagStates, Price: 1 << 15, Func: p.setAttributeFee})
	md.Register(&Method{Name: "isBlocked", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: p.isBlocked})
	md.Register(&Method{Name: "blockAccount", RequiredFlags: vm.CallFlagStates, Price: 1 << 15, Func: p.blockAccount})
	md.Register(&Method{Name: "unblockAccount", RequiredFlags: vm.CallFlagStates, Price: 1 << 15, Func: p.unblockAccount})
	return p
}

// Metadata implements Contract.
func (p *PolicyContract) Metadata() *ContractMD { return p.md }

// OnPersist is a no-op: policy values persist as plain storage entries
// updated synchronously by their setters, nothing to reconcile per block.
func (p *PolicyContract) OnPersist(ic *interop.Context) error { return nil }

// PostPersist implements Contract.
func (p *PolicyContract) PostPersist(ic *interop.Context) error { return nil }

func (p *PolicyContract) getUint32(ic *interop.Context, prefix byte, def uint32) int64 {
	return readUint32(ic.Store, prefix, def)
}

func readUint32(s storage.Store, prefix byte, def uint32) int64 {
	v, err := s.Get(storage.AppendContractID(IDPolicyContract, []byte{prefix}))
	if err != nil || len(v) == 0 {
		return int64(def)
	}
	return new(big.Int).SetBytes(v).Int64()
}

// FeePerByte reads the current per-byte network fee rate directly off a
// storage snapshot, without running the VM — the accessor the mempool's
// Feer implementation uses for fee-rate admission checks (§4.6).
func (p *PolicyContract) FeePerByte(s storage.Store) int64 {
	return readUint32(s, policyPrefixFeePerByte, DefaultFeePerByte)
}

// IsAccountBlocked reports whether acc is on the committee-administered
// blocklist, read directly off a storage snapshot.
func (p *PolicyContract) IsAccountBlocked(s storage.Store, acc util.Uint160) bool {
	v, err := s.Get(storage.AppendContractID(IDPolicyContract, append([]byte{policyPrefixBlockedAccount}, acc[:]...)))
	return err == nil && len(v) > 0
}

// AttributeFee reads the per-attribute-type fee directly off a storage
// snapshot, used by fee-sufficiency checks outside the VM.
func (p *PolicyContract) AttributeFee(s storage.Store, attrType byte) int64 {
	v, err := s.Get(storage.AppendContractID(IDPolicyContract, append([]byte{policyPrefixAttributeFee}, attrType)))
	if err != nil || len(v) == 0 {
		return 0
	}
	return new(big.Int).SetBytes(v).Int64()
}

func (p *PolicyContract) setUint32(ic *interop.Context, prefix byte, v int64) {
	_ = ic.Store.Put(storage.AppendContractID(IDPolicyContract, []byte{prefix}), big.NewInt(v).Bytes())
}

func (p *PolicyContract) requireCommitteeWitness(ic *interop.Context) bool {
	ok, err := ic.CheckWitness(ic.CurrentScriptHash()[:])
	return err == nil && ok
}

func (p *PolicyContract) getFeePerByte(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	return stackitem.NewInteger(p.getUint32(ic, policyPrefixFeePerByte, DefaultFeePerByte))
}

func (p *PolicyContract) setFeePerByte(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	if !p.requireCommitteeWitness(ic) {
		panic(errNoAuthorization)
	}
	v := mustBigInt(args, 0).Int64()
	if v < 0 || v > MaxFeePerByte {
		panic(ErrInvalidArguments)
	}
	p.setUint32(ic, policyPrefixFeePerByte, v)
	return stackitem.NewNull()
}

func (p *PolicyContract) getExecFeeFactor(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	return stackitem.NewInteger(p.getUint32(ic, policyPrefixExecFeeFactor, DefaultExecFeeFactor))
}

func (p *PolicyContract) setExecFeeFactor(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	if !p.requireCommitteeWitness(ic) {
		panic(errNoAuthorization)
	}
	v := mustBigInt(args, 0).Int64()
	if v <= 0 || v > MaxExecFeeFactor {
		panic(ErrInvalidArguments)
	}
	p.setUint32(ic, policyPrefixExecFeeFactor, v)
	return stackitem.NewNull()
}

func (p *PolicyContract) getStoragePrice(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	return stackitem.NewInteger(p.getUint32(ic, policyPrefixStoragePrice, DefaultStoragePrice))
}

func (p *PolicyContract) setStoragePrice(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	if !p.requireCommitteeWitness(ic) {
		panic(errNoAuthorization)
	}
	v := mustBigInt(args, 0).Int64()
	if v <= 0 || v > MaxStoragePrice {
		panic(ErrInvalidArguments)
	}
	p.setUint32(ic, policyPrefixStoragePrice, v)
	return stackitem.NewNull()
}

func (p *PolicyContract) attributeFeeKey(t int64) []byte {
	return storage.AppendContractID(IDPolicyContract, append([]byte{policyPrefixAttributeFee}, byte(t)))
}

func (p *PolicyContract) getAttributeFee(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	t := mustBigInt(args, 0).Int64()
	v, err := ic.Store.Get(p.attributeFeeKey(t))
	if err != nil || len(v) == 0 {
		return stackitem.NewInteger(0)
	}
	return stackitem.NewBigInteger(new(big.Int).SetBytes(v))
}

func (p *PolicyContract) setAttributeFee(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	if !p.requireCommitteeWitness(ic) {
		panic(errNoAuthorization)
	}
	t := mustBigInt(args, 0).Int64()
	fee := mustBigInt(args, 1).Int64()
	if fee < 0 || fee > MaxAttributeFeeAmount {
		panic(ErrInvalidArguments)
	}
	_ = ic.Store.Put(p.attributeFeeKey(t), big.NewInt(fee).Bytes())
	return stackitem.NewNull()
}

func (p *PolicyContract) blockedKey(acc util.Uint160) []byte {
	return storage.AppendContractID(IDPolicyContract, append([]byte{policyPrefixBlockedAccount}, acc[:]...))
}

func (p *PolicyContract) isBlocked(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	acc := mustUint160(args, 0)
	v, err := ic.Store.Get(p.blockedKey(acc))
	return stackitem.NewBool(err == nil && len(v) > 0)
}

func (p *PolicyContract) blockAccount(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	if !p.requireCommitteeWitness(ic) {
		panic(errNoAuthorization)
	}
	acc := mustUint160(args, 0)
	_ = ic.Store.Put(p.blockedKey(acc), []byte{1})
	return stackitem.NewBool(true)
}

func (p *PolicyContract) unblockAccount(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	if !p.requireCommitteeWitness(ic) {
		panic(errNoAuthorization)
	}
	acc := mustUint160(args, 0)
	_ = ic.Store.Delete(p.blockedKey(acc))
	return stackitem.NewBool(true)
}
