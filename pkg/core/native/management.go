package native

import (
	"encoding/json"
	"errors"
	"math/big"

	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/core/state"
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/smartcontract/manifest"
	"github.com/n3-go/n3node/pkg/smartcontract/nef"
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

const (
	mgmtPrefixContract   = byte(0x08)
	mgmtPrefixContractID = byte(0x09) // contract id -> hash, for GetContractState(id)
	mgmtPrefixNextID     = byte(0x0c)
	mgmtPrefixMinFee     = byte(0x14)
)

// MinimumDeploymentFee is the datoshi deploy charges as execution gas
// for every contract deployment; it is a constant and no method
// changes it.
const MinimumDeploymentFee = 10_00000000

var (
	// ErrContractAlreadyExists is returned by deploy for a script that
	// hashes to an address already occupied.
	ErrContractAlreadyExists = errors.New("native: contract already exists")
	// ErrContractNotFound is returned by update/destroy for an address
	// with no deployed contract (getContract and getContractById return
	// Null instead).
	ErrContractNotFound = errors.New("native: contract not found")
)

// ContractManagement is the native contract every deploy/update/destroy
// operation runs through (§4.6): it owns the sequential contract-ID
// counter and the deployed NEF/manifest records the application engine
// resolves calls against.
type ContractManagement struct {
	md *ContractMD
}

// NewContractManagement builds the ContractManagement native contract.
func NewContractManagement() *ContractManagement {
	c := &ContractManagement{md: NewContractMD(IDContractManagement, NameContractManagement)}
	md := c.md
	md.Register(&Method{Name: "deploy", RequiredFlags: vm.CallFlagStates | vm.CallFlagAllowNotify, Price: 0, Func: c.deploy})
	md.Register(&Method{Name: "update", RequiredFlags: vm.CallFlagStates | vm.CallFlagAllowNotify, Price: 0, Func: c.update})
	md.Register(&Method{Name: "destroy", RequiredFlags: vm.CallFlagStates | vm.CallFlagAllowNotify, Price: 1 << 15, Func: c.destroy})
	md.Register(&Method{Name: "getContract", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: c.getContract})
	md.Register(&Method{Name: "getContractById", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: c.getContractByID})
	md.Register(&Method{Name: "hasMethod", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: c.hasMethod})
	return c
}

// Metadata implements Contract.
func (c *ContractManagement) Metadata() *ContractMD { return c.md }

// OnPersist implements Contract.
func (c *ContractManagement) OnPersist(ic *interop.Context) error { return nil }

// PostPersist implements Contract.
func (c *ContractManagement) PostPersist(ic *interop.Context) error { return nil }

func (c *ContractManagement) hashKey(h util.Uint160) []byte {
	return storage.AppendContractID(IDContractManagement, append([]byte{mgmtPrefixContract}, h[:]...))
}

func (c *ContractManagement) idKey(id int32) []byte {
	buf := []byte{mgmtPrefixContractID, byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	return storage.AppendContractID(IDContractManagement, buf)
}

func (c *ContractManagement) nextID(ic *interop.Context) int32 {
	key := storage.AppendContractID(IDContractManagement, []byte{mgmtPrefixNextID})
	v, _ := ic.Store.Get(key)
	var id int32 = 1
	if len(v) > 0 {
		id = int32(new(big.Int).SetBytes(v).Int64()) + 1
	}
	_ = ic.Store.Put(key, big.NewInt(int64(id)).Bytes())
	return id
}

func encodeStoredContract(cs *state.Contract) []byte {
	w := io.NewBufBinWriter()
	w.WriteU32LE(uint32(cs.ID))
	w.WriteU16LE(cs.UpdateCounter)
	nefBytes, _ := cs.NEF.Bytes()
	w.WriteVarBytes(nefBytes)
	mjson, _ := json.Marshal(&cs.Manifest)
	w.WriteVarBytes(mjson)
	return w.Bytes()
}

func decodeStoredContract(hash util.Uint160, data []byte) (*state.Contract, error) {
	r := io.NewBinReaderFromBuf(data)
	id := int32(r.ReadU32LE())
	counter := r.ReadU16LE()
	nefBytes := r.ReadVarBytes(nef.MaxScriptLength + 4096)
	mjson := r.ReadVarBytes(manifest.MaxManifestSize)
	if r.Err != nil {
		return nil, r.Err
	}
	nefFile, err := nef.FileFromBytes(nefBytes)
	if err != nil {
		return nil, err
	}
	var m manifest.Manifest
	if err := json.Unmarshal(mjson, &m); err != nil {
		return nil, err
	}
	return &state.Contract{ID: id, UpdateCounter: counter, Hash: hash, NEF: nefFile, Manifest: m}, nil
}

func (c *ContractManagement) loadByHash(ic *interop.Context, h util.Uint160) (*state.Contract, error) {
	v, err := ic.Store.Get(c.hashKey(h))
	if err != nil || len(v) == 0 {
		return nil, ErrContractNotFound
	}
	return decodeStoredContract(h, v)
}

func (c *ContractManagement) save(ic *interop.Context, cs *state.Contract) {
	data := encodeStoredContract(cs)
	_ = ic.Store.Put(c.hashKey(cs.Hash), data)
	_ = ic.Store.Put(c.idKey(cs.ID), cs.Hash[:])
}

func (c *ContractManagement) deploy(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	nefBytes, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	manifestBytes, err := argBytes(args, 1)
	if err != nil {
		panic(err)
	}
	nefFile, err := nef.FileFromBytes(nefBytes)
	if err != nil {
		panic(err)
	}
	var mf manifest.Manifest
	if err := json.Unmarshal(manifestBytes, &mf); err != nil {
		panic(err)
	}
	sender := ic.CurrentScriptHash()
	hash := state.CreateContractHash(sender, nefFile.Script)
	if _, err := c.loadByHash(ic, hash); err == nil {
		panic(ErrContractAlreadyExists)
	}
	if err := mf.IsValid(hash); err != nil {
		panic(err)
	}
	if err := ic.VM.ChargeGas(MinimumDeploymentFee); err != nil {
		panic(err)
	}
	cs := &state.Contract{
		ID:       c.nextID(ic),
		Hash:     hash,
		NEF:      nefFile,
		Manifest: mf,
	}
	c.save(ic, cs)
	ic.AddNotification(c.md.Hash, "Deploy", stackitem.NewArray([]stackitem.Item{
		stackitem.NewByteString(hash[:]),
	}))
	return contractToStackItem(cs)
}

func (c *ContractManagement) update(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	caller := ic.CurrentScriptHash()
	cs, err := c.loadByHash(ic, caller)
	if err != nil {
		panic(err)
	}
	nefBytes, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	manifestBytes, err := argBytes(args, 1)
	if err != nil {
		panic(err)
	}
	if len(nefBytes) > 0 {
		nefFile, err := nef.FileFromBytes(nefBytes)
		if err != nil {
			panic(err)
		}
		cs.NEF = nefFile
	}
	if len(manifestBytes) > 0 {
		var mf manifest.Manifest
		if err := json.Unmarshal(manifestBytes, &mf); err != nil {
			panic(err)
		}
		if err := mf.IsValid(cs.Hash); err != nil {
			panic(err)
		}
		cs.Manifest = mf
	}
	cs.UpdateCounter++
	c.save(ic, cs)
	ic.AddNotification(c.md.Hash, "Update", stackitem.NewArray([]stackitem.Item{
		stackitem.NewByteString(cs.Hash[:]),
	}))
	return stackitem.NewNull()
}

func (c *ContractManagement) destroy(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	caller := ic.CurrentScriptHash()
	cs, err := c.loadByHash(ic, caller)
	if err != nil {
		panic(err)
	}
	_ = ic.Store.Delete(c.hashKey(caller))
	_ = ic.Store.Delete(c.idKey(cs.ID))
	ic.AddNotification(c.md.Hash, "Destroy", stackitem.NewArray([]stackitem.Item{
		stackitem.NewByteString(caller[:]),
	}))
	return stackitem.NewNull()
}

func contractToStackItem(cs *state.Contract) stackitem.Item {
	nefBytes, _ := cs.NEF.Bytes()
	mjson, _ := json.Marshal(&cs.Manifest)
	return stackitem.NewStruct([]stackitem.Item{
		stackitem.NewInteger(int64(cs.ID)),
		stackitem.NewInteger(int64(cs.UpdateCounter)),
		stackitem.NewByteString(cs.Hash[:]),
		stackitem.NewByteString(nefBytes),
		stackitem.NewByteString(mjson),
	})
}

func (c *ContractManagement) getContract(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	h := mustUint160(args, 0)
	cs, err := c.loadByHash(ic, h)
	if err != nil {
		return stackitem.NewNull()
	}
	return contractToStackItem(cs)
}

func (c *ContractManagement) getContractByID(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	id := int32(mustBigInt(args, 0).Int64())
	v, err := ic.Store.Get(c.idKey(id))
	if err != nil || len(v) != 20 {
		return stackitem.NewNull()
	}
	h, err := util.Uint160DecodeBytesLE(v)
	if err != nil {
		return stackitem.NewNull()
	}
	cs, err := c.loadByHash(ic, h)
	if err != nil {
		return stackitem.NewNull()
	}
	return contractToStackItem(cs)
}

func (c *ContractManagement) hasMethod(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	h := mustUint160(args, 0)
	name, err := argBytes(args, 1)
	if err != nil {
		panic(err)
	}
	paramCount := int(mustBigInt(args, 2).Int64())
	cs, err := c.loadByHash(ic, h)
	if err != nil {
		return stackitem.NewBool(false)
	}
	return stackitem.NewBool(cs.Manifest.GetMethod(string(name), paramCount) != nil)
}

// GetContractStateByHash exposes a read path for wiring into the
// ledger's interop.Ledger implementation: the blockchain delegates
// System.Contract.Call resolution to whichever ContractManagement
// instance is active for the current chain (§4.6).
func (c *ContractManagement) GetContractStateByHash(ic *interop.Context, h util.Uint160) (interop.ContractState, bool) {
	cs, err := c.loadByHash(ic, h)
	if err != nil {
		return interop.ContractState{}, false
	}
	return cs.ToContractState(), true
}
