package native

import (
	"sort"

	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// Role identifies a designated node role (§4.6): StateValidator,
// Oracle, NeoFSAlphabet or P2PNotary nodes, each tracked as an
// independent public-key set the committee can redesignate per block.
type Role byte

// Role values, matching the byte the original network assigns.
const (
	RoleStateValidator Role = 4
	RoleOracle         Role = 8
	RoleNeoFSAlphabet  Role = 16
	RoleP2PNotary      Role = 32
)

const rolePrefixNodes = byte(0x11)

// RoleManagement is the native contract tracking which public keys are
// designated for each Role at a given block height (§4.6).
type RoleManagement struct {
	md *ContractMD
}

// NewRoleManagement builds the RoleManagement native contract.
func NewRoleManagement() *RoleManagement {
	r := &RoleManagement{md: NewContractMD(IDRoleManagement, NameRoleManagement)}
	md := r.md
	md.Register(&Method{Name: "getDesignatedByRole", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: r.getDesignatedByRole})
	md.Register(&Method{Name: "designateAsRole", RequiredFlags: vm.CallFlagStates, Price: 1 << 15, Func: r.designateAsRole})
	return r
}

// Metadata implements Contract.
func (r *RoleManagement) Metadata() *ContractMD { return r.md }

// OnPersist implements Contract.
func (r *RoleManagement) OnPersist(ic *interop.Context) error { return nil }

// PostPersist implements Contract.
func (r *RoleManagement) PostPersist(ic *interop.Context) error { return nil }

func (r *RoleManagement) roleKey(role Role, height uint32) []byte {
	key := []byte{rolePrefixNodes, byte(role), byte(height >> 24), byte(height >> 16), byte(height >> 8), byte(height)}
	return storage.AppendContractID(IDRoleManagement, key)
}

// nodesAt returns the most recently designated key set for role as of
// height, scanning backward over the per-height snapshots written by
// designateAsRole — the designation a node reads during verification is
// always the set active strictly before the current block (§4.6).
func (r *RoleManagement) nodesAt(ic *interop.Context, role Role, height uint32) keys.PublicKeys {
	var best keys.PublicKeys
	prefix := storage.AppendContractID(IDRoleManagement, []byte{rolePrefixNodes, byte(role)})
	ic.Store.Seek(prefix, storage.SeekForward, func(k, v []byte) bool {
		if len(k) < 4 {
			return true
		}
		h := uint32(k[len(k)-4])<<24 | uint32(k[len(k)-3])<<16 | uint32(k[len(k)-2])<<8 | uint32(k[len(k)-1])
		if h > height {
			return true
		}
		best = decodePublicKeys(v)
		return true
	})
	return best
}

func encodePublicKeys(pks keys.PublicKeys) []byte {
	var out []byte
	for _, p := range pks {
		b := p.Bytes()
		out = append(out, byte(len(b)))
		out = append(out, b...)
	}
	return out
}

func decodePublicKeys(data []byte) keys.PublicKeys {
	var out keys.PublicKeys
	for len(data) > 0 {
		n := int(data[0])
		data = data[1:]
		if n > len(data) {
			break
		}
		pk, err := keys.NewPublicKeyFromBytes(data[:n])
		if err == nil {
			out = append(out, pk)
		}
		data = data[n:]
	}
	return out
}

func (r *RoleManagement) getDesignatedByRole(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	role := Role(mustBigInt(args, 0).Int64())
	height := uint32(mustBigInt(args, 1).Int64())
	pks := r.nodesAt(ic, role, height)
	items := make([]stackitem.Item, len(pks))
	for i, p := range pks {
		items[i] = stackitem.NewByteString(p.Bytes())
	}
	return stackitem.NewArray(items)
}

func (r *RoleManagement) designateAsRole(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	role := Role(mustBigInt(args, 0).Int64())
	arr, ok := args[1].Value().([]stackitem.Item)
	if !ok {
		panic(ErrInvalidArguments)
	}
	pks := make(keys.PublicKeys, 0, len(arr))
	for _, it := range arr {
		b, err := it.TryBytes()
		if err != nil {
			panic(err)
		}
		pk, err := keys.NewPublicKeyFromBytes(b)
		if err != nil {
			panic(err)
		}
		pks = append(pks, pk)
	}
	sort.Sort(pks)
	height := ic.Ledger.CurrentHeight() + 1
	_ = ic.Store.Put(r.roleKey(role, height), encodePublicKeys(pks))
	return stackitem.NewNull()
}
