package native

import (
	"github.com/n3-go/n3node/pkg/core/block"
	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/core/transaction"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// BlockReader is the subset of the chain's persistence layer
// LedgerContract needs; implemented by the blockchain component built
// on top of these natives, so this package stays free of a dependency
// on it (§4.7).
type BlockReader interface {
	CurrentHeight() uint32
	CurrentBlockHash() util.Uint256
	GetBlock(h util.Uint256) (*block.Block, bool)
	GetBlockByIndex(index uint32) (*block.Block, bool)
	GetTransaction(h util.Uint256) (*transaction.Transaction, uint32, bool)
}

// LedgerContract exposes read-only access to committed blocks and
// transactions to VM scripts (§4.6), backed by whatever BlockReader the
// hosting blockchain wires in.
type LedgerContract struct {
	md     *ContractMD
	reader BlockReader
}

// NewLedgerContract builds the LedgerContract native contract.
func NewLedgerContract(reader BlockReader) *LedgerContract {
	l := &LedgerContract{md: NewContractMD(IDLedgerContract, NameLedgerContract), reader: reader}
	md := l.md
	md.Register(&Method{Name: "currentHash", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: l.currentHash})
	md.Register(&Method{Name: "currentIndex", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: l.currentIndex})
	md.Register(&Method{Name: "getBlock", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 16, Func: l.getBlock})
	md.Register(&Method{Name: "getTransaction", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 16, Func: l.getTransaction})
	md.Register(&Method{Name: "getTransactionHeight", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 16, Func: l.getTransactionHeight})
	return l
}

// Metadata implements Contract.
func (l *LedgerContract) Metadata() *ContractMD { return l.md }

// OnPersist implements Contract.
func (l *LedgerContract) OnPersist(ic *interop.Context) error { return nil }

// PostPersist implements Contract.
func (l *LedgerContract) PostPersist(ic *interop.Context) error { return nil }

func (l *LedgerContract) currentHash(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	h := l.reader.CurrentBlockHash()
	return stackitem.NewByteString(h.BytesLE())
}

func (l *LedgerContract) currentIndex(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	return stackitem.NewInteger(int64(l.reader.CurrentHeight()))
}

func blockToStackItem(b *block.Block) stackitem.Item {
	return stackitem.NewStruct([]stackitem.Item{
		stackitem.NewByteString(b.Hash().BytesLE()),
		stackitem.NewInteger(int64(b.Version)),
		stackitem.NewByteString(b.PrevHash.BytesLE()),
		stackitem.NewByteString(b.MerkleRoot.BytesLE()),
		stackitem.NewInteger(int64(b.Timestamp)),
		stackitem.NewInteger(int64(b.Index)),
		stackitem.NewByteString(b.NextConsensus.BytesLE()),
		stackitem.NewInteger(int64(len(b.Transactions))),
	})
}

func (l *LedgerContract) getBlock(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	b, ok := l.resolveBlock(args)
	if !ok {
		return stackitem.NewNull()
	}
	return blockToStackItem(b)
}

func (l *LedgerContract) resolveBlock(args []stackitem.Item) (*block.Block, bool) {
	raw, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	if len(raw) == util.Uint256Size {
		h, err := util.Uint256DecodeBytesLE(raw)
		if err != nil {
			return nil, false
		}
		return l.reader.GetBlock(h)
	}
	n, err := argBigInt(args, 0)
	if err != nil {
		panic(err)
	}
	return l.reader.GetBlockByIndex(uint32(n.Int64()))
}

func txToStackItem(tx *transaction.Transaction) stackitem.Item {
	h := tx.Hash()
	return stackitem.NewStruct([]stackitem.Item{
		stackitem.NewByteString(h.BytesLE()),
		stackitem.NewInteger(int64(tx.Version)),
		stackitem.NewInteger(int64(tx.Nonce)),
		stackitem.NewByteString(tx.Sender().BytesLE()),
		stackitem.NewInteger(int64(tx.SystemFee)),
		stackitem.NewInteger(int64(tx.NetworkFee)),
		stackitem.NewInteger(int64(tx.ValidUntilBlock)),
		stackitem.NewByteString(tx.Script),
	})
}

func (l *LedgerContract) getTransaction(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	raw, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	h, err := util.Uint256DecodeBytesLE(raw)
	if err != nil {
		return stackitem.NewNull()
	}
	tx, _, ok := l.reader.GetTransaction(h)
	if !ok {
		return stackitem.NewNull()
	}
	return txToStackItem(tx)
}

func (l *LedgerContract) getTransactionHeight(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	raw, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	h, err := util.Uint256DecodeBytesLE(raw)
	if err != nil {
		return stackitem.NewInteger(-1)
	}
	_, height, ok := l.reader.GetTransaction(h)
	if !ok {
		return stackitem.NewInteger(-1)
	}
	return stackitem.NewInteger(int64(height))
}
