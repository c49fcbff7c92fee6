package native

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/core/block"
	"github.com/n3-go/n3node/pkg/core/transaction"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

type fakeBlockReader struct {
	height uint32
	hash   util.Uint256
	blocks map[util.Uint256]*block.Block
	byIdx  map[uint32]*block.Block
	txes   map[util.Uint256]struct {
		tx     *transaction.Transaction
		height uint32
	}
}

func (r *fakeBlockReader) CurrentHeight() uint32         { return r.height }
func (r *fakeBlockReader) CurrentBlockHash() util.Uint256 { return r.hash }
func (r *fakeBlockReader) GetBlock(h util.Uint256) (*block.Block, bool) {
	b, ok := r.blocks[h]
	return b, ok
}
func (r *fakeBlockReader) GetBlockByIndex(index uint32) (*block.Block, bool) {
	b, ok := r.byIdx[index]
	return b, ok
}
func (r *fakeBlockReader) GetTransaction(h util.Uint256) (*transaction.Transaction, uint32, bool) {
	e, ok := r.txes[h]
	if !ok {
		return nil, 0, false
	}
	return e.tx, e.height, true
}

func TestLedgerContractCurrentHashAndIndex(t *testing.T) {
	reader := &fakeBlockReader{height: 42, hash: util.Uint256{9}}
	l := NewLedgerContract(reader)
	ic := newCryptoTestContext(t)

	idx, err := l.Metadata().Invoke(ic, "currentIndex", l.Metadata().Methods["currentIndex"].RequiredFlags, nil)
	require.NoError(t, err)
	require.Equal(t, int64(42), idx.Value().(interface{ Int64() int64 }).Int64())

	h, err := l.Metadata().Invoke(ic, "currentHash", l.Metadata().Methods["currentHash"].RequiredFlags, nil)
	require.NoError(t, err)
	require.Equal(t, reader.hash.BytesLE(), h.Value().([]byte))
}

func TestLedgerContractGetBlockByIndexAndHash(t *testing.T) {
	b := block.New()
	b.Index = 5
	reader := &fakeBlockReader{
		blocks: map[util.Uint256]*block.Block{b.Hash(): b},
		byIdx:  map[uint32]*block.Block{5: b},
	}
	l := NewLedgerContract(reader)
	ic := newCryptoTestContext(t)

	byIdx := l.getBlock(ic, []stackitem.Item{stackitem.NewInteger(5)})
	require.NotEqual(t, stackitem.NewNull(), byIdx)

	byHash := l.getBlock(ic, []stackitem.Item{stackitem.NewByteString(b.Hash().BytesLE())})
	require.NotEqual(t, stackitem.NewNull(), byHash)

	missing := l.getBlock(ic, []stackitem.Item{stackitem.NewInteger(999)})
	require.Equal(t, stackitem.NewNull(), missing)
}

func TestLedgerContractGetTransactionHeight(t *testing.T) {
	tx := &transaction.Transaction{Script: []byte{0x51}, Signers: []transaction.Signer{{}}}
	reader := &fakeBlockReader{
		txes: map[util.Uint256]struct {
			tx     *transaction.Transaction
			height uint32
		}{
			tx.Hash(): {tx: tx, height: 3},
		},
	}
	l := NewLedgerContract(reader)
	ic := newCryptoTestContext(t)

	h := l.getTransactionHeight(ic, []stackitem.Item{stackitem.NewByteString(tx.Hash().BytesLE())})
	require.Equal(t, int64(3), h.Value().(interface{ Int64() int64 }).Int64())

	miss := l.getTransactionHeight(ic, []stackitem.Item{stackitem.NewByteString(util.Uint256{1}.BytesLE())})
	require.Equal(t, int64(-1), miss.Value().(interface{ Int64() int64 }).Int64())
}
