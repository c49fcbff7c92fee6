package mempool_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/core/transaction"
	"github.com/n3-go/n3node/pkg/mempool"
	"github.com/n3-go/n3node/pkg/util"
)

type fakeFeer struct {
	feePerByte int64
	balances   map[util.Uint160]*big.Int
	blocked    map[util.Uint160]bool
	height     uint32
}

func newFakeFeer() *fakeFeer {
	return &fakeFeer{balances: make(map[util.Uint160]*big.Int), blocked: make(map[util.Uint160]bool)}
}

func (f *fakeFeer) FeePerByte() int64 { return f.feePerByte }
func (f *fakeFeer) GetUtilityTokenBalance(acc util.Uint160) *big.Int {
	if b, ok := f.balances[acc]; ok {
		return b
	}
	return big.NewInt(1_000_000_00000000)
}
func (f *fakeFeer) BlockHeight() uint32         { return f.height }
func (f *fakeFeer) IsBlocked(util.Uint160) bool { return false }

func txWithFee(t *testing.T, sender byte, networkFee int64, scriptLen int) *transaction.Transaction {
	t.Helper()
	acc := util.Uint160{}
	acc[0] = sender
	tx := &transaction.Transaction{
		Version:         0,
		Nonce:           uint32(sender)*1000 + uint32(networkFee%1000),
		SystemFee:       0,
		NetworkFee:      util.Fixed8(networkFee),
		ValidUntilBlock: 1000,
		Signers:         []transaction.Signer{{Account: acc, Scopes: transaction.CalledByEntry}},
		Script:          make([]byte, scriptLen),
		Scripts:         []transaction.Witness{{InvocationScript: []byte{}, VerificationScript: []byte{sender}}},
	}
	tx.Script[0] = 0x51
	return tx
}

func TestPoolAddAndExists(t *testing.T) {
	p := mempool.New(10, nil, nil)
	tx := txWithFee(t, 1, 1500, 60)
	assert.False(t, p.ContainsKey(tx.Hash()))
	require.NoError(t, p.Add(tx))
	assert.True(t, p.ContainsKey(tx.Hash()))
	assert.Equal(t, 1, p.Count())
}

func TestPoolDuplicateRejected(t *testing.T) {
	p := mempool.New(10, nil, nil)
	tx := txWithFee(t, 1, 1500, 60)
	require.NoError(t, p.Add(tx))
	require.ErrorIs(t, p.Add(tx), mempool.ErrDup)
}

// TestPoolPriorityEviction implements scenario S3: capacity 2, admit two
// transactions, reject a third that does not outrank the minimum, then
// evict the minimum for a fourth that does.
func TestPoolPriorityEviction(t *testing.T) {
	p := mempool.New(2, nil, nil)
	// Size() is 53 fixed bytes plus the script length for these txs.
	t1 := txWithFee(t, 1, 100*60, 60) // fee_per_byte = 6000/113 = 53
	t2 := txWithFee(t, 2, 200*61, 61) // fee_per_byte = 12200/114 = 107
	require.NoError(t, p.Add(t1))
	require.NoError(t, p.Add(t2))

	t3 := txWithFee(t, 3, 50*62, 62) // fee_per_byte = 3100/115 = 26, below minimum
	require.ErrorIs(t, p.Add(t3), mempool.ErrOOM)
	assert.Equal(t, 2, p.Count())

	t4 := txWithFee(t, 4, 300*63, 63) // fee_per_byte = 18900/116 = 162, evicts t1
	require.NoError(t, p.Add(t4))
	assert.Equal(t, 2, p.Count())
	assert.False(t, p.ContainsKey(t1.Hash()))
	assert.True(t, p.ContainsKey(t2.Hash()))
	assert.True(t, p.ContainsKey(t4.Hash()))
}

// TestPoolConflictsEviction implements scenario S4: a Conflicts
// attribute naming an admitted transaction evicts it when the new
// transaction outranks it, and a resend of the evicted transaction is
// then rejected as conflicted.
func TestPoolConflictsEviction(t *testing.T) {
	p := mempool.New(10, nil, nil)
	t1 := txWithFee(t, 1, 100*60, 60)
	require.NoError(t, p.Add(t1))

	t2 := txWithFee(t, 2, 500*60, 60)
	t2.Attributes = []transaction.Attribute{{Value: &transaction.ConflictsAttr{Hash: t1.Hash()}}}
	require.NoError(t, p.Add(t2))
	assert.False(t, p.ContainsKey(t1.Hash()))
	assert.True(t, p.ContainsKey(t2.Hash()))

	require.ErrorIs(t, p.Add(t1), mempool.ErrConflict)
}

func TestPoolFeerRejectsLowFee(t *testing.T) {
	feer := newFakeFeer()
	feer.feePerByte = 1000
	p := mempool.New(10, feer, nil)

	low := txWithFee(t, 1, 10*60, 60) // fee_per_byte = 600/113 = 5 < 1000
	require.ErrorIs(t, p.Add(low), mempool.ErrLowFee)
}

func TestPoolHighPriorityOutranksFee(t *testing.T) {
	p := mempool.New(10, nil, nil)
	normal := txWithFee(t, 1, 10000*60, 60)
	hp := txWithFee(t, 2, 1*61, 61)
	hp.Attributes = []transaction.Attribute{{Value: &transaction.HighPriorityAttr{}}}

	require.NoError(t, p.Add(normal))
	require.NoError(t, p.Add(hp))

	sorted := p.GetSortedVerifiedTransactions(2)
	require.Len(t, sorted, 2)
	assert.Equal(t, hp.Hash(), sorted[0].Hash())
}

func TestPoolRemoveStaleAndReverify(t *testing.T) {
	p := mempool.New(10, nil, nil)
	t1 := txWithFee(t, 1, 100*60, 60)
	t2 := txWithFee(t, 2, 200*60, 60)
	require.NoError(t, p.Add(t1))
	require.NoError(t, p.Add(t2))

	p.RemoveStale([]util.Uint256{t1.Hash()})
	assert.Equal(t, 0, p.Count())
	assert.True(t, p.ContainsKey(t2.Hash()))

	restored := p.ReverifyTop(10, func(tx *transaction.Transaction) bool { return true })
	assert.Equal(t, 1, restored)
	assert.Equal(t, 1, p.Count())
}
