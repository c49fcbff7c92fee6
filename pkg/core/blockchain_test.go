package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/core/block"
	"github.com/n3-go/n3node/pkg/core/transaction"
	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/util"
)

func witnessedTx(nonce uint32, validUntil uint32) *transaction.Transaction {
	script := []byte{0x11} // PUSH1: verification leaves a single truthy value
	acc := hash.Hash160(script)
	return &transaction.Transaction{
		Version:         0,
		Nonce:           nonce,
		SystemFee:       util.Fixed8FromInt64(0),
		NetworkFee:      util.Fixed8FromInt64(1),
		ValidUntilBlock: validUntil,
		Signers: []transaction.Signer{
			{Account: acc, Scopes: transaction.CalledByEntry},
		},
		Script: []byte{0x11},
		Scripts: []transaction.Witness{
			{VerificationScript: script},
		},
	}
}

func TestNewBlockchainBuildsGenesis(t *testing.T) {
	bc, err := NewBlockchain(storage.NewMemoryStore(), Config{})
	require.NoError(t, err)
	require.Equal(t, uint32(0), bc.CurrentHeight())

	genesis, ok := bc.GetBlockByIndex(0)
	require.True(t, ok)
	require.Equal(t, bc.CurrentBlockHash(), genesis.Hash())
}

func TestNewBlockchainReopensExistingChain(t *testing.T) {
	ps := storage.NewMemoryStore()
	bc1, err := NewBlockchain(ps, Config{})
	require.NoError(t, err)
	tip := bc1.CurrentBlockHash()

	bc2, err := NewBlockchain(ps, Config{})
	require.NoError(t, err)
	require.Equal(t, tip, bc2.CurrentBlockHash())
	require.Equal(t, uint32(0), bc2.CurrentHeight())
}

func TestAddBlockExtendsTipAndPersistsTransaction(t *testing.T) {
	bc, err := NewBlockchain(storage.NewMemoryStore(), Config{})
	require.NoError(t, err)

	tx := witnessedTx(1, 1000)
	b := block.New()
	b.Index = 1
	b.PrevHash = bc.CurrentBlockHash()
	b.Transactions = []*transaction.Transaction{tx}
	b.RebuildMerkleRoot()

	require.NoError(t, bc.AddBlock(b))
	require.Equal(t, uint32(1), bc.CurrentHeight())
	require.Equal(t, b.Hash(), bc.CurrentBlockHash())

	stored, ok := bc.GetBlock(b.Hash())
	require.True(t, ok)
	require.Len(t, stored.Transactions, 1)

	gotTx, height, ok := bc.GetTransaction(tx.Hash())
	require.True(t, ok)
	require.Equal(t, uint32(1), height)
	require.Equal(t, tx.Hash(), gotTx.Hash())
}

func TestAddBlockRejectsWrongIndex(t *testing.T) {
	bc, err := NewBlockchain(storage.NewMemoryStore(), Config{})
	require.NoError(t, err)

	b := block.New()
	b.Index = 5
	b.PrevHash = bc.CurrentBlockHash()
	require.ErrorIs(t, bc.AddBlock(b), ErrInvalidBlockIndex)
}

func TestAddBlockRejectsWrongPrevHash(t *testing.T) {
	bc, err := NewBlockchain(storage.NewMemoryStore(), Config{})
	require.NoError(t, err)

	b := block.New()
	b.Index = 1
	b.PrevHash = util.Uint256{9, 9, 9}
	require.ErrorIs(t, bc.AddBlock(b), ErrInvalidPrevHash)
}

func TestAddBlockRejectsFailedWitness(t *testing.T) {
	bc, err := NewBlockchain(storage.NewMemoryStore(), Config{})
	require.NoError(t, err)

	tx := witnessedTx(1, 1000)
	tx.Signers[0].Account = util.Uint160{1, 1, 1} // doesn't match the verification script's hash

	b := block.New()
	b.Index = 1
	b.PrevHash = bc.CurrentBlockHash()
	b.Transactions = []*transaction.Transaction{tx}
	b.RebuildMerkleRoot()

	require.ErrorIs(t, bc.AddBlock(b), ErrTxVerification)
}

func TestVerifyTransactionRejectsExpired(t *testing.T) {
	bc, err := NewBlockchain(storage.NewMemoryStore(), Config{})
	require.NoError(t, err)

	tx := witnessedTx(1, 0)
	require.Error(t, bc.VerifyTransaction(tx))
}

func TestVerifyTransactionRejectsWitnessCountMismatch(t *testing.T) {
	bc, err := NewBlockchain(storage.NewMemoryStore(), Config{})
	require.NoError(t, err)

	tx := witnessedTx(1, 1000)
	tx.Scripts = nil
	require.Error(t, bc.VerifyTransaction(tx))
}
