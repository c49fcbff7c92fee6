package block

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/core/transaction"
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
)

func sampleHeader() Header {
	return Header{
		Version:       VersionInitial,
		PrevHash:      util.Uint256{1},
		MerkleRoot:    util.Uint256{2},
		Timestamp:     1000,
		Nonce:         42,
		Index:         7,
		PrimaryIndex:  1,
		NextConsensus: util.Uint160{3},
		Script: transaction.Witness{
			InvocationScript:   []byte{0x01},
			VerificationScript: []byte{0x02},
		},
	}
}

func sampleTx(nonce uint32) *transaction.Transaction {
	return &transaction.Transaction{
		Version:         0,
		Nonce:           nonce,
		ValidUntilBlock: 100,
		Signers: []transaction.Signer{
			{Account: util.Uint160{1}, Scopes: transaction.CalledByEntry},
		},
		Script: []byte{0x51},
		Scripts: []transaction.Witness{
			{InvocationScript: []byte{}, VerificationScript: []byte{}},
		},
	}
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := sampleHeader()
	buf := io.NewBufBinWriter()
	h.EncodeBinary(buf.BinWriter)

	var decoded Header
	br := io.NewBinReaderFromBuf(buf.Bytes())
	decoded.DecodeBinary(br)
	require.NoError(t, br.Err)
	require.Equal(t, h.Hash(), decoded.Hash())
	require.Equal(t, h.Index, decoded.Index)
	require.Equal(t, h.NextConsensus, decoded.NextConsensus)
}

func TestHeaderRejectsWrongWitnessCount(t *testing.T) {
	h := sampleHeader()
	buf := io.NewBufBinWriter()
	h.encodeHashableFields(buf.BinWriter)
	buf.BinWriter.WriteVarUint(2)

	var decoded Header
	br := io.NewBinReaderFromBuf(buf.Bytes())
	decoded.DecodeBinary(br)
	require.Error(t, br.Err)
}

func TestBlockEncodeDecodeRoundTrip(t *testing.T) {
	b := New()
	b.Header = sampleHeader()
	b.Transactions = []*transaction.Transaction{sampleTx(1), sampleTx(2)}
	b.RebuildMerkleRoot()

	buf := io.NewBufBinWriter()
	b.EncodeBinary(buf.BinWriter)

	decoded := new(Block)
	br := io.NewBinReaderFromBuf(buf.Bytes())
	decoded.DecodeBinary(br)
	require.NoError(t, br.Err)
	require.Len(t, decoded.Transactions, 2)
	require.Equal(t, b.Transactions[0].Hash(), decoded.Transactions[0].Hash())
	require.Equal(t, b.MerkleRoot, decoded.MerkleRoot)
}

func TestComputeMerkleRootChangesWithTransactions(t *testing.T) {
	b := New()
	b.Header = sampleHeader()
	b.Transactions = []*transaction.Transaction{sampleTx(1)}
	root1 := b.ComputeMerkleRoot()

	b.Transactions = append(b.Transactions, sampleTx(2))
	root2 := b.ComputeMerkleRoot()
	require.NotEqual(t, root1, root2)
}

func TestBlockRejectsTooManyTransactions(t *testing.T) {
	b := New()
	b.Header = sampleHeader()
	buf := io.NewBufBinWriter()
	b.Header.EncodeBinary(buf.BinWriter)
	buf.BinWriter.WriteVarUint(uint64(MaxTransactionsPerBlock) + 1)

	decoded := new(Block)
	br := io.NewBinReaderFromBuf(buf.Bytes())
	decoded.DecodeBinary(br)
	require.ErrorIs(t, br.Err, ErrMaxContentsPerBlock)
}

func TestBlockMarshalJSONMergesHeaderAndBody(t *testing.T) {
	b := New()
	b.Header = sampleHeader()
	b.Transactions = []*transaction.Transaction{sampleTx(1)}

	data, err := b.MarshalJSON()
	require.NoError(t, err)
	require.Contains(t, string(data), `"index":7`)
	require.Contains(t, string(data), `"tx":[`)
}
