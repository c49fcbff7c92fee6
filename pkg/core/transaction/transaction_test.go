package transaction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
)

func sampleTx() *Transaction {
	acc := util.Uint160{1, 2, 3}
	return &Transaction{
		Version:         0,
		Nonce:           1234,
		SystemFee:       util.Fixed8FromInt64(100),
		NetworkFee:      util.Fixed8FromInt64(5),
		ValidUntilBlock: 1000,
		Signers: []Signer{
			{Account: acc, Scopes: CalledByEntry},
		},
		Attributes: []Attribute{
			{Value: &HighPriorityAttr{}},
		},
		Script: []byte{0x51, 0x52},
		Scripts: []Witness{
			{InvocationScript: []byte{0x01}, VerificationScript: []byte{0x02}},
		},
	}
}

func TestTransactionEncodeDecodeRoundTrip(t *testing.T) {
	tx := sampleTx()
	buf := io.NewBufBinWriter()
	tx.EncodeBinary(buf.BinWriter)

	decoded := new(Transaction)
	br := io.NewBinReaderFromBuf(buf.Bytes())
	decoded.DecodeBinary(br)
	require.NoError(t, br.Err)

	require.Equal(t, tx.Version, decoded.Version)
	require.Equal(t, tx.Nonce, decoded.Nonce)
	require.Equal(t, tx.SystemFee, decoded.SystemFee)
	require.Equal(t, tx.NetworkFee, decoded.NetworkFee)
	require.Equal(t, tx.ValidUntilBlock, decoded.ValidUntilBlock)
	require.Equal(t, tx.Script, decoded.Script)
	require.Equal(t, tx.Hash(), decoded.Hash())
	require.Len(t, decoded.Scripts, 1)
	require.True(t, decoded.HasAttribute(HighPriority))
}

func TestTransactionHashIsStableAndCached(t *testing.T) {
	tx := sampleTx()
	h1 := tx.Hash()
	h2 := tx.Hash()
	require.Equal(t, h1, h2)

	other := sampleTx()
	other.Nonce = tx.Nonce + 1
	require.NotEqual(t, h1, other.Hash())
}

func TestTransactionRejectsNoSigners(t *testing.T) {
	tx := sampleTx()
	raw := io.NewBufBinWriter()
	raw.BinWriter.WriteB(tx.Version)
	raw.BinWriter.WriteU32LE(tx.Nonce)
	raw.BinWriter.WriteU64LE(uint64(tx.SystemFee.Int64Value()))
	raw.BinWriter.WriteU64LE(uint64(tx.NetworkFee.Int64Value()))
	raw.BinWriter.WriteU32LE(tx.ValidUntilBlock)
	raw.BinWriter.WriteVarUint(0)
	raw.BinWriter.WriteVarUint(0)
	raw.BinWriter.WriteVarBytes(tx.Script)
	raw.BinWriter.WriteVarUint(0)

	decoded := new(Transaction)
	br := io.NewBinReaderFromBuf(raw.Bytes())
	decoded.DecodeBinary(br)
	require.Error(t, br.Err)
}

func TestTransactionRejectsWitnessCountMismatch(t *testing.T) {
	tx := sampleTx()
	buf := io.NewBufBinWriter()
	tx.encodeHashableFields(buf.BinWriter)
	buf.BinWriter.WriteVarUint(0) // claim zero witnesses for one signer

	decoded := new(Transaction)
	br := io.NewBinReaderFromBuf(buf.Bytes())
	decoded.DecodeBinary(br)
	require.Error(t, br.Err)
}

func TestFeePerByte(t *testing.T) {
	tx := sampleTx()
	require.Equal(t, int64(tx.NetworkFee)/int64(tx.Size()), tx.FeePerByte())
}

func TestSenderAndHasSigner(t *testing.T) {
	tx := sampleTx()
	require.Equal(t, tx.Signers[0].Account, tx.Sender())
	require.True(t, tx.HasSigner(tx.Signers[0].Account))
	require.False(t, tx.HasSigner(util.Uint160{9, 9, 9}))
}

func TestMarshalJSONIncludesHashAndSender(t *testing.T) {
	tx := sampleTx()
	data, err := tx.MarshalJSON()
	require.NoError(t, err)
	require.Contains(t, string(data), `"sender":"0x`)
	require.Contains(t, string(data), `"nonce":1234`)
}
