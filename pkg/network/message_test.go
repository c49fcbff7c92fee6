package network

import (
	"testing"

	"github.com/stretchr/testify/require"

	n3io "github.com/n3-go/n3node/pkg/io"
)

func TestMessageEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte("hello neo")
	m := NewMessage(0x334f454e, CMDVersion, payload)
	require.False(t, m.Compressed, "small payloads should not be compressed")

	w := n3io.NewBufBinWriter()
	m.Encode(w.BinWriter)
	require.NoError(t, w.BinWriter.Err)

	var out Message
	r := n3io.NewBinReaderFromBuf(w.Bytes())
	out.Decode(r)
	require.NoError(t, r.Err)
	require.Equal(t, m.Magic, out.Magic)
	require.Equal(t, m.Command, out.Command)
	require.Equal(t, payload, out.Payload)
}

func TestMessageCompressesLargePayloads(t *testing.T) {
	payload := make([]byte, 4096)
	m := NewMessage(1, CMDBlock, payload)
	require.True(t, m.Compressed)

	raw, err := m.RawPayload()
	require.NoError(t, err)
	require.Equal(t, payload, raw)
}

func TestMessageDecodeRejectsChecksumMismatch(t *testing.T) {
	m := NewMessage(1, CMDVersion, []byte("payload"))
	w := n3io.NewBufBinWriter()
	m.Encode(w.BinWriter)
	raw := w.Bytes()
	raw[len(raw)-1] ^= 0xff // corrupt the last payload byte

	var out Message
	r := n3io.NewBinReaderFromBuf(raw)
	out.Decode(r)
	require.ErrorIs(t, r.Err, ErrChecksumMismatch)
}

func TestMessageDecodeRejectsOversizedPayload(t *testing.T) {
	w := n3io.NewBufBinWriter()
	w.BinWriter.WriteU32LE(1)
	w.BinWriter.WriteB(byte(CMDBlock))
	w.BinWriter.WriteBool(false)
	w.BinWriter.WriteU32LE(PayloadMaxSize + 1)

	var out Message
	r := n3io.NewBinReaderFromBuf(w.Bytes())
	out.Decode(r)
	require.ErrorIs(t, r.Err, ErrPayloadTooLarge)
}

func TestVersionPayloadRoundTrip(t *testing.T) {
	v := NewVersionPayload(0x334f454e, 10333, 42, "/N3Node:0.1.0/", 100)
	w := n3io.NewBufBinWriter()
	v.EncodeBinary(w.BinWriter)
	require.NoError(t, w.BinWriter.Err)

	var out VersionPayload
	out.DecodeBinary(n3io.NewBinReaderFromBuf(w.Bytes()))
	require.Equal(t, *v, out)
}

func TestInventoryPayloadRejectsTooManyHashes(t *testing.T) {
	w := n3io.NewBufBinWriter()
	w.BinWriter.WriteB(byte(InventoryTX))
	w.BinWriter.WriteVarUint(MaxHashesCount + 1)

	var out InventoryPayload
	r := n3io.NewBinReaderFromBuf(w.Bytes())
	out.DecodeBinary(r)
	require.ErrorIs(t, r.Err, errTooManyHashes)
}

func TestGetBlocksPayloadLimit(t *testing.T) {
	require.Equal(t, MaxHeadersPerRequest, (&GetBlocksPayload{Count: 0}).Limit())
	require.Equal(t, 10, (&GetBlocksPayload{Count: 10}).Limit())
	require.Equal(t, MaxHeadersPerRequest, (&GetBlocksPayload{Count: MaxHeadersPerRequest + 1}).Limit())
}
