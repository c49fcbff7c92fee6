package network

import (
	"testing"

	"github.com/stretchr/testify/require"

	n3io "github.com/n3-go/n3node/pkg/io"
)

func TestBloomFilterMatchesAddedElement(t *testing.T) {
	load := &FilterLoadPayload{Filter: make([]byte, 32), K: 5, Tweak: 7}
	f := NewBloomFilter(load)

	elem := []byte("deadbeefdeadbeefdeadbeefdeadbeef")
	require.False(t, f.Contains(elem))
	f.Add(elem)
	require.True(t, f.Contains(elem))
}

func TestBloomFilterDoesNotMatchUnrelatedElement(t *testing.T) {
	load := &FilterLoadPayload{Filter: make([]byte, 32), K: 5, Tweak: 7}
	f := NewBloomFilter(load)
	f.Add([]byte("element-one"))
	require.False(t, f.Contains([]byte("element-two")))
}

func TestFilterLoadPayloadRejectsTooManyHashFuncs(t *testing.T) {
	p := &FilterLoadPayload{K: maxFilterHashFuncs + 1}
	w := n3io.NewBufBinWriter()
	p.EncodeBinary(w.BinWriter)

	var out FilterLoadPayload
	r := n3io.NewBinReaderFromBuf(w.Bytes())
	out.DecodeBinary(r)
	require.ErrorIs(t, r.Err, errTooManyHashFuncs)
}
