package network

import (
	"errors"

	"github.com/twmb/murmur3"

	n3io "github.com/n3-go/n3node/pkg/io"
)

var errTooManyHashFuncs = errors.New("network: filter exceeds maxFilterHashFuncs")

// maxFilterBytes and maxFilterHashFuncs bound a FilterLoad request the
// way a peer's own bloom filter is bounded, so a hostile FilterLoad
// cannot force an oversized allocation or an expensive hash chain.
const (
	maxFilterBytes     = 36000
	maxFilterHashFuncs = 50
)

// FilterLoadPayload installs a peer-supplied bloom filter (§4.8's
// legacy SPV support): once loaded, only transactions whose hash
// matches the filter are announced to that peer by Inv. Block Inv is
// sent to every peer regardless of its filter, and there is no
// MerkleBlock message.
type FilterLoadPayload struct {
	Filter    []byte
	K         uint8
	Tweak     uint32
}

// EncodeBinary implements io.Serializable.
func (p *FilterLoadPayload) EncodeBinary(w *n3io.BinWriter) {
	w.WriteVarBytes(p.Filter)
	w.WriteB(p.K)
	w.WriteU32LE(p.Tweak)
}

// DecodeBinary implements io.Serializable.
func (p *FilterLoadPayload) DecodeBinary(r *n3io.BinReader) {
	p.Filter = r.ReadVarBytes(maxFilterBytes)
	p.K = r.ReadB()
	p.Tweak = r.ReadU32LE()
	if p.K > maxFilterHashFuncs {
		r.Err = errTooManyHashFuncs
	}
}

// FilterAddPayload adds one more element to an already-loaded filter
// without requiring a full FilterLoad round trip.
type FilterAddPayload struct {
	Data []byte
}

// EncodeBinary implements io.Serializable.
func (p *FilterAddPayload) EncodeBinary(w *n3io.BinWriter) {
	w.WriteVarBytes(p.Data)
}

// DecodeBinary implements io.Serializable.
func (p *FilterAddPayload) DecodeBinary(r *n3io.BinReader) {
	p.Data = r.ReadVarBytes(520)
}

// BloomFilter is a peer-side bloom filter: hash function i (of K) is
// murmur3 seeded with i*0x9e3779b9 + Tweak, reduced modulo the filter's
// bit count.
type BloomFilter struct {
	bits  []byte
	k     uint8
	tweak uint32
}

// NewBloomFilter builds a filter whose bits start as a copy of
// load.Filter, using load's hash-function count and tweak.
func NewBloomFilter(load *FilterLoadPayload) *BloomFilter {
	return &BloomFilter{bits: append([]byte(nil), load.Filter...), k: load.K, tweak: load.Tweak}
}

func (f *BloomFilter) hash(seed uint32, data []byte) uint32 {
	h := murmur3.SeedSum32(seed*0x9e3779b9+f.tweak, data)
	return h % uint32(len(f.bits)*8)
}

// Add marks data's bit positions across all K hash functions.
func (f *BloomFilter) Add(data []byte) {
	for i := uint32(0); i < uint32(f.k); i++ {
		bit := f.hash(i, data)
		f.bits[bit/8] |= 1 << (bit % 8)
	}
}

// Contains reports whether every one of data's K bit positions is set,
// i.e. data may be (but is not certainly) a member of the filter.
func (f *BloomFilter) Contains(data []byte) bool {
	for i := uint32(0); i < uint32(f.k); i++ {
		bit := f.hash(i, data)
		if f.bits[bit/8]&(1<<(bit%8)) == 0 {
			return false
		}
	}
	return true
}
