package network

import (
	"errors"

	n3io "github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
)

// InventoryType distinguishes the three kinds of object this node
// relays by hash before transmitting the object itself (§4.8).
type InventoryType byte

// The inventory kinds this node relays.
const (
	InventoryTX        InventoryType = 0x2b
	InventoryBlock     InventoryType = 0x2c
	InventoryExtensible InventoryType = 0x2e
)

// MaxHashesCount bounds a single Inv/GetData/NotFound payload: a peer
// announcing or requesting more than this in one message is rejected
// rather than allocated for (§4.8).
const MaxHashesCount = 500

var errTooManyHashes = errors.New("network: too many hashes in inventory payload")

// InventoryPayload carries a batch of object hashes of one kind, used
// by Inv (announce), GetData (request) and NotFound (decline) alike.
type InventoryPayload struct {
	Type   InventoryType
	Hashes []util.Uint256
}

// NewInventoryPayload builds an InventoryPayload, the announce/request
// form shared by Inv, GetData and NotFound.
func NewInventoryPayload(typ InventoryType, hashes []util.Uint256) *InventoryPayload {
	return &InventoryPayload{Type: typ, Hashes: hashes}
}

// EncodeBinary implements io.Serializable.
func (p *InventoryPayload) EncodeBinary(w *n3io.BinWriter) {
	w.WriteB(byte(p.Type))
	w.WriteVarUint(uint64(len(p.Hashes)))
	for _, h := range p.Hashes {
		w.WriteBytes(h[:])
	}
}

// DecodeBinary implements io.Serializable.
func (p *InventoryPayload) DecodeBinary(r *n3io.BinReader) {
	p.Type = InventoryType(r.ReadB())
	n := r.ReadVarUint()
	if n > MaxHashesCount {
		r.Err = errTooManyHashes
		return
	}
	p.Hashes = make([]util.Uint256, n)
	for i := range p.Hashes {
		r.ReadBytes(p.Hashes[i][:])
	}
}

// MaxHeadersPerRequest bounds how many headers GetHeaders may request
// and Headers may answer with in one message (§4.8).
const MaxHeadersPerRequest = 2000

// GetBlocksPayload requests headers or block hashes starting just
// after HashStart, up to Count (or MaxHeadersPerRequest if Count is 0
// or negative).
type GetBlocksPayload struct {
	HashStart util.Uint256
	Count     int16
}

// EncodeBinary implements io.Serializable.
func (p *GetBlocksPayload) EncodeBinary(w *n3io.BinWriter) {
	w.WriteBytes(p.HashStart[:])
	w.WriteU16LE(uint16(p.Count))
}

// DecodeBinary implements io.Serializable.
func (p *GetBlocksPayload) DecodeBinary(r *n3io.BinReader) {
	r.ReadBytes(p.HashStart[:])
	p.Count = int16(r.ReadU16LE())
}

// Limit returns the effective header/hash count this payload asks
// for, clamped into [1, MaxHeadersPerRequest].
func (p *GetBlocksPayload) Limit() int {
	if p.Count <= 0 || int(p.Count) > MaxHeadersPerRequest {
		return MaxHeadersPerRequest
	}
	return int(p.Count)
}
