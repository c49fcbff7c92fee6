// Package block implements the N3 block/header data model (§4.5): a
// header carries everything needed to validate and chain a block without
// its transaction bodies; Block adds the transaction list.
package block

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/n3-go/n3node/pkg/core/transaction"
	"github.com/n3-go/n3node/pkg/crypto/address"
	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
)

// VersionInitial is the only block version N3 has defined so far.
const VersionInitial uint32 = 0

// Header holds every field of a block except its transaction bodies;
// hashing and chaining both operate on the header alone.
type Header struct {
	Version       uint32
	PrevHash      util.Uint256
	MerkleRoot    util.Uint256
	Timestamp     uint64
	Nonce         uint64
	Index         uint32
	PrimaryIndex  byte
	NextConsensus util.Uint160
	Script        transaction.Witness

	hash       util.Uint256
	hashCached bool
}

// Hash returns the block hash (SHA-256 of the hashable field set),
// cached after the first computation.
func (h *Header) Hash() util.Uint256 {
	if !h.hashCached {
		h.createHash()
	}
	return h.hash
}

func (h *Header) createHash() {
	buf := io.NewBufBinWriter()
	h.encodeHashableFields(buf.BinWriter)
	h.hash = hash.Sha256(buf.Bytes())
	h.hashCached = true
}

func (h *Header) encodeHashableFields(bw *io.BinWriter) {
	bw.WriteU32LE(h.Version)
	bw.WriteBytes(h.PrevHash[:])
	bw.WriteBytes(h.MerkleRoot[:])
	bw.WriteU64LE(h.Timestamp)
	bw.WriteU64LE(h.Nonce)
	bw.WriteU32LE(h.Index)
	bw.WriteB(h.PrimaryIndex)
	bw.WriteBytes(h.NextConsensus[:])
}

func (h *Header) decodeHashableFields(br *io.BinReader) {
	h.Version = br.ReadU32LE()
	br.ReadBytes(h.PrevHash[:])
	br.ReadBytes(h.MerkleRoot[:])
	h.Timestamp = br.ReadU64LE()
	h.Nonce = br.ReadU64LE()
	h.Index = br.ReadU32LE()
	h.PrimaryIndex = br.ReadB()
	br.ReadBytes(h.NextConsensus[:])
	if br.Err == nil {
		h.createHash()
	}
}

// EncodeBinary implements io.Serializable.
func (h *Header) EncodeBinary(bw *io.BinWriter) {
	h.encodeHashableFields(bw)
	bw.WriteVarUint(1)
	h.Script.EncodeBinary(bw)
}

// DecodeBinary implements io.Serializable.
func (h *Header) DecodeBinary(br *io.BinReader) {
	h.decodeHashableFields(br)
	n := br.ReadVarUint()
	if br.Err == nil && n != 1 {
		br.Err = errors.New("block: header must carry exactly one witness")
		return
	}
	h.Script.DecodeBinary(br)
}

type headerAux struct {
	Hash          util.Uint256          `json:"hash"`
	Version       uint32                `json:"version"`
	PrevHash      util.Uint256          `json:"previousblockhash"`
	MerkleRoot    util.Uint256          `json:"merkleroot"`
	Timestamp     uint64                `json:"time"`
	Nonce         string                `json:"nonce"`
	Index         uint32                `json:"index"`
	NextConsensus string                `json:"nextconsensus"`
	PrimaryIndex  byte                  `json:"primary"`
	Witnesses     []transaction.Witness `json:"witnesses"`
}

// MarshalJSON implements json.Marshaler.
func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal(headerAux{
		Hash:          h.Hash(),
		Version:       h.Version,
		PrevHash:      h.PrevHash,
		MerkleRoot:    h.MerkleRoot,
		Timestamp:     h.Timestamp,
		Nonce:         fmt.Sprintf("%016X", h.Nonce),
		Index:         h.Index,
		PrimaryIndex:  h.PrimaryIndex,
		NextConsensus: address.Uint160ToString(h.NextConsensus),
		Witnesses:     []transaction.Witness{h.Script},
	})
}
