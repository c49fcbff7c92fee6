package block

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/n3-go/n3node/pkg/core/transaction"
	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
)

// MaxTransactionsPerBlock bounds the Transactions list (§4.5).
const MaxTransactionsPerBlock = math.MaxUint16

// ErrMaxContentsPerBlock is returned when a block claims more
// transactions than MaxTransactionsPerBlock.
var ErrMaxContentsPerBlock = errors.New("block: too many transactions")

// Block is a full header plus its transaction bodies.
type Block struct {
	Header
	Transactions []*transaction.Transaction
}

// New returns a blank block of VersionInitial.
func New() *Block {
	return &Block{Header: Header{Version: VersionInitial}}
}

// ComputeMerkleRoot recomputes the Merkle root over the current
// transaction list's hashes.
func (b *Block) ComputeMerkleRoot() util.Uint256 {
	hashes := make([]util.Uint256, len(b.Transactions))
	for i, tx := range b.Transactions {
		hashes[i] = tx.Hash()
	}
	return hash.CalcMerkleRoot(hashes)
}

// RebuildMerkleRoot recomputes and stores the Merkle root.
func (b *Block) RebuildMerkleRoot() {
	b.MerkleRoot = b.ComputeMerkleRoot()
}

// EncodeBinary implements io.Serializable.
func (b *Block) EncodeBinary(bw *io.BinWriter) {
	b.Header.EncodeBinary(bw)
	bw.WriteVarUint(uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		tx.EncodeBinary(bw)
	}
}

// DecodeBinary implements io.Serializable.
func (b *Block) DecodeBinary(br *io.BinReader) {
	b.Header.DecodeBinary(br)
	n := br.ReadVarUint()
	if n > MaxTransactionsPerBlock {
		br.Err = ErrMaxContentsPerBlock
		return
	}
	txes := make([]*transaction.Transaction, n)
	for i := range txes {
		tx := &transaction.Transaction{}
		tx.DecodeBinary(br)
		if br.Err != nil {
			return
		}
		txes[i] = tx
	}
	b.Transactions = txes
}

// Trim encodes the block as just its header plus the hashes of its
// transactions. The ledger store does not use this form: Blockchain
// persists the full block encoding.
func (b *Block) Trim() ([]byte, error) {
	buf := io.NewBufBinWriter()
	b.Header.EncodeBinary(buf.BinWriter)
	buf.WriteVarUint(uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		h := tx.Hash()
		buf.WriteBytes(h[:])
	}
	if buf.Err != nil {
		return nil, buf.Err
	}
	return buf.Bytes(), nil
}

type auxBlockOut struct {
	Transactions []*transaction.Transaction `json:"tx"`
}

// MarshalJSON implements json.Marshaler by stitching the Header's object
// with the transaction list, matching the reference node's flattened
// block JSON shape.
func (b Block) MarshalJSON() ([]byte, error) {
	auxb, err := json.Marshal(auxBlockOut{Transactions: b.Transactions})
	if err != nil {
		return nil, err
	}
	baseBytes, err := json.Marshal(b.Header)
	if err != nil {
		return nil, err
	}
	if baseBytes[len(baseBytes)-1] != '}' || auxb[0] != '{' {
		return nil, errors.New("block: cannot merge header and body JSON")
	}
	baseBytes[len(baseBytes)-1] = ','
	baseBytes = append(baseBytes, auxb[1:]...)
	return baseBytes, nil
}
