package transaction

import (
	"encoding/json"
	"errors"

	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
)

// MaxTransactionSize bounds the wire-encoded size of a single
// transaction (§4.5, §3 Size Budget).
const MaxTransactionSize = 102400

// MaxScriptLength bounds the Script field.
const MaxScriptLength = MaxTransactionSize

// ErrInvalidTransaction flags a structurally invalid transaction.
var ErrInvalidTransaction = errors.New("transaction: invalid encoding")

// Transaction is the N3 transaction wire format (§3, §4.5): a
// fee-bearing, multi-signer invocation script plus the witnesses that
// authorize it.
type Transaction struct {
	Version          byte
	Nonce            uint32
	SystemFee        util.Fixed8
	NetworkFee       util.Fixed8
	ValidUntilBlock   uint32
	Signers          []Signer
	Attributes       []Attribute
	Script           []byte
	Scripts          []Witness

	size uint32
	hash util.Uint256
	hashCached bool
}

// Hash returns the transaction hash (double SHA-256 of the unsigned
// part), caching it after the first computation the way Header.Hash does.
func (t *Transaction) Hash() util.Uint256 {
	if !t.hashCached {
		buf := io.NewBufBinWriter()
		t.encodeHashableFields(buf.BinWriter)
		t.hash = hash.DoubleSha256(buf.Bytes())
		t.hashCached = true
	}
	return t.hash
}

// SignedData returns the bytes a witness signs: the transaction's
// hashable fields, unsigned (§4.3's Neo.Crypto.CheckSig contract).
func (t *Transaction) SignedData() []byte {
	buf := io.NewBufBinWriter()
	t.encodeHashableFields(buf.BinWriter)
	return buf.Bytes()
}

// Size returns the wire-encoded byte length, computed lazily and cached.
func (t *Transaction) Size() int {
	if t.size == 0 {
		buf := io.NewBufBinWriter()
		t.EncodeBinary(buf.BinWriter)
		t.size = uint32(len(buf.Bytes()))
	}
	return int(t.size)
}

// Sender returns the account of the first (fee-paying) signer.
func (t *Transaction) Sender() util.Uint160 {
	if len(t.Signers) == 0 {
		return util.Uint160{}
	}
	return t.Signers[0].Account
}

// HasSigner reports whether acc appears among the transaction's signers.
func (t *Transaction) HasSigner(acc util.Uint160) bool {
	for _, s := range t.Signers {
		if s.Account.Equals(acc) {
			return true
		}
	}
	return false
}

// HasAttribute reports whether the transaction carries an attribute of
// type typ.
func (t *Transaction) HasAttribute(typ AttrType) bool {
	for _, a := range t.Attributes {
		if a.Value.AttrType() == typ {
			return true
		}
	}
	return false
}

// AttributesByType returns every attribute value of type typ, in
// declaration order. Searches by the tag carried on the value itself
// rather than on a wrapper, the fix for the "attribute lookup via
// dynamic_cast on the wrong object" defect this model intentionally does
// not reproduce (§9).
func (t *Transaction) AttributesByType(typ AttrType) []AttrValue {
	var out []AttrValue
	for _, a := range t.Attributes {
		if a.Value.AttrType() == typ {
			out = append(out, a.Value)
		}
	}
	return out
}

// FeePerByte returns the transaction's network fee rate, the primary
// non-HighPriority mempool ranking key (§4.6).
func (t *Transaction) FeePerByte() int64 {
	size := t.Size()
	if size == 0 {
		return 0
	}
	return int64(t.NetworkFee) / int64(size)
}

func (t *Transaction) encodeHashableFields(bw *io.BinWriter) {
	bw.WriteB(t.Version)
	bw.WriteU32LE(t.Nonce)
	bw.WriteU64LE(uint64(t.SystemFee.Int64Value()))
	bw.WriteU64LE(uint64(t.NetworkFee.Int64Value()))
	bw.WriteU32LE(t.ValidUntilBlock)
	bw.WriteVarUint(uint64(len(t.Signers)))
	for i := range t.Signers {
		t.Signers[i].EncodeBinary(bw)
	}
	bw.WriteVarUint(uint64(len(t.Attributes)))
	for i := range t.Attributes {
		t.Attributes[i].EncodeBinary(bw)
	}
	bw.WriteVarBytes(t.Script)
}

// EncodeBinary implements io.Serializable.
func (t *Transaction) EncodeBinary(bw *io.BinWriter) {
	t.encodeHashableFields(bw)
	bw.WriteVarUint(uint64(len(t.Scripts)))
	for i := range t.Scripts {
		t.Scripts[i].EncodeBinary(bw)
	}
}

// DecodeBinary implements io.Serializable.
func (t *Transaction) DecodeBinary(br *io.BinReader) {
	t.Version = br.ReadB()
	t.Nonce = br.ReadU32LE()
	t.SystemFee = util.Fixed8FromInt64(int64(br.ReadU64LE()))
	t.NetworkFee = util.Fixed8FromInt64(int64(br.ReadU64LE()))
	t.ValidUntilBlock = br.ReadU32LE()

	nSigners := br.ReadVarUint()
	if br.Err == nil && nSigners == 0 {
		br.Err = errors.New("transaction: no signers")
		return
	}
	if nSigners > MaxAttributes {
		br.Err = ErrInvalidTransaction
		return
	}
	t.Signers = make([]Signer, nSigners)
	seen := make(map[util.Uint160]bool, nSigners)
	for i := range t.Signers {
		t.Signers[i].DecodeBinary(br)
		if br.Err != nil {
			return
		}
		if seen[t.Signers[i].Account] {
			br.Err = errors.New("transaction: duplicate signer")
			return
		}
		seen[t.Signers[i].Account] = true
	}

	nAttrs := br.ReadVarUint()
	if nAttrs > MaxAttributes-nSigners {
		br.Err = ErrInvalidTransaction
		return
	}
	t.Attributes = make([]Attribute, nAttrs)
	for i := range t.Attributes {
		t.Attributes[i].DecodeBinary(br)
		if br.Err != nil {
			return
		}
	}

	t.Script = br.ReadVarBytes()
	if br.Err == nil && len(t.Script) == 0 {
		br.Err = errors.New("transaction: empty script")
		return
	}

	nScripts := br.ReadVarUint()
	if br.Err == nil && nScripts != uint64(len(t.Signers)) {
		br.Err = errors.New("transaction: witness count does not match signer count")
		return
	}
	t.Scripts = make([]Witness, nScripts)
	for i := range t.Scripts {
		t.Scripts[i].DecodeBinary(br)
	}
	if br.Err == nil {
		t.hashCached = false
		t.Hash()
	}
}

type txAux struct {
	Hash            util.Uint256 `json:"hash"`
	Size            int          `json:"size"`
	Version         byte         `json:"version"`
	Nonce           uint32       `json:"nonce"`
	Sender          string       `json:"sender"`
	SysFee          string       `json:"sysfee"`
	NetFee          string       `json:"netfee"`
	ValidUntilBlock uint32       `json:"validuntilblock"`
	Signers         []Signer     `json:"signers"`
	Attributes      []Attribute  `json:"attributes"`
	Script          string       `json:"script"`
	Witnesses       []Witness    `json:"witnesses"`
}

// MarshalJSON implements json.Marshaler.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(txAux{
		Hash:            t.Hash(),
		Size:            t.Size(),
		Version:         t.Version,
		Nonce:           t.Nonce,
		Sender:          "0x" + t.Sender().StringBE(),
		SysFee:          t.SystemFee.String(),
		NetFee:          t.NetworkFee.String(),
		ValidUntilBlock: t.ValidUntilBlock,
		Signers:         t.Signers,
		Attributes:      t.Attributes,
		Script:          base64Encode(t.Script),
		Witnesses:       t.Scripts,
	})
}
