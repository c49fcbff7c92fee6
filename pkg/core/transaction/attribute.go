package transaction

import (
	"encoding/json"
	"errors"

	"github.com/n3-go/n3node/pkg/io"
)

// AttrType tags the wire encoding of an Attribute's payload.
type AttrType byte

// Attribute types.
const (
	HighPriority   AttrType = 0x01
	OracleResponse AttrType = 0x11
	NotValidBefore AttrType = 0x20
	Conflicts      AttrType = 0x21
)

// ErrInvalidAttribute flags an attribute with an unknown type tag or a
// malformed payload.
var ErrInvalidAttribute = errors.New("transaction: invalid attribute")

// AttrValue is implemented by each attribute payload kind.
type AttrValue interface {
	AttrType() AttrType
	EncodeBinary(bw *io.BinWriter)
	DecodeBinary(br *io.BinReader)
}

// Attribute is one entry of a transaction's Attributes list (§4.5): a
// typed, bounded-size extension to the base transaction model.
type Attribute struct {
	Value AttrValue
}

// DecodeBinary implements io.Serializable.
func (a *Attribute) DecodeBinary(br *io.BinReader) {
	t := AttrType(br.ReadB())
	if br.Err != nil {
		return
	}
	var v AttrValue
	switch t {
	case HighPriority:
		v = new(HighPriorityAttr)
	case OracleResponse:
		v = new(OracleResponseAttr)
	case NotValidBefore:
		v = new(NotValidBeforeAttr)
	case Conflicts:
		v = new(ConflictsAttr)
	default:
		br.Err = ErrInvalidAttribute
		return
	}
	v.DecodeBinary(br)
	a.Value = v
}

// EncodeBinary implements io.Serializable.
func (a *Attribute) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(a.Value.AttrType()))
	a.Value.EncodeBinary(bw)
}

// MarshalJSON implements json.Marshaler.
func (a Attribute) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Value)
}

// HighPriorityAttr marks a transaction for priority ordering in the
// mempool (§4.8); carries no payload of its own.
type HighPriorityAttr struct{}

// AttrType implements AttrValue.
func (HighPriorityAttr) AttrType() AttrType { return HighPriority }

// EncodeBinary implements AttrValue.
func (HighPriorityAttr) EncodeBinary(*io.BinWriter) {}

// DecodeBinary implements AttrValue.
func (*HighPriorityAttr) DecodeBinary(*io.BinReader) {}

// NotValidBeforeAttr rejects the transaction from the mempool/ledger
// before the given block index.
type NotValidBeforeAttr struct {
	Height uint32
}

// AttrType implements AttrValue.
func (NotValidBeforeAttr) AttrType() AttrType { return NotValidBefore }

// EncodeBinary implements AttrValue.
func (a NotValidBeforeAttr) EncodeBinary(bw *io.BinWriter) { bw.WriteU32LE(a.Height) }

// DecodeBinary implements AttrValue.
func (a *NotValidBeforeAttr) DecodeBinary(br *io.BinReader) { a.Height = br.ReadU32LE() }

// ConflictsAttr marks another transaction hash as conflicting with this
// one, letting a higher-fee transaction evict it from the mempool.
type ConflictsAttr struct {
	Hash [32]byte
}

// AttrType implements AttrValue.
func (ConflictsAttr) AttrType() AttrType { return Conflicts }

// EncodeBinary implements AttrValue.
func (a ConflictsAttr) EncodeBinary(bw *io.BinWriter) { bw.WriteBytes(a.Hash[:]) }

// DecodeBinary implements AttrValue.
func (a *ConflictsAttr) DecodeBinary(br *io.BinReader) { br.ReadBytes(a.Hash[:]) }

// OracleResponseAttr carries the response to a pending OracleContract
// request (§4.6's OracleContract).
type OracleResponseAttr struct {
	ID     uint64
	Code   byte
	Result []byte
}

// AttrType implements AttrValue.
func (OracleResponseAttr) AttrType() AttrType { return OracleResponse }

// EncodeBinary implements AttrValue.
func (a OracleResponseAttr) EncodeBinary(bw *io.BinWriter) {
	bw.WriteU64LE(a.ID)
	bw.WriteB(a.Code)
	bw.WriteVarBytes(a.Result)
}

// DecodeBinary implements AttrValue.
func (a *OracleResponseAttr) DecodeBinary(br *io.BinReader) {
	a.ID = br.ReadU64LE()
	a.Code = br.ReadB()
	a.Result = br.ReadVarBytes()
}
