// Package stackitem implements the VM's tagged stack-item variants
// (§4.2): Integer, Boolean, Buffer, ByteString, Array, Struct, Map,
// Pointer, Interop and Null. Compound variants are reference-counted by
// the engine's RefCounter, not by the items themselves — see
// pkg/vm.RefCounter.
package stackitem

import (
	"errors"
	"math/big"
)

// Type identifies an Item's variant, matching the type byte used by the
// binary Serialize encoding and the ISTYPE/CONVERT operands.
type Type byte

// Item type tags.
const (
	AnyT        Type = 0x00
	PointerT    Type = 0x10
	BooleanT    Type = 0x20
	IntegerT    Type = 0x21
	ByteStringT Type = 0x28
	BufferT     Type = 0x30
	ArrayT      Type = 0x40
	StructT     Type = 0x41
	MapT        Type = 0x48
	InteropT    Type = 0x60
	NullT       Type = 0x00
)

// ErrInvalidConversion is returned when a value cannot be converted to
// the requested type (e.g. a Map to an Integer).
var ErrInvalidConversion = errors.New("stackitem: invalid conversion")

// ErrTooBig is returned when an item's size would exceed a configured
// size limit (MaxSerializedSize, MaxBigIntegerSizeBits, the VM's
// MaxItemSize).
var ErrTooBig = errors.New("stackitem: item exceeds maximum size")

// Item is implemented by every stack-item variant.
type Item interface {
	Type() Type
	// Value returns the item's underlying Go representation: *big.Int
	// for Integer, bool for Boolean, []byte for Buffer/ByteString,
	// []Item for Array/Struct, []MapElement for Map, nil for Null.
	Value() any
	// Bool converts the item to a Boolean per VM truthiness rules.
	Bool() bool
	// TryInteger converts the item to a big.Int if the conversion is
	// well-defined, erroring otherwise.
	TryInteger() (*big.Int, error)
	// TryBytes converts the item to its byte representation.
	TryBytes() ([]byte, error)
	// Equals reports structural (Equal, not reference) equality for
	// primitive types; compound types compare by identity except
	// Struct, which compares element-wise (see Struct.Equals).
	Equals(other Item) bool
	// Dup returns a shallow copy suitable for duplicating a compound
	// item's stack slot without aliasing its mutation (Struct and
	// Buffer only; other types are immutable or intentionally
	// reference-shared and return themselves).
	Dup() Item
}

// Null is the VM's null/nil singleton item.
type Null struct{}

// NewNull returns the (stateless) Null item.
func NewNull() Null { return Null{} }

// Type implements Item.
func (Null) Type() Type { return NullT }

// Value implements Item.
func (Null) Value() any { return nil }

// Bool implements Item: null is always falsy.
func (Null) Bool() bool { return false }

// TryInteger implements Item.
func (Null) TryInteger() (*big.Int, error) { return nil, ErrInvalidConversion }

// TryBytes implements Item.
func (Null) TryBytes() ([]byte, error) { return nil, ErrInvalidConversion }

// Equals implements Item.
func (Null) Equals(other Item) bool {
	_, ok := other.(Null)
	return ok
}

// Dup implements Item.
func (n Null) Dup() Item { return n }
