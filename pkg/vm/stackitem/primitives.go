package stackitem

import (
	"bytes"
	"math/big"
)

// MaxBigIntegerSizeBits bounds Integer items to the 256-bit range most VM
// contexts require (§4.2).
const MaxBigIntegerSizeBits = 256

// Integer is an arbitrary-precision (bounded) signed integer item.
type Integer struct {
	value *big.Int
}

// NewBigInteger wraps v as an Integer item.
func NewBigInteger(v *big.Int) *Integer {
	return &Integer{value: new(big.Int).Set(v)}
}

// NewInteger wraps the int64 v as an Integer item.
func NewInteger(v int64) *Integer {
	return NewBigInteger(big.NewInt(v))
}

// Type implements Item.
func (i *Integer) Type() Type { return IntegerT }

// Value implements Item.
func (i *Integer) Value() any { return i.value }

// Big returns the underlying *big.Int.
func (i *Integer) Big() *big.Int { return i.value }

// Bool implements Item: zero is falsy, anything else truthy.
func (i *Integer) Bool() bool { return i.value.Sign() != 0 }

// TryInteger implements Item.
func (i *Integer) TryInteger() (*big.Int, error) { return i.value, nil }

// TryBytes implements Item, returning the minimal little-endian two's
// complement encoding.
func (i *Integer) TryBytes() ([]byte, error) {
	return bigIntToBytes(i.value), nil
}

// Equals implements Item.
func (i *Integer) Equals(other Item) bool {
	o, ok := other.(*Integer)
	return ok && i.value.Cmp(o.value) == 0
}

// Dup implements Item: Integer is immutable, returns itself.
func (i *Integer) Dup() Item { return i }

// Boolean is the True/False item.
type Boolean bool

// NewBool wraps b.
func NewBool(b bool) Boolean { return Boolean(b) }

// Type implements Item.
func (Boolean) Type() Type { return BooleanT }

// Value implements Item.
func (b Boolean) Value() any { return bool(b) }

// Bool implements Item.
func (b Boolean) Bool() bool { return bool(b) }

// TryInteger implements Item.
func (b Boolean) TryInteger() (*big.Int, error) {
	if b {
		return big.NewInt(1), nil
	}
	return big.NewInt(0), nil
}

// TryBytes implements Item.
func (b Boolean) TryBytes() ([]byte, error) {
	if b {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

// Equals implements Item.
func (b Boolean) Equals(other Item) bool {
	o, ok := other.(Boolean)
	return ok && b == o
}

// Dup implements Item.
func (b Boolean) Dup() Item { return b }

// ByteString is an immutable byte-array item.
type ByteString []byte

// NewByteString wraps b.
func NewByteString(b []byte) ByteString {
	return ByteString(append([]byte(nil), b...))
}

// Type implements Item.
func (ByteString) Type() Type { return ByteStringT }

// Value implements Item.
func (b ByteString) Value() any { return []byte(b) }

// Bool implements Item: any non-empty, non-all-zero byte string is truthy.
func (b ByteString) Bool() bool {
	for _, c := range b {
		if c != 0 {
			return true
		}
	}
	return false
}

// TryInteger implements Item.
func (b ByteString) TryInteger() (*big.Int, error) {
	if len(b) > MaxBigIntegerSizeBits/8 {
		return nil, ErrTooBig
	}
	return bytesToBigInt(b), nil
}

// TryBytes implements Item.
func (b ByteString) TryBytes() ([]byte, error) { return []byte(b), nil }

// Equals implements Item.
func (b ByteString) Equals(other Item) bool {
	o, ok := other.(ByteString)
	return ok && bytes.Equal(b, o)
}

// Dup implements Item.
func (b ByteString) Dup() Item { return b }

// Buffer is a mutable byte-array item.
type Buffer struct {
	Bytes []byte
}

// NewBuffer wraps b in a fresh Buffer.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{Bytes: append([]byte(nil), b...)}
}

// Type implements Item.
func (*Buffer) Type() Type { return BufferT }

// Value implements Item.
func (b *Buffer) Value() any { return b.Bytes }

// Bool implements Item.
func (b *Buffer) Bool() bool {
	for _, c := range b.Bytes {
		if c != 0 {
			return true
		}
	}
	return false
}

// TryInteger implements Item.
func (b *Buffer) TryInteger() (*big.Int, error) {
	if len(b.Bytes) > MaxBigIntegerSizeBits/8 {
		return nil, ErrTooBig
	}
	return bytesToBigInt(b.Bytes), nil
}

// TryBytes implements Item.
func (b *Buffer) TryBytes() ([]byte, error) { return b.Bytes, nil }

// Equals implements Item: Buffers compare by reference only, matching
// the reference VM's object-identity rule for mutable items.
func (b *Buffer) Equals(other Item) bool {
	o, ok := other.(*Buffer)
	return ok && b == o
}

// Dup implements Item: returns a fresh Buffer with copied contents.
func (b *Buffer) Dup() Item {
	return NewBuffer(b.Bytes)
}

func bigIntToBytes(v *big.Int) []byte {
	if v.Sign() == 0 {
		return []byte{}
	}
	abs := new(big.Int).Abs(v)
	be := abs.Bytes()
	le := make([]byte, len(be))
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	if v.Sign() > 0 {
		if len(le) > 0 && le[len(le)-1]&0x80 != 0 {
			le = append(le, 0)
		}
		return le
	}
	size := len(le)
	if size > 0 && le[size-1]&0x80 == 0 {
		// fits
	} else {
		size++
	}
	buf := make([]byte, size)
	copy(buf, le)
	carry := 1
	for i := range buf {
		val := int(^buf[i]&0xff) + carry
		buf[i] = byte(val)
		carry = val >> 8
	}
	// -2^(8k-1) (e.g. -128) needs no sign-extension byte.
	if n := len(buf); n > 1 && buf[n-1] == 0xff && buf[n-2]&0x80 != 0 {
		buf = buf[:n-1]
	}
	return buf
}

func bytesToBigInt(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	be := make([]byte, len(b))
	for i, c := range b {
		be[len(b)-1-i] = c
	}
	v := new(big.Int).SetBytes(be)
	if b[len(b)-1]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(8*len(b)))
		v.Sub(v, mod)
	}
	return v
}
