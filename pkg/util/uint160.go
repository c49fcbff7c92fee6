package util

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// Uint160Size is the size of Uint160 in bytes.
const Uint160Size = 20

// Uint160 is a 20-byte little-endian array used to represent a Hash160.
type Uint160 [Uint160Size]byte

// Uint160DecodeBytesBE returns a Uint160 from a big-endian byte slice.
func Uint160DecodeBytesBE(b []byte) (u Uint160, err error) {
	if len(b) != Uint160Size {
		return u, fmt.Errorf("expected []byte of size %d got %d", Uint160Size, len(b))
	}
	copy(u[:], ToArrayReverse(b))
	return u, nil
}

// Uint160DecodeBytesLE returns a Uint160 from a little-endian byte slice.
func Uint160DecodeBytesLE(b []byte) (u Uint160, err error) {
	if len(b) != Uint160Size {
		return u, fmt.Errorf("expected []byte of size %d got %d", Uint160Size, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// Uint160DecodeStringBE returns a Uint160 decoded from the given hex string,
// optionally prefixed with "0x", in big-endian representation.
func Uint160DecodeStringBE(s string) (u Uint160, err error) {
	s = trim0x(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	return Uint160DecodeBytesBE(b)
}

// BytesBE returns a big-endian byte array representation of u.
func (u Uint160) BytesBE() []byte {
	return ToArrayReverse(u[:])
}

// BytesLE returns a little-endian byte array representation of u.
func (u Uint160) BytesLE() []byte {
	b := make([]byte, Uint160Size)
	copy(b, u[:])
	return b
}

// Equals returns true if both Uint160 values are identical.
func (u Uint160) Equals(other Uint160) bool {
	return u == other
}

// StringBE returns a big-endian string representation prefixed with 0x.
func (u Uint160) StringBE() string {
	return "0x" + hex.EncodeToString(u.BytesBE())
}

// String implements the fmt.Stringer interface.
func (u Uint160) String() string {
	return u.StringBE()
}

// CompareTo compares u to other as big-endian numbers (from the last
// stored byte down, i.e. lexicographically over BytesBE) and returns
// -1, 0 or 1.
func (u Uint160) CompareTo(other Uint160) int {
	for i := Uint160Size - 1; i >= 0; i-- {
		if u[i] != other[i] {
			if u[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// MarshalJSON implements the json.Marshaler interface.
func (u Uint160) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.StringBE())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (u *Uint160) UnmarshalJSON(data []byte) (err error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*u, err = Uint160DecodeStringBE(s)
	return err
}

var errInvalidLength = errors.New("invalid byte length")
