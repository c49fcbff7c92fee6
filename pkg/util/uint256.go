package util

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Uint256Size is the length of Uint256 in bytes.
const Uint256Size = 32

// Uint256 is a 32-byte little-endian array used to represent a Hash256.
type Uint256 [Uint256Size]byte

// Uint256DecodeBytesBE converts a big-endian byte slice into a Uint256.
func Uint256DecodeBytesBE(b []byte) (u Uint256, err error) {
	if len(b) != Uint256Size {
		return u, fmt.Errorf("expected []byte of size %d got %d", Uint256Size, len(b))
	}
	copy(u[:], ToArrayReverse(b))
	return u, nil
}

// Uint256DecodeBytesLE converts a little-endian byte slice into a Uint256.
func Uint256DecodeBytesLE(b []byte) (u Uint256, err error) {
	if len(b) != Uint256Size {
		return u, fmt.Errorf("expected []byte of size %d got %d", Uint256Size, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// Uint256DecodeStringBE decodes a big-endian hex string (optionally 0x-prefixed).
func Uint256DecodeStringBE(s string) (u Uint256, err error) {
	s = trim0x(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	return Uint256DecodeBytesBE(b)
}

// BytesBE returns a big-endian byte array of u.
func (u Uint256) BytesBE() []byte {
	return ToArrayReverse(u[:])
}

// BytesLE returns a little-endian byte array of u.
func (u Uint256) BytesLE() []byte {
	b := make([]byte, Uint256Size)
	copy(b, u[:])
	return b
}

// Equals reports whether u and other hold the same value.
func (u Uint256) Equals(other Uint256) bool {
	return u == other
}

// StringBE returns the big-endian 0x-prefixed hex representation.
func (u Uint256) StringBE() string {
	return "0x" + hex.EncodeToString(u.BytesBE())
}

// String implements fmt.Stringer.
func (u Uint256) String() string {
	return u.StringBE()
}

// CompareTo compares u to other as big-endian numbers (from the last
// stored byte down, i.e. lexicographically over BytesBE).
func (u Uint256) CompareTo(other Uint256) int {
	for i := Uint256Size - 1; i >= 0; i-- {
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
func (u Uint256) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.StringBE())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (u *Uint256) UnmarshalJSON(data []byte) (err error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*u, err = Uint256DecodeStringBE(s)
	return err
}
