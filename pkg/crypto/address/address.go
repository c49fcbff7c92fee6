// Package address converts between UInt160 script hashes and their
// Base58Check textual representation (the "N..." addresses). The version
// byte is network-wide protocol constant 0x35 for Neo N3.
package address

import (
	"errors"

	"github.com/mr-tron/base58"
	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/util"
)

// NEO3Prefix is the address version byte used by all Neo N3 networks.
const NEO3Prefix byte = 0x35

// Uint160ToString encodes u as a Base58Check address string.
func Uint160ToString(u util.Uint160) string {
	b := make([]byte, 0, 21)
	b = append(b, NEO3Prefix)
	b = append(b, u.BytesBE()...)
	b = append(b, hash.Checksum(b)...)
	return base58.Encode(b)
}

// StringToUint160 decodes a Base58Check address string into a UInt160,
// validating the checksum and version prefix.
func StringToUint160(s string) (u util.Uint160, err error) {
	b, err := base58.Decode(s)
	if err != nil {
		return u, err
	}
	if len(b) != 25 {
		return u, errors.New("address: invalid length")
	}
	if b[0] != NEO3Prefix {
		return u, errors.New("address: invalid version prefix")
	}
	want := hash.Checksum(b[:21])
	for i := range want {
		if b[21+i] != want[i] {
			return u, errors.New("address: invalid checksum")
		}
	}
	return util.Uint160DecodeBytesBE(b[1:21])
}
