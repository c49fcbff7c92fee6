// Package hash wraps the external cryptographic primitives (SHA-256,
// RIPEMD-160) used to derive the hashes that identify blocks, transactions
// and contract script hashes. The primitives themselves are treated as an
// external library per the core's scope: this package only names the
// operations and composes them the way the wire format requires.
package hash

import (
	"crypto/sha256"

	"github.com/n3-go/n3node/pkg/util"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for Hash160
)

// Sha256 computes a single SHA-256 digest of b.
func Sha256(b []byte) util.Uint256 {
	hash := sha256.Sum256(b)
	return hash
}

// DoubleSha256 computes SHA-256(SHA-256(b)), the block/transaction hash
// function used throughout the wire format.
func DoubleSha256(b []byte) util.Uint256 {
	return Sha256(Sha256(b)[:])
}

// RipeMD160 computes a RIPEMD-160 digest of b.
func RipeMD160(b []byte) (h util.Uint160) {
	hasher := ripemd160.New()
	_, _ = hasher.Write(b)
	copy(h[:], hasher.Sum(nil))
	return h
}

// Hash160 computes RIPEMD160(SHA256(b)), the script-hash function used to
// derive a verification script's UInt160 account identifier.
func Hash160(b []byte) util.Uint160 {
	return RipeMD160(Sha256(b)[:])
}

// Checksum returns the first 4 bytes of DoubleSha256(b), used both by
// Base58Check and by the P2P message framing checksum.
func Checksum(b []byte) []byte {
	h := DoubleSha256(b)
	return h[:4]
}
