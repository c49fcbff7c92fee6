// Package keys implements the ECDSA key pairs used to sign and verify
// witnesses. Curve arithmetic and signing/verification themselves are
// provided by the standard library and golang.org/x/crypto/sha3-adjacent
// packages; this package only shapes them into the Neo-specific encodings
// (compressed public keys, WIF, verification scripts).
package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"

	"github.com/mr-tron/base58"
	"github.com/n3-go/n3node/pkg/crypto/hash"
)

// PrivateKey is an ECDSA private key over the secp256r1 curve used for
// witness signing.
type PrivateKey struct {
	ecdsa.PrivateKey
}

// NewPrivateKey generates a new random PrivateKey.
func NewPrivateKey() (*PrivateKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{PrivateKey: *priv}, nil
}

// NewPrivateKeyFromBytes builds a PrivateKey from its raw 32-byte scalar.
func NewPrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, errors.New("keys: invalid private key length")
	}
	priv := new(ecdsa.PrivateKey)
	priv.PublicKey.Curve = elliptic.P256()
	priv.D = new(big.Int).SetBytes(b)
	priv.PublicKey.X, priv.PublicKey.Y = elliptic.P256().ScalarBaseMult(b)
	return &PrivateKey{PrivateKey: *priv}, nil
}

// PublicKey returns the PublicKey corresponding to p.
func (p *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{X: p.PrivateKey.PublicKey.X, Y: p.PrivateKey.PublicKey.Y}
}

// Sign produces an ECDSA signature over SHA-256(msg) as the fixed 64-byte
// (r || s) encoding used by the verification scripts.
func (p *PrivateKey) Sign(msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)
	r, s, err := ecdsa.Sign(rand.Reader, &p.PrivateKey, digest[:])
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 64)
	rb := r.Bytes()
	sb := s.Bytes()
	copy(sig[32-len(rb):32], rb)
	copy(sig[64-len(sb):64], sb)
	return sig, nil
}

// Bytes returns the raw 32-byte scalar.
func (p *PrivateKey) Bytes() []byte {
	b := make([]byte, 32)
	db := p.D.Bytes()
	copy(b[32-len(db):], db)
	return b
}

// WIF encodes the private key in Wallet Import Format.
func (p *PrivateKey) WIF() string {
	const version = 0x80
	buf := make([]byte, 0, 38)
	buf = append(buf, version)
	buf = append(buf, p.Bytes()...)
	buf = append(buf, 0x01) // compressed marker
	buf = append(buf, hash.Checksum(buf)...)
	return base58.Encode(buf)
}

// NewPrivateKeyFromWIF decodes a WIF-encoded private key.
func NewPrivateKeyFromWIF(wif string) (*PrivateKey, error) {
	b, err := base58.Decode(wif)
	if err != nil {
		return nil, err
	}
	if len(b) != 38 || b[0] != 0x80 || b[33] != 0x01 {
		return nil, errors.New("keys: invalid WIF")
	}
	want := hash.Checksum(b[:34])
	for i := range want {
		if b[34+i] != want[i] {
			return nil, errors.New("keys: invalid WIF checksum")
		}
	}
	return NewPrivateKeyFromBytes(b[1:33])
}
