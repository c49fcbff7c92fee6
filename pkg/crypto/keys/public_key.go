package keys

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"errors"
	"math/big"
	"sort"

	"github.com/n3-go/n3node/pkg/crypto/address"
	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm/emit"
)

func ellipticCurve() elliptic.Curve { return elliptic.P256() }

func ellipticP256Params() *elliptic.CurveParams { return elliptic.P256().Params() }

// PublicKey is an ECDSA public key over secp256r1, (de)serialized in its
// 33-byte compressed point encoding per the N3 wire format.
type PublicKey struct {
	X, Y *big.Int
}

// Bytes returns the 33-byte compressed encoding of the key.
func (p *PublicKey) Bytes() []byte {
	if p.X == nil || p.Y == nil {
		return []byte{0x00}
	}
	b := make([]byte, 33)
	if p.Y.Bit(0) == 0 {
		b[0] = 0x02
	} else {
		b[0] = 0x03
	}
	xb := p.X.Bytes()
	copy(b[33-len(xb):], xb)
	return b
}

// NewPublicKeyFromBytes decodes a compressed (33-byte) or uncompressed
// (65-byte) public key.
func NewPublicKeyFromBytes(b []byte) (*PublicKey, error) {
	switch {
	case len(b) == 1 && b[0] == 0x00:
		return &PublicKey{}, nil
	case len(b) == 33 && (b[0] == 0x02 || b[0] == 0x03):
		return decompress(b)
	case len(b) == 65 && b[0] == 0x04:
		x := new(big.Int).SetBytes(b[1:33])
		y := new(big.Int).SetBytes(b[33:65])
		return &PublicKey{X: x, Y: y}, nil
	default:
		return nil, errors.New("keys: invalid public key encoding")
	}
}

func decompress(b []byte) (*PublicKey, error) {
	curve := ellipticP256Params()
	x := new(big.Int).SetBytes(b[1:])

	ySq := new(big.Int).Exp(x, big.NewInt(3), curve.P)
	threeX := new(big.Int).Mul(x, big.NewInt(3))
	ySq.Sub(ySq, threeX)
	ySq.Add(ySq, curve.B)
	ySq.Mod(ySq, curve.P)

	y := new(big.Int).ModSqrt(ySq, curve.P)
	if y == nil {
		return nil, errors.New("keys: point is not on the curve")
	}
	if (y.Bit(0) == 0) != (b[0] == 0x02) {
		y.Sub(curve.P, y)
	}
	return &PublicKey{X: x, Y: y}, nil
}

// GetScriptHash returns the UInt160 Hash160 of the key's verification
// script (see CreateSignatureRedeemScript).
func (p *PublicKey) GetScriptHash() util.Uint160 {
	return hash.Hash160(p.CreateSignatureRedeemScript())
}

// Address returns the Base58Check address of the key's script hash.
func (p *PublicKey) Address() string {
	return address.Uint160ToString(p.GetScriptHash())
}

// Verify checks an ECDSA signature (64-byte r||s encoding) over
// SHA-256(msg).
func (p *PublicKey) Verify(signature, msg []byte) bool {
	if len(signature) != 64 {
		return false
	}
	digest := sha256.Sum256(msg)
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])
	pub := &ecdsa.PublicKey{Curve: ellipticCurve(), X: p.X, Y: p.Y}
	return ecdsa.Verify(pub, digest[:], r, s)
}

// CreateSignatureRedeemScript builds the single-signature verification
// script: PUSH(pubkey) SYSCALL(System.Crypto.CheckSig).
func (p *PublicKey) CreateSignatureRedeemScript() []byte {
	buf := io.NewBufBinWriter()
	emit.Bytes(buf, p.Bytes())
	emit.Syscall(buf, "System.Crypto.CheckSig")
	return buf.Bytes()
}

// PublicKeys is a list of public keys, sortable by their compressed byte
// encoding — the canonical order multi-sig scripts and committee listings
// use.
type PublicKeys []*PublicKey

func (keys PublicKeys) Len() int      { return len(keys) }
func (keys PublicKeys) Swap(i, j int) { keys[i], keys[j] = keys[j], keys[i] }
func (keys PublicKeys) Less(i, j int) bool {
	return bytes.Compare(keys[i].Bytes(), keys[j].Bytes()) < 0
}

// Sort orders the key set in its canonical byte order, in place.
func (keys PublicKeys) Sort() {
	sort.Sort(keys)
}

// CreateMultisigRedeemScript builds an m-of-n multisig verification
// script out of the (unsorted) key set, sorting it first as required by
// the canonical encoding.
func CreateMultisigRedeemScript(m int, keys PublicKeys) ([]byte, error) {
	if m <= 0 || m > len(keys) || len(keys) > 1024 {
		return nil, errors.New("keys: invalid m-of-n multisig parameters")
	}
	sorted := make(PublicKeys, len(keys))
	copy(sorted, keys)
	sorted.Sort()

	buf := io.NewBufBinWriter()
	emit.Int(buf, int64(m))
	for _, k := range sorted {
		emit.Bytes(buf, k.Bytes())
	}
	emit.Int(buf, int64(len(sorted)))
	emit.Syscall(buf, "System.Crypto.CheckMultisig")
	return buf.Bytes(), nil
}

// GetVerificationScriptHash returns the Hash160 of a multisig script
// built from m and keys.
func GetVerificationScriptHash(m int, keys PublicKeys) (util.Uint160, error) {
	script, err := CreateMultisigRedeemScript(m, keys)
	if err != nil {
		return util.Uint160{}, err
	}
	return hash.Hash160(script), nil
}
