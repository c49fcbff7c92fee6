package native

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
	"github.com/twmb/murmur3"
)

var errUnknownNamedCurve = errors.New("native: unknown named curve")

// NamedCurve mirrors the Neo.Crypto syscall's curve selector (§4.3),
// duplicated here so CryptoLib's verifyWithECDsa can dispatch the same
// way without importing pkg/core/interop's syscall table.
type NamedCurve byte

// Curve values.
const (
	CurveSecp256r1 NamedCurve = 22
	CurveSecp256k1 NamedCurve = 23
)

// CryptoLib is the native contract exposing hashing and signature
// verification primitives to scripts without the per-opcode cost of
// hand-rolling them in NeoVM bytecode (§4.6).
type CryptoLib struct {
	md *ContractMD
}

// NewCryptoLib builds the CryptoLib native contract.
func NewCryptoLib() *CryptoLib {
	c := &CryptoLib{md: NewContractMD(IDCryptoLib, NameCryptoLib)}
	md := c.md
	md.Register(&Method{Name: "sha256", RequiredFlags: vm.CallFlagNone, Price: 1 << 15, Func: c.sha256})
	md.Register(&Method{Name: "ripemd160", RequiredFlags: vm.CallFlagNone, Price: 1 << 15, Func: c.ripemd160})
	md.Register(&Method{Name: "murmur32", RequiredFlags: vm.CallFlagNone, Price: 1 << 13, Func: c.murmur32})
	md.Register(&Method{Name: "verifyWithECDsa", RequiredFlags: vm.CallFlagNone, Price: 1 << 15, Func: c.verifyWithECDsa})
	return c
}

// Metadata implements Contract.
func (c *CryptoLib) Metadata() *ContractMD { return c.md }

// OnPersist implements Contract.
func (c *CryptoLib) OnPersist(ic *interop.Context) error { return nil }

// PostPersist implements Contract.
func (c *CryptoLib) PostPersist(ic *interop.Context) error { return nil }

func (c *CryptoLib) sha256(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	b, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256(b)
	return stackitem.NewByteString(sum[:])
}

func (c *CryptoLib) ripemd160(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	b, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	sum := hash.RipeMD160(b)
	return stackitem.NewByteString(sum[:])
}

func (c *CryptoLib) murmur32(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	b, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	seed, err := argBigInt(args, 1)
	if err != nil {
		panic(err)
	}
	sum := murmur3.SeedSum32(uint32(seed.Uint64()), b)
	out := []byte{byte(sum), byte(sum >> 8), byte(sum >> 16), byte(sum >> 24)}
	return stackitem.NewByteString(out)
}

func (c *CryptoLib) verifyWithECDsa(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	msg, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	pub, err := argBytes(args, 1)
	if err != nil {
		panic(err)
	}
	sig, err := argBytes(args, 2)
	if err != nil {
		panic(err)
	}
	curve := NamedCurve(mustBigInt(args, 3).Int64())
	ok, err := verifyWithNamedCurve(curve, pub, sig, msg)
	if err != nil {
		return stackitem.NewBool(false)
	}
	return stackitem.NewBool(ok)
}

// verifyWithNamedCurve validates a raw (r||s) signature over msg for
// pub under the selected curve, the shared logic Neo.Crypto.VerifyWithECDsa
// and CryptoLib.verifyWithECDsa both need (§4.3).
func verifyWithNamedCurve(curve NamedCurve, pub, sig, msg []byte) (bool, error) {
	switch curve {
	case CurveSecp256r1:
		pk, err := keys.NewPublicKeyFromBytes(pub)
		if err != nil {
			return false, err
		}
		return pk.Verify(sig, msg), nil
	case CurveSecp256k1:
		if len(sig) != 64 {
			return false, nil
		}
		pk, err := secp256k1.ParsePubKey(pub)
		if err != nil {
			return false, nil
		}
		digest := sha256.Sum256(msg)
		r := new(big.Int).SetBytes(sig[:32])
		s := new(big.Int).SetBytes(sig[32:])
		return ecdsa.Verify(pk.ToECDSA(), digest[:], r, s), nil
	default:
		return false, errUnknownNamedCurve
	}
}
