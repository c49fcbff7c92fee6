package interop

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// NamedCurve identifies which elliptic curve Neo.Crypto.VerifyWithECDsa
// should verify against — N3 contracts may target either the chain's own
// secp256r1 account keys or secp256k1 (e.g. to validate Bitcoin-style
// signatures inside a contract).
type NamedCurve byte

// Curve values, matching the System.Crypto NamedCurve enum.
const (
	Secp256r1 NamedCurve = 22
	Secp256k1 NamedCurve = 23
)

var errUnknownCurve = errors.New("interop: unknown named curve")

// RegisterCrypto installs the Neo.Crypto.* syscalls into table.
func RegisterCrypto(table vm.InteropTable, ctx *Context) {
	reg := func(name string, flags vm.CallFlags, price int64, fn func(v *vm.VM) error) {
		table.Register(&vm.InteropFunction{Name: name, ID: sysID(name), RequiredFlags: flags, Price: price, Func: fn})
	}

	reg(NeoCryptoCheckSig, vm.CallFlagNone, 1<<15, func(v *vm.VM) error {
		pub, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		sig, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		msg := signedData(ctx)
		ok := verifySecp256r1(pub, sig, msg)
		v.Estack().Push(stackitem.NewBool(ok))
		return nil
	})

	reg(NeoCryptoCheckMultisig, vm.CallFlagNone, 0, func(v *vm.VM) error {
		pubsItem, ok := v.Estack().Pop().(*stackitem.Array)
		if !ok {
			return vm.ErrInvalidStackItem
		}
		sigsItem, ok := v.Estack().Pop().(*stackitem.Array)
		if !ok {
			return vm.ErrInvalidStackItem
		}
		pubs := pubsItem.Value().([]stackitem.Item)
		sigs := sigsItem.Value().([]stackitem.Item)
		if len(sigs) == 0 || len(sigs) > len(pubs) {
			v.Estack().Push(stackitem.NewBool(false))
			return nil
		}
		msg := signedData(ctx)
		si := 0
		for pi := 0; pi < len(pubs) && si < len(sigs); pi++ {
			pb, err := pubs[pi].TryBytes()
			if err != nil {
				return vm.ErrInvalidStackItem
			}
			sb, err := sigs[si].TryBytes()
			if err != nil {
				return vm.ErrInvalidStackItem
			}
			if verifySecp256r1(pb, sb, msg) {
				si++
			}
		}
		v.Estack().Push(stackitem.NewBool(si == len(sigs)))
		return nil
	})

	reg(NeoCryptoSha256, vm.CallFlagNone, 1<<15, func(v *vm.VM) error {
		b, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		h := hash.Sha256(b)
		v.Estack().Push(stackitem.NewByteString(h[:]))
		return nil
	})

	reg(NeoCryptoRipemd160, vm.CallFlagNone, 1<<15, func(v *vm.VM) error {
		b, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		h := hash.RipeMD160(b)
		v.Estack().Push(stackitem.NewByteString(h[:]))
		return nil
	})

	reg(NeoCryptoVerifyWithECDsa, vm.CallFlagNone, 1<<15, func(v *vm.VM) error {
		curveItem, err := v.Estack().Pop().TryInteger()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		pub, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		sig, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		msg, err := v.Estack().Pop().TryBytes()
		if err != nil {
			return vm.ErrInvalidStackItem
		}
		ok, verr := verifyWithCurve(NamedCurve(curveItem.Int64()), pub, sig, msg)
		if verr != nil {
			return verr
		}
		v.Estack().Push(stackitem.NewBool(ok))
		return nil
	})
}

// signedData returns the bytes a transaction witness signs: the
// transaction's hashable fields, unsigned. Verification triggers run
// against exactly this payload (§4.3, §4.5).
func signedData(ctx *Context) []byte {
	type hashable interface{ SignedData() []byte }
	if h, ok := ctx.Container.(hashable); ok {
		return h.SignedData()
	}
	return nil
}

func verifySecp256r1(pub, sig, msg []byte) bool {
	pk, err := keys.NewPublicKeyFromBytes(pub)
	if err != nil {
		return false
	}
	return pk.Verify(sig, msg)
}

func verifyWithCurve(curve NamedCurve, pub, sig, msg []byte) (bool, error) {
	switch curve {
	case Secp256r1:
		return verifySecp256r1(pub, sig, msg), nil
	case Secp256k1:
		return verifySecp256k1(pub, sig, msg)
	default:
		return false, errUnknownCurve
	}
}

// verifySecp256k1 checks a 64-byte r||s signature over SHA-256(msg) using
// a compressed secp256k1 public key.
func verifySecp256k1(pub, sig, msg []byte) (bool, error) {
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
}
