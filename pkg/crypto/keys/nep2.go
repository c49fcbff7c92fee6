package keys

import (
	"crypto/aes"
	"errors"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/scrypt"

	"github.com/n3-go/n3node/pkg/crypto/hash"
)

// NEP-2 constants: https://github.com/neo-project/proposals/blob/master/nep-2.mediawiki
const (
	nep2Version  = 0x01
	nep2Flag     = 0xe0
	nep2ScryptN  = 16384
	nep2ScryptR  = 8
	nep2ScryptP  = 8
	nep2KeyLen   = 64
	nep2DataLen  = 39
	nep2ZeroByte = 0x42
)

var errInvalidNEP2Format = errors.New("keys: invalid NEP-2 payload")

// NEP2Encrypt encrypts priv with passphrase per NEP-2, returning the
// Base58Check-encoded ciphertext a wallet stores in place of a plaintext
// WIF so a consensus signing key is never kept at rest unencrypted.
func NEP2Encrypt(priv *PrivateKey, passphrase string) (string, error) {
	address := priv.PublicKey().Address()
	addressHash := hash.Checksum([]byte(address))

	derived, err := scrypt.Key([]byte(passphrase), addressHash, nep2ScryptN, nep2ScryptR, nep2ScryptP, nep2KeyLen)
	if err != nil {
		return "", err
	}
	derivedHalf1, derivedHalf2 := derived[:32], derived[32:]

	privBytes := priv.Bytes()
	xored := make([]byte, 32)
	for i := range xored {
		xored[i] = privBytes[i] ^ derivedHalf1[i]
	}

	block, err := aes.NewCipher(derivedHalf2)
	if err != nil {
		return "", err
	}
	encrypted := make([]byte, 32)
	block.Encrypt(encrypted[:16], xored[:16])
	block.Encrypt(encrypted[16:], xored[16:])

	buf := make([]byte, 0, nep2DataLen)
	buf = append(buf, nep2ZeroByte, nep2Version, nep2Flag)
	buf = append(buf, addressHash...)
	buf = append(buf, encrypted...)
	buf = append(buf, hash.Checksum(buf)...)
	return base58.Encode(buf), nil
}

// NEP2Decrypt recovers the PrivateKey encrypted by NEP2Encrypt, failing
// if passphrase is wrong or enc is malformed.
func NEP2Decrypt(enc, passphrase string) (*PrivateKey, error) {
	buf, err := base58.Decode(enc)
	if err != nil {
		return nil, err
	}
	if len(buf) != nep2DataLen+4 || buf[0] != nep2ZeroByte || buf[1] != nep2Version || buf[2] != nep2Flag {
		return nil, errInvalidNEP2Format
	}
	want := hash.Checksum(buf[:nep2DataLen])
	for i := range want {
		if buf[nep2DataLen+i] != want[i] {
			return nil, errInvalidNEP2Format
		}
	}

	addressHash := buf[3:7]
	encrypted := buf[7:nep2DataLen]

	derived, err := scrypt.Key([]byte(passphrase), addressHash, nep2ScryptN, nep2ScryptR, nep2ScryptP, nep2KeyLen)
	if err != nil {
		return nil, err
	}
	derivedHalf1, derivedHalf2 := derived[:32], derived[32:]

	block, err := aes.NewCipher(derivedHalf2)
	if err != nil {
		return nil, err
	}
	xored := make([]byte, 32)
	block.Decrypt(xored[:16], encrypted[:16])
	block.Decrypt(xored[16:], encrypted[16:])

	privBytes := make([]byte, 32)
	for i := range privBytes {
		privBytes[i] = xored[i] ^ derivedHalf1[i]
	}
	priv, err := NewPrivateKeyFromBytes(privBytes)
	if err != nil {
		return nil, err
	}

	gotHash := hash.Checksum([]byte(priv.PublicKey().Address()))
	if !bytesEqual(gotHash, addressHash) {
		return nil, errors.New("keys: wrong passphrase")
	}
	return priv, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
