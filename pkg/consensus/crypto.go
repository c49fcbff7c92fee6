package consensus

import (
	"errors"

	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/nspcc-dev/dbft"
)

// privateKey adapts this module's keys.PrivateKey to dbft's
// crypto.PrivateKey interface, the only shape the library itself needs
// in order to let a Service sign the payloads it produces.
type privateKey struct {
	*keys.PrivateKey
}

var _ dbft.PrivateKey = (*privateKey)(nil)

// Sign implements dbft.PrivateKey.
func (p *privateKey) Sign(data []byte) ([]byte, error) {
	return p.PrivateKey.Sign(data)
}

// publicKey adapts this module's keys.PublicKey to dbft's
// crypto.PublicKey interface.
type publicKey struct {
	*keys.PublicKey
}

var _ dbft.PublicKey = (*publicKey)(nil)

// MarshalBinary implements encoding.BinaryMarshaler.
func (p publicKey) MarshalBinary() ([]byte, error) {
	return p.PublicKey.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *publicKey) UnmarshalBinary(data []byte) error {
	pub, err := keys.NewPublicKeyFromBytes(data)
	if err != nil {
		return err
	}
	p.PublicKey = pub
	return nil
}

// Verify implements dbft.PublicKey. keys.PublicKey.Verify already
// hashes msg with SHA-256 internally, matching what
// keys.PrivateKey.Sign hashes over, so msg is passed through raw here.
func (p publicKey) Verify(msg, sig []byte) error {
	if p.PublicKey.Verify(sig, msg) {
		return nil
	}
	return errors.New("consensus: signature verification failed")
}
