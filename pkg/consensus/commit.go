package consensus

import "github.com/n3-go/n3node/pkg/io"

// signatureSize is the raw r||s ECDSA signature length used throughout
// this package, matching keys.PrivateKey.Sign's output.
const signatureSize = 64

// commit is the Commit message body (§4.7): a validator's signature
// over the agreed block header, the payload that, once M of them are
// seen for the same (height, view), finalizes the block.
type commit struct {
	signature [signatureSize]byte
}

// EncodeBinary implements io.Serializable.
func (c *commit) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(c.signature[:])
}

// DecodeBinary implements io.Serializable.
func (c *commit) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(c.signature[:])
}
