package consensus

import (
	"errors"

	"github.com/n3-go/n3node/pkg/core/transaction"
	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm/opcode"
)

// Payload is a single consensus network message: an envelope carrying a
// validator index, the block it concerns, and a witness authorizing it,
// the same shape the rest of the wire format signs blocks and
// transactions with (§4.5's Witness, reused here rather than inventing a
// second authorization scheme).
type Payload struct {
	message

	version        uint32
	validatorIndex uint16
	prevHash       util.Uint256
	height         uint32
	timestamp      uint32

	Witness transaction.Witness
}

// ViewNumber returns the view this payload was produced in.
func (p *Payload) ViewNumber() byte { return p.message.ViewNumber }

// SetViewNumber sets the view this payload was produced in.
func (p *Payload) SetViewNumber(v byte) { p.message.ViewNumber = v }

// Type returns the payload's message kind.
func (p *Payload) Type() messageType { return p.message.Type }

// ValidatorIndex returns the index, within the active validator set, of
// the validator that produced this payload.
func (p *Payload) ValidatorIndex() uint16 { return p.validatorIndex }

// SetValidatorIndex sets the producing validator's index.
func (p *Payload) SetValidatorIndex(i uint16) { p.validatorIndex = i }

// Height returns the block index this payload concerns.
func (p *Payload) Height() uint32 { return p.height }

// PrevHash returns the previous block's hash, binding the payload to a
// specific chain tip so a stale validator can't replay it after a
// view's prior block already landed.
func (p *Payload) PrevHash() util.Uint256 { return p.prevHash }

// GetChangeView returns the typed ChangeView payload, panicking if this
// message carries a different kind.
func (p *Payload) GetChangeView() *changeView { return p.payload.(*changeView) }

// GetPrepareRequest returns the typed PrepareRequest payload.
func (p *Payload) GetPrepareRequest() *prepareRequest { return p.payload.(*prepareRequest) }

// GetPrepareResponse returns the typed PrepareResponse payload.
func (p *Payload) GetPrepareResponse() *prepareResponse { return p.payload.(*prepareResponse) }

// GetCommit returns the typed Commit payload.
func (p *Payload) GetCommit() *commit { return p.payload.(*commit) }

// GetRecoveryMessage returns the typed RecoveryMessage payload.
func (p *Payload) GetRecoveryMessage() *recoveryMessage { return p.payload.(*recoveryMessage) }

// EncodeBinaryUnsigned writes every field but the Witness, the form
// Hash and Sign operate over.
func (p *Payload) EncodeBinaryUnsigned(w *io.BinWriter) {
	w.WriteU32LE(p.version)
	w.WriteBytes(p.prevHash[:])
	w.WriteU32LE(p.height)
	w.WriteU16LE(p.validatorIndex)
	w.WriteU32LE(p.timestamp)

	ww := io.NewBufBinWriter()
	p.message.EncodeBinary(ww.BinWriter)
	w.WriteVarBytes(ww.Bytes())
}

// DecodeBinaryUnsigned reads every field but the Witness.
func (p *Payload) DecodeBinaryUnsigned(r *io.BinReader) {
	p.version = r.ReadU32LE()
	r.ReadBytes(p.prevHash[:])
	p.height = r.ReadU32LE()
	p.validatorIndex = r.ReadU16LE()
	p.timestamp = r.ReadU32LE()

	data := r.ReadVarBytes()
	if r.Err != nil {
		return
	}
	rr := io.NewBinReaderFromBuf(data)
	p.message.DecodeBinary(rr)
	r.Err = rr.Err
}

// EncodeBinary implements io.Serializable.
func (p *Payload) EncodeBinary(w *io.BinWriter) {
	p.EncodeBinaryUnsigned(w)
	w.WriteVarUint(1)
	p.Witness.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (p *Payload) DecodeBinary(r *io.BinReader) {
	p.DecodeBinaryUnsigned(r)
	if r.Err != nil {
		return
	}
	n := r.ReadVarUint()
	if r.Err == nil && n != 1 {
		r.Err = errors.New("consensus: payload must carry exactly one witness")
		return
	}
	p.Witness.DecodeBinary(r)
}

// Hash returns the payload's signing hash: double SHA-256 of its
// unsigned encoding.
func (p *Payload) Hash() util.Uint256 {
	w := io.NewBufBinWriter()
	p.EncodeBinaryUnsigned(w.BinWriter)
	return hash.DoubleSha256(w.Bytes())
}

// Sign authorizes the payload under key, filling in its Witness.
func (p *Payload) Sign(key *keys.PrivateKey) error {
	sig, err := key.Sign(p.signedData())
	if err != nil {
		return err
	}
	buf := io.NewBufBinWriter()
	pushSignature(buf.BinWriter, sig)
	p.Witness.InvocationScript = buf.Bytes()
	p.Witness.VerificationScript = key.PublicKey().CreateSignatureRedeemScript()
	return nil
}

func (p *Payload) signedData() []byte {
	h := p.Hash()
	return h[:]
}

// VerifySignature checks the payload's Witness was produced by pub.
func (p *Payload) VerifySignature(pub *keys.PublicKey) bool {
	sig, ok := readPushedSignature(p.Witness.InvocationScript)
	if !ok {
		return false
	}
	return pub.Verify(sig, p.signedData())
}

func pushSignature(w *io.BinWriter, sig []byte) {
	w.WriteB(byte(opcode.PUSHDATA1))
	w.WriteB(byte(len(sig)))
	w.WriteBytes(sig)
}

func readPushedSignature(script []byte) ([]byte, bool) {
	if len(script) < 2 || script[0] != byte(opcode.PUSHDATA1) {
		return nil, false
	}
	n := int(script[1])
	if len(script) != 2+n {
		return nil, false
	}
	return script[2:], true
}

func newPayload(t messageType, view byte, height uint32, prevHash util.Uint256, validatorIndex uint16, body io.Serializable) *Payload {
	return &Payload{
		message:        message{Type: t, ViewNumber: view, payload: body},
		height:         height,
		prevHash:       prevHash,
		validatorIndex: validatorIndex,
	}
}
