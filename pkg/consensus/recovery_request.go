package consensus

import "github.com/n3-go/n3node/pkg/io"

// recoveryRequest is the RecoveryRequest message body (§4.7): sent by a
// validator that suspects it missed state for the current view, asking
// peers to reply with a RecoveryMessage.
type recoveryRequest struct {
	timestamp uint32
}

// EncodeBinary implements io.Serializable.
func (m *recoveryRequest) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(m.timestamp)
}

// DecodeBinary implements io.Serializable.
func (m *recoveryRequest) DecodeBinary(r *io.BinReader) {
	m.timestamp = r.ReadU32LE()
}
