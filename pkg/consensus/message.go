// Package consensus implements the dBFT agreement protocol (§4.7): a
// fixed validator set drives each block through ChangeView,
// PrepareRequest, PrepareResponse and Commit rounds. The message types
// are defined in this package, tagged with the same numbering
// github.com/nspcc-dev/dbft uses; dbft itself supplies only the key
// interfaces adapted in crypto.go.
package consensus

import (
	"errors"
	"fmt"

	"github.com/n3-go/n3node/pkg/io"
)

type messageType byte

// Message type tags, matching dbft's own numbering so a recoveryMessage
// built from mixed message kinds round-trips unambiguously.
const (
	changeViewType      messageType = 0x00
	prepareRequestType  messageType = 0x20
	prepareResponseType messageType = 0x21
	commitType          messageType = 0x30
	recoveryRequestType messageType = 0x40
	recoveryMessageType messageType = 0x41
)

func (t messageType) String() string {
	switch t {
	case changeViewType:
		return "ChangeView"
	case prepareRequestType:
		return "PrepareRequest"
	case prepareResponseType:
		return "PrepareResponse"
	case commitType:
		return "Commit"
	case recoveryRequestType:
		return "RecoveryRequest"
	case recoveryMessageType:
		return "RecoveryMessage"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", byte(t))
	}
}

// message is the envelope every consensus Payload carries: a type tag,
// the view it belongs to, and the type-specific body.
type message struct {
	Type       messageType
	ViewNumber byte

	payload io.Serializable
}

// EncodeBinary implements io.Serializable.
func (m *message) EncodeBinary(w *io.BinWriter) {
	w.WriteB(byte(m.Type))
	w.WriteB(m.ViewNumber)
	m.payload.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (m *message) DecodeBinary(r *io.BinReader) {
	m.Type = messageType(r.ReadB())
	m.ViewNumber = r.ReadB()
	if r.Err != nil {
		return
	}

	switch m.Type {
	case changeViewType:
		cv := new(changeView)
		cv.newViewNumber = m.ViewNumber + 1
		m.payload = cv
	case prepareRequestType:
		m.payload = new(prepareRequest)
	case prepareResponseType:
		m.payload = new(prepareResponse)
	case commitType:
		m.payload = new(commit)
	case recoveryRequestType:
		m.payload = new(recoveryRequest)
	case recoveryMessageType:
		m.payload = new(recoveryMessage)
	default:
		r.Err = fmt.Errorf("consensus: invalid message type 0x%02x", byte(m.Type))
		return
	}
	m.payload.DecodeBinary(r)
}

// errWrongPayload is returned when a typed accessor is used against a
// message carrying the wrong payload kind.
var errWrongPayload = errors.New("consensus: message payload has unexpected type")
