// Package network implements the N3 peer-to-peer protocol (§4.8):
// framed TCP messages, a version/verack handshake, inventory-driven
// relay of transactions/blocks, and header/block chain synchronization
// against a set of persistently connected peers.
package network

import (
	"bytes"
	"errors"
	"io"

	"github.com/pierrec/lz4"

	n3io "github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/crypto/hash"
)

// CommandType identifies a message's payload kind.
type CommandType byte

// Every command this node sends or understands (§4.8).
const (
	CMDVersion     CommandType = 0x00
	CMDVerack      CommandType = 0x01
	CMDGetAddr     CommandType = 0x10
	CMDAddr        CommandType = 0x11
	CMDPing        CommandType = 0x18
	CMDPong        CommandType = 0x19
	CMDGetHeaders  CommandType = 0x20
	CMDHeaders     CommandType = 0x21
	CMDGetBlocks   CommandType = 0x24
	CMDMempool     CommandType = 0x25
	CMDInv         CommandType = 0x27
	CMDGetData     CommandType = 0x28
	CMDNotFound    CommandType = 0x2a
	CMDTransaction CommandType = 0x2b
	CMDBlock       CommandType = 0x2c
	CMDExtensible  CommandType = 0x2e
	CMDReject      CommandType = 0x2f
	CMDFilterLoad  CommandType = 0x30
	CMDFilterAdd   CommandType = 0x31
	CMDFilterClear CommandType = 0x32
)

// PayloadMaxSize bounds a single message's uncompressed payload
// (§4.8), guarding a peer from forcing an unbounded allocation via a
// large length prefix.
const PayloadMaxSize = 0x02000000

// ErrPayloadTooLarge is returned when a decoded message claims a
// payload longer than PayloadMaxSize.
var ErrPayloadTooLarge = errors.New("network: payload exceeds PayloadMaxSize")

// ErrChecksumMismatch is returned when a decoded payload's checksum
// does not match its header.
var ErrChecksumMismatch = errors.New("network: checksum mismatch")

// compressionThreshold is the smallest uncompressed payload size this
// node bothers running through lz4 before sending: small payloads (a
// handshake, an Inv for one hash) compress worse than they transmit raw.
const compressionThreshold = 128

// Message is one framed wire message: magic, command, an optional lz4
// compression flag, and the payload (§4.8's message header layout).
type Message struct {
	Magic      uint32
	Command    CommandType
	Compressed bool
	Payload    []byte
}

// NewMessage builds a Message, compressing payload with lz4 when it's
// large enough for that to pay off.
func NewMessage(magic uint32, cmd CommandType, payload []byte) *Message {
	m := &Message{Magic: magic, Command: cmd, Payload: payload}
	if len(payload) >= compressionThreshold {
		if compressed, ok := compress(payload); ok {
			m.Payload = compressed
			m.Compressed = true
		}
	}
	return m
}

func compress(b []byte) ([]byte, bool) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		return nil, false
	}
	if err := zw.Close(); err != nil {
		return nil, false
	}
	if buf.Len() >= len(b) {
		return nil, false
	}
	return buf.Bytes(), true
}

func decompress(b []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(b))
	return io.ReadAll(zr)
}

// RawPayload returns the message's payload, transparently decompressing
// it when Compressed is set.
func (m *Message) RawPayload() ([]byte, error) {
	if !m.Compressed {
		return m.Payload, nil
	}
	return decompress(m.Payload)
}

// Encode writes the full wire frame: magic, command, compression flag,
// payload length, checksum, payload (§4.8).
func (m *Message) Encode(w *n3io.BinWriter) {
	w.WriteU32LE(m.Magic)
	w.WriteB(byte(m.Command))
	w.WriteBool(m.Compressed)
	w.WriteU32LE(uint32(len(m.Payload)))
	w.WriteBytes(checksum(m.Payload))
	w.WriteBytes(m.Payload)
}

// Decode reads a full wire frame, validating the payload length bound
// and checksum before returning.
func (m *Message) Decode(r *n3io.BinReader) {
	m.Magic = r.ReadU32LE()
	m.Command = CommandType(r.ReadB())
	m.Compressed = r.ReadBool()
	length := r.ReadU32LE()
	if r.Err != nil {
		return
	}
	if length > PayloadMaxSize {
		r.Err = ErrPayloadTooLarge
		return
	}
	var sum [4]byte
	r.ReadBytes(sum[:])
	m.Payload = make([]byte, length)
	r.ReadBytes(m.Payload)
	if r.Err != nil {
		return
	}
	if !bytes.Equal(sum[:], checksum(m.Payload)) {
		r.Err = ErrChecksumMismatch
	}
}

// checksum is the first 4 bytes of double-SHA256(payload) (§4.8).
func checksum(payload []byte) []byte {
	return hash.Checksum(payload)
}
