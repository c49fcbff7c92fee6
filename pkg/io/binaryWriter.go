package io

import (
	"bytes"
	"encoding/binary"
	"io"
)

// BinWriter wraps an io.Writer with the same sticky-error behaviour as
// BinReader: once Err is set, subsequent Write* calls do nothing.
type BinWriter struct {
	W   io.Writer
	Err error
}

// NewBinWriterFromIO creates a BinWriter around the given io.Writer.
func NewBinWriterFromIO(iow io.Writer) *BinWriter {
	return &BinWriter{W: iow}
}

// WriteB writes a single byte.
func (w *BinWriter) WriteB(b byte) {
	w.WriteBytes([]byte{b})
}

// WriteBool writes a bool as a single byte (0 or 1).
func (w *BinWriter) WriteBool(b bool) {
	if b {
		w.WriteB(1)
	} else {
		w.WriteB(0)
	}
}

// WriteU16LE writes v little-endian.
func (w *BinWriter) WriteU16LE(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.WriteBytes(b[:])
}

// WriteU32LE writes v little-endian.
func (w *BinWriter) WriteU32LE(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.WriteBytes(b[:])
}

// WriteU64LE writes v little-endian.
func (w *BinWriter) WriteU64LE(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.WriteBytes(b[:])
}

// WriteI64LE writes v little-endian.
func (w *BinWriter) WriteI64LE(v int64) {
	w.WriteU64LE(uint64(v))
}

// WriteBytes writes the raw bytes of b with no length prefix.
func (w *BinWriter) WriteBytes(b []byte) {
	if w.Err != nil {
		return
	}
	_, w.Err = w.W.Write(b)
}

// WriteVarUint writes val using the shortest valid VarInt encoding.
func (w *BinWriter) WriteVarUint(val uint64) {
	if w.Err != nil {
		return
	}
	switch {
	case val < 0xfd:
		w.WriteB(byte(val))
	case val <= 0xffff:
		w.WriteB(0xfd)
		w.WriteU16LE(uint16(val))
	case val <= 0xffffffff:
		w.WriteB(0xfe)
		w.WriteU32LE(uint32(val))
	default:
		w.WriteB(0xff)
		w.WriteU64LE(val)
	}
}

// WriteVarBytes writes b prefixed with its VarUint length.
func (w *BinWriter) WriteVarBytes(b []byte) {
	w.WriteVarUint(uint64(len(b)))
	w.WriteBytes(b)
}

// WriteString writes s as VarUint-prefixed UTF-8 bytes.
func (w *BinWriter) WriteString(s string) {
	w.WriteVarBytes([]byte(s))
}

// WriteArray encodes a VarUint length prefix followed by each element's
// binary form.
func WriteArray[T Serializable](w *BinWriter, arr []T) {
	w.WriteVarUint(uint64(len(arr)))
	for _, el := range arr {
		el.EncodeBinary(w)
		if w.Err != nil {
			return
		}
	}
}

// BufBinWriter is a BinWriter backed by an in-memory buffer.
type BufBinWriter struct {
	*BinWriter
	buf *bytes.Buffer
}

// NewBufBinWriter creates a BufBinWriter ready for use.
func NewBufBinWriter() *BufBinWriter {
	b := new(bytes.Buffer)
	return &BufBinWriter{BinWriter: NewBinWriterFromIO(b), buf: b}
}

// Bytes returns the buffer's contents. Panics if the writer is in an error
// state, matching the teacher's fail-fast discipline for codec bugs.
func (w *BufBinWriter) Bytes() []byte {
	if w.Err != nil {
		panic(w.Err)
	}
	b := w.buf.Bytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Reset clears the buffer and any error so the writer can be reused.
func (w *BufBinWriter) Reset() {
	w.Err = nil
	w.buf.Reset()
}

// Len returns the number of bytes written so far.
func (w *BufBinWriter) Len() int {
	return w.buf.Len()
}

// GetVarSize returns the number of bytes the VarUint encoding of n occupies.
func GetVarSize(n int) int {
	switch {
	case n < 0xfd:
		return 1
	case n <= 0xffff:
		return 3
	case n <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// ToByteArray serializes a Serializable to its binary representation.
func ToByteArray(s Serializable) []byte {
	buf := NewBufBinWriter()
	s.EncodeBinary(buf.BinWriter)
	return buf.Bytes()
}

// FromByteArray decodes a Serializable from raw binary bytes.
func FromByteArray(s Serializable, b []byte) error {
	r := NewBinReaderFromBuf(b)
	s.DecodeBinary(r)
	return r.Err
}
