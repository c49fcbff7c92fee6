// Package nef implements the on-chain container format a compiled
// contract script is deployed in: a small header identifying the
// compiler toolchain, an optional table of method tokens (calls into
// other contracts resolved at deploy time rather than by hash literal),
// the raw VM script, and a CRC32 checksum over everything preceding it.
package nef

import (
	"errors"
	"hash/crc32"

	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm"
)

// Magic is the fixed 4-byte value every well-formed NEF file starts
// with, guarding against feeding the deserializer arbitrary data.
const Magic uint32 = 0x3346454e // "NEF3" little-endian

// MaxScriptLength bounds a deployed contract's script size.
const MaxScriptLength = 512 * 1024

// MaxSourceURLLength bounds the header's free-form source-link field.
const MaxSourceURLLength = 256

var (
	errInvalidMagic    = errors.New("nef: invalid magic")
	errInvalidChecksum = errors.New("nef: invalid checksum")
	errInvalidReserved = errors.New("nef: reserved bytes must be zero")
	errEmptyScript     = errors.New("nef: empty script")
	errScriptTooLong   = errors.New("nef: script exceeds maximum length")
)

// Header is the NEF file's fixed-layout preamble.
type Header struct {
	Magic    uint32
	Compiler string
	Source   string
}

// EncodeBinary implements io.Serializable.
func (h *Header) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(h.Magic)
	writeFixedString(w, h.Compiler, 64)
	writeFixedString(w, h.Source, MaxSourceURLLength)
	w.WriteB(0) // reserved
}

// DecodeBinary implements io.Serializable.
func (h *Header) DecodeBinary(r *io.BinReader) {
	h.Magic = r.ReadU32LE()
	if h.Magic != Magic {
		r.Err = errInvalidMagic
		return
	}
	h.Compiler = readFixedString(r, 64)
	h.Source = readFixedString(r, MaxSourceURLLength)
	if r.ReadB() != 0 {
		r.Err = errInvalidReserved
	}
}

func writeFixedString(w *io.BinWriter, s string, size int) {
	b := make([]byte, size)
	copy(b, s)
	w.WriteBytes(b)
}

func readFixedString(r *io.BinReader, size int) string {
	b := make([]byte, size)
	r.ReadBytes(b)
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

// MethodToken is a reference to a method of another contract, resolved
// at deployment time and invoked with the same call-flag-escalation
// rule as an ordinary System.Contract.Call (§4.6).
type MethodToken struct {
	Hash       util.Uint160
	Method     string
	ParamCount uint16
	HasReturn  bool
	CallFlag   vm.CallFlags
}

// EncodeBinary implements io.Serializable.
func (t *MethodToken) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(t.Hash.BytesLE())
	w.WriteVarBytes([]byte(t.Method))
	w.WriteU16LE(t.ParamCount)
	w.WriteBool(t.HasReturn)
	w.WriteB(byte(t.CallFlag))
}

// DecodeBinary implements io.Serializable.
func (t *MethodToken) DecodeBinary(r *io.BinReader) {
	buf := make([]byte, util.Uint160Size)
	r.ReadBytes(buf)
	t.Hash, r.Err = util.Uint160DecodeBytesLE(buf)
	t.Method = string(r.ReadVarBytes(32))
	t.ParamCount = r.ReadU16LE()
	t.HasReturn = r.ReadBool()
	t.CallFlag = vm.CallFlags(r.ReadB())
}

// File is a fully parsed NEF container.
type File struct {
	Header   Header
	Tokens   []MethodToken
	Script   []byte
	Checksum uint32
}

// NewFile builds a File wrapping script with default header fields and
// its Checksum already set by CalculateChecksum.
func NewFile(script []byte) (*File, error) {
	if len(script) == 0 {
		return nil, errEmptyScript
	}
	if len(script) > MaxScriptLength {
		return nil, errScriptTooLong
	}
	f := &File{
		Header: Header{Magic: Magic, Compiler: "n3node"},
		Script: script,
	}
	f.Checksum = f.CalculateChecksum()
	return f, nil
}

// CalculateChecksum computes the CRC32 (IEEE) checksum over the file's
// encoding up to, and not including, the Checksum field, letting a
// reader validate the payload before trusting it.
func (f *File) CalculateChecksum() uint32 {
	cp := *f
	cp.Checksum = 0
	w := io.NewBufBinWriter()
	cp.encodeWithoutChecksum(w.BinWriter)
	return crc32.ChecksumIEEE(w.Bytes())
}

func (f *File) encodeWithoutChecksum(w *io.BinWriter) {
	f.Header.EncodeBinary(w)
	w.WriteVarUint(uint64(len(f.Tokens)))
	for i := range f.Tokens {
		f.Tokens[i].EncodeBinary(w)
	}
	w.WriteU16LE(0) // reserved
	w.WriteVarBytes(f.Script)
}

// EncodeBinary implements io.Serializable.
func (f *File) EncodeBinary(w *io.BinWriter) {
	f.encodeWithoutChecksum(w)
	w.WriteU32LE(f.Checksum)
}

// DecodeBinary implements io.Serializable.
func (f *File) DecodeBinary(r *io.BinReader) {
	f.Header.DecodeBinary(r)
	if r.Err != nil {
		return
	}
	n := r.ReadVarUint()
	f.Tokens = make([]MethodToken, n)
	for i := range f.Tokens {
		f.Tokens[i].DecodeBinary(r)
	}
	if r.ReadU16LE() != 0 {
		r.Err = errInvalidReserved
		return
	}
	f.Script = r.ReadVarBytes(MaxScriptLength)
	if len(f.Script) == 0 {
		r.Err = errEmptyScript
		return
	}
	f.Checksum = r.ReadU32LE()
	if r.Err != nil {
		return
	}
	if f.CalculateChecksum() != f.Checksum {
		r.Err = errInvalidChecksum
	}
}

// Bytes serializes f to its on-chain representation.
func (f *File) Bytes() ([]byte, error) {
	w := io.NewBufBinWriter()
	f.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

// FileFromBytes parses a NEF container, verifying its magic, reserved
// fields and checksum.
func FileFromBytes(data []byte) (File, error) {
	r := io.NewBinReaderFromBuf(data)
	f := File{}
	f.DecodeBinary(r)
	if r.Err != nil {
		return File{}, r.Err
	}
	return f, nil
}

