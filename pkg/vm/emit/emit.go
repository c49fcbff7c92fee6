// Package emit provides low-level script-construction helpers shared by
// the verification-script builders in pkg/crypto/keys and the native
// contract manifests/tests: appending individual opcodes and their
// operands to a growing script buffer.
package emit

import (
	"math/big"

	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/vm/opcode"
)

// Opcode appends a single opcode with no operand.
func Opcode(w *io.BufBinWriter, op opcode.Opcode) {
	w.WriteB(byte(op))
}

// Bytes appends a PUSHDATA instruction carrying b.
func Bytes(w *io.BufBinWriter, b []byte) {
	switch n := len(b); {
	case n < 0x100:
		Opcode(w, opcode.PUSHDATA1)
		w.WriteB(byte(n))
	case n < 0x10000:
		Opcode(w, opcode.PUSHDATA2)
		w.WriteU16LE(uint16(n))
	default:
		Opcode(w, opcode.PUSHDATA4)
		w.WriteU32LE(uint32(n))
	}
	w.WriteBytes(b)
}

// Int appends the shortest instruction that pushes n onto the stack.
func Int(w *io.BufBinWriter, n int64) {
	switch {
	case n == -1:
		Opcode(w, opcode.PUSHM1)
	case n >= 0 && n <= 16:
		Opcode(w, opcode.Opcode(byte(opcode.PUSH0)+byte(n)))
	default:
		BigInt(w, big.NewInt(n))
	}
}

// BigInt appends a PUSHINT* instruction carrying the minimal little-endian
// two's complement encoding of n.
func BigInt(w *io.BufBinWriter, n *big.Int) {
	b := toMinimalTwosComplement(n)
	switch {
	case len(b) <= 1:
		Opcode(w, opcode.PUSHINT8)
	case len(b) <= 2:
		Opcode(w, opcode.PUSHINT16)
	case len(b) <= 4:
		Opcode(w, opcode.PUSHINT32)
	case len(b) <= 8:
		Opcode(w, opcode.PUSHINT64)
	case len(b) <= 16:
		Opcode(w, opcode.PUSHINT128)
	default:
		Opcode(w, opcode.PUSHINT256)
	}
	w.WriteBytes(b)
}

// Bool appends PUSHT or PUSHF.
func Bool(w *io.BufBinWriter, b bool) {
	if b {
		Opcode(w, opcode.PUSHT)
	} else {
		Opcode(w, opcode.PUSHF)
	}
}

// String appends a PUSHDATA carrying the UTF-8 bytes of s.
func String(w *io.BufBinWriter, s string) {
	Bytes(w, []byte(s))
}

// SyscallID returns the 4-byte little-endian interop ID of a syscall name:
// the first 4 bytes of SHA-256(name).
func SyscallID(name string) uint32 {
	h := hash.Sha256([]byte(name))
	return uint32(h[0]) | uint32(h[1])<<8 | uint32(h[2])<<16 | uint32(h[3])<<24
}

// Syscall appends a SYSCALL instruction for the named host function.
func Syscall(w *io.BufBinWriter, name string) {
	Opcode(w, opcode.SYSCALL)
	w.WriteU32LE(SyscallID(name))
}

// AppCall appends a contract invocation with an empty argument list:
// push target hash, method, call flags and an empty array (NEWARRAY0),
// so System.Contract.Call pops args, flags, method and hash in that
// order, then SYSCALL System.Contract.Call.
func AppCall(w *io.BufBinWriter, target [20]byte, method string, flags byte) {
	Bytes(w, target[:])
	String(w, method)
	Int(w, int64(flags))
	Opcode(w, opcode.NEWARRAY0)
	Syscall(w, "System.Contract.Call")
}

func toMinimalTwosComplement(n *big.Int) []byte {
	if n.Sign() == 0 {
		return []byte{0}
	}
	// big.Int.Bytes() is unsigned big-endian; build two's complement
	// little-endian with a sign-extension byte when needed.
	abs := new(big.Int).Abs(n)
	be := abs.Bytes()
	le := make([]byte, len(be))
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	if n.Sign() > 0 {
		if len(le) > 0 && le[len(le)-1]&0x80 != 0 {
			le = append(le, 0)
		}
		if len(le) == 0 {
			le = []byte{0}
		}
		return le
	}
	// Two's complement negation over the little-endian magnitude.
	size := len(le)
	if size == 0 || le[size-1]&0x80 == 0 {
		// keep size
	} else {
		size++
	}
	buf := make([]byte, size)
	copy(buf, le)
	carry := 1
	for i := range buf {
		v := int(^buf[i]&0xff) + carry
		buf[i] = byte(v)
		carry = v >> 8
	}
	// -2^(8k-1) (e.g. -128) needs no sign-extension byte.
	if n := len(buf); n > 1 && buf[n-1] == 0xff && buf[n-2]&0x80 != 0 {
		buf = buf[:n-1]
	}
	return buf
}
