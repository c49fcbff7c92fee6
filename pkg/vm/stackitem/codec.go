package stackitem

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
)

// MaxSerializedSize bounds a single Serialize call's output, matching
// the engine's own MaxItemSize guard against unbounded recursive
// structures escaping as a single buffer.
const MaxSerializedSize = 1024 * 1024

// MaxDeserializeDepth bounds Deserialize's recursion over nested
// Array/Struct/Map items, the same kind of depth guard the VM's
// invocation stack enforces against crafted input.
const MaxDeserializeDepth = 32

var (
	// ErrRecursive is returned by Serialize when a compound item is
	// reached a second time in one encoding: an item that references
	// itself (directly or transitively), which a flat binary encoding
	// cannot represent, and also one item appearing twice without a cycle.
	ErrRecursive = errors.New("stackitem: circular reference")
	// ErrTooDeep is returned by Deserialize when nesting exceeds
	// MaxDeserializeDepth.
	ErrTooDeep = errors.New("stackitem: nesting too deep")
)

// Serialize encodes item into the engine's binary stack-item format: a
// type tag byte followed by a type-specific payload, recursively for
// Array/Struct/Map (§4.2's binary codec, exposed to scripts via
// StdLib.serialize/deserialize rather than a syscall so it can be
// priced like any other library call).
func Serialize(item Item) ([]byte, error) {
	seen := make(map[Item]bool)
	var buf []byte
	if err := encodeItem(item, seen, &buf); err != nil {
		return nil, err
	}
	if len(buf) > MaxSerializedSize {
		return nil, ErrTooBig
	}
	return buf, nil
}

func encodeItem(item Item, seen map[Item]bool, buf *[]byte) error {
	switch it := item.(type) {
	case Null:
		*buf = append(*buf, byte(NullT))
	case Boolean:
		*buf = append(*buf, byte(BooleanT))
		if it {
			*buf = append(*buf, 1)
		} else {
			*buf = append(*buf, 0)
		}
	case *Integer:
		*buf = append(*buf, byte(IntegerT))
		b := it.value.Bytes()
		neg := it.value.Sign() < 0
		appendVarBytes(buf, encodeSignedBigInt(it.value, neg, b))
	case ByteString:
		*buf = append(*buf, byte(ByteStringT))
		appendVarBytes(buf, []byte(it))
	case *Buffer:
		*buf = append(*buf, byte(BufferT))
		appendVarBytes(buf, it.Bytes)
	case *Array:
		return encodeCompound(ArrayT, it.value, item, seen, buf)
	case *Struct:
		return encodeCompound(StructT, it.value, item, seen, buf)
	case *Map:
		if seen[item] {
			return ErrRecursive
		}
		seen[item] = true
		*buf = append(*buf, byte(MapT))
		appendVarUint(buf, uint64(len(it.elems)))
		for _, e := range it.elems {
			if err := encodeItem(e.Key, seen, buf); err != nil {
				return err
			}
			if err := encodeItem(e.Value, seen, buf); err != nil {
				return err
			}
		}
	default:
		return ErrInvalidConversion
	}
	return nil
}

func encodeCompound(t Type, items []Item, self Item, seen map[Item]bool, buf *[]byte) error {
	if seen[self] {
		return ErrRecursive
	}
	seen[self] = true
	*buf = append(*buf, byte(t))
	appendVarUint(buf, uint64(len(items)))
	for _, sub := range items {
		if err := encodeItem(sub, seen, buf); err != nil {
			return err
		}
	}
	return nil
}

func encodeSignedBigInt(v *big.Int, neg bool, mag []byte) []byte {
	// Two's-complement little-endian encoding, the same representation
	// NeoVM Integers use on the evaluation stack.
	if v.Sign() == 0 {
		return nil
	}
	n := len(mag)
	out := make([]byte, n+1)
	for i := 0; i < n; i++ {
		out[i] = mag[n-1-i]
	}
	if neg {
		carry := true
		for i := 0; i < len(out); i++ {
			out[i] = ^out[i]
			if carry {
				out[i]++
				if out[i] != 0 {
					carry = false
				}
			}
		}
		if out[len(out)-1]&0x80 == 0 {
			out[len(out)-1] |= 0xff
		}
	} else if out[n-1]&0x80 != 0 {
		// keep the appended zero byte so the sign bit reads positive
	} else {
		out = out[:n]
	}
	return out
}

func decodeSignedBigInt(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	neg := b[len(b)-1]&0x80 != 0
	mag := make([]byte, len(b))
	for i, c := range b {
		mag[len(b)-1-i] = c
	}
	v := new(big.Int).SetBytes(mag)
	if neg {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
		v.Sub(v, mod)
	}
	return v
}

func appendVarUint(buf *[]byte, n uint64) {
	switch {
	case n < 0xfd:
		*buf = append(*buf, byte(n))
	case n <= 0xffff:
		*buf = append(*buf, 0xfd, byte(n), byte(n>>8))
	case n <= 0xffffffff:
		*buf = append(*buf, 0xfe, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	default:
		*buf = append(*buf, 0xff)
		for i := 0; i < 8; i++ {
			*buf = append(*buf, byte(n>>(8*i)))
		}
	}
}

func appendVarBytes(buf *[]byte, b []byte) {
	appendVarUint(buf, uint64(len(b)))
	*buf = append(*buf, b...)
}

type byteCursor struct {
	b []byte
}

func (c *byteCursor) readByte() (byte, error) {
	if len(c.b) == 0 {
		return 0, errors.New("stackitem: unexpected end of data")
	}
	v := c.b[0]
	c.b = c.b[1:]
	return v, nil
}

func (c *byteCursor) readVarUint() (uint64, error) {
	first, err := c.readByte()
	if err != nil {
		return 0, err
	}
	switch first {
	case 0xfd:
		if len(c.b) < 2 {
			return 0, errors.New("stackitem: truncated varuint")
		}
		v := uint64(c.b[0]) | uint64(c.b[1])<<8
		c.b = c.b[2:]
		return v, nil
	case 0xfe:
		if len(c.b) < 4 {
			return 0, errors.New("stackitem: truncated varuint")
		}
		v := uint64(c.b[0]) | uint64(c.b[1])<<8 | uint64(c.b[2])<<16 | uint64(c.b[3])<<24
		c.b = c.b[4:]
		return v, nil
	case 0xff:
		if len(c.b) < 8 {
			return 0, errors.New("stackitem: truncated varuint")
		}
		var v uint64
		for i := 0; i < 8; i++ {
			v |= uint64(c.b[i]) << (8 * i)
		}
		c.b = c.b[8:]
		return v, nil
	default:
		return uint64(first), nil
	}
}

func (c *byteCursor) readVarBytes() ([]byte, error) {
	n, err := c.readVarUint()
	if err != nil {
		return nil, err
	}
	if uint64(len(c.b)) < n {
		return nil, errors.New("stackitem: truncated bytes")
	}
	out := c.b[:n]
	c.b = c.b[n:]
	return out, nil
}

// Deserialize parses data produced by Serialize.
func Deserialize(data []byte) (Item, error) {
	c := &byteCursor{b: data}
	item, err := decodeItem(c, 0)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func decodeItem(c *byteCursor, depth int) (Item, error) {
	if depth > MaxDeserializeDepth {
		return nil, ErrTooDeep
	}
	tag, err := c.readByte()
	if err != nil {
		return nil, err
	}
	switch Type(tag) {
	case NullT:
		return NewNull(), nil
	case BooleanT:
		b, err := c.readByte()
		if err != nil {
			return nil, err
		}
		return NewBool(b != 0), nil
	case IntegerT:
		raw, err := c.readVarBytes()
		if err != nil {
			return nil, err
		}
		return NewBigInteger(decodeSignedBigInt(raw)), nil
	case ByteStringT:
		raw, err := c.readVarBytes()
		if err != nil {
			return nil, err
		}
		return NewByteString(append([]byte(nil), raw...)), nil
	case BufferT:
		raw, err := c.readVarBytes()
		if err != nil {
			return nil, err
		}
		return NewBuffer(append([]byte(nil), raw...)), nil
	case ArrayT, StructT:
		n, err := c.readVarUint()
		if err != nil {
			return nil, err
		}
		items := make([]Item, n)
		for i := range items {
			items[i], err = decodeItem(c, depth+1)
			if err != nil {
				return nil, err
			}
		}
		if Type(tag) == ArrayT {
			return NewArray(items), nil
		}
		return NewStruct(items), nil
	case MapT:
		n, err := c.readVarUint()
		if err != nil {
			return nil, err
		}
		m := NewMap()
		for i := uint64(0); i < n; i++ {
			k, err := decodeItem(c, depth+1)
			if err != nil {
				return nil, err
			}
			v, err := decodeItem(c, depth+1)
			if err != nil {
				return nil, err
			}
			m.Set(k, v)
		}
		return m, nil
	default:
		return nil, ErrInvalidConversion
	}
}

// jsonValue is a {type, value} pair that ToJSON and FromJSON do not
// use; their mapping keeps integers as strings to dodge float64
// precision loss for 256-bit values.
type jsonValue struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value,omitempty"`
}

// ToJSON renders item using the System.Json-compatible mapping: Integer
// as a decimal string, ByteString/Buffer as base64, Array/Struct as a
// JSON array of the same mapping applied recursively, Map as an array
// of {key,value} pairs (JSON object keys must be strings, which a
// stack-item Map key need not be).
func ToJSON(item Item) ([]byte, error) {
	v, err := toJSONValue(item, 0)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func toJSONValue(item Item, depth int) (interface{}, error) {
	if depth > MaxDeserializeDepth {
		return nil, ErrTooDeep
	}
	switch it := item.(type) {
	case Null:
		return nil, nil
	case Boolean:
		return bool(it), nil
	case *Integer:
		return it.value.String(), nil
	case ByteString:
		return base64.StdEncoding.EncodeToString([]byte(it)), nil
	case *Buffer:
		return base64.StdEncoding.EncodeToString(it.Bytes), nil
	case *Array:
		out := make([]interface{}, len(it.value))
		for i, sub := range it.value {
			v, err := toJSONValue(sub, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *Struct:
		out := make([]interface{}, len(it.value))
		for i, sub := range it.value {
			v, err := toJSONValue(sub, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *Map:
		out := make([]map[string]interface{}, len(it.elems))
		for i, e := range it.elems {
			k, err := toJSONValue(e.Key, depth+1)
			if err != nil {
				return nil, err
			}
			v, err := toJSONValue(e.Value, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = map[string]interface{}{"key": k, "value": v}
		}
		return out, nil
	default:
		return nil, ErrInvalidConversion
	}
}

// FromJSON is ToJSON's inverse, reconstructing the closest matching
// stack-item shape: JSON strings decode as Integer if they parse as a
// base-10 number, otherwise as base64 ByteString.
func FromJSON(data []byte) (Item, error) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return fromJSONValue(v, 0)
}

func fromJSONValue(v interface{}, depth int) (Item, error) {
	if depth > MaxDeserializeDepth {
		return nil, ErrTooDeep
	}
	switch val := v.(type) {
	case nil:
		return NewNull(), nil
	case bool:
		return NewBool(val), nil
	case string:
		if n, ok := new(big.Int).SetString(val, 10); ok {
			return NewBigInteger(n), nil
		}
		b, err := base64.StdEncoding.DecodeString(val)
		if err != nil {
			return nil, err
		}
		return NewByteString(b), nil
	case float64:
		return NewBigInteger(big.NewInt(int64(val))), nil
	case []interface{}:
		items := make([]Item, len(val))
		for i, sub := range val {
			item, err := fromJSONValue(sub, depth+1)
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return NewArray(items), nil
	case map[string]interface{}:
		k, err := fromJSONValue(val["key"], depth+1)
		if err != nil {
			return nil, err
		}
		item, err := fromJSONValue(val["value"], depth+1)
		if err != nil {
			return nil, err
		}
		m := NewMap()
		m.Set(k, item)
		return m, nil
	default:
		return nil, ErrInvalidConversion
	}
}
