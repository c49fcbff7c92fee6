package stackitem

import "math/big"

// Array is a mutable, reference-identity-compared ordered list.
type Array struct {
	value []Item
}

// NewArray wraps items in a fresh Array.
func NewArray(items []Item) *Array {
	return &Array{value: items}
}

// Type implements Item.
func (*Array) Type() Type { return ArrayT }

// Value implements Item.
func (a *Array) Value() any { return a.value }

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.value) }

// Append adds an item to the end of the array.
func (a *Array) Append(it Item) { a.value = append(a.value, it) }

// Remove deletes the element at idx, shifting later elements down.
func (a *Array) Remove(idx int) { a.value = append(a.value[:idx], a.value[idx+1:]...) }

// Bool implements Item: arrays are always truthy.
func (*Array) Bool() bool { return true }

// TryInteger implements Item.
func (*Array) TryInteger() (*big.Int, error) { return nil, ErrInvalidConversion }

// TryBytes implements Item.
func (*Array) TryBytes() ([]byte, error) { return nil, ErrInvalidConversion }

// Equals implements Item: Arrays compare by reference identity.
func (a *Array) Equals(other Item) bool {
	o, ok := other.(*Array)
	return ok && a == o
}

// Dup implements Item: Array aliases its backing storage like the
// reference VM (DUP of an array shares mutations); only Struct and Buffer
// return copies.
func (a *Array) Dup() Item { return a }

// Struct is a value-typed compound item: identity-equal only to other
// Structs of equal length and element-wise equality (§4.2).
type Struct struct {
	value []Item
}

// NewStruct wraps items in a fresh Struct.
func NewStruct(items []Item) *Struct {
	return &Struct{value: items}
}

// Type implements Item.
func (*Struct) Type() Type { return StructT }

// Value implements Item.
func (s *Struct) Value() any { return s.value }

// Len returns the number of fields.
func (s *Struct) Len() int { return len(s.value) }

// Append adds a field.
func (s *Struct) Append(it Item) { s.value = append(s.value, it) }

// Bool implements Item.
func (*Struct) Bool() bool { return true }

// TryInteger implements Item.
func (*Struct) TryInteger() (*big.Int, error) { return nil, ErrInvalidConversion }

// TryBytes implements Item.
func (*Struct) TryBytes() ([]byte, error) { return nil, ErrInvalidConversion }

// Equals implements Item: element-wise structural equality, recursing at
// most as deep as the stack items themselves recurse (no cycle guard is
// needed here because cycles are rejected by the engine's RefCounter
// before a Struct could reference itself).
func (s *Struct) Equals(other Item) bool {
	o, ok := other.(*Struct)
	if !ok || len(s.value) != len(o.value) {
		return false
	}
	for i := range s.value {
		if !s.value[i].Equals(o.value[i]) {
			return false
		}
	}
	return true
}

// Dup implements Item: returns a new Struct with a shallow-copied field
// slice (fields themselves are not deep-copied, matching the reference
// VM — nested compound fields still alias).
func (s *Struct) Dup() Item {
	cp := make([]Item, len(s.value))
	copy(cp, s.value)
	return NewStruct(cp)
}

// MapElement is a single ordered (key, value) pair of a Map.
type MapElement struct {
	Key   Item
	Value Item
}

// Map is an insertion-ordered mutable map item. Keys are restricted to
// primitive item types (Integer, Boolean, ByteString, Buffer), as in the
// reference VM.
type Map struct {
	elems []MapElement
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{}
}

// Type implements Item.
func (*Map) Type() Type { return MapT }

// Value implements Item.
func (m *Map) Value() any { return m.elems }

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.elems) }

// Index returns the position of key, or -1 if absent.
func (m *Map) Index(key Item) int {
	for i, e := range m.elems {
		if e.Key.Equals(key) {
			return i
		}
	}
	return -1
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key Item) (Item, bool) {
	i := m.Index(key)
	if i < 0 {
		return nil, false
	}
	return m.elems[i].Value, true
}

// Set inserts or updates the value for key, preserving insertion order
// on update.
func (m *Map) Set(key, value Item) {
	if i := m.Index(key); i >= 0 {
		m.elems[i].Value = value
		return
	}
	m.elems = append(m.elems, MapElement{Key: key, Value: value})
}

// Delete removes key if present.
func (m *Map) Delete(key Item) {
	if i := m.Index(key); i >= 0 {
		m.elems = append(m.elems[:i], m.elems[i+1:]...)
	}
}

// Keys returns the ordered key list.
func (m *Map) Keys() []Item {
	out := make([]Item, len(m.elems))
	for i, e := range m.elems {
		out[i] = e.Key
	}
	return out
}

// Values returns the ordered value list.
func (m *Map) Values() []Item {
	out := make([]Item, len(m.elems))
	for i, e := range m.elems {
		out[i] = e.Value
	}
	return out
}

// Bool implements Item.
func (*Map) Bool() bool { return true }

// TryInteger implements Item.
func (*Map) TryInteger() (*big.Int, error) { return nil, ErrInvalidConversion }

// TryBytes implements Item.
func (*Map) TryBytes() ([]byte, error) { return nil, ErrInvalidConversion }

// Equals implements Item: Maps compare by reference identity.
func (m *Map) Equals(other Item) bool {
	o, ok := other.(*Map)
	return ok && m == o
}

// Dup implements Item: Map aliases, matching Array's semantics.
func (m *Map) Dup() Item { return m }

// Pointer is a CALLA target: a (script, offset) pair.
type Pointer struct {
	Script []byte
	Offset int
}

// NewPointer returns a Pointer at offset into script.
func NewPointer(script []byte, offset int) *Pointer {
	return &Pointer{Script: script, Offset: offset}
}

// Type implements Item.
func (*Pointer) Type() Type { return PointerT }

// Value implements Item.
func (p *Pointer) Value() any { return p.Offset }

// Bool implements Item.
func (*Pointer) Bool() bool { return true }

// TryInteger implements Item.
func (*Pointer) TryInteger() (*big.Int, error) { return nil, ErrInvalidConversion }

// TryBytes implements Item.
func (*Pointer) TryBytes() ([]byte, error) { return nil, ErrInvalidConversion }

// Equals implements Item.
func (p *Pointer) Equals(other Item) bool {
	o, ok := other.(*Pointer)
	return ok && p == o
}

// Dup implements Item.
func (p *Pointer) Dup() Item { return p }

// Interop wraps an opaque host object (e.g. an Iterator) as a stack item.
type Interop struct {
	value any
}

// NewInterop wraps v.
func NewInterop(v any) *Interop {
	return &Interop{value: v}
}

// Type implements Item.
func (*Interop) Type() Type { return InteropT }

// Value implements Item.
func (i *Interop) Value() any { return i.value }

// Bool implements Item.
func (*Interop) Bool() bool { return true }

// TryInteger implements Item.
func (*Interop) TryInteger() (*big.Int, error) { return nil, ErrInvalidConversion }

// TryBytes implements Item.
func (*Interop) TryBytes() ([]byte, error) { return nil, ErrInvalidConversion }

// Equals implements Item.
func (i *Interop) Equals(other Item) bool {
	o, ok := other.(*Interop)
	return ok && i == o
}

// Dup implements Item.
func (i *Interop) Dup() Item { return i }
