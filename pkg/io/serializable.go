// Package io provides the binary wire codec shared by the ledger, VM and
// network layers: a BinReader/BinWriter pair with a sticky error field (the
// first error encountered short-circuits every subsequent operation) and
// the variable-length integer/byte-array encoding used throughout the N3
// wire format and storage layout.
package io

// Serializable is implemented by every type that has a fixed binary wire
// representation (blocks, transactions, witnesses, signers, attributes,
// storage keys/items, …).
type Serializable interface {
	EncodeBinary(w *BinWriter)
	DecodeBinary(r *BinReader)
}
