package util

import "strings"

// ToArrayReverse returns a new slice holding b's bytes in reverse order.
// It's used throughout the codebase to flip between the little-endian
// wire/storage representation and the big-endian display representation
// of fixed-width hashes.
func ToArrayReverse(b []byte) []byte {
	dest := make([]byte, len(b))
	for i, j := 0, len(b)-1; j >= 0; i, j = i+1, j-1 {
		dest[i] = b[j]
	}
	return dest
}

// ArrayReverse reverses b in place and returns it.
func ArrayReverse(b []byte) []byte {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

func trim0x(s string) string {
	return strings.TrimPrefix(s, "0x")
}
