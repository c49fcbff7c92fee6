package storage

import "encoding/binary"

// AppendContractID returns prefix||key with the StorageKey layout of
// §3/§6: a little-endian i32 contract ID followed by the raw user key
// bytes. Native contracts use negative IDs; deployed contracts receive
// monotonically increasing non-negative IDs at deployment time.
func AppendContractID(id int32, key []byte) []byte {
	buf := make([]byte, 4+len(key))
	binary.LittleEndian.PutUint32(buf, uint32(id))
	copy(buf[4:], key)
	return buf
}

// SplitContractID reverses AppendContractID.
func SplitContractID(k []byte) (id int32, key []byte) {
	if len(k) < 4 {
		return 0, nil
	}
	return int32(binary.LittleEndian.Uint32(k[:4])), k[4:]
}
