package native

import (
	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm/emit"
)

// nativeHash derives a native contract's fixed script hash from its ID
// and name: Hash160 of a minimal script pushing the ID then the name,
// the same deterministic derivation every node computes independently
// at genesis rather than storing (§4.6) — so two nodes agree on a
// native's address without exchanging it.
func nativeHash(id int32, name string) util.Uint160 {
	buf := io.NewBufBinWriter()
	emit.Int(buf, int64(id))
	emit.Bytes(buf, []byte(name))
	return hash.Hash160(buf.Bytes())
}
