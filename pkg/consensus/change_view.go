package consensus

import "github.com/n3-go/n3node/pkg/io"

// changeView is the ChangeView message body (§4.7): a validator's
// request to abandon the current view after its timer expires without
// a committed block.
type changeView struct {
	newViewNumber byte
	timestamp     uint64
}

// EncodeBinary implements io.Serializable. newViewNumber is not
// marshaled: it is always the carrying message's ViewNumber plus one,
// so DecodeBinary reconstructs it from the envelope instead.
func (c *changeView) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(c.timestamp)
}

// DecodeBinary implements io.Serializable.
func (c *changeView) DecodeBinary(r *io.BinReader) {
	c.timestamp = r.ReadU64LE()
}
