package consensus

import (
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
)

// prepareResponse is the PrepareResponse message body (§4.7): a
// backup's agreement with a specific PrepareRequest, identified by its
// hash rather than re-sending the proposal.
type prepareResponse struct {
	preparationHash util.Uint256
}

// EncodeBinary implements io.Serializable.
func (p *prepareResponse) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(p.preparationHash[:])
}

// DecodeBinary implements io.Serializable.
func (p *prepareResponse) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(p.preparationHash[:])
}
