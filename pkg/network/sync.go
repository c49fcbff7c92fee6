package network

import (
	"errors"

	"github.com/n3-go/n3node/pkg/core/block"
	n3io "github.com/n3-go/n3node/pkg/io"
)

var errTooManyHeaders = errors.New("network: too many headers in payload")

// HeadersPayload answers a GetHeaders request with up to
// MaxHeadersPerRequest block headers (§4.8). A Server receiving one
// requests the listed blocks with GetData; its SyncState is not changed.
type HeadersPayload struct {
	Headers []*block.Header
}

// EncodeBinary implements io.Serializable.
func (p *HeadersPayload) EncodeBinary(w *n3io.BinWriter) {
	w.WriteVarUint(uint64(len(p.Headers)))
	for _, h := range p.Headers {
		h.EncodeBinary(w)
	}
}

// DecodeBinary implements io.Serializable.
func (p *HeadersPayload) DecodeBinary(r *n3io.BinReader) {
	n := r.ReadVarUint()
	if n > MaxHeadersPerRequest {
		r.Err = errTooManyHeaders
		return
	}
	p.Headers = make([]*block.Header, n)
	for i := range p.Headers {
		h := &block.Header{}
		h.DecodeBinary(r)
		if r.Err != nil {
			return
		}
		p.Headers[i] = h
	}
}
