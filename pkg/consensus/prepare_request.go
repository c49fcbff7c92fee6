package consensus

import (
	"errors"

	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
)

// errTooManyTransactionHashes flags a PrepareRequest claiming more
// hashes than a block could ever carry.
var errTooManyTransactionHashes = errors.New("consensus: too many transaction hashes in prepare request")

// MaxTransactionsPerRequest bounds the hash list a PrepareRequest may
// carry, mirroring block.MaxTransactionsPerBlock without importing the
// block package for a single constant.
const MaxTransactionsPerRequest = 1<<16 - 1

// prepareRequest is the PrepareRequest message body (§4.7): the
// primary's proposed block, identified by timestamp, nonce, the
// transaction hashes it selected (from the mempool's verified pool) and
// the account the next block's witness must satisfy.
type prepareRequest struct {
	timestamp         uint32
	nonce             uint64
	transactionHashes []util.Uint256
	nextConsensus     util.Uint160
}

// EncodeBinary implements io.Serializable.
func (p *prepareRequest) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(p.timestamp)
	w.WriteU64LE(p.nonce)
	w.WriteBytes(p.nextConsensus[:])
	w.WriteVarUint(uint64(len(p.transactionHashes)))
	for _, h := range p.transactionHashes {
		w.WriteBytes(h[:])
	}
}

// DecodeBinary implements io.Serializable.
func (p *prepareRequest) DecodeBinary(r *io.BinReader) {
	p.timestamp = r.ReadU32LE()
	p.nonce = r.ReadU64LE()
	r.ReadBytes(p.nextConsensus[:])
	n := r.ReadVarUint()
	if r.Err == nil && n > MaxTransactionsPerRequest {
		r.Err = errTooManyTransactionHashes
		return
	}
	p.transactionHashes = make([]util.Uint256, n)
	for i := range p.transactionHashes {
		r.ReadBytes(p.transactionHashes[i][:])
	}
}
