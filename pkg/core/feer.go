package core

import (
	"math/big"

	"github.com/n3-go/n3node/pkg/util"
)

// Feer implements mempool.Feer directly off the chain's native
// contracts, so the mempool's fee and balance checks see exactly the
// state a block's execution would.
type Feer struct {
	bc *Blockchain
}

// NewFeer wraps bc as a mempool.Feer.
func NewFeer(bc *Blockchain) *Feer {
	return &Feer{bc: bc}
}

// FeePerByte returns the PolicyContract's current per-byte network fee.
func (f *Feer) FeePerByte() int64 {
	return f.bc.contracts.Policy.FeePerByte(f.bc.store)
}

// GetUtilityTokenBalance returns acc's GAS balance.
func (f *Feer) GetUtilityTokenBalance(acc util.Uint160) *big.Int {
	return f.bc.contracts.GAS.BalanceOf(f.bc.store, acc)
}

// BlockHeight returns the chain's current height.
func (f *Feer) BlockHeight() uint32 {
	return f.bc.CurrentHeight()
}

// IsBlocked reports whether acc is on the PolicyContract's block list.
func (f *Feer) IsBlocked(acc util.Uint160) bool {
	return f.bc.contracts.Policy.IsAccountBlocked(f.bc.store, acc)
}
