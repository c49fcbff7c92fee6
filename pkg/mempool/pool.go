// Package mempool implements the capacity-bounded, fee-priority
// transaction pool every block's candidate set is drawn from: a
// verified pool of transactions checked against the current head, and
// an unverified pool of previously-verified transactions pending
// reverification against a new head (§4.6).
package mempool

import (
	"errors"
	"math/big"
	"sort"
	"sync"

	"github.com/n3-go/n3node/pkg/core/transaction"
	"github.com/n3-go/n3node/pkg/util"
)

// ErrOOM is returned by Add when the pool is at capacity and the
// candidate does not outrank the lowest-priority verified transaction.
var ErrOOM = errors.New("mempool: full, transaction does not outrank the minimum")

// ErrDup is returned by Add for a transaction hash already known to
// either pool.
var ErrDup = errors.New("mempool: transaction already known")

// ErrConflict is returned by Add when a Conflicts attribute (in either
// direction) names a transaction that outranks the candidate.
var ErrConflict = errors.New("mempool: conflicted by a higher-or-equal-priority transaction")

// ErrLowFee is returned by Add when the transaction's fee rate is below
// PolicyContract's current FeePerByte.
var ErrLowFee = errors.New("mempool: network fee below the current fee-per-byte rate")

// ErrBlockedAccount is returned by Add when the sender is on
// PolicyContract's blocklist.
var ErrBlockedAccount = errors.New("mempool: sender account is blocked")

// ErrInsufficientFunds is returned by Add when the sender's GAS balance
// cannot cover system_fee+network_fee.
var ErrInsufficientFunds = errors.New("mempool: sender balance cannot cover system_fee+network_fee")

// RemovalReason classifies why TransactionRemoved fired (§4.6's
// observable events).
type RemovalReason int

// Reasons a transaction leaves the pool.
const (
	ReasonIncludedInBlock RemovalReason = iota
	ReasonReplaced
	ReasonExpired
	ReasonPolicyFail
	ReasonEvicted
)

func (r RemovalReason) String() string {
	switch r {
	case ReasonIncludedInBlock:
		return "IncludedInBlock"
	case ReasonReplaced:
		return "Replaced"
	case ReasonExpired:
		return "Expired"
	case ReasonPolicyFail:
		return "PolicyFail"
	case ReasonEvicted:
		return "Evicted"
	default:
		return "Unknown"
	}
}

// Feer abstracts the fee/balance/policy lookups the pool needs from the
// chain, keeping mempool testable without a full Blockchain (§4.6).
type Feer interface {
	FeePerByte() int64
	GetUtilityTokenBalance(acc util.Uint160) *big.Int
	BlockHeight() uint32
	IsBlocked(acc util.Uint160) bool
}

// Events receives pool lifecycle notifications. Both methods are
// optional to implement meaningfully — a nil Events is accepted by New,
// in which case no notifications fire.
type Events interface {
	TransactionAdded(tx *transaction.Transaction)
	TransactionRemoved(tx *transaction.Transaction, reason RemovalReason)
}

type item struct {
	tx           *transaction.Transaction
	arrival      int64
	highPriority bool
}

// less reports whether a sorts strictly ahead of b: HighPriority first,
// then FeePerByte descending, then arrival order ascending (§4.6).
func less(a, b *item) bool {
	if a.highPriority != b.highPriority {
		return a.highPriority
	}
	fa, fb := a.tx.FeePerByte(), b.tx.FeePerByte()
	if fa != fb {
		return fa > fb
	}
	return a.arrival < b.arrival
}

// Pool is the mempool's verified+unverified transaction collection.
// Every exported method is safe for concurrent use (§5's "every public
// operation is linearizable").
type Pool struct {
	mu       sync.Mutex
	capacity int
	feer     Feer
	events   Events
	seq      int64

	verified       map[util.Uint256]*item
	verifiedSorted []*item

	unverified       map[util.Uint256]*item
	unverifiedSorted []*item

	// conflicts maps a transaction hash X to the hashes of pooled
	// transactions that name X in a Conflicts attribute, so a resend of
	// X can be rejected once some other tx has claimed its eviction.
	conflicts map[util.Uint256][]util.Uint256
}

// New builds an empty pool bounded to capacity verified transactions.
// feer and events may be nil. With a non-nil feer, Add also rejects a
// blocked sender, a fee rate below feer.FeePerByte() and a sender balance
// below system_fee+network_fee; a nil feer skips those checks. Add never
// runs the full verification pipeline — that is core.Blockchain's job
// (§4.5).
func New(capacity int, feer Feer, events Events) *Pool {
	return &Pool{
		capacity:   capacity,
		feer:       feer,
		events:     events,
		verified:   make(map[util.Uint256]*item),
		unverified: make(map[util.Uint256]*item),
		conflicts:  make(map[util.Uint256][]util.Uint256),
	}
}

// Count returns the number of verified transactions currently pooled.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.verified)
}

// ContainsKey reports whether h is known to either pool.
func (p *Pool) ContainsKey(h util.Uint256) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.verified[h]; ok {
		return true
	}
	_, ok := p.unverified[h]
	return ok
}

// Add admits tx to the verified pool, applying priority-based capacity
// eviction and Conflicts-attribute eviction (§4.6, S3/S4). The caller is
// expected to have already run the transaction through the full
// verification pipeline (§4.5) — Add only arbitrates pool membership.
func (p *Pool) Add(tx *transaction.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := tx.Hash()
	if _, ok := p.verified[h]; ok {
		return ErrDup
	}
	if _, ok := p.unverified[h]; ok {
		return ErrDup
	}

	if p.feer != nil {
		sender := tx.Sender()
		if p.feer.IsBlocked(sender) {
			return ErrBlockedAccount
		}
		if tx.FeePerByte() < p.feer.FeePerByte() {
			return ErrLowFee
		}
		need := big.NewInt(int64(tx.SystemFee) + int64(tx.NetworkFee))
		if p.feer.GetUtilityTokenBalance(sender).Cmp(need) < 0 {
			return ErrInsufficientFunds
		}
	}

	it := &item{tx: tx, arrival: p.seq, highPriority: tx.HasAttribute(transaction.HighPriority)}
	p.seq++

	if blockers, ok := p.conflicts[h]; ok {
		for _, bh := range blockers {
			if b, ok2 := p.verified[bh]; ok2 && less(b, it) {
				return ErrConflict
			}
		}
	}

	var toEvict []util.Uint256
	for _, av := range tx.AttributesByType(transaction.Conflicts) {
		c, ok := av.(*transaction.ConflictsAttr)
		if !ok {
			continue
		}
		if existing, ok2 := p.verified[c.Hash]; ok2 {
			if !less(it, existing) {
				return ErrConflict
			}
			toEvict = append(toEvict, c.Hash)
		}
	}

	if len(p.verified) >= p.capacity {
		min := p.minVerifiedLocked()
		if min == nil || !less(it, min) {
			return ErrOOM
		}
		p.removeVerifiedLocked(min.tx.Hash(), ReasonEvicted)
	}

	for _, eh := range toEvict {
		p.removeVerifiedLocked(eh, ReasonEvicted)
	}

	p.insertVerifiedLocked(it)
	for _, av := range tx.AttributesByType(transaction.Conflicts) {
		if c, ok := av.(*transaction.ConflictsAttr); ok {
			p.conflicts[c.Hash] = append(p.conflicts[c.Hash], h)
		}
	}
	if p.events != nil {
		p.events.TransactionAdded(tx)
	}
	return nil
}

// Remove drops h from whichever pool holds it and fires
// TransactionRemoved with reason.
func (p *Pool) Remove(h util.Uint256, reason RemovalReason) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.verified[h]; ok {
		p.removeVerifiedLocked(h, reason)
		return
	}
	if it, ok := p.unverified[h]; ok {
		p.removeUnverifiedLocked(h)
		if p.events != nil {
			p.events.TransactionRemoved(it.tx, reason)
		}
	}
}

// GetVerifiedTransactions returns every verified transaction, highest
// priority first.
func (p *Pool) GetVerifiedTransactions() []*transaction.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*transaction.Transaction, len(p.verifiedSorted))
	for i, it := range p.verifiedSorted {
		out[i] = it.tx
	}
	return out
}

// GetSortedVerifiedTransactions returns up to count verified
// transactions, highest priority first — the set a primary speaker
// draws a candidate block from (§4.7).
func (p *Pool) GetSortedVerifiedTransactions(count int) []*transaction.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	if count > len(p.verifiedSorted) || count < 0 {
		count = len(p.verifiedSorted)
	}
	out := make([]*transaction.Transaction, count)
	for i := 0; i < count; i++ {
		out[i] = p.verifiedSorted[i].tx
	}
	return out
}

// RemoveStale drops every transaction included in the newly persisted
// block and demotes everything else from verified to unverified,
// pending ReverifyTop (§4.6's block-persistence reconciliation).
func (p *Pool) RemoveStale(included []util.Uint256) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set := make(map[util.Uint256]bool, len(included))
	for _, h := range included {
		set[h] = true
	}
	for h := range p.verified {
		if set[h] {
			p.removeVerifiedLocked(h, ReasonIncludedInBlock)
		}
	}
	for h, it := range p.verified {
		delete(p.verified, h)
		delete(p.conflicts, h)
		p.insertUnverifiedLocked(it)
	}
	p.verifiedSorted = nil
}

// ReverifyTop re-verifies up to k of the highest-priority unverified
// transactions against the current head via verify, restoring passers
// to the verified pool and discarding failures (reason PolicyFail).
// Returns how many were restored.
func (p *Pool) ReverifyTop(k int, verify func(tx *transaction.Transaction) bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := k
	if n > len(p.unverifiedSorted) {
		n = len(p.unverifiedSorted)
	}
	restored := 0
	for i := 0; i < n; i++ {
		it := p.unverifiedSorted[0]
		p.removeUnverifiedLocked(it.tx.Hash())
		if verify(it.tx) {
			p.insertVerifiedLocked(it)
			restored++
		} else if p.events != nil {
			p.events.TransactionRemoved(it.tx, ReasonPolicyFail)
		}
	}
	return restored
}

func (p *Pool) minVerifiedLocked() *item {
	if len(p.verifiedSorted) == 0 {
		return nil
	}
	return p.verifiedSorted[len(p.verifiedSorted)-1]
}

func (p *Pool) insertVerifiedLocked(it *item) {
	p.verified[it.tx.Hash()] = it
	idx := sort.Search(len(p.verifiedSorted), func(i int) bool {
		return less(it, p.verifiedSorted[i])
	})
	p.verifiedSorted = append(p.verifiedSorted, nil)
	copy(p.verifiedSorted[idx+1:], p.verifiedSorted[idx:])
	p.verifiedSorted[idx] = it
}

func (p *Pool) insertUnverifiedLocked(it *item) {
	p.unverified[it.tx.Hash()] = it
	idx := sort.Search(len(p.unverifiedSorted), func(i int) bool {
		return less(it, p.unverifiedSorted[i])
	})
	p.unverifiedSorted = append(p.unverifiedSorted, nil)
	copy(p.unverifiedSorted[idx+1:], p.unverifiedSorted[idx:])
	p.unverifiedSorted[idx] = it
}

// removeVerifiedLocked removes h from the verified pool, firing
// TransactionRemoved(reason) if events is set. The reason parameter is
// named explicitly at call sites rather than defaulted, per §4.6's
// requirement that every removal carry a cause.
func (p *Pool) removeVerifiedLocked(h util.Uint256, reason RemovalReason) {
	it, ok := p.verified[h]
	if !ok {
		return
	}
	delete(p.verified, h)
	delete(p.conflicts, h)
	for i, v := range p.verifiedSorted {
		if v == it {
			p.verifiedSorted = append(p.verifiedSorted[:i], p.verifiedSorted[i+1:]...)
			break
		}
	}
	if p.events != nil {
		p.events.TransactionRemoved(it.tx, reason)
	}
}

func (p *Pool) removeUnverifiedLocked(h util.Uint256) {
	it, ok := p.unverified[h]
	if !ok {
		return
	}
	delete(p.unverified, h)
	for i, v := range p.unverifiedSorted {
		if v == it {
			p.unverifiedSorted = append(p.unverifiedSorted[:i], p.unverifiedSorted[i+1:]...)
			break
		}
	}
}
