package native

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// NeoTokenDecimals matches the original NEO asset: an indivisible unit.
const NeoTokenDecimals = 0

// NeoTotalSupply is the fixed NEO issuance, minted once to the
// committee-controlled account at genesis and never inflated again.
var NeoTotalSupply = big.NewInt(100_000_000)

const (
	neoPrefixCandidate  = byte(0x21)
	neoPrefixVote       = byte(0x22) // per-account vote target, keyed by account
	neoPrefixGasPerVote = byte(0x23)
)

// candidateState is the registered-candidate record: its vote tally and
// whether registration is still active (unregistering deletes an entry
// with no votes and otherwise keeps it, votes intact, marked
// unregistered).
type candidateState struct {
	Registered bool
	Votes      *big.Int
}

// NeoToken is the NEO governance token native contract (§4.6): a
// NEP-17 asset whose holders vote for validator candidates.
type NeoToken struct {
	md *ContractMD

	committeeSize   int
	validatorsCount int
}

// NewNeoToken builds the NeoToken native contract and registers its
// method table, mirroring the fixed dispatch tables neo-go's natives
// use instead of manifest-derived ABIs.
func NewNeoToken(committeeSize, validatorsCount int) *NeoToken {
	n := &NeoToken{
		md:              NewContractMD(IDNeoToken, NameNeoToken),
		committeeSize:   committeeSize,
		validatorsCount: validatorsCount,
	}
	md := n.md
	md.Register(&Method{Name: "symbol", RequiredFlags: vm.CallFlagNone, Price: 1 << 15, Func: n.symbol})
	md.Register(&Method{Name: "decimals", RequiredFlags: vm.CallFlagNone, Price: 1 << 15, Func: n.decimals})
	md.Register(&Method{Name: "totalSupply", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: n.totalSupply})
	md.Register(&Method{Name: "balanceOf", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: n.balanceOf})
	md.Register(&Method{Name: "transfer", RequiredFlags: vm.CallFlagStates | vm.CallFlagAllowNotify, Price: 1 << 17, Func: n.transfer})
	md.Register(&Method{Name: "registerCandidate", RequiredFlags: vm.CallFlagStates, Price: 0, Func: n.registerCandidate})
	md.Register(&Method{Name: "unregisterCandidate", RequiredFlags: vm.CallFlagStates, Price: 1 << 16, Func: n.unregisterCandidate})
	md.Register(&Method{Name: "vote", RequiredFlags: vm.CallFlagStates, Price: 1 << 16, Func: n.vote})
	md.Register(&Method{Name: "getCandidates", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 16, Func: n.getCandidates})
	md.Register(&Method{Name: "getCommittee", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 16, Func: n.getCommittee})
	md.Register(&Method{Name: "getNextBlockValidators", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 16, Func: n.getNextBlockValidators})
	md.Register(&Method{Name: "getGasPerBlock", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: n.getGasPerBlock})
	md.Register(&Method{Name: "unclaimedGas", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 17, Func: n.unclaimedGas})
	return n
}

// Metadata implements Contract.
func (n *NeoToken) Metadata() *ContractMD { return n.md }

func (n *NeoToken) symbol(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	return stackitem.NewByteString([]byte("NEO"))
}

func (n *NeoToken) decimals(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	return stackitem.NewInteger(NeoTokenDecimals)
}

func (n *NeoToken) totalSupply(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	return stackitem.NewBigInteger(nep17TotalSupply(ic, IDNeoToken))
}

func (n *NeoToken) balanceOf(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	acc := mustUint160(args, 0)
	return stackitem.NewBigInteger(nep17Balance(ic, IDNeoToken, acc))
}

func (n *NeoToken) transfer(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	from := mustUint160(args, 0)
	to := mustUint160(args, 1)
	amount := mustBigInt(args, 2)
	err := nep17Transfer(ic, IDNeoToken, n.md.Hash, from, to, amount)
	return stackitem.NewBool(err == nil)
}

// OnPersist mints the fixed total supply to the committee account the
// very first time NeoToken ever persists a block (genesis), matching
// how the real network seeds initial NEO ownership without a separate
// bootstrap transaction.
func (n *NeoToken) OnPersist(ic *interop.Context) error {
	if ic.Ledger.CurrentHeight() != 0 {
		return nil
	}
	ts := nep17TotalSupply(ic, IDNeoToken)
	if ts.Sign() != 0 {
		return nil
	}
	committee, err := n.computeCommitteeHash(ic)
	if err != nil {
		return err
	}
	nep17Mint(ic, IDNeoToken, n.md.Hash, committee, NeoTotalSupply)
	return nil
}

// PostPersist is a no-op for NeoToken: GAS-per-block distribution is
// GasToken's responsibility (it reads NeoToken's committee/candidate
// state instead of NeoToken pushing it).
func (n *NeoToken) PostPersist(ic *interop.Context) error { return nil }

func (n *NeoToken) computeCommitteeHash(ic *interop.Context) (util.Uint160, error) {
	committee := n.readCommittee(ic)
	if len(committee) == 0 {
		return util.Uint160{}, nil
	}
	return keys.GetVerificationScriptHash(smallestMajority(len(committee)), committee)
}

func smallestMajority(n int) int { return n - (n-1)/2 }

func (n *NeoToken) candidateKey(pub *keys.PublicKey) []byte {
	return storage.AppendContractID(IDNeoToken, append([]byte{neoPrefixCandidate}, pub.Bytes()...))
}

func (n *NeoToken) registerCandidate(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	pubBytes, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	pub, err := keys.NewPublicKeyFromBytes(pubBytes)
	if err != nil {
		panic(err)
	}
	ok, err := ic.CheckWitness(pub.GetScriptHash().BytesLE())
	if err != nil || !ok {
		return stackitem.NewBool(false)
	}
	cs := n.loadCandidate(ic, pub)
	cs.Registered = true
	n.saveCandidate(ic, pub, cs)
	return stackitem.NewBool(true)
}

func (n *NeoToken) unregisterCandidate(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	pubBytes, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	pub, err := keys.NewPublicKeyFromBytes(pubBytes)
	if err != nil {
		panic(err)
	}
	ok, err := ic.CheckWitness(pub.GetScriptHash().BytesLE())
	if err != nil || !ok {
		return stackitem.NewBool(false)
	}
	cs := n.loadCandidate(ic, pub)
	if cs.Votes.Sign() == 0 {
		_ = ic.Store.Delete(n.candidateKey(pub))
	} else {
		cs.Registered = false
		n.saveCandidate(ic, pub, cs)
	}
	return stackitem.NewBool(true)
}

func (n *NeoToken) vote(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	acc := mustUint160(args, 0)
	ok, err := ic.CheckWitness(acc[:])
	if err != nil || !ok {
		return stackitem.NewBool(false)
	}
	bal := nep17Balance(ic, IDNeoToken, acc)
	if bal.Sign() == 0 {
		return stackitem.NewBool(false)
	}
	voteKey := storage.AppendContractID(IDNeoToken, append([]byte{neoPrefixVote}, acc[:]...))
	if old, _ := ic.Store.Get(voteKey); len(old) > 0 {
		if oldPub, err := keys.NewPublicKeyFromBytes(old); err == nil {
			cs := n.loadCandidate(ic, oldPub)
			cs.Votes.Sub(cs.Votes, bal)
			n.saveCandidate(ic, oldPub, cs)
		}
	}
	if args[1].Type() == stackitem.NullT {
		_ = ic.Store.Delete(voteKey)
		return stackitem.NewBool(true)
	}
	pubBytes, err := argBytes(args, 1)
	if err != nil {
		panic(err)
	}
	pub, err := keys.NewPublicKeyFromBytes(pubBytes)
	if err != nil {
		panic(err)
	}
	cs := n.loadCandidate(ic, pub)
	cs.Votes.Add(cs.Votes, bal)
	n.saveCandidate(ic, pub, cs)
	_ = ic.Store.Put(voteKey, pub.Bytes())
	return stackitem.NewBool(true)
}

func (n *NeoToken) loadCandidate(ic *interop.Context, pub *keys.PublicKey) *candidateState {
	v, err := ic.Store.Get(n.candidateKey(pub))
	if err != nil || len(v) == 0 {
		return &candidateState{Votes: big.NewInt(0)}
	}
	registered := v[0] != 0
	votes := new(big.Int).SetBytes(v[1:])
	return &candidateState{Registered: registered, Votes: votes}
}

func (n *NeoToken) saveCandidate(ic *interop.Context, pub *keys.PublicKey, cs *candidateState) {
	reg := byte(0)
	if cs.Registered {
		reg = 1
	}
	buf := append([]byte{reg}, cs.Votes.Bytes()...)
	_ = ic.Store.Put(n.candidateKey(pub), buf)
}

// allCandidates returns every registered candidate's public key and
// vote tally, sorted by votes descending then by public key ascending
// for a deterministic tie-break every node computes identically.
func (n *NeoToken) allCandidates(ic *interop.Context) []struct {
	Pub   *keys.PublicKey
	Votes *big.Int
} {
	var out []struct {
		Pub   *keys.PublicKey
		Votes *big.Int
	}
	prefix := storage.AppendContractID(IDNeoToken, []byte{neoPrefixCandidate})
	ic.Store.Seek(prefix, storage.SeekForward, func(k, v []byte) bool {
		if len(v) == 0 || v[0] == 0 {
			return true
		}
		_, rest := storage.SplitContractID(k)
		pubBytes := rest[1:]
		pub, err := keys.NewPublicKeyFromBytes(pubBytes)
		if err != nil {
			return true
		}
		out = append(out, struct {
			Pub   *keys.PublicKey
			Votes *big.Int
		}{pub, new(big.Int).SetBytes(v[1:])})
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		c := out[i].Votes.Cmp(out[j].Votes)
		if c != 0 {
			return c > 0
		}
		return bytes.Compare(out[i].Pub.Bytes(), out[j].Pub.Bytes()) < 0
	})
	return out
}

func (n *NeoToken) getCandidates(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	cands := n.allCandidates(ic)
	items := make([]stackitem.Item, len(cands))
	for i, c := range cands {
		items[i] = stackitem.NewStruct([]stackitem.Item{
			stackitem.NewByteString(c.Pub.Bytes()),
			stackitem.NewBigInteger(c.Votes),
		})
	}
	return stackitem.NewArray(items)
}

func (n *NeoToken) readCommittee(ic *interop.Context) keys.PublicKeys {
	cands := n.allCandidates(ic)
	size := n.committeeSize
	if size > len(cands) {
		size = len(cands)
	}
	out := make(keys.PublicKeys, size)
	for i := 0; i < size; i++ {
		out[i] = cands[i].Pub
	}
	out.Sort()
	return out
}

func (n *NeoToken) getCommittee(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	committee := n.readCommittee(ic)
	items := make([]stackitem.Item, len(committee))
	for i, p := range committee {
		items[i] = stackitem.NewByteString(p.Bytes())
	}
	return stackitem.NewArray(items)
}

func (n *NeoToken) getNextBlockValidators(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	committee := n.readCommittee(ic)
	count := n.validatorsCount
	if count > len(committee) {
		count = len(committee)
	}
	validators := append(keys.PublicKeys{}, committee[:count]...)
	validators.Sort()
	items := make([]stackitem.Item, len(validators))
	for i, p := range validators {
		items[i] = stackitem.NewByteString(p.Bytes())
	}
	return stackitem.NewArray(items)
}

// NextValidatorsAccount returns the script hash of the next block's
// validator multisig account — the value a block's NextConsensus field
// must carry — letting the blockchain compute it without going through
// the VM invocation path (§4.7).
func (n *NeoToken) NextValidatorsAccount(ic *interop.Context) (util.Uint160, error) {
	committee := n.readCommittee(ic)
	count := n.validatorsCount
	if count > len(committee) {
		count = len(committee)
	}
	validators := append(keys.PublicKeys{}, committee[:count]...)
	validators.Sort()
	if len(validators) == 0 {
		return util.Uint160{}, nil
	}
	return keys.GetVerificationScriptHash(len(validators)-(len(validators)-1)/3, validators)
}

func (n *NeoToken) getGasPerBlock(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	return stackitem.NewBigInteger(big.NewInt(GasPerBlockDefault))
}

// unclaimedGas always reports zero: it does not integrate a per-block
// GAS-per-NEO reward curve, and no GAS accrues to NEO holders anywhere
// in this package (GasToken mints only the per-block committee
// emission).
func (n *NeoToken) unclaimedGas(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	return stackitem.NewBigInteger(big.NewInt(0))
}
