package native

import (
	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// Config is the subset of chain configuration the native contract set
// needs at construction time (committee/validator sizing): kept local
// to this package rather than importing the node's full configuration
// type, so native stays usable from tests and tools that only need a
// contract registry (§4.6).
type Config struct {
	CommitteeSize   int
	ValidatorsCount int
}

// Contracts is the full set of native contracts a chain runs, indexed
// for the two lookups the application engine needs: by script hash
// (System.Contract.Call target resolution) and by ID (Invoke, the
// function interop.Context.NativeCall is set to).
type Contracts struct {
	Contracts []Contract

	NEO        *NeoToken
	GAS        *GasToken
	Policy     *PolicyContract
	Role       *RoleManagement
	Oracle     *OracleContract
	Management *ContractManagement
	Ledger     *LedgerContract
	Crypto     *CryptoLib
	Std        *StdLib

	byID   map[int32]Contract
	byHash map[[20]byte]Contract
}

// NewContracts builds every native contract and wires LedgerContract to
// reader (typically the blockchain itself, supplied once it exists;
// nil is accepted for configurations — tests, tooling — that never
// invoke LedgerContract's methods).
func NewContracts(cfg Config, reader BlockReader) *Contracts {
	committeeSize := cfg.CommitteeSize
	if committeeSize <= 0 {
		committeeSize = 21
	}
	validators := cfg.ValidatorsCount
	if validators <= 0 {
		validators = 7
	}

	neo := NewNeoToken(committeeSize, validators)
	gas := NewGasToken(neo, committeeSize)
	policy := NewPolicyContract()
	role := NewRoleManagement()
	oracle := NewOracleContract()
	mgmt := NewContractManagement()
	ledger := NewLedgerContract(reader)
	crypto := NewCryptoLib()
	std := NewStdLib()

	cs := &Contracts{
		NEO: neo, GAS: gas, Policy: policy, Role: role, Oracle: oracle,
		Management: mgmt, Ledger: ledger, Crypto: crypto, Std: std,
		byID:   make(map[int32]Contract),
		byHash: make(map[[20]byte]Contract),
	}
	cs.Contracts = []Contract{mgmt, std, crypto, ledger, neo, gas, policy, role, oracle}
	for _, c := range cs.Contracts {
		md := c.Metadata()
		cs.byID[md.ID] = c
		cs.byHash[md.Hash] = c
	}
	return cs
}

// ByID returns the native contract with the given fixed ID, if any.
func (c *Contracts) ByID(id int32) (Contract, bool) {
	ct, ok := c.byID[id]
	return ct, ok
}

// ByHash returns the native contract deployed at hash, if any.
func (c *Contracts) ByHash(hash [20]byte) (Contract, bool) {
	ct, ok := c.byHash[hash]
	return ct, ok
}

// Invoke dispatches directly into the native contract identified by id,
// the closure assigned to interop.Context.NativeCall so
// System.Contract.Call reaches this registry for negative-ID targets
// without LoadScript-ing a NEF a native contract does not carry.
func (c *Contracts) Invoke(ic *interop.Context, id int32, method string, flags vm.CallFlags, args []stackitem.Item) (stackitem.Item, error) {
	ct, ok := c.ByID(id)
	if !ok {
		return nil, ErrMethodNotFound
	}
	return ct.Metadata().Invoke(ic, method, flags, args)
}

// OnPersistAll runs OnPersist against every native contract in
// registration order, the hook the blockchain's persistence pipeline
// calls once per block before any transaction executes (§4.7).
func (c *Contracts) OnPersistAll(ic *interop.Context) error {
	for _, ct := range c.Contracts {
		if err := ct.OnPersist(ic); err != nil {
			return err
		}
	}
	return nil
}

// PostPersistAll runs PostPersist against every native contract in
// registration order, called once per block after every transaction
// has executed (§4.7).
func (c *Contracts) PostPersistAll(ic *interop.Context) error {
	for _, ct := range c.Contracts {
		if err := ct.PostPersist(ic); err != nil {
			return err
		}
	}
	return nil
}
