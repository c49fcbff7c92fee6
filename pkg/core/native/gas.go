package native

import (
	"math/big"

	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// GasDecimals matches GAS's 8-decimal datoshi unit, the same precision
// as util.Fixed8.
const GasDecimals = 8

// GasPerBlockDefault is the initial GAS minted per block to the
// committee, in datoshi, before any PolicyContract-style governance
// vote changes it.
const GasPerBlockDefault = 5 * 100_000_000

// GasToken is the network's fee-currency native contract (§4.6): a
// NEP-17 asset minted each block to the committee account rather than
// held in a fixed genesis supply the way NeoToken is.
type GasToken struct {
	md            *ContractMD
	neo           *NeoToken
	committeeSize int
}

// NewGasToken builds the GasToken native contract, wired to neo so its
// OnPersist can resolve the current committee account to credit.
func NewGasToken(neo *NeoToken, committeeSize int) *GasToken {
	g := &GasToken{
		md:            NewContractMD(IDGasToken, NameGasToken),
		neo:           neo,
		committeeSize: committeeSize,
	}
	md := g.md
	md.Register(&Method{Name: "symbol", RequiredFlags: vm.CallFlagNone, Price: 1 << 15, Func: g.symbol})
	md.Register(&Method{Name: "decimals", RequiredFlags: vm.CallFlagNone, Price: 1 << 15, Func: g.decimals})
	md.Register(&Method{Name: "totalSupply", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: g.totalSupply})
	md.Register(&Method{Name: "balanceOf", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: g.balanceOf})
	md.Register(&Method{Name: "transfer", RequiredFlags: vm.CallFlagStates | vm.CallFlagAllowNotify, Price: 1 << 17, Func: g.transfer})
	return g
}

// Metadata implements Contract.
func (g *GasToken) Metadata() *ContractMD { return g.md }

func (g *GasToken) symbol(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	return stackitem.NewByteString([]byte("GAS"))
}

func (g *GasToken) decimals(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	return stackitem.NewInteger(GasDecimals)
}

func (g *GasToken) totalSupply(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	return stackitem.NewBigInteger(nep17TotalSupply(ic, IDGasToken))
}

func (g *GasToken) balanceOf(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	acc := mustUint160(args, 0)
	return stackitem.NewBigInteger(nep17Balance(ic, IDGasToken, acc))
}

// BalanceOf reads acc's GAS balance directly off a storage snapshot,
// without running the VM — the accessor the mempool's Feer
// implementation uses to check a sender can cover system_fee+network_fee
// (§4.6).
func (g *GasToken) BalanceOf(s storage.Store, acc util.Uint160) *big.Int {
	return nep17BalanceFromStore(s, IDGasToken, acc)
}

func (g *GasToken) transfer(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	from := mustUint160(args, 0)
	to := mustUint160(args, 1)
	amount := mustBigInt(args, 2)
	err := nep17Transfer(ic, IDGasToken, g.md.Hash, from, to, amount)
	return stackitem.NewBool(err == nil)
}

// OnPersist mints GasPerBlockDefault datoshi to the current committee
// account every block, the network's ongoing fee-currency emission
// (distinct from NeoToken's one-time genesis mint).
func (g *GasToken) OnPersist(ic *interop.Context) error {
	committee, err := g.neo.computeCommitteeHash(ic)
	if err != nil {
		return err
	}
	if !committee.Equals(util.Uint160{}) {
		nep17Mint(ic, IDGasToken, g.md.Hash, committee, big.NewInt(GasPerBlockDefault))
	}
	return nil
}

// PostPersist does nothing: the block's network fees are not credited
// to the committee account or to validators.
func (g *GasToken) PostPersist(ic *interop.Context) error {
	return nil
}
