package native

import (
	"errors"
	"math/big"

	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// nep17BalancePrefix namespaces the per-account balance entries within a
// fungible native contract's own contract-ID-scoped key space, leaving
// room for other prefixes (candidates, total supply, …) alongside it.
const nep17BalancePrefix = byte(0x14)
const nep17TotalSupplyPrefix = byte(0x0b)

// nep17Balance reads acc's balance under contract id, defaulting to 0.
func nep17Balance(ic *interop.Context, id int32, acc util.Uint160) *big.Int {
	return nep17BalanceFromStore(ic.Store, id, acc)
}

// nep17BalanceFromStore is the storage-level half of nep17Balance,
// usable by read-only callers (fee lookups) that have a snapshot but no
// full application engine.
func nep17BalanceFromStore(s storage.Store, id int32, acc util.Uint160) *big.Int {
	key := storage.AppendContractID(id, append([]byte{nep17BalancePrefix}, acc[:]...))
	v, err := s.Get(key)
	if err != nil || len(v) == 0 {
		return big.NewInt(0)
	}
	return new(big.Int).SetBytes(v)
}

// nep17SetBalance writes acc's balance, deleting the entry entirely at
// zero to keep the store from accumulating empty accounts.
func nep17SetBalance(ic *interop.Context, id int32, acc util.Uint160, amount *big.Int) {
	key := storage.AppendContractID(id, append([]byte{nep17BalancePrefix}, acc[:]...))
	if amount.Sign() == 0 {
		_ = ic.Store.Delete(key)
		return
	}
	_ = ic.Store.Put(key, amount.Bytes())
}

// nep17TotalSupply reads the contract's recorded total supply.
func nep17TotalSupply(ic *interop.Context, id int32) *big.Int {
	v, err := ic.Store.Get(storage.AppendContractID(id, []byte{nep17TotalSupplyPrefix}))
	if err != nil || len(v) == 0 {
		return big.NewInt(0)
	}
	return new(big.Int).SetBytes(v)
}

func nep17SetTotalSupply(ic *interop.Context, id int32, amount *big.Int) {
	_ = ic.Store.Put(storage.AppendContractID(id, []byte{nep17TotalSupplyPrefix}), amount.Bytes())
}

// nep17Mint credits acc and grows total supply, emitting the standard
// Transfer(null, acc, amount) notification (§4.6's NEP-17 interface).
func nep17Mint(ic *interop.Context, id int32, hash util.Uint160, acc util.Uint160, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	bal := nep17Balance(ic, id, acc)
	bal.Add(bal, amount)
	nep17SetBalance(ic, id, acc, bal)
	ts := nep17TotalSupply(ic, id)
	ts.Add(ts, amount)
	nep17SetTotalSupply(ic, id, ts)
	emitTransfer(ic, hash, util.Uint160{}, acc, amount)
}

// nep17Burn debits acc and shrinks total supply, emitting
// Transfer(acc, null, amount).
func nep17Burn(ic *interop.Context, id int32, hash util.Uint160, acc util.Uint160, amount *big.Int) error {
	bal := nep17Balance(ic, id, acc)
	if bal.Cmp(amount) < 0 {
		return errInsufficientFunds
	}
	bal.Sub(bal, amount)
	nep17SetBalance(ic, id, acc, bal)
	ts := nep17TotalSupply(ic, id)
	ts.Sub(ts, amount)
	nep17SetTotalSupply(ic, id, ts)
	emitTransfer(ic, hash, acc, util.Uint160{}, amount)
	return nil
}

// nep17Transfer moves amount from `from` to `to`, requiring a witness
// from `from` unless it equals the currently executing contract.
func nep17Transfer(ic *interop.Context, id int32, hash util.Uint160, from, to util.Uint160, amount *big.Int) error {
	if amount.Sign() < 0 {
		return errNegativeAmount
	}
	if !from.Equals(to) {
		ok, err := ic.CheckWitness(from[:])
		if err != nil {
			return err
		}
		if !ok {
			return errNoAuthorization
		}
	}
	if amount.Sign() > 0 {
		fromBal := nep17Balance(ic, id, from)
		if fromBal.Cmp(amount) < 0 {
			return errInsufficientFunds
		}
		fromBal.Sub(fromBal, amount)
		nep17SetBalance(ic, id, from, fromBal)
		toBal := nep17Balance(ic, id, to)
		toBal.Add(toBal, amount)
		nep17SetBalance(ic, id, to, toBal)
	}
	emitTransfer(ic, hash, from, to, amount)
	return nil
}

func emitTransfer(ic *interop.Context, contract util.Uint160, from, to util.Uint160, amount *big.Int) {
	ic.AddNotification(contract, "Transfer", stackitem.NewArray([]stackitem.Item{
		uint160OrNull(from),
		uint160OrNull(to),
		stackitem.NewBigInteger(amount),
	}))
}

var (
	errInsufficientFunds = errors.New("native: insufficient funds")
	errNegativeAmount    = errors.New("native: negative amount")
	errNoAuthorization   = errors.New("native: no authorization")
)

func uint160OrNull(u util.Uint160) stackitem.Item {
	if u.Equals(util.Uint160{}) {
		return stackitem.NewNull()
	}
	return stackitem.NewByteString(u[:])
}
