package native

import (
	"math/big"

	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// DefaultOracleRequestPrice is the GAS (datoshi) getPrice reports until
// setPrice stores another value, and the smallest gasForResponse that
// request accepts; nothing refunds the gas request charges.
const DefaultOracleRequestPrice = 50_000000

const (
	oraclePrefixRequest    = byte(0x07)
	oraclePrefixIDCounter  = byte(0x09)
	oraclePrefixPrice      = byte(0x05)
)

// oracleRequest is one pending request's record: what was asked, who
// pays, and which contract/callback gets the response.
type oracleRequest struct {
	URL             string
	Filter          string
	CallbackContract util.Uint160
	CallbackMethod  string
	UserData        []byte
	GasForResponse  int64
}

// OracleContract lets contracts request data from URLs outside the
// chain, resolved by designated Oracle-role nodes and delivered back
// via a callback invocation (§4.6). This is a simplified model: request
// bookkeeping and the finish notification are implemented, finish does
// not invoke the callback contract, and the
// actual HTTP fetch and oracle-node response aggregation a full
// deployment needs live outside core consensus and are out of scope
// here (there is no network fetch inside a deterministic state
// transition; a real node's oracle service submits Finish transactions
// built from its own off-chain fetch).
type OracleContract struct {
	md *ContractMD
}

// NewOracleContract builds the OracleContract native contract.
func NewOracleContract() *OracleContract {
	o := &OracleContract{md: NewContractMD(IDOracleContract, NameOracleContract)}
	md := o.md
	md.Register(&Method{Name: "request", RequiredFlags: vm.CallFlagStates | vm.CallFlagAllowNotify, Price: 0, Func: o.request})
	md.Register(&Method{Name: "getPrice", RequiredFlags: vm.CallFlagReadStates, Price: 1 << 15, Func: o.getPrice})
	md.Register(&Method{Name: "setPrice", RequiredFlags: vm.CallFlagStates, Price: 1 << 15, Func: o.setPrice})
	md.Register(&Method{Name: "finish", RequiredFlags: vm.CallFlagStates | vm.CallFlagAllowCall | vm.CallFlagAllowNotify, Price: 0, Func: o.finish})
	return o
}

// Metadata implements Contract.
func (o *OracleContract) Metadata() *ContractMD { return o.md }

// OnPersist implements Contract.
func (o *OracleContract) OnPersist(ic *interop.Context) error { return nil }

// PostPersist implements Contract.
func (o *OracleContract) PostPersist(ic *interop.Context) error { return nil }

func (o *OracleContract) priceKey() []byte {
	return storage.AppendContractID(IDOracleContract, []byte{oraclePrefixPrice})
}

func (o *OracleContract) getPrice(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	v, err := ic.Store.Get(o.priceKey())
	if err != nil || len(v) == 0 {
		return stackitem.NewInteger(DefaultOracleRequestPrice)
	}
	return stackitem.NewBigInteger(new(big.Int).SetBytes(v))
}

func (o *OracleContract) setPrice(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	price := mustBigInt(args, 0)
	_ = ic.Store.Put(o.priceKey(), price.Bytes())
	return stackitem.NewNull()
}

func (o *OracleContract) nextRequestID(ic *interop.Context) uint64 {
	key := storage.AppendContractID(IDOracleContract, []byte{oraclePrefixIDCounter})
	v, _ := ic.Store.Get(key)
	var id uint64 = 1
	if len(v) > 0 {
		id = new(big.Int).SetBytes(v).Uint64() + 1
	}
	_ = ic.Store.Put(key, new(big.Int).SetUint64(id).Bytes())
	return id
}

func (o *OracleContract) requestKey(id uint64) []byte {
	buf := make([]byte, 9)
	buf[0] = oraclePrefixRequest
	for i := 0; i < 8; i++ {
		buf[1+i] = byte(id >> (56 - 8*i))
	}
	return storage.AppendContractID(IDOracleContract, buf)
}

func encodeOracleRequest(r *oracleRequest) []byte {
	w := io.NewBufBinWriter()
	w.WriteVarBytes([]byte(r.URL))
	w.WriteVarBytes([]byte(r.Filter))
	w.WriteBytes(r.CallbackContract[:])
	w.WriteVarBytes([]byte(r.CallbackMethod))
	w.WriteVarBytes(r.UserData)
	w.WriteU64LE(uint64(r.GasForResponse))
	return w.Bytes()
}

// request registers a pending oracle lookup under a fresh sequential
// ID, charging GasForResponse as execution gas up front; finish pays
// none of it out.
func (o *OracleContract) request(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	url, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	var filter []byte
	if args[1].Type() != stackitem.NullT {
		filter, err = argBytes(args, 1)
		if err != nil {
			panic(err)
		}
	}
	method, err := argBytes(args, 2)
	if err != nil {
		panic(err)
	}
	userData, err := argBytes(args, 3)
	if err != nil {
		panic(err)
	}
	gasForResponse := mustBigInt(args, 4).Int64()
	if gasForResponse < DefaultOracleRequestPrice {
		panic(ErrInvalidArguments)
	}
	if err := ic.VM.ChargeGas(gasForResponse); err != nil {
		panic(err)
	}
	id := o.nextRequestID(ic)
	req := &oracleRequest{
		URL:              string(url),
		Filter:           string(filter),
		CallbackContract: ic.CurrentScriptHash(),
		CallbackMethod:   string(method),
		UserData:         userData,
		GasForResponse:   gasForResponse,
	}
	_ = ic.Store.Put(o.requestKey(id), encodeOracleRequest(req))
	ic.AddNotification(o.md.Hash, "OracleRequest", stackitem.NewArray([]stackitem.Item{
		stackitem.NewInteger(int64(id)),
		stackitem.NewByteString(req.CallbackContract[:]),
		stackitem.NewByteString(url),
		stackitem.NewByteString(filter),
	}))
	return stackitem.NewNull()
}

// finish completes a pending request: it deletes the stored record and
// emits an OracleResponse notification with the id, code and result
// taken verbatim from args. It does not invoke the stored callback.
func (o *OracleContract) finish(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	id := uint64(mustBigInt(args, 0).Int64())
	code := mustBigInt(args, 1).Int64()
	result, err := argBytes(args, 2)
	if err != nil {
		panic(err)
	}
	key := o.requestKey(id)
	data, getErr := ic.Store.Get(key)
	if getErr != nil || len(data) == 0 {
		panic(ErrContractNotFound)
	}
	_ = ic.Store.Delete(key)
	ic.AddNotification(o.md.Hash, "OracleResponse", stackitem.NewArray([]stackitem.Item{
		stackitem.NewInteger(int64(id)),
		stackitem.NewInteger(code),
		stackitem.NewByteString(result),
	}))
	return stackitem.NewNull()
}
