package native

import (
	"errors"

	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// ErrMethodNotFound is returned when a native contract is invoked with a
// method name its table does not carry.
var ErrMethodNotFound = errors.New("native: method not found")

// ErrInvalidArguments is returned when a native method's arguments fail
// an arg*/must* conversion.
var ErrInvalidArguments = errors.New("native: invalid arguments")

// Method is one entry of a native contract's method table: a name, its
// required call flags and gas price, and the handler itself. Unlike a
// deployed contract's manifest-derived ABI, this table is fixed in code
// (§4.6).
type Method struct {
	Name          string
	RequiredFlags vm.CallFlags
	Price         int64
	Func          func(ic *interop.Context, args []stackitem.Item) stackitem.Item
}

// Contract is implemented by every native contract.
type Contract interface {
	Metadata() *ContractMD
	// OnPersist runs once per block before any transaction is processed.
	OnPersist(ic *interop.Context) error
	// PostPersist runs once per block after every transaction has been
	// processed (distributing fees, updating the committee, …).
	PostPersist(ic *interop.Context) error
}

// ContractMD is a native contract's fixed identity: its ID/Hash/Name and
// method table.
type ContractMD struct {
	ID      int32
	Hash    util.Uint160
	Name    string
	Methods map[string]*Method
}

// NewContractMD builds the identity record for a native contract, hashing
// id||name the way ContractManagement derives deployed-contract hashes so
// natives sit in the same namespace (§4.6).
func NewContractMD(id int32, name string) *ContractMD {
	return &ContractMD{
		ID:      id,
		Hash:    nativeHash(id, name),
		Name:    name,
		Methods: make(map[string]*Method),
	}
}

// Register adds m to the contract's method table.
func (md *ContractMD) Register(m *Method) {
	md.Methods[m.Name] = m
}

// Invoke dispatches method against args, enforcing the caller's call
// flags against the method's required flags.
func (md *ContractMD) Invoke(ic *interop.Context, method string, callerFlags vm.CallFlags, args []stackitem.Item) (result stackitem.Item, err error) {
	m, ok := md.Methods[method]
	if !ok {
		return nil, ErrMethodNotFound
	}
	if !callerFlags.Has(m.RequiredFlags) {
		return nil, vm.ErrInvalidCallFlags
	}
	if err := ic.VM.ChargeGas(m.Price); err != nil {
		return nil, err
	}
	// Method bodies use arg*/must* helpers that panic on malformed
	// arguments (wrong count, wrong type) rather than threading an error
	// return through every field access; recovered here and reported the
	// same as any other invocation failure.
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = ErrInvalidArguments
			}
		}
	}()
	return m.Func(ic, args), nil
}
