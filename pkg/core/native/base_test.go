package native

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

func TestContractMDInvokeRejectsUnknownMethod(t *testing.T) {
	md := NewContractMD(IDPolicyContract, NamePolicyContract)
	ic := newCryptoTestContext(t)

	_, err := md.Invoke(ic, "noSuchMethod", vm.CallFlagAll, nil)
	require.ErrorIs(t, err, ErrMethodNotFound)
}

func TestContractMDInvokeRejectsInsufficientCallFlags(t *testing.T) {
	md := NewContractMD(IDPolicyContract, NamePolicyContract)
	md.Register(&Method{
		Name:          "needsWrite",
		RequiredFlags: vm.CallFlagWriteStates,
		Price:         1,
		Func: func(ic *interop.Context, args []stackitem.Item) stackitem.Item {
			return stackitem.NewBool(true)
		},
	})
	ic := newCryptoTestContext(t)

	_, err := md.Invoke(ic, "needsWrite", vm.CallFlagReadStates, nil)
	require.ErrorIs(t, err, vm.ErrInvalidCallFlags)
}

func TestContractMDInvokeRecoversFromArgumentPanics(t *testing.T) {
	md := NewContractMD(IDPolicyContract, NamePolicyContract)
	md.Register(&Method{
		Name:          "needsArg",
		RequiredFlags: vm.CallFlagReadStates,
		Price:         1,
		Func: func(ic *interop.Context, args []stackitem.Item) stackitem.Item {
			return stackitem.NewInteger(mustBigInt(args, 0).Int64())
		},
	})
	ic := newCryptoTestContext(t)

	_, err := md.Invoke(ic, "needsArg", vm.CallFlagReadStates, nil)
	require.Error(t, err)
}

func TestContractMDInvokeChargesGas(t *testing.T) {
	md := NewContractMD(IDPolicyContract, NamePolicyContract)
	md.Register(&Method{
		Name:          "noop",
		RequiredFlags: vm.CallFlagReadStates,
		Price:         1000,
		Func: func(ic *interop.Context, args []stackitem.Item) stackitem.Item {
			return stackitem.NewBool(true)
		},
	})
	ic := newCryptoTestContext(t)
	before := ic.VM.GasConsumed()

	res, err := md.Invoke(ic, "noop", vm.CallFlagReadStates, nil)
	require.NoError(t, err)
	require.Equal(t, stackitem.NewBool(true), res)
	require.Equal(t, int64(1000), ic.VM.GasConsumed()-before)
}
