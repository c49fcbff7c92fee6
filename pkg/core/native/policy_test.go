package native

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/util"
)

func TestPolicyContractDefaults(t *testing.T) {
	store := storage.NewMemoryStore()
	p := NewPolicyContract()

	require.Equal(t, int64(DefaultFeePerByte), p.FeePerByte(store))
	require.False(t, p.IsAccountBlocked(store, util.Uint160{1}))
	require.Equal(t, int64(0), p.AttributeFee(store, 0x20))
}

func TestPolicyContractFeePerByteReflectsStorage(t *testing.T) {
	store := storage.NewMemoryStore()
	p := NewPolicyContract()

	key := storage.AppendContractID(IDPolicyContract, []byte{policyPrefixFeePerByte})
	require.NoError(t, store.Put(key, big.NewInt(2000).Bytes()))

	require.Equal(t, int64(2000), p.FeePerByte(store))
}

func TestPolicyContractIsAccountBlockedReflectsStorage(t *testing.T) {
	store := storage.NewMemoryStore()
	p := NewPolicyContract()
	acc := util.Uint160{9, 9, 9}

	require.False(t, p.IsAccountBlocked(store, acc))
	require.NoError(t, store.Put(p.blockedKey(acc), []byte{1}))
	require.True(t, p.IsAccountBlocked(store, acc))
}

func TestPolicyContractMetadataRegistersMethods(t *testing.T) {
	p := NewPolicyContract()
	md := p.Metadata()
	require.Contains(t, md.Methods, "getFeePerByte")
	require.Contains(t, md.Methods, "setFeePerByte")
	require.Contains(t, md.Methods, "isBlocked")
	require.Equal(t, IDPolicyContract, md.ID)
}
