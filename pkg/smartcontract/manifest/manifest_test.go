package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/util"
)

func TestNewManifestHasWildcardPermission(t *testing.T) {
	m := NewManifest("Token")
	require.Len(t, m.Permissions, 1)
	require.True(t, m.Permissions[0].Allows(util.Uint160{1}, "transfer"))
}

func TestPermissionAllowsRestrictsByContractAndMethod(t *testing.T) {
	target := util.Uint160{9}
	p := Permission{Contract: &target, Methods: []string{"transfer"}}

	require.True(t, p.Allows(target, "transfer"))
	require.False(t, p.Allows(target, "mint"))
	require.False(t, p.Allows(util.Uint160{1}, "transfer"))
}

func TestGetMethodResolvesByArity(t *testing.T) {
	m := NewManifest("Token")
	m.ABI.Methods = []Method{
		{Name: "transfer", Parameters: []Parameter{{Name: "to", Type: "Hash160"}}},
		{Name: "transfer", Parameters: []Parameter{{Name: "to", Type: "Hash160"}, {Name: "amount", Type: "Integer"}}},
	}

	require.Equal(t, 2, len(m.GetMethod("transfer", 2).Parameters))
	require.Equal(t, 1, len(m.GetMethod("transfer", 1).Parameters))
	require.Nil(t, m.GetMethod("transfer", 3))
}

func TestGroupIsValidChecksSignature(t *testing.T) {
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)
	contractHash := util.Uint160{1, 2, 3}

	sig, err := priv.Sign(contractHash.BytesBE())
	require.NoError(t, err)
	g := Group{PublicKey: priv.PublicKey(), Signature: sig}
	require.True(t, g.IsValid(contractHash))
	require.False(t, g.IsValid(util.Uint160{9, 9, 9}))
}

func TestManifestIsValidRejectsBadGroupSignature(t *testing.T) {
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)
	contractHash := util.Uint160{1, 2, 3}

	m := NewManifest("Token")
	m.Groups = []Group{{PublicKey: priv.PublicKey(), Signature: []byte{0x00}}}
	require.Error(t, m.IsValid(contractHash))
}

func TestManifestIsValidAcceptsWellFormedManifest(t *testing.T) {
	m := NewManifest("Token")
	require.NoError(t, m.IsValid(util.Uint160{1}))
}
