package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/smartcontract/manifest"
	"github.com/n3-go/n3node/pkg/smartcontract/nef"
	"github.com/n3-go/n3node/pkg/util"
)

func TestCreateContractHashIsDeterministic(t *testing.T) {
	sender := util.Uint160{1, 2, 3}
	script := []byte{0x51, 0x52}

	h1 := CreateContractHash(sender, script)
	h2 := CreateContractHash(sender, script)
	require.Equal(t, h1, h2)

	h3 := CreateContractHash(sender, []byte{0x53})
	require.NotEqual(t, h1, h3)
}

func TestToContractStateCarriesManifestAndNEF(t *testing.T) {
	nefFile, err := nef.NewFile([]byte{0x51})
	require.NoError(t, err)

	target := util.Uint160{9}
	m := manifest.Manifest{
		Name: "TestToken",
		Permissions: []manifest.Permission{
			{Contract: &target, Methods: []string{"transfer"}},
		},
	}

	c := &Contract{
		ID:       1,
		Hash:     util.Uint160{1, 2, 3},
		NEF:      *nefFile,
		Manifest: m,
	}

	cs := c.ToContractState()
	require.Equal(t, c.ID, cs.ID)
	require.Equal(t, c.Hash, cs.Hash)
	require.Equal(t, "TestToken", cs.Manifest.Name)
	require.Len(t, cs.Manifest.Permissions, 1)
	require.Equal(t, target, cs.Manifest.Permissions[0].Contract)
	require.NotEmpty(t, cs.NEF)
}
