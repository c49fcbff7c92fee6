package native

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNativeHashIsDeterministicAndDistinct(t *testing.T) {
	a := nativeHash(IDPolicyContract, NamePolicyContract)
	b := nativeHash(IDPolicyContract, NamePolicyContract)
	require.Equal(t, a, b)

	c := nativeHash(IDNeoToken, NameNeoToken)
	require.NotEqual(t, a, c)
}
