package native

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
	"github.com/twmb/murmur3"
)

func newCryptoTestContext(t *testing.T) *interop.Context {
	t.Helper()
	store := storage.NewMemCachedStore(storage.NewMemoryStore())
	ic := interop.NewContext(interop.TriggerApplication, nep17FakeLedger{}, store, nil, 10_000_000_000, 1)
	ic.LoadScript([]byte{0x51}, vm.CallFlagAll)
	return ic
}

func TestCryptoLibSha256MatchesStdlib(t *testing.T) {
	c := NewCryptoLib()
	ic := newCryptoTestContext(t)

	msg := []byte("neo")
	res, err := c.Metadata().Invoke(ic, "sha256", vm.CallFlagAll, []stackitem.Item{stackitem.NewByteString(msg)})
	require.NoError(t, err)

	want := sha256.Sum256(msg)
	require.Equal(t, want[:], []byte(res.(stackitem.ByteString)))
}

func TestCryptoLibRipemd160MatchesHashPackage(t *testing.T) {
	c := NewCryptoLib()
	ic := newCryptoTestContext(t)

	msg := []byte("neo")
	res, err := c.Metadata().Invoke(ic, "ripemd160", vm.CallFlagAll, []stackitem.Item{stackitem.NewByteString(msg)})
	require.NoError(t, err)

	want := hash.RipeMD160(msg)
	require.Equal(t, want[:], []byte(res.(stackitem.ByteString)))
}

func TestCryptoLibMurmur32MatchesMurmur3(t *testing.T) {
	c := NewCryptoLib()
	ic := newCryptoTestContext(t)

	msg := []byte("neo")
	res, err := c.Metadata().Invoke(ic, "murmur32", vm.CallFlagAll, []stackitem.Item{
		stackitem.NewByteString(msg), stackitem.NewInteger(42),
	})
	require.NoError(t, err)

	want := murmur3.SeedSum32(42, msg)
	got := res.(stackitem.ByteString)
	require.Equal(t, byte(want), got[0])
}

func TestCryptoLibVerifyWithECDsaSecp256r1(t *testing.T) {
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)
	msg := []byte("transfer 10 GAS")
	sig, err := priv.Sign(msg)
	require.NoError(t, err)

	ok, err := verifyWithNamedCurve(CurveSecp256r1, priv.PublicKey().Bytes(), sig, msg)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = verifyWithNamedCurve(CurveSecp256r1, priv.PublicKey().Bytes(), sig, []byte("tampered"))
	require.NoError(t, err)
	require.False(t, ok)
}
