package keys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNEP2EncryptDecryptRoundTrip(t *testing.T) {
	priv, err := NewPrivateKey()
	require.NoError(t, err)

	enc, err := NEP2Encrypt(priv, "correct horse battery staple")
	require.NoError(t, err)

	got, err := NEP2Decrypt(enc, "correct horse battery staple")
	require.NoError(t, err)
	require.Equal(t, priv.Bytes(), got.Bytes())
}

func TestNEP2DecryptWrongPassphrase(t *testing.T) {
	priv, err := NewPrivateKey()
	require.NoError(t, err)

	enc, err := NEP2Encrypt(priv, "right password")
	require.NoError(t, err)

	_, err = NEP2Decrypt(enc, "wrong password")
	require.Error(t, err)
}

func TestNEP2DecryptRejectsMalformedPayload(t *testing.T) {
	_, err := NEP2Decrypt("not-a-nep2-string", "whatever")
	require.Error(t, err)
}
