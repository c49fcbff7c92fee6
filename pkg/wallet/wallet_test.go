package wallet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/crypto/keys"
)

func TestWalletSaveAndLoadRoundTrip(t *testing.T) {
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)

	w := &Wallet{Version: "1.0", Scrypt: DefaultScryptParams}
	require.NoError(t, w.AddAccount(priv, "hunter2", "node key", true))

	path := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, w.Save(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, loaded.Accounts, 1)

	def, err := loaded.DefaultAccount()
	require.NoError(t, err)
	require.Equal(t, priv.PublicKey().Address(), def.Address)

	got, err := def.Decrypt("hunter2")
	require.NoError(t, err)
	require.Equal(t, priv.Bytes(), got.Bytes())
}

func TestWalletDefaultAccountMissing(t *testing.T) {
	w := &Wallet{}
	_, err := w.DefaultAccount()
	require.ErrorIs(t, err, ErrNoDefaultAccount)
}

func TestAccountByAddressNotFound(t *testing.T) {
	w := &Wallet{}
	_, err := w.AccountByAddress("NunknownAddress")
	require.Error(t, err)
}
