package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/n3-go/n3node/pkg/wallet"
)

func runWalletCLI(t *testing.T, args ...string) error {
	t.Helper()
	app := &cli.App{Name: "n3node", Commands: []*cli.Command{walletCommand}}
	return app.Run(append([]string{"n3node"}, args...))
}

func TestWalletInitCreatesEmptyWallet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, runWalletCLI(t, "wallet", "init", "--wallet", path))

	w, err := wallet.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "1.0", w.Version)
	require.Empty(t, w.Accounts)
}

func TestWalletInitRefusesToOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, runWalletCLI(t, "wallet", "init", "--wallet", path))
	require.Error(t, runWalletCLI(t, "wallet", "init", "--wallet", path))
}

func TestReadPassphraseFallsBackToPlainStdin(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	origStdin := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = origStdin }()

	_, err = w.WriteString("hunter2\n")
	require.NoError(t, err)
	w.Close()

	var out bytes.Buffer
	pass, err := readPassphrase(&out)
	require.NoError(t, err)
	require.Equal(t, "hunter2", pass)
}
