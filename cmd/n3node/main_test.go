package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/n3-go/n3node/pkg/config"
	"github.com/n3-go/n3node/pkg/config/netmode"
)

func newTestContext(t *testing.T, setup func(*flag.FlagSet)) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("flagSet", flag.ContinueOnError)
	set.Bool("mainnet", false, "")
	set.Bool("testnet", false, "")
	set.Bool("privnet", false, "")
	set.String("config-path", config.DefaultConfigPath, "")
	set.String("config-file", "", "")
	set.Bool("debug", false, "")
	if setup != nil {
		setup(set)
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestNetModeFromFlags(t *testing.T) {
	require.Equal(t, netmode.PrivNet, netModeFromFlags(newTestContext(t, nil)))

	require.Equal(t, netmode.TestNet, netModeFromFlags(newTestContext(t, func(set *flag.FlagSet) {
		require.NoError(t, set.Set("testnet", "true"))
	})))

	require.Equal(t, netmode.MainNet, netModeFromFlags(newTestContext(t, func(set *flag.FlagSet) {
		require.NoError(t, set.Set("mainnet", "true"))
	})))
}

func TestLoadConfigUsesEmbeddedDefaults(t *testing.T) {
	c := newTestContext(t, func(set *flag.FlagSet) {
		require.NoError(t, set.Set("config-path", "/does/not/exist"))
		require.NoError(t, set.Set("privnet", "true"))
	})
	cfg, err := loadConfig(c)
	require.NoError(t, err)
	require.Equal(t, netmode.PrivNet, cfg.ProtocolConfiguration.Magic)
}

func TestOpenStoreMemory(t *testing.T) {
	store, err := openStore(config.ApplicationConfiguration{DBType: "memory"})
	require.NoError(t, err)
	require.NotNil(t, store)
}

func TestOpenStoreRejectsUnknownType(t *testing.T) {
	_, err := openStore(config.ApplicationConfiguration{DBType: "cassandra"})
	require.Error(t, err)
}
