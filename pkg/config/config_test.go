package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/config/netmode"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	for _, net := range []netmode.Magic{netmode.MainNet, netmode.TestNet, netmode.PrivNet} {
		cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist"), net)
		require.NoError(t, err, net)
		require.Equal(t, net, cfg.ProtocolConfiguration.Magic)
		require.NotEmpty(t, cfg.ProtocolConfiguration.StandbyCommittee)
		keys, err := cfg.ProtocolConfiguration.Validators()
		require.NoError(t, err)
		require.Len(t, keys, cfg.ProtocolConfiguration.ValidatorsCount)
	}
}

func TestLoadFilePrefersDiskOverEmbedded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protocol.unit_testnet.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
ProtocolConfiguration:
  Magic: 42
  StandbyCommittee:
    - 02f445b6fab98f0c6453a41bd8a06eccff37352c59da55e43a674a03669e0fdebb
  ValidatorsCount: 1
  TimePerBlock: 1s
  MaxTransactionsPerBlock: 1
ApplicationConfiguration:
  DBType: memory
`), 0o644))

	cfg, err := LoadFile(path, netmode.UnitTestNet)
	require.NoError(t, err)
	require.Equal(t, netmode.Magic(42), cfg.ProtocolConfiguration.Magic)
	require.Equal(t, "memory", cfg.ApplicationConfiguration.DBType)
}

func TestLoadFileRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protocol.unit_testnet.yml")
	require.NoError(t, os.WriteFile(path, []byte(`NotARealField: 1`), 0o644))

	_, err := LoadFile(path, netmode.UnitTestNet)
	require.Error(t, err)
}

func TestLoadFileRejectsInvalidProtocol(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protocol.unit_testnet.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
ProtocolConfiguration:
  Magic: 42
  ValidatorsCount: 1
  MaxTransactionsPerBlock: 1
`), 0o644))

	_, err := LoadFile(path, netmode.UnitTestNet)
	require.ErrorContains(t, err, "StandbyCommittee")
}

func TestApplicationConfigurationValidate(t *testing.T) {
	a := ApplicationConfiguration{DBType: "not-a-real-backend"}
	require.Error(t, a.Validate())

	a = ApplicationConfiguration{Consensus: Consensus{Enabled: true}}
	require.Error(t, a.Validate())
}
