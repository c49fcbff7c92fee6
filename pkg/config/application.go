package config

import (
	"fmt"
	"time"
)

// BasicService is the common shape of a bindable HTTP-ish side service
// (RPC, Prometheus, Pprof).
type BasicService struct {
	Enabled   bool     `yaml:"Enabled"`
	Addresses []string `yaml:"Addresses"`
}

// P2P holds the peer-to-peer transport settings consumed by
// network.Config (§4.8).
type P2P struct {
	Addresses        []string      `yaml:"Addresses"`
	AttemptConnPeers int           `yaml:"AttemptConnPeers"`
	DialTimeout      time.Duration `yaml:"DialTimeout"`
	MaxPeers         int           `yaml:"MaxPeers"`
	MinPeers         int           `yaml:"MinPeers"`
	PingInterval     time.Duration `yaml:"PingInterval"`
}

// RPC holds the JSON-RPC/WebSocket notification service settings.
type RPC struct {
	BasicService         `yaml:",inline"`
	EnableCORSWorkaround bool          `yaml:"EnableCORSWorkaround"`
	MaxWebSocketClients  int           `yaml:"MaxWebSocketClients"`
	MaxWebSocketFeeds    int           `yaml:"MaxWebSocketFeeds"`
	SessionLifetime      time.Duration `yaml:"SessionLifetime"`
}

// Wallet names an on-disk NEP-6 wallet to unlock at startup, e.g. for a
// consensus node's signing key.
type Wallet struct {
	Path     string `yaml:"Path"`
	Password string `yaml:"Password"`
}

// Consensus holds the dBFT participation settings.
type Consensus struct {
	Enabled      bool   `yaml:"Enabled"`
	UnlockWallet Wallet `yaml:"UnlockWallet"`
}

// ApplicationConfiguration describes node-local settings that do not
// affect consensus validity: where data lives, which services are
// exposed, and how verbosely the node logs (the ambient stack).
type ApplicationConfiguration struct {
	LogLevel    string `yaml:"LogLevel"`
	LogEncoding string `yaml:"LogEncoding"`
	LogPath     string `yaml:"LogPath"`

	// DBType selects the storage.Store backend: "memory", "bolt", or
	// "leveldb".
	DBType            string `yaml:"DBType"`
	DataDirectoryPath string `yaml:"DataDirectoryPath"`

	Relay     bool      `yaml:"Relay"`
	P2P       P2P       `yaml:"P2P"`
	RPC       RPC       `yaml:"RPC"`
	Consensus Consensus `yaml:"Consensus"`

	Prometheus BasicService `yaml:"Prometheus"`
	Pprof      BasicService `yaml:"Pprof"`
}

// Validate checks ApplicationConfiguration for internal consistency.
func (a *ApplicationConfiguration) Validate() error {
	switch a.DBType {
	case "", "memory", "bolt", "leveldb":
	default:
		return fmt.Errorf("config: unknown DBType %q", a.DBType)
	}
	if a.LogEncoding != "" && a.LogEncoding != "console" && a.LogEncoding != "json" {
		return fmt.Errorf("config: unknown LogEncoding %q", a.LogEncoding)
	}
	if a.Consensus.Enabled && a.Consensus.UnlockWallet.Path == "" {
		return fmt.Errorf("config: Consensus.Enabled requires Consensus.UnlockWallet.Path")
	}
	return nil
}
