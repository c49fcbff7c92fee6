// Package config loads and validates the YAML configuration a node
// starts from: consensus-critical ProtocolConfiguration and node-local
// ApplicationConfiguration, with a default configuration embedded for
// each well-known network so a node can start with nothing but a
// network flag such as "--mainnet" (§4.6, §4.7, §4.8).
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/n3-go/n3node/pkg/config/netmode"
)

const (
	// UserAgentFormat is used to build the version-handshake user agent
	// string from the build-time Version.
	UserAgentFormat = "/N3Node:%s/"
	// DefaultConfigPath is where Load looks for protocol.<network>.yml
	// before falling back to the embedded default.
	DefaultConfigPath = "./config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Config is the top-level configuration tree for a node process.
type Config struct {
	ProtocolConfiguration    ProtocolConfiguration    `yaml:"ProtocolConfiguration"`
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// GenerateUserAgent renders the version-handshake user agent string.
func (c Config) GenerateUserAgent() string {
	return fmt.Sprintf(UserAgentFormat, Version)
}

// Load reads protocol.<netMode>.yml from path, falling back to this
// module's embedded default for netMode if no such file exists on disk.
func Load(path string, netMode netmode.Magic) (Config, error) {
	return LoadFile(fmt.Sprintf("%s/protocol.%s.yml", path, netMode), netMode)
}

// LoadFile reads configData from configPath if present, or falls back
// to the embedded default for netMode, then validates the result.
func LoadFile(configPath string, netMode netmode.Magic) (Config, error) {
	var (
		configData []byte
		err        error
	)
	if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
		configData, err = embeddedConfig(netMode)
		if err != nil {
			return Config{}, err
		}
	} else {
		configData, err = os.ReadFile(configPath)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	cfg := Config{
		ApplicationConfiguration: ApplicationConfiguration{
			P2P: P2P{
				DialTimeout:  5 * time.Second,
				MinPeers:     3,
				MaxPeers:     40,
				PingInterval: 30 * time.Second,
			},
		},
	}
	dec := yaml.NewDecoder(bytes.NewReader(configData))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshaling YAML: %w", err)
	}

	if err := cfg.ProtocolConfiguration.Validate(); err != nil {
		return Config{}, err
	}
	if err := cfg.ApplicationConfiguration.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func embeddedConfig(netMode netmode.Magic) ([]byte, error) {
	switch netMode {
	case netmode.MainNet:
		return MainNet, nil
	case netmode.TestNet:
		return TestNet, nil
	case netmode.PrivNet:
		return PrivNet, nil
	default:
		return nil, fmt.Errorf("config: no embedded default for network %s", netMode)
	}
}
