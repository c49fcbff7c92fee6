package config

import _ "embed"

// MainNet is the default Neo N3 mainnet-shaped configuration.
//
//go:embed protocol.mainnet.yml
var MainNet []byte

// TestNet is the default Neo N3 testnet-shaped configuration.
//
//go:embed protocol.testnet.yml
var TestNet []byte

// PrivNet is the default configuration for a local/private network,
// sized for a single-node or small fixture cluster.
//
//go:embed protocol.privnet.yml
var PrivNet []byte
