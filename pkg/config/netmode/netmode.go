// Package netmode names the P2P magic numbers that distinguish the
// networks a node can run against.
package netmode

import "strconv"

// Magic identifies the network a node is configured for; it is carried
// on the wire in every version handshake and message frame so peers on
// different networks never accidentally talk to one another.
type Magic uint32

const (
	// MainNet is the public Neo N3 main network.
	MainNet Magic = 0x004f454e
	// TestNet is the public Neo N3 test network.
	TestNet Magic = 0x3254334e
	// PrivNet is the conventional magic used for local/private networks.
	PrivNet Magic = 56753
	// UnitTestNet is used by this module's own tests and fixtures.
	UnitTestNet Magic = 42
)

// String implements fmt.Stringer.
func (m Magic) String() string {
	switch m {
	case MainNet:
		return "mainnet"
	case TestNet:
		return "testnet"
	case PrivNet:
		return "privnet"
	case UnitTestNet:
		return "unit_testnet"
	default:
		return "net 0x" + strconv.FormatUint(uint64(m), 16)
	}
}
