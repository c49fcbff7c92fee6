package network

import (
	"errors"

	n3io "github.com/n3-go/n3node/pkg/io"
)

// errTooManyAddresses is returned when a decoded AddrPayload claims
// more entries than maxAddrsInPayload.
var errTooManyAddresses = errors.New("network: too many addresses in payload")

// ServiceFlag advertises which optional services a peer offers in its
// VersionPayload, mirroring the capability bit this node itself sets
// (full archival node, no pruning).
type ServiceFlag uint64

// NodeNetwork is the only capability this node advertises: it serves
// full chain data to other peers.
const NodeNetwork ServiceFlag = 1

// VersionPayload is exchanged immediately after a TCP connection opens;
// the handshake only completes once both sides have sent Version and
// received a matching Verack (§4.8).
type VersionPayload struct {
	Network     uint32
	Version     uint32
	Timestamp   uint32
	Services    ServiceFlag
	Port        uint16
	Nonce       uint32
	UserAgent   string
	StartHeight uint32
	Relay       bool
}

// NewVersionPayload builds a VersionPayload describing this node.
func NewVersionPayload(network uint32, port uint16, nonce uint32, userAgent string, startHeight uint32) *VersionPayload {
	return &VersionPayload{
		Network:     network,
		Version:     0,
		Services:    NodeNetwork,
		Port:        port,
		Nonce:       nonce,
		UserAgent:   userAgent,
		StartHeight: startHeight,
		Relay:       true,
	}
}

// EncodeBinary implements io.Serializable.
func (v *VersionPayload) EncodeBinary(w *n3io.BinWriter) {
	w.WriteU32LE(v.Network)
	w.WriteU32LE(v.Version)
	w.WriteU32LE(v.Timestamp)
	w.WriteU64LE(uint64(v.Services))
	w.WriteU16LE(v.Port)
	w.WriteU32LE(v.Nonce)
	w.WriteString(v.UserAgent)
	w.WriteU32LE(v.StartHeight)
	w.WriteBool(v.Relay)
}

// DecodeBinary implements io.Serializable.
func (v *VersionPayload) DecodeBinary(r *n3io.BinReader) {
	v.Network = r.ReadU32LE()
	v.Version = r.ReadU32LE()
	v.Timestamp = r.ReadU32LE()
	v.Services = ServiceFlag(r.ReadU64LE())
	v.Port = r.ReadU16LE()
	v.Nonce = r.ReadU32LE()
	v.UserAgent = r.ReadString(256)
	v.StartHeight = r.ReadU32LE()
	v.Relay = r.ReadBool()
}

// AddressAndTime is one entry of an AddrPayload: a peer's network
// address together with the time it was last seen alive.
type AddressAndTime struct {
	Timestamp uint32
	Services  ServiceFlag
	IP        [16]byte
	Port      uint16
}

// EncodeBinary implements io.Serializable.
func (a *AddressAndTime) EncodeBinary(w *n3io.BinWriter) {
	w.WriteU32LE(a.Timestamp)
	w.WriteU64LE(uint64(a.Services))
	w.WriteBytes(a.IP[:])
	w.WriteU16LE(a.Port)
}

// DecodeBinary implements io.Serializable.
func (a *AddressAndTime) DecodeBinary(r *n3io.BinReader) {
	a.Timestamp = r.ReadU32LE()
	a.Services = ServiceFlag(r.ReadU64LE())
	r.ReadBytes(a.IP[:])
	a.Port = r.ReadU16LE()
}

// maxAddrsInPayload bounds a single Addr response the way this node
// bounds the GetAddr request it answers.
const maxAddrsInPayload = 200

// AddrPayload carries known peer addresses, sent in response to
// GetAddr during peer discovery (§4.8).
type AddrPayload struct {
	Addrs []*AddressAndTime
}

// EncodeBinary implements io.Serializable.
func (p *AddrPayload) EncodeBinary(w *n3io.BinWriter) {
	w.WriteVarUint(uint64(len(p.Addrs)))
	for _, a := range p.Addrs {
		a.EncodeBinary(w)
	}
}

// DecodeBinary implements io.Serializable.
func (p *AddrPayload) DecodeBinary(r *n3io.BinReader) {
	n := r.ReadVarUint()
	if n > maxAddrsInPayload {
		r.Err = errTooManyAddresses
		return
	}
	p.Addrs = make([]*AddressAndTime, n)
	for i := range p.Addrs {
		a := &AddressAndTime{}
		a.DecodeBinary(r)
		p.Addrs[i] = a
	}
}

// PingPayload carries the sender's current height and nonce, used both
// as a liveness probe and as an out-of-band height announcement (§4.8).
type PingPayload struct {
	LastBlockIndex uint32
	Timestamp      uint32
	Nonce          uint32
}

// EncodeBinary implements io.Serializable.
func (p *PingPayload) EncodeBinary(w *n3io.BinWriter) {
	w.WriteU32LE(p.LastBlockIndex)
	w.WriteU32LE(p.Timestamp)
	w.WriteU32LE(p.Nonce)
}

// DecodeBinary implements io.Serializable.
func (p *PingPayload) DecodeBinary(r *n3io.BinReader) {
	p.LastBlockIndex = r.ReadU32LE()
	p.Timestamp = r.ReadU32LE()
	p.Nonce = r.ReadU32LE()
}
