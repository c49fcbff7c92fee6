// Package manifest implements the deployed-contract metadata a NEF
// script is paired with: its ABI (method/event signatures), the
// groups it claims membership in, and the permissions it was granted
// to call other contracts (§4.5, §4.6).
package manifest

import (
	"encoding/json"
	"errors"

	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/util"
)

// MaxManifestSize bounds the serialized manifest a deploy transaction
// may carry.
const MaxManifestSize = 64 * 1024

// ErrTooLarge is returned when a manifest's JSON encoding exceeds
// MaxManifestSize.
var ErrTooLarge = errors.New("manifest: exceeds maximum size")

// Parameter describes one method parameter's name and VM type.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Method is one ABI entry: a callable method's name, parameters, return
// type, entry offset and safe flag.
type Method struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters"`
	ReturnType string      `json:"returntype"`
	Offset     int         `json:"offset"`
	Safe       bool        `json:"safe"`
}

// Event describes one notification a contract may emit.
type Event struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters"`
}

// ABI is a contract's full method/event surface.
type ABI struct {
	Methods []Method `json:"methods"`
	Events  []Event  `json:"events"`
}

// Permission restricts which contract(s)/method(s) this contract may
// invoke via System.Contract.Call; a nil Contract means "any contract"
// and a nil Methods list means "any method" (wildcard, §4.6).
type Permission struct {
	Contract *util.Uint160 `json:"contract"`
	Methods  []string      `json:"methods"`
}

// Allows reports whether this permission authorizes calling method on
// target.
func (p *Permission) Allows(target util.Uint160, method string) bool {
	if p.Contract != nil && !p.Contract.Equals(target) {
		return false
	}
	if p.Methods == nil {
		return true
	}
	for _, m := range p.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// Group is a manifest's claim of membership: a public key plus a
// signature over the contract's own hash proving the claim.
type Group struct {
	PublicKey *keys.PublicKey `json:"pubkey"`
	Signature []byte          `json:"signature"`
}

// IsValid reports whether Signature verifies over h under PublicKey,
// the check ContractManagement.Deploy performs before accepting a
// manifest's group claims (§4.6).
func (g *Group) IsValid(h util.Uint160) bool {
	return g.PublicKey.Verify(g.Signature, h.BytesBE())
}

// Manifest is a deployed contract's full metadata record.
type Manifest struct {
	Name               string       `json:"name"`
	Groups             []Group      `json:"groups"`
	SupportedStandards []string     `json:"supportedstandards"`
	ABI                ABI          `json:"abi"`
	Permissions        []Permission `json:"permissions"`
	Trusts             []util.Uint160 `json:"trusts"`
}

// NewManifest builds an empty manifest for name with a wildcard
// permission, the minimal shape a freshly-compiled contract carries
// before the compiler fills in its real ABI.
func NewManifest(name string) *Manifest {
	return &Manifest{
		Name:        name,
		Permissions: []Permission{{Contract: nil, Methods: nil}},
	}
}

// GetMethod looks up a method by name and parameter count (NEP-compatible
// overload resolution: two methods may share a name with differing arity).
func (m *Manifest) GetMethod(name string, paramCount int) *Method {
	for i := range m.ABI.Methods {
		meth := &m.ABI.Methods[i]
		if meth.Name == name && (paramCount < 0 || len(meth.Parameters) == paramCount) {
			return meth
		}
	}
	return nil
}

// IsValid checks the manifest's size and that every group's signature
// verifies against h, the contract hash it was deployed under.
func (m *Manifest) IsValid(h util.Uint160) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if len(data) > MaxManifestSize {
		return ErrTooLarge
	}
	for i := range m.Groups {
		if !m.Groups[i].IsValid(h) {
			return errors.New("manifest: invalid group signature")
		}
	}
	return nil
}
