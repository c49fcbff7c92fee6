package transaction

import (
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
)

// MaxAttributes bounds the number of Signers plus Attributes a single
// transaction may carry (§4.5).
const MaxAttributes = 16

// Signer authorizes a transaction within the scope it declares: Global
// grants access everywhere, CalledByEntry only to the entry script,
// CustomContracts/CustomGroups/Rules narrow it further (§3, §4.5).
type Signer struct {
	Account          util.Uint160
	Scopes           WitnessScope
	AllowedContracts []util.Uint160
	AllowedGroups    []*keys.PublicKey
	Rules            []WitnessRule
}

// ErrInvalidSigner flags a Signer whose scope combination or list sizes
// violate §4.5's invariants.
var ErrInvalidSigner = errors.New("transaction: invalid signer")

// DecodeBinary implements io.Serializable.
func (s *Signer) DecodeBinary(br *io.BinReader) {
	br.ReadBytes(s.Account[:])
	scope, err := ScopesFromByte(br.ReadB())
	if err != nil {
		br.Err = err
		return
	}
	s.Scopes = scope
	if scope&CustomContracts != 0 {
		n := br.ReadVarUint()
		if n > MaxAttributes {
			br.Err = ErrInvalidSigner
			return
		}
		s.AllowedContracts = make([]util.Uint160, n)
		for i := range s.AllowedContracts {
			br.ReadBytes(s.AllowedContracts[i][:])
		}
	}
	if scope&CustomGroups != 0 {
		n := br.ReadVarUint()
		if n > MaxAttributes {
			br.Err = ErrInvalidSigner
			return
		}
		s.AllowedGroups = make([]*keys.PublicKey, n)
		for i := range s.AllowedGroups {
			b := make([]byte, 33)
			br.ReadBytes(b)
			if br.Err != nil {
				return
			}
			pk, err := keys.NewPublicKeyFromBytes(b)
			if err != nil {
				br.Err = err
				return
			}
			s.AllowedGroups[i] = pk
		}
	}
	if scope&Rules != 0 {
		n := int(br.ReadVarUint())
		if n > MaxAttributes {
			br.Err = ErrInvalidSigner
			return
		}
		s.Rules = make([]WitnessRule, n)
		for i := range s.Rules {
			s.Rules[i].DecodeBinary(br)
		}
	}
}

// EncodeBinary implements io.Serializable.
func (s *Signer) EncodeBinary(bw *io.BinWriter) {
	bw.WriteBytes(s.Account[:])
	bw.WriteB(byte(s.Scopes))
	if s.Scopes&CustomContracts != 0 {
		bw.WriteVarUint(uint64(len(s.AllowedContracts)))
		for _, c := range s.AllowedContracts {
			bw.WriteBytes(c[:])
		}
	}
	if s.Scopes&CustomGroups != 0 {
		bw.WriteVarUint(uint64(len(s.AllowedGroups)))
		for _, g := range s.AllowedGroups {
			bw.WriteBytes(g.Bytes())
		}
	}
	if s.Scopes&Rules != 0 {
		bw.WriteVarUint(uint64(len(s.Rules)))
		for i := range s.Rules {
			s.Rules[i].EncodeBinary(bw)
		}
	}
}

type signerAux struct {
	Account          string   `json:"account"`
	Scopes           string   `json:"scopes"`
	AllowedContracts []string `json:"allowedcontracts,omitempty"`
	AllowedGroups    []string `json:"allowedgroups,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s Signer) MarshalJSON() ([]byte, error) {
	aux := signerAux{
		Account: "0x" + s.Account.StringBE(),
		Scopes:  s.Scopes.String(),
	}
	for _, c := range s.AllowedContracts {
		aux.AllowedContracts = append(aux.AllowedContracts, "0x"+c.StringBE())
	}
	for _, g := range s.AllowedGroups {
		aux.AllowedGroups = append(aux.AllowedGroups, hex.EncodeToString(g.Bytes()))
	}
	return json.Marshal(aux)
}
