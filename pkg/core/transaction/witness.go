package transaction

import (
	"encoding/json"

	"github.com/n3-go/n3node/pkg/io"
)

// Witness is a pair of scripts authorizing a transaction or block: the
// invocation script pushes arguments, the verification script checks them
// and leaves a single boolean result on the stack (§4.5, §3's Witness
// type).
type Witness struct {
	InvocationScript   []byte
	VerificationScript []byte
}

// DecodeBinary implements io.Serializable.
func (w *Witness) DecodeBinary(br *io.BinReader) {
	w.InvocationScript = br.ReadVarBytes()
	w.VerificationScript = br.ReadVarBytes()
}

// EncodeBinary implements io.Serializable.
func (w *Witness) EncodeBinary(bw *io.BinWriter) {
	bw.WriteVarBytes(w.InvocationScript)
	bw.WriteVarBytes(w.VerificationScript)
}

type witnessAux struct {
	Invocation   string `json:"invocation"`
	Verification string `json:"verification"`
}

// MarshalJSON implements json.Marshaler, base64-encoding both scripts as
// the reference node's RPC layer does.
func (w Witness) MarshalJSON() ([]byte, error) {
	return json.Marshal(witnessAux{
		Invocation:   base64Encode(w.InvocationScript),
		Verification: base64Encode(w.VerificationScript),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *Witness) UnmarshalJSON(data []byte) error {
	aux := new(witnessAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	inv, err := base64Decode(aux.Invocation)
	if err != nil {
		return err
	}
	ver, err := base64Decode(aux.Verification)
	if err != nil {
		return err
	}
	w.InvocationScript = inv
	w.VerificationScript = ver
	return nil
}
