package transaction

import "github.com/n3-go/n3node/pkg/io"

// WitnessAction is the verdict a WitnessRule contributes when its
// Condition matches.
type WitnessAction byte

// Action values.
const (
	WitnessDeny  WitnessAction = 0
	WitnessAllow WitnessAction = 1
)

// WitnessRule is one entry of a Signer's Rules scope: a single
// Allow/Deny verdict gated by a WitnessCondition tree (§4.5).
type WitnessRule struct {
	Action    WitnessAction
	Condition WitnessCondition
}

// DecodeBinary implements io.Serializable.
func (r *WitnessRule) DecodeBinary(br *io.BinReader) {
	r.Action = WitnessAction(br.ReadB())
	r.Condition = DecodeWitnessCondition(br, 0)
}

// EncodeBinary implements io.Serializable.
func (r *WitnessRule) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(r.Action))
	r.Condition.EncodeBinary(bw)
}
