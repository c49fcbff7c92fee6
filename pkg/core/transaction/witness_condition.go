package transaction

import (
	"errors"

	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
)

// WitnessConditionType tags the wire encoding of a WitnessCondition (§4.5).
type WitnessConditionType byte

// Condition type tags, matching the reference node's encoding.
const (
	WitnessBoolean          WitnessConditionType = 0x00
	WitnessNot              WitnessConditionType = 0x01
	WitnessAnd              WitnessConditionType = 0x02
	WitnessOr               WitnessConditionType = 0x03
	WitnessScriptHashCond   WitnessConditionType = 0x18
	WitnessGroupCond        WitnessConditionType = 0x19
	WitnessCalledByEntryCond WitnessConditionType = 0x20
	WitnessCalledByContractCond WitnessConditionType = 0x28
	WitnessCalledByGroupCond WitnessConditionType = 0x29
)

// ErrInvalidWitnessCondition is returned for a malformed or excessively
// deep witness condition tree.
var ErrInvalidWitnessCondition = errors.New("transaction: invalid witness condition")

// MaxWitnessConditionDepth bounds nested And/Not/Or trees.
const MaxWitnessConditionDepth = 2

// WitnessCondition is evaluated against the calling contract's script
// hash/group membership and the transaction's entry script to decide
// whether a CustomContracts/CustomGroups-free Rules scope applies.
type WitnessCondition interface {
	Type() WitnessConditionType
	Match(callingScriptHash util.Uint160, entryScriptHash util.Uint160, groups []util.Uint160) bool
	EncodeBinary(bw *io.BinWriter)
}

// ConditionBoolean is a constant true/false condition.
type ConditionBoolean bool

// Type implements WitnessCondition.
func (ConditionBoolean) Type() WitnessConditionType { return WitnessBoolean }

// Match implements WitnessCondition.
func (c ConditionBoolean) Match(util.Uint160, util.Uint160, []util.Uint160) bool { return bool(c) }

// EncodeBinary implements WitnessCondition.
func (c ConditionBoolean) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(WitnessBoolean))
	bw.WriteBool(bool(c))
}

// ConditionCalledByEntry matches only the transaction's entry context.
type ConditionCalledByEntry struct{}

// Type implements WitnessCondition.
func (ConditionCalledByEntry) Type() WitnessConditionType { return WitnessCalledByEntryCond }

// Match implements WitnessCondition.
func (ConditionCalledByEntry) Match(calling, entry util.Uint160, _ []util.Uint160) bool {
	return calling.Equals(entry)
}

// EncodeBinary implements WitnessCondition.
func (ConditionCalledByEntry) EncodeBinary(bw *io.BinWriter) { bw.WriteB(byte(WitnessCalledByEntryCond)) }

// ConditionScriptHash matches a specific calling contract hash.
type ConditionScriptHash util.Uint160

// Type implements WitnessCondition.
func (ConditionScriptHash) Type() WitnessConditionType { return WitnessScriptHashCond }

// Match implements WitnessCondition.
func (c ConditionScriptHash) Match(calling util.Uint160, _ util.Uint160, _ []util.Uint160) bool {
	return util.Uint160(c).Equals(calling)
}

// EncodeBinary implements WitnessCondition.
func (c ConditionScriptHash) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(WitnessScriptHashCond))
	bw.WriteBytes(c[:])
}

// ConditionGroup matches any contract whose manifest lists this group key.
type ConditionGroup []byte

// Type implements WitnessCondition.
func (ConditionGroup) Type() WitnessConditionType { return WitnessGroupCond }

// Match implements WitnessCondition.
func (c ConditionGroup) Match(_ util.Uint160, _ util.Uint160, groups []util.Uint160) bool {
	gh := hash.Hash160(c)
	for _, g := range groups {
		if g.Equals(gh) {
			return true
		}
	}
	return false
}

// EncodeBinary implements WitnessCondition.
func (c ConditionGroup) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(WitnessGroupCond))
	bw.WriteVarBytes(c)
}

// ConditionNot negates the wrapped condition.
type ConditionNot struct{ Condition WitnessCondition }

// Type implements WitnessCondition.
func (ConditionNot) Type() WitnessConditionType { return WitnessNot }

// Match implements WitnessCondition.
func (c ConditionNot) Match(calling, entry util.Uint160, groups []util.Uint160) bool {
	return !c.Condition.Match(calling, entry, groups)
}

// EncodeBinary implements WitnessCondition.
func (c ConditionNot) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(WitnessNot))
	c.Condition.EncodeBinary(bw)
}

// ConditionAnd requires every sub-condition to match.
type ConditionAnd []WitnessCondition

// Type implements WitnessCondition.
func (ConditionAnd) Type() WitnessConditionType { return WitnessAnd }

// Match implements WitnessCondition.
func (c ConditionAnd) Match(calling, entry util.Uint160, groups []util.Uint160) bool {
	for _, sub := range c {
		if !sub.Match(calling, entry, groups) {
			return false
		}
	}
	return true
}

// EncodeBinary implements WitnessCondition.
func (c ConditionAnd) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(WitnessAnd))
	bw.WriteVarUint(uint64(len(c)))
	for _, sub := range c {
		sub.EncodeBinary(bw)
	}
}

// ConditionOr requires at least one sub-condition to match.
type ConditionOr []WitnessCondition

// Type implements WitnessCondition.
func (ConditionOr) Type() WitnessConditionType { return WitnessOr }

// Match implements WitnessCondition.
func (c ConditionOr) Match(calling, entry util.Uint160, groups []util.Uint160) bool {
	for _, sub := range c {
		if sub.Match(calling, entry, groups) {
			return true
		}
	}
	return false
}

// EncodeBinary implements WitnessCondition.
func (c ConditionOr) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(WitnessOr))
	bw.WriteVarUint(uint64(len(c)))
	for _, sub := range c {
		sub.EncodeBinary(bw)
	}
}

// DecodeWitnessCondition reads a condition tree up to MaxWitnessConditionDepth.
func DecodeWitnessCondition(br *io.BinReader, depth int) WitnessCondition {
	if depth > MaxWitnessConditionDepth {
		br.Err = ErrInvalidWitnessCondition
		return nil
	}
	t := WitnessConditionType(br.ReadB())
	if br.Err != nil {
		return nil
	}
	switch t {
	case WitnessBoolean:
		return ConditionBoolean(br.ReadBool())
	case WitnessCalledByEntryCond:
		return ConditionCalledByEntry{}
	case WitnessScriptHashCond:
		var h util.Uint160
		br.ReadBytes(h[:])
		return ConditionScriptHash(h)
	case WitnessGroupCond, WitnessCalledByGroupCond:
		return ConditionGroup(br.ReadVarBytes())
	case WitnessNot:
		sub := DecodeWitnessCondition(br, depth+1)
		return ConditionNot{Condition: sub}
	case WitnessAnd, WitnessOr:
		n := br.ReadVarUint()
		subs := make([]WitnessCondition, n)
		for i := range subs {
			subs[i] = DecodeWitnessCondition(br, depth+1)
		}
		if t == WitnessAnd {
			return ConditionAnd(subs)
		}
		return ConditionOr(subs)
	default:
		br.Err = ErrInvalidWitnessCondition
		return nil
	}
}
