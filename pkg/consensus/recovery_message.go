package consensus

import (
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
)

// changeViewCompact and the other *Compact types below carry just the
// per-validator slice of a full payload a RecoveryMessage needs to
// rebuild it: the originating validator, and its witness's invocation
// script (the verification script and every other field are derived
// from the recovery message's own envelope and the known validator
// set), keeping a recovery reply far smaller than re-sending every
// payload in full.
type changeViewCompact struct {
	ValidatorIndex     uint8
	OriginalViewNumber byte
	Timestamp          uint64
	InvocationScript   []byte
}

func (c *changeViewCompact) EncodeBinary(w *io.BinWriter) {
	w.WriteB(c.ValidatorIndex)
	w.WriteB(c.OriginalViewNumber)
	w.WriteU64LE(c.Timestamp)
	w.WriteVarBytes(c.InvocationScript)
}

func (c *changeViewCompact) DecodeBinary(r *io.BinReader) {
	c.ValidatorIndex = r.ReadB()
	c.OriginalViewNumber = r.ReadB()
	c.Timestamp = r.ReadU64LE()
	c.InvocationScript = r.ReadVarBytes(1024)
}

type commitCompact struct {
	ViewNumber       byte
	ValidatorIndex   uint8
	Signature        [signatureSize]byte
	InvocationScript []byte
}

func (c *commitCompact) EncodeBinary(w *io.BinWriter) {
	w.WriteB(c.ViewNumber)
	w.WriteB(c.ValidatorIndex)
	w.WriteBytes(c.Signature[:])
	w.WriteVarBytes(c.InvocationScript)
}

func (c *commitCompact) DecodeBinary(r *io.BinReader) {
	c.ViewNumber = r.ReadB()
	c.ValidatorIndex = r.ReadB()
	r.ReadBytes(c.Signature[:])
	c.InvocationScript = r.ReadVarBytes(1024)
}

type preparationCompact struct {
	ValidatorIndex   uint8
	InvocationScript []byte
}

func (p *preparationCompact) EncodeBinary(w *io.BinWriter) {
	w.WriteB(p.ValidatorIndex)
	w.WriteVarBytes(p.InvocationScript)
}

func (p *preparationCompact) DecodeBinary(r *io.BinReader) {
	p.ValidatorIndex = r.ReadB()
	p.InvocationScript = r.ReadVarBytes(1024)
}

// recoveryMessage is the RecoveryMessage body (§4.7): everything a
// validator rejoining a view needs to catch up without re-running the
// whole round — the prepare request (if known), every preparation seen
// so far, every commit seen so far, and every pending change-view.
type recoveryMessage struct {
	preparationHash     *util.Uint256
	prepareRequest      *message
	preparationPayloads []*preparationCompact
	commitPayloads      []*commitCompact
	changeViewPayloads  []*changeViewCompact
}

// EncodeBinary implements io.Serializable.
func (m *recoveryMessage) EncodeBinary(w *io.BinWriter) {
	w.WriteVarUint(uint64(len(m.changeViewPayloads)))
	for _, cv := range m.changeViewPayloads {
		cv.EncodeBinary(w)
	}

	hasReq := m.prepareRequest != nil
	w.WriteBool(hasReq)
	if hasReq {
		m.prepareRequest.EncodeBinary(w)
	} else if m.preparationHash == nil {
		w.WriteVarUint(0)
	} else {
		w.WriteVarUint(util.Uint256Size)
		w.WriteBytes(m.preparationHash[:])
	}

	w.WriteVarUint(uint64(len(m.preparationPayloads)))
	for _, p := range m.preparationPayloads {
		p.EncodeBinary(w)
	}

	w.WriteVarUint(uint64(len(m.commitPayloads)))
	for _, c := range m.commitPayloads {
		c.EncodeBinary(w)
	}
}

// DecodeBinary implements io.Serializable.
func (m *recoveryMessage) DecodeBinary(r *io.BinReader) {
	n := r.ReadVarUint()
	m.changeViewPayloads = make([]*changeViewCompact, n)
	for i := range m.changeViewPayloads {
		cv := new(changeViewCompact)
		cv.DecodeBinary(r)
		m.changeViewPayloads[i] = cv
	}

	hasReq := r.ReadBool()
	if hasReq {
		m.prepareRequest = new(message)
		m.prepareRequest.DecodeBinary(r)
		if r.Err == nil && m.prepareRequest.Type != prepareRequestType {
			r.Err = errWrongPayload
			return
		}
	} else {
		l := r.ReadVarUint()
		if l != 0 {
			if l != util.Uint256Size {
				r.Err = errWrongPayload
				return
			}
			m.preparationHash = new(util.Uint256)
			r.ReadBytes(m.preparationHash[:])
		}
	}

	n = r.ReadVarUint()
	m.preparationPayloads = make([]*preparationCompact, n)
	for i := range m.preparationPayloads {
		p := new(preparationCompact)
		p.DecodeBinary(r)
		m.preparationPayloads[i] = p
	}

	n = r.ReadVarUint()
	m.commitPayloads = make([]*commitCompact, n)
	for i := range m.commitPayloads {
		c := new(commitCompact)
		c.DecodeBinary(r)
		m.commitPayloads[i] = c
	}
}

// addPayload folds p into the recovery message it will eventually
// answer a RecoveryRequest with, keeping only what's needed to
// reconstruct it later.
func (m *recoveryMessage) addPayload(p *Payload) {
	validator := uint8(p.ValidatorIndex())

	switch p.Type() {
	case prepareRequestType:
		m.prepareRequest = &p.message
		h := p.Hash()
		m.preparationHash = &h
		m.preparationPayloads = append(m.preparationPayloads, &preparationCompact{
			ValidatorIndex:   validator,
			InvocationScript: p.Witness.InvocationScript,
		})
	case prepareResponseType:
		m.preparationPayloads = append(m.preparationPayloads, &preparationCompact{
			ValidatorIndex:   validator,
			InvocationScript: p.Witness.InvocationScript,
		})
		if m.preparationHash == nil {
			h := p.GetPrepareResponse().preparationHash
			m.preparationHash = &h
		}
	case changeViewType:
		m.changeViewPayloads = append(m.changeViewPayloads, &changeViewCompact{
			ValidatorIndex:     validator,
			OriginalViewNumber: p.ViewNumber(),
			Timestamp:          p.GetChangeView().timestamp,
			InvocationScript:   p.Witness.InvocationScript,
		})
	case commitType:
		m.commitPayloads = append(m.commitPayloads, &commitCompact{
			ValidatorIndex:   validator,
			ViewNumber:       p.ViewNumber(),
			Signature:        p.GetCommit().signature,
			InvocationScript: p.Witness.InvocationScript,
		})
	}
}
