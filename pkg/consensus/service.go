package consensus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/n3-go/n3node/pkg/core/block"
	"github.com/n3-go/n3node/pkg/core/transaction"
	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/mempool"
	"github.com/n3-go/n3node/pkg/util"
)

// roundState tracks where this validator is within a single (height,
// view) attempt, the states T0's reset walks through on the way to a
// committed block (§4.7).
type roundState byte

const (
	stateInitial roundState = iota
	statePrimaryRequestSent
	stateResponseSent
	stateCommitSent
	stateBlockSent
)

// Ledger is the chain surface the consensus Service needs: enough to
// know the current tip and to persist an agreed block.
type Ledger interface {
	CurrentHeight() uint32
	CurrentBlockHash() util.Uint256
	AddBlock(b *block.Block) error
}

// Config bundles everything a Service needs to participate in dBFT for
// one validator.
type Config struct {
	Logger          *zap.Logger
	Ledger          Ledger
	Mempool         *mempool.Pool
	Key             *keys.PrivateKey
	Validators      keys.PublicKeys
	MyIndex         int
	Magic           uint32
	SecondsPerBlock time.Duration
	Broadcast       func(p *Payload)
}

// Service drives one validator through the dBFT rounds for each
// successive block: collecting PrepareResponse/Commit quorums,
// escalating to ChangeView on timeout, and persisting the agreed block
// to Ledger once M commits are seen (§4.7).
type Service struct {
	cfg Config
	log *zap.Logger

	n int
	f int
	m int

	cache *relayCache

	mu         sync.Mutex
	blockIndex uint32
	view       byte
	state      roundState

	candidate  *block.Block
	prepareReq *Payload

	preparations map[uint16]*Payload
	commits      map[uint16]*Payload
	changeViews  map[uint16]*Payload

	timer    *time.Timer
	quit     chan struct{}
	wg       sync.WaitGroup
	finished bool
}

// ErrNotValidator is returned by NewService when MyIndex does not
// index into Validators.
var ErrNotValidator = errors.New("consensus: my_index out of range of validator set")

// NewService builds a Service for a single validator out of cfg. N is
// len(cfg.Validators); f = floor((N-1)/3); M = N-f (§4.7).
func NewService(cfg Config) (*Service, error) {
	n := len(cfg.Validators)
	if cfg.MyIndex < 0 || cfg.MyIndex >= n {
		return nil, ErrNotValidator
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.SecondsPerBlock == 0 {
		cfg.SecondsPerBlock = 15 * time.Second
	}
	f := (n - 1) / 3
	s := &Service{
		cfg:   cfg,
		log:   cfg.Logger.With(zap.Int("my_index", cfg.MyIndex)),
		n:     n,
		f:     f,
		m:     n - f,
		cache: newRelayCache(relayCacheCapacity),
		quit:  make(chan struct{}),
	}
	return s, nil
}

// Start begins a fresh round for the block after the ledger's current
// height and returns once the timer goroutine is running; Shutdown stops
// it.
func (s *Service) Start() {
	s.mu.Lock()
	s.blockIndex = s.cfg.Ledger.CurrentHeight() + 1
	s.mu.Unlock()
	s.resetRound(0)

	s.wg.Add(1)
	go s.run()
}

// Shutdown stops the Service's timer goroutine.
func (s *Service) Shutdown() {
	close(s.quit)
	s.wg.Wait()
}

func (s *Service) run() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		t := s.timer
		s.mu.Unlock()
		if t == nil {
			return
		}
		select {
		case <-s.quit:
			return
		case <-t.C:
			s.onTimeout()
		}
	}
}

// primaryIndex returns the validator index that proposes at the given
// view, cycling deterministically with block height (§4.7).
func (s *Service) primaryIndex(view byte) uint16 {
	return uint16(((int(s.blockIndex)-int(view))%s.n + s.n) % s.n)
}

func (s *Service) isPrimary() bool {
	return s.primaryIndex(s.view) == uint16(s.cfg.MyIndex)
}

// viewTimeout grows exponentially with the view number, the same
// backoff shape dBFT uses so a chain that keeps failing to agree
// doesn't retry at a fixed, possibly too-short interval forever.
func (s *Service) viewTimeout(view byte) time.Duration {
	d := s.cfg.SecondsPerBlock
	for i := byte(0); i < view; i++ {
		d *= 2
	}
	return d
}

// resetRound resets all per-view bookkeeping for a (possibly new) view
// and, if this validator is primary, broadcasts a PrepareRequest built
// from the mempool's top verified transactions; the caller must not
// hold s.mu.
func (s *Service) resetRound(view byte) {
	s.mu.Lock()
	s.view = view
	s.state = stateInitial
	s.candidate = nil
	s.prepareReq = nil
	s.preparations = make(map[uint16]*Payload)
	s.commits = make(map[uint16]*Payload)
	s.changeViews = make(map[uint16]*Payload)
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.NewTimer(s.viewTimeout(view))
	primary := s.isPrimary()
	s.mu.Unlock()

	s.log.Info("starting round", zap.Uint32("height", s.blockIndex), zap.Uint8("view", view), zap.Bool("primary", primary))

	if primary {
		s.sendPrepareRequest()
	}
}

func (s *Service) onTimeout() {
	s.mu.Lock()
	view := s.view
	blockIndex := s.blockIndex
	already := s.state == stateBlockSent
	s.mu.Unlock()
	if already {
		return
	}

	if s.isPrimary() && view == s.view {
		s.sendPrepareRequest()
		return
	}

	s.log.Warn("view timed out, requesting change view", zap.Uint32("height", blockIndex), zap.Uint8("view", view))
	s.broadcastChangeView()
}

func (s *Service) sendPrepareRequest() {
	s.mu.Lock()
	hashes := s.cfg.Mempool.GetSortedVerifiedTransactions(block.MaxTransactionsPerBlock)
	txHashes := make([]util.Uint256, len(hashes))
	for i, tx := range hashes {
		txHashes[i] = tx.Hash()
	}
	nextConsensus, err := keys.GetVerificationScriptHash(s.m, s.cfg.Validators)
	view := s.view
	blockIndex := s.blockIndex
	prevHash := s.cfg.Ledger.CurrentBlockHash()
	s.mu.Unlock()
	if err != nil {
		s.log.Error("failed to compute next consensus account", zap.Error(err))
		return
	}

	req := &prepareRequest{
		timestamp:         uint32(time.Now().Unix()),
		nonce:             uint64(blockIndex)<<32 | uint64(view),
		transactionHashes: txHashes,
		nextConsensus:     nextConsensus,
	}
	p := newPayload(prepareRequestType, view, blockIndex, prevHash, uint16(s.cfg.MyIndex), req)
	if err := p.Sign(s.cfg.Key); err != nil {
		s.log.Error("failed to sign prepare request", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.prepareReq = p
	s.state = statePrimaryRequestSent
	s.preparations[uint16(s.cfg.MyIndex)] = p
	s.mu.Unlock()

	s.broadcast(p)
}

func (s *Service) broadcastChangeView() {
	s.mu.Lock()
	view := s.view
	blockIndex := s.blockIndex
	prevHash := s.cfg.Ledger.CurrentBlockHash()
	s.mu.Unlock()

	cv := &changeView{newViewNumber: view + 1, timestamp: uint64(time.Now().Unix())}
	p := newPayload(changeViewType, view, blockIndex, prevHash, uint16(s.cfg.MyIndex), cv)
	if err := p.Sign(s.cfg.Key); err != nil {
		s.log.Error("failed to sign change view", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.changeViews[uint16(s.cfg.MyIndex)] = p
	s.mu.Unlock()

	s.broadcast(p)
	s.checkChangeView(p.GetChangeView().newViewNumber)
}

func (s *Service) broadcast(p *Payload) {
	s.cache.Add(p)
	if s.cfg.Broadcast != nil {
		s.cfg.Broadcast(p)
	}
}

// OnPayload processes a consensus payload received from a peer,
// dispatching by message type (§4.7).
func (s *Service) OnPayload(p *Payload) error {
	s.mu.Lock()
	stale := p.Height() != s.blockIndex
	s.mu.Unlock()
	if stale {
		return nil
	}
	if int(p.ValidatorIndex()) >= s.n {
		return fmt.Errorf("consensus: validator index %d out of range", p.ValidatorIndex())
	}
	pub := s.cfg.Validators[p.ValidatorIndex()]
	if !p.VerifySignature(pub) {
		return fmt.Errorf("consensus: invalid signature from validator %d", p.ValidatorIndex())
	}
	s.cache.Add(p)

	switch p.Type() {
	case prepareRequestType:
		return s.onPrepareRequest(p)
	case prepareResponseType:
		return s.onPrepareResponse(p)
	case commitType:
		return s.onCommit(p)
	case changeViewType:
		return s.onChangeView(p)
	case recoveryRequestType:
		return s.onRecoveryRequest(p)
	case recoveryMessageType:
		return s.onRecoveryMessage(p)
	default:
		return fmt.Errorf("consensus: unhandled message type %s", p.Type())
	}
}

// GetPayload returns a previously broadcast or received payload by
// hash, the accessor peer recovery requests resolve against.
func (s *Service) GetPayload(h util.Uint256) *Payload {
	return s.cache.Get(h)
}

func (s *Service) onPrepareRequest(p *Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ViewNumber() != s.view || s.primaryIndex(s.view) != p.ValidatorIndex() {
		return nil
	}
	if s.prepareReq != nil {
		return nil
	}
	s.prepareReq = p
	s.preparations[p.ValidatorIndex()] = p

	req := p.GetPrepareRequest()
	hdr := block.Header{
		Version:       block.VersionInitial,
		PrevHash:      p.PrevHash(),
		Timestamp:     uint64(req.timestamp) * 1000,
		Nonce:         req.nonce,
		Index:         s.blockIndex,
		PrimaryIndex:  byte(p.ValidatorIndex()),
		NextConsensus: req.nextConsensus,
	}
	s.candidate = &block.Block{Header: hdr}

	resp := &prepareResponse{preparationHash: p.Hash()}
	rp := newPayload(prepareResponseType, s.view, s.blockIndex, p.PrevHash(), uint16(s.cfg.MyIndex), resp)
	if err := rp.Sign(s.cfg.Key); err != nil {
		return err
	}
	s.preparations[uint16(s.cfg.MyIndex)] = rp
	s.state = stateResponseSent

	s.mu.Unlock()
	s.broadcast(rp)
	s.mu.Lock()

	s.checkPrepareLocked()
	return nil
}

func (s *Service) onPrepareResponse(p *Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ViewNumber() != s.view {
		return nil
	}
	s.preparations[p.ValidatorIndex()] = p
	s.checkPrepareLocked()
	return nil
}

// checkPrepareLocked sends this validator's Commit once at least M
// preparations (the PrepareRequest's own implicit preparation counts as
// the primary's) are present for the current view. Callers must hold s.mu.
func (s *Service) checkPrepareLocked() {
	if s.state != stateResponseSent && s.state != statePrimaryRequestSent {
		return
	}
	if s.prepareReq == nil || len(s.preparations) < s.m {
		return
	}

	sig, err := s.cfg.Key.Sign(s.prepareReq.signedData())
	if err != nil {
		s.log.Error("failed to sign commit", zap.Error(err))
		return
	}
	var sigArr [signatureSize]byte
	copy(sigArr[:], sig)
	c := &commit{signature: sigArr}
	cp := newPayload(commitType, s.view, s.blockIndex, s.prepareReq.PrevHash(), uint16(s.cfg.MyIndex), c)
	if err := cp.Sign(s.cfg.Key); err != nil {
		s.log.Error("failed to sign commit payload", zap.Error(err))
		return
	}
	s.commits[uint16(s.cfg.MyIndex)] = cp
	s.state = stateCommitSent

	s.mu.Unlock()
	s.broadcast(cp)
	s.mu.Lock()

	s.checkCommitLocked()
}

// onCommit records p regardless of its view number: once a validator
// commits it never un-commits, so a peer's commit for a view this
// validator already moved past must still count toward the quorum
// (§4.7's safety invariant).
func (s *Service) onCommit(p *Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits[p.ValidatorIndex()] = p
	s.checkCommitLocked()
	return nil
}

// checkCommitLocked persists the candidate block once at least M
// commits are present, the point at which the block is final: this
// validator never commits a second, different block for the same
// height after that (§4.7's safety invariant).
func (s *Service) checkCommitLocked() {
	if s.state == stateBlockSent || s.candidate == nil || len(s.commits) < s.m {
		return
	}

	s.candidate.Transactions = s.resolveTransactionsLocked()
	s.candidate.RebuildMerkleRoot()
	s.candidate.Script = s.buildMultisigWitnessLocked()
	s.state = stateBlockSent

	b := s.candidate
	idx := s.blockIndex
	s.mu.Unlock()
	err := s.cfg.Ledger.AddBlock(b)
	s.mu.Lock()
	if err != nil {
		s.log.Error("failed to persist agreed block", zap.Uint32("height", idx), zap.Error(err))
		return
	}
	s.log.Info("block committed", zap.Uint32("height", idx), zap.Stringer("hash", b.Hash()))

	s.cfg.Mempool.RemoveStale(hashesOf(b.Transactions))
	s.blockIndex = idx + 1
	s.mu.Unlock()
	s.resetRound(0)
	s.mu.Lock()
}

func hashesOf(txs []*transaction.Transaction) []util.Uint256 {
	out := make([]util.Uint256, len(txs))
	for i, tx := range txs {
		out[i] = tx.Hash()
	}
	return out
}

// resolveTransactionsLocked pulls the candidate's transaction hashes
// out of the mempool in the order the PrepareRequest named them.
// Callers must hold s.mu.
func (s *Service) resolveTransactionsLocked() []*transaction.Transaction {
	req := s.prepareReq.GetPrepareRequest()
	verified := s.cfg.Mempool.GetVerifiedTransactions()
	byHash := make(map[util.Uint256]*transaction.Transaction, len(verified))
	for _, tx := range verified {
		byHash[tx.Hash()] = tx
	}
	out := make([]*transaction.Transaction, 0, len(req.transactionHashes))
	for _, h := range req.transactionHashes {
		if tx, ok := byHash[h]; ok {
			out = append(out, tx)
		}
	}
	return out
}

// buildMultisigWitnessLocked assembles the block's multisig witness out
// of the M collected commit signatures. Callers must hold s.mu.
func (s *Service) buildMultisigWitnessLocked() transaction.Witness {
	invocation := make([]byte, 0, s.m*(signatureSize+2))
	for i := 0; i < s.n && len(s.commits) > 0; i++ {
		c, ok := s.commits[uint16(i)]
		if !ok {
			continue
		}
		sig := c.GetCommit().signature
		invocation = append(invocation, byte(0x0C), byte(signatureSize))
		invocation = append(invocation, sig[:]...)
	}
	script, _ := keys.CreateMultisigRedeemScript(s.m, s.cfg.Validators)
	return transaction.Witness{InvocationScript: invocation, VerificationScript: script}
}

func (s *Service) onChangeView(p *Payload) error {
	s.mu.Lock()
	s.changeViews[p.ValidatorIndex()] = p
	s.mu.Unlock()
	s.checkChangeView(p.GetChangeView().newViewNumber)
	return nil
}

// checkChangeView moves the round to newView once at least M
// validators (including a ChangeView this validator itself sent) have
// requested it (§4.7, scenario S5).
func (s *Service) checkChangeView(newView byte) {
	s.mu.Lock()
	count := 0
	for _, p := range s.changeViews {
		if p.GetChangeView().newViewNumber == newView {
			count++
		}
	}
	shouldMove := count >= s.m
	s.mu.Unlock()
	if shouldMove {
		s.resetRound(newView)
	}
}

func (s *Service) onRecoveryRequest(p *Payload) error {
	s.mu.Lock()
	rm := &recoveryMessage{}
	if s.prepareReq != nil {
		rm.addPayload(s.prepareReq)
	}
	for _, pr := range s.preparations {
		if pr != s.prepareReq {
			rm.addPayload(pr)
		}
	}
	for _, cv := range s.changeViews {
		rm.addPayload(cv)
	}
	for _, c := range s.commits {
		rm.addPayload(c)
	}
	view := s.view
	blockIndex := s.blockIndex
	prevHash := p.PrevHash()
	s.mu.Unlock()

	rp := newPayload(recoveryMessageType, view, blockIndex, prevHash, uint16(s.cfg.MyIndex), rm)
	if err := rp.Sign(s.cfg.Key); err != nil {
		return err
	}
	s.broadcast(rp)
	return nil
}

func (s *Service) onRecoveryMessage(p *Payload) error {
	rm := p.GetRecoveryMessage()
	if rm.prepareRequest != nil {
		req := &Payload{message: *rm.prepareRequest}
		if err := s.onPrepareRequest(req); err != nil {
			return err
		}
	}
	for _, cv := range rm.changeViewPayloads {
		s.mu.Lock()
		s.changeViews[uint16(cv.ValidatorIndex)] = &Payload{
			message:        message{Type: changeViewType, ViewNumber: cv.OriginalViewNumber, payload: &changeView{newViewNumber: cv.OriginalViewNumber + 1, timestamp: cv.Timestamp}},
			validatorIndex: uint16(cv.ValidatorIndex),
			Witness:        transaction.Witness{InvocationScript: cv.InvocationScript},
		}
		s.mu.Unlock()
	}
	return nil
}
