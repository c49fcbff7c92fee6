// Package core wires the block/transaction data model (pkg/core/block,
// pkg/core/transaction), the application engine (pkg/core/interop), and
// the native contract registry (pkg/core/native) into a single running
// chain: Blockchain accepts blocks, persists their effects, and answers
// every read the application engine or RPC layer needs of chain state
// (§4.7).
package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/n3-go/n3node/pkg/core/block"
	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/core/native"
	"github.com/n3-go/n3node/pkg/core/transaction"
	"github.com/n3-go/n3node/pkg/crypto/hash"
	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm"
)

// Default gas/fee tuning, overridable via Config.
const (
	DefaultExecFeeFactor    = 30
	DefaultMaxBlockGas      = 9_00000000_0
	DefaultMillisecondsPerBlock = 15000
)

// Config bundles the chain parameters a Blockchain needs at genesis and
// on every subsequent block (§4.7, §4.6's committee/validator sizing).
type Config struct {
	Magic                uint32
	CommitteeSize        int
	ValidatorsCount       int
	StandbyValidators    keys.PublicKeys
	MillisecondsPerBlock uint64
	ExecFeeFactor        int64
	MaxBlockSystemFee    int64
}

// ErrAlreadyExists is returned by AddBlock for a block whose hash the
// chain already has.
var ErrAlreadyExists = errors.New("core: block already exists")

// ErrInvalidBlockIndex is returned by AddBlock when the block does not
// extend the current tip.
var ErrInvalidBlockIndex = errors.New("core: block does not extend current height")

// ErrInvalidPrevHash is returned by AddBlock when PrevHash does not
// match the current tip's hash.
var ErrInvalidPrevHash = errors.New("core: previous hash mismatch")

// ErrTxVerification is returned by AddBlock when a transaction it
// carries fails witness or fee verification.
var ErrTxVerification = errors.New("core: transaction verification failed")

// Blockchain is the running chain: persistent storage, the native
// contract registry, and the bookkeeping needed to answer
// interop.Ledger/native.BlockReader reads (§4.7).
type Blockchain struct {
	cfg Config

	mtx sync.RWMutex

	store     *storage.MemCachedStore
	contracts *native.Contracts

	height uint32
	tip    util.Uint256

	blockCache map[util.Uint256]*block.Block
	indexCache map[uint32]util.Uint256

	blockListeners []func(*block.Block)
}

// OnBlock registers fn to run after every block this chain persists,
// whether relayed in over P2P or produced locally by consensus — the
// single choke point both paths run through in persistBlock. Intended
// for a WebSocket notification service pushing "block_added" events to
// subscribed clients without this package depending on one.
func (bc *Blockchain) OnBlock(fn func(*block.Block)) {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()
	bc.blockListeners = append(bc.blockListeners, fn)
}

// NewBlockchain opens (or initializes) a chain backed by ps, building the
// native contract registry and persisting the genesis block the first
// time the store is empty.
func NewBlockchain(ps storage.Store, cfg Config) (*Blockchain, error) {
	if cfg.CommitteeSize <= 0 {
		cfg.CommitteeSize = 21
	}
	if cfg.ValidatorsCount <= 0 {
		cfg.ValidatorsCount = 7
	}
	if cfg.MillisecondsPerBlock == 0 {
		cfg.MillisecondsPerBlock = DefaultMillisecondsPerBlock
	}
	if cfg.ExecFeeFactor == 0 {
		cfg.ExecFeeFactor = DefaultExecFeeFactor
	}
	if cfg.MaxBlockSystemFee == 0 {
		cfg.MaxBlockSystemFee = DefaultMaxBlockGas
	}

	bc := &Blockchain{
		cfg:        cfg,
		store:      storage.NewMemCachedStore(ps),
		blockCache: make(map[util.Uint256]*block.Block),
		indexCache: make(map[uint32]util.Uint256),
	}
	bc.contracts = native.NewContracts(native.Config{
		CommitteeSize:   cfg.CommitteeSize,
		ValidatorsCount: cfg.ValidatorsCount,
	}, bc)

	raw, err := bc.store.Get(currentBlockKey())
	if err != nil {
		genesis, err := bc.buildGenesis()
		if err != nil {
			return nil, err
		}
		if err := bc.persistBlock(genesis); err != nil {
			return nil, fmt.Errorf("core: persisting genesis: %w", err)
		}
		return bc, nil
	}
	h, idx, err := decodeCurrentBlock(raw)
	if err != nil {
		return nil, err
	}
	bc.tip = h
	bc.height = idx
	return bc, nil
}

func currentBlockKey() []byte { return []byte{byte(storage.SYSCurrentBlock)} }

func decodeCurrentBlock(data []byte) (util.Uint256, uint32, error) {
	r := io.NewBinReaderFromBuf(data)
	var h util.Uint256
	r.ReadBytes(h[:])
	idx := r.ReadU32LE()
	if r.Err != nil {
		return util.Uint256{}, 0, r.Err
	}
	return h, idx, nil
}

func encodeCurrentBlock(h util.Uint256, idx uint32) []byte {
	w := io.NewBufBinWriter()
	w.WriteBytes(h[:])
	w.WriteU32LE(idx)
	return w.Bytes()
}

// buildGenesis assembles the unsigned genesis block: index 0, a zero
// PrevHash, and NextConsensus set to the standby validators' multisig
// account (the account every subsequent block's primary speaker signs
// as, until NeoToken voting changes the committee).
func (bc *Blockchain) buildGenesis() (*block.Block, error) {
	validators := append(keys.PublicKeys{}, bc.cfg.StandbyValidators...)
	validators.Sort()
	var next util.Uint160
	if len(validators) > 0 {
		m := len(validators) - (len(validators)-1)/3
		h, err := keys.GetVerificationScriptHash(m, validators)
		if err != nil {
			return nil, err
		}
		next = h
	}
	b := block.New()
	b.Index = 0
	b.Timestamp = 0
	b.NextConsensus = next
	b.RebuildMerkleRoot()
	return b, nil
}

// CurrentHeight implements interop.Ledger and native.BlockReader.
func (bc *Blockchain) CurrentHeight() uint32 {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	return bc.height
}

// CurrentBlockHash implements interop.Ledger and native.BlockReader.
func (bc *Blockchain) CurrentBlockHash() util.Uint256 {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	return bc.tip
}

// Contracts exposes the native contract registry, e.g. for RPC handlers
// that need NEP-17 balances or policy settings directly.
func (bc *Blockchain) Contracts() *native.Contracts { return bc.contracts }

// Store exposes the underlying key-value store read-only, e.g. for a
// mempool.Feer implementation that reads GAS balances and policy
// settings without going through the VM.
func (bc *Blockchain) Store() storage.Store { return bc.store }

// GetBlock implements native.BlockReader, loading the full block
// (header plus transaction bodies) by hash.
func (bc *Blockchain) GetBlock(h util.Uint256) (*block.Block, bool) {
	bc.mtx.RLock()
	if cached, ok := bc.blockCache[h]; ok {
		bc.mtx.RUnlock()
		return cached, true
	}
	bc.mtx.RUnlock()

	data, err := bc.store.Get(blockKey(h))
	if err != nil {
		return nil, false
	}
	b := &block.Block{}
	r := io.NewBinReaderFromBuf(data)
	b.DecodeBinary(r)
	if r.Err != nil {
		return nil, false
	}
	return b, true
}

// GetBlockByIndex implements native.BlockReader.
func (bc *Blockchain) GetBlockByIndex(index uint32) (*block.Block, bool) {
	bc.mtx.RLock()
	h, ok := bc.indexCache[index]
	bc.mtx.RUnlock()
	if !ok {
		data, err := bc.store.Get(headerHashKey(index))
		if err != nil {
			return nil, false
		}
		if len(data) != util.Uint256Size {
			return nil, false
		}
		var decoded util.Uint256
		copy(decoded[:], data)
		h = decoded
	}
	return bc.GetBlock(h)
}

// GetTransaction implements native.BlockReader, loading a transaction
// plus the height of the block that carries it.
func (bc *Blockchain) GetTransaction(h util.Uint256) (*transaction.Transaction, uint32, bool) {
	data, err := bc.store.Get(txKey(h))
	if err != nil {
		return nil, 0, false
	}
	r := io.NewBinReaderFromBuf(data)
	height := r.ReadU32LE()
	tx := &transaction.Transaction{}
	tx.DecodeBinary(r)
	if r.Err != nil {
		return nil, 0, false
	}
	return tx, height, true
}

// GetContractState implements interop.Ledger by ID: natives resolve
// directly out of the registry, deployed contracts delegate to
// ContractManagement.
func (bc *Blockchain) GetContractState(id int32) (interop.ContractState, bool) {
	if ct, ok := bc.contracts.ByID(id); ok {
		return nativeContractState(ct), true
	}
	return interop.ContractState{}, false
}

// GetContractStateByHash implements interop.Ledger by script hash.
func (bc *Blockchain) GetContractStateByHash(hash util.Uint160) (interop.ContractState, bool) {
	if ct, ok := bc.contracts.ByHash(hash); ok {
		return nativeContractState(ct), true
	}
	return bc.contracts.Management.GetContractStateByHash(bc.newEngine(interop.TriggerApplication, nil), hash)
}

func nativeContractState(ct native.Contract) interop.ContractState {
	md := ct.Metadata()
	return interop.ContractState{ID: md.ID, Hash: md.Hash}
}

func blockKey(h util.Uint256) []byte {
	return append([]byte{byte(storage.DataBlock)}, h.BytesLE()...)
}

func headerHashKey(index uint32) []byte {
	w := io.NewBufBinWriter()
	w.WriteB(byte(storage.IXHeaderHashList))
	w.WriteU32LE(index)
	return w.Bytes()
}

func txKey(h util.Uint256) []byte {
	return append([]byte{byte(storage.DataTransaction)}, h.BytesLE()...)
}

// newEngine builds an application engine scoped to trigger, with
// NativeCall wired back into this chain's native registry so
// System.Contract.Call reaches native targets (§4.6, §5).
func (bc *Blockchain) newEngine(trigger interop.Trigger, container any) *interop.Context {
	ic := interop.NewEngine(trigger, bc, bc.store, container, bc.cfg.MaxBlockSystemFee, bc.cfg.ExecFeeFactor)
	ic.NativeCall = bc.contracts.Invoke
	return ic
}

// AddBlock verifies and persists a block built atop the current tip,
// running every native contract's OnPersist, each transaction's script,
// and PostPersist — in that order — before committing the accumulated
// writes atomically (§4.7's single-writer persistence pipeline).
func (bc *Blockchain) AddBlock(b *block.Block) error {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()

	if b.Index != 0 {
		if b.Index != bc.height+1 {
			return ErrInvalidBlockIndex
		}
		if !b.PrevHash.Equals(bc.tip) {
			return ErrInvalidPrevHash
		}
		for _, tx := range b.Transactions {
			if err := bc.verifyTransaction(tx); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrTxVerification, tx.Hash().StringBE(), err)
			}
		}
	}
	return bc.persistBlock(b)
}

func (bc *Blockchain) persistBlock(b *block.Block) error {
	snapshot := storage.NewMemCachedStore(bc.store)
	ic := interop.NewEngine(interop.TriggerOnPersist, bc, snapshot, b, bc.cfg.MaxBlockSystemFee, bc.cfg.ExecFeeFactor)
	ic.NativeCall = bc.contracts.Invoke
	ic.BlockTime = b.Timestamp

	if err := bc.contracts.OnPersistAll(ic); err != nil {
		return fmt.Errorf("core: OnPersist: %w", err)
	}

	for _, tx := range b.Transactions {
		txSnapshot := storage.NewMemCachedStore(snapshot)
		txCtx := interop.NewEngine(interop.TriggerApplication, bc, txSnapshot, tx, int64(tx.SystemFee), bc.cfg.ExecFeeFactor)
		txCtx.NativeCall = bc.contracts.Invoke
		txCtx.BlockTime = b.Timestamp
		txCtx.LoadScript(tx.Script, vm.CallFlagAll)
		state := txCtx.VM.Run()
		if state == vm.HaltState {
			if err := txSnapshot.Commit(); err != nil {
				return fmt.Errorf("core: tx %s: commit: %w", tx.Hash().StringBE(), err)
			}
		} else {
			// A faulted transaction is still recorded in the block, but
			// none of its own writes land in the committed snapshot. No
			// system or network fee is charged to the sender, whether the
			// script halts or faults.
			txSnapshot.Discard()
		}
		bc.recordTransaction(snapshot, b, tx)
	}

	ppCtx := interop.NewEngine(interop.TriggerPostPersist, bc, snapshot, b, bc.cfg.MaxBlockSystemFee, bc.cfg.ExecFeeFactor)
	ppCtx.NativeCall = bc.contracts.Invoke
	ppCtx.BlockTime = b.Timestamp
	if err := bc.contracts.PostPersistAll(ppCtx); err != nil {
		return fmt.Errorf("core: PostPersist: %w", err)
	}

	bc.storeBlock(snapshot, b)

	if err := snapshot.Commit(); err != nil {
		return fmt.Errorf("core: commit: %w", err)
	}

	bc.tip = b.Hash()
	bc.height = b.Index
	bc.blockCache[bc.tip] = b
	bc.indexCache[b.Index] = bc.tip
	for _, fn := range bc.blockListeners {
		fn(b)
	}
	return nil
}

func (bc *Blockchain) storeBlock(snapshot *storage.MemCachedStore, b *block.Block) {
	buf := io.NewBufBinWriter()
	b.EncodeBinary(buf.BinWriter)
	_ = snapshot.Put(blockKey(b.Hash()), buf.Bytes())
	_ = snapshot.Put(headerHashKey(b.Index), b.Hash().BytesLE())
	_ = snapshot.Put(currentBlockKey(), encodeCurrentBlock(b.Hash(), b.Index))
}

func (bc *Blockchain) recordTransaction(snapshot *storage.MemCachedStore, b *block.Block, tx *transaction.Transaction) {
	w := io.NewBufBinWriter()
	w.WriteU32LE(b.Index)
	tx.EncodeBinary(w.BinWriter)
	_ = snapshot.Put(txKey(tx.Hash()), w.Bytes())
}

// VerifyTransaction exposes verifyTransaction to callers outside this
// package, such as the P2P layer deciding whether to admit a relayed
// transaction into the mempool.
func (bc *Blockchain) VerifyTransaction(tx *transaction.Transaction) error {
	return bc.verifyTransaction(tx)
}

// verifyTransaction checks a transaction's structural bounds and that
// every signer's witness verifies, ahead of running its script (§4.5).
func (bc *Blockchain) verifyTransaction(tx *transaction.Transaction) error {
	if tx.ValidUntilBlock <= bc.height {
		return errors.New("core: transaction expired")
	}
	if len(tx.Scripts) != len(tx.Signers) {
		return errors.New("core: witness count mismatch")
	}
	signedData := tx.SignedData()
	for i, signer := range tx.Signers {
		w := tx.Scripts[i]
		ok, err := bc.verifyWitness(signer.Account, w, signedData)
		if err != nil || !ok {
			return fmt.Errorf("signer %s: witness check failed", signer.Account.StringBE())
		}
	}
	return nil
}

// verifyWitness runs a witness's invocation and verification scripts
// under the Verification trigger and requires the run leave exactly one
// truthy value on the stack, the same contract every block-level and
// native-level witness check in this engine honors (§4.3, §4.5).
//
// The invocation script only ever pushes signature/argument data for the
// verification script to consume, so the two run back to back as a
// single combined script against one evaluation stack rather than as
// separate LoadScript invocations — each LoadScript starts a context
// with its own fresh stack, which would leave the verification script
// unable to see anything the invocation script pushed.
func (bc *Blockchain) verifyWitness(account util.Uint160, w transaction.Witness, container any) (bool, error) {
	if len(w.VerificationScript) > 0 {
		h := hashScript(w.VerificationScript)
		if !h.Equals(account) {
			return false, errors.New("core: verification script does not match account")
		}
	}
	combined := make([]byte, 0, len(w.InvocationScript)+len(w.VerificationScript))
	combined = append(combined, w.InvocationScript...)
	combined = append(combined, w.VerificationScript...)

	ic := bc.newEngine(interop.TriggerVerification, container)
	vctx := ic.LoadScript(combined, vm.CallFlagReadOnly)
	state := ic.VM.Run()
	if state != vm.HaltState {
		return false, ic.VM.FaultException()
	}
	if vctx.Estack.Len() != 1 {
		return false, errors.New("core: verification script left unexpected stack")
	}
	result := vctx.Estack.Pop()
	return result.Bool(), nil
}

func hashScript(script []byte) util.Uint160 {
	return hash.Hash160(script)
}
