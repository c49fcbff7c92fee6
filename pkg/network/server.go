package network

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/n3-go/n3node/pkg/consensus"
	"github.com/n3-go/n3node/pkg/core/block"
	"github.com/n3-go/n3node/pkg/core/transaction"
	n3io "github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/mempool"
	"github.com/n3-go/n3node/pkg/util"
)

// SyncState tracks this node's progress relative to its peers'
// reported chain heights. advanceSyncState sets SynchronizingHeaders
// when a peer reports a greater height and Synchronized when none does;
// no code path sets SynchronizingBlocks.
type SyncState byte

// The sync-ladder states; a Server starts at NotSynchronizing.
const (
	NotSynchronizing SyncState = iota
	SynchronizingHeaders
	SynchronizingBlocks
	Synchronized
)

func (s SyncState) String() string {
	switch s {
	case NotSynchronizing:
		return "not_synchronizing"
	case SynchronizingHeaders:
		return "synchronizing_headers"
	case SynchronizingBlocks:
		return "synchronizing_blocks"
	case Synchronized:
		return "synchronized"
	default:
		return "unknown"
	}
}

// Ledger is the chain state a Server reads from and writes blocks
// into; core.Blockchain satisfies it.
type Ledger interface {
	CurrentHeight() uint32
	CurrentBlockHash() util.Uint256
	GetBlock(h util.Uint256) (*block.Block, bool)
	GetBlockByIndex(index uint32) (*block.Block, bool)
	GetTransaction(h util.Uint256) (*transaction.Transaction, uint32, bool)
	AddBlock(b *block.Block) error
	VerifyTransaction(tx *transaction.Transaction) error
}

// addrBookSize bounds the address book's LRU so a malicious peer
// flooding Addr messages cannot grow it without bound.
const addrBookSize = 1000

// Config configures a Server.
type Config struct {
	Magic       uint32
	ListenAddr  string
	SeedList    []string
	UserAgent   string
	MinPeers    int
	MaxPeers    int
	DialTimeout time.Duration
	Ledger      Ledger
	Mempool     *mempool.Pool
	Consensus   *consensus.Service
	Log         *zap.Logger
}

func (c *Config) setDefaults() {
	if c.MinPeers == 0 {
		c.MinPeers = 3
	}
	if c.MaxPeers == 0 {
		c.MaxPeers = 40
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "/N3Node:0.1.0/"
	}
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
}

// Server runs the node's P2P engine: it accepts and dials peer
// connections, answers their inventory and sync requests, and relays new
// transactions/blocks/consensus payloads. It sends no GetHeaders or
// GetBlocks of its own; when a peer sends Headers, it requests the listed
// blocks with GetData.
type Server struct {
	cfg   Config
	log   *zap.Logger
	nonce uint32

	addrBook *lru.Cache

	mu      sync.Mutex
	peers   map[string]*Peer
	state   SyncState

	listener net.Listener
	quit     chan struct{}
	wg       sync.WaitGroup
}

// NewServer builds a Server from cfg, applying defaults for any unset
// tuning parameters.
func NewServer(cfg Config) *Server {
	cfg.setDefaults()
	addrBook, _ := lru.New(addrBookSize)
	return &Server{
		cfg:      cfg,
		log:      cfg.Log,
		nonce:    rand.Uint32(),
		addrBook: addrBook,
		peers:    make(map[string]*Peer),
		state:    NotSynchronizing,
		quit:     make(chan struct{}),
	}
}

// State returns the server's current sync-ladder position.
func (s *Server) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PeerCount returns the number of currently connected peers.
func (s *Server) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// Start opens the listener (if ListenAddr is set), dials the seed
// list, and launches the background maintenance loop. It returns once
// the listener is accepting, or immediately if ListenAddr is empty.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.ListenAddr != "" {
		ln, err := net.Listen("tcp", s.cfg.ListenAddr)
		if err != nil {
			return fmt.Errorf("network: listen: %w", err)
		}
		s.listener = ln
		s.wg.Add(1)
		go s.acceptLoop(ctx)
	}

	for _, addr := range s.cfg.SeedList {
		addr := addr
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.dial(ctx, addr)
		}()
	}

	s.wg.Add(1)
	go s.maintainLoop(ctx)
	return nil
}

// Shutdown closes the listener, disconnects every peer, and waits for
// all background goroutines to exit.
func (s *Server) Shutdown() {
	close(s.quit)
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for _, p := range s.peers {
		p.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				s.log.Warn("accept failed", zap.Error(err))
				return
			}
		}
		if s.PeerCount() >= s.cfg.MaxPeers {
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		go s.handleConn(ctx, conn, false)
	}
}

func (s *Server) dial(ctx context.Context, addr string) {
	conn, err := net.DialTimeout("tcp", addr, s.cfg.DialTimeout)
	if err != nil {
		s.log.Debug("dial failed", zap.String("addr", addr), zap.Error(err))
		return
	}
	s.wg.Add(1)
	go s.handleConn(ctx, conn, true)
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn, outbound bool) {
	defer s.wg.Done()
	id := uuid.NewString()
	log := s.log.With(zap.String("peer", id), zap.String("addr", conn.RemoteAddr().String()))
	peer := NewPeer(id, conn, s.cfg.Magic, log)

	if err := s.handshake(peer, outbound); err != nil {
		log.Debug("handshake failed", zap.Error(err))
		peer.Close()
		return
	}

	s.mu.Lock()
	s.peers[id] = peer
	s.mu.Unlock()
	log.Info("peer connected", zap.Uint32("start_height", peer.Version().StartHeight))

	defer func() {
		s.mu.Lock()
		delete(s.peers, id)
		s.mu.Unlock()
		log.Info("peer disconnected")
	}()

	_ = peer.Run(ctx, s.onMessage)
}

func (s *Server) handshake(peer *Peer, outbound bool) error {
	height := s.cfg.Ledger.CurrentHeight()
	version := NewVersionPayload(s.cfg.Magic, listenPort(s.cfg.ListenAddr), s.nonce, s.cfg.UserAgent, height)

	send := func(cmd CommandType, payload n3io.Serializable) error {
		w := n3io.NewBufBinWriter()
		if payload != nil {
			payload.EncodeBinary(w.BinWriter)
		}
		if w.BinWriter.Err != nil {
			return w.BinWriter.Err
		}
		return peer.Send(NewMessage(s.cfg.Magic, cmd, w.Bytes()))
	}

	if outbound {
		if err := send(CMDVersion, version); err != nil {
			return err
		}
		if err := peer.Send(NewMessage(s.cfg.Magic, CMDVerack, nil)); err != nil {
			return err
		}
	}

	br := n3io.NewBinReaderFromIO(peer.conn)
	var gotVersion, gotVerack bool
	for !gotVersion || !gotVerack {
		var m Message
		m.Decode(br)
		if br.Err != nil {
			return br.Err
		}
		switch m.Command {
		case CMDVersion:
			raw, err := m.RawPayload()
			if err != nil {
				return err
			}
			var v VersionPayload
			v.DecodeBinary(n3io.NewBinReaderFromBuf(raw))
			peer.setVersion(&v)
			gotVersion = true
			if !outbound {
				if err := send(CMDVersion, version); err != nil {
					return err
				}
			}
		case CMDVerack:
			gotVerack = true
			if !outbound {
				if err := peer.Send(NewMessage(s.cfg.Magic, CMDVerack, nil)); err != nil {
					return err
				}
			}
		default:
			return errUnexpectedHandshakeMessage
		}
	}
	return nil
}

var errUnexpectedHandshakeMessage = errors.New("network: expected version/verack during handshake")

func listenPort(addr string) uint16 {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	var port uint16
	_, _ = fmt.Sscanf(portStr, "%d", &port)
	return port
}

// maintainLoop periodically re-evaluates the sync ladder and tops the
// peer count back up from the address book when below MinPeers.
func (s *Server) maintainLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.advanceSyncState()
			s.topUpPeers(ctx)
		}
	}
}

func (s *Server) topUpPeers(ctx context.Context) {
	if s.PeerCount() >= s.cfg.MinPeers {
		return
	}
	for _, key := range s.addrBook.Keys() {
		if s.PeerCount() >= s.cfg.MinPeers {
			return
		}
		addr, ok := s.addrBook.Get(key)
		if !ok {
			continue
		}
		go s.dial(ctx, addr.(string))
	}
}

// bestPeerHeight returns the greatest StartHeight/lastBlock any
// connected peer has reported.
func (s *Server) bestPeerHeight() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best uint32
	for _, p := range s.peers {
		if h := p.LastBlockIndex(); h > best {
			best = h
		}
	}
	return best
}

func (s *Server) advanceSyncState() {
	height := s.cfg.Ledger.CurrentHeight()
	best := s.bestPeerHeight()

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case best <= height:
		s.state = Synchronized
	case s.state == NotSynchronizing || s.state == Synchronized:
		s.state = SynchronizingHeaders
	}
}

// onMessage dispatches one decoded Message from peer to its handler.
func (s *Server) onMessage(peer *Peer, m *Message) {
	raw, err := m.RawPayload()
	if err != nil {
		s.log.Debug("bad payload", zap.Error(err))
		return
	}
	r := n3io.NewBinReaderFromBuf(raw)

	switch m.Command {
	case CMDGetAddr:
		s.onGetAddr(peer)
	case CMDAddr:
		var p AddrPayload
		p.DecodeBinary(r)
		s.onAddr(&p)
	case CMDPing:
		var p PingPayload
		p.DecodeBinary(r)
		peer.setLastBlockIndex(p.LastBlockIndex)
		s.replyPong(peer, p)
	case CMDPong:
		var p PingPayload
		p.DecodeBinary(r)
		peer.setLastBlockIndex(p.LastBlockIndex)
	case CMDInv:
		var p InventoryPayload
		p.DecodeBinary(r)
		s.onInv(peer, &p)
	case CMDGetData:
		var p InventoryPayload
		p.DecodeBinary(r)
		s.onGetData(peer, &p)
	case CMDTransaction:
		var tx transaction.Transaction
		tx.DecodeBinary(r)
		s.onTransaction(peer, &tx)
	case CMDBlock:
		var b block.Block
		b.DecodeBinary(r)
		s.onBlock(peer, &b)
	case CMDGetHeaders, CMDGetBlocks:
		var p GetBlocksPayload
		p.DecodeBinary(r)
		s.onGetHeaders(peer, &p, m.Command == CMDGetBlocks)
	case CMDHeaders:
		var p HeadersPayload
		p.DecodeBinary(r)
		s.onHeaders(&p)
	case CMDExtensible:
		s.onExtensible(raw)
	case CMDFilterLoad:
		var p FilterLoadPayload
		p.DecodeBinary(r)
		if r.Err == nil {
			peer.SetFilter(&p)
		}
	case CMDFilterAdd:
		var p FilterAddPayload
		p.DecodeBinary(r)
		if r.Err == nil {
			peer.AddToFilter(p.Data)
		}
	case CMDFilterClear:
		peer.SetFilter(nil)
	}
}

func (s *Server) onGetAddr(peer *Peer) {
	s.mu.Lock()
	addrs := make([]*AddressAndTime, 0, len(s.peers))
	for _, p := range s.peers {
		if v := p.Version(); v != nil {
			addrs = append(addrs, &AddressAndTime{Timestamp: v.Timestamp, Services: v.Services, Port: v.Port})
		}
	}
	s.mu.Unlock()
	if len(addrs) > maxAddrsInPayload {
		addrs = addrs[:maxAddrsInPayload]
	}
	s.send(peer, CMDAddr, &AddrPayload{Addrs: addrs})
}

func (s *Server) onAddr(p *AddrPayload) {
	for _, a := range p.Addrs {
		ip := net.IP(a.IP[:])
		addr := net.JoinHostPort(ip.String(), fmt.Sprintf("%d", a.Port))
		s.addrBook.Add(addr, addr)
	}
}

func (s *Server) replyPong(peer *Peer, ping PingPayload) {
	pong := &PingPayload{LastBlockIndex: s.cfg.Ledger.CurrentHeight(), Timestamp: ping.Timestamp, Nonce: ping.Nonce}
	s.send(peer, CMDPong, pong)
}

// onInv answers an Inv announcement with a GetData for whichever
// hashes this node doesn't already have.
func (s *Server) onInv(peer *Peer, p *InventoryPayload) {
	var missing []util.Uint256
	for _, h := range p.Hashes {
		if s.haveInventory(p.Type, h) {
			continue
		}
		missing = append(missing, h)
	}
	if len(missing) == 0 {
		return
	}
	s.send(peer, CMDGetData, NewInventoryPayload(p.Type, missing))
}

func (s *Server) haveInventory(typ InventoryType, h util.Uint256) bool {
	switch typ {
	case InventoryTX:
		_, _, ok := s.cfg.Ledger.GetTransaction(h)
		if ok {
			return true
		}
		return s.cfg.Mempool != nil && s.cfg.Mempool.ContainsKey(h)
	case InventoryBlock:
		_, ok := s.cfg.Ledger.GetBlock(h)
		return ok
	default:
		return false
	}
}

// onGetData answers a GetData request with the full objects it has
// (transactions from the ledger or the verified mempool), and NotFound
// for the rest.
func (s *Server) onGetData(peer *Peer, p *InventoryPayload) {
	var notFound []util.Uint256
	for _, h := range p.Hashes {
		switch p.Type {
		case InventoryTX:
			tx, _, ok := s.cfg.Ledger.GetTransaction(h)
			if !ok && s.cfg.Mempool != nil {
				for _, ptx := range s.cfg.Mempool.GetVerifiedTransactions() {
					if ptx.Hash() == h {
						tx, ok = ptx, true
						break
					}
				}
			}
			if !ok {
				notFound = append(notFound, h)
				continue
			}
			s.send(peer, CMDTransaction, tx)
		case InventoryBlock:
			b, ok := s.cfg.Ledger.GetBlock(h)
			if !ok {
				notFound = append(notFound, h)
				continue
			}
			s.send(peer, CMDBlock, b)
		default:
			notFound = append(notFound, h)
		}
	}
	if len(notFound) > 0 {
		s.send(peer, CMDNotFound, NewInventoryPayload(p.Type, notFound))
	}
}

func (s *Server) onTransaction(peer *Peer, tx *transaction.Transaction) {
	if s.cfg.Mempool == nil {
		return
	}
	if err := s.cfg.Ledger.VerifyTransaction(tx); err != nil {
		s.log.Debug("rejected relayed transaction", zap.Error(err))
		return
	}
	if err := s.cfg.Mempool.Add(tx); err != nil {
		return
	}
	s.RelayTransaction(tx)
}

func (s *Server) onBlock(peer *Peer, b *block.Block) {
	if err := s.cfg.Ledger.AddBlock(b); err != nil {
		s.log.Debug("rejected relayed block", zap.Uint32("index", b.Index), zap.Error(err))
		return
	}
	peer.setLastBlockIndex(b.Index)
	s.RelayBlock(b)
}

func (s *Server) onGetHeaders(peer *Peer, p *GetBlocksPayload, wantBlocks bool) {
	start, ok := s.indexOf(p.HashStart)
	if !ok {
		return
	}
	limit := p.Limit()
	if wantBlocks {
		hashes := make([]util.Uint256, 0, limit)
		for i := 1; i <= limit; i++ {
			b, ok := s.cfg.Ledger.GetBlockByIndex(start + uint32(i))
			if !ok {
				break
			}
			hashes = append(hashes, b.Hash())
		}
		if len(hashes) > 0 {
			s.send(peer, CMDInv, NewInventoryPayload(InventoryBlock, hashes))
		}
		return
	}
	headers := make([]*block.Header, 0, limit)
	for i := 1; i <= limit; i++ {
		b, ok := s.cfg.Ledger.GetBlockByIndex(start + uint32(i))
		if !ok {
			break
		}
		headers = append(headers, &b.Header)
	}
	if len(headers) > 0 {
		s.send(peer, CMDHeaders, &HeadersPayload{Headers: headers})
	}
}

func (s *Server) indexOf(hash util.Uint256) (uint32, bool) {
	b, ok := s.cfg.Ledger.GetBlock(hash)
	if !ok {
		return 0, false
	}
	return b.Index, true
}

func (s *Server) onHeaders(p *HeadersPayload) {
	if len(p.Headers) == 0 {
		return
	}
	hashes := make([]util.Uint256, len(p.Headers))
	for i, h := range p.Headers {
		hashes[i] = h.Hash()
	}
	s.mu.Lock()
	var anyPeer *Peer
	for _, peer := range s.peers {
		anyPeer = peer
		break
	}
	s.mu.Unlock()
	if anyPeer != nil {
		s.send(anyPeer, CMDGetData, NewInventoryPayload(InventoryBlock, hashes))
	}
}

func (s *Server) onExtensible(raw []byte) {
	if s.cfg.Consensus == nil {
		return
	}
	var p consensus.Payload
	r := n3io.NewBinReaderFromBuf(raw)
	p.DecodeBinary(r)
	if r.Err != nil {
		return
	}
	if err := s.cfg.Consensus.OnPayload(&p); err != nil {
		s.log.Debug("rejected consensus payload", zap.Error(err))
	}
}

// send encodes payload and queues it on peer's write loop, logging
// (rather than propagating) any encode failure since the caller is
// always a best-effort response to an inbound message.
func (s *Server) send(peer *Peer, cmd CommandType, payload n3io.Serializable) {
	w := n3io.NewBufBinWriter()
	payload.EncodeBinary(w.BinWriter)
	if w.BinWriter.Err != nil {
		s.log.Debug("encode failed", zap.Stringer("command", cmd), zap.Error(w.BinWriter.Err))
		return
	}
	if err := peer.Send(NewMessage(s.cfg.Magic, cmd, w.Bytes())); err != nil {
		s.log.Debug("send failed", zap.Stringer("command", cmd), zap.Error(err))
	}
}

// String implements fmt.Stringer so CommandType reads naturally in log fields.
func (c CommandType) String() string {
	return fmt.Sprintf("0x%02x", byte(c))
}

// broadcast fans payload out to every connected peer, skipping peers
// that have already been sent the same inventory hash where
// applicable (hash is the zero value for non-inventory broadcasts).
// When filterable is true, a peer with a loaded bloom filter that
// doesn't match hash is skipped too (legacy SPV relay).
func (s *Server) broadcast(cmd CommandType, payload n3io.Serializable, hash util.Uint256, filterable bool) {
	w := n3io.NewBufBinWriter()
	payload.EncodeBinary(w.BinWriter)
	if w.BinWriter.Err != nil {
		return
	}
	m := NewMessage(s.cfg.Magic, cmd, w.Bytes())

	s.mu.Lock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	for _, p := range peers {
		if hash != (util.Uint256{}) && p.AlreadySent(hash) {
			continue
		}
		if filterable && !p.WantsTransaction(hash) {
			continue
		}
		if err := p.Send(m); err == nil && hash != (util.Uint256{}) {
			p.MarkSent(hash)
		}
	}
}

// RelayTransaction announces tx to every peer via Inv, skipping peers
// whose loaded bloom filter doesn't match its hash.
func (s *Server) RelayTransaction(tx *transaction.Transaction) {
	s.broadcast(CMDInv, NewInventoryPayload(InventoryTX, []util.Uint256{tx.Hash()}), tx.Hash(), true)
}

// RelayBlock announces b to every peer via Inv.
func (s *Server) RelayBlock(b *block.Block) {
	s.broadcast(CMDInv, NewInventoryPayload(InventoryBlock, []util.Uint256{b.Hash()}), b.Hash(), false)
}

// BroadcastConsensusPayload wraps a dBFT payload as an Extensible
// message and fans it out to every peer; wired as consensus.Config's
// Broadcast hook so the consensus service never needs to know about
// the transport below it.
func (s *Server) BroadcastConsensusPayload(p *consensus.Payload) {
	w := n3io.NewBufBinWriter()
	p.EncodeBinary(w.BinWriter)
	if w.BinWriter.Err != nil {
		return
	}
	m := NewMessage(s.cfg.Magic, CMDExtensible, w.Bytes())
	s.mu.Lock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, pr := range s.peers {
		peers = append(peers, pr)
	}
	s.mu.Unlock()
	for _, pr := range peers {
		_ = pr.Send(m)
	}
}
