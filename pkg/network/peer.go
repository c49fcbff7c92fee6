package network

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	n3io "github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
)

// knownCacheSize bounds the rolling "already sent to this peer" hash
// cache: once full, the oldest entry is evicted to make room for the
// newest, so a long-lived peer never re-receives an Inv it has already
// been sent without growing the cache without bound.
const knownCacheSize = 4096

// ErrPeerStopped is returned by Send once a peer's write loop has shut
// down.
var ErrPeerStopped = errors.New("network: peer connection closed")

// Peer wraps one persistent TCP connection to another node: framed
// message read/write loops, a handshake-completion gate, and an
// already-relayed-hash cache that suppresses redundant Inv traffic.
type Peer struct {
	id    string
	conn  net.Conn
	magic uint32
	log   *zap.Logger
	out   chan *Message
	quit  chan struct{}
	wg    sync.WaitGroup
	known *lru.Cache

	mu        sync.Mutex
	version   *VersionPayload
	lastBlock uint32
	filter    *BloomFilter
}

// NewPeer wraps conn as a Peer, identified by a freshly generated
// session id so log lines and recovery-mode diagnostics can tell
// multiple concurrent connections to the same remote address apart.
func NewPeer(id string, conn net.Conn, magic uint32, log *zap.Logger) *Peer {
	known, _ := lru.New(knownCacheSize)
	return &Peer{
		id:    id,
		conn:  conn,
		magic: magic,
		log:   log,
		out:   make(chan *Message, 64),
		quit:  make(chan struct{}),
		known: known,
	}
}

// ID returns this peer's session identifier.
func (p *Peer) ID() string { return p.id }

// RemoteAddr returns the underlying connection's remote address.
func (p *Peer) RemoteAddr() net.Addr { return p.conn.RemoteAddr() }

// Version returns the VersionPayload this peer announced, or nil
// before the handshake completes.
func (p *Peer) Version() *VersionPayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

// setVersion records the peer's handshake VersionPayload.
func (p *Peer) setVersion(v *VersionPayload) {
	p.mu.Lock()
	p.version = v
	p.lastBlock = v.StartHeight
	p.mu.Unlock()
}

// LastBlockIndex returns the peer's most recently announced height,
// updated either by its handshake StartHeight or a subsequent Ping.
func (p *Peer) LastBlockIndex() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastBlock
}

func (p *Peer) setLastBlockIndex(h uint32) {
	p.mu.Lock()
	if h > p.lastBlock {
		p.lastBlock = h
	}
	p.mu.Unlock()
}

// SetFilter installs or replaces the peer's bloom filter (FilterLoad),
// or clears it when load is nil (FilterClear).
func (p *Peer) SetFilter(load *FilterLoadPayload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if load == nil {
		p.filter = nil
		return
	}
	p.filter = NewBloomFilter(load)
}

// AddToFilter folds one more element into the peer's existing filter,
// if it has loaded one (FilterAdd).
func (p *Peer) AddToFilter(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.filter != nil {
		p.filter.Add(data)
	}
}

// WantsTransaction reports whether tx's hash matches the peer's loaded
// bloom filter, or true if the peer hasn't loaded one (full relay).
func (p *Peer) WantsTransaction(hash util.Uint256) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.filter == nil {
		return true
	}
	return p.filter.Contains(hash[:])
}

// MarkSent records that hash was already announced to this peer, so a
// later relay pass can skip it.
func (p *Peer) MarkSent(hash [32]byte) {
	p.known.Add(hash, struct{}{})
}

// AlreadySent reports whether hash was previously passed to MarkSent.
func (p *Peer) AlreadySent(hash [32]byte) bool {
	return p.known.Contains(hash)
}

// Send queues a message for the write loop, returning ErrPeerStopped
// if the peer has already disconnected.
func (p *Peer) Send(m *Message) error {
	select {
	case p.out <- m:
		return nil
	case <-p.quit:
		return ErrPeerStopped
	}
}

// Run starts the peer's read and write loops and blocks until either
// fails or ctx is cancelled, at which point the connection is closed
// and both loops torn down.
func (p *Peer) Run(ctx context.Context, onMessage func(*Peer, *Message)) error {
	errCh := make(chan error, 2)

	p.wg.Add(2)
	go p.readLoop(onMessage, errCh)
	go p.writeLoop(errCh)

	select {
	case <-ctx.Done():
		p.Close()
		p.wg.Wait()
		return ctx.Err()
	case err := <-errCh:
		p.Close()
		p.wg.Wait()
		return err
	}
}

// Close shuts down the peer's connection and signals both loops to
// exit; safe to call more than once.
func (p *Peer) Close() {
	select {
	case <-p.quit:
	default:
		close(p.quit)
		_ = p.conn.Close()
	}
}

func (p *Peer) readLoop(onMessage func(*Peer, *Message), errCh chan<- error) {
	defer p.wg.Done()
	br := n3io.NewBinReaderFromIO(bufio.NewReader(p.conn))
	for {
		select {
		case <-p.quit:
			return
		default:
		}
		var m Message
		m.Decode(br)
		if br.Err != nil {
			errCh <- br.Err
			return
		}
		if m.Magic != p.magic {
			errCh <- errMagicMismatch
			return
		}
		onMessage(p, &m)
	}
}

// pingInterval is how often an otherwise-idle peer connection is kept
// alive with a Ping carrying this node's current height.
const pingInterval = 30 * time.Second

func (p *Peer) writeLoop(errCh chan<- error) {
	defer p.wg.Done()
	bw := bufio.NewWriter(p.conn)
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	write := func(m *Message) error {
		w := n3io.NewBinWriterFromIO(bw)
		m.Encode(w)
		if w.Err != nil {
			return w.Err
		}
		return bw.Flush()
	}

	for {
		select {
		case <-p.quit:
			return
		case m := <-p.out:
			if err := write(m); err != nil {
				errCh <- err
				return
			}
		case <-ticker.C:
			ping := &PingPayload{LastBlockIndex: p.LastBlockIndex()}
			w := n3io.NewBufBinWriter()
			ping.EncodeBinary(w.BinWriter)
			if err := write(NewMessage(p.magic, CMDPing, w.Bytes())); err != nil {
				errCh <- err
				return
			}
		}
	}
}

var errMagicMismatch = errors.New("network: peer magic does not match this node's network")
