package network

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/n3-go/n3node/pkg/core/block"
	"github.com/n3-go/n3node/pkg/core/transaction"
	n3io "github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/util"
)

type fakeLedger struct {
	height   uint32
	byHash   map[util.Uint256]*block.Block
	byIndex  map[uint32]*block.Block
	added    []*block.Block
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{byHash: map[util.Uint256]*block.Block{}, byIndex: map[uint32]*block.Block{}}
}

func (l *fakeLedger) addBlock(index uint32) *block.Block {
	b := block.New()
	b.Index = index
	b.Nonce = uint64(index)
	l.byHash[b.Hash()] = b
	l.byIndex[index] = b
	if index > l.height {
		l.height = index
	}
	return b
}

func (l *fakeLedger) CurrentHeight() uint32          { return l.height }
func (l *fakeLedger) CurrentBlockHash() util.Uint256 { return l.byIndex[l.height].Hash() }
func (l *fakeLedger) GetBlock(h util.Uint256) (*block.Block, bool) {
	b, ok := l.byHash[h]
	return b, ok
}
func (l *fakeLedger) GetBlockByIndex(i uint32) (*block.Block, bool) {
	b, ok := l.byIndex[i]
	return b, ok
}
func (l *fakeLedger) GetTransaction(util.Uint256) (*transaction.Transaction, uint32, bool) {
	return nil, 0, false
}
func (l *fakeLedger) AddBlock(b *block.Block) error {
	l.added = append(l.added, b)
	l.byHash[b.Hash()] = b
	l.byIndex[b.Index] = b
	l.height = b.Index
	return nil
}
func (l *fakeLedger) VerifyTransaction(*transaction.Transaction) error { return nil }

func newTestServer(t *testing.T, ledger *fakeLedger) *Server {
	t.Helper()
	return NewServer(Config{Magic: 1, Ledger: ledger, Log: zap.NewNop()})
}

func newPipedPeer(t *testing.T, magic uint32) (*Peer, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })
	return NewPeer("test-peer", a, magic, zap.NewNop()), b
}

func TestServerOnGetHeadersReturnsHeaders(t *testing.T) {
	ledger := newFakeLedger()
	genesis := ledger.addBlock(0)
	ledger.addBlock(1)
	ledger.addBlock(2)

	s := newTestServer(t, ledger)
	peer, _ := newPipedPeer(t, 1)

	s.onGetHeaders(peer, &GetBlocksPayload{HashStart: genesis.Hash(), Count: 10}, false)

	select {
	case m := <-peer.out:
		require.Equal(t, CMDHeaders, m.Command)
		var p HeadersPayload
		raw, err := m.RawPayload()
		require.NoError(t, err)
		p.DecodeBinary(n3io.NewBinReaderFromBuf(raw))
		require.Len(t, p.Headers, 2)
		require.Equal(t, uint32(1), p.Headers[0].Index)
		require.Equal(t, uint32(2), p.Headers[1].Index)
	default:
		t.Fatal("expected a queued Headers message")
	}
}

func TestServerOnGetDataAnswersNotFoundForMissingBlocks(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addBlock(0)

	s := newTestServer(t, ledger)
	peer, _ := newPipedPeer(t, 1)

	missing := util.Uint256{9, 9, 9}
	s.onGetData(peer, &InventoryPayload{Type: InventoryBlock, Hashes: []util.Uint256{missing}})

	select {
	case m := <-peer.out:
		require.Equal(t, CMDNotFound, m.Command)
	default:
		t.Fatal("expected a queued NotFound message")
	}
}

func TestServerRelayTransactionSkipsAlreadySentPeer(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addBlock(0)
	s := newTestServer(t, ledger)
	peer, _ := newPipedPeer(t, 1)

	s.mu.Lock()
	s.peers[peer.ID()] = peer
	s.mu.Unlock()

	tx := &transaction.Transaction{Nonce: 1, ValidUntilBlock: 100}
	s.RelayTransaction(tx)
	<-peer.out // drain the first Inv

	s.RelayTransaction(tx)
	select {
	case <-peer.out:
		t.Fatal("peer should not be sent the same transaction hash twice")
	default:
	}
}

func TestServerRelayTransactionSkipsFilteredPeer(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addBlock(0)
	s := newTestServer(t, ledger)
	peer, _ := newPipedPeer(t, 1)
	peer.SetFilter(&FilterLoadPayload{Filter: make([]byte, 32), K: 3})
	peer.AddToFilter([]byte("some-other-hash"))

	s.mu.Lock()
	s.peers[peer.ID()] = peer
	s.mu.Unlock()

	tx := &transaction.Transaction{Nonce: 1, ValidUntilBlock: 100}
	s.RelayTransaction(tx)

	select {
	case <-peer.out:
		t.Fatal("peer with a non-matching filter should not receive the Inv")
	default:
	}
}
