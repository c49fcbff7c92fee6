package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/core/block"
	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/io"
	"github.com/n3-go/n3node/pkg/mempool"
	"github.com/n3-go/n3node/pkg/util"
)

type fakeLedger struct {
	height uint32
	hash   util.Uint256
	added  []*block.Block
}

func (l *fakeLedger) CurrentHeight() uint32       { return l.height }
func (l *fakeLedger) CurrentBlockHash() util.Uint256 { return l.hash }
func (l *fakeLedger) AddBlock(b *block.Block) error {
	l.added = append(l.added, b)
	l.height = b.Index
	l.hash = b.Hash()
	return nil
}

func newTestValidators(t *testing.T, n int) (keys.PublicKeys, []*keys.PrivateKey) {
	t.Helper()
	privs := make([]*keys.PrivateKey, n)
	pubs := make(keys.PublicKeys, n)
	for i := range privs {
		priv, err := keys.NewPrivateKey()
		require.NoError(t, err)
		privs[i] = priv
		pubs[i] = priv.PublicKey()
	}
	return pubs, privs
}

func newTestService(t *testing.T, idx int, pubs keys.PublicKeys, priv *keys.PrivateKey, ledger *fakeLedger) *Service {
	t.Helper()
	s, err := NewService(Config{
		Ledger:          ledger,
		Mempool:         mempool.New(100, nil, nil),
		Key:             priv,
		Validators:      pubs,
		MyIndex:         idx,
		SecondsPerBlock: time.Hour,
	})
	require.NoError(t, err)
	return s
}

// TestServiceQuorumSizing implements scenario S5's setup: N=4
// validators tolerate f=1 fault and require M=3 agreements.
func TestServiceQuorumSizing(t *testing.T) {
	pubs, privs := newTestValidators(t, 4)
	ledger := &fakeLedger{}
	s := newTestService(t, 0, pubs, privs[0], ledger)
	require.Equal(t, 4, s.n)
	require.Equal(t, 1, s.f)
	require.Equal(t, 3, s.m)
}

func TestServicePrimaryIndexRotatesWithView(t *testing.T) {
	pubs, privs := newTestValidators(t, 4)
	ledger := &fakeLedger{}
	s := newTestService(t, 0, pubs, privs[0], ledger)
	s.blockIndex = 10

	require.Equal(t, uint16(2), s.primaryIndex(0))
	require.Equal(t, uint16(1), s.primaryIndex(1))
	require.Equal(t, uint16(0), s.primaryIndex(2))
}

// TestServiceChangeViewQuorum implements scenario S5: a view only
// advances once M=3 of the 4 validators have requested it, not before.
func TestServiceChangeViewQuorum(t *testing.T) {
	pubs, privs := newTestValidators(t, 4)
	ledger := &fakeLedger{}
	s := newTestService(t, 0, pubs, privs[0], ledger)
	s.blockIndex = 1
	s.view = 0
	s.changeViews = make(map[uint16]*Payload)
	s.preparations = make(map[uint16]*Payload)
	s.commits = make(map[uint16]*Payload)
	s.timer = time.NewTimer(time.Hour)

	for i := 0; i < 2; i++ {
		cv := &changeView{newViewNumber: 1}
		p := newPayload(changeViewType, 0, 1, util.Uint256{}, uint16(i), cv)
		require.NoError(t, p.Sign(privs[i]))
		require.NoError(t, s.OnPayload(p))
	}
	require.Equal(t, byte(0), s.view, "two change-view requests must not yet move the round")

	cv := &changeView{newViewNumber: 1}
	p := newPayload(changeViewType, 0, 1, util.Uint256{}, uint16(2), cv)
	require.NoError(t, p.Sign(privs[2]))
	require.NoError(t, s.OnPayload(p))

	require.Equal(t, byte(1), s.view, "the third change-view request must reach quorum and advance the view")
}

func TestPayloadSignAndVerifyRoundTrip(t *testing.T) {
	pubs, privs := newTestValidators(t, 1)
	req := &prepareRequest{timestamp: 1, nonce: 2}
	p := newPayload(prepareRequestType, 0, 5, util.Uint256{}, 0, req)
	require.NoError(t, p.Sign(privs[0]))
	require.True(t, p.VerifySignature(pubs[0]))

	tampered := *p
	tampered.height = 6
	require.False(t, tampered.VerifySignature(pubs[0]))
}

func TestPayloadEncodeDecodeRoundTrip(t *testing.T) {
	req := &prepareRequest{timestamp: 42, nonce: 7, transactionHashes: []util.Uint256{{1}, {2}}}
	p := newPayload(prepareRequestType, 1, 9, util.Uint256{3}, 0, req)
	_, privs := newTestValidators(t, 1)
	require.NoError(t, p.Sign(privs[0]))

	w := io.NewBufBinWriter()
	p.EncodeBinary(w.BinWriter)

	var out Payload
	r := io.NewBinReaderFromBuf(w.Bytes())
	out.DecodeBinary(r)
	require.NoError(t, r.Err)
	require.Equal(t, p.Height(), out.Height())
	require.Equal(t, p.ViewNumber(), out.ViewNumber())
	require.Equal(t, req.timestamp, out.GetPrepareRequest().timestamp)
	require.Equal(t, req.transactionHashes, out.GetPrepareRequest().transactionHashes)
}
