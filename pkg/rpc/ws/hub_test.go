package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/core/block"
	"github.com/n3-go/n3node/pkg/core/transaction"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubSubscribeReceivesBlockNotification(t *testing.T) {
	h := NewHub(nil, 0, 0)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(request{Method: "subscribe", Params: []string{string(FeedBlockAdded)}}))

	var ack response
	require.NoError(t, conn.ReadJSON(&ack))
	require.NotEmpty(t, ack.Subscription)

	// give the server a moment to register the subscription before
	// broadcasting, since ServeHTTP's client registration races the
	// test goroutine's WriteJSON above only up to the ack read, not
	// the subsequent broadcast.
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	b := block.New()
	b.Index = 7
	h.NotifyBlock(b)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt response
	require.NoError(t, conn.ReadJSON(&evt))
	require.Equal(t, FeedBlockAdded, evt.Event)
}

func TestHubUnsubscribedClientReceivesNothing(t *testing.T) {
	h := NewHub(nil, 0, 0)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	h.NotifyBlock(block.New())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var evt response
	err := conn.ReadJSON(&evt)
	require.Error(t, err) // read times out: nothing was pushed
}

func TestHubTransactionAddedImplementsMempoolEvents(t *testing.T) {
	h := NewHub(nil, 0, 0)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(request{Method: "subscribe", Params: []string{string(FeedTransactionAdded)}}))
	var ack response
	require.NoError(t, conn.ReadJSON(&ack))

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	h.TransactionAdded(&transaction.Transaction{Nonce: 42})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt response
	require.NoError(t, conn.ReadJSON(&evt))
	require.Equal(t, FeedTransactionAdded, evt.Event)
}

func TestHubMaxClientsRejectsExtraConnection(t *testing.T) {
	h := NewHub(nil, 1, 0)
	srv := httptest.NewServer(h)
	defer srv.Close()

	_ = dial(t, srv)
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Equal(t, 503, resp.StatusCode)
}
