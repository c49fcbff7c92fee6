// Package ws implements the WebSocket notification service a JSON-RPC
// client subscribes to for real-time "block_added"/"transaction_added"
// feeds, grounded on the reference node's websocket_server
// (Subscribe/Unsubscribe/NotifyNewBlock/NotifyNewTransaction) and on
// the teacher's own subscription_test.go protocol: a client opens a
// connection to /ws, sends {"method":"subscribe","params":["block_added"]}
// and gets back a subscription id; every matching event after that is
// pushed as a JSON envelope carrying that id.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/n3-go/n3node/pkg/core/block"
	"github.com/n3-go/n3node/pkg/core/transaction"
	"github.com/n3-go/n3node/pkg/mempool"
)

// Feed names a subscribable event stream.
type Feed string

// The feeds this hub supports, matching the strings a client passes as
// the first element of a subscribe request's params array.
const (
	FeedBlockAdded       Feed = "block_added"
	FeedTransactionAdded Feed = "transaction_added"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// request is a client-to-server control message: subscribe/unsubscribe
// to a feed.
type request struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
}

// response wraps either a subscribe acknowledgement or a
// pushed event under one envelope, the shape the teacher's
// subscription_test.go decodes (`resp.Event`/a payload keyed by feed).
type response struct {
	Subscription string          `json:"subscription,omitempty"`
	Event        Feed            `json:"event,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan response

	mu   sync.Mutex
	subs map[string]Feed // subscription id -> feed
}

// Hub fans out block/transaction events to every subscribed client.
// It implements mempool.Events directly so it can be handed to
// mempool.New as the pool's event sink alongside its own logging.
type Hub struct {
	log *zap.Logger

	maxClients int
	maxFeeds   int

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub builds a Hub. maxClients/maxFeeds bound concurrent connections
// and per-client subscriptions (0 means unbounded), mirroring
// ApplicationConfiguration.RPC.MaxWebSocketClients/MaxWebSocketFeeds.
func NewHub(log *zap.Logger, maxClients, maxFeeds int) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{log: log, maxClients: maxClients, maxFeeds: maxFeeds, clients: make(map[*client]struct{})}
}

// ServeHTTP upgrades the request to a WebSocket connection and runs it
// until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	full := h.maxClients > 0 && len(h.clients) >= h.maxClients
	h.mu.Unlock()
	if full {
		http.Error(w, "too many websocket clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan response, 64), subs: make(map[string]Feed)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
}

func (h *Hub) readPump(c *client) {
	defer c.conn.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var req request
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}
		h.handleRequest(c, req)
	}
}

func (h *Hub) handleRequest(c *client, req request) {
	if len(req.Params) == 0 {
		return
	}
	feed := Feed(req.Params[0])
	switch req.Method {
	case "subscribe":
		c.mu.Lock()
		full := h.maxFeeds > 0 && len(c.subs) >= h.maxFeeds
		var id string
		if !full {
			id = uuid.NewString()
			c.subs[id] = feed
		}
		c.mu.Unlock()
		if full {
			return
		}
		c.send <- response{Subscription: id}
	case "unsubscribe":
		c.mu.Lock()
		delete(c.subs, req.Params[0])
		c.mu.Unlock()
	}
}

func (h *Hub) writePump(c *client) {
	for resp := range c.send {
		data, err := json.Marshal(resp)
		if err != nil {
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (h *Hub) broadcast(feed Feed, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn("websocket broadcast: marshal failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.mu.Lock()
		var subID string
		for id, f := range c.subs {
			if f == feed {
				subID = id
				break
			}
		}
		c.mu.Unlock()
		if subID == "" {
			continue
		}
		select {
		case c.send <- response{Subscription: subID, Event: feed, Payload: data}:
		default:
			h.log.Debug("dropping websocket event: client send buffer full")
		}
	}
}

// NotifyBlock pushes b to every client subscribed to FeedBlockAdded —
// register this as a core.Blockchain.OnBlock listener.
func (h *Hub) NotifyBlock(b *block.Block) {
	h.broadcast(FeedBlockAdded, b)
}

// TransactionAdded implements mempool.Events, pushing tx to every
// client subscribed to FeedTransactionAdded.
func (h *Hub) TransactionAdded(tx *transaction.Transaction) {
	h.broadcast(FeedTransactionAdded, tx)
}

// TransactionRemoved implements mempool.Events; removals aren't a
// feed clients subscribe to here, only additions and inclusion in a
// block (itself visible via FeedBlockAdded).
func (h *Hub) TransactionRemoved(*transaction.Transaction, mempool.RemovalReason) {}

// ClientCount returns the number of currently connected WebSocket
// clients, exposed for a getconnectioncount-style RPC method.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
