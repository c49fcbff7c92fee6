package consensus

import (
	"container/list"
	"sync"

	"github.com/n3-go/n3node/pkg/util"
)

// relayCacheCapacity bounds how many recent consensus payloads a
// validator keeps around to answer GetPayload lookups from peers that
// missed the original broadcast.
const relayCacheCapacity = 100

// relayCache is a small FIFO payload cache: recently seen consensus
// payloads are kept long enough for a lagging peer's recovery request
// to find them, then evicted oldest-first.
type relayCache struct {
	mu     sync.RWMutex
	maxCap int
	elems  map[util.Uint256]*list.Element
	queue  *list.List
}

func newRelayCache(capacity int) *relayCache {
	return &relayCache{
		maxCap: capacity,
		elems:  make(map[util.Uint256]*list.Element),
		queue:  list.New(),
	}
}

// Add inserts p into the cache if it isn't already there, evicting the
// oldest entry if that would exceed capacity.
func (c *relayCache) Add(p *Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := p.Hash()
	if _, ok := c.elems[h]; ok {
		return
	}
	if c.queue.Len() >= c.maxCap {
		front := c.queue.Front()
		c.queue.Remove(front)
		delete(c.elems, front.Value.(*Payload).Hash())
	}
	c.elems[h] = c.queue.PushBack(p)
}

// Get returns the cached payload with hash h, or nil.
func (c *relayCache) Get(h util.Uint256) *Payload {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.elems[h]
	if !ok {
		return nil
	}
	return e.Value.(*Payload)
}
