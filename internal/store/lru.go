package store

import (
	"container/list"
	"sync"

	"github.com/danja/semem/internal/model"
)

// loadCache is the in-memory LRU populated lazily on demand by ID, per
// rule 5. Structurally mirrors model.SessionCache; kept separate because
// this cache is keyed process-wide rather than per-session and is
// invalidated by writes rather than merely capacity-evicted.
type loadCache struct {
	mu       sync.Mutex
	cap      int
	order    *list.List
	elements map[string]*list.Element
}

type loadCacheEntry struct {
	id          string
	interaction *model.Interaction
}

func newLoadCache(capacity int) *loadCache {
	if capacity <= 0 {
		capacity = 10000
	}
	return &loadCache{
		cap:      capacity,
		order:    list.New(),
		elements: make(map[string]*list.Element, capacity),
	}
}

func (c *loadCache) get(id string) (*model.Interaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.elements[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*loadCacheEntry).interaction, true
}

func (c *loadCache) put(interaction *model.Interaction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.elements[interaction.ID]; ok {
		el.Value.(*loadCacheEntry).interaction = interaction
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&loadCacheEntry{id: interaction.ID, interaction: interaction})
	c.elements[interaction.ID] = el

	for c.order.Len() > c.cap {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.elements, oldest.Value.(*loadCacheEntry).id)
	}
}

// invalidate evicts id, forcing the next FetchInteraction to reload it from
// the store. Called whenever a write targets id.
func (c *loadCache) invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.elements[id]
	if !ok {
		return
	}
	c.order.Remove(el)
	delete(c.elements, id)
}

func (c *loadCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
