// Package cache provides a weight budgeted LRU cache, used for derived
// program addresses and per-payer rate limit buckets.
package cache

import (
	"container/list"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrKeyExists = errors.New("key already exists in cache")

// Cache is a weight budgeted LRU cache.
type Cache interface {
	GetWeight() int
	GetBudget() int
	Insert(key string, value interface{}, weight int) error
	Retrieve(key string) (interface{}, bool)
	Clear()
}

type entry struct {
	key    string
	value  interface{}
	weight int
}

type cache struct {
	log *logrus.Entry

	mu      sync.Mutex
	recency *list.List // front is most recently used
	entries map[string]*list.Element
	weight  int
	budget  int
}

// NewCache returns an empty cache that evicts least recently used entries
// once the total weight exceeds budget.
func NewCache(budget int) Cache {
	return &cache{
		log:     logrus.StandardLogger().WithField("type", "cache"),
		recency: list.New(),
		entries: make(map[string]*list.Element),
		budget:  budget,
	}
}

// GetWeight returns the current total weight of items in the cache.
func (c *cache) GetWeight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

func (c *cache) GetBudget() int {
	return c.budget
}

// Insert adds a new entry as the most recently used, then evicts from the
// least recently used end until the cache is back within budget. Existing
// keys are never replaced.
func (c *cache) Insert(key string, value interface{}, weight int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return ErrKeyExists
	}

	c.entries[key] = c.recency.PushFront(&entry{key: key, value: value, weight: weight})
	c.weight += weight

	for c.weight > c.budget {
		oldest := c.recency.Back()
		if oldest == nil {
			break
		}
		c.evict(oldest)
	}

	return nil
}

// Retrieve returns the value for key and marks it most recently used.
func (c *cache) Retrieve(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	c.recency.MoveToFront(element)
	return element.Value.(*entry).value, true
}

// Clear removes all entries.
func (c *cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.recency.Init()
	c.entries = make(map[string]*list.Element)
	c.weight = 0
}

func (c *cache) evict(element *list.Element) {
	evicted := c.recency.Remove(element).(*entry)
	delete(c.entries, evicted.key)
	c.weight -= evicted.weight

	c.log.WithFields(logrus.Fields{
		"key":          evicted.key,
		"weight":       evicted.weight,
		"spare_weight": c.budget - c.weight,
	}).Trace("evicted cache entry")
}
