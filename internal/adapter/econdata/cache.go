package econdata

import (
	"context"
	"fmt"
	"sync"

	"github.com/emberwatch/incident-enrich/internal/domain"
	"github.com/emberwatch/incident-enrich/internal/observability"
)

// CachedProvider wraps the zipcode resolver and economic provider with an
// in-memory LRU cache. Incidents cluster geographically, so the same zipcode
// is assessed many times per run; caching keeps the API volume proportional
// to distinct zipcodes instead of records.
type CachedProvider struct {
	resolver domain.ZipcodeResolver
	provider domain.EconomicProvider
	cache    *lruCache
	metrics  *observability.Metrics
}

// NewCachedProvider creates a cache decorator around the raw client.
func NewCachedProvider(resolver domain.ZipcodeResolver, provider domain.EconomicProvider, maxEntries int, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		resolver: resolver,
		provider: provider,
		cache:    newLRUCache(maxEntries),
		metrics:  metrics,
	}
}

func (c *CachedProvider) Zipcode(ctx context.Context, geo domain.Geo) (string, error) {
	// Round to ~100m so nearby incidents share a cache entry.
	key := fmt.Sprintf("zip:%.3f,%.3f", geo.Lat, geo.Lng)
	if v, ok := c.lookup("zipcode", key); ok {
		return v.(string), nil
	}
	zip, err := c.resolver.Zipcode(ctx, geo)
	if err != nil {
		return zip, err
	}
	c.cache.put(key, zip)
	return zip, nil
}

func (c *CachedProvider) Tourism(ctx context.Context, zipcode string, geo domain.Geo) (domain.TourismMetrics, error) {
	key := "tourism:" + zipcode
	if v, ok := c.lookup("tourism", key); ok {
		return v.(domain.TourismMetrics), nil
	}
	m, err := c.provider.Tourism(ctx, zipcode, geo)
	if err != nil {
		return m, err
	}
	c.cache.put(key, m)
	return m, nil
}

func (c *CachedProvider) Business(ctx context.Context, zipcode string) (domain.BusinessMetrics, error) {
	key := "business:" + zipcode
	if v, ok := c.lookup("business", key); ok {
		return v.(domain.BusinessMetrics), nil
	}
	m, err := c.provider.Business(ctx, zipcode)
	if err != nil {
		return m, err
	}
	c.cache.put(key, m)
	return m, nil
}

func (c *CachedProvider) Evacuation(ctx context.Context, zipcode string) (domain.EvacuationMetrics, error) {
	key := "evacuation:" + zipcode
	if v, ok := c.lookup("evacuation", key); ok {
		return v.(domain.EvacuationMetrics), nil
	}
	m, err := c.provider.Evacuation(ctx, zipcode)
	if err != nil {
		return m, err
	}
	c.cache.put(key, m)
	return m, nil
}

func (c *CachedProvider) Education(ctx context.Context, zipcode string) (domain.EducationMetrics, error) {
	key := "education:" + zipcode
	if v, ok := c.lookup("education", key); ok {
		return v.(domain.EducationMetrics), nil
	}
	m, err := c.provider.Education(ctx, zipcode)
	if err != nil {
		return m, err
	}
	c.cache.put(key, m)
	return m, nil
}

func (c *CachedProvider) lookup(endpoint, key string) (any, bool) {
	v, ok := c.cache.get(key)
	if c.metrics != nil {
		result := "miss"
		if ok {
			result = "hit"
		}
		c.metrics.ProviderCache.WithLabelValues(endpoint, result).Inc()
	}
	return v, ok
}

// lruCache is a simple thread-safe LRU cache.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value any
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
