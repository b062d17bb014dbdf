package evidence

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zen-systems/mindgate/pkg/schema"
)

// Cache memoizes extraction results per (category, normalized text) with a
// TTL and a size bound. Expired entries are dropped at read time; when the
// cache is full the oldest-inserted entry is evicted first. A hash
// collision only costs a recompute, never a wrong result.
type Cache struct {
	mu      sync.Mutex
	engine  *Engine
	ttl     time.Duration
	maxSize int
	entries map[string]*cacheEntry
	order   []string
	now     func() time.Time
}

type cacheEntry struct {
	result     *Result
	insertedAt time.Time
}

// NewCache wraps an engine with memoization.
func NewCache(engine *Engine, ttl time.Duration, maxSize int) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Cache{
		engine:  engine,
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// GetOrCompute returns the cached result for (text, category) when fresh,
// otherwise runs the engine and stores the outcome. hit reports whether
// the cache served the result.
func (c *Cache) GetOrCompute(ctx context.Context, text string, category schema.Category, prior *schema.RoutingDecision) (result *Result, hit bool) {
	key := cacheKey(text, category)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		if c.now().Sub(entry.insertedAt) <= c.ttl {
			c.mu.Unlock()
			return entry.result, true
		}
		c.remove(key)
	}
	c.mu.Unlock()

	result = c.engine.Extract(ctx, text, category, prior)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		for len(c.entries) >= c.maxSize {
			c.evictOldest()
		}
		c.entries[key] = &cacheEntry{result: result, insertedAt: c.now()}
		c.order = append(c.order, key)
	}
	return result, false
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictOldest() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			return
		}
	}
}

func (c *Cache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// cacheKey combines the category with a rolling hash of the normalized
// text. djb2 is cheap and collisions are harmless here.
func cacheKey(text string, category schema.Category) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	var h uint64 = 5381
	for i := 0; i < len(normalized); i++ {
		h = h*33 + uint64(normalized[i])
	}
	return string(category) + ":" + strconv.FormatUint(h, 16)
}

// TopTexts is the caller-facing view of a result: items above 0.5
// confidence, crisis categories first then confidence descending, top max
// texts. Hints are prepended outside the cap.
func TopTexts(result *Result, max int, hints ...string) []string {
	if result == nil {
		return hints
	}

	filtered := make([]Item, 0, len(result.Items))
	for _, item := range result.Items {
		if item.Confidence > 0.5 {
			filtered = append(filtered, item)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		ci := strings.Contains(filtered[i].Category, "crisis")
		cj := strings.Contains(filtered[j].Category, "crisis")
		if ci != cj {
			return ci
		}
		return filtered[i].Confidence > filtered[j].Confidence
	})

	if max > 0 && len(filtered) > max {
		filtered = filtered[:max]
	}

	texts := make([]string, 0, len(hints)+len(filtered))
	texts = append(texts, hints...)
	for _, item := range filtered {
		texts = append(texts, item.Text)
	}
	return texts
}
