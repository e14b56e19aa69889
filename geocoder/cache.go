package geocoder

// lruCache is a simple bounded LRU (least recently used) cache. Recency is
// tracked with a monotonic access counter that only advances on reads and
// inserts. The cache is not internally locked, all access happens under the
// engine mutex.
type lruCache[T any] struct {
	entries     map[string]T
	lastAccess  map[string]int64 // Cache key to access counter value of last use
	accessCount int64
	maxSize     int // Maximum number of entries this cache should hold
}

func newLruCache[T any](maxSize int) *lruCache[T] {
	return &lruCache[T]{
		entries:    map[string]T{},
		lastAccess: map[string]int64{},
		maxSize:    maxSize,
	}
}

// read returns the cached entry for the given key and marks it as recently
// used. The boolean is false on a cache miss.
func (c *lruCache[T]) read(key string) (T, bool) {
	value, ok := c.entries[key]
	if ok {
		c.accessCount++
		c.lastAccess[key] = c.accessCount
	}
	return value, ok
}

// put stores the given entry. When the cache is full, the entry that has
// been unused the longest gets evicted.
func (c *lruCache[T]) put(key string, value T) {
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxSize {
		oldestKey := c.getMinEntry()
		delete(c.entries, oldestKey)
		delete(c.lastAccess, oldestKey)
	}

	c.accessCount++
	c.entries[key] = value
	c.lastAccess[key] = c.accessCount
}

func (c *lruCache[T]) clear() {
	c.entries = map[string]T{}
	c.lastAccess = map[string]int64{}
}

func (c *lruCache[T]) size() int {
	return len(c.entries)
}

// getMinEntry returns the key that hasn't been used longest.
func (c *lruCache[T]) getMinEntry() string {
	minAccess := c.accessCount + 1
	minKey := ""

	for key, access := range c.lastAccess {
		if access < minAccess {
			minAccess = access
			minKey = key
		}
	}

	return minKey
}
