package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/avessar/geoshrink/internal/feature"
)

// LoadCache memoizes loader results keyed by upload content hash, so
// re-uploading the same file skips the parse. Stages never mutate their
// inputs, which makes sharing one collection across sessions safe.
type LoadCache struct {
	mu      sync.Mutex
	max     int
	entries map[string]*feature.Collection
	order   []string
}

// NewLoadCache creates a cache holding at most max collections; older
// entries are evicted first.
func NewLoadCache(max int) *LoadCache {
	if max <= 0 {
		max = 1
	}
	return &LoadCache{
		max:     max,
		entries: make(map[string]*feature.Collection, max),
	}
}

// Key derives the cache key for one upload: the SHA-256 of the raw bytes
// combined with the declared type and coordinate column names.
func Key(data []byte, kind, latCol, lonCol string) string {
	h := sha256.New()
	h.Write(data)
	fmt.Fprintf(h, "|%s|%s|%s", kind, latCol, lonCol)
	return hex.EncodeToString(h.Sum(nil))
}

// Load returns the memoized collection for key, invoking load on a miss.
// Failed loads are not cached.
func (lc *LoadCache) Load(key string, load func() (*feature.Collection, error)) (*feature.Collection, error) {
	lc.mu.Lock()
	if c, ok := lc.entries[key]; ok {
		lc.mu.Unlock()
		return c, nil
	}
	lc.mu.Unlock()

	c, err := load()
	if err != nil {
		return nil, err
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	if cached, ok := lc.entries[key]; ok {
		return cached, nil
	}

	lc.entries[key] = c
	lc.order = append(lc.order, key)
	if len(lc.order) > lc.max {
		delete(lc.entries, lc.order[0])
		lc.order = lc.order[1:]
	}
	return c, nil
}
