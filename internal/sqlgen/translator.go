// Package sqlgen translates a plan chain into a single SQLite SELECT
// statement. Translation is referentially transparent: the same plan always
// yields byte-identical SQL, so translated strings are safe to cache and to
// compare in tests.
package sqlgen

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kartikbazzad/lazyq/internal/plan"
)

// Translator converts plans to SQL, memoizing results by plan fingerprint.
type Translator struct {
	cache  *lru.Cache[string, string]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a translator. cacheSize <= 0 disables memoization.
func New(cacheSize int) *Translator {
	t := &Translator{}
	if cacheSize > 0 {
		// lru.New only fails on a non-positive size, checked above.
		t.cache, _ = lru.New[string, string](cacheSize)
	}
	return t
}

// Translate renders the plan rooted at n into one SELECT statement.
func (t *Translator) Translate(n *plan.Node) (string, error) {
	var key string
	if t.cache != nil {
		key = n.Fingerprint()
		if sql, ok := t.cache.Get(key); ok {
			t.hits.Add(1)
			return sql, nil
		}
		t.misses.Add(1)
	}

	sql, err := build(n)
	if err != nil {
		return "", err
	}
	if t.cache != nil {
		t.cache.Add(key, sql)
	}
	return sql, nil
}

// CacheStats reports memoization hits and misses since creation.
func (t *Translator) CacheStats() (hits, misses uint64) {
	return t.hits.Load(), t.misses.Load()
}
