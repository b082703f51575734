package cache

import "github.com/gregjones/httpcache"

// HTTPCache adapts a Cache to the httpcache.Cache interface used by the
// revalidating transport. httpcache keys are canonical request keys; they
// are fingerprinted before they reach the underlying cache.
type HTTPCache struct {
	cache Cache
}

// NewHTTPCache wraps c for use as an httpcache backend.
func NewHTTPCache(c Cache) *HTTPCache {
	return &HTTPCache{cache: c}
}

// Get implements httpcache.Cache.
func (h *HTTPCache) Get(key string) ([]byte, bool) {
	return h.cache.Lookup(Fingerprint(key))
}

// Set implements httpcache.Cache.
func (h *HTTPCache) Set(key string, responseBytes []byte) {
	h.cache.Store(Fingerprint(key), responseBytes)
}

// Delete implements httpcache.Cache. It does nothing: entries only leave
// the cache through capacity eviction, so a failed revalidation keeps the
// last good response available to cache-only readers.
func (h *HTTPCache) Delete(key string) {}

var _ httpcache.Cache = (*HTTPCache)(nil)
