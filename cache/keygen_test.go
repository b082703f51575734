package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, "http://x/photos?a=1", CanonicalKey("GET", "http://x/photos?a=1"))
	assert.Equal(t, "http://x/photos", CanonicalKey("", "http://x/photos"))
	assert.Equal(t, "POST http://x/photos", CanonicalKey("post", "http://x/photos"))
}

func TestKeyForIsDeterministic(t *testing.T) {
	a := KeyFor("GET", "http://x/photos?a=1&b=2")
	assert.Equal(t, a, KeyFor("GET", "http://x/photos?a=1&b=2"))
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, KeyFor("GET", "http://x/photos?b=2&a=1"))
	assert.NotEqual(t, a, KeyFor("DELETE", "http://x/photos?a=1&b=2"))
}

func TestHTTPCacheAdapter(t *testing.T) {
	c := NewMemory(1024)
	h := NewHTTPCache(c)

	h.Set("http://x/photos", []byte("resp"))
	got, ok := h.Get("http://x/photos")
	assert.True(t, ok)
	assert.Equal(t, "resp", string(got))

	// stored under the fingerprint of the canonical key
	direct, ok := c.Lookup(KeyFor("GET", "http://x/photos"))
	assert.True(t, ok)
	assert.Equal(t, "resp", string(direct))

	h.Delete("http://x/photos")
	_, ok = h.Get("http://x/photos")
	assert.True(t, ok, "delete must not invalidate")
}
