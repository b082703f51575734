package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// CanonicalKey is the canonical request form used to address the cache:
// the URL alone for GET, "METHOD URL" for anything else. It matches the
// key the revalidating HTTP transport computes for a request.
func CanonicalKey(method, rawURL string) string {
	method = strings.ToUpper(method)
	if method == "" || method == http.MethodGet {
		return rawURL
	}
	return method + " " + rawURL
}

// Fingerprint hashes a canonical key into a fixed-length, filename-safe
// cache key.
func Fingerprint(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// KeyFor returns the fingerprint for a request method and URL.
func KeyFor(method, rawURL string) string {
	return Fingerprint(CanonicalKey(method, rawURL))
}
