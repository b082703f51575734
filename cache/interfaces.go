// Package cache provides the bounded response cache shared by every
// request the transport issues. Entries live in a memory tier and a disk
// tier, each with its own byte capacity and least-recently-used eviction.
// There is no TTL: freshness is decided by origin revalidation, not here.
package cache

import (
	"errors"
	"time"
)

// DefaultCapacity is the default size of each tier (500 MB).
const DefaultCapacity int64 = 500 << 20

var (
	// ErrTooLarge is returned by a tier asked to hold an entry bigger than
	// its whole capacity.
	ErrTooLarge = errors.New("cache: entry larger than tier capacity")

	// ErrClosed is returned by a disk tier used after Close.
	ErrClosed = errors.New("cache: closed")
)

// Entry is one stored response.
type Entry struct {
	Key      string
	Body     []byte
	StoredAt time.Time
}

// Reader looks up stored bytes by key.
type Reader interface {
	// Lookup returns the most recently stored bytes for key, or false if
	// the key was never stored or has been evicted.
	Lookup(key string) ([]byte, bool)
}

// Writer stores bytes by key.
type Writer interface {
	// Store replaces any prior entry for key. It never fails; a tier that
	// cannot hold the entry simply does not.
	Store(key string, body []byte)
}

// Cache is the read/write contract the transport depends on.
type Cache interface {
	Reader
	Writer
}

// tier is one bounded storage layer. Tiers are not safe for concurrent
// use on their own; Tiered serializes access.
type tier interface {
	get(key string) (Entry, bool)
	put(e Entry) error
	len() int
	size() int64
	close() error
}
