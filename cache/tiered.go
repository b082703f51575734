package cache

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Disk backends.
const (
	BackendBolt = "bolt"
	BackendFile = "file"
	BackendNone = "none"
)

// DefaultNamespace names the on-disk store when Options.Namespace is empty.
const DefaultNamespace = "photofeed"

// Options configures a Tiered cache.
type Options struct {
	// MemoryBytes and DiskBytes bound each tier. Zero means DefaultCapacity.
	MemoryBytes int64
	DiskBytes   int64

	// Dir is where the disk tier lives. Empty disables the disk tier.
	Dir string

	// Namespace is the stable on-disk identifier (bolt file and bucket
	// name, or subdirectory for the file backend).
	Namespace string

	// Backend selects the disk tier: BackendBolt (default), BackendFile
	// or BackendNone.
	Backend string

	Logger *zerolog.Logger
}

// Tiered is a memory tier in front of an optional disk tier. It is safe
// for concurrent use.
type Tiered struct {
	mu   sync.Mutex
	mem  tier
	disk tier
	log  zerolog.Logger
	now  func() time.Time
}

// New builds a Tiered cache, opening the disk tier if one is configured.
func New(opts Options) (*Tiered, error) {
	if opts.MemoryBytes == 0 {
		opts.MemoryBytes = DefaultCapacity
	}
	if opts.DiskBytes == 0 {
		opts.DiskBytes = DefaultCapacity
	}
	if opts.MemoryBytes < 0 || opts.DiskBytes < 0 {
		return nil, errors.New("cache: capacities must be positive")
	}
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	c := &Tiered{
		mem: newMemoryTier(opts.MemoryBytes),
		log: log.With().Str("component", "cache").Logger(),
		now: time.Now,
	}
	if opts.Dir == "" || opts.Backend == BackendNone {
		return c, nil
	}
	if opts.Backend != "" && opts.Backend != BackendBolt && opts.Backend != BackendFile {
		return nil, fmt.Errorf("cache: unknown backend %q", opts.Backend)
	}

	// A disk tier that cannot be opened (another process holding the bolt
	// lock, an unwritable dir) leaves the cache memory-only.
	disk, err := openDisk(opts)
	if err != nil {
		c.log.Warn().Err(err).Str("dir", opts.Dir).Str("backend", opts.Backend).
			Msg("disk tier unavailable, caching in memory only")
		return c, nil
	}
	c.disk = disk
	return c, nil
}

func openDisk(opts Options) (tier, error) {
	if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}
	var (
		t   tier
		err error
	)
	if opts.Backend == BackendFile {
		t, err = openFileTier(opts.Dir, opts.Namespace, opts.DiskBytes)
	} else {
		t, err = openBoltTier(opts.Dir, opts.Namespace, opts.DiskBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("cache: open disk tier: %w", err)
	}
	return t, nil
}

// HasDisk reports whether a disk tier is attached.
func (c *Tiered) HasDisk() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disk != nil
}

// NewMemory builds a memory-only cache.
func NewMemory(capacity int64) *Tiered {
	c, _ := New(Options{MemoryBytes: capacity, Backend: BackendNone})
	return c
}

// Store writes body under key in both tiers, replacing any prior entry.
// A disk failure degrades the entry to memory-only and is only logged.
func (c *Tiered) Store(key string, body []byte) {
	e := Entry{Key: key, Body: append([]byte(nil), body...)}

	c.mu.Lock()
	defer c.mu.Unlock()
	e.StoredAt = c.now()

	if err := c.mem.put(e); err != nil {
		c.log.Debug().Err(err).Str("key", key).Int("bytes", len(body)).Msg("memory tier skipped entry")
	}
	if c.disk == nil {
		return
	}
	if err := c.disk.put(e); err != nil {
		c.log.Warn().Err(err).Str("key", key).Int("bytes", len(body)).Msg("disk tier write failed")
	}
}

// Lookup returns the bytes stored under key. A disk hit is promoted into
// the memory tier.
func (c *Tiered) Lookup(key string) ([]byte, bool) {
	e, ok := c.Get(key)
	if !ok {
		return nil, false
	}
	return e.Body, true
}

// Get is Lookup returning the whole entry.
func (c *Tiered) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.mem.get(key); ok {
		return e, true
	}
	if c.disk == nil {
		return Entry{}, false
	}
	e, ok := c.disk.get(key)
	if !ok {
		return Entry{}, false
	}
	_ = c.mem.put(Entry{Key: e.Key, Body: append([]byte(nil), e.Body...), StoredAt: e.StoredAt})
	return e, true
}

// Stats reports entry counts and bytes held per tier.
type Stats struct {
	MemoryEntries int
	MemoryBytes   int64
	DiskEntries   int
	DiskBytes     int64
}

func (c *Tiered) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{MemoryEntries: c.mem.len(), MemoryBytes: c.mem.size()}
	if c.disk != nil {
		s.DiskEntries = c.disk.len()
		s.DiskBytes = c.disk.size()
	}
	return s
}

// Close releases the disk tier.
func (c *Tiered) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disk == nil {
		return nil
	}
	return c.disk.close()
}

var _ Cache = (*Tiered)(nil)
