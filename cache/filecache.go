package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// fileTier stores one JSON file per entry under dir. The file's
// modification time doubles as its last-access stamp, so LRU order can be
// rebuilt from a directory listing. Capacity counts file bytes.
type fileTier struct {
	dir       string
	idx       *lruIndex
	now       func() time.Time
	writeFile func(name string, data []byte, perm os.FileMode) error
}

type fileEntry struct {
	Key      string    `json:"key"`
	StoredAt time.Time `json:"stored_at"`
	Body     []byte    `json:"body"`
}

func openFileTier(dir, namespace string, capacity int64) (*fileTier, error) {
	baseDir := filepath.Join(dir, namespace)
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, err
	}
	fc := &fileTier{dir: baseDir, idx: newLRUIndex(capacity), now: time.Now, writeFile: os.WriteFile}
	if err := fc.load(); err != nil {
		return nil, err
	}
	return fc, nil
}

func (fc *fileTier) load() error {
	ents, err := os.ReadDir(fc.dir)
	if err != nil {
		return err
	}
	type stamp struct {
		name   string
		size   int64
		access time.Time
	}
	var stamps []stamp
	for _, de := range ents {
		name := de.Name()
		if strings.Contains(name, ".tmp.") {
			_ = os.Remove(filepath.Join(fc.dir, name))
			continue
		}
		if de.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		stamps = append(stamps, stamp{name: strings.TrimSuffix(name, ".json"), size: info.Size(), access: info.ModTime()})
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].access.Before(stamps[j].access) })

	for _, s := range stamps {
		if !fc.idx.fits(s.size) {
			_ = os.Remove(fc.pathFor(s.name))
			continue
		}
		for _, evicted := range fc.idx.add(s.name, s.size) {
			_ = os.Remove(fc.pathFor(evicted))
		}
	}
	return nil
}

func (fc *fileTier) get(key string) (Entry, bool) {
	name := fc.name(key)
	if !fc.idx.has(name) {
		return Entry{}, false
	}
	path := fc.pathFor(name)
	data, err := os.ReadFile(path)
	if err != nil {
		fc.idx.remove(name)
		return Entry{}, false
	}
	var fe fileEntry
	if err := json.Unmarshal(data, &fe); err != nil || fe.Key != key {
		return Entry{}, false
	}
	now := fc.now()
	_ = os.Chtimes(path, now, now)
	fc.idx.touch(name)
	return Entry{Key: key, Body: fe.Body, StoredAt: fe.StoredAt}, true
}

func (fc *fileTier) put(e Entry) error {
	name := fc.name(e.Key)
	path := fc.pathFor(name)

	data, err := json.Marshal(&fileEntry{Key: e.Key, StoredAt: e.StoredAt, Body: e.Body})
	if err != nil {
		return err
	}
	size := int64(len(data))
	if !fc.idx.fits(size) {
		fc.idx.remove(name)
		_ = os.Remove(path)
		return ErrTooLarge
	}

	// Write to temporary file first, then rename (atomic operation).
	// On failure the prior entry goes too, it is no longer the latest.
	tmpPath := path + fmt.Sprintf(".tmp.%d", rand.Int())
	if err := fc.writeFile(tmpPath, data, 0o600); err != nil {
		_ = os.Remove(tmpPath)
		fc.drop(name)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		fc.drop(name)
		return err
	}
	for _, evicted := range fc.idx.add(name, size) {
		_ = os.Remove(fc.pathFor(evicted))
	}
	return nil
}

func (fc *fileTier) drop(name string) {
	fc.idx.remove(name)
	_ = os.Remove(fc.pathFor(name))
}

// name maps a key to a file stem; keys are hashed so any string is safe
// as a filename.
func (fc *fileTier) name(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (fc *fileTier) pathFor(name string) string {
	return filepath.Join(fc.dir, name+".json")
}

func (fc *fileTier) len() int     { return fc.idx.len() }
func (fc *fileTier) size() int64  { return fc.idx.used }
func (fc *fileTier) close() error { return nil }
