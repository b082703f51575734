package cache

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Value layout: 8 bytes stored-at || 8 bytes last-access (both unix nanos,
// big endian) || body.
const boltHeader = 16

// boltTier is a disk tier backed by a single bbolt file. Its capacity
// counts stored bytes including the header.
type boltTier struct {
	db     *bolt.DB
	bucket []byte
	idx    *lruIndex
	now    func() time.Time
}

func openBoltTier(dir, namespace string, capacity int64) (*boltTier, error) {
	path := filepath.Join(dir, namespace+".bolt")
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	t := &boltTier{
		db:     db,
		bucket: []byte(namespace),
		idx:    newLRUIndex(capacity),
		now:    time.Now,
	}
	if err := t.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return t, nil
}

// load rebuilds the LRU order from the stored access stamps and drops
// whatever no longer fits the configured capacity.
func (t *boltTier) load() error {
	type stamp struct {
		key    string
		size   int64
		access int64
	}
	var stamps []stamp
	err := t.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(t.bucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			if len(v) < boltHeader {
				return nil
			}
			stamps = append(stamps, stamp{
				key:    string(k),
				size:   int64(len(v)),
				access: int64(binary.BigEndian.Uint64(v[8:16])),
			})
			return nil
		})
	})
	if err != nil {
		return err
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].access < stamps[j].access })

	var drop []string
	for _, s := range stamps {
		if !t.idx.fits(s.size) {
			drop = append(drop, s.key)
			continue
		}
		drop = append(drop, t.idx.add(s.key, s.size)...)
	}
	if len(drop) == 0 {
		return nil
	}
	return t.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.bucket)
		for _, k := range drop {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (t *boltTier) get(key string) (Entry, bool) {
	if t.db == nil || !t.idx.has(key) {
		return Entry{}, false
	}
	var e Entry
	var found bool
	err := t.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.bucket)
		v := b.Get([]byte(key))
		if len(v) < boltHeader {
			return nil
		}
		buf := append([]byte(nil), v...)
		binary.BigEndian.PutUint64(buf[8:16], uint64(t.now().UnixNano()))
		e = Entry{
			Key:      key,
			Body:     buf[boltHeader:],
			StoredAt: time.Unix(0, int64(binary.BigEndian.Uint64(buf[:8]))),
		}
		found = true
		return b.Put([]byte(key), buf)
	})
	if err != nil {
		return Entry{}, false
	}
	if !found {
		t.idx.remove(key)
		return Entry{}, false
	}
	t.idx.touch(key)
	return e, true
}

func (t *boltTier) put(e Entry) error {
	if t.db == nil {
		return ErrClosed
	}
	size := int64(boltHeader + len(e.Body))
	if !t.idx.fits(size) {
		t.idx.remove(e.Key)
		_ = t.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(t.bucket).Delete([]byte(e.Key))
		})
		return ErrTooLarge
	}

	buf := make([]byte, size)
	binary.BigEndian.PutUint64(buf[:8], uint64(e.StoredAt.UnixNano()))
	binary.BigEndian.PutUint64(buf[8:16], uint64(t.now().UnixNano()))
	copy(buf[boltHeader:], e.Body)

	evicted := t.idx.add(e.Key, size)
	err := t.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.bucket)
		for _, k := range evicted {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return b.Put([]byte(e.Key), buf)
	})
	if err != nil {
		// evicted keys left on disk are trimmed again by the next load
		t.idx.remove(e.Key)
		return err
	}
	return nil
}

func (t *boltTier) len() int    { return t.idx.len() }
func (t *boltTier) size() int64 { return t.idx.used }

func (t *boltTier) close() error {
	if t.db == nil {
		return nil
	}
	err := t.db.Close()
	t.db = nil
	return err
}
