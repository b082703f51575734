package cache

// memoryTier keeps entries in a map bounded by total body bytes.
type memoryTier struct {
	idx  *lruIndex
	data map[string]Entry
}

func newMemoryTier(capacity int64) *memoryTier {
	return &memoryTier{
		idx:  newLRUIndex(capacity),
		data: make(map[string]Entry),
	}
}

func (m *memoryTier) get(key string) (Entry, bool) {
	e, ok := m.data[key]
	if !ok {
		return Entry{}, false
	}
	m.idx.touch(key)
	e.Body = append([]byte(nil), e.Body...)
	return e, true
}

func (m *memoryTier) put(e Entry) error {
	size := int64(len(e.Body))
	if !m.idx.fits(size) {
		// the old value must not outlive a newer write
		m.idx.remove(e.Key)
		delete(m.data, e.Key)
		return ErrTooLarge
	}
	for _, k := range m.idx.add(e.Key, size) {
		delete(m.data, k)
	}
	m.data[e.Key] = e
	return nil
}

func (m *memoryTier) len() int     { return m.idx.len() }
func (m *memoryTier) size() int64  { return m.idx.used }
func (m *memoryTier) close() error { return nil }
