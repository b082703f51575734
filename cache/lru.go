package cache

import "container/list"

// lruIndex tracks recency and byte size for the keys a tier holds. The
// front of the list is the most recently used key.
type lruIndex struct {
	capacity int64
	used     int64
	ll       *list.List
	items    map[string]*list.Element
}

type lruItem struct {
	key  string
	size int64
}

func newLRUIndex(capacity int64) *lruIndex {
	return &lruIndex{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (x *lruIndex) fits(size int64) bool {
	return size <= x.capacity
}

func (x *lruIndex) has(key string) bool {
	_, ok := x.items[key]
	return ok
}

// touch marks key as most recently used.
func (x *lruIndex) touch(key string) bool {
	el, ok := x.items[key]
	if !ok {
		return false
	}
	x.ll.MoveToFront(el)
	return true
}

// add records key as most recently used with the given size, replacing
// any previous size, and returns the keys evicted to make room. The
// caller must check fits first.
func (x *lruIndex) add(key string, size int64) []string {
	x.remove(key)
	var evicted []string
	for x.used+size > x.capacity {
		back := x.ll.Back()
		if back == nil {
			break
		}
		it := x.ll.Remove(back).(*lruItem)
		delete(x.items, it.key)
		x.used -= it.size
		evicted = append(evicted, it.key)
	}
	x.items[key] = x.ll.PushFront(&lruItem{key: key, size: size})
	x.used += size
	return evicted
}

func (x *lruIndex) remove(key string) {
	el, ok := x.items[key]
	if !ok {
		return
	}
	it := x.ll.Remove(el).(*lruItem)
	delete(x.items, key)
	x.used -= it.size
}

func (x *lruIndex) len() int {
	return x.ll.Len()
}
