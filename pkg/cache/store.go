package cache

import (
	"container/list"
	"time"
)

// memoryStore is a bounded map of entries with least-recently-used
// capacity eviction. It is not safe for concurrent use; Cache serializes
// access to it.
type memoryStore struct {
	maxEntries int
	order      *list.List // front = most recently used
	items      map[string]*list.Element
}

func newMemoryStore(maxEntries int) *memoryStore {
	return &memoryStore{
		maxEntries: maxEntries,
		order:      list.New(),
		items:      make(map[string]*list.Element),
	}
}

// get returns the entry for key if present and unexpired at now.
// Expired entries are removed. The second result reports whether the
// lookup found an expired entry.
func (s *memoryStore) get(key string, now time.Time) (entry *Entry, expired bool) {
	el, ok := s.items[key]
	if !ok {
		return nil, false
	}

	e := el.Value.(*Entry)
	if e.IsExpired(now) {
		s.removeElement(el)
		return nil, true
	}

	s.order.MoveToFront(el)
	return e, false
}

// put stores the entry, replacing any entry under the same key.
// Returns the number of entries evicted to stay within maxEntries.
func (s *memoryStore) put(e *Entry) int {
	if el, ok := s.items[e.Key]; ok {
		el.Value = e
		s.order.MoveToFront(el)
		return 0
	}

	s.items[e.Key] = s.order.PushFront(e)

	evicted := 0
	for s.maxEntries > 0 && s.order.Len() > s.maxEntries {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.removeElement(oldest)
		evicted++
	}
	return evicted
}

func (s *memoryStore) removeElement(el *list.Element) {
	s.order.Remove(el)
	delete(s.items, el.Value.(*Entry).Key)
}

func (s *memoryStore) clear() {
	s.order.Init()
	s.items = make(map[string]*list.Element)
}

func (s *memoryStore) len() int {
	return s.order.Len()
}

// values returns a snapshot of the unexpired stored values.
func (s *memoryStore) values(now time.Time) []any {
	out := make([]any, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*Entry)
		if e.IsExpired(now) {
			continue
		}
		out = append(out, e.Value)
	}
	return out
}
