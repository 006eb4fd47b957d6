package memo

import (
	"runtime"
	"sync"
	"weak"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the number of recently used payloads kept strongly
// reachable when NewWeakMemo is given a negative capacity.
const DefaultCapacity = 64

type weakEntry[V any] struct {
	ptr weak.Pointer[V]
	gen uint64
}

type cleanupArg struct {
	key string
	gen uint64
}

// WeakMemo holds every payload through a weak pointer so the garbage
// collector may reclaim it once nothing else references it. The payloads of
// the capacity most recently written or read keys are additionally pinned
// in an LRU, which keeps a hot working set alive across collections.
//
// Keys of reclaimed payloads are pruned lazily on lookup and by a runtime
// cleanup registered on every stored payload.
type WeakMemo[V any] struct {
	mu       sync.Mutex
	entries  map[string]weakEntry[V]
	pins     *lru.Cache[string, *V]
	capacity int
	gen      uint64
}

// NewWeakMemo creates an empty memo pinning up to capacity payloads.
// Zero pins nothing; a negative value selects DefaultCapacity.
func NewWeakMemo[V any](capacity int) *WeakMemo[V] {
	if capacity < 0 {
		capacity = DefaultCapacity
	}
	m := &WeakMemo[V]{
		entries:  make(map[string]weakEntry[V]),
		capacity: capacity,
	}
	if capacity > 0 {
		// only fails for a non-positive size
		m.pins, _ = lru.New[string, *V](capacity)
	}
	return m
}

func (m *WeakMemo[V]) Get(key string) (*V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	v := e.ptr.Value()
	if v == nil {
		delete(m.entries, key)
		return nil, false
	}
	m.pin(key, v)
	return v, true
}

// Put stores value under key. A nil value is ignored.
func (m *WeakMemo[V]) Put(key string, value *V) {
	if value == nil {
		return
	}

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.entries[key] = weakEntry[V]{ptr: weak.Make(value), gen: gen}
	m.pin(key, value)
	m.mu.Unlock()

	runtime.AddCleanup(value, m.prune, cleanupArg{key: key, gen: gen})
}

// Size returns the number of live entries.
func (m *WeakMemo[V]) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, e := range m.entries {
		if e.ptr.Value() == nil {
			delete(m.entries, k)
		}
	}
	return len(m.entries)
}

// Capacity returns the number of payloads the memo keeps pinned.
func (m *WeakMemo[V]) Capacity() int {
	return m.capacity
}

// Reclaim drops key as if the runtime had reclaimed its payload.
func (m *WeakMemo[V]) Reclaim(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pins != nil {
		m.pins.Remove(key)
	}
	delete(m.entries, key)
}

// Clear removes all entries and unpins every payload.
func (m *WeakMemo[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]weakEntry[V])
	if m.pins != nil {
		m.pins.Purge()
	}
}

// pin marks key as most recently used. mu must be held.
func (m *WeakMemo[V]) pin(key string, v *V) {
	if m.pins == nil {
		return
	}
	m.pins.Add(key, v)
}

func (m *WeakMemo[V]) prune(arg cleanupArg) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[arg.key]; ok && e.gen == arg.gen && e.ptr.Value() == nil {
		delete(m.entries, arg.key)
	}
}
