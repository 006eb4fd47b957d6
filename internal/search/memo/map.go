package memo

import "sync"

// MapMemo is a Memo that keeps every payload strongly reachable. Entries
// only disappear through Reclaim or Clear, which makes it the memo of
// choice when reclamation has to be driven by hand.
type MapMemo[V any] struct {
	mu   sync.RWMutex
	data map[string]*V
}

func NewMapMemo[V any]() *MapMemo[V] {
	return &MapMemo[V]{
		data: make(map[string]*V),
	}
}

func (m *MapMemo[V]) Get(key string) (*V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.data[key]
	return value, exists
}

// Put stores value under key. A nil value is ignored.
func (m *MapMemo[V]) Put(key string, value *V) {
	if value == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
}

// Reclaim drops key as if memory pressure had taken it.
func (m *MapMemo[V]) Reclaim(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
}

func (m *MapMemo[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]*V)
}

func (m *MapMemo[V]) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}
