package memo

// Memo is the port for the search memo table.
// Implementations may drop any entry at any time; callers must treat a
// dropped entry exactly like one that was never written.
type Memo[V any] interface {
	// Get returns the payload stored under key and true, or nil and false
	// when nothing is stored or the payload was reclaimed.
	Get(key string) (*V, bool)

	// Put stores value under key, replacing any previous payload.
	Put(key string, value *V)
}
