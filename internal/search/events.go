package search

// Observer receives cache lifecycle events. Implementations must be safe
// for concurrent use: events are emitted from the goroutine calling Search
// and from fetch goroutines.
type Observer interface {
	On(eventData EventData)
}

// Event represents a cache event type.
type Event int

const (
	// EventHit is emitted when Search answers from the memo.
	EventHit Event = iota
	// EventMiss is emitted when Search finds nothing in the memo.
	EventMiss
	// EventCoalesced is emitted when a missed term is parked in the pending slot.
	EventCoalesced
	// EventSuperseded is emitted for the pending term that a newer one replaced.
	EventSuperseded
	// EventPurged is emitted for an active or pending term whose callback
	// was dropped by a cache hit.
	EventPurged
	// EventDispatched is emitted when a fetch is started.
	EventDispatched
	// EventCompleted is emitted when a fetch returned results.
	EventCompleted
	// EventFailed is emitted when a fetch returned no results.
	EventFailed
)

func (e Event) String() string {
	switch e {
	case EventHit:
		return "hit"
	case EventMiss:
		return "miss"
	case EventCoalesced:
		return "coalesced"
	case EventSuperseded:
		return "superseded"
	case EventPurged:
		return "purged"
	case EventDispatched:
		return "dispatched"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EventData carries the details of a cache event.
type EventData struct {
	Event Event
	Term  string
}
