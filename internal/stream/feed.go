package stream

import (
	"sync"
)

// Event types published on a session feed.
const (
	EventState   = "state"
	EventWorking = "working"
	EventNarrate = "narrate"
	EventLevel   = "level"
)

// Event is a single server-sent event: a type and a JSON-encodable payload.
type Event struct {
	Type string
	Data interface{}
}

const clientBuffer = 32

// Feed broadcasts events for one practice session to any number of
// subscribed clients. Sends never block: a client whose buffer is full
// misses events, which is acceptable for a live UI feed.
type Feed struct {
	mu      sync.Mutex
	clients map[int]chan Event
	nextID  int
	closed  bool
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{
		clients: make(map[int]chan Event),
	}
}

// Subscribe registers a new client and returns its id and receive channel.
// The channel is closed when the client unsubscribes or the feed closes.
func (f *Feed) Subscribe() (int, <-chan Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan Event, clientBuffer)
	if f.closed {
		close(ch)
		return -1, ch
	}

	id := f.nextID
	f.nextID++
	f.clients[id] = ch
	return id, ch
}

// Unsubscribe removes a client and closes its channel.
func (f *Feed) Unsubscribe(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ch, ok := f.clients[id]; ok {
		delete(f.clients, id)
		close(ch)
	}
}

// Publish delivers an event to every subscribed client without blocking.
func (f *Feed) Publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	for _, ch := range f.clients {
		select {
		case ch <- ev:
		default:
			// client too slow, drop the event for it
		}
	}
}

// Close shuts down the feed and disconnects all clients.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.clients {
		delete(f.clients, id)
		close(ch)
	}
}

// ClientCount reports how many clients are currently subscribed.
func (f *Feed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}
