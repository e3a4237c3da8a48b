package engine

import "sync"

// subscriberBuffer is the per-subscriber channel depth. A slow subscriber
// loses its oldest events rather than blocking the supervisor's line watcher.
const subscriberBuffer = 64

// tailCapacity bounds the in-memory line tail kept for late subscribers
// and the interactive log view.
const tailCapacity = 100

// Event is one classified unit of subprocess output fanned out to subscribers.
type Event struct {
	Kind  LineKind
	Line  string
	Stage ProgressStage
}

// Broadcaster fans classified subprocess output out to any number of
// subscribers and keeps a bounded tail of recent lines.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
	tail []string
}

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber. The returned cancel function must be
// called to release the subscription; after cancel the channel is closed.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++

	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Publish delivers an event to every subscriber without blocking. When a
// subscriber's buffer is full its oldest pending event is dropped first.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ev.Line != "" {
		b.tail = append(b.tail, ev.Line)
		if len(b.tail) > tailCapacity {
			b.tail = b.tail[len(b.tail)-tailCapacity:]
		}
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}

			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// Tail returns a copy of the most recent lines, oldest first.
func (b *Broadcaster) Tail() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.tail))
	copy(out, b.tail)

	return out
}

// Close closes every subscriber channel and forgets them.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
