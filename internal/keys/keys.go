// Package keys provides a process-local key-press stream with scoped
// subscriptions. Renderers publish the keys they receive; whoever is
// subscribed at that moment reacts.
package keys

import "sync"

// Key is a navigation-relevant key press.
type Key int

const (
	// Other is any key without a navigation meaning.
	Other Key = iota
	// Right is the right arrow.
	Right
	// Left is the left arrow.
	Left
)

func (k Key) String() string {
	switch k {
	case Right:
		return "right"
	case Left:
		return "left"
	default:
		return "other"
	}
}

// Parse maps terminal ("right") and DOM ("ArrowRight") key names to a Key.
func Parse(name string) Key {
	switch name {
	case "right", "ArrowRight":
		return Right
	case "left", "ArrowLeft":
		return Left
	default:
		return Other
	}
}

// Handler receives published keys.
type Handler func(Key)

// Stream fans key presses out to its subscribers. The zero value is ready to
// use.
type Stream struct {
	mu     sync.Mutex
	nextID uint64
	subs   []*Subscription
}

// Subscription is the handle of one subscriber.
type Subscription struct {
	stream *Stream
	id     uint64
	fn     Handler
	once   sync.Once
}

// Subscribe registers fn until the returned subscription is closed.
func (s *Stream) Subscribe(fn Handler) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub := &Subscription{stream: s, id: s.nextID, fn: fn}
	s.subs = append(s.subs, sub)
	return sub
}

// Publish delivers k synchronously to every subscriber, in subscription
// order, and returns the number of handlers called.
func (s *Stream) Publish(k Key) int {
	s.mu.Lock()
	subs := make([]*Subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	n := 0
	for _, sub := range subs {
		// Skip subscribers closed by an earlier handler of this same call.
		if !s.active(sub) {
			continue
		}
		sub.fn(k)
		n++
	}
	return n
}

// Len returns the number of live subscriptions.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Stream) active(sub *Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.subs {
		if x == sub {
			return true
		}
	}
	return false
}

// Close removes the subscription. It is safe to call more than once and from
// inside a handler.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		s := sub.stream
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, x := range s.subs {
			if x == sub {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	})
}
