// Package presenter owns the position within a deck.
//
// A Controller is the only writer of the current slide index. Renderers read
// snapshots and ask for navigation; key presses reach it through a mounted
// keys.Stream subscription.
package presenter

import (
	"errors"
	"fmt"
	"sync"

	"pitchdeck/internal/deck"
	"pitchdeck/internal/keys"
)

// ErrNoSlides is returned when a controller is created without slides.
var ErrNoSlides = errors.New("presenter needs at least one slide")

// State is a consistent view of the controller at one point in time.
type State struct {
	Index    int
	Total    int
	Progress float64
	Counter  string
	Slide    deck.Slide
}

// Controller tracks the current slide of a deck.
type Controller struct {
	deck *deck.Deck

	// navMu serializes navigation together with observer notification, so
	// observers see states in the order they were produced.
	navMu   sync.Mutex
	mu      sync.Mutex
	current int

	obsMu     sync.Mutex
	nextObs   uint64
	observers map[uint64]func(State)
}

// New returns a controller positioned on the first slide.
func New(d *deck.Deck) (*Controller, error) {
	if d == nil || d.Len() == 0 {
		return nil, ErrNoSlides
	}
	return &Controller{deck: d, observers: map[uint64]func(State){}}, nil
}

// Deck returns the deck being presented.
func (c *Controller) Deck() *deck.Deck {
	return c.deck
}

// Len returns the number of slides.
func (c *Controller) Len() int {
	return c.deck.Len()
}

// Advance moves to the next slide, wrapping from the last to the first.
func (c *Controller) Advance() {
	c.move(1)
}

// Retreat moves to the previous slide, wrapping from the first to the last.
func (c *Controller) Retreat() {
	c.move(-1)
}

func (c *Controller) move(delta int) {
	c.navMu.Lock()
	defer c.navMu.Unlock()
	n := c.deck.Len()
	c.mu.Lock()
	c.current = (c.current + delta + n) % n
	st := c.stateLocked()
	c.mu.Unlock()
	c.notify(st)
}

// Index returns the current position, in [0, Len()).
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Current returns the current slide.
func (c *Controller) Current() deck.Slide {
	return c.deck.Slide(c.Index())
}

// Progress returns (Index()+1)/Len(), in (0, 1].
func (c *Controller) Progress() float64 {
	return progress(c.Index(), c.deck.Len())
}

// Counter returns the "current / total" label, 1-based.
func (c *Controller) Counter() string {
	return counter(c.Index(), c.deck.Len())
}

// IsActive reports whether slide i is the one being shown.
func (c *Controller) IsActive(i int) bool {
	return i == c.Index()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	n := c.deck.Len()
	return State{
		Index:    c.current,
		Total:    n,
		Progress: progress(c.current, n),
		Counter:  counter(c.current, n),
		Slide:    c.deck.Slide(c.current),
	}
}

// Mount binds the controller to s: right advances, left retreats, anything
// else is ignored. The returned release function unsubscribes; it must be
// called when the controller stops being presented and may be called more
// than once.
func (c *Controller) Mount(s *keys.Stream) (release func()) {
	sub := s.Subscribe(c.handleKey)
	return sub.Close
}

func (c *Controller) handleKey(k keys.Key) {
	switch k {
	case keys.Right:
		c.Advance()
	case keys.Left:
		c.Retreat()
	}
}

// OnChange registers fn to be called with the new state after every
// navigation. fn runs on the navigating goroutine and must not navigate.
func (c *Controller) OnChange(fn func(State)) (remove func()) {
	c.obsMu.Lock()
	c.nextObs++
	id := c.nextObs
	c.observers[id] = fn
	c.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.obsMu.Lock()
			delete(c.observers, id)
			c.obsMu.Unlock()
		})
	}
}

func (c *Controller) notify(st State) {
	c.obsMu.Lock()
	fns := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.obsMu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

func progress(i, n int) float64 {
	return float64(i+1) / float64(n)
}

func counter(i, n int) string {
	return fmt.Sprintf("%d / %d", i+1, n)
}
