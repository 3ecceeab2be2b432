// Package deck holds the slide model: an ordered, fixed-size sequence of
// immutable slides loaded once at startup.
package deck

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrNoSlides is returned when a deck would contain zero slides.
	ErrNoSlides = errors.New("deck has no slides")
	// ErrDuplicateID is returned when two slides share an id.
	ErrDuplicateID = errors.New("duplicate slide id")
)

// Slide is a single slide. Body is the renderable payload (markdown) and is
// never interpreted by the deck itself.
type Slide struct {
	ID         int
	Background string
	Title      string
	Body       string
}

// Deck is an ordered slide sequence. It is read-only after New.
type Deck struct {
	title  string
	slides []Slide
}

// New validates slides and returns a deck owning a private copy of them.
func New(title string, slides []Slide) (*Deck, error) {
	if len(slides) == 0 {
		return nil, ErrNoSlides
	}
	seen := make(map[int]int, len(slides))
	for i, s := range slides {
		if j, ok := seen[s.ID]; ok {
			return nil, fmt.Errorf("%w: %d (slides %d and %d)", ErrDuplicateID, s.ID, j+1, i+1)
		}
		seen[s.ID] = i
	}
	return &Deck{title: title, slides: slices.Clone(slides)}, nil
}

// Title returns the deck title, possibly empty.
func (d *Deck) Title() string {
	return d.title
}

// Len returns the number of slides, always at least one.
func (d *Deck) Len() int {
	return len(d.slides)
}

// Slide returns the slide at position i. It panics if i is out of range.
func (d *Deck) Slide(i int) Slide {
	return d.slides[i]
}

// Slides returns a copy of the slide sequence.
func (d *Deck) Slides() []Slide {
	return slices.Clone(d.slides)
}
