package presenter_test

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchdeck/internal/deck"
	"pitchdeck/internal/keys"
	"pitchdeck/internal/presenter"
	"pitchdeck/slides"
)

func newDeck(t *testing.T, n int) *deck.Deck {
	t.Helper()
	s := make([]deck.Slide, n)
	for i := range s {
		s[i] = deck.Slide{ID: i + 1, Body: "slide"}
	}
	d, err := deck.New("test", s)
	require.NoError(t, err)
	return d
}

func newController(t *testing.T, n int) *presenter.Controller {
	t.Helper()
	c, err := presenter.New(newDeck(t, n))
	require.NoError(t, err)
	return c
}

func builtin(t *testing.T) *presenter.Controller {
	t.Helper()
	d, err := deck.Load(slides.FS)
	require.NoError(t, err)
	c, err := presenter.New(d)
	require.NoError(t, err)
	return c
}

func TestNewRequiresSlides(t *testing.T) {
	c, err := presenter.New(nil)
	require.ErrorIs(t, err, presenter.ErrNoSlides)
	assert.Nil(t, c)
}

func TestInitialState(t *testing.T) {
	c := newController(t, 4)
	assert.Equal(t, 0, c.Index())
	assert.Equal(t, 1, c.Current().ID)
	assert.InDelta(t, 0.25, c.Progress(), 1e-12)
	assert.Equal(t, "1 / 4", c.Counter())
}

func TestIndexStaysInRange(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for n := 1; n <= 25; n++ {
		c := newController(t, n)
		for range 500 {
			if r.IntN(2) == 0 {
				c.Advance()
			} else {
				c.Retreat()
			}
			i := c.Index()
			require.GreaterOrEqual(t, i, 0)
			require.Less(t, i, n)
			p := c.Progress()
			require.Greater(t, p, 0.0)
			require.LessOrEqual(t, p, 1.0)
		}
	}
}

func TestAdvanceRetreatAreInverse(t *testing.T) {
	for n := 1; n <= 10; n++ {
		c := newController(t, n)
		for start := range n {
			require.Equal(t, start, c.Index())

			c.Advance()
			c.Retreat()
			assert.Equal(t, start, c.Index(), "n=%d advance then retreat", n)

			c.Retreat()
			c.Advance()
			assert.Equal(t, start, c.Index(), "n=%d retreat then advance", n)

			c.Advance()
		}
	}
}

func TestFullCycle(t *testing.T) {
	for n := 1; n <= 10; n++ {
		c := newController(t, n)
		for start := range n {
			for range n {
				c.Advance()
			}
			assert.Equal(t, start, c.Index(), "n=%d", n)
			c.Advance()
		}
	}
}

func TestProgressBounds(t *testing.T) {
	for n := 1; n <= 20; n++ {
		c := newController(t, n)
		assert.InDelta(t, 1/float64(n), c.Progress(), 1e-12)
		prev := c.Progress()
		for range n - 1 {
			c.Advance()
			assert.GreaterOrEqual(t, c.Progress(), prev)
			prev = c.Progress()
		}
		assert.Equal(t, 1.0, c.Progress())
		c.Advance()
		assert.InDelta(t, 1/float64(n), c.Progress(), 1e-12)
	}
}

func TestSingleSlide(t *testing.T) {
	c := newController(t, 1)
	c.Advance()
	assert.Equal(t, 0, c.Index())
	c.Retreat()
	assert.Equal(t, 0, c.Index())
	assert.Equal(t, 1.0, c.Progress())
	assert.Equal(t, "1 / 1", c.Counter())
}

func TestRightArrowThroughBuiltinDeck(t *testing.T) {
	c := builtin(t)
	var s keys.Stream
	release := c.Mount(&s)
	defer release()

	require.Equal(t, 18, c.Len())
	for range 17 {
		s.Publish(keys.Right)
	}
	assert.Equal(t, 17, c.Index())
	assert.Equal(t, 1.0, c.Progress())
	assert.Equal(t, "18 / 18", c.Counter())

	s.Publish(keys.Right)
	assert.Equal(t, 0, c.Index())
	assert.InDelta(t, 1.0/18, c.Progress(), 1e-12)
}

func TestLeftArrowWraps(t *testing.T) {
	c := builtin(t)
	var s keys.Stream
	release := c.Mount(&s)
	defer release()

	s.Publish(keys.Left)
	assert.Equal(t, c.Len()-1, c.Index())
}

func TestNextPreviousNetEffect(t *testing.T) {
	a := builtin(t)
	a.Advance()
	a.Advance()
	a.Advance()
	a.Retreat()

	b := builtin(t)
	b.Advance()
	b.Advance()

	assert.Equal(t, b.Index(), a.Index())
	assert.Equal(t, 2, a.Index())
}

func TestMountIgnoresOtherKeys(t *testing.T) {
	c := newController(t, 5)
	var s keys.Stream
	release := c.Mount(&s)
	defer release()

	s.Publish(keys.Other)
	s.Publish(keys.Parse("l"))
	s.Publish(keys.Parse("space"))
	assert.Equal(t, 0, c.Index())
}

func TestReleaseUnsubscribes(t *testing.T) {
	c := newController(t, 5)
	var s keys.Stream
	release := c.Mount(&s)
	s.Publish(keys.Right)
	require.Equal(t, 1, c.Index())

	release()
	release()
	assert.Equal(t, 0, s.Len())
	s.Publish(keys.Right)
	assert.Equal(t, 1, c.Index())
}

func TestIsActive(t *testing.T) {
	c := newController(t, 6)
	c.Advance()
	c.Advance()
	active := 0
	for i := range c.Len() {
		if c.IsActive(i) {
			active++
			assert.Equal(t, 2, i)
		}
	}
	assert.Equal(t, 1, active)
}

func TestOnChange(t *testing.T) {
	c := newController(t, 3)
	var got []presenter.State
	remove := c.OnChange(func(st presenter.State) { got = append(got, st) })

	c.Advance()
	c.Retreat()
	c.Retreat()
	remove()
	remove()
	c.Advance()

	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, "2 / 3", got[0].Counter)
	assert.Equal(t, 2, got[0].Slide.ID)
	assert.Equal(t, 0, got[1].Index)
	assert.Equal(t, 2, got[2].Index)
	assert.Equal(t, 1.0, got[2].Progress)
	assert.Equal(t, 3, got[2].Total)
}

func TestConcurrentNavigation(t *testing.T) {
	c := newController(t, 7)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Advance()
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				c.Retreat()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, c.Index())
}
