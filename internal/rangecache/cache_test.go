package rangecache_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mudforge/spellrange/internal/rangecache"
	"github.com/mudforge/spellrange/internal/spell"
)

// fakeClock is a manually advanced clock for cache tests.
type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestCache_PutGet(t *testing.T) {
	clk := newFakeClock()
	c := rangecache.New(1500*time.Millisecond, clk.now)
	key := rangecache.BuildKey("s1", rangecache.KindRange, "133", "target")

	c.Put(key, spell.InRange)
	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, spell.InRange, v)
}

func TestCache_MissOnAbsent(t *testing.T) {
	c := rangecache.New(0, nil)
	_, ok := c.Get(rangecache.BuildKey("s1", rangecache.KindRange, "133", "target"))
	assert.False(t, ok)
}

func TestCache_LogicalExpiryAtWindow(t *testing.T) {
	clk := newFakeClock()
	c := rangecache.New(1500*time.Millisecond, clk.now)
	key := rangecache.BuildKey("s1", rangecache.KindRange, "133", "target")
	c.Put(key, spell.OutOfRange)

	clk.advance(1499 * time.Millisecond)
	_, ok := c.Get(key)
	assert.True(t, ok, "just inside the window")

	clk.advance(1 * time.Millisecond)
	_, ok = c.Get(key)
	assert.False(t, ok, "age == window is expired even before eviction")
	assert.Equal(t, 1, c.Len(), "expired entry is still physically present")
}

func TestCache_PutRefreshesTimestamp(t *testing.T) {
	clk := newFakeClock()
	c := rangecache.New(time.Second, clk.now)
	key := rangecache.BuildKey("s1", rangecache.KindHasRange, "growl", "")

	c.Put(key, spell.InRange)
	clk.advance(900 * time.Millisecond)
	c.Put(key, spell.OutOfRange)
	clk.advance(900 * time.Millisecond)

	v, ok := c.Get(key)
	require.True(t, ok, "refreshed entry must still be valid")
	assert.Equal(t, spell.OutOfRange, v)
}

func TestCache_SweepRemovesOnlyDoublyStale(t *testing.T) {
	clk := newFakeClock()
	c := rangecache.New(time.Second, clk.now)

	old := rangecache.BuildKey("s1", rangecache.KindRange, "133", "target")
	c.Put(old, spell.InRange)
	clk.advance(1500 * time.Millisecond)
	fresh := rangecache.BuildKey("s1", rangecache.KindRange, "116", "target")
	c.Put(fresh, spell.InRange)

	// old is expired (1.5s > 1s) but not yet doubly stale (< 2s).
	removed := c.Sweep(50)
	assert.Equal(t, 0, removed)

	clk.advance(600 * time.Millisecond) // old now 2.1s
	removed = c.Sweep(50)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())
}

func TestCache_SweepHonorsBudget(t *testing.T) {
	clk := newFakeClock()
	c := rangecache.New(time.Second, clk.now)
	for i := 0; i < 10; i++ {
		c.Put(rangecache.BuildKey("s1", rangecache.KindRange, fmt.Sprintf("%d", i), "target"), spell.InRange)
	}
	clk.advance(5 * time.Second)

	removed := c.Sweep(3)
	assert.Equal(t, 3, removed)
	assert.Equal(t, 7, c.Len())
}

func TestBuildKey_DistinguishesComponents(t *testing.T) {
	a := rangecache.BuildKey("s1", rangecache.KindRange, "133", "target")
	b := rangecache.BuildKey("s1", rangecache.KindRange, "133", "focus")
	c := rangecache.BuildKey("s1", rangecache.KindHasRange, "133", "")
	d := rangecache.BuildKey("s2", rangecache.KindRange, "133", "target")
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}

func TestPropertyCache_NeverServesAtOrPastWindow(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		windowMs := rapid.IntRange(100, 3000).Draw(t, "window_ms")
		ageMs := rapid.IntRange(0, 6000).Draw(t, "age_ms")
		clk := newFakeClock()
		c := rangecache.New(time.Duration(windowMs)*time.Millisecond, clk.now)
		key := rangecache.BuildKey("s", rangecache.KindRange, "1", "target")
		c.Put(key, spell.InRange)
		clk.advance(time.Duration(ageMs) * time.Millisecond)

		_, ok := c.Get(key)
		assert.Equal(t, ageMs < windowMs, ok,
			"entry must be served iff its age is strictly inside the window")
	})
}

func TestPropertyCache_SweepNeverExceedsBudget(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		entries := rapid.IntRange(0, 40).Draw(t, "entries")
		budget := rapid.IntRange(1, 20).Draw(t, "budget")
		clk := newFakeClock()
		c := rangecache.New(time.Second, clk.now)
		for i := 0; i < entries; i++ {
			c.Put(rangecache.BuildKey("s", rangecache.KindRange, fmt.Sprintf("%d", i), "u"), spell.InRange)
		}
		clk.advance(time.Minute)
		removed := c.Sweep(budget)
		assert.LessOrEqual(t, removed, budget)
		assert.Equal(t, entries-removed, c.Len())
	})
}
