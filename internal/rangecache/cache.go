// Package rangecache is the time-boxed result cache for range queries.
// Entries are keyed by (session, query kind, identifier, unit) and served
// only within a validity window; physically stale entries are evicted by a
// budgeted sweep.
package rangecache

import (
	"strings"
	"sync"
	"time"

	"github.com/mudforge/spellrange/internal/spell"
)

// QueryKind distinguishes the two cacheable query families.
type QueryKind string

const (
	// KindRange caches "is this ability in range of this unit" verdicts.
	KindRange QueryKind = "range"
	// KindHasRange caches "does this ability have a range" verdicts; the
	// unit component of the key is empty for these.
	KindHasRange QueryKind = "hasrange"
)

// Default tuning. The window is checked on the scheduler's tick cadence; the
// sweep removes entries older than twice the window.
const (
	DefaultWindow        = 1500 * time.Millisecond
	DefaultSweepInterval = 3 * time.Second
	DefaultSweepBudget   = 50
)

// Key addresses one cached verdict.
type Key string

// BuildKey assembles a cache key. identKey must already be canonical
// (normalizer output); unit is empty for has-range queries.
func BuildKey(session string, kind QueryKind, identKey, unit string) Key {
	var b strings.Builder
	b.Grow(len(session) + len(kind) + len(identKey) + len(unit) + 3)
	b.WriteString(session)
	b.WriteByte('|')
	b.WriteString(string(kind))
	b.WriteByte('|')
	b.WriteString(identKey)
	b.WriteByte('|')
	b.WriteString(strings.ToLower(unit))
	return Key(b.String())
}

type entry struct {
	verdict spell.Verdict
	at      time.Time
}

// Cache stores verdicts with timestamps. An entry older than the validity
// window is logically expired and is never returned, whether or not it has
// been physically evicted yet. Safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	data   map[Key]entry
}

// New creates a Cache with the given validity window.
// Precondition: window >= 0; 0 uses DefaultWindow. now may be nil for the
// system clock.
func New(window time.Duration, now func() time.Time) *Cache {
	if window <= 0 {
		window = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		window: window,
		now:    now,
		data:   make(map[Key]entry),
	}
}

// Get returns the cached verdict for key.
// Postcondition: ok is false when absent or when the entry's age has reached
// the validity window.
func (c *Cache) Get(key Key) (spell.Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok {
		return spell.Unknown, false
	}
	if c.now().Sub(e.at) >= c.window {
		return spell.Unknown, false
	}
	return e.verdict, true
}

// Put stores a verdict unconditionally, stamping the current time.
func (c *Cache) Put(key Key, v spell.Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry{verdict: v, at: c.now()}
}

// Sweep removes entries whose age exceeds twice the validity window,
// stopping after budget removals to bound per-tick cost.
// Precondition: budget > 0.
// Postcondition: Returns the number of entries removed.
func (c *Cache) Sweep(budget int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := 2 * c.window
	now := c.now()
	removed := 0
	for k, e := range c.data {
		if removed >= budget {
			break
		}
		if now.Sub(e.at) > cutoff {
			delete(c.data, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of physically present entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
