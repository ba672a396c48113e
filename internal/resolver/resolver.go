// Package resolver is the public query surface for ability range checks.
// Each query consults the result cache, then the host's direct primitives
// when present, then falls back through the spellbook index and the
// companion action index in a fixed order, most reliable source first.
package resolver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mudforge/spellrange/internal/companion"
	"github.com/mudforge/spellrange/internal/host"
	"github.com/mudforge/spellrange/internal/rangecache"
	"github.com/mudforge/spellrange/internal/spell"
	"github.com/mudforge/spellrange/internal/spellbook"
)

// DefaultThrottle is the minimum spacing between full resolution attempts
// for units outside the priority allowlist.
const DefaultThrottle = 200 * time.Millisecond

// primaryTarget is the unit token of the actor's current target.
const primaryTarget = "target"

// DefaultPriorityUnits is the allowlist of unit tokens exempt from load
// shedding. Numbered entries use the "name1-N" shorthand expanded by
// ExpandUnits.
var DefaultPriorityUnits = []string{
	"player", "target", "focus", "mouseover", "arena1-5", "boss1-5", "party1-4",
}

// numberedUnitPattern matches the "name1-N" shorthand, e.g. "boss1-5".
var numberedUnitPattern = regexp.MustCompile(`^([a-z]+)([0-9]+)-([0-9]+)$`)

// ExpandUnits expands "name1-N" shorthand entries ("boss1-5" → boss1..boss5)
// and lowercases everything. Plain entries pass through unchanged.
func ExpandUnits(entries []string) []string {
	var out []string
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if m := numberedUnitPattern.FindStringSubmatch(e); m != nil {
			lo, _ := strconv.Atoi(m[2])
			hi, _ := strconv.Atoi(m[3])
			if lo >= 1 && hi >= lo {
				for k := lo; k <= hi; k++ {
					out = append(out, fmt.Sprintf("%s%d", m[1], k))
				}
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// Config holds the resolver's dependencies and tuning.
type Config struct {
	Oracle  host.Oracle
	Books   *spellbook.Index
	Actions *companion.Actions
	Cache   *rangecache.Cache
	Norm    *spell.Normalizer
	Logger  *zap.Logger

	// Throttle is the load-shedding window for non-priority units.
	// 0 = DefaultThrottle.
	Throttle time.Duration
	// PriorityUnits is the expanded allowlist; empty uses the expansion of
	// DefaultPriorityUnits.
	PriorityUnits []string
	// Now overrides the clock for tests.
	Now func() time.Time
}

// Validate checks that all required dependencies are provided.
// Postcondition: Returns nil, or an error naming every missing dependency.
func (c Config) Validate() error {
	var missing []string
	if c.Oracle == nil {
		missing = append(missing, "Oracle")
	}
	if c.Books == nil {
		missing = append(missing, "Books")
	}
	if c.Actions == nil {
		missing = append(missing, "Actions")
	}
	if c.Cache == nil {
		missing = append(missing, "Cache")
	}
	if c.Norm == nil {
		missing = append(missing, "Norm")
	}
	if c.Logger == nil {
		missing = append(missing, "Logger")
	}
	if len(missing) > 0 {
		return errors.New("resolver config missing: " + strings.Join(missing, ", "))
	}
	return nil
}

// Resolver answers range queries. Safe for concurrent use.
type Resolver struct {
	oracle   host.Oracle
	books    *spellbook.Index
	actions  *companion.Actions
	cache    *rangecache.Cache
	norm     *spell.Normalizer
	logger   *zap.Logger
	caps     host.Capabilities
	session  string
	throttle time.Duration
	priority map[string]bool
	now      func() time.Time

	mu       sync.Mutex
	lastFull time.Time // last full resolution for a non-priority unit
}

// New creates a Resolver. The oracle's capabilities are probed once here: a
// host without direct query primitives uses the index fallback chain for the
// whole process lifetime.
func New(cfg Config) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Throttle <= 0 {
		cfg.Throttle = DefaultThrottle
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	units := cfg.PriorityUnits
	if len(units) == 0 {
		units = ExpandUnits(DefaultPriorityUnits)
	}
	priority := make(map[string]bool, len(units))
	for _, u := range units {
		priority[strings.ToLower(u)] = true
	}

	caps := cfg.Oracle.Capabilities()
	r := &Resolver{
		oracle:   cfg.Oracle,
		books:    cfg.Books,
		actions:  cfg.Actions,
		cache:    cfg.Cache,
		norm:     cfg.Norm,
		logger:   cfg.Logger,
		caps:     caps,
		session:  uuid.NewString()[:8],
		throttle: cfg.Throttle,
		priority: priority,
		now:      cfg.Now,
	}
	r.logger.Info("resolver ready",
		zap.String("session", r.session),
		zap.Bool("direct_range", caps.DirectRange),
		zap.Bool("direct_has_range", caps.DirectHasRange),
	)
	return r, nil
}

// Session returns the cache key session prefix. Intended for tests.
func (r *Resolver) Session() string { return r.session }

// IsSpellInRange reports whether the identified ability is currently usable
// against the unit within its effective range. Queries for units outside the
// priority allowlist are rate limited: a throttled call returns Unknown
// without consulting the cache or the oracle, never a stale answer.
func (r *Resolver) IsSpellInRange(ident spell.Identifier, unit string) spell.Verdict {
	if !ident.Valid() || unit == "" {
		return spell.Unknown
	}
	if !r.priority[strings.ToLower(unit)] && !r.admitThrottled() {
		return spell.Unknown
	}

	identKey, ok := r.norm.Canonical(ident)
	if !ok {
		return spell.Unknown
	}
	key := rangecache.BuildKey(r.session, rangecache.KindRange, identKey, unit)
	if v, hit := r.cache.Get(key); hit {
		return v
	}

	v := r.resolveRange(ident, unit, 0)
	if v.Definite() {
		// Unresolved queries are never cached: an Unknown entry would
		// misleadingly claim resolution.
		r.cache.Put(key, v)
	}
	return v
}

// SpellHasRange reports whether the identified ability has a range concept
// at all. InRange means yes, OutOfRange means no. Not throttled.
func (r *Resolver) SpellHasRange(ident spell.Identifier) spell.Verdict {
	if !ident.Valid() {
		return spell.Unknown
	}
	identKey, ok := r.norm.Canonical(ident)
	if !ok {
		return spell.Unknown
	}
	key := rangecache.BuildKey(r.session, rangecache.KindHasRange, identKey, "")
	if v, hit := r.cache.Get(key); hit {
		return v
	}

	v := r.resolveHasRange(ident, 0)
	if v.Definite() {
		r.cache.Put(key, v)
	}
	return v
}

// admitThrottled admits at most one full resolution per throttle window for
// non-priority units.
func (r *Resolver) admitThrottled() bool {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.lastFull.IsZero() && now.Sub(r.lastFull) < r.throttle {
		return false
	}
	r.lastFull = now
	return true
}

// resolveRange walks the fallback chain. depth guards the single allowed
// id→name recursion.
func (r *Resolver) resolveRange(ident spell.Identifier, unit string, depth int) spell.Verdict {
	if r.caps.DirectRange {
		if inRange, ok := r.oracle.DirectRangeQuery(ident.Raw(), unit); ok {
			return spell.FromBool(inRange)
		}
	}

	if slot, ok := r.books.Lookup(host.BookPlayer, ident); ok {
		if inRange, ok := r.oracle.SlotRangeQuery(slot, host.BookPlayer, unit); ok {
			return spell.FromBool(inRange)
		}
		return spell.Unknown
	}

	if slot, ok := r.books.Lookup(host.BookPet, ident); ok {
		if inRange, ok := r.oracle.SlotRangeQuery(slot, host.BookPet, unit); ok {
			return spell.FromBool(inRange)
		}
		// The catalog check was inconclusive; the action bar observation is
		// only trustworthy against the primary target.
		return r.companionObservation(ident, unit)
	}

	if ident.IsNumeric() && depth == 0 {
		if name, ok := r.oracle.ResolveNameFromID(ident.ID()); ok {
			return r.resolveRange(spell.ByName(name), unit, depth+1)
		}
	}
	return spell.Unknown
}

// companionObservation reads the action-bar range bit for an ability, only
// when unit is the primary target by identity or host equivalence.
func (r *Resolver) companionObservation(ident spell.Identifier, unit string) spell.Verdict {
	if unit != primaryTarget && !r.oracle.SameUnit(unit, primaryTarget) {
		return spell.Unknown
	}
	slot, ok := r.actions.Lookup(ident)
	if !ok {
		return spell.Unknown
	}
	return r.actions.RangeObservation(slot)
}

func (r *Resolver) resolveHasRange(ident spell.Identifier, depth int) spell.Verdict {
	if r.caps.DirectHasRange {
		if hasRange, ok := r.oracle.DirectHasRangeQuery(ident.Raw()); ok {
			return spell.FromBool(hasRange)
		}
	}

	if slot, ok := r.books.Lookup(host.BookPlayer, ident); ok {
		if hasRange, ok := r.oracle.SlotHasRangeQuery(slot, host.BookPlayer); ok {
			return spell.FromBool(hasRange)
		}
		return spell.Unknown
	}

	if slot, ok := r.books.Lookup(host.BookPet, ident); ok {
		// The host's has-range reporting is unreliable for companion
		// abilities; the index's own historical observation backs it up.
		hasRange, ok := r.oracle.SlotHasRangeQuery(slot, host.BookPet)
		persistent := r.actions.HasEverHadRange(ident)
		switch {
		case (ok && hasRange) || persistent:
			return spell.InRange
		case ok:
			return spell.OutOfRange
		default:
			return spell.Unknown
		}
	}

	// Terminal fallback: an ability never seen in either catalog may still
	// have been observed range-checking on the action bar.
	if r.actions.HasEverHadRange(ident) {
		return spell.InRange
	}

	if ident.IsNumeric() && depth == 0 {
		if name, ok := r.oracle.ResolveNameFromID(ident.ID()); ok {
			return r.resolveHasRange(spell.ByName(name), depth+1)
		}
	}
	return spell.Unknown
}
