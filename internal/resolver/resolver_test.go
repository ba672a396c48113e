package resolver_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mudforge/spellrange/internal/companion"
	"github.com/mudforge/spellrange/internal/host"
	"github.com/mudforge/spellrange/internal/rangecache"
	"github.com/mudforge/spellrange/internal/resolver"
	"github.com/mudforge/spellrange/internal/spell"
	"github.com/mudforge/spellrange/internal/spellbook"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

// spyOracle counts oracle consultations and can suppress the direct
// primitives to force the fallback chain.
type spyOracle struct {
	host.Oracle
	noDirect bool

	directRange    int
	directHasRange int
	slotRange      int
	slotHasRange   int
	resolveName    int
	actionInfo     int
}

func (s *spyOracle) DirectRangeQuery(raw, unit string) (bool, bool) {
	s.directRange++
	if s.noDirect {
		return false, false
	}
	return s.Oracle.DirectRangeQuery(raw, unit)
}

func (s *spyOracle) DirectHasRangeQuery(raw string) (bool, bool) {
	s.directHasRange++
	if s.noDirect {
		return false, false
	}
	return s.Oracle.DirectHasRangeQuery(raw)
}

func (s *spyOracle) SlotRangeQuery(slot int, book host.BookKind, unit string) (bool, bool) {
	s.slotRange++
	return s.Oracle.SlotRangeQuery(slot, book, unit)
}

func (s *spyOracle) SlotHasRangeQuery(slot int, book host.BookKind) (bool, bool) {
	s.slotHasRange++
	return s.Oracle.SlotHasRangeQuery(slot, book)
}

func (s *spyOracle) ResolveNameFromID(id int) (string, bool) {
	s.resolveName++
	return s.Oracle.ResolveNameFromID(id)
}

func (s *spyOracle) CompanionActionInfo(slot int) (host.CompanionAction, bool) {
	s.actionInfo++
	return s.Oracle.CompanionActionInfo(slot)
}

func (s *spyOracle) queries() int {
	return s.directRange + s.directHasRange + s.slotRange + s.slotHasRange + s.resolveName + s.actionInfo
}

func sampleFixture() host.FixtureFile {
	var f host.FixtureFile
	f.Capabilities.DirectRange = true
	f.Capabilities.DirectHasRange = true
	f.Books.Player = []host.FixtureSlot{
		{Slot: 5, Kind: "spell", Name: "Fireball", ID: 133},
		{Slot: 7, Kind: "spell", Name: "Frostbolt"}, // id only via names table
	}
	f.Books.Pet = []host.FixtureSlot{
		{Slot: 1, Kind: "pet_action", Name: "Growl", ID: 2649},
	}
	f.Pet.Present = true
	f.Pet.Actions = []host.FixtureAction{
		{Slot: 2, Name: "Growl", ID: 2649, ChecksRange: true, InRange: true},
	}
	f.Ranges = []host.FixtureRange{
		{Spell: "133", Unit: "target", InRange: true},
		{Spell: "frostbolt", Unit: "target", InRange: false},
	}
	f.HasRange = []string{"133", "fireball", "frostbolt", "2649", "growl"}
	f.Names = map[int]string{116: "Frostbolt"}
	f.UnitAliases = map[string]string{"tank": "target"}
	return f
}

type harness struct {
	fx    *host.Fixture
	spy   *spyOracle
	cache *rangecache.Cache
	clk   *fakeClock
	res   *resolver.Resolver
}

func newHarness(t *testing.T, f host.FixtureFile, noDirect bool) *harness {
	t.Helper()
	fx := host.NewFixture(f)
	spy := &spyOracle{Oracle: fx, noDirect: noDirect}
	norm := spell.NewNormalizer(0)
	clk := newFakeClock()

	books := spellbook.NewIndex(spy, norm)
	books.Rebuild(host.BookPlayer)
	books.Rebuild(host.BookPet)
	acts := companion.NewActions(spy, norm)
	acts.Rebuild()
	spy.actionInfo = 0 // rebuild consultations are not query work

	cache := rangecache.New(1500*time.Millisecond, clk.now)
	res, err := resolver.New(resolver.Config{
		Oracle:   spy,
		Books:    books,
		Actions:  acts,
		Cache:    cache,
		Norm:     norm,
		Logger:   zap.NewNop(),
		Throttle: 200 * time.Millisecond,
		Now:      clk.now,
	})
	require.NoError(t, err)
	return &harness{fx: fx, spy: spy, cache: cache, clk: clk, res: res}
}

func TestConfig_ValidateNamesAllMissing(t *testing.T) {
	err := resolver.Config{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Oracle")
	assert.Contains(t, err.Error(), "Cache")
	assert.Contains(t, err.Error(), "Logger")
}

func TestIsSpellInRange_DirectQuery(t *testing.T) {
	h := newHarness(t, sampleFixture(), false)
	assert.Equal(t, spell.InRange, h.res.IsSpellInRange(spell.ByID(133), "target"))
	assert.Equal(t, 1, h.spy.directRange)
	assert.Zero(t, h.spy.slotRange, "direct answer must short-circuit the chain")
}

func TestIsSpellInRange_FireballScenario(t *testing.T) {
	// Direct query yields nothing; the slot-based check answers.
	h := newHarness(t, sampleFixture(), true)

	got := h.res.IsSpellInRange(spell.ByID(133), "target")
	assert.Equal(t, spell.InRange, got)
	assert.Equal(t, 1, h.spy.slotRange)

	// Identical call within the validity window is served from the cache.
	before := h.spy.queries()
	h.clk.advance(100 * time.Millisecond)
	got = h.res.IsSpellInRange(spell.ByID(133), "target")
	assert.Equal(t, spell.InRange, got)
	assert.Equal(t, before, h.spy.queries(), "cache hit must not consult the oracle")
}

func TestIsSpellInRange_CacheExpiryReResolves(t *testing.T) {
	h := newHarness(t, sampleFixture(), true)
	require.Equal(t, spell.InRange, h.res.IsSpellInRange(spell.ByID(133), "target"))

	// The world changes while the entry ages out.
	h.fx.SetRange("133", "target", false)
	h.clk.advance(1500 * time.Millisecond)

	got := h.res.IsSpellInRange(spell.ByID(133), "target")
	assert.Equal(t, spell.OutOfRange, got, "expired entry must be re-resolved against current state")
}

func TestIsSpellInRange_ByName(t *testing.T) {
	h := newHarness(t, sampleFixture(), true)
	assert.Equal(t, spell.OutOfRange, h.res.IsSpellInRange(spell.ByName("FROSTBOLT"), "target"))
}

func TestIsSpellInRange_GrowlCompanionFallback(t *testing.T) {
	// Pet catalog slot lookup succeeds but the slot range check is
	// inconclusive (no slot observation); the action bar answers, but only
	// against the primary target.
	f := sampleFixture()
	f.Ranges = nil // no slot/direct observations at all
	h := newHarness(t, f, true)

	assert.Equal(t, spell.InRange, h.res.IsSpellInRange(spell.ByID(2649), "target"))
	assert.Equal(t, spell.InRange, h.res.IsSpellInRange(spell.ByName("Growl"), "tank"),
		"unit equivalent to the primary target uses the action fallback")
	assert.Equal(t, spell.Unknown, h.res.IsSpellInRange(spell.ByID(2649), "focus"),
		"action observation is not trusted for other units")
}

func TestIsSpellInRange_NameRecursionFromID(t *testing.T) {
	// 116 is not indexed by id anywhere; the oracle resolves it to
	// "Frostbolt", which the player book carries.
	h := newHarness(t, sampleFixture(), true)
	got := h.res.IsSpellInRange(spell.ByID(116), "target")
	assert.Equal(t, spell.OutOfRange, got)
	assert.Equal(t, 1, h.spy.resolveName)
}

func TestIsSpellInRange_RecursionIsSingleLevel(t *testing.T) {
	f := sampleFixture()
	f.Names[4242] = "Unknown Ability" // resolvable name, indexed nowhere
	h := newHarness(t, f, true)

	assert.Equal(t, spell.Unknown, h.res.IsSpellInRange(spell.ByID(4242), "target"))
	assert.Equal(t, 1, h.spy.resolveName, "name resolution must not cascade")
}

func TestIsSpellInRange_UnknownIdentifierNotCached(t *testing.T) {
	h := newHarness(t, sampleFixture(), true)
	assert.Equal(t, spell.Unknown, h.res.IsSpellInRange(spell.ByName("Made Up"), "target"))
	assert.Equal(t, 0, h.cache.Len(), "unresolved queries must not claim resolution in the cache")
}

func TestIsSpellInRange_InvalidInputs(t *testing.T) {
	h := newHarness(t, sampleFixture(), true)
	assert.Equal(t, spell.Unknown, h.res.IsSpellInRange(spell.Identifier{}, "target"))
	assert.Equal(t, spell.Unknown, h.res.IsSpellInRange(spell.ByID(133), ""))
	assert.Zero(t, h.spy.queries())
}

func TestIsSpellInRange_ThrottleShedsNonPriorityUnits(t *testing.T) {
	h := newHarness(t, sampleFixture(), true)
	h.fx.SetRange("133", "raid7", true)
	h.fx.SetRange("133", "raid8", true)

	// First non-priority resolution is admitted.
	require.Equal(t, spell.InRange, h.res.IsSpellInRange(spell.ByID(133), "raid7"))
	before := h.spy.queries()

	// Second one inside the throttle window is shed without any oracle work.
	h.clk.advance(50 * time.Millisecond)
	assert.Equal(t, spell.Unknown, h.res.IsSpellInRange(spell.ByID(133), "raid8"))
	assert.Equal(t, before, h.spy.queries())

	// After the window it resolves again.
	h.clk.advance(200 * time.Millisecond)
	assert.Equal(t, spell.InRange, h.res.IsSpellInRange(spell.ByID(133), "raid8"))
}

func TestIsSpellInRange_PriorityUnitsNeverShed(t *testing.T) {
	h := newHarness(t, sampleFixture(), true)
	h.fx.SetRange("133", "raid7", true)
	require.Equal(t, spell.InRange, h.res.IsSpellInRange(spell.ByID(133), "raid7"))

	// Immediately afterwards, priority units still resolve fully.
	for _, unit := range []string{"target", "focus", "mouseover", "boss3", "party4"} {
		h.fx.SetRange("133", unit, true)
		assert.Equal(t, spell.InRange, h.res.IsSpellInRange(spell.ByID(133), unit), unit)
	}
}

func TestSpellHasRange_Direct(t *testing.T) {
	h := newHarness(t, sampleFixture(), false)
	assert.Equal(t, spell.InRange, h.res.SpellHasRange(spell.ByID(133)))
	assert.Equal(t, 1, h.spy.directHasRange)
}

func TestSpellHasRange_SlotFallback(t *testing.T) {
	h := newHarness(t, sampleFixture(), true)
	assert.Equal(t, spell.InRange, h.res.SpellHasRange(spell.ByName("Fireball")))
	assert.Equal(t, 1, h.spy.slotHasRange)
}

func TestSpellHasRange_NotThrottled(t *testing.T) {
	h := newHarness(t, sampleFixture(), true)
	// Exhaust the non-priority throttle with a range query.
	h.fx.SetRange("133", "raid7", true)
	require.Equal(t, spell.InRange, h.res.IsSpellInRange(spell.ByID(133), "raid7"))

	assert.Equal(t, spell.InRange, h.res.SpellHasRange(spell.ByID(133)),
		"has-range queries are never load-shed")
}

func TestSpellHasRange_PersistentFlagSurvivesDismissal(t *testing.T) {
	f := sampleFixture()
	f.Books.Pet = nil // Growl appears only on the action bar
	h := newHarness(t, f, true)

	// Flag was recorded during the action index rebuild; then the pet goes
	// away and the bar is rebuilt empty.
	h.fx.SetPetPresent(false)

	assert.Equal(t, spell.InRange, h.res.SpellHasRange(spell.ByID(2649)),
		"persistent has-range flag is the terminal fallback")
}

func TestSpellHasRange_CachedUnderOwnKind(t *testing.T) {
	h := newHarness(t, sampleFixture(), true)
	require.Equal(t, spell.InRange, h.res.SpellHasRange(spell.ByID(133)))

	before := h.spy.queries()
	assert.Equal(t, spell.InRange, h.res.SpellHasRange(spell.ByID(133)))
	assert.Equal(t, before, h.spy.queries())
}

func TestSpellHasRange_UnknownEverywhere(t *testing.T) {
	h := newHarness(t, sampleFixture(), true)
	assert.Equal(t, spell.Unknown, h.res.SpellHasRange(spell.ByName("Made Up")))
	assert.Equal(t, 0, h.cache.Len())
}

func TestExpandUnits(t *testing.T) {
	got := resolver.ExpandUnits([]string{"player", "Boss1-3", "party1-2", "focus"})
	assert.Equal(t, []string{"player", "boss1", "boss2", "boss3", "party1", "party2", "focus"}, got)
}

func TestExpandUnits_MalformedEntriesPassThrough(t *testing.T) {
	got := resolver.ExpandUnits([]string{"boss5-1", "arena0-2", "", "mouseover"})
	assert.Equal(t, []string{"boss5-1", "arena0-2", "mouseover"}, got)
}
