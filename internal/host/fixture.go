package host

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FixtureSlot is one spellbook slot in a fixture file.
type FixtureSlot struct {
	Slot   int    `yaml:"slot"`
	Kind   string `yaml:"kind"` // "spell" | "pet_action" | "flyout" | "future"
	Name   string `yaml:"name"`
	ID     int    `yaml:"id"`
	Link   string `yaml:"link"`
	BaseID int    `yaml:"base_id"`
}

// FixtureAction is one companion action-bar slot in a fixture file.
type FixtureAction struct {
	Slot        int    `yaml:"slot"`
	Name        string `yaml:"name"`
	ID          int    `yaml:"id"`
	ChecksRange bool   `yaml:"checks_range"`
	InRange     bool   `yaml:"in_range"`
}

// FixtureRange is one entry of the simulated range truth table. Spell may be
// an ID in decimal digits or a display name.
type FixtureRange struct {
	Spell   string `yaml:"spell"`
	Unit    string `yaml:"unit"`
	InRange bool   `yaml:"in_range"`
}

// FixtureFile is the YAML schema for a simulated host.
type FixtureFile struct {
	Capabilities struct {
		DirectRange    bool `yaml:"direct_range"`
		DirectHasRange bool `yaml:"direct_has_range"`
	} `yaml:"capabilities"`
	Books struct {
		Player []FixtureSlot `yaml:"player"`
		Pet    []FixtureSlot `yaml:"pet"`
	} `yaml:"books"`
	Pet struct {
		Present bool            `yaml:"present"`
		Actions []FixtureAction `yaml:"actions"`
	} `yaml:"pet"`
	Ranges   []FixtureRange `yaml:"ranges"`
	HasRange []string       `yaml:"has_range"`
	Names    map[int]string `yaml:"names"`
	// UnitAliases maps alternate unit tokens to their canonical unit.
	UnitAliases map[string]string `yaml:"unit_aliases"`
}

// Fixture is a mutable in-memory host implementing Oracle, driven by a
// FixtureFile. Used by the simulator binary and by tests.
// Safe for concurrent use.
type Fixture struct {
	mu         sync.RWMutex
	caps       Capabilities
	books      map[BookKind][]FixtureSlot
	petPresent bool
	actions    map[int]FixtureAction
	ranges     map[string]bool // "spellKey|unit" → in range
	hasRange   map[string]bool
	names      map[int]string
	aliases    map[string]string
}

// NewFixture builds a Fixture from a parsed file.
func NewFixture(f FixtureFile) *Fixture {
	fx := &Fixture{
		caps: Capabilities{
			DirectRange:    f.Capabilities.DirectRange,
			DirectHasRange: f.Capabilities.DirectHasRange,
		},
		books: map[BookKind][]FixtureSlot{
			BookPlayer: f.Books.Player,
			BookPet:    f.Books.Pet,
		},
		petPresent: f.Pet.Present,
		actions:    make(map[int]FixtureAction),
		ranges:     make(map[string]bool),
		hasRange:   make(map[string]bool),
		names:      make(map[int]string),
		aliases:    make(map[string]string),
	}
	for _, a := range f.Pet.Actions {
		fx.actions[a.Slot] = a
	}
	for _, r := range f.Ranges {
		fx.ranges[rangeKey(r.Spell, r.Unit)] = r.InRange
	}
	for _, s := range f.HasRange {
		fx.hasRange[foldKey(s)] = true
	}
	for id, name := range f.Names {
		fx.names[id] = name
	}
	for alias, canonical := range f.UnitAliases {
		fx.aliases[alias] = canonical
	}
	return fx
}

// LoadFixture reads and parses a fixture YAML file.
// Postcondition: Returns a non-nil Fixture, or an error if the file is
// unreadable or contains unknown fields.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %q: %w", path, err)
	}
	var f FixtureFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing fixture %q: %w", path, err)
	}
	return NewFixture(f), nil
}

func foldKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func rangeKey(spell, unit string) string { return foldKey(spell) + "|" + foldKey(unit) }

func parseSlotKind(s string) SlotKind {
	switch s {
	case "spell":
		return SlotSpell
	case "pet_action":
		return SlotPetAction
	case "flyout":
		return SlotFlyout
	case "future":
		return SlotFuture
	default:
		return SlotEmpty
	}
}

// EnumerateBook implements Oracle.
func (fx *Fixture) EnumerateBook(book BookKind) []BookEntry {
	fx.mu.RLock()
	defer fx.mu.RUnlock()
	slots := fx.books[book]
	out := make([]BookEntry, 0, len(slots))
	for _, s := range slots {
		out = append(out, BookEntry{Slot: s.Slot, Kind: parseSlotKind(s.Kind), BaseID: s.BaseID})
	}
	return out
}

// SlotInfo implements Oracle.
func (fx *Fixture) SlotInfo(slot int, book BookKind) (string, int, string, bool) {
	fx.mu.RLock()
	defer fx.mu.RUnlock()
	for _, s := range fx.books[book] {
		if s.Slot == slot {
			return s.Name, s.ID, s.Link, true
		}
	}
	return "", 0, "", false
}

// lookupRange resolves a range observation for an ability known by id and
// name against a unit. The id key wins over the name key.
func (fx *Fixture) lookupRange(id int, name, unit string) (bool, bool) {
	unit = fx.canonicalUnit(unit)
	if id > 0 {
		if v, ok := fx.ranges[rangeKey(strconv.Itoa(id), unit)]; ok {
			return v, true
		}
	}
	if name != "" {
		if v, ok := fx.ranges[rangeKey(name, unit)]; ok {
			return v, true
		}
	}
	return false, false
}

func (fx *Fixture) abilityHasRange(id int, name string) bool {
	if id > 0 && fx.hasRange[strconv.Itoa(id)] {
		return true
	}
	return name != "" && fx.hasRange[foldKey(name)]
}

// DirectRangeQuery implements Oracle.
func (fx *Fixture) DirectRangeQuery(rawIdent, unit string) (bool, bool) {
	fx.mu.RLock()
	defer fx.mu.RUnlock()
	if !fx.caps.DirectRange {
		return false, false
	}
	id, _ := strconv.Atoi(strings.TrimSpace(rawIdent))
	return fx.lookupRange(id, rawIdent, unit)
}

// DirectHasRangeQuery implements Oracle.
func (fx *Fixture) DirectHasRangeQuery(rawIdent string) (bool, bool) {
	fx.mu.RLock()
	defer fx.mu.RUnlock()
	if !fx.caps.DirectHasRange {
		return false, false
	}
	id, _ := strconv.Atoi(strings.TrimSpace(rawIdent))
	if id > 0 || fx.knowsName(rawIdent) {
		return fx.abilityHasRange(id, rawIdent), true
	}
	return false, false
}

// knowsName reports whether any book slot carries the given display name.
func (fx *Fixture) knowsName(name string) bool {
	folded := foldKey(name)
	for _, slots := range fx.books {
		for _, s := range slots {
			if foldKey(s.Name) == folded {
				return true
			}
		}
	}
	return false
}

// SlotRangeQuery implements Oracle.
func (fx *Fixture) SlotRangeQuery(slot int, book BookKind, unit string) (bool, bool) {
	fx.mu.RLock()
	defer fx.mu.RUnlock()
	for _, s := range fx.books[book] {
		if s.Slot == slot {
			if !fx.abilityHasRange(s.ID, s.Name) {
				return false, false
			}
			return fx.lookupRange(s.ID, s.Name, unit)
		}
	}
	return false, false
}

// SlotHasRangeQuery implements Oracle.
func (fx *Fixture) SlotHasRangeQuery(slot int, book BookKind) (bool, bool) {
	fx.mu.RLock()
	defer fx.mu.RUnlock()
	for _, s := range fx.books[book] {
		if s.Slot == slot {
			return fx.abilityHasRange(s.ID, s.Name), true
		}
	}
	return false, false
}

// CompanionPresent implements Oracle.
func (fx *Fixture) CompanionPresent() bool {
	fx.mu.RLock()
	defer fx.mu.RUnlock()
	return fx.petPresent
}

// CompanionActionInfo implements Oracle.
func (fx *Fixture) CompanionActionInfo(slot int) (CompanionAction, bool) {
	fx.mu.RLock()
	defer fx.mu.RUnlock()
	if !fx.petPresent {
		return CompanionAction{}, false
	}
	a, ok := fx.actions[slot]
	if !ok {
		return CompanionAction{}, false
	}
	return CompanionAction{Name: a.Name, ID: a.ID, ChecksRange: a.ChecksRange, InRange: a.InRange}, true
}

// ResolveNameFromID implements Oracle.
func (fx *Fixture) ResolveNameFromID(id int) (string, bool) {
	fx.mu.RLock()
	defer fx.mu.RUnlock()
	if name, ok := fx.names[id]; ok {
		return name, true
	}
	for _, slots := range fx.books {
		for _, s := range slots {
			if s.ID == id && s.Name != "" {
				return s.Name, true
			}
		}
	}
	return "", false
}

func (fx *Fixture) canonicalUnit(unit string) string {
	u := foldKey(unit)
	if c, ok := fx.aliases[u]; ok {
		return foldKey(c)
	}
	return u
}

// SameUnit implements Oracle.
func (fx *Fixture) SameUnit(a, b string) bool {
	fx.mu.RLock()
	defer fx.mu.RUnlock()
	return fx.canonicalUnit(a) == fx.canonicalUnit(b)
}

// Capabilities implements Oracle.
func (fx *Fixture) Capabilities() Capabilities {
	fx.mu.RLock()
	defer fx.mu.RUnlock()
	return fx.caps
}

// SetPetPresent toggles companion presence.
func (fx *Fixture) SetPetPresent(present bool) {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	fx.petPresent = present
}

// SetRange updates the simulated range truth for a spell/unit pair. Spell
// may be an ID in decimal digits or a display name.
func (fx *Fixture) SetRange(spellKey, unit string, inRange bool) {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	fx.ranges[rangeKey(spellKey, fx.canonicalUnit(unit))] = inRange
}

// SetActionInRange updates the range observation of a companion action slot.
func (fx *Fixture) SetActionInRange(slot int, inRange bool) {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	if a, ok := fx.actions[slot]; ok {
		a.InRange = inRange
		fx.actions[slot] = a
	}
}

// ReplaceBook swaps the contents of a catalog wholesale, mirroring what a
// talent or specialization change does on the real host.
func (fx *Fixture) ReplaceBook(book BookKind, slots []FixtureSlot) {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	fx.books[book] = slots
}

// ReplaceActions swaps the companion action bar wholesale.
func (fx *Fixture) ReplaceActions(actions []FixtureAction) {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	fx.actions = make(map[int]FixtureAction, len(actions))
	for _, a := range actions {
		fx.actions[a.Slot] = a
	}
}
