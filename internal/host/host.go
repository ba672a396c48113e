// Package host defines the boundary to the game host: the Oracle interface
// for ability catalog enumeration and range primitives, the event vocabulary
// for invalidation signals, and a YAML-backed fixture host for the simulator
// and tests.
package host

// BookKind selects one of the two ability catalogs.
type BookKind int

const (
	// BookPlayer is the actor's own spellbook.
	BookPlayer BookKind = iota
	// BookPet is the companion's spellbook.
	BookPet
)

// String returns a short catalog label.
func (b BookKind) String() string {
	switch b {
	case BookPlayer:
		return "player"
	case BookPet:
		return "pet"
	default:
		return "unknown"
	}
}

// SlotKind is the type of entry occupying a spellbook slot. Only active
// ability kinds (SlotSpell, SlotPetAction) are indexable; flyouts and
// not-yet-learned placeholders are skipped.
type SlotKind int

const (
	SlotEmpty SlotKind = iota
	SlotSpell
	SlotPetAction
	SlotFlyout
	SlotFuture
)

// Active reports whether a slot of this kind holds a usable ability.
func (k SlotKind) Active() bool {
	return k == SlotSpell || k == SlotPetAction
}

// BookEntry is one enumerated spellbook slot. BaseID is non-zero when the
// slot's ability replaces a different base ability (build override); it then
// names the base.
type BookEntry struct {
	Slot   int
	Kind   SlotKind
	BaseID int
}

// CompanionAction describes one companion action-bar slot.
type CompanionAction struct {
	Name string
	ID   int
	// ChecksRange is the host's report that this action performs range
	// checking against the current target.
	ChecksRange bool
	// InRange is the host's current range observation for the action.
	InRange bool
}

// Capabilities reports which direct query primitives the host provides.
// Probed once at resolver construction; a missing primitive permanently
// selects the index fallback path for the process lifetime.
type Capabilities struct {
	DirectRange    bool
	DirectHasRange bool
}

// Oracle is the host's native query surface for ability and range
// information. All calls are synchronous and non-blocking. Boolean query
// results use the (value, ok) convention: ok=false means the host has no
// answer, which callers propagate as an unknown verdict.
type Oracle interface {
	// EnumerateBook returns every occupied slot of the catalog in slot order.
	// An empty result is a valid empty catalog, not an error.
	EnumerateBook(book BookKind) []BookEntry

	// SlotInfo returns the display name, numeric ID, and link string for a
	// slot. The ID may be 0 when the host only exposes it through the link.
	SlotInfo(slot int, book BookKind) (name string, id int, link string, ok bool)

	// DirectRangeQuery asks the host's native range check with a raw
	// name-or-digits identifier.
	DirectRangeQuery(rawIdent, unit string) (inRange, ok bool)

	// DirectHasRangeQuery asks whether the identified ability has a range
	// concept at all.
	DirectHasRangeQuery(rawIdent string) (hasRange, ok bool)

	// SlotRangeQuery performs the catalog-slot based range check.
	SlotRangeQuery(slot int, book BookKind, unit string) (inRange, ok bool)

	// SlotHasRangeQuery reports whether the ability in a slot has a range.
	SlotHasRangeQuery(slot int, book BookKind) (hasRange, ok bool)

	// CompanionPresent reports whether a companion is currently active.
	CompanionPresent() bool

	// CompanionActionInfo describes a companion action-bar slot.
	CompanionActionInfo(slot int) (CompanionAction, bool)

	// ResolveNameFromID maps a numeric ability ID to its display name.
	ResolveNameFromID(id int) (string, bool)

	// SameUnit reports whether two unit tokens refer to the same unit,
	// by identity or host-side equivalence.
	SameUnit(a, b string) bool

	// Capabilities reports which direct primitives exist.
	Capabilities() Capabilities
}
