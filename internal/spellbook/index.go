// Package spellbook maintains the catalog index: bidirectional
// name→slot and id→slot maps over the player and companion spellbooks,
// rebuilt wholesale from the host oracle on demand.
package spellbook

import (
	"sync"

	"github.com/mudforge/spellrange/internal/host"
	"github.com/mudforge/spellrange/internal/spell"
)

// bookMaps holds the two lookup maps of one catalog.
type bookMaps struct {
	byName map[string]int
	byID   map[int]int
}

func newBookMaps() bookMaps {
	return bookMaps{byName: make(map[string]int), byID: make(map[int]int)}
}

// Index is the catalog index over both spellbooks.
//
// Slot values are positions in the host's current enumeration and are not
// stable across rebuilds: a rebuild discards every prior entry for that
// catalog. Safe for concurrent use.
type Index struct {
	mu     sync.RWMutex
	oracle host.Oracle
	norm   *spell.Normalizer
	books  map[host.BookKind]bookMaps
}

// NewIndex creates an empty Index over the given oracle.
// Precondition: oracle and norm must be non-nil.
func NewIndex(oracle host.Oracle, norm *spell.Normalizer) *Index {
	return &Index{
		oracle: oracle,
		norm:   norm,
		books: map[host.BookKind]bookMaps{
			host.BookPlayer: newBookMaps(),
			host.BookPet:    newBookMaps(),
		},
	}
}

// Rebuild re-enumerates one catalog and replaces its maps wholesale.
// No incremental diffing: catalog contents shift on talent and
// specialization changes that are cheaper to re-enumerate than to diff.
//
// First-writer-wins: when two slots canonicalize to the same key, the lower
// slot is retained. Active abilities enumerate before passive duplicates
// sharing a display name, so this keeps the usable one.
//
// When a slot's ability replaces a distinct base ability, the base's id and
// name are indexed under the same slot so pre-override identifiers still
// resolve.
//
// Postcondition: the catalog's maps reflect exactly the current enumeration;
// an empty enumeration is a valid empty state.
func (x *Index) Rebuild(book host.BookKind) {
	maps := newBookMaps()

	for _, entry := range x.oracle.EnumerateBook(book) {
		if !entry.Kind.Active() {
			continue
		}
		name, id, link, ok := x.oracle.SlotInfo(entry.Slot, book)
		if !ok {
			continue
		}
		if id == 0 {
			if parsed, found := host.ParseIDFromLink(link); found {
				id = parsed
			}
		}

		writeName(maps.byName, x.norm.Fold(name), entry.Slot)
		writeID(maps.byID, id, entry.Slot)

		// Build-override case: the slot's ability supersedes a base
		// ability; index the base under the same slot.
		if entry.BaseID > 0 && entry.BaseID != id {
			writeID(maps.byID, entry.BaseID, entry.Slot)
			if baseName, found := x.oracle.ResolveNameFromID(entry.BaseID); found {
				writeName(maps.byName, x.norm.Fold(baseName), entry.Slot)
			}
		}
	}

	x.mu.Lock()
	x.books[book] = maps
	x.mu.Unlock()
}

func writeName(m map[string]int, key string, slot int) {
	if key == "" {
		return
	}
	if _, taken := m[key]; !taken {
		m[key] = slot
	}
}

func writeID(m map[int]int, id, slot int) {
	if id <= 0 {
		return
	}
	if _, taken := m[id]; !taken {
		m[id] = slot
	}
}

// LookupID returns the slot indexed for a numeric ability ID.
func (x *Index) LookupID(book host.BookKind, id int) (int, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	slot, ok := x.books[book].byID[id]
	return slot, ok
}

// LookupName returns the slot indexed for a canonical (case-folded) name.
func (x *Index) LookupName(book host.BookKind, canonicalName string) (int, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	slot, ok := x.books[book].byName[canonicalName]
	return slot, ok
}

// Lookup resolves an identifier against one catalog via the normalizer.
// Invalid identifiers never resolve.
func (x *Index) Lookup(book host.BookKind, ident spell.Identifier) (int, bool) {
	switch {
	case ident.IsNumeric():
		return x.LookupID(book, ident.ID())
	case ident.IsName():
		return x.LookupName(book, x.norm.Fold(ident.Name()))
	default:
		return 0, false
	}
}

// Size returns the number of distinct name keys indexed for a catalog.
// Intended for tests and diagnostics.
func (x *Index) Size(book host.BookKind) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.books[book].byName)
}
