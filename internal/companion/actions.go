// Package companion maintains the companion action-bar index: a secondary
// name/id→action-slot mapping used as a fallback range source when the
// catalog-based check is inconclusive for companion abilities, plus a
// persistent record of which companion abilities have ever reported a range.
package companion

import (
	"sync"

	"github.com/mudforge/spellrange/internal/host"
	"github.com/mudforge/spellrange/internal/spell"
)

// ActionSlots is the fixed size of the companion action bar.
const ActionSlots = 10

// Actions indexes the companion action bar.
//
// The has-ever-had-range flags persist for the process lifetime: a companion
// ability's range-having-ness is a static property of the ability, not of
// the current loadout, and the host's own has-range reporting for companion
// abilities is unreliable. Rebuilds clear the slot maps, never the flags.
//
// Safe for concurrent use.
type Actions struct {
	mu             sync.RWMutex
	oracle         host.Oracle
	norm           *spell.Normalizer
	byName         map[string]int
	byID           map[int]int
	rangeByNameKey map[string]bool // never cleared
	rangeByID      map[int]bool    // never cleared
}

// NewActions creates an empty companion action index.
// Precondition: oracle and norm must be non-nil.
func NewActions(oracle host.Oracle, norm *spell.Normalizer) *Actions {
	return &Actions{
		oracle:         oracle,
		norm:           norm,
		byName:         make(map[string]int),
		byID:           make(map[int]int),
		rangeByNameKey: make(map[string]bool),
		rangeByID:      make(map[int]bool),
	}
}

// Rebuild re-enumerates the companion action bar. With no companion present
// both slot maps are cleared and the call returns; otherwise every slot that
// reports range checking is recorded under its name and id, and the
// persistent has-range flags are set for both keys.
func (a *Actions) Rebuild() {
	byName := make(map[string]int)
	byID := make(map[int]int)

	if a.oracle.CompanionPresent() {
		for slot := 1; slot <= ActionSlots; slot++ {
			info, ok := a.oracle.CompanionActionInfo(slot)
			if !ok || !info.ChecksRange {
				continue
			}
			key := a.norm.Fold(info.Name)
			if key != "" {
				byName[key] = slot
			}
			if info.ID > 0 {
				byID[info.ID] = slot
			}

			a.mu.Lock()
			if key != "" {
				a.rangeByNameKey[key] = true
			}
			if info.ID > 0 {
				a.rangeByID[info.ID] = true
			}
			a.mu.Unlock()
		}
	}

	a.mu.Lock()
	a.byName = byName
	a.byID = byID
	a.mu.Unlock()
}

// Lookup resolves an identifier to its action slot.
func (a *Actions) Lookup(ident spell.Identifier) (int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	switch {
	case ident.IsNumeric():
		slot, ok := a.byID[ident.ID()]
		return slot, ok
	case ident.IsName():
		slot, ok := a.byName[a.norm.Fold(ident.Name())]
		return slot, ok
	default:
		return 0, false
	}
}

// HasEverHadRange reports whether the identified companion ability has ever
// been observed checking range. Defaults to false; never reset.
func (a *Actions) HasEverHadRange(ident spell.Identifier) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	switch {
	case ident.IsNumeric():
		return a.rangeByID[ident.ID()]
	case ident.IsName():
		return a.rangeByNameKey[a.norm.Fold(ident.Name())]
	default:
		return false
	}
}

// RangeObservation reads the host's current range bit for an indexed action
// slot. Unknown when the slot no longer reports an action or range checking.
func (a *Actions) RangeObservation(slot int) spell.Verdict {
	info, ok := a.oracle.CompanionActionInfo(slot)
	if !ok || !info.ChecksRange {
		return spell.Unknown
	}
	return spell.FromBool(info.InRange)
}
