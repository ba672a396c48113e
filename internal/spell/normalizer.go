package spell

import (
	"strconv"
	"strings"
	"sync"
)

// DefaultMemoCap is the bound on each normalizer memo before it is dropped
// and restarted. The distinct-input population per session is small, so a
// wholesale drop is cheaper than tracking recency.
const DefaultMemoCap = 4096

// Normalizer canonicalizes ability identifiers for use as index and cache
// keys. Numeric classification of strings and case-folding of names are both
// memoized per distinct input, bounded by a cap: when a memo reaches the cap
// it is discarded wholesale and rebuilt on demand.
//
// Safe for concurrent use.
type Normalizer struct {
	mu      sync.Mutex
	cap     int
	numeric map[string]int // raw string → parsed ID (0 = not numeric)
	folded  map[string]string
}

// NewNormalizer creates a Normalizer with the given memo cap.
// Precondition: memoCap >= 0; 0 uses DefaultMemoCap.
func NewNormalizer(memoCap int) *Normalizer {
	if memoCap <= 0 {
		memoCap = DefaultMemoCap
	}
	return &Normalizer{
		cap:     memoCap,
		numeric: make(map[string]int),
		folded:  make(map[string]string),
	}
}

// Classify turns a raw string into an Identifier, memoizing the numeric
// conversion attempt per distinct input.
func (n *Normalizer) Classify(raw string) Identifier {
	if raw == "" {
		return Identifier{}
	}

	n.mu.Lock()
	id, seen := n.numeric[raw]
	if !seen {
		if parsed, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && parsed > 0 {
			id = parsed
		}
		if len(n.numeric) >= n.cap {
			n.numeric = make(map[string]int)
		}
		n.numeric[raw] = id
	}
	n.mu.Unlock()

	if id > 0 {
		return ByID(id)
	}
	return ByName(raw)
}

// Fold returns the case-folded form of name, memoized per distinct input.
func (n *Normalizer) Fold(name string) string {
	if name == "" {
		return ""
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if f, ok := n.folded[name]; ok {
		return f
	}
	f := strings.ToLower(name)
	if len(n.folded) >= n.cap {
		n.folded = make(map[string]string)
	}
	n.folded[name] = f
	return f
}

// Canonical produces the canonical map/cache key for an identifier:
// decimal digits for numeric IDs, the case-folded name for textual ones.
//
// Postcondition: ok is false iff ident is invalid; raw input is never
// returned as a key for textual identifiers.
func (n *Normalizer) Canonical(ident Identifier) (key string, ok bool) {
	switch {
	case ident.IsNumeric():
		return strconv.Itoa(ident.ID()), true
	case ident.IsName():
		return n.Fold(ident.Name()), true
	default:
		return "", false
	}
}

// MemoSizes returns the current sizes of the numeric and folding memos.
// Intended for tests and diagnostics.
func (n *Normalizer) MemoSizes() (numeric, folded int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.numeric), len(n.folded)
}
