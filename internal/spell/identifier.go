package spell

import (
	"strconv"
	"strings"
)

// Identifier names an ability either by its stable numeric ID or by its
// display name. The zero Identifier is invalid; every query against it
// resolves to Unknown.
type Identifier struct {
	id   int
	name string
}

// ByID builds a numeric Identifier.
// Precondition: id must be positive; non-positive IDs yield an invalid Identifier.
func ByID(id int) Identifier {
	if id <= 0 {
		return Identifier{}
	}
	return Identifier{id: id}
}

// ByName builds a textual Identifier from a display name.
// The name is stored raw; canonicalization happens in the Normalizer.
func ByName(name string) Identifier {
	if name == "" {
		return Identifier{}
	}
	return Identifier{name: name}
}

// Parse classifies a raw string input: a string that converts cleanly to a
// positive integer is a numeric Identifier, anything else is a name.
func Parse(raw string) Identifier {
	if raw == "" {
		return Identifier{}
	}
	if id, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return ByID(id)
	}
	return ByName(raw)
}

// IsNumeric reports whether the identifier carries a numeric ID.
func (i Identifier) IsNumeric() bool { return i.id > 0 }

// IsName reports whether the identifier carries a display name.
func (i Identifier) IsName() bool { return i.name != "" }

// Valid reports whether the identifier names anything at all.
func (i Identifier) Valid() bool { return i.IsNumeric() || i.IsName() }

// ID returns the numeric ID, or 0 for textual/invalid identifiers.
func (i Identifier) ID() int { return i.id }

// Name returns the raw display name, or "" for numeric/invalid identifiers.
func (i Identifier) Name() string { return i.name }

// Raw returns the identifier as the string the host's direct query primitive
// accepts: decimal digits for IDs, the raw name otherwise.
func (i Identifier) Raw() string {
	if i.IsNumeric() {
		return strconv.Itoa(i.id)
	}
	return i.name
}

// String implements fmt.Stringer.
func (i Identifier) String() string {
	if !i.Valid() {
		return "<invalid>"
	}
	return i.Raw()
}
