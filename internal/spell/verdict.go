// Package spell provides the core vocabulary for ability range queries:
// the tri-state query verdict, the numeric-or-named ability identifier,
// and the memoizing normalizer that produces canonical lookup keys.
package spell

// Verdict is the tri-state outcome of a range query.
// The zero value is Unknown: absence of information is a valid result,
// never an error.
type Verdict int

const (
	// Unknown means the query could not be resolved to a definite answer.
	Unknown Verdict = iota
	// OutOfRange means the ability is known and the target is out of range.
	OutOfRange
	// InRange means the ability is known and the target is within range.
	InRange
)

// String returns a human-readable verdict label.
func (v Verdict) String() string {
	switch v {
	case InRange:
		return "in range"
	case OutOfRange:
		return "out of range"
	case Unknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Definite reports whether the verdict carries a usable answer.
// Postcondition: Returns true iff v is InRange or OutOfRange.
func (v Verdict) Definite() bool {
	return v == InRange || v == OutOfRange
}

// FromBool converts a boolean range observation into a Verdict.
func FromBool(inRange bool) Verdict {
	if inRange {
		return InRange
	}
	return OutOfRange
}
