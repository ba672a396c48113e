package host

import (
	"regexp"
	"strconv"
)

// spellLinkPattern matches the numeric payload of a host ability link token,
// e.g. "|Hspell:133|h[Fireball]|h".
var spellLinkPattern = regexp.MustCompile(`\|H\w+:(\d+)`)

// ParseIDFromLink extracts the numeric ability ID from a link-formatted
// string. Used when SlotInfo does not supply the ID directly.
//
// Postcondition: ok is false when link carries no parseable positive ID.
func ParseIDFromLink(link string) (int, bool) {
	m := spellLinkPattern.FindStringSubmatch(link)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
