package spell_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/mudforge/spellrange/internal/spell"
)

func TestParse_NumericString(t *testing.T) {
	id := spell.Parse("2649")
	assert.True(t, id.IsNumeric())
	assert.Equal(t, 2649, id.ID())
	assert.Equal(t, "2649", id.Raw())
}

func TestParse_Name(t *testing.T) {
	id := spell.Parse("Fireball")
	assert.True(t, id.IsName())
	assert.Equal(t, "Fireball", id.Name())
	assert.False(t, id.IsNumeric())
}

func TestParse_Empty(t *testing.T) {
	id := spell.Parse("")
	assert.False(t, id.Valid())
}

func TestByID_NonPositiveIsInvalid(t *testing.T) {
	assert.False(t, spell.ByID(0).Valid())
	assert.False(t, spell.ByID(-3).Valid())
}

func TestVerdict_Definite(t *testing.T) {
	assert.True(t, spell.InRange.Definite())
	assert.True(t, spell.OutOfRange.Definite())
	assert.False(t, spell.Unknown.Definite())
}

func TestVerdict_FromBool(t *testing.T) {
	assert.Equal(t, spell.InRange, spell.FromBool(true))
	assert.Equal(t, spell.OutOfRange, spell.FromBool(false))
}

func TestPropertyParse_PositiveIntsRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 1<<30).Draw(t, "id")
		id := spell.Parse(strconv.Itoa(n))
		assert.True(t, id.IsNumeric())
		assert.Equal(t, n, id.ID())
	})
}
