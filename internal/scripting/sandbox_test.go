package scripting_test

import (
	"testing"

	lua "github.com/yuin/gopher-lua"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mudforge/spellrange/internal/scripting"
	"github.com/mudforge/spellrange/internal/spell"
)

func TestSandbox_StripsHostAccess(t *testing.T) {
	L := scripting.NewSandboxedState(0)
	require.NotNil(t, L)
	defer L.Close()

	stripped := []string{
		"os", "io", "debug", // unsafe stdlibs never opened
		"dofile", "loadfile", "load", "collectgarbage", "require",
	}
	for _, name := range stripped {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected global %s to be nil", name)
	}
}

func TestSandbox_SafeLibsServeQueryScripts(t *testing.T) {
	L := scripting.NewSandboxedState(0)
	require.NotNil(t, L)
	defer L.Close()

	// The shapes query scripts lean on: folding names, assembling unit
	// tokens, tabulating results.
	err := L.DoString(`
		assert(string.lower("Arcane Shot") == "arcane shot")
		local units = {}
		for i = 1, 5 do units[i] = "boss" .. i end
		assert(table.concat(units, ",") == "boss1,boss2,boss3,boss4,boss5")
		assert(math.floor(3044.7) == 3044)
	`)
	assert.NoError(t, err)
}

func TestSandbox_OpcodeBudgetHaltsRunawayScript(t *testing.T) {
	L := scripting.NewSandboxedState(25)
	require.NotNil(t, L)
	defer L.Close()

	err := L.DoString(`
		local spells = 0
		while true do spells = spells + 1 end
	`)
	assert.Error(t, err)
}

func TestSandbox_ZeroLimitUsesDefault(t *testing.T) {
	L := scripting.NewSandboxedState(0)
	require.NotNil(t, L)
	defer L.Close()
	assert.NoError(t, L.DoString(`local id = 133 + 0`))
}

func TestRunner_SandboxAppliesToScripts(t *testing.T) {
	q := &stubQueries{rangeAnswers: map[string]spell.Verdict{"Growl": spell.InRange}}
	r := newTestRunner(t, q)

	err := r.RunString(`
		assert(os == nil and io == nil, "host access leaked into script")
		assert(type(range.is_spell_in_range) == "function")
		assert(range.is_spell_in_range("Growl", "target") == 1)
	`)
	assert.NoError(t, err)
}

func TestPropertySandbox_SmallBudgetAlwaysHalts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 50).Draw(t, "limit")
		L := scripting.NewSandboxedState(limit)
		defer L.Close()
		err := L.DoString(`repeat until false`)
		if err == nil {
			t.Fatalf("expected halt with limit=%d but script completed", limit)
		}
	})
}
