package scripting

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/mudforge/spellrange/internal/spell"
)

// RangeQueries is the surface scripts can reach. The resolver satisfies
// it directly.
type RangeQueries interface {
	IsSpellInRange(ident spell.Identifier, unit string) spell.Verdict
	SpellHasRange(ident spell.Identifier) spell.Verdict
}

// Runner owns one sandboxed LState with the `range` module registered.
//
// The LState is single-threaded; the mutex serializes concurrent script
// executions.
type Runner struct {
	mu      sync.Mutex
	state   *lua.LState
	limit   int
	queries RangeQueries
	norm    *spell.Normalizer
	logger  *zap.Logger
}

// RunnerConfig carries the Runner's dependencies.
type RunnerConfig struct {
	Queries RangeQueries
	Norm    *spell.Normalizer
	Logger  *zap.Logger

	// InstructionLimit caps Lua opcodes per script execution. 0 uses
	// DefaultInstructionLimit.
	InstructionLimit int
}

// NewRunner creates a Runner with a fresh sandboxed VM.
//
// Precondition: cfg.Queries, cfg.Norm, and cfg.Logger must be non-nil.
// Postcondition: the `range` module is registered and the VM is ready
// for RunFile or RunString.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Queries == nil {
		return nil, fmt.Errorf("scripting: Queries is required")
	}
	if cfg.Norm == nil {
		return nil, fmt.Errorf("scripting: Norm is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("scripting: Logger is required")
	}

	limit := cfg.InstructionLimit
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	r := &Runner{
		state:   NewSandboxedState(limit),
		limit:   limit,
		queries: cfg.Queries,
		norm:    cfg.Norm,
		logger:  cfg.Logger,
	}
	r.registerRangeModule()
	return r, nil
}

// RunFile executes a Lua script from disk with a fresh opcode budget.
// Globals defined by earlier runs remain visible.
func (r *Runner) RunFile(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetBudget()
	if err := r.state.DoFile(path); err != nil {
		return fmt.Errorf("scripting: running %q: %w", path, err)
	}
	return nil
}

// RunString executes inline Lua source with a fresh opcode budget.
func (r *Runner) RunString(src string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetBudget()
	if err := r.state.DoString(src); err != nil {
		return fmt.Errorf("scripting: running inline script: %w", err)
	}
	return nil
}

// resetBudget installs a fresh counting context so each execution gets the
// full instruction budget; an exhausted prior run never starves the next.
// Caller must hold r.mu.
func (r *Runner) resetBudget() {
	ctx, _ := newCountingContext(r.limit)
	r.state.SetContext(ctx)
}

// Close releases the underlying VM.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Close()
}

// registerRangeModule installs the `range` table:
//
//	range.is_spell_in_range(spell, unit) -> 1 | 0 | nil
//	range.spell_has_range(spell)         -> 1 | 0 | nil
//	range.print(...)                     -> logs at info level
//
// 1 means yes, 0 means no, nil means the answer is not currently known.
func (r *Runner) registerRangeModule() {
	mod := r.state.NewTable()
	r.state.SetFuncs(mod, map[string]lua.LGFunction{
		"is_spell_in_range": r.luaIsSpellInRange,
		"spell_has_range":   r.luaSpellHasRange,
		"print":             r.luaPrint,
	})
	r.state.SetGlobal("range", mod)
}

func (r *Runner) luaIsSpellInRange(L *lua.LState) int {
	raw := L.CheckString(1)
	unit := L.CheckString(2)
	ident := r.norm.Classify(raw)
	L.Push(verdictToLua(r.queries.IsSpellInRange(ident, unit)))
	return 1
}

func (r *Runner) luaSpellHasRange(L *lua.LState) int {
	raw := L.CheckString(1)
	ident := r.norm.Classify(raw)
	L.Push(verdictToLua(r.queries.SpellHasRange(ident)))
	return 1
}

func (r *Runner) luaPrint(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.Get(i).String())
	}
	r.logger.Info("script output", zap.Strings("args", parts))
	return 0
}

func verdictToLua(v spell.Verdict) lua.LValue {
	switch v {
	case spell.InRange:
		return lua.LNumber(1)
	case spell.OutOfRange:
		return lua.LNumber(0)
	default:
		return lua.LNil
	}
}
