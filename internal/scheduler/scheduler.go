// Package scheduler applies event-driven invalidation to the spellbook and
// companion indexes and sweeps the result cache, decoupling expensive
// rebuilds from bursty host event delivery: events only set flags, and a
// cadence-gated tick coalesces any number of pending flags into one rebuild.
package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mudforge/spellrange/internal/companion"
	"github.com/mudforge/spellrange/internal/host"
	"github.com/mudforge/spellrange/internal/rangecache"
	"github.com/mudforge/spellrange/internal/spellbook"
)

// DefaultTickCadence is the minimum spacing between applied ticks.
const DefaultTickCadence = 200 * time.Millisecond

// Config holds the scheduler's dependencies and tuning.
type Config struct {
	Books   *spellbook.Index
	Actions *companion.Actions
	Cache   *rangecache.Cache
	Logger  *zap.Logger

	TickCadence   time.Duration // 0 = DefaultTickCadence
	SweepInterval time.Duration // 0 = rangecache.DefaultSweepInterval
	SweepBudget   int           // 0 = rangecache.DefaultSweepBudget

	// Now overrides the clock for tests.
	Now func() time.Time
}

// Scheduler owns the pending rebuild flags and the tick that applies them.
// Safe for concurrent use; rebuild work runs on the ticking goroutine only.
type Scheduler struct {
	books   *spellbook.Index
	actions *companion.Actions
	cache   *rangecache.Cache
	logger  *zap.Logger

	cadence       time.Duration
	sweepInterval time.Duration
	sweepBudget   int
	now           func() time.Time

	mu          sync.Mutex
	flagPlayer  bool
	flagPet     bool
	flagActions bool
	lastTick    time.Time
	lastSweep   time.Time
}

// New creates a Scheduler.
// Precondition: cfg.Books, cfg.Actions, cfg.Cache, and cfg.Logger must be non-nil.
func New(cfg Config) *Scheduler {
	if cfg.TickCadence <= 0 {
		cfg.TickCadence = DefaultTickCadence
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = rangecache.DefaultSweepInterval
	}
	if cfg.SweepBudget <= 0 {
		cfg.SweepBudget = rangecache.DefaultSweepBudget
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		books:         cfg.Books,
		actions:       cfg.Actions,
		cache:         cfg.Cache,
		logger:        cfg.Logger,
		cadence:       cfg.TickCadence,
		sweepInterval: cfg.SweepInterval,
		sweepBudget:   cfg.SweepBudget,
		now:           cfg.Now,
	}
}

// OnEvent records the invalidation a host event implies. Setting an already
// set flag is a no-op: any number of events between ticks coalesce into one
// rebuild. Never performs rebuild work inline.
func (s *Scheduler) OnEvent(ev host.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Kind {
	case host.EventBookChanged:
		s.flagPlayer = true
		s.flagPet = true
	case host.EventPetBarChanged, host.EventTargetChanged:
		// Companion range reporting depends on target selection.
		s.flagActions = true
	case host.EventSettingChanged:
		if ev.Setting == host.SettingShowAllRanks {
			s.flagPlayer = true
			s.flagPet = true
		}
	}
}

// Subscribe registers the scheduler's handler for every invalidating event
// kind on the dispatcher.
func (s *Scheduler) Subscribe(d *host.Dispatcher) {
	for _, kind := range []host.EventKind{
		host.EventBookChanged,
		host.EventPetBarChanged,
		host.EventTargetChanged,
		host.EventSettingChanged,
	} {
		d.Subscribe(kind, s.OnEvent)
	}
}

// Tick applies pending rebuild flags and runs the cache sweep when due.
// A tick arriving before the cadence has elapsed since the last applied tick
// is a no-op; so is a tick that finds no flags set and no sweep due.
func (s *Scheduler) Tick() {
	now := s.now()

	s.mu.Lock()
	if !s.lastTick.IsZero() && now.Sub(s.lastTick) < s.cadence {
		s.mu.Unlock()
		return
	}
	s.lastTick = now
	player, pet, acts := s.flagPlayer, s.flagPet, s.flagActions
	// Clearing under the same lock keeps rebuild requests idempotent while
	// letting events raised during a rebuild flag the next tick.
	s.flagPlayer, s.flagPet, s.flagActions = false, false, false
	sweepDue := s.lastSweep.IsZero() || now.Sub(s.lastSweep) > s.sweepInterval
	if sweepDue {
		s.lastSweep = now
	}
	s.mu.Unlock()

	if player {
		s.books.Rebuild(host.BookPlayer)
		s.logger.Debug("rebuilt spellbook index", zap.Stringer("book", host.BookPlayer))
	}
	if pet {
		s.books.Rebuild(host.BookPet)
		s.logger.Debug("rebuilt spellbook index", zap.Stringer("book", host.BookPet))
	}
	if acts {
		s.actions.Rebuild()
		s.logger.Debug("rebuilt companion action index")
	}
	if sweepDue {
		if removed := s.cache.Sweep(s.sweepBudget); removed > 0 {
			s.logger.Debug("swept result cache", zap.Int("removed", removed))
		}
	}
}

// Prime performs the initial rebuild of all three indexes so the first
// queries do not start cold. Intended for startup, before ticking begins.
func (s *Scheduler) Prime() {
	s.books.Rebuild(host.BookPlayer)
	s.books.Rebuild(host.BookPet)
	s.actions.Rebuild()
	s.mu.Lock()
	s.lastTick = s.now()
	s.lastSweep = s.lastTick
	s.mu.Unlock()
	s.logger.Info("indexes primed")
}

// Pending reports the current flag state. Intended for tests.
func (s *Scheduler) Pending() (player, pet, actions bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flagPlayer, s.flagPet, s.flagActions
}

// LastTick returns the time of the last applied tick.
func (s *Scheduler) LastTick() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick
}
