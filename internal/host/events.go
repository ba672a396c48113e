package host

import "sync"

// EventKind identifies a host invalidation signal.
type EventKind int

const (
	// EventBookChanged fires when either spellbook's contents change
	// (learning, talents, specialization swaps).
	EventBookChanged EventKind = iota
	// EventPetBarChanged fires when the companion action bar changes.
	EventPetBarChanged
	// EventTargetChanged fires when the primary target changes. Companion
	// range reporting depends on target selection, so this invalidates the
	// action index too.
	EventTargetChanged
	// EventSettingChanged fires when a host setting changes; Setting carries
	// the setting name.
	EventSettingChanged
)

// SettingShowAllRanks is the rank-display setting that reshapes spellbook
// enumeration when toggled.
const SettingShowAllRanks = "showAllRanks"

// String returns the event kind label.
func (k EventKind) String() string {
	switch k {
	case EventBookChanged:
		return "book_changed"
	case EventPetBarChanged:
		return "pet_bar_changed"
	case EventTargetChanged:
		return "target_changed"
	case EventSettingChanged:
		return "setting_changed"
	default:
		return "unknown"
	}
}

// Event is one delivered invalidation signal.
type Event struct {
	Kind EventKind
	// Setting is the setting name for EventSettingChanged, empty otherwise.
	Setting string
}

// Handler consumes delivered events. Handlers must be cheap: the contract is
// flag-setting only, never rebuild work inline.
type Handler func(Event)

// Dispatcher fans host events out to subscribed handlers.
// Safe for concurrent use.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[EventKind][]Handler
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[EventKind][]Handler)}
}

// Subscribe registers h for events of the given kind.
// Precondition: h must not be nil.
func (d *Dispatcher) Subscribe(kind EventKind, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = append(d.handlers[kind], h)
}

// Emit delivers ev to every handler subscribed to its kind, in
// subscription order.
func (d *Dispatcher) Emit(ev Event) {
	d.mu.RLock()
	hs := d.handlers[ev.Kind]
	d.mu.RUnlock()
	for _, h := range hs {
		h(ev)
	}
}
