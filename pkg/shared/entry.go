package shared

import (
	"sync"

	"github.com/vango-dev/sharedstate/pkg/component"
)

// Listener is notified when an entry's value changes.
// *component.Owner satisfies it.
type Listener = component.Listener

// funcListener adapts a plain callback to Listener.
type funcListener struct {
	id uint64
	fn func()
}

func (l *funcListener) MarkDirty() { l.fn() }
func (l *funcListener) ID() uint64 { return l.id }

// ListenerFunc wraps fn as a Listener with a fresh ID. Subscribing the same
// returned value twice is a no-op; wrapping fn twice yields two listeners.
func ListenerFunc(fn func()) Listener {
	return &funcListener{id: component.NextID(), fn: fn}
}

// Entry is the value and listener set for one key.
type Entry struct {
	key string

	mu      sync.RWMutex
	value   any
	version uint64

	// persisted records whether the creating binding asked for persistence.
	persisted bool

	// persistMu orders persisted writes so storage ends with the value of
	// the last swap.
	persistMu sync.Mutex

	listeners   []Listener
	listenersMu sync.RWMutex

	metrics *Metrics
}

// Key returns the entry's key.
func (e *Entry) Key() string {
	return e.key
}

// Value returns the current value.
func (e *Entry) Value() any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value
}

// Version returns a counter bumped on every write.
func (e *Entry) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// read returns value and version from one critical section.
func (e *Entry) read() (any, uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value, e.version
}

// Persisted reports whether the entry was created by a persisted binding.
func (e *Entry) Persisted() bool {
	return e.persisted
}

// swap replaces the value with fn(current) and bumps the version.
// fn runs under the entry lock and must not read this entry.
func (e *Entry) swap(fn func(any) any) (any, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.value = fn(e.value)
	e.version++
	return e.value, e.version
}

// Subscribe adds l to the listener set and returns a function that removes
// it again. Subscribing a listener that is already present (by ID) does not
// add a duplicate. The returned function is safe to call more than once.
func (e *Entry) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}

	e.listenersMu.Lock()
	dup := false
	lid := l.ID()
	for _, existing := range e.listeners {
		if existing.ID() == lid {
			dup = true
			break
		}
	}
	if !dup {
		e.listeners = append(e.listeners, l)
	}
	e.listenersMu.Unlock()

	if !dup {
		e.metrics.subscribed()
	}

	var once sync.Once
	return func() {
		once.Do(func() { e.unsubscribe(l) })
	}
}

// unsubscribe removes l, keeping the remaining listeners in insertion order.
func (e *Entry) unsubscribe(l Listener) {
	e.listenersMu.Lock()
	removed := false
	lid := l.ID()
	for i, existing := range e.listeners {
		if existing.ID() == lid {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			removed = true
			break
		}
	}
	e.listenersMu.Unlock()

	if removed {
		e.metrics.unsubscribed()
	}
}

// ListenerCount returns the number of current listeners.
func (e *Entry) ListenerCount() int {
	e.listenersMu.RLock()
	defer e.listenersMu.RUnlock()
	return len(e.listeners)
}

// ownedListener is a listener that re-renders a component.
type ownedListener interface {
	Listener
	target() *component.Owner
}

// Notify calls MarkDirty on every listener in insertion order. Listeners
// that re-render the same component are called once, so a component that
// binds a key twice still re-renders once per write. The listener list is
// copied first, so listeners may subscribe or unsubscribe while being
// notified.
func (e *Entry) Notify() {
	e.listenersMu.RLock()
	subs := make([]Listener, len(e.listeners))
	copy(subs, e.listeners)
	e.listenersMu.RUnlock()

	var owners map[*component.Owner]bool
	notified := 0
	for _, l := range subs {
		if ol, ok := l.(ownedListener); ok {
			o := ol.target()
			if owners[o] {
				continue
			}
			if owners == nil {
				owners = make(map[*component.Owner]bool)
			}
			owners[o] = true
		}
		l.MarkDirty()
		notified++
	}
	e.metrics.notified(notified)
}
