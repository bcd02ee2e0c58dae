package shared

import (
	"fmt"

	"github.com/vango-dev/sharedstate/internal/errors"
	"github.com/vango-dev/sharedstate/pkg/component"
)

// storeKey is the component context key for the provided Store.
var storeKey = &struct{ name string }{"SharedStore"}

// Provide makes s available to shared.Use in o and all of its descendants.
func Provide(o *component.Owner, s *Store) {
	o.SetValue(storeKey, s)
}

// FromContext returns the Store provided to the component currently
// rendering, or nil.
func FromContext() *Store {
	s, _ := component.GetContext(storeKey).(*Store)
	return s
}

// Setter writes a binding's key. It stays valid after the component that
// created it unmounts and may be called from any goroutine.
type Setter[T any] struct {
	store   *Store
	entry   *Entry
	persist bool
}

// Set replaces the value and re-renders every mounted binder of the key.
func (s Setter[T]) Set(v T) {
	s.store.write(s.entry, func(any) any { return v }, s.persist)
}

// Update replaces the value with fn(current). fn runs under the entry's
// lock and must not read the same key.
func (s Setter[T]) Update(fn func(T) T) {
	key := s.entry.key
	s.store.write(s.entry, func(cur any) any {
		return fn(valueAs[T](key, cur))
	}, s.persist)
}

// Get returns the latest value without subscribing.
func (s Setter[T]) Get() T {
	return valueAs[T](s.entry.key, s.entry.Value())
}

// Key returns the key the setter writes.
func (s Setter[T]) Key() string {
	return s.entry.key
}

// bindingListener is the one listener a binding contributes per mount.
type bindingListener struct {
	id    uint64
	owner *component.Owner
}

func (l *bindingListener) MarkDirty() { l.owner.MarkDirty() }
func (l *bindingListener) ID() uint64 { return l.id }
func (l *bindingListener) target() *component.Owner { return l.owner }

// bindState is the per-binding hook slot.
type bindState[T any] struct {
	listener *bindingListener
	store    *Store
	key      string
	entry    *Entry
}

// Use binds key on the Store provided to the current component tree.
// See Bind.
func Use[T any](key string, initial T, opts ...BindOption) (T, Setter[T]) {
	s := FromContext()
	if s == nil {
		panic(errors.New("E002").
			WithSuggestion("Call shared.Provide(root.Owner(), store) before mounting components"))
	}
	return Bind(s, key, initial, opts...)
}

// Bind returns the current value of key in s and a Setter for it, and
// subscribes the rendering component to the key.
//
// The entry is created with initial (or with the persisted value when
// Persist() is given and storage has one) if no binder created it before.
// The subscription is set up after the component commits and torn down on
// unmount; when key changes between renders, the old subscription is
// removed before the new one is added.
//
// Bind must be called while a component renders, in the same order on every
// render.
func Bind[T any](s *Store, key string, initial T, opts ...BindOption) (T, Setter[T]) {
	if key == "" {
		panic(errors.New("E001"))
	}
	owner := component.UseOwner()
	if owner == nil {
		panic(errors.New("E003").
			WithDetail(fmt.Sprintf("shared.Bind(%q) was called outside a component render", key)))
	}
	cfg := applyBindOptions(opts)

	var st *bindState[T]
	if slot := owner.UseHookSlot(); slot != nil {
		var ok bool
		st, ok = slot.(*bindState[T])
		if !ok {
			panic(fmt.Sprintf("shared: hook order changed: binding %q found %T", key, slot))
		}
	} else {
		st = &bindState[T]{
			listener: &bindingListener{id: component.NextID(), owner: owner},
		}
		owner.SetHookSlot(st)
	}

	if st.entry == nil || st.store != s || st.key != key {
		st.store = s
		st.key = key
		st.entry = s.bindEntry(key, initial, cfg, func() (any, bool) {
			return loadPersisted[T](s, key)
		})
	}

	entry := st.entry
	listener := st.listener
	raw, rendered := entry.read()
	value := valueAs[T](key, raw)

	component.UseEffect([]any{s, key}, func() component.Cleanup {
		unsubscribe := entry.Subscribe(listener)
		// A write between render and subscribe would otherwise go unseen.
		if entry.Version() != rendered {
			listener.MarkDirty()
		}
		return unsubscribe
	})

	return value, Setter[T]{store: s, entry: entry, persist: cfg.persist}
}

// bindEntry resolves the entry for a binding mounting (or re-keying) on key.
func (s *Store) bindEntry(key string, initial any, cfg bindConfig, load func() (any, bool)) *Entry {
	if cfg.persist {
		s.requireStorage(key)
	} else {
		load = nil
	}

	e, created := s.getOrCreate(key, initial, cfg.policy, load, cfg.persist)
	if !created && s.debug && e.persisted != cfg.persist {
		s.logger.Warn("shared value bound with a different persist flag than it was created with",
			"key", key,
			"created_persisted", e.persisted,
			"binding_persisted", cfg.persist)
	}
	return e
}
