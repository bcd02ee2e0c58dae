package component

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// Effect is a side effect bound to a component's commit cycle.
//
// An effect runs after the first render commits and again after any later
// render whose deps differ from the previous ones. The Cleanup returned by a
// run is called before the next run and when the owner is disposed, so the
// teardown for old deps always precedes the setup for new deps.
type Effect struct {
	id uint64

	fn      func() Cleanup
	cleanup Cleanup

	// deps are the values the effect was last scheduled with.
	// nil deps re-run the effect after every render.
	deps []any

	owner *Owner

	// pending indicates the effect is scheduled for the next commit.
	pending atomic.Bool

	disposed atomic.Bool
}

// ID returns the unique identifier for this effect.
func (e *Effect) ID() uint64 {
	return e.id
}

// run executes the effect function with its owner as current owner.
func (e *Effect) run() {
	if e.disposed.Load() {
		return
	}

	e.pending.Store(false)

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	prev := setCurrentOwner(e.owner)
	defer setCurrentOwner(prev)

	e.cleanup = e.fn()
}

// Dispose runs the last cleanup and stops the effect from running again.
func (e *Effect) Dispose() {
	e.dispose()
}

func (e *Effect) dispose() {
	if e.disposed.Swap(true) {
		return
	}

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
}

// schedule queues the effect on its owner unless it is already queued.
func (e *Effect) schedule() {
	if e.pending.CompareAndSwap(false, true) && e.owner != nil {
		e.owner.scheduleEffect(e)
	}
}

// UseEffect declares an effect for the component currently rendering.
// fn runs after the render commits when deps changed since the previous
// render (always after the first). Pass an empty slice to run once per
// mount and nil to run after every render.
//
// Outside a render there is no commit to wait for: fn runs immediately and
// the returned Effect must be disposed by the caller.
//
// Example:
//
//	component.UseEffect([]any{key}, func() component.Cleanup {
//	    unsubscribe := entry.Subscribe(listener)
//	    return unsubscribe
//	})
func UseEffect(deps []any, fn func() Cleanup) *Effect {
	owner := getCurrentOwner()
	if owner == nil {
		e := &Effect{id: nextID(), fn: fn, deps: deps}
		e.run()
		return e
	}

	if slot := owner.UseHookSlot(); slot != nil {
		e, ok := slot.(*Effect)
		if !ok {
			panic(fmt.Sprintf("component: hook order changed: expected Effect, found %T", slot))
		}
		e.fn = fn
		if deps == nil || !depsEqual(e.deps, deps) {
			e.deps = deps
			e.schedule()
		}
		return e
	}

	e := &Effect{
		id:    nextID(),
		fn:    fn,
		deps:  deps,
		owner: owner,
	}
	owner.SetHookSlot(e)
	owner.registerEffect(e)
	e.schedule()
	return e
}

// OnMount runs fn once after the component first commits.
func OnMount(fn func()) {
	UseEffect([]any{}, func() Cleanup {
		fn()
		return nil
	})
}

// OnUnmount registers a function to run when the current owner is disposed.
func OnUnmount(fn func()) {
	owner := getCurrentOwner()
	if owner != nil {
		owner.OnCleanup(fn)
	}
}

// depsEqual compares dependency lists element-wise. Comparable values use ==
// so pointers compare by identity; everything else falls back to
// reflect.DeepEqual.
func depsEqual(a, b []any) bool {
	if a == nil || b == nil {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameDep(a[i], b[i]) {
			return false
		}
	}
	return true
}

func sameDep(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
