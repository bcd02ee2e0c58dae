package component

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Owner represents a mounted component scope. When an Owner is disposed,
// its effects (with their cleanups), registered cleanups and child owners
// are disposed too.
//
// Owners form a hierarchy mirroring the component tree. Context values set
// on an owner are visible to all of its descendants.
type Owner struct {
	id uint64

	// parent is nil for a root Owner.
	parent *Owner

	children   []*Owner
	childrenMu sync.Mutex

	effects   []*Effect
	effectsMu sync.Mutex

	// cleanups are manual cleanup functions registered via OnCleanup.
	cleanups   []func()
	cleanupsMu sync.Mutex

	// pendingEffects are effects scheduled to run at the next commit.
	pendingEffects   []*Effect
	pendingEffectsMu sync.Mutex

	values   map[any]any
	valuesMu sync.RWMutex

	disposed atomic.Bool

	// render is the component body. nil for pure scopes.
	render    func()
	scheduler Scheduler

	// updates counts MarkDirty calls (the forced-update counter);
	// renders counts completed renders.
	updates atomic.Int64
	renders atomic.Int64

	// Hook slot storage for stable identity across renders.
	hookSlots   []any
	hookSlotIdx int
}

// NewOwner creates a new Owner with the given parent.
// The new Owner is registered as a child of the parent and inherits its
// scheduler. If parent is nil, creates a root Owner.
func NewOwner(parent *Owner) *Owner {
	o := &Owner{
		id:     nextID(),
		parent: parent,
	}

	if parent != nil {
		o.scheduler = parent.scheduler
		parent.addChild(o)
	}

	return o
}

// ID returns the unique identifier for this Owner.
func (o *Owner) ID() uint64 {
	return o.id
}

// Parent returns the parent Owner, or nil if this is a root Owner.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// IsDisposed returns true if this Owner has been disposed.
func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

// SetRender sets the component body run by Render.
func (o *Owner) SetRender(fn func()) {
	o.render = fn
}

// SetScheduler sets the scheduler that MarkDirty hands this owner to.
func (o *Owner) SetScheduler(s Scheduler) {
	o.scheduler = s
}

// Updates returns how many times the owner has been marked dirty.
func (o *Owner) Updates() int64 {
	return o.updates.Load()
}

// Renders returns how many renders have completed.
func (o *Owner) Renders() int64 {
	return o.renders.Load()
}

// MarkDirty bumps the forced-update counter and asks the scheduler for one
// re-render. Disposed owners ignore it.
func (o *Owner) MarkDirty() {
	if o.disposed.Load() {
		return
	}
	o.updates.Add(1)
	if o.scheduler != nil {
		o.scheduler.Schedule(o)
	}
}

// Render runs the component body inside this owner's scope.
// Effects requested during the render are queued until Commit.
func (o *Owner) Render() {
	if o.disposed.Load() || o.render == nil {
		return
	}

	prev := setCurrentOwner(o)
	defer setCurrentOwner(prev)

	o.hookSlotIdx = 0
	o.render()
	o.renders.Add(1)
}

// Commit runs the effects queued by the last render, for this owner and
// its children.
func (o *Owner) Commit() {
	o.RunPendingEffects()
}

func (o *Owner) addChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	o.children = append(o.children, child)
}

func (o *Owner) removeChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()

	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

// Children returns a snapshot of the child owners.
func (o *Owner) Children() []*Owner {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	return append([]*Owner(nil), o.children...)
}

// registerEffect adds an effect to this Owner.
// The effect will be disposed when this Owner is disposed.
func (o *Owner) registerEffect(e *Effect) {
	if o.disposed.Load() {
		return
	}

	o.effectsMu.Lock()
	defer o.effectsMu.Unlock()
	o.effects = append(o.effects, e)
}

// OnCleanup registers a cleanup function to run when this Owner is disposed.
func (o *Owner) OnCleanup(fn func()) {
	if o.disposed.Load() {
		fn()
		return
	}

	o.cleanupsMu.Lock()
	defer o.cleanupsMu.Unlock()
	o.cleanups = append(o.cleanups, fn)
}

func (o *Owner) scheduleEffect(e *Effect) {
	if o.disposed.Load() {
		return
	}

	o.pendingEffectsMu.Lock()
	defer o.pendingEffectsMu.Unlock()
	o.pendingEffects = append(o.pendingEffects, e)
}

// RunPendingEffects executes all pending effects in the order they were
// scheduled, then recurses into child owners.
func (o *Owner) RunPendingEffects() {
	if o.disposed.Load() {
		return
	}

	o.pendingEffectsMu.Lock()
	effects := o.pendingEffects
	o.pendingEffects = nil
	o.pendingEffectsMu.Unlock()

	for _, e := range effects {
		if e.pending.Load() {
			e.run()
		}
	}

	for _, child := range o.Children() {
		child.RunPendingEffects()
	}
}

// HasPendingEffects returns true if this owner or any child has pending effects.
func (o *Owner) HasPendingEffects() bool {
	if o.disposed.Load() {
		return false
	}

	o.pendingEffectsMu.Lock()
	hasPending := len(o.pendingEffects) > 0
	o.pendingEffectsMu.Unlock()

	if hasPending {
		return true
	}

	for _, child := range o.Children() {
		if child.HasPendingEffects() {
			return true
		}
	}

	return false
}

// Dispose unmounts this Owner: children first (last created first), then
// effect cleanups, then OnCleanup functions in reverse order.
// Dispose is idempotent.
func (o *Owner) Dispose() {
	if o.disposed.Swap(true) {
		return
	}

	if o.parent != nil {
		o.parent.removeChild(o)
	}

	o.childrenMu.Lock()
	children := o.children
	o.children = nil
	o.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	o.effectsMu.Lock()
	effects := o.effects
	o.effects = nil
	o.effectsMu.Unlock()

	for _, e := range effects {
		e.dispose()
	}

	o.cleanupsMu.Lock()
	cleanups := o.cleanups
	o.cleanups = nil
	o.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	o.pendingEffectsMu.Lock()
	o.pendingEffects = nil
	o.pendingEffectsMu.Unlock()
}

// =============================================================================
// Hook Slot Storage for Stable Identity
// =============================================================================

// UseHookSlot returns the stored value for the current hook slot, or nil on
// the first render. Hooks must be called in the same order on every render.
//
//	slot := owner.UseHookSlot()
//	if slot != nil {
//	    return slot.(*state)
//	}
//	st := &state{}
//	owner.SetHookSlot(st)
func (o *Owner) UseHookSlot() any {
	idx := o.hookSlotIdx
	o.hookSlotIdx++

	if idx < len(o.hookSlots) {
		return o.hookSlots[idx]
	}
	return nil
}

// SetHookSlot stores a value in the slot most recently returned nil by
// UseHookSlot.
func (o *Owner) SetHookSlot(value any) {
	if len(o.hookSlots) != o.hookSlotIdx-1 {
		panic(fmt.Sprintf("component: SetHookSlot out of order: %d slots, index %d",
			len(o.hookSlots), o.hookSlotIdx-1))
	}
	o.hookSlots = append(o.hookSlots, value)
}
