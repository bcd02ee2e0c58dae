package component

import (
	"sync"
)

// Root is a synchronous host scheduler. Every Schedule call produces exactly
// one Render followed by one Commit of that owner. Requests made while a
// flush is running (from a render, an effect or a listener) are queued and
// handled in order before the outermost call returns.
type Root struct {
	owner *Owner

	mu       sync.Mutex
	queue    []*Owner
	flushing bool
}

// NewRoot creates a Root with an empty root owner. Context values set on
// the root owner (for example a shared store) are visible to every mounted
// component.
func NewRoot() *Root {
	r := &Root{}
	r.owner = NewOwner(nil)
	r.owner.SetScheduler(r)
	return r
}

// Owner returns the root scope.
func (r *Root) Owner() *Owner {
	return r.owner
}

// Mount creates a component under parent (the root owner when nil), renders
// it once and commits its effects.
func (r *Root) Mount(parent *Owner, render func()) *Owner {
	if parent == nil {
		parent = r.owner
	}

	o := NewOwner(parent)
	o.SetScheduler(r)
	o.SetRender(render)

	o.Render()
	o.Commit()
	return o
}

// Schedule queues one re-render of o and flushes the queue unless a flush is
// already in progress.
func (r *Root) Schedule(o *Owner) {
	r.mu.Lock()
	r.queue = append(r.queue, o)
	if r.flushing {
		r.mu.Unlock()
		return
	}
	r.flushing = true
	r.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			r.mu.Lock()
			r.flushing = false
			r.queue = nil
			r.mu.Unlock()
			panic(p)
		}
	}()

	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.flushing = false
			r.mu.Unlock()
			return
		}
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()

		next.Render()
		next.Commit()
	}
}

// Dispose unmounts every component.
func (r *Root) Dispose() {
	r.owner.Dispose()
}
