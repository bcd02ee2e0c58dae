package component

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// trackingContext holds the render state for one goroutine.
type trackingContext struct {
	// currentOwner is the Owner whose render or effect is running.
	currentOwner *Owner
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

var idCounter atomic.Uint64

// nextID returns a process-unique identifier for owners and effects.
func nextID() uint64 {
	return idCounter.Add(1)
}

// NextID returns a process-unique identifier from the same sequence owners
// and effects use. Listeners built outside this package use it so their IDs
// never collide with an Owner's.
func NextID() uint64 {
	return nextID()
}

// getGoroutineID returns a unique identifier for the current goroutine,
// parsed from the "goroutine <id> " stack header.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := 10; i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// getCurrentOwner returns the current owner for the goroutine.
// Returns nil if no owner context is set.
func getCurrentOwner() *Owner {
	ctx, ok := trackingContexts.Load(getGoroutineID())
	if !ok {
		return nil
	}
	return ctx.(*trackingContext).currentOwner
}

// setCurrentOwner sets the current owner and returns the previous one so it
// can be restored. Setting nil drops the goroutine's context entirely.
func setCurrentOwner(o *Owner) *Owner {
	gid := getGoroutineID()

	var old *Owner
	if ctx, ok := trackingContexts.Load(gid); ok {
		old = ctx.(*trackingContext).currentOwner
	}

	if o == nil {
		trackingContexts.Delete(gid)
	} else {
		trackingContexts.Store(gid, &trackingContext{currentOwner: o})
	}
	return old
}

// WithOwner runs fn with o as the current owner.
func WithOwner(o *Owner, fn func()) {
	prev := setCurrentOwner(o)
	defer setCurrentOwner(prev)
	fn()
}

// UseOwner returns the owner that is currently rendering, or nil.
func UseOwner() *Owner {
	return getCurrentOwner()
}
