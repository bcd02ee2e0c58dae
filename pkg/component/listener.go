package component

// Listener is anything that can be notified when a value it rendered changes.
// Owner implements it; bindings wrap it to get one listener per mount.
type Listener interface {
	// MarkDirty notifies the listener that something it depends on changed.
	// For an Owner this forces exactly one re-render.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	ID() uint64
}

// Cleanup is a function returned by effects to clean up resources.
// It is called before the effect re-runs and when the effect is disposed.
type Cleanup func()

// Scheduler is the host side of re-rendering. Owners hand themselves to the
// scheduler when marked dirty; the scheduler decides when Render and Commit
// run.
type Scheduler interface {
	Schedule(o *Owner)
}
