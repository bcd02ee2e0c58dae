// Package component is the small component runtime that shared bindings
// attach to.
//
// A component is an Owner plus a render function. Rendering happens inside
// the owner's scope, so hooks called during render (UseEffect, UseHookSlot,
// GetContext, and shared.Use) find their component through the
// current-owner tracking context. Effects run after the render commits, and
// an effect's cleanup always runs before its next setup and when the owner
// is disposed.
//
// Root is the synchronous host scheduler:
//
//	root := component.NewRoot()
//	counter := root.Mount(nil, func() {
//	    component.UseEffect([]any{"tick"}, func() component.Cleanup {
//	        fmt.Println("mounted")
//	        return func() { fmt.Println("unmounted") }
//	    })
//	})
//	counter.MarkDirty() // one re-render, then commit
//	counter.Dispose()   // prints "unmounted"
package component
