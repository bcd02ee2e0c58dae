// Package shared lets disjoint components read and write a named piece of
// state without a parent/child relationship.
//
// A Store is a keyed registry of entries. Each Entry holds the current value
// for one key and the listeners of the components currently bound to it.
// The store is an ordinary value: build it at application start and hand it
// to the component tree.
//
//	store := shared.New(
//	    shared.WithStorage(storage.NewMemoryStore()),
//	    shared.WithLogger(logger),
//	)
//
//	root := component.NewRoot()
//	shared.Provide(root.Owner(), store)
//
// # Binding
//
// Inside a component, Use (or Bind with an explicit store) returns the
// current value and a Setter. The binding subscribes after the component
// commits and unsubscribes when it unmounts or its key changes; every write
// to the key re-renders each mounted binder exactly once.
//
//	root.Mount(nil, func() {
//	    count, setCount := shared.Use("count", 0)
//	    onClick(func() { setCount.Update(func(n int) int { return n + 1 }) })
//	    render(count)
//	})
//
// The first binder of a key decides its initial value; later binders get
// the existing value and their initial value is ignored (logged in debug
// mode).
//
// # Persistence
//
// Persist() mirrors a binding's writes to durable storage as JSON and seeds
// a newly created entry from storage. Decode and write failures are logged
// and never fail the operation. Binding with Persist() on a store without
// storage panics.
//
//	theme, setTheme := shared.Use("theme", "light", shared.Persist())
package shared
