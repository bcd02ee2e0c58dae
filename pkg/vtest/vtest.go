package vtest

import (
	"testing"

	"github.com/vango-dev/sharedstate/pkg/component"
	"github.com/vango-dev/sharedstate/pkg/shared"
)

// Harness is a mounted component tree with a shared store in scope.
type Harness struct {
	Root  *component.Root
	Store *shared.Store
}

// New creates a Harness whose store is built from opts. The tree is
// unmounted when the test finishes.
func New(t testing.TB, opts ...shared.Option) *Harness {
	t.Helper()
	return WithStore(t, shared.New(opts...))
}

// WithStore creates a Harness around an existing store, for example to
// simulate a fresh process reading the same durable storage.
func WithStore(t testing.TB, s *shared.Store) *Harness {
	t.Helper()

	root := component.NewRoot()
	shared.Provide(root.Owner(), s)
	t.Cleanup(root.Dispose)

	return &Harness{Root: root, Store: s}
}

// Mount renders fn as a new component under the root.
func (h *Harness) Mount(fn func()) *Mounted {
	return &Mounted{owner: h.Root.Mount(nil, fn)}
}

// Mounted is a component created by Harness.Mount.
type Mounted struct {
	owner *component.Owner
}

// Owner returns the component's owner.
func (m *Mounted) Owner() *component.Owner {
	return m.owner
}

// Renders returns how many times the component has rendered.
func (m *Mounted) Renders() int64 {
	return m.owner.Renders()
}

// Rerender forces one re-render.
func (m *Mounted) Rerender() {
	m.owner.MarkDirty()
}

// Unmount disposes the component.
func (m *Mounted) Unmount() {
	m.owner.Dispose()
}

// Probe is a component with a single binding. Value and Set hold what the
// last render returned.
type Probe[T any] struct {
	*Mounted

	Key   string
	Value T
	Set   shared.Setter[T]

	// Seen records every rendered value in order.
	Seen []T
}

// Bind mounts a Probe bound to key through shared.Use.
func Bind[T any](h *Harness, key string, initial T, opts ...shared.BindOption) *Probe[T] {
	p := &Probe[T]{Key: key}
	p.Mounted = h.Mount(func() {
		p.Value, p.Set = shared.Use(p.Key, initial, opts...)
		p.Seen = append(p.Seen, p.Value)
	})
	return p
}

// Rekey switches the probe to another key and re-renders it.
func (p *Probe[T]) Rekey(key string) {
	p.Key = key
	p.Rerender()
}
