// Package vtest provides helpers for testing components that bind shared
// values.
//
// A Harness owns a component Root with a shared Store provided on its root
// owner. Probes are single-binding components that record what they
// rendered:
//
//	h := vtest.New(t)
//	a := vtest.Bind(h, "count", 0)
//	b := vtest.Bind(h, "count", 0)
//
//	a.Set.Update(func(n int) int { return n + 1 })
//
//	if b.Value != 1 || b.Renders() != 2 {
//	    t.Fatal("b did not re-render")
//	}
package vtest
