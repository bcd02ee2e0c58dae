// Package errors provides structured, coded errors for sharedstate.
//
// Every error has a code (e.g., "E020") that maps to a registered template
// with a category, a short message and a longer explanation:
//
//	err := errors.New("E020").
//	    WithDetail(`key "theme" was bound with Persist()`).
//	    WithSuggestion("Construct the store with shared.WithStorage(...)")
//
//	fmt.Println(err.Format())
//	// ERROR E020: No durable storage configured
//	//
//	//   key "theme" was bound with Persist()
//	//
//	//   Hint: Construct the store with shared.WithStorage(...)
package errors
