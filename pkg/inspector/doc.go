// Package inspector serves a read-only HTTP view of a shared Store.
//
// Routes:
//
//	GET /keys        every entry as JSON, ordered by key
//	GET /keys/{key}  one entry, or 404
//	GET /metrics     Prometheus exposition for the configured gatherer
//	GET /ws          websocket stream of committed writes
//
// Mount the handler wherever it suits the application:
//
//	insp := inspector.New(store, inspector.WithGatherer(reg))
//	defer insp.Close()
//	http.ListenAndServe(":7070", insp.Handler())
package inspector
