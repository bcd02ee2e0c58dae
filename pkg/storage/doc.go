// Package storage provides durable key/text stores for persisted shared
// values.
//
// The Storage interface is the host "local storage" capability: it maps a
// string key to a string of encoded text.
//
//	store := storage.NewMemoryStore()
//	// or
//	store, err := storage.OpenFileStore("state.json")
//	// or
//	store := storage.NewS3Store(s3Client, "my-bucket", storage.WithS3Prefix("prefs/"))
//
// Backends may additionally implement Lister and Remover; the CLI and the
// inspector use them when present.
package storage
