package storage

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vango-dev/sharedstate/internal/errors"
)

func TestFileStorePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	f, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore error: %v", err)
	}
	if err := f.SetItem(ctx, "prefs", `{"a":1}`); err != nil {
		t.Fatalf("SetItem error: %v", err)
	}
	if err := f.SetItem(ctx, "theme", `"dark"`); err != nil {
		t.Fatalf("SetItem error: %v", err)
	}
	if err := f.RemoveItem(ctx, "theme"); err != nil {
		t.Fatalf("RemoveItem error: %v", err)
	}

	reopened, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	got, ok, err := reopened.GetItem(ctx, "prefs")
	if err != nil || !ok || got != `{"a":1}` {
		t.Fatalf("GetItem = %q, %v, %v", got, ok, err)
	}
	if _, ok, _ := reopened.GetItem(ctx, "theme"); ok {
		t.Fatal("removed key should not survive reopen")
	}
	keys, _ := reopened.Keys(ctx)
	if len(keys) != 1 || keys[0] != "prefs" {
		t.Fatalf("Keys = %v, want [prefs]", keys)
	}
}

func TestFileStoreFileMode(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	f, err := OpenFileStore(path, WithFileMode(0o640))
	if err != nil {
		t.Fatalf("OpenFileStore error: %v", err)
	}
	if err := f.SetItem(ctx, "k", "1"); err != nil {
		t.Fatalf("SetItem error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o640 {
		t.Fatalf("mode = %o, want 640", got)
	}
	if f.Path() != path {
		t.Fatalf("Path() = %q, want %q", f.Path(), path)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := OpenFileStore(path)
	if err == nil {
		t.Fatal("OpenFileStore(corrupt) should fail")
	}
	if !stderrors.Is(err, errors.New("E040")) {
		t.Fatalf("error = %v, want E040", err)
	}
}

func TestFileStoreEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	f, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore(empty) error: %v", err)
	}
	keys, _ := f.Keys(context.Background())
	if len(keys) != 0 {
		t.Fatalf("Keys = %v, want empty", keys)
	}
}

func TestFileStoreRemoveMissingKey(t *testing.T) {
	f, err := OpenFileStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.RemoveItem(context.Background(), "nope"); err != nil {
		t.Fatalf("RemoveItem(missing) error: %v", err)
	}
}
