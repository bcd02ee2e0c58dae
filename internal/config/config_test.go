package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-dev/sharedstate/internal/errors"
)

func errorCode(err error) string {
	if e, ok := err.(*errors.Error); ok {
		return e.Code
	}
	return ""
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Storage.Backend != DefaultBackend {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, DefaultBackend)
	}
	if cfg.Storage.Path != DefaultStoragePath {
		t.Errorf("Storage.Path = %q, want %q", cfg.Storage.Path, DefaultStoragePath)
	}
	if cfg.Inspector.Addr != DefaultInspectorAddr {
		t.Errorf("Inspector.Addr = %q, want %q", cfg.Inspector.Addr, DefaultInspectorAddr)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultNamespace)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if code := errorCode(err); code != "E122" {
		t.Fatalf("missing config: code = %q, want E122", code)
	}

	configJSON := `{
  "storage": {
    "backend": "S3",
    "bucket": "state",
    "region": "eu-west-1"
  },
  "inspector": {
    "addr": ":9000"
  },
  "debug": true,
  "persistTimeout": "250ms"
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.Backend != "s3" {
		t.Errorf("Storage.Backend = %q, want s3", cfg.Storage.Backend)
	}
	if cfg.Storage.Bucket != "state" || cfg.Storage.Region != "eu-west-1" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Storage.Prefix != DefaultS3Prefix {
		t.Errorf("Storage.Prefix = %q, want default", cfg.Storage.Prefix)
	}
	if cfg.Inspector.Addr != ":9000" {
		t.Errorf("Inspector.Addr = %q", cfg.Inspector.Addr)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if d, _ := cfg.PersistTimeoutDuration(); d != 250*time.Millisecond {
		t.Errorf("PersistTimeoutDuration() = %v", d)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want default text", cfg.Log.Format)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configYAML := `storage:
  backend: file
  path: data/values.json
log:
  level: debug
  format: json
`
	path := filepath.Join(tmpDir, "sharedstate.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
	if got, want := cfg.StoragePath(), filepath.Join(tmpDir, "data", "values.json"); got != want {
		t.Errorf("StoragePath() = %q, want %q", got, want)
	}
	if level, _ := cfg.LogLevel(); level != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, want debug", level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"broken.json", `{"storage": `},
		{"broken.yaml", "storage: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.name)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFile(path)
			if code := errorCode(err); code != "E120" {
				t.Fatalf("code = %q, want E120 (err: %v)", code, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   string
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, "E041"},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = "s3" }, "E121"},
		{"bad timeout", func(c *Config) { c.PersistTimeout = "soon" }, "E121"},
		{"negative timeout", func(c *Config) { c.PersistTimeout = "-1s" }, "E121"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "E121"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "E121"},
		{"memory backend", func(c *Config) { c.Storage.Backend = "memory" }, ""},
		{"zero timeout", func(c *Config) { c.PersistTimeout = "0" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if got := errorCode(err); got != tt.code {
				t.Fatalf("code = %q, want %q (err: %v)", got, tt.code, err)
			}
		})
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := FindProjectRoot(nested); errorCode(err) != "E122" {
		t.Fatalf("expected E122 without a config, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "sharedstate.yml"), []byte("debug: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot: %v", err)
	}
	want, _ := filepath.EvalSymlinks(tmpDir)
	got, _ := filepath.EvalSymlinks(root)
	if got != want {
		t.Fatalf("root = %q, want %q", root, tmpDir)
	}
}

func TestStoragePathAbsolute(t *testing.T) {
	cfg := New()
	abs := filepath.Join(t.TempDir(), "values.json")
	cfg.Storage.Path = abs
	if cfg.StoragePath() != abs {
		t.Fatalf("StoragePath() = %q, want %q", cfg.StoragePath(), abs)
	}
}
