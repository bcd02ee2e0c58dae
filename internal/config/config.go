package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-dev/sharedstate/internal/errors"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "sharedstate.json"

	// DefaultBackend is the default storage backend.
	DefaultBackend = "file"

	// DefaultStoragePath is the default file backend path, relative to the
	// config file's directory.
	DefaultStoragePath = ".sharedstate/values.json"

	// DefaultS3Prefix is the default object key prefix for the S3 backend.
	DefaultS3Prefix = "sharedstate/"

	// DefaultInspectorAddr is the default inspector listen address.
	DefaultInspectorAddr = "localhost:7070"

	// DefaultPersistTimeout is the default bound on a single storage call.
	DefaultPersistTimeout = "5s"

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "sharedstate"
)

// configFileNames are tried in order by Load.
var configFileNames = []string{ConfigFileName, "sharedstate.yaml", "sharedstate.yml"}

// Backends lists the supported storage backends.
var Backends = []string{"memory", "file", "s3"}

// Config represents the complete sharedstate configuration.
type Config struct {
	// Storage selects and configures the durable store.
	Storage StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`

	// Inspector configures the HTTP inspector started by "serve".
	Inspector InspectorConfig `json:"inspector,omitempty" yaml:"inspector,omitempty"`

	// Debug enables development diagnostics in the store.
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`

	// PersistTimeout bounds each storage call (e.g., "5s"). "0" disables it.
	PersistTimeout string `json:"persistTimeout,omitempty" yaml:"persistTimeout,omitempty"`

	// Metrics configures the Prometheus collectors.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Log configures the slog handler.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// StorageConfig contains durable storage settings.
type StorageConfig struct {
	// Backend is one of memory, file or s3.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Path is the file backend's JSON file.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Bucket is the S3 bucket.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	// Prefix is prepended to every S3 object key.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// Region is the AWS region.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint overrides the S3 endpoint (for S3-compatible services).
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// UsePathStyle addresses buckets by path instead of subdomain.
	UsePathStyle bool `json:"usePathStyle,omitempty" yaml:"usePathStyle,omitempty"`
}

// InspectorConfig contains inspector server settings.
type InspectorConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// AllowedOrigins lists websocket origins accepted besides the inspector's
	// own. "*" accepts any origin.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: DefaultBackend,
			Path:    DefaultStoragePath,
			Prefix:  DefaultS3Prefix,
		},
		Inspector: InspectorConfig{
			Addr: DefaultInspectorAddr,
		},
		PersistTimeout: DefaultPersistTimeout,
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for sharedstate.json, sharedstate.yaml and sharedstate.yml in
// that order.
func Load(dir string) (*Config, error) {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E122").
		WithDetail("No sharedstate config found in " + dir)
}

// LoadFile reads configuration from the specified file path. Files ending in
// .yaml or .yml are parsed as YAML, everything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E122").
				WithDetail("No config file at " + path)
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid YAML")
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON")
		}
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultBackend
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultStoragePath
	}
	if c.Storage.Prefix == "" {
		c.Storage.Prefix = DefaultS3Prefix
	}

	if c.Inspector.Addr == "" {
		c.Inspector.Addr = DefaultInspectorAddr
	}

	if c.PersistTimeout == "" {
		c.PersistTimeout = DefaultPersistTimeout
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "file":
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("E121").
				WithDetail("storage.bucket is required for the s3 backend")
		}
	default:
		return errors.New("E041").
			WithDetail(fmt.Sprintf("storage.backend is %q", c.Storage.Backend))
	}

	if _, err := c.PersistTimeoutDuration(); err != nil {
		return errors.New("E121").
			WithDetail("persistTimeout: " + err.Error()).
			WithSuggestion(`Use a Go duration such as "5s" or "500ms"`)
	}

	if _, err := c.LogLevel(); err != nil {
		return errors.New("E121").WithDetail("log.level: " + err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("E121").
			WithDetail(fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}
	return nil
}

// PersistTimeoutDuration parses PersistTimeout.
func (c *Config) PersistTimeoutDuration() (time.Duration, error) {
	if c.PersistTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.PersistTimeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Log.Level))
	return level, err
}

// StoragePath returns the file backend path. Relative paths are resolved
// against the config file's directory.
func (c *Config) StoragePath() string {
	if filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(c.Dir(), c.Storage.Path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range configFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the one holding a config
// file.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E122").
				WithDetail("No sharedstate config found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or its nearest parent with a config file. When none exists, it returns the
// defaults rooted at the working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		if e, ok := err.(*errors.Error); ok && e.Code == "E122" {
			cfg := New()
			cfg.configPath = filepath.Join(wd, ConfigFileName)
			return cfg, nil
		}
		return nil, err
	}

	return Load(root)
}
