package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the directory under $HOME holding app configs.
	DefaultBaseDir = ".rtring"
	// DefaultConfigFile is the config file name inside the app directory.
	DefaultConfigFile = "config.yaml"
)

// Config is the config file of one app.
type Config struct {
	CurrentContext string              `yaml:"current_context,omitempty"`
	Contexts       map[string]*Context `yaml:"contexts,omitempty"`

	path string
}

// Context is one named set of settings.
type Context struct {
	Name     string           `yaml:"name"`
	Ring     RingSettings     `yaml:"ring"`
	Snapshot SnapshotSettings `yaml:"snapshot,omitempty"`
	Archive  ArchiveSettings  `yaml:"archive,omitempty"`
	Monitor  MonitorSettings  `yaml:"monitor,omitempty"`
}

// RingSettings describes the ring a command works on.
type RingSettings struct {
	Name string `yaml:"name"`
	// Capacity is rounded up to a power of two. Ignored when Stack is set.
	Capacity uint32 `yaml:"capacity,omitempty"`
	// Stack selects the fixed 4096 byte inline ring.
	Stack bool `yaml:"stack,omitempty"`
}

// SnapshotSettings configures the snapshot index.
type SnapshotSettings struct {
	// IndexDir is the badger directory. Empty keeps the index in memory.
	IndexDir string `yaml:"index_dir,omitempty"`
	// Keep is how many snapshots per ring survive a prune.
	Keep int `yaml:"keep,omitempty"`
}

// ArchiveSettings selects where exported snapshots go. S3 wins when both
// are set.
type ArchiveSettings struct {
	Dir string      `yaml:"dir,omitempty"`
	S3  *S3Settings `yaml:"s3,omitempty"`
}

// S3Settings locates a bucket. Credentials come from the environment.
type S3Settings struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

// MonitorSettings configures the monitor server.
type MonitorSettings struct {
	Addr       string `yaml:"addr,omitempty"`
	IntervalMS int    `yaml:"interval_ms,omitempty"`
}

// Defaults used when a setting is missing.
const (
	DefaultRingName    = "default"
	DefaultCapacity    = 4096
	DefaultKeep        = 10
	DefaultMonitorAddr = "127.0.0.1:9470"
)

// DefaultContext returns the settings used when no context is configured.
func DefaultContext() *Context {
	c := &Context{Name: "default"}
	c.applyDefaults()
	return c
}

func (c *Context) applyDefaults() {
	if c.Ring.Name == "" {
		c.Ring.Name = DefaultRingName
	}
	if c.Ring.Capacity == 0 {
		c.Ring.Capacity = DefaultCapacity
	}
	if c.Snapshot.Keep == 0 {
		c.Snapshot.Keep = DefaultKeep
	}
	if c.Monitor.Addr == "" {
		c.Monitor.Addr = DefaultMonitorAddr
	}
}

// LoadConfig reads the config of app from ~/.rtring/<app>/config.yaml, or
// from path when it is not empty. A missing file yields an empty config;
// nothing is written until Save.
func LoadConfig(app, path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cli: home directory: %w", err)
		}
		path = filepath.Join(home, DefaultBaseDir, app, DefaultConfigFile)
	}
	cfg := &Config{Contexts: make(map[string]*Context), path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cli: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cli: parse %s: %w", path, err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, c := range cfg.Contexts {
		if c == nil {
			c = &Context{}
			cfg.Contexts[name] = c
		}
		c.Name = name
	}
	return cfg, nil
}

// Save writes the config back, creating its directory.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("cli: encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("cli: create config dir: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("cli: write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string { return c.path }

// SetContext adds or replaces a context and saves.
func (c *Config) SetContext(name string, ctx *Context) error {
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context and saves.
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("cli: context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext makes name current and saves.
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("cli: context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// Resolve returns the named context, or the current one when name is empty.
// With neither, it returns DefaultContext. The result has defaults applied
// and is a copy.
func (c *Config) Resolve(name string) (*Context, error) {
	if name == "" {
		name = c.CurrentContext
	}
	if name == "" {
		return DefaultContext(), nil
	}
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("cli: context %q not found", name)
	}
	cp := *ctx
	if ctx.Archive.S3 != nil {
		s3 := *ctx.Archive.S3
		cp.Archive.S3 = &s3
	}
	cp.applyDefaults()
	return &cp, nil
}

// ContextNames returns the context names, sorted.
func (c *Config) ContextNames() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
