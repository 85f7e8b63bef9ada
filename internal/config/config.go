// Package config loads the DatLens YAML configuration: logging, the HTTP
// server, report storage, and the registry of scan targets.
package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/DatLens/internal/errs"
	"github.com/koustreak/DatLens/internal/introspect"
	"github.com/koustreak/DatLens/internal/reportstore"
)

// Config is the root configuration document.
type Config struct {
	Log     Log                `yaml:"log"`
	Server  Server             `yaml:"server"`
	Store   reportstore.Config `yaml:"store"`
	Targets []Target           `yaml:"targets"`
}

// Log configures the structured logger.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Server configures the HTTP API.
type Server struct {
	Addr string `yaml:"addr"` // e.g. ":8080"
}

// Target is one scannable database.
type Target struct {
	// Name is the unique identifier used by the CLI and API.
	Name string `yaml:"name"`

	// Engine is the engine family: "mysql" or "sqlserver".
	Engine string `yaml:"engine"`

	// DSN is the driver connection string.
	DSN string `yaml:"dsn"`

	// Database is the logical database name; defaults to the database
	// selected by the DSN.
	Database string `yaml:"database"`

	// MaxConns overrides the pool size used during a scan.
	MaxConns int32 `yaml:"max_conns"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "read config file", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "parse config", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Store.Provider == "" {
		c.Store.Provider = "fs"
	}
	if c.Store.Provider == "fs" && c.Store.Dir == "" {
		c.Store.Dir = "reports"
	}
}

func (c *Config) validate() error {
	if len(c.Targets) == 0 {
		return errs.New(errs.ErrKindInvalidInput, "at least one target is required")
	}

	seen := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		if t.Name == "" {
			return errs.New(errs.ErrKindInvalidInput, "target.name is required")
		}
		if seen[t.Name] {
			return errs.Newf(errs.ErrKindInvalidInput, "duplicate target name %q", t.Name)
		}
		seen[t.Name] = true

		if t.DSN == "" {
			return errs.Newf(errs.ErrKindInvalidInput, "target %s: dsn is required", t.Name)
		}
		if _, err := introspect.ParseEngine(t.Engine); err != nil {
			return fmt.Errorf("target %s: %w", t.Name, err)
		}
	}

	switch c.Store.Provider {
	case "fs":
		// Dir defaulted above.
	case "minio":
		if c.Store.Endpoint == "" || c.Store.Bucket == "" {
			return errs.New(errs.ErrKindInvalidInput, "store: minio provider requires endpoint and bucket")
		}
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "store: unknown provider %q (want fs or minio)", c.Store.Provider)
	}

	return nil
}

// Target returns the target with the given name.
func (c *Config) Target(name string) (*Target, error) {
	for i := range c.Targets {
		if c.Targets[i].Name == name {
			return &c.Targets[i], nil
		}
	}
	return nil, errs.Newf(errs.ErrKindNotFound, "no target named %q", name)
}
