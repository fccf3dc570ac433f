// Package migrate loads class-rename migrations from configuration files
// and applies them to the gufe remap table.
//
// When a Tokenizable type is renamed or relocated, dictionaries stored
// under its old (module, qualname) tags must keep decoding. A migration
// file declares those redirections as data, so deployments can version them
// alongside stored objects:
//
//	version: 1
//	remaps:
//	  - from: {module: example.com/proj/old, qualname: ProteinComponent}
//	    to: {module: example.com/proj/chem, qualname: BiopolymerComponent}
//
// Remaps are single-hop: a chain old1 -> old2 -> new must be written as two
// entries pointing directly at new.
package migrate

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gufe-go/gufe"
	"gopkg.in/yaml.v3"
)

// Config is a parsed migration file.
type Config struct {
	// Version is the migration file format version. Currently always 1.
	Version int `yaml:"version"`

	// Remaps are the class redirections to register.
	Remaps []Remap `yaml:"remaps"`
}

// Remap redirects one stored qualified name to the name a class is
// registered under today.
type Remap struct {
	From gufe.QualifiedName `yaml:"from"`
	To   gufe.QualifiedName `yaml:"to"`
}

// Load reads and parses a migration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read migration file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse migration file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses migration YAML and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural requirements: a supported version and fully
// specified remap endpoints.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported migration version %d", c.Version)
	}
	for i, r := range c.Remaps {
		if r.From.Module == "" || r.From.Qualname == "" {
			return fmt.Errorf("remap %d: incomplete 'from' reference", i)
		}
		if r.To.Module == "" || r.To.Qualname == "" {
			return fmt.Errorf("remap %d: incomplete 'to' reference", i)
		}
		if r.From == r.To {
			return fmt.Errorf("remap %d: 'from' and 'to' are identical", i)
		}
	}
	return nil
}

// Apply registers every remap with the gufe class registry. Targets that
// are not yet registered are applied anyway, since their classes may
// register later, but are logged so a typo in a migration file is visible.
func (c *Config) Apply(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, r := range c.Remaps {
		gufe.RegisterRemap(r.From, r.To)
		if !gufe.IsRegistered(r.To) {
			logger.Warn("migration target class not registered yet",
				"from", r.From.String(),
				"to", r.To.String())
			continue
		}
		logger.Debug("registered class remap",
			"from", r.From.String(),
			"to", r.To.String())
	}
}
