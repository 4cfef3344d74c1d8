// Package manifest reads the boot manifest: the declarative list of modules
// the daemon loads into the kernel's library at boot, each with the exact
// capability set it starts with. Capabilities come only from this file or
// from later IPC transfer; nothing is ambient.
package manifest

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/microframe-os/microframe/internal/kernel/cap"
)

// Module is one entry in the boot manifest.
type Module struct {
	Name      string   `yaml:"name"`
	Path      string   `yaml:"path,omitempty"`
	Caps      []string `yaml:"caps,omitempty"`
	Autostart bool     `yaml:"autostart,omitempty"`
}

// Manifest is the parsed boot manifest.
type Manifest struct {
	Modules []Module `yaml:"modules"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks module names and capability spellings.
func (m *Manifest) Validate() error {
	if len(m.Modules) == 0 {
		return fmt.Errorf("manifest lists no modules")
	}
	seen := make(map[string]bool, len(m.Modules))
	for _, mod := range m.Modules {
		if mod.Name == "" {
			return fmt.Errorf("manifest module with empty name")
		}
		if seen[mod.Name] {
			return fmt.Errorf("duplicate module %q", mod.Name)
		}
		seen[mod.Name] = true
		for _, c := range mod.Caps {
			if _, err := cap.Parse(c); err != nil {
				return fmt.Errorf("module %q: unknown capability %q", mod.Name, c)
			}
		}
	}
	return nil
}

// CapSet resolves a module's capability names into a set.
func (mod Module) CapSet() (cap.Set, error) {
	set := cap.EmptySet()
	for _, name := range mod.Caps {
		c, err := cap.Parse(name)
		if err != nil {
			return cap.EmptySet(), err
		}
		set = set.With(c)
	}
	return set, nil
}
