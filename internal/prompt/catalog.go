package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.toml
var defaultCatalogTOML string

// Catalog holds the prompt templates: a shared preamble, per-section
// instruction blocks and a fallback for sections without one.
type Catalog struct {
	Preamble string            `toml:"preamble" yaml:"preamble"`
	Fallback string            `toml:"fallback" yaml:"fallback"`
	Sections map[string]string `toml:"sections" yaml:"sections"`
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	var c Catalog
	if _, err := toml.Decode(defaultCatalogTOML, &c); err != nil {
		return nil, fmt.Errorf("decode default prompt catalog: %w", err)
	}
	if c.Sections == nil {
		c.Sections = map[string]string{}
	}
	return &c, nil
}

// LoadCatalog reads an override file and merges it over the default catalog.
// Files ending in .yaml or .yml are read as YAML, anything else as TOML.
// An empty path returns the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	base, err := DefaultCatalog()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return base, nil
	}

	var override Catalog
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompt catalog: %w", err)
		}
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("decode prompt catalog %s: %w", path, err)
		}
	default:
		if _, err := toml.DecodeFile(path, &override); err != nil {
			return nil, fmt.Errorf("decode prompt catalog %s: %w", path, err)
		}
	}

	base.merge(&override)
	return base, nil
}

func (c *Catalog) merge(o *Catalog) {
	if strings.TrimSpace(o.Preamble) != "" {
		c.Preamble = o.Preamble
	}
	if strings.TrimSpace(o.Fallback) != "" {
		c.Fallback = o.Fallback
	}
	for name, tmpl := range o.Sections {
		c.Sections[name] = tmpl
	}
}
