// Package static collects scenarios from an author-maintained YAML catalog
// file. Useful for small projects and as a test double for richer sources.
package static

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dkoosis/speccov/pkg/collector"
	"github.com/dkoosis/speccov/pkg/scenario"
)

// OptionFile is the settings key naming the catalog file.
const OptionFile = "catalog_file"

// Collector reads a YAML catalog file on every Collect call.
type Collector struct {
	settings *collector.Settings

	path string
}

type catalogFile struct {
	Scenarios []scenarioEntry `yaml:"scenarios"`
}

type scenarioEntry struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	DisplayName string        `yaml:"display_name"`
	Parents     []parentEntry `yaml:"parents"`
	Link        string        `yaml:"link"`
	Branch      string        `yaml:"branch"`
}

type parentEntry struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
}

// Registration returns the registry entry for the static collector.
func Registration() collector.Registration {
	return collector.Registration{
		New: New,
		Options: []collector.Option{
			{Flag: "catalog-file", Key: OptionFile, Usage: "YAML file holding the scenario catalog (required)"},
		},
	}
}

// New builds a static collector and validates its configuration.
func New(settings *collector.Settings) (collector.Collector, error) {
	c := &Collector{settings: settings}
	if err := c.SetupConfig(); err != nil {
		return nil, err
	}
	return c, nil
}

// SetupConfig resolves and validates the catalog file path.
func (c *Collector) SetupConfig() error {
	path := c.settings.String(OptionFile)
	if path == "" {
		return fmt.Errorf("option %q is required", OptionFile)
	}
	if !filepath.IsAbs(path) && c.settings.Root != "" {
		path = filepath.Join(c.settings.Root, path)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("catalog file %q doesn't exist: %w", path, err)
	}
	c.path = path
	return nil
}

// Collect parses the catalog file, in file order.
func (c *Collector) Collect() (scenario.Catalog, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog file %q: %w", c.path, err)
	}

	catalog := make(scenario.Catalog, 0, len(file.Scenarios))
	for i, entry := range file.Scenarios {
		if entry.ID == "" {
			return nil, fmt.Errorf("catalog file %q: scenario #%d has no id", c.path, i+1)
		}
		name := entry.Name
		if name == "" {
			name = entry.ID
		}
		display := entry.DisplayName
		if display == "" {
			display = name
		}
		parents := make([]scenario.Parent, 0, len(entry.Parents))
		for _, p := range entry.Parents {
			parents = append(parents, scenario.Parent{Name: p.Name, DisplayName: p.DisplayName})
		}
		catalog = append(catalog, scenario.Scenario{
			ID:          entry.ID,
			Name:        name,
			DisplayName: display,
			Parents:     parents,
			Link:        entry.Link,
			Branch:      entry.Branch,
		})
	}
	return catalog, nil
}
