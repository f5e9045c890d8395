// Package config loads the typed speccov configuration: hardcoded
// defaults, then the project's .speccov.yaml, then explicit CLI flags.
// Validation is eager — a bad configuration fails before any matching.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Constants for default values.
const (
	FileName          = ".speccov.yaml"
	DefaultLinkName   = "Scenario"
	DefaultResultsDir = "allure-results"
)

// Config is the application configuration, populated once at startup and
// passed by reference into constructors.
type Config struct {
	Collector        string              `yaml:"collector"`
	CollectorOptions map[string]string   `yaml:"collector_options"`
	CollectorLists   map[string][]string `yaml:"collector_lists"`
	Labels           []string            `yaml:"labels"`    // custom label names for specification labels
	LinkName         string              `yaml:"link_name"` // display name for scenario links
	Target           int                 `yaml:"target"`    // minimum coverage percent, 0 disables
	ResultsDir       string              `yaml:"results_dir"`

	Root string `yaml:"-"` // project root, set by the loader
}

// Flags holds CLI flag values alongside whether each was explicitly set.
type Flags struct {
	Collector  string
	Target     int
	TargetSet  bool
	ResultsDir string
	LinkName   string
	Labels     []string
}

// Load reads configuration for a project root. A missing config file is
// fine; a malformed one is not.
func Load(root string) (*Config, error) {
	return LoadFile(root, "")
}

// LoadFile reads configuration from an explicit file path instead of the
// root's default. An explicitly named file must exist.
func LoadFile(root, path string) (*Config, error) {
	cfg := &Config{
		LinkName:   DefaultLinkName,
		ResultsDir: DefaultResultsDir,
		Root:       root,
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, FileName)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if fileCfg.Collector != "" {
		cfg.Collector = fileCfg.Collector
	}
	if fileCfg.CollectorOptions != nil {
		cfg.CollectorOptions = fileCfg.CollectorOptions
	}
	if fileCfg.CollectorLists != nil {
		cfg.CollectorLists = fileCfg.CollectorLists
	}
	if len(fileCfg.Labels) > 0 {
		cfg.Labels = fileCfg.Labels
	}
	if fileCfg.LinkName != "" {
		cfg.LinkName = fileCfg.LinkName
	}
	if fileCfg.Target != 0 {
		cfg.Target = fileCfg.Target
	}
	if fileCfg.ResultsDir != "" {
		cfg.ResultsDir = fileCfg.ResultsDir
	}
	return cfg, nil
}

// MergeFlags applies explicitly-set CLI flags over the file configuration.
func (c *Config) MergeFlags(fl Flags) {
	if fl.Collector != "" {
		c.Collector = fl.Collector
	}
	if fl.TargetSet {
		c.Target = fl.Target
	}
	if fl.ResultsDir != "" {
		c.ResultsDir = fl.ResultsDir
	}
	if fl.LinkName != "" {
		c.LinkName = fl.LinkName
	}
	if len(fl.Labels) > 0 {
		c.Labels = fl.Labels
	}
}

// Validate fails fast on configuration that cannot drive a run.
func (c *Config) Validate() error {
	if c.Collector == "" {
		return fmt.Errorf("no collector type configured (set 'collector' in %s or pass --collector)", FileName)
	}
	if c.Target < 0 || c.Target > 100 {
		return fmt.Errorf("coverage target %d outside [0, 100]", c.Target)
	}
	if c.ResultsDir == "" {
		return fmt.Errorf("results directory must not be empty")
	}
	return nil
}
