// Package collector defines the contract a scenario source must satisfy to
// feed the matching engine, plus the registry that maps collector type
// names to their implementations.
package collector

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/dkoosis/speccov/pkg/scenario"
)

// Settings is the configuration accessor handed to a collector. Root
// anchors relative paths; Options and Lists hold the named values the host
// configuration layer resolved for collectors.
type Settings struct {
	Root    string
	Options map[string]string
	Lists   map[string][]string
}

// String returns a named option, or "" when absent.
func (s *Settings) String(key string) string {
	return s.Options[key]
}

// Int returns a named option parsed as an integer.
func (s *Settings) Int(key string) (int, error) {
	raw, ok := s.Options[key]
	if !ok {
		return 0, fmt.Errorf("option %q is not set", key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("option %q: %w", key, err)
	}
	return n, nil
}

// List returns a named list option, or nil when absent.
func (s *Settings) List(key string) []string {
	return s.Lists[key]
}

// Collector produces the scenario universe for one run. SetupConfig is
// invoked once at construction and must fail fast when required options are
// missing or point at nonexistent paths. Collect must return a fresh,
// fully-populated catalog in a deterministic order.
type Collector interface {
	SetupConfig() error
	Collect() (scenario.Catalog, error)
}

// Factory builds a configured collector. Implementations run SetupConfig
// before returning, so a non-nil Collector is always ready to Collect.
type Factory func(settings *Settings) (Collector, error)

// Option describes one collector-specific CLI option, registrable against
// the host flag parser without instantiating the collector.
type Option struct {
	Flag  string // flag name, e.g. "doctree-dir"
	Key   string // settings key, e.g. "doctree_dir"
	Usage string
}

// Registration ties a collector type name to its factory and CLI options.
type Registration struct {
	New     Factory
	Options []Option
}

// RegisterFlags adds the registration's options to a flag set. Values are
// read back with FlagOverrides after parsing.
func (r Registration) RegisterFlags(fs *pflag.FlagSet) {
	for _, opt := range r.Options {
		if fs.Lookup(opt.Flag) == nil {
			fs.String(opt.Flag, "", opt.Usage)
		}
	}
}

// FlagOverrides copies explicitly-set option flags into settings,
// overriding file-level configuration.
func (r Registration) FlagOverrides(fs *pflag.FlagSet, settings *Settings) {
	if settings.Options == nil {
		settings.Options = make(map[string]string)
	}
	for _, opt := range r.Options {
		if f := fs.Lookup(opt.Flag); f != nil && f.Changed {
			settings.Options[opt.Key] = f.Value.String()
		}
	}
}

// Registry maps collector type names to registrations. Selection happens
// by runtime string key, not by inheritance.
type Registry struct {
	entries map[string]Registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// Register adds a collector type. Re-registering a name replaces it.
func (r *Registry) Register(name string, reg Registration) {
	r.entries[name] = reg
}

// Lookup returns the registration for a type name.
func (r *Registry) Lookup(name string) (Registration, bool) {
	reg, ok := r.entries[name]
	return reg, ok
}

// Names returns all registered type names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New instantiates a registered collector type by name.
func (r *Registry) New(name string, settings *Settings) (Collector, error) {
	reg, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("unexpected collector type %q, registered ones: %v", name, r.Names())
	}
	return reg.New(settings)
}
