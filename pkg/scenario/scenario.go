// Package scenario defines the catalog value types for specification
// coverage. A catalog is a snapshot of documented scenarios collected once
// per run; scenarios are read-only afterwards and identified by ID alone.
package scenario

import "fmt"

// Parent is an ancestor grouping node in a scenario's hierarchy, ordered
// root to leaf. Used only for display grouping and labels.
type Parent struct {
	Name        string
	DisplayName string
}

// Scenario is one documented requirement from the catalog. ID is the join
// key against test-item markers and must be unique across the catalog; all
// other fields are informational.
type Scenario struct {
	ID          string
	Name        string
	DisplayName string
	Parents     []Parent
	Link        string // external reference URL, optional
	Branch      string // source-control branch tag, optional
}

// SuitesNames returns the display names of all parents, root to leaf.
// These feed the default suite-grouping labels.
func (s Scenario) SuitesNames() []string {
	names := make([]string, 0, len(s.Parents))
	for _, p := range s.Parents {
		names = append(names, p.DisplayName)
	}
	return names
}

// SpecificationsNames returns the display names of all parents except the
// root, followed by the scenario's own display name. These feed the
// fine-grained custom labels.
func (s Scenario) SpecificationsNames() []string {
	names := make([]string, 0, len(s.Parents))
	for i, p := range s.Parents {
		if i == 0 {
			continue
		}
		names = append(names, p.DisplayName)
	}
	return append(names, s.DisplayName)
}

// Catalog is an ordered collection of scenarios as returned by a collector.
type Catalog []Scenario

// Validate reports the first duplicate scenario ID, if any. Uniqueness of
// IDs is the one invariant the matching engine depends on.
func (c Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for _, sc := range c {
		if _, dup := seen[sc.ID]; dup {
			return fmt.Errorf("duplicate scenario id %q in catalog", sc.ID)
		}
		seen[sc.ID] = struct{}{}
	}
	return nil
}

// Lookup builds an ID-keyed index of the catalog.
func (c Catalog) Lookup() map[string]Scenario {
	index := make(map[string]Scenario, len(c))
	for _, sc := range c {
		index[sc.ID] = sc
	}
	return index
}
