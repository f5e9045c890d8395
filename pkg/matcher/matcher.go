// Package matcher reconciles a collected scenario catalog against the test
// items the host framework resolved for a run, and reports scenarios with
// no covering test as placeholder entries in the report sink.
package matcher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dkoosis/speccov/pkg/allure"
	"github.com/dkoosis/speccov/pkg/collector"
	"github.com/dkoosis/speccov/pkg/items"
	"github.com/dkoosis/speccov/pkg/scenario"
)

// DefaultLinkName is the display name for scenario links when none is
// configured.
const DefaultLinkName = "Scenario"

// ErrEmptyCatalog is returned when coverage is requested over an empty
// scenario catalog. That is a configuration problem, not 0% coverage.
var ErrEmptyCatalog = errors.New("scenario catalog is empty")

// Config holds the matcher's report-shaping options.
type Config struct {
	CustomLabels []string // label names for specification labels
	LinkName     string   // display name for scenario links
}

// MatchRecord holds the two per-scenario item buckets. A scenario with
// both buckets empty is missed; selected empty but deselected non-empty is
// deselected. Duplicate references append again, they are never deduped.
type MatchRecord struct {
	Selected   []items.Item
	Deselected []items.Item
}

// Ref records one scenario-reference marker pointing at an id absent from
// the catalog. One Ref per marker occurrence.
type Ref struct {
	NodeID     string
	ScenarioID string
}

// ItemMark is the cross-reference metadata attached to one executing test
// item: the scenario link plus custom labels, without default suite labels.
type ItemMark struct {
	NodeID string         `json:"node_id"`
	Labels []allure.Label `json:"labels,omitempty"`
	Links  []allure.Link  `json:"links,omitempty"`
}

// Matcher is the stateful matching engine for one run. It is driven
// through the session lifecycle in a fixed order: StartSession, then
// ItemsResolved, then ItemsDeselected, then Report.
type Matcher struct {
	cfg       Config
	collector collector.Collector
	reporter  allure.Reporter

	scenarios scenario.Catalog
	lookup    map[string]scenario.Scenario
	records   map[string]*MatchRecord // keyed by scenario ID

	nonexistent  []Ref
	unreferenced []string // node ids of selected items with no markers
	marks        map[string]*ItemMark
	markOrder    []string
}

// New creates a matcher over the given collector and report sink.
func New(cfg Config, col collector.Collector, reporter allure.Reporter) *Matcher {
	return &Matcher{
		cfg:       cfg,
		collector: col,
		reporter:  reporter,
		records:   make(map[string]*MatchRecord),
		marks:     make(map[string]*ItemMark),
	}
}

// StartSession collects the scenario universe and initializes one empty
// match record per scenario. The catalog is a snapshot: it is never
// mutated afterwards.
func (m *Matcher) StartSession() error {
	catalog, err := m.collector.Collect()
	if err != nil {
		return fmt.Errorf("collecting scenarios: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return err
	}

	m.scenarios = catalog
	m.lookup = catalog.Lookup()
	for _, sc := range catalog {
		m.records[sc.ID] = &MatchRecord{}
	}
	return nil
}

// ItemsResolved partitions the items that will actually run into the
// selected buckets of their referenced scenarios, then attaches
// cross-reference marks to every covering item. Unknown references
// accumulate instead of failing: the run continues and the issue surfaces
// at session end.
func (m *Matcher) ItemsResolved(resolved []items.Item) {
	for _, item := range resolved {
		if len(item.Scenarios) == 0 {
			m.unreferenced = append(m.unreferenced, item.NodeID)
			continue
		}
		for _, id := range item.Scenarios {
			record, known := m.records[id]
			if !known {
				m.nonexistent = append(m.nonexistent, Ref{NodeID: item.NodeID, ScenarioID: id})
				continue
			}
			record.Selected = append(record.Selected, item)
			m.mark(item, m.lookup[id])
		}
	}
}

// ItemsDeselected partitions items the framework filtered out of this run
// into the deselected buckets. Deselected items get no marks: they produce
// no real result to decorate.
func (m *Matcher) ItemsDeselected(deselected []items.Item) {
	for _, item := range deselected {
		for _, id := range item.Scenarios {
			record, known := m.records[id]
			if !known {
				m.nonexistent = append(m.nonexistent, Ref{NodeID: item.NodeID, ScenarioID: id})
				continue
			}
			record.Deselected = append(record.Deselected, item)
		}
	}
}

// mark attaches the scenario's link and custom labels to an item. Default
// suite labels are reserved for placeholder entries.
func (m *Matcher) mark(item items.Item, sc scenario.Scenario) {
	im, ok := m.marks[item.NodeID]
	if !ok {
		im = &ItemMark{NodeID: item.NodeID}
		m.marks[item.NodeID] = im
		m.markOrder = append(m.markOrder, item.NodeID)
	}
	im.Links = append(im.Links, m.scenarioLinks(sc)...)
	im.Labels = append(im.Labels, m.scenarioLabels(sc, false)...)
}

// Record returns the match record for a scenario id, or nil if unknown.
func (m *Matcher) Record(id string) *MatchRecord {
	return m.records[id]
}

// Missed returns catalog scenarios with no referencing items at all, in
// catalog order.
func (m *Matcher) Missed() []scenario.Scenario {
	var missed []scenario.Scenario
	for _, sc := range m.scenarios {
		record := m.records[sc.ID]
		if len(record.Selected) == 0 && len(record.Deselected) == 0 {
			missed = append(missed, sc)
		}
	}
	return missed
}

// Deselected returns catalog scenarios whose only referencing items were
// filtered out of this run, in catalog order. A scenario with any selected
// match is covered: selection takes precedence.
func (m *Matcher) Deselected() []scenario.Scenario {
	var deselected []scenario.Scenario
	for _, sc := range m.scenarios {
		record := m.records[sc.ID]
		if len(record.Selected) == 0 && len(record.Deselected) > 0 {
			deselected = append(deselected, sc)
		}
	}
	return deselected
}

// NonexistentRefs returns every marker occurrence that referenced an
// unknown scenario id, in discovery order.
func (m *Matcher) NonexistentRefs() []Ref {
	return m.nonexistent
}

// UnreferencedItems returns the node ids of selected items carrying no
// scenario markers, in discovery order.
func (m *Matcher) UnreferencedItems() []string {
	return m.unreferenced
}

// Marks returns the cross-reference metadata for covering items, in first-
// match order.
func (m *Matcher) Marks() []ItemMark {
	out := make([]ItemMark, 0, len(m.markOrder))
	for _, nodeID := range m.markOrder {
		out = append(out, *m.marks[nodeID])
	}
	return out
}

// CatalogSize returns the number of scenarios in the universe.
func (m *Matcher) CatalogSize() int {
	return len(m.scenarios)
}

// CoveragePercent computes floor(100 * covered / total), where covered
// counts every scenario that is not missed. An empty catalog is an error.
func (m *Matcher) CoveragePercent() (int, error) {
	total := len(m.scenarios)
	if total == 0 {
		return 0, ErrEmptyCatalog
	}
	missed := len(m.Missed())
	return (total - missed) * 100 / total, nil
}

// Report emits one placeholder entry per scenario without a selected
// match: missed scenarios as unknown, deselected scenarios as skipped with
// the deselecting node ids in the status details. Placeholders carry both
// label sets and the scenario link.
func (m *Matcher) Report() error {
	for _, sc := range m.Missed() {
		if err := m.reportScenario(sc, allure.StatusUnknown, nil); err != nil {
			return err
		}
	}
	for _, sc := range m.Deselected() {
		record := m.records[sc.ID]
		nodeIDs := make([]string, 0, len(record.Deselected))
		for _, item := range record.Deselected {
			nodeIDs = append(nodeIDs, item.NodeID)
		}
		details := &allure.StatusDetails{
			Message: fmt.Sprintf("Scenario is implemented but deselected in this run: %s", strings.Join(nodeIDs, ", ")),
			Trace:   strings.Join(nodeIDs, "\n"),
		}
		if err := m.reportScenario(sc, allure.StatusSkipped, details); err != nil {
			return err
		}
	}
	return nil
}

func (m *Matcher) reportScenario(sc scenario.Scenario, status allure.Status, details *allure.StatusDetails) error {
	id := allure.NewResultID()
	m.reporter.Schedule(id, allure.TestResult{
		UUID:          id,
		HistoryID:     allure.HistoryID(sc.ID),
		Name:          sc.DisplayName,
		Description:   sc.Name,
		Status:        status,
		StatusDetails: details,
		Labels:        m.scenarioLabels(sc, true),
		Links:         m.scenarioLinks(sc),
	})
	if err := m.reporter.Close(id); err != nil {
		return fmt.Errorf("reporting scenario %q: %w", sc.ID, err)
	}
	return nil
}
