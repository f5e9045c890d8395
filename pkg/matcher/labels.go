package matcher

import (
	"strings"

	"github.com/dkoosis/speccov/pkg/allure"
	"github.com/dkoosis/speccov/pkg/scenario"
)

// DefaultLabels are the suite-grouping label names used on synthesized
// placeholder entries. Real test results never get these, so coverage
// placeholders group separately from executed tests.
var DefaultLabels = []string{"parentSuite", "suite", "subSuite"}

// MakeLabels pairs label names with values, zip-style. When there are more
// values than names, the tail values collapse into the last pair joined
// with ".", so the output never exceeds len(names) pairs.
func MakeLabels(names []string, values []string) []allure.Label {
	if len(names) == 0 {
		return nil
	}
	if len(values) > len(names) {
		keep := len(names) - 1
		collapsed := make([]string, 0, len(names))
		collapsed = append(collapsed, values[:keep]...)
		collapsed = append(collapsed, strings.Join(values[keep:], "."))
		values = collapsed
	}

	labels := make([]allure.Label, 0, len(values))
	for i, name := range names {
		if i >= len(values) {
			break
		}
		labels = append(labels, allure.Label{Name: name, Value: values[i]})
	}
	return labels
}

// scenarioLabels builds the label set for a scenario: custom labels from
// the specification names always, default suite labels only when
// keepDefault is set (placeholder entries only).
func (m *Matcher) scenarioLabels(sc scenario.Scenario, keepDefault bool) []allure.Label {
	labels := MakeLabels(m.cfg.CustomLabels, sc.SpecificationsNames())
	if keepDefault {
		labels = append(labels, MakeLabels(DefaultLabels, sc.SuitesNames())...)
	}
	return labels
}

// scenarioLinks builds the cross-reference list for a scenario. A scenario
// without a link contributes none.
func (m *Matcher) scenarioLinks(sc scenario.Scenario) []allure.Link {
	if sc.Link == "" {
		return nil
	}
	name := m.cfg.LinkName
	if name == "" {
		name = DefaultLinkName
	}
	return []allure.Link{{URL: sc.Link, Name: name, Type: allure.LinkTypeLink}}
}
