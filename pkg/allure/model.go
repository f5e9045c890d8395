// Package allure defines the report-sink contract: the structured result
// records the coverage engine emits and the reporter that records them.
package allure

// Status of a test result entry.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusSkipped Status = "skipped"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusBroken  Status = "broken"
)

// Label is one (name, value) grouping tag on a result.
type Label struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Link is a cross-reference attached to a result.
type Link struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// LinkTypeLink is the generic external-reference link type.
const LinkTypeLink = "link"

// StatusDetails carries a diagnostic message and trace for a result.
type StatusDetails struct {
	Message string `json:"message,omitempty"`
	Trace   string `json:"trace,omitempty"`
}

// TestResult is one entry in the report sink. Placeholder entries
// synthesized for uncovered scenarios use the same shape as real results.
type TestResult struct {
	UUID          string         `json:"uuid"`
	HistoryID     string         `json:"historyId,omitempty"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Status        Status         `json:"status"`
	StatusDetails *StatusDetails `json:"statusDetails,omitempty"`
	Labels        []Label        `json:"labels,omitempty"`
	Links         []Link         `json:"links,omitempty"`
}
