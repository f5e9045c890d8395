// Package items models the test items consumed from the host test
// framework and parses NDJSON test plans, one item per line.
package items

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Item is one discovered test case. NodeID is the framework's stable node
// identifier; Scenarios holds zero or more scenario-reference marker values.
type Item struct {
	NodeID     string   `json:"node_id"`
	Scenarios  []string `json:"scenarios,omitempty"`
	Deselected bool     `json:"deselected,omitempty"`
}

// Plan is the outcome of the host framework's selection phase: the items
// that will run and the items filtered out of this run.
type Plan struct {
	Selected   []Item
	Deselected []Item
}

// ParseStream parses an NDJSON test plan from a reader, line by line.
// Returns the plan, the number of malformed lines skipped, and any error.
func ParseStream(r io.Reader) (Plan, int, error) {
	var plan Plan
	scanner := bufio.NewScanner(r)
	// Allow long lines for heavily parametrized node ids
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var malformed int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var item Item
		if err := json.Unmarshal(line, &item); err != nil {
			malformed++
			continue
		}
		if item.NodeID == "" {
			malformed++
			continue
		}
		if item.Deselected {
			plan.Deselected = append(plan.Deselected, item)
		} else {
			plan.Selected = append(plan.Selected, item)
		}
	}
	if err := scanner.Err(); err != nil {
		return Plan{}, malformed, fmt.Errorf("scanning test plan: %w", err)
	}
	return plan, malformed, nil
}

// ParseBytes is a convenience for parsing from a byte slice.
func ParseBytes(data []byte) (Plan, int, error) {
	return ParseStream(strings.NewReader(string(data)))
}
