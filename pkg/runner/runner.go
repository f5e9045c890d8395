// Package runner binds the matching engine to the host framework's run
// lifecycle and to the cross-worker aggregation protocol. The host drives
// a session through four callbacks in fixed order: StartSession,
// ItemsResolved, ItemsDeselected, FinishSession.
package runner

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dkoosis/speccov/internal/summary"
	"github.com/dkoosis/speccov/pkg/items"
	"github.com/dkoosis/speccov/pkg/matcher"
	"github.com/dkoosis/speccov/pkg/sharedstore"
)

// Exit codes. ExitNoTestsCollected is the distinct abort signal for
// coverage-threshold violations and nonexistent scenario references,
// emitted only after the summary has been written.
const (
	ExitOK               = 0
	ExitTestsFailed      = 1
	ExitUsageError       = 2
	ExitNoTestsCollected = 5
)

// Shared store keys written by the first worker and read back by the
// coordinator.
const (
	CoverageKey        = "coverage_percent"
	WithoutSpecKey     = "tests_without_spec"
	NonexistentKey     = "nonexistent_refs"
	storeListSeparator = "\n"
)

// Lifecycle is the explicit callback contract the host framework invokes,
// replacing reflective hook discovery.
type Lifecycle interface {
	StartSession() error
	ItemsResolved(resolved []items.Item)
	ItemsDeselected(deselected []items.Item)
	FinishSession() (exitCode int, err error)
}

// Role designates a process within a (possibly distributed) run. In
// non-distributed mode the local process plays both coordinator and first
// worker.
type Role struct {
	Distributed bool
	WorkerIndex int  // zero-based, meaningful when Distributed
	Coordinator bool // the process that provisions the store and prints the summary
}

// FirstWorker reports whether this process performs report emission. The
// designation is deterministic: worker index zero, or any non-distributed
// process.
func (r Role) FirstWorker() bool {
	if !r.Distributed {
		return true
	}
	return !r.Coordinator && r.WorkerIndex == 0
}

// Summarizes reports whether this process prints the final summary.
func (r Role) Summarizes() bool {
	return !r.Distributed || r.Coordinator
}

// Session runs one coverage session. It satisfies Lifecycle.
type Session struct {
	Matcher *matcher.Matcher
	Store   *sharedstore.Store // required when Role.Distributed
	Role    Role
	Target  int // minimum coverage percent, 0 disables
	Theme   summary.Theme
	Out     io.Writer
}

// StartSession collects the scenario universe.
func (s *Session) StartSession() error {
	return s.Matcher.StartSession()
}

// ItemsResolved forwards the selected items to the matcher.
func (s *Session) ItemsResolved(resolved []items.Item) {
	s.Matcher.ItemsResolved(resolved)
}

// ItemsDeselected forwards the filtered-out items to the matcher.
func (s *Session) ItemsDeselected(deselected []items.Item) {
	s.Matcher.ItemsDeselected(deselected)
}

// FinishSession completes the run: the first worker emits placeholder
// entries and publishes the coverage number; the summarizing process
// renders the summary and decides the exit signal. The abort for a
// threshold shortfall or nonexistent references happens strictly after the
// summary has been written.
func (s *Session) FinishSession() (int, error) {
	var (
		percent     int
		withoutSpec []string
		nonexistent []string
	)

	if s.Role.FirstWorker() {
		if err := s.Matcher.Report(); err != nil {
			return ExitUsageError, err
		}
		p, err := s.Matcher.CoveragePercent()
		if err != nil {
			return ExitUsageError, err
		}
		percent = p
		withoutSpec = testsWithoutSpec(s.Matcher)
		nonexistent = nonexistentNodeIDs(s.Matcher)

		if s.Role.Distributed {
			if s.Store == nil {
				return ExitUsageError, errors.New("distributed run without a shared store")
			}
			if err := s.Store.Put(CoverageKey, strconv.Itoa(percent)); err != nil {
				return ExitUsageError, err
			}
			if err := s.Store.Put(WithoutSpecKey, strings.Join(withoutSpec, storeListSeparator)); err != nil {
				return ExitUsageError, err
			}
			if err := s.Store.Put(NonexistentKey, strings.Join(nonexistent, storeListSeparator)); err != nil {
				return ExitUsageError, err
			}
		}
	}

	if !s.Role.Summarizes() {
		return ExitOK, nil
	}

	stats := summary.Stats{Target: s.Target}
	if s.Role.Distributed {
		// The coordinator never recomputes: the authoritative number comes
		// back from the shared store, and its absence is fatal.
		if s.Store == nil {
			return ExitUsageError, errors.New("distributed run without a shared store")
		}
		raw, err := s.Store.Get(CoverageKey)
		if err != nil {
			return ExitUsageError, err
		}
		percent, err = strconv.Atoi(raw)
		if err != nil {
			return ExitUsageError, fmt.Errorf("shared store: bad %s value %q: %w", CoverageKey, raw, err)
		}
		withoutSpec = storeList(s.Store, WithoutSpecKey)
		nonexistent = storeList(s.Store, NonexistentKey)
		stats.Percent = percent
		stats.WithoutSpec = withoutSpec
	} else {
		stats.Percent = percent
		stats.Total = s.Matcher.CatalogSize()
		stats.Missed = len(s.Matcher.Missed())
		stats.Deselected = len(s.Matcher.Deselected())
		stats.WithoutSpec = withoutSpec
	}

	if err := summary.Render(s.Out, s.Theme, stats); err != nil {
		return ExitUsageError, err
	}

	return s.exitSignal(stats.Percent, nonexistent)
}

// exitSignal composes the post-summary abort. Threshold mode escalates
// both a coverage shortfall and any nonexistent scenario references.
func (s *Session) exitSignal(percent int, nonexistent []string) (int, error) {
	if s.Target == 0 {
		return ExitOK, nil
	}
	var reasons []string
	if percent < s.Target {
		reasons = append(reasons, fmt.Sprintf("coverage %d%% is below the target of %d%%", percent, s.Target))
	}
	if len(nonexistent) > 0 {
		reasons = append(reasons, "items reference nonexistent scenarios: "+strings.Join(nonexistent, ", "))
	}
	if len(reasons) == 0 {
		return ExitOK, nil
	}
	return ExitNoTestsCollected, errors.New(strings.Join(reasons, "; "))
}

// storeList reads an optional newline-separated list key.
func storeList(store *sharedstore.Store, key string) []string {
	raw, err := store.Get(key)
	if err != nil || raw == "" {
		return nil
	}
	return strings.Split(raw, storeListSeparator)
}

// testsWithoutSpec merges unreferenced items with the items holding
// nonexistent references, deduplicated, in discovery order.
func testsWithoutSpec(m *matcher.Matcher) []string {
	seen := make(map[string]struct{})
	var nodeIDs []string
	add := func(nodeID string) {
		if _, dup := seen[nodeID]; dup {
			return
		}
		seen[nodeID] = struct{}{}
		nodeIDs = append(nodeIDs, nodeID)
	}
	for _, nodeID := range m.UnreferencedItems() {
		add(nodeID)
	}
	for _, ref := range m.NonexistentRefs() {
		add(ref.NodeID)
	}
	return nodeIDs
}

// nonexistentNodeIDs deduplicates the node ids carrying nonexistent
// references, in discovery order.
func nonexistentNodeIDs(m *matcher.Matcher) []string {
	seen := make(map[string]struct{})
	var nodeIDs []string
	for _, ref := range m.NonexistentRefs() {
		if _, dup := seen[ref.NodeID]; dup {
			continue
		}
		seen[ref.NodeID] = struct{}{}
		nodeIDs = append(nodeIDs, ref.NodeID)
	}
	return nodeIDs
}
