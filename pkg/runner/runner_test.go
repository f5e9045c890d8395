package runner

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/speccov/internal/summary"
	"github.com/dkoosis/speccov/pkg/allure"
	"github.com/dkoosis/speccov/pkg/items"
	"github.com/dkoosis/speccov/pkg/matcher"
	"github.com/dkoosis/speccov/pkg/scenario"
	"github.com/dkoosis/speccov/pkg/sharedstore"
)

type stubCollector struct {
	catalog scenario.Catalog
}

func (c stubCollector) SetupConfig() error                 { return nil }
func (c stubCollector) Collect() (scenario.Catalog, error) { return c.catalog, nil }

func fourScenarios() scenario.Catalog {
	return scenario.Catalog{
		{ID: "a", Name: "a", DisplayName: "A"},
		{ID: "b", Name: "b", DisplayName: "B"},
		{ID: "c", Name: "c", DisplayName: "C"},
		{ID: "d", Name: "d", DisplayName: "D"},
	}
}

func newSession(t *testing.T, catalog scenario.Catalog, reporter allure.Reporter) (*Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	session := &Session{
		Matcher: matcher.New(matcher.Config{}, stubCollector{catalog: catalog}, reporter),
		Theme:   summary.MonoTheme(),
		Out:     &out,
	}
	require.NoError(t, session.StartSession())
	return session, &out
}

func halfCovered(t *testing.T, session *Session) {
	t.Helper()
	session.ItemsResolved([]items.Item{
		{NodeID: "t::one", Scenarios: []string{"a"}},
		{NodeID: "t::two", Scenarios: []string{"b"}},
	})
	session.ItemsDeselected([]items.Item{
		{NodeID: "t::three", Scenarios: []string{"c"}},
	})
}

func TestRole_FirstWorkerDesignation(t *testing.T) {
	t.Parallel()

	assert.True(t, Role{}.FirstWorker(), "non-distributed process plays both roles")
	assert.True(t, Role{Distributed: true, WorkerIndex: 0}.FirstWorker())
	assert.False(t, Role{Distributed: true, WorkerIndex: 1}.FirstWorker())
	assert.False(t, Role{Distributed: true, Coordinator: true}.FirstWorker())

	assert.True(t, Role{}.Summarizes())
	assert.True(t, Role{Distributed: true, Coordinator: true}.Summarizes())
	assert.False(t, Role{Distributed: true, WorkerIndex: 0}.Summarizes())
}

func TestFinishSession_LocalRun_PrintsSummary(t *testing.T) {
	t.Parallel()

	reporter := allure.NewMemoryReporter()
	session, out := newSession(t, fourScenarios(), reporter)
	halfCovered(t, session)

	code, err := session.FinishSession()
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, out.String(), "50% specification coverage")
	assert.Len(t, reporter.Closed, 2, "placeholders for d (missed) and c (deselected)")
}

func TestFinishSession_ThresholdShortfall_AbortsAfterSummary(t *testing.T) {
	t.Parallel()

	session, out := newSession(t, fourScenarios(), allure.NewMemoryReporter())
	halfCovered(t, session)
	session.Target = 80

	code, err := session.FinishSession()
	assert.Equal(t, ExitNoTestsCollected, code)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below the target of 80%")
	assert.Contains(t, out.String(), "50% specification coverage",
		"summary must be written before the abort signal")
}

func TestFinishSession_NonexistentRefs_EscalateInThresholdMode(t *testing.T) {
	t.Parallel()

	session, _ := newSession(t, fourScenarios(), allure.NewMemoryReporter())
	session.ItemsResolved([]items.Item{
		{NodeID: "t::one", Scenarios: []string{"a"}},
		{NodeID: "t::two", Scenarios: []string{"b"}},
		{NodeID: "t::three", Scenarios: []string{"c"}},
		{NodeID: "t::four", Scenarios: []string{"d"}},
		{NodeID: "t::ghost", Scenarios: []string{"ghost"}},
	})
	session.Target = 50

	code, err := session.FinishSession()
	assert.Equal(t, ExitNoTestsCollected, code, "nonexistent refs abort even at 100%% coverage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "t::ghost")
}

func TestFinishSession_NonexistentRefs_WarnOnlyWithoutThreshold(t *testing.T) {
	t.Parallel()

	session, out := newSession(t, fourScenarios(), allure.NewMemoryReporter())
	halfCovered(t, session)
	session.ItemsResolved([]items.Item{
		{NodeID: "t::ghost", Scenarios: []string{"ghost"}},
	})

	code, err := session.FinishSession()
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, out.String(), "There are tests without spec: t::ghost")
}

func TestFinishSession_EmptyCatalog_IsConfigurationError(t *testing.T) {
	t.Parallel()

	session, _ := newSession(t, nil, allure.NewMemoryReporter())
	code, err := session.FinishSession()
	assert.Equal(t, ExitUsageError, code)
	assert.True(t, errors.Is(err, matcher.ErrEmptyCatalog))
}

func TestFinishSession_Distributed_FirstWorkerPublishes(t *testing.T) {
	t.Parallel()

	store, err := sharedstore.Open(t.TempDir())
	require.NoError(t, err)

	reporter := allure.NewMemoryReporter()
	session, out := newSession(t, fourScenarios(), reporter)
	halfCovered(t, session)
	session.Store = store
	session.Role = Role{Distributed: true, WorkerIndex: 0}

	code, err := session.FinishSession()
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)
	assert.Empty(t, out.String(), "workers never print the summary")
	assert.Len(t, reporter.Closed, 2, "first worker emits the placeholders")

	raw, err := store.Get(CoverageKey)
	require.NoError(t, err)
	assert.Equal(t, "50", raw)
}

func TestFinishSession_Distributed_SatelliteDoesNothing(t *testing.T) {
	t.Parallel()

	store, err := sharedstore.Open(t.TempDir())
	require.NoError(t, err)

	reporter := allure.NewMemoryReporter()
	session, out := newSession(t, fourScenarios(), reporter)
	halfCovered(t, session)
	session.Store = store
	session.Role = Role{Distributed: true, WorkerIndex: 1}

	code, err := session.FinishSession()
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)
	assert.Empty(t, out.String())
	assert.Empty(t, reporter.Closed, "satellites never re-report")
	_, err = store.Get(CoverageKey)
	assert.True(t, errors.Is(err, sharedstore.ErrMissingKey), "satellites never write the percent")
}

func TestFinishSession_Distributed_CoordinatorReadsBack(t *testing.T) {
	t.Parallel()

	store, err := sharedstore.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put(CoverageKey, "93"))
	require.NoError(t, store.Put(WithoutSpecKey, ""))
	require.NoError(t, store.Put(NonexistentKey, ""))

	var out bytes.Buffer
	session := &Session{
		Store:  store,
		Role:   Role{Distributed: true, Coordinator: true},
		Target: 90,
		Theme:  summary.MonoTheme(),
		Out:    &out,
	}

	code, err := session.FinishSession()
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, out.String(), "93% specification coverage")
}

func TestFinishSession_Distributed_CoordinatorMissingKeyIsFatal(t *testing.T) {
	t.Parallel()

	store, err := sharedstore.Open(t.TempDir())
	require.NoError(t, err)

	var out bytes.Buffer
	session := &Session{
		Store: store,
		Role:  Role{Distributed: true, Coordinator: true},
		Theme: summary.MonoTheme(),
		Out:   &out,
	}

	code, err := session.FinishSession()
	assert.Equal(t, ExitUsageError, code)
	assert.True(t, errors.Is(err, sharedstore.ErrMissingKey))
	assert.False(t, strings.Contains(out.String(), "specification coverage"),
		"no summary from a defaulted zero")
}
