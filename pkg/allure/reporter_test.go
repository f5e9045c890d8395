package allure

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileReporter_WritesResultFile_When_Closed(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "allure-results")
	reporter, err := NewFileReporter(dir)
	require.NoError(t, err)

	id := NewResultID()
	reporter.Schedule(id, TestResult{
		UUID:   id,
		Name:   "Login with password",
		Status: StatusUnknown,
		Labels: []Label{{Name: "suite", Value: "Authentication"}},
		Links:  []Link{{URL: "https://specs.example.com/auth/login.html", Name: "Scenario", Type: LinkTypeLink}},
	})
	require.NoError(t, reporter.Close(id))

	data, err := os.ReadFile(filepath.Join(dir, id+"-result.json"))
	require.NoError(t, err)

	var result TestResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "Login with password", result.Name)
	assert.Equal(t, StatusUnknown, result.Status)
	assert.Len(t, result.Labels, 1)
	assert.Len(t, result.Links, 1)
}

func TestFileReporter_Close_When_Unscheduled(t *testing.T) {
	t.Parallel()

	reporter, err := NewFileReporter(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, reporter.Close("never-scheduled"))
}

func TestMemoryReporter_CollectsClosedResults(t *testing.T) {
	t.Parallel()

	reporter := NewMemoryReporter()
	reporter.Schedule("one", TestResult{UUID: "one", Name: "first"})
	reporter.Schedule("two", TestResult{UUID: "two", Name: "second"})

	require.NoError(t, reporter.Close("one"))
	require.Error(t, reporter.Close("one"), "double close must fail")
	require.NoError(t, reporter.Close("two"))

	require.Len(t, reporter.Closed, 2)
	assert.Equal(t, "first", reporter.Closed[0].Name)
	assert.Equal(t, "second", reporter.Closed[1].Name)
}

func TestHistoryID_DeterministicPerIdentity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, HistoryID("auth/login"), HistoryID("auth/login"))
	assert.NotEqual(t, HistoryID("auth/login"), HistoryID("auth/sso"))
}
