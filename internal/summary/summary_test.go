package summary

import (
	"errors"
	"strings"
	"testing"
)

func TestTierFor(t *testing.T) {
	cases := []struct {
		percent int
		want    Tier
	}{
		{0, TierLow},
		{50, TierLow},
		{84, TierLow},
		{85, TierMid},
		{99, TierMid},
		{100, TierHigh},
	}
	for _, tc := range cases {
		got, err := TierFor(tc.percent)
		if err != nil {
			t.Errorf("TierFor(%d): unexpected error %v", tc.percent, err)
			continue
		}
		if got != tc.want {
			t.Errorf("TierFor(%d) = %v, want %v", tc.percent, got, tc.want)
		}
	}
}

func TestTierFor_When_OutOfRange(t *testing.T) {
	for _, percent := range []int{-1, 101, 1000} {
		if _, err := TierFor(percent); !errors.Is(err, ErrPercentRange) {
			t.Errorf("TierFor(%d): got %v, want ErrPercentRange", percent, err)
		}
	}
}

func TestRender_Headline(t *testing.T) {
	var sb strings.Builder
	err := Render(&sb, MonoTheme(), Stats{Percent: 50, Total: 4, Missed: 2, Deselected: 1})
	if err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.Contains(out, "50% specification coverage") {
		t.Errorf("missing headline in output:\n%s", out)
	}
	if !strings.Contains(out, "4 total, 2 covered, 1 deselected, 2 missed") {
		t.Errorf("missing detail line in output:\n%s", out)
	}
}

func TestRender_WithoutTotals_OmitsDetailLine(t *testing.T) {
	var sb strings.Builder
	if err := Render(&sb, MonoTheme(), Stats{Percent: 93}); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.Contains(out, "93% specification coverage") {
		t.Errorf("missing headline in output:\n%s", out)
	}
	if strings.Contains(out, "total") {
		t.Errorf("detail line rendered without totals:\n%s", out)
	}
}

func TestRender_WarnsAboutTestsWithoutSpec(t *testing.T) {
	var sb strings.Builder
	err := Render(&sb, MonoTheme(), Stats{
		Percent:     100,
		Total:       1,
		WithoutSpec: []string{"tests/a.py::test_one", "tests/a.py::test_two"},
	})
	if err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.Contains(out, "There are tests without spec: tests/a.py::test_one, tests/a.py::test_two") {
		t.Errorf("missing warning in output:\n%s", out)
	}
}

func TestRender_CelebratesReachedTarget(t *testing.T) {
	var sb strings.Builder
	if err := Render(&sb, MonoTheme(), Stats{Percent: 90, Total: 10, Missed: 1, Target: 80}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), "🎉🎉🎉") {
		t.Errorf("missing celebration in output:\n%s", sb.String())
	}
}

func TestRender_ReportsShortfall(t *testing.T) {
	var sb strings.Builder
	if err := Render(&sb, MonoTheme(), Stats{Percent: 50, Total: 4, Missed: 2, Target: 80}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), "below the target of 80%") {
		t.Errorf("missing shortfall line in output:\n%s", sb.String())
	}
}

func TestRender_When_PercentOutOfRange(t *testing.T) {
	var sb strings.Builder
	if err := Render(&sb, MonoTheme(), Stats{Percent: 120}); err == nil {
		t.Fatal("expected error for out-of-range percent")
	}
	if sb.Len() != 0 {
		t.Errorf("nothing should be written on error, got %q", sb.String())
	}
}
