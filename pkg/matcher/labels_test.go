package matcher

import (
	"testing"

	"github.com/dkoosis/speccov/pkg/allure"
)

func TestMakeLabels_ZipsNamesWithValues(t *testing.T) {
	got := MakeLabels([]string{"a", "b", "c"}, []string{"p", "y", "3"})
	want := []allure.Label{{Name: "a", Value: "p"}, {Name: "b", Value: "y"}, {Name: "c", Value: "3"}}
	assertLabels(t, got, want)
}

func TestMakeLabels_CollapsesTail_When_MoreValuesThanNames(t *testing.T) {
	got := MakeLabels([]string{"a", "b", "c"}, []string{"h", "e", "l", "l", "c"})
	want := []allure.Label{{Name: "a", Value: "h"}, {Name: "b", Value: "e"}, {Name: "c", Value: "l.l.c"}}
	assertLabels(t, got, want)
}

func TestMakeLabels_StopsAtShorterValues(t *testing.T) {
	got := MakeLabels([]string{"a", "b", "c"}, []string{"only"})
	want := []allure.Label{{Name: "a", Value: "only"}}
	assertLabels(t, got, want)
}

func TestMakeLabels_EmptyNames(t *testing.T) {
	if got := MakeLabels(nil, []string{"h", "e"}); len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestMakeLabels_EmptyValues(t *testing.T) {
	if got := MakeLabels([]string{"a", "b"}, nil); len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestMakeLabels_SingleName_CollapsesEverything(t *testing.T) {
	got := MakeLabels([]string{"spec"}, []string{"x", "y", "z"})
	want := []allure.Label{{Name: "spec", Value: "x.y.z"}}
	assertLabels(t, got, want)
}

func assertLabels(t *testing.T, got, want []allure.Label) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d labels %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
