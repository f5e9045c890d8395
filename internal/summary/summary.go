// Package summary renders the end-of-run coverage summary: a tier-colored
// percentage line plus warnings about tests with no specification.
package summary

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Tier is the display band a coverage percentage falls into.
type Tier int

const (
	TierLow  Tier = iota // needs work
	TierMid              // close
	TierHigh             // complete
)

// ErrPercentRange flags a percentage outside [0, 100]. Callers pass
// computed percentages; an out-of-range value is a programming error, not
// something to clamp.
var ErrPercentRange = errors.New("coverage percent outside [0, 100]")

// TierFor maps a percentage to its display tier.
func TierFor(percent int) (Tier, error) {
	if percent < 0 || percent > 100 {
		return 0, fmt.Errorf("%w: %d", ErrPercentRange, percent)
	}
	switch {
	case percent <= 84:
		return TierLow, nil
	case percent <= 99:
		return TierMid, nil
	default:
		return TierHigh, nil
	}
}

// Theme defines the styles for summary rendering.
type Theme struct {
	Name    string
	Low     lipgloss.Style
	Mid     lipgloss.Style
	High    lipgloss.Style
	Bold    lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
}

// DefaultTheme returns the colored theme.
func DefaultTheme() Theme {
	return Theme{
		Name:    "default",
		Low:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")), // red
		Mid:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")), // orange
		High:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("34")),  // green
		Bold:    lipgloss.NewStyle().Bold(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
}

// MonoTheme returns an uncolored theme for NO_COLOR and piped output.
func MonoTheme() Theme {
	return Theme{
		Name: "mono",
		Bold: lipgloss.NewStyle().Bold(true),
	}
}

// styleFor picks the tier style.
func (t Theme) styleFor(tier Tier) lipgloss.Style {
	switch tier {
	case TierHigh:
		return t.High
	case TierMid:
		return t.Mid
	default:
		return t.Low
	}
}

// Stats is everything the summary displays.
type Stats struct {
	Percent     int
	Total       int // 0 when only the aggregated percent is known
	Missed      int
	Deselected  int
	Target      int      // 0 means no threshold configured
	WithoutSpec []string // node ids with no or unknown scenario refs
}

// Covered returns the number of scenarios that are not missed.
func (s Stats) Covered() int {
	return s.Total - s.Missed
}

// Render writes the coverage summary. The tier decides the color of the
// headline percentage; out-of-range percentages are rejected.
func Render(w io.Writer, theme Theme, stats Stats) error {
	tier, err := TierFor(stats.Percent)
	if err != nil {
		return err
	}

	headline := fmt.Sprintf("%d%% specification coverage", stats.Percent)
	fmt.Fprintln(w, theme.styleFor(tier).Render(headline))
	if stats.Total > 0 {
		fmt.Fprintln(w, theme.Muted.Render(fmt.Sprintf(
			"scenarios: %d total, %d covered, %d deselected, %d missed",
			stats.Total, stats.Covered(), stats.Deselected, stats.Missed,
		)))
	}

	if len(stats.WithoutSpec) > 0 {
		fmt.Fprintln(w, theme.Warning.Render(
			"There are tests without spec: "+strings.Join(stats.WithoutSpec, ", "),
		))
	}

	if stats.Target > 0 {
		if stats.Percent >= stats.Target {
			fmt.Fprintln(w, theme.High.Render(fmt.Sprintf(
				"🎉🎉🎉 Coverage target of %d%% reached", stats.Target,
			)))
		} else {
			fmt.Fprintln(w, theme.Low.Render(fmt.Sprintf(
				"Coverage %d%% is below the target of %d%%", stats.Percent, stats.Target,
			)))
		}
	}
	return nil
}
