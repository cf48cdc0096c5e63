package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nconklindev/sift/internal/table"
)

const (
	barChar         = "█"
	negativeBarChar = "▒"
)

// renderChart draws one horizontal bar per row and series, scaled to width
// cells. Rows past maxRows are summarized in a footer line.
func renderChart(chart *table.Chart, maxRows, width int) string {
	if chart == nil || len(chart.Series) == 0 {
		return ""
	}

	nameWidth := 0
	for _, s := range chart.Series {
		nameWidth = max(nameWidth, lipgloss.Width(s.Name))
	}
	labelWidth := len(fmt.Sprint(len(chart.Labels)))

	scale := math.Max(math.Abs(chart.Max()), math.Abs(chart.Min()))
	barWidth := width - nameWidth - labelWidth - 16
	if barWidth < 10 {
		barWidth = 10
	}

	var s strings.Builder
	rows := min(maxRows, len(chart.Labels))
	for i := 0; i < rows; i++ {
		for j, series := range chart.Series {
			label := ""
			if j == 0 {
				label = chart.Labels[i]
			}
			s.WriteString(fmt.Sprintf("%*s %-*s ", labelWidth, label, nameWidth, series.Name))

			v := series.Values[i]
			if v == nil {
				s.WriteString(DisabledStyle.Render("–"))
				s.WriteString("\n")
				continue
			}

			n := 0
			if scale > 0 {
				n = int(math.Round(math.Abs(*v) / scale * float64(barWidth)))
			}
			char := barChar
			if *v < 0 {
				char = negativeBarChar
			}
			style := SeriesStyles[j%len(SeriesStyles)]
			s.WriteString(style.Render(strings.Repeat(char, n)))
			s.WriteString(fmt.Sprintf(" %g\n", *v))
		}
	}

	if hidden := len(chart.Labels) - rows; hidden > 0 {
		s.WriteString(DisabledStyle.Render(fmt.Sprintf("… %d more row(s) not shown", hidden)))
		s.WriteString("\n")
	}

	return s.String()
}
