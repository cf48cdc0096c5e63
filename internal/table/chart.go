package table

import "strconv"

// ChartSeriesLimit is how many numeric columns a chart plots.
const ChartSeriesLimit = 2

type Series struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

type Chart struct {
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// Chartable reports whether t has a numeric column to plot.
func Chartable(t *Table) bool {
	return len(t.NumericColumns()) > 0
}

// ChartData builds bar chart series from the first two numeric columns of t,
// one bar group per row labelled by row number. Missing values are nil.
func ChartData(t *Table) (*Chart, bool) {
	numeric := t.NumericColumns()
	if len(numeric) == 0 {
		return nil, false
	}
	if len(numeric) > ChartSeriesLimit {
		numeric = numeric[:ChartSeriesLimit]
	}

	chart := &Chart{Labels: make([]string, t.rows)}
	for i := range chart.Labels {
		chart.Labels[i] = strconv.Itoa(i)
	}

	for _, c := range numeric {
		s := Series{Name: c.Name, Values: make([]*float64, len(c.Cells))}
		for i, cell := range c.Cells {
			if cell.Missing {
				continue
			}
			v := cell.Num
			s.Values[i] = &v
		}
		chart.Series = append(chart.Series, s)
	}

	return chart, true
}

// Max returns the largest value across all series, or 0.
func (c *Chart) Max() float64 {
	var max float64
	for _, s := range c.Series {
		for _, v := range s.Values {
			if v != nil && *v > max {
				max = *v
			}
		}
	}
	return max
}

// Min returns the smallest value across all series, or 0 when nothing is
// negative.
func (c *Chart) Min() float64 {
	var min float64
	for _, s := range c.Series {
		for _, v := range s.Values {
			if v != nil && *v < min {
				min = *v
			}
		}
	}
	return min
}
