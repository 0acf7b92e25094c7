package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/piwi3910/cutplan/internal/engine"
)

// maxChartBars caps the benchmark chart at the best-ranked configurations.
const maxChartBars = 20

// WriteBenchmarkChart renders an HTML bar chart of efficiency and sheet count per configuration,
// best rank first.
func WriteBenchmarkChart(w io.Writer, results []engine.ConfigResult) error {
	if len(results) == 0 {
		return fmt.Errorf("no benchmark results to chart")
	}
	ranked := make([]engine.ConfigResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Rank < ranked[j].Rank })
	if len(ranked) > maxChartBars {
		ranked = ranked[:maxChartBars]
	}

	names := make([]string, len(ranked))
	eff := make([]opts.BarData, len(ranked))
	sheets := make([]opts.BarData, len(ranked))
	for i, r := range ranked {
		names[i] = fmt.Sprintf("#%d %s", r.Rank, r.Config.Name)
		eff[i] = opts.BarData{Value: round1(r.Efficiency)}
		sheets[i] = opts.BarData{Value: r.Sheets}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Strategy benchmark",
			Subtitle: fmt.Sprintf("%d configurations, top %d shown", len(results), len(ranked)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 40, Interval: "0"}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "efficiency %"}),
	)
	bar.SetXAxis(names).
		AddSeries("Efficiency %", eff).
		AddSeries("Sheets", sheets)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
