package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/seenimoa/forecastviz/pkg/models"
	"github.com/seenimoa/forecastviz/pkg/utils"
)

// Series and panel names as they appear in the document.
const (
	SeriesHistory    = "Price History"
	SeriesEnsemble   = "Ensemble Core"
	SeriesCorridor   = "Confidence Corridor (95%)"
	SeriesLSTM       = "LSTM Node"
	SeriesARIMA      = "ARIMA Node"
	SeriesVolatility = "20D Realized Vol"
	SeriesDensity    = "Probability density"

	panelModels     = "Model Consensus: LSTM vs ARIMA"
	panelVolatility = "Rolling Volatility Pulse"
	panelRisk       = "Risk Distribution & VaR Analysis"

	titlePrefix = "INSTITUTIONAL INTELLIGENCE HUB: "
)

// missing is the chart runtime's marker for a gap in a series.
const missing = "-"

// Figure is a fully built dashboard: the chart option model plus the
// derived data it was built from.
type Figure struct {
	Chart      *charts.Line
	Manifest   Manifest
	History    []utils.DatedValue
	Corridor   []Vertex
	Volatility []VolPoint
	Histogram  Histogram
}

// ════════════════════════════════════════════════════════════════════
// Figure assembly
// ════════════════════════════════════════════════════════════════════

// Build validates result and assembles the four-panel figure without
// writing anything.
func (r *Renderer) Build(result *models.ForecastResult) (*Figure, error) {
	history, rows, risk, err := checkResult(result)
	if err != nil {
		return nil, err
	}

	th := r.cfg.Theme
	boxes := th.panels()
	ticker := strings.TrimSpace(result.Ticker)
	title := titlePrefix + ticker

	fig := &Figure{
		History:    history,
		Corridor:   corridor(rows),
		Volatility: rollingVolatility(history, VolWindow),
		Histogram:  riskSample(risk.Volatility*sigmaScale, HistogramSamples, HistogramBins, r.cfg.Seed),
	}

	first, last := history[0].Time, latest(history, rows)
	if rows[0].Time.Before(first) {
		first = rows[0].Time
	}
	presets := rangePresets(first, last)
	hud := hudLines(risk)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       title,
			Width:           th.Width,
			Height:          px(th.Height),
			BackgroundColor: th.Background,
			ChartID:         r.chartID,
			Theme:           "dark",
			AssetsHost:      r.cfg.AssetsHost,
		}),
		charts.WithLegendOpts(opts.Legend{
			Show:      opts.Bool(true),
			Orient:    "horizontal",
			Top:       px(th.MarginTop / 2),
			Right:     pct(th.MarginSide),
			TextStyle: &opts.TextStyle{Color: th.TextColor, FontSize: th.LegendFontSize},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show:  opts.Bool(true),
			Right: pct(th.MarginSide),
			Top:   "20px",
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{
					Show:  opts.Bool(true),
					Name:  utils.TickerSlug(ticker) + "-dashboard",
					Title: "Save",
				},
				Restore: &opts.ToolBoxFeatureRestore{Show: opts.Bool(true), Title: "Reset"},
			},
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			XAxisIndex: []int{0},
			FilterMode: "none",
		}),
		charts.WithGridOpts(grids(boxes)...),
	)
	xs, ys := axes(th)
	line.SetGlobalOptions(charts.WithXAxisOpts(xs[0], 0), charts.WithYAxisOpts(ys[0], 0))
	line.ExtendXAxis(xs[1:]...)
	line.ExtendYAxis(ys[1:]...)

	// Panel 1
	levels := levelLines(th, result.Levels)
	historyOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(len(history) == 1)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: th.HistoryColor, Width: th.HistoryWidth, Opacity: opts.Float(th.HistoryOpacity)}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: th.HistoryColor}),
	}
	if len(levels) > 0 {
		historyOpts = append(historyOpts, charts.WithSeriesOpts(func(s *charts.SingleSeries) {
			s.MarkLines = &opts.MarkLines{
				Data:          levels,
				MarkLineStyle: opts.MarkLineStyle{Symbol: []string{"none", "none"}},
			}
		}))
	}
	line.AddSeries(SeriesHistory, historyData(history), historyOpts...)

	line.AddSeries(SeriesEnsemble, forecastData(rows, func(f forecastRow) *float64 { return &f.Price }),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(len(rows) == 1)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: th.EnsembleColor, Width: th.EnsembleWidth}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: th.EnsembleColor}),
	)

	band := charts.NewCustom()
	band.AddSeries(SeriesCorridor, corridorData(fig.Corridor),
		charts.WithCustomChartOpts(opts.CustomChart{RenderItem: corridorRenderer(th.CorridorFill)}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: th.CorridorFill}),
	)

	// Panel 2
	consensus := charts.NewLine()
	modelSeries := []SeriesInfo{}
	if result.HasLSTM() {
		consensus.AddSeries(SeriesLSTM, forecastData(rows, func(f forecastRow) *float64 { return f.LSTM }),
			modelOpts(th.LSTMColor, th.ModelWidth, "dashed", len(rows))...)
		modelSeries = append(modelSeries, SeriesInfo{Name: SeriesLSTM, Kind: "line", Points: countDefined(rows, func(f forecastRow) *float64 { return f.LSTM })})
	}
	if result.HasARIMA() {
		consensus.AddSeries(SeriesARIMA, forecastData(rows, func(f forecastRow) *float64 { return f.ARIMA }),
			modelOpts(th.ARIMAColor, th.ModelWidth, "dotted", len(rows))...)
		modelSeries = append(modelSeries, SeriesInfo{Name: SeriesARIMA, Kind: "line", Points: countDefined(rows, func(f forecastRow) *float64 { return f.ARIMA })})
	}

	// Panel 3
	volData := volatilityData(fig.Volatility)
	pulse := charts.NewLine()
	pulse.AddSeries(SeriesVolatility, volData,
		charts.WithLineChartOpts(opts.LineChart{XAxisIndex: 2, YAxisIndex: 2, ShowSymbol: opts.Bool(len(volData) == 1)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: th.VolColor, Width: th.VolWidth}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: th.VolFill, Opacity: opts.Float(1)}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: th.VolColor}),
	)

	// Panel 4
	density := charts.NewBar()
	density.AddSeries(SeriesDensity, densityData(fig.Histogram),
		charts.WithBarChartOpts(opts.BarChart{XAxisIndex: 3, YAxisIndex: 3, BarCategoryGap: "0%", BarWidth: "90%"}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: th.HistColor, Opacity: opts.Float(th.HistOpacity)}),
	)

	line.Overlap(band, consensus, pulse, density)

	line.Accept(figureVisitor{
		titles:  titles(th, boxes, title, ticker),
		graphic: []interface{}{hudElement(th, hud), rangeSelector(th, boxes[0], presets)},
	})
	line.AddJSFuncStrs(rangeSelectorScript(th, presets))

	fig.Chart = line
	fig.Manifest = Manifest{
		Ticker:      ticker,
		Title:       title,
		GeneratedAt: r.now().UTC(),
		Version:     Version,
		Panels: []PanelInfo{
			{Title: ticker + " Strategic Forecast", Series: []SeriesInfo{
				{Name: SeriesHistory, Kind: "line", Points: len(history)},
				{Name: SeriesEnsemble, Kind: "line", Points: len(rows)},
				{Name: SeriesCorridor, Kind: "polygon", Points: len(fig.Corridor)},
			}},
			{Title: panelModels, Series: modelSeries},
			{Title: panelVolatility, Series: []SeriesInfo{{Name: SeriesVolatility, Kind: "area", Points: len(volData)}}},
			{Title: panelRisk, Series: []SeriesInfo{{Name: SeriesDensity, Kind: "histogram", Points: fig.Histogram.Total()}}},
		},
		ReferenceLines:   len(levels),
		CorridorVertices: len(fig.Corridor),
		HistogramSamples: len(fig.Histogram.Samples),
		HistogramBins:    len(fig.Histogram.Counts),
		HUD:              hud,
		Seed:             r.cfg.Seed,
		RangeSelector:    presets,
	}
	return fig, nil
}

// Build assembles a figure with the default configuration.
func Build(result *models.ForecastResult) (*Figure, error) {
	return defaultRenderer().Build(result)
}

// ════════════════════════════════════════════════════════════════════
// Layout
// ════════════════════════════════════════════════════════════════════

func grids(boxes [4]panelBox) []opts.Grid {
	out := make([]opts.Grid, len(boxes))
	for i, b := range boxes {
		out[i] = opts.Grid{
			Left:   pct(b.Left),
			Width:  pct(b.Width),
			Top:    px(b.Top),
			Height: px(b.Height),
		}
	}
	return out
}

// axes returns one x/y pair per panel; pair i lives in grid i.
func axes(th Theme) ([]opts.XAxis, []opts.YAxis) {
	label := &opts.AxisLabel{Color: th.TextColor}
	gridLine := &opts.LineStyle{Color: th.GridColor}

	xs := make([]opts.XAxis, 4)
	ys := make([]opts.YAxis, 4)
	for i := range xs {
		xs[i] = opts.XAxis{Type: "time", GridIndex: i, AxisLabel: label}
		ys[i] = opts.YAxis{
			Type:      "value",
			GridIndex: i,
			Scale:     opts.Bool(true),
			AxisLabel: label,
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: gridLine},
		}
	}
	xs[0].SplitLine = &opts.SplitLine{Show: opts.Bool(true), LineStyle: gridLine}
	xs[0].AxisLine = &opts.AxisLine{Show: opts.Bool(true), LineStyle: gridLine}
	xs[3].Type = "value"
	xs[3].Scale = opts.Bool(true)
	return xs, ys
}

// ════════════════════════════════════════════════════════════════════
// Series data
// ════════════════════════════════════════════════════════════════════

func historyData(history []utils.DatedValue) []opts.LineData {
	out := make([]opts.LineData, len(history))
	for i, p := range history {
		out[i] = opts.LineData{Value: []interface{}{utils.FormatChartTime(p.Time), p.Value}}
	}
	return out
}

// forecastData emits one point per forecast row; rows where pick
// returns nil become gaps.
func forecastData(rows []forecastRow, pick func(forecastRow) *float64) []opts.LineData {
	out := make([]opts.LineData, len(rows))
	for i, row := range rows {
		var v interface{} = missing
		if p := pick(row); p != nil {
			v = *p
		}
		out[i] = opts.LineData{Value: []interface{}{utils.FormatChartTime(row.Time), v}}
	}
	return out
}

func countDefined(rows []forecastRow, pick func(forecastRow) *float64) int {
	n := 0
	for _, row := range rows {
		if pick(row) != nil {
			n++
		}
	}
	return n
}

func corridorData(poly []Vertex) []opts.CustomData {
	out := make([]opts.CustomData, len(poly))
	for i, v := range poly {
		out[i] = opts.CustomData{Value: []interface{}{utils.FormatChartTime(v.Time), v.Value}}
	}
	return out
}

// volatilityData keeps only defined points.
func volatilityData(vol []VolPoint) []opts.LineData {
	var out []opts.LineData
	for _, v := range vol {
		if v.Defined {
			out = append(out, opts.LineData{Value: []interface{}{utils.FormatChartTime(v.Time), v.Value}})
		}
	}
	return out
}

func densityData(h Histogram) []opts.BarData {
	centers := h.Centers()
	out := make([]opts.BarData, len(centers))
	for i, c := range centers {
		out[i] = opts.BarData{Value: []interface{}{c, h.Counts[i]}}
	}
	return out
}

func modelOpts(color string, width float32, dash string, n int) []charts.SeriesOpts {
	return []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{XAxisIndex: 1, YAxisIndex: 1, ShowSymbol: opts.Bool(n == 1)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: width, Type: dash}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
	}
}

// ════════════════════════════════════════════════════════════════════
// Reference lines
// ════════════════════════════════════════════════════════════════════

// levelLine is a horizontal mark line with its own style. The library's
// y-axis mark line item carries no per-line style.
type levelLine struct {
	Name      string          `json:"name"`
	YAxis     float64         `json:"yAxis"`
	LineStyle *opts.LineStyle `json:"lineStyle,omitempty"`
	Label     levelLabel      `json:"label"`
}

type levelLabel struct {
	Show      bool   `json:"show"`
	Formatter string `json:"formatter"`
	Position  string `json:"position"`
	Color     string `json:"color"`
}

func levelLines(th Theme, lv models.Levels) []interface{} {
	out := make([]interface{}, 0, len(lv.Resistance)+len(lv.Support))
	add := func(name string, v float64, color string) {
		out = append(out, levelLine{
			Name:      fmt.Sprintf("%s %.2f", name, v),
			YAxis:     v,
			LineStyle: &opts.LineStyle{Color: color, Type: "dashed", Opacity: opts.Float(th.LevelOpacity)},
			Label:     levelLabel{Show: true, Formatter: name, Position: "end", Color: color},
		})
	}
	for _, v := range lv.Resistance {
		add("RES", v, th.ResistanceColor)
	}
	for _, v := range lv.Support {
		add("SUPP", v, th.SupportColor)
	}
	return out
}

// corridorRenderer draws every vertex of the series as one filled
// polygon. Hover is disabled on the shape.
func corridorRenderer(fill string) types.FuncStr {
	return opts.FuncOpts(fmt.Sprintf(`function (params, api) {
	if (params.dataIndexInside !== 0) { return null; }
	var points = [];
	for (var i = 0; i < params.dataInsideLength; i++) {
		points.push(api.coord([api.value(0, i), api.value(1, i)]));
	}
	return { type: 'polygon', silent: true, shape: { points: points }, style: { fill: %s } };
}`, jsString(fill)))
}

// jsString quotes s as a single-quoted JavaScript literal. Function
// bodies pass through the option JSON verbatim, so characters that JSON
// or the literal would escape are dropped rather than escaped.
func jsString(s string) string {
	return "'" + jsUnsafe.Replace(s) + "'"
}

var jsUnsafe = strings.NewReplacer(`\`, "", `'`, "", `"`, "", "\n", "", "<", "", ">", "")

// ════════════════════════════════════════════════════════════════════
// Range presets
// ════════════════════════════════════════════════════════════════════

// RangePreset is one button of the panel-1 range selector.
type RangePreset struct {
	Key   string `json:"key"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// rangePresets returns the 1M, 6M, YTD, 1Y and MAX windows ending at last.
func rangePresets(first, last time.Time) []RangePreset {
	starts := []struct {
		key string
		at  time.Time
	}{
		{"1M", utils.AddMonths(last, -1)},
		{"6M", utils.AddMonths(last, -6)},
		{"YTD", utils.StartOfYear(last)},
		{"1Y", utils.AddMonths(last, -12)},
		{"MAX", first},
	}
	end := utils.FormatChartTime(last)
	out := make([]RangePreset, len(starts))
	for i, s := range starts {
		at := s.at
		if at.Before(first) {
			at = first
		}
		out[i] = RangePreset{Key: s.key, Start: utils.FormatChartTime(at), End: end}
	}
	return out
}
