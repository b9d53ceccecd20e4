package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/forecastviz/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleHistory(n int) map[string]float64 {
	out := make(map[string]float64, n)
	for i := 0; i < n; i++ {
		out[day0.AddDate(0, 0, i).Format("2006-01-02")] = 100 + 3*math.Sin(float64(i)) + 0.5*float64(i)
	}
	return out
}

// sampleResult is the three-step ABC forecast with 30 days of history.
func sampleResult() *models.ForecastResult {
	start := day0.AddDate(0, 0, 30)
	points := make([]models.ForecastPoint, 3)
	for i := range points {
		p := 10 + float64(i)
		points[i] = models.ForecastPoint{
			Date:  start.AddDate(0, 0, i).Format("2006-01-02"),
			Price: p,
			Upper: p + 1,
			Lower: p - 1,
		}
	}
	return &models.ForecastResult{
		Ticker:         "ABC",
		Forecast:       points,
		HistoricalData: sampleHistory(30),
		RiskMetrics: models.RiskMetrics{
			Volatility:  models.Float(0.2),
			SharpeRatio: models.Float(1.5),
			VaR95:       models.Float(-0.05),
		},
		Levels: models.Levels{Resistance: []float64{15}, Support: []float64{8}},
	}
}

func seeded(t *testing.T, seed uint64, options ...Option) *Renderer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = &seed
	r, err := New(cfg, options...)
	require.NoError(t, err)
	return r
}

func seriesNames(fig *Figure) []string {
	out := make([]string, len(fig.Chart.MultiSeries))
	for i, s := range fig.Chart.MultiSeries {
		out[i] = s.Name
	}
	return out
}

// option returns the chart option as plain JSON values.
func option(t *testing.T, fig *Figure) map[string]any {
	t.Helper()
	fig.Chart.Validate()
	data, err := json.Marshal(fig.Chart.JSON())
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

// sampleStd is the n-1 standard deviation, computed longhand.
func sampleStd(xs []float64) float64 {
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// ════════════════════════════════════════════════════════════════════
// Render
// ════════════════════════════════════════════════════════════════════

func TestRenderABCScenario(t *testing.T) {
	out := filepath.Join(t.TempDir(), "abc.html")

	path, err := seeded(t, 7).Render(context.Background(), sampleResult(), out)
	require.NoError(t, err)
	assert.Equal(t, out, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	doc, err := Inspect(path)
	require.NoError(t, err)
	m := doc.Manifest

	assert.Equal(t, "INSTITUTIONAL INTELLIGENCE HUB: ABC", doc.Title)
	assert.Equal(t, "ABC", m.Ticker)
	require.Len(t, m.Panels, 4)
	assert.Equal(t, []string{SeriesHistory, SeriesEnsemble, SeriesCorridor}, m.Panel(0).SeriesNames())
	assert.Equal(t, 2, m.ReferenceLines)
	assert.Empty(t, m.Panel(1).Series)
	assert.Equal(t, 1000, m.HistogramSamples)
	assert.Equal(t, 1000, m.Panel(3).Series[0].Points)

	hud := strings.Join(m.HUD, "\n")
	assert.Contains(t, hud, "1.50")
	assert.Contains(t, hud, "20.00%")
	assert.Contains(t, hud, "-5.00%")

	html, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(html), "SHARPE: 1.50")
	assert.Contains(t, string(html), "selectForecastRange")
	assert.False(t, doc.RuntimeInline)
	require.NotEmpty(t, doc.RuntimeSources)
	assert.True(t, strings.HasSuffix(doc.RuntimeSources[0], "echarts.min.js"))
	assert.Equal(t, DefaultChartID, doc.ChartID)
}

func TestRenderReturnsAbsolutePath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path, err := Render(sampleResult(), "relative.html")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "relative.html", filepath.Base(path))
	assert.FileExists(t, path)

	path, err = Render(sampleResult(), "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, DefaultOutputFile, filepath.Base(path))

	abs := filepath.Join(dir, "nested.html")
	path, err = Render(sampleResult(), abs)
	require.NoError(t, err)
	assert.Equal(t, abs, path)
}

func TestRenderOverwritesExisting(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dash.html")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))

	_, err := seeded(t, 1).Render(context.Background(), sampleResult(), out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotEqual(t, "stale", string(data))

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestRenderUnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := seeded(t, 1).Render(context.Background(), sampleResult(), filepath.Join(blocker, "out.html"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWrite), "got %v", err)
}

func TestRenderCancelledContextWritesNothing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dash.html")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := seeded(t, 1).Render(ctx, sampleResult(), out)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, out)
}

func TestRenderDoesNotMutateInput(t *testing.T) {
	result := sampleResult()
	// Reverse the forecast so rendering has to sort it.
	result.Forecast[0], result.Forecast[2] = result.Forecast[2], result.Forecast[0]
	result.Forecast[1].LSTM = models.Float(11.5)

	before, err := json.Marshal(result)
	require.NoError(t, err)

	_, err = seeded(t, 3).Render(context.Background(), result, filepath.Join(t.TempDir(), "d.html"))
	require.NoError(t, err)

	after, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestRenderConcurrentDistinctPaths(t *testing.T) {
	r := seeded(t, 9)
	dir := t.TempDir()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Render(context.Background(), sampleResult(), filepath.Join(dir, "d"+string(rune('a'+i))+".html"))
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []error
}

func (o *recordingObserver) ObserveRender(_ string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, err)
}

func TestRenderReportsToObserver(t *testing.T) {
	obs := &recordingObserver{}
	r := seeded(t, 1, WithObserver(obs))

	_, err := r.Render(context.Background(), sampleResult(), filepath.Join(t.TempDir(), "ok.html"))
	require.NoError(t, err)
	_, err = r.Render(context.Background(), &models.ForecastResult{Ticker: "X"}, filepath.Join(t.TempDir(), "bad.html"))
	require.Error(t, err)

	require.Len(t, obs.calls, 2)
	assert.NoError(t, obs.calls[0])
	assert.ErrorIs(t, obs.calls[1], ErrInvalidResult)
}

func TestRenderInlinesRuntimeBundle(t *testing.T) {
	dir := t.TempDir()
	bundle := filepath.Join(dir, "echarts.min.js")
	require.NoError(t, os.WriteFile(bundle, []byte("var echarts = { init: function () {} };"), 0o644))

	cfg := DefaultConfig()
	cfg.RuntimeBundle = bundle
	r, err := New(cfg)
	require.NoError(t, err)

	path, err := r.Render(context.Background(), sampleResult(), filepath.Join(dir, "offline.html"))
	require.NoError(t, err)

	doc, err := Inspect(path)
	require.NoError(t, err)
	assert.True(t, doc.RuntimeInline)
	assert.Empty(t, doc.RuntimeSources)
}

func TestRenderStampsManifestFromClock(t *testing.T) {
	at := time.Date(2026, 3, 2, 14, 5, 0, 0, time.FixedZone("IST", 19800))
	r := seeded(t, 3, WithClock(func() time.Time { return at }))

	path, err := r.Render(context.Background(), sampleResult(), filepath.Join(t.TempDir(), "clock.html"))
	require.NoError(t, err)

	doc, err := Inspect(path)
	require.NoError(t, err)
	assert.True(t, doc.Manifest.GeneratedAt.Equal(at))
	assert.Equal(t, time.UTC, doc.Manifest.GeneratedAt.Location())
}

func TestNewRejectsMissingRuntimeBundle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RuntimeBundle = filepath.Join(t.TempDir(), "missing.js")
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNewSanitisesChartID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChartID = "my chart-1"
	r, err := New(cfg)
	require.NoError(t, err)

	path, err := r.Render(context.Background(), sampleResult(), filepath.Join(t.TempDir(), "id.html"))
	require.NoError(t, err)
	doc, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, "my_chart_1", doc.ChartID)
}

// ════════════════════════════════════════════════════════════════════
// Validation
// ════════════════════════════════════════════════════════════════════

func TestInvalidResults(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *models.ForecastResult)
	}{
		{"empty forecast", func(r *models.ForecastResult) { r.Forecast = nil }},
		{"empty history", func(r *models.ForecastResult) { r.HistoricalData = map[string]float64{} }},
		{"bad history date", func(r *models.ForecastResult) { r.HistoricalData["someday"] = 1 }},
		{"bad forecast date", func(r *models.ForecastResult) { r.Forecast[1].Date = "tomorrow" }},
		{"nan price", func(r *models.ForecastResult) { r.Forecast[0].Price = math.NaN() }},
		{"inf history", func(r *models.ForecastResult) { r.HistoricalData["2024-01-05"] = math.Inf(1) }},
		{"missing volatility", func(r *models.ForecastResult) { r.RiskMetrics.Volatility = nil }},
		{"missing sharpe", func(r *models.ForecastResult) { r.RiskMetrics.SharpeRatio = nil }},
		{"missing var", func(r *models.ForecastResult) { r.RiskMetrics.VaR95 = nil }},
		{"negative volatility", func(r *models.ForecastResult) { r.RiskMetrics.Volatility = models.Float(-0.1) }},
		{"nan level", func(r *models.ForecastResult) { r.Levels.Support = []float64{math.NaN()} }},
		{"nan lstm", func(r *models.ForecastResult) { r.Forecast[0].LSTM = models.Float(math.NaN()) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sampleResult()
			tt.mutate(result)
			out := filepath.Join(t.TempDir(), "x.html")

			_, err := seeded(t, 1).Render(context.Background(), result, out)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidResult)
			assert.NoFileExists(t, out)
		})
	}

	_, err := Build(nil)
	assert.ErrorIs(t, err, ErrInvalidResult)
}

// ════════════════════════════════════════════════════════════════════
// Figure contents
// ════════════════════════════════════════════════════════════════════

func TestModelOverlaysFollowFirstPoint(t *testing.T) {
	tests := []struct {
		name      string
		lstm      []*float64
		arima     []*float64
		wantNames []string
	}{
		{"none", []*float64{nil, nil, nil}, []*float64{nil, nil, nil}, nil},
		{"lstm only", []*float64{models.Float(10), models.Float(11), models.Float(12)}, []*float64{nil, nil, nil}, []string{SeriesLSTM}},
		{"both", []*float64{models.Float(10), nil, models.Float(12)}, []*float64{models.Float(9.8), models.Float(10.9), nil}, []string{SeriesLSTM, SeriesARIMA}},
		{"late values ignored", []*float64{nil, models.Float(11), models.Float(12)}, []*float64{nil, models.Float(11), nil}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sampleResult()
			for i := range result.Forecast {
				result.Forecast[i].LSTM = tt.lstm[i]
				result.Forecast[i].ARIMA = tt.arima[i]
			}
			fig, err := seeded(t, 1).Build(result)
			require.NoError(t, err)

			var got []string
			for _, s := range fig.Chart.MultiSeries {
				if s.XAxisIndex == 1 {
					got = append(got, s.Name)
				}
			}
			assert.Equal(t, tt.wantNames, got)
			assert.Len(t, fig.Manifest.Panel(1).Series, len(tt.wantNames))
		})
	}
}

func TestModelOverlayGapsAreMissing(t *testing.T) {
	result := sampleResult()
	result.Forecast[0].LSTM = models.Float(10)
	result.Forecast[2].LSTM = models.Float(12)

	fig, err := seeded(t, 1).Build(result)
	require.NoError(t, err)
	assert.Equal(t, 2, fig.Manifest.Panel(1).Series[0].Points)

	opt := option(t, fig)
	series := opt["series"].([]any)
	var lstm map[string]any
	for _, s := range series {
		if m := s.(map[string]any); m["name"] == SeriesLSTM {
			lstm = m
		}
	}
	require.NotNil(t, lstm)
	data := lstm["data"].([]any)
	require.Len(t, data, 3)
	gap := data[1].(map[string]any)["value"].([]any)
	assert.Equal(t, missing, gap[1])
	assert.Equal(t, "dashed", lstm["lineStyle"].(map[string]any)["type"])
}

func TestSeriesLayout(t *testing.T) {
	result := sampleResult()
	result.Forecast[0].LSTM = models.Float(10)
	result.Forecast[0].ARIMA = models.Float(10)

	fig, err := seeded(t, 1).Build(result)
	require.NoError(t, err)

	assert.Equal(t, []string{
		SeriesHistory, SeriesEnsemble, SeriesCorridor,
		SeriesLSTM, SeriesARIMA, SeriesVolatility, SeriesDensity,
	}, seriesNames(fig))

	wantAxis := []int{0, 0, 0, 1, 1, 2, 3}
	for i, s := range fig.Chart.MultiSeries {
		assert.Equal(t, wantAxis[i], s.XAxisIndex, s.Name)
		assert.Equal(t, wantAxis[i], s.YAxisIndex, s.Name)
	}
	assert.Equal(t, "custom", fig.Chart.MultiSeries[2].Type)
	assert.Equal(t, "bar", fig.Chart.MultiSeries[6].Type)
	assert.NotNil(t, fig.Chart.MultiSeries[5].AreaStyle)

	opt := option(t, fig)
	assert.Len(t, opt["grid"], 4)
	assert.Len(t, opt["xAxis"], 4)
	assert.Len(t, opt["yAxis"], 4)
	assert.Equal(t, "#0A0A0F", opt["backgroundColor"])

	xs := opt["xAxis"].([]any)
	assert.Equal(t, "time", xs[0].(map[string]any)["type"])
	assert.Equal(t, "value", xs[3].(map[string]any)["type"])
	assert.EqualValues(t, 3, xs[3].(map[string]any)["gridIndex"])
}

func TestReferenceLines(t *testing.T) {
	tests := []struct {
		name   string
		levels models.Levels
		want   int
	}{
		{"none", models.Levels{}, 0},
		{"resistance only", models.Levels{Resistance: []float64{15, 16}}, 2},
		{"both", models.Levels{Resistance: []float64{15, 16, 17}, Support: []float64{8, 7}}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sampleResult()
			result.Levels = tt.levels
			fig, err := seeded(t, 1).Build(result)
			require.NoError(t, err)

			assert.Equal(t, tt.want, fig.Manifest.ReferenceLines)
			ml := fig.Chart.MultiSeries[0].MarkLines
			if tt.want == 0 {
				assert.Nil(t, ml)
				return
			}
			require.NotNil(t, ml)
			assert.Len(t, ml.Data, tt.want)
		})
	}
}

func TestReferenceLineStyle(t *testing.T) {
	fig, err := seeded(t, 1).Build(sampleResult())
	require.NoError(t, err)

	lines := fig.Chart.MultiSeries[0].MarkLines.Data
	require.Len(t, lines, 2)
	res, sup := lines[0].(levelLine), lines[1].(levelLine)
	assert.Equal(t, 15.0, res.YAxis)
	assert.Equal(t, "RES", res.Label.Formatter)
	assert.Equal(t, "#FF3D00", res.LineStyle.Color)
	assert.Equal(t, "dashed", res.LineStyle.Type)
	assert.Equal(t, 8.0, sup.YAxis)
	assert.Equal(t, "SUPP", sup.Label.Formatter)
	assert.Equal(t, "#00C853", sup.LineStyle.Color)
}

func TestCorridorPolygon(t *testing.T) {
	result := sampleResult()
	fig, err := seeded(t, 1).Build(result)
	require.NoError(t, err)

	n := len(result.Forecast)
	require.Len(t, fig.Corridor, 2*n)
	assert.Equal(t, 2*n, fig.Manifest.CorridorVertices)
	for i := 0; i < n; i++ {
		assert.Equal(t, result.Forecast[i].Upper, fig.Corridor[i].Value)
		assert.Equal(t, result.Forecast[n-1-i].Lower, fig.Corridor[n+i].Value)
	}
	assert.True(t, fig.Corridor[0].Time.Equal(fig.Corridor[2*n-1].Time))

	render := string(fig.Chart.MultiSeries[2].RenderItem)
	assert.Contains(t, render, "polygon")
	assert.NotContains(t, render, `"`)
}

func TestForecastSortedChronologically(t *testing.T) {
	result := sampleResult()
	result.Forecast[0], result.Forecast[2] = result.Forecast[2], result.Forecast[0]

	fig, err := seeded(t, 1).Build(result)
	require.NoError(t, err)
	assert.Equal(t, 11.0, fig.Corridor[0].Value)
	assert.Equal(t, 13.0, fig.Corridor[2].Value)
}

func TestRollingVolatility(t *testing.T) {
	result := sampleResult()
	fig, err := seeded(t, 1).Build(result)
	require.NoError(t, err)

	prices := make([]float64, len(fig.History))
	for i, p := range fig.History {
		prices[i] = p.Value
	}
	returns := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		returns[i] = prices[i]/prices[i-1] - 1
	}

	require.Len(t, fig.Volatility, 30)
	defined := 0
	for i, v := range fig.Volatility {
		if i < VolWindow {
			assert.False(t, v.Defined, "index %d", i)
			continue
		}
		require.True(t, v.Defined, "index %d", i)
		want := sampleStd(returns[i-VolWindow+1:i+1]) * math.Sqrt(252)
		assert.InDelta(t, want, v.Value, 1e-12, "index %d", i)
		defined++
	}
	assert.Equal(t, 10, defined)
	assert.Equal(t, 10, fig.Manifest.Panel(2).Series[0].Points)
}

func TestSingleHistoryPoint(t *testing.T) {
	result := sampleResult()
	result.HistoricalData = map[string]float64{"2024-01-30": 100}

	fig, err := seeded(t, 1).Build(result)
	require.NoError(t, err)
	assert.Equal(t, 0, fig.Manifest.Panel(2).Series[0].Points)

	_, err = seeded(t, 1).Render(context.Background(), result, filepath.Join(t.TempDir(), "one.html"))
	assert.NoError(t, err)
}

func TestZeroPriceLeavesWindowUndefined(t *testing.T) {
	result := sampleResult()
	result.HistoricalData = sampleHistory(25)
	result.HistoricalData["2024-01-20"] = 0

	fig, err := seeded(t, 1).Build(result)
	require.NoError(t, err)
	// The return after the zero price is undefined, poisoning every window
	// that still contains it.
	for _, v := range fig.Volatility {
		assert.False(t, v.Defined)
	}
}

// ════════════════════════════════════════════════════════════════════
// Histogram
// ════════════════════════════════════════════════════════════════════

func TestHistogramShape(t *testing.T) {
	fig, err := seeded(t, 11).Build(sampleResult())
	require.NoError(t, err)

	h := fig.Histogram
	assert.Len(t, h.Samples, HistogramSamples)
	assert.Len(t, h.Counts, HistogramBins)
	assert.Len(t, h.Edges, HistogramBins+1)
	assert.Equal(t, HistogramSamples, h.Total())
	for i := 1; i < len(h.Edges); i++ {
		assert.Greater(t, h.Edges[i], h.Edges[i-1])
	}
	// Normal(0, 2) sample: the spread should be near 2.
	assert.InDelta(t, 2.0, sampleStd(h.Samples), 0.3)
}

func TestHistogramSeed(t *testing.T) {
	a, err := seeded(t, 42).Build(sampleResult())
	require.NoError(t, err)
	b, err := seeded(t, 42).Build(sampleResult())
	require.NoError(t, err)
	c, err := seeded(t, 43).Build(sampleResult())
	require.NoError(t, err)

	assert.Equal(t, a.Histogram, b.Histogram)
	assert.NotEqual(t, a.Histogram.Samples, c.Histogram.Samples)
	require.NotNil(t, a.Manifest.Seed)
	assert.Equal(t, uint64(42), *a.Manifest.Seed)
}

func TestHistogramZeroVolatility(t *testing.T) {
	result := sampleResult()
	result.RiskMetrics.Volatility = models.Float(0)

	fig, err := seeded(t, 1).Build(result)
	require.NoError(t, err)
	assert.Equal(t, HistogramSamples, fig.Histogram.Total())
	assert.Contains(t, fig.Manifest.HUD, "VOLATILITY: 0.00%")
}

// ════════════════════════════════════════════════════════════════════
// Overlay
// ════════════════════════════════════════════════════════════════════

func TestTitlesAndGraphic(t *testing.T) {
	fig, err := seeded(t, 1).Build(sampleResult())
	require.NoError(t, err)
	opt := option(t, fig)

	titles := opt["title"].([]any)
	require.Len(t, titles, 5)
	main := titles[0].(map[string]any)
	assert.Equal(t, "INSTITUTIONAL INTELLIGENCE HUB: ABC", main["text"])
	assert.Equal(t, "Arial Black", main["textStyle"].(map[string]any)["fontFamily"])
	assert.Equal(t, "ABC Strategic Forecast", titles[1].(map[string]any)["text"])
	assert.Equal(t, "Risk Distribution & VaR Analysis", titles[4].(map[string]any)["text"])

	graphic := opt["graphic"].([]any)
	require.Len(t, graphic, 2)
	hud := graphic[0].(map[string]any)
	assert.Equal(t, "metric-hud", hud["id"])
	text := hud["style"].(map[string]any)["text"].(string)
	assert.Equal(t, "SHARPE: 1.50\nVOLATILITY: 20.00%\nVaR (95%): -5.00%", text)

	selector := graphic[1].(map[string]any)
	assert.Len(t, selector["children"], 5)
}

func TestRangePresets(t *testing.T) {
	first := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	got := rangePresets(first, last)
	want := map[string]string{
		"1M":  "2024-02-29",
		"6M":  "2023-09-30",
		"YTD": "2024-01-01",
		"1Y":  "2023-03-31",
		"MAX": "2023-01-01",
	}
	require.Len(t, got, 5)
	for _, p := range got {
		assert.Equal(t, want[p.Key], p.Start, p.Key)
		assert.Equal(t, "2024-03-31", p.End)
	}

	// Short histories clamp to the first date.
	for _, p := range rangePresets(last.AddDate(0, 0, -3), last) {
		assert.Equal(t, "2024-03-28", p.Start, p.Key)
	}
}

func TestRangeSelectorScript(t *testing.T) {
	script := string(rangeSelectorScript(DefaultTheme(), rangePresets(day0, day0.AddDate(1, 0, 0))))
	assert.Contains(t, script, "%MY_ECHARTS%")
	assert.Contains(t, script, "'1M', '6M', 'YTD', '1Y', 'MAX'")
	assert.Contains(t, script, "'#0066FF'")
}

func TestJSStringDropsQuotes(t *testing.T) {
	assert.Equal(t, "'rgba(0,102,255,0.15)'", jsString("rgba(0,102,255,0.15)"))
	assert.Equal(t, "'abc'", jsString(`a'b"c`))
}
