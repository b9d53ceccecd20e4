package dashboard

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/seenimoa/forecastviz/pkg/models"
	"github.com/seenimoa/forecastviz/pkg/utils"
)

const (
	// VolWindow is the rolling window, in returns, of the volatility panel.
	VolWindow = 20
	// TradingDays annualises daily volatility.
	TradingDays = 252
	// HistogramSamples is the size of the synthetic error sample.
	HistogramSamples = 1000
	// HistogramBins is the bin count of the risk distribution panel.
	HistogramBins = 40
	// sigmaScale maps annualised volatility to the sample's standard deviation.
	sigmaScale = 10
)

// ════════════════════════════════════════════════════════════════════
// Derived series: computed into fresh values, input left untouched
// ════════════════════════════════════════════════════════════════════

// forecastRow is a forecast point with its parsed date.
type forecastRow struct {
	Time  time.Time
	Price float64
	Upper float64
	Lower float64
	LSTM  *float64
	ARIMA *float64
}

// Vertex is one corner of the confidence corridor polygon.
type Vertex struct {
	Time  time.Time
	Value float64
}

// VolPoint is one point of the rolling volatility series. Defined is false
// while the rolling window is incomplete.
type VolPoint struct {
	Time    time.Time
	Value   float64
	Defined bool
}

// Histogram is the binned synthetic error sample.
type Histogram struct {
	Samples []float64 // sorted
	Edges   []float64 // len(Counts)+1
	Counts  []float64
}

// Centers returns the midpoint of each bin.
func (h Histogram) Centers() []float64 {
	out := make([]float64, len(h.Counts))
	for i := range out {
		out[i] = (h.Edges[i] + h.Edges[i+1]) / 2
	}
	return out
}

// Total returns the number of binned samples.
func (h Histogram) Total() int {
	return int(floats.Sum(h.Counts))
}

// riskValues are the dereferenced, checked risk metrics.
type riskValues struct {
	Volatility float64
	Sharpe     float64
	VaR95      float64
}

// checkResult validates the shape of a result and returns its parsed,
// chronologically ordered series. Every failure wraps ErrInvalidResult.
func checkResult(r *models.ForecastResult) ([]utils.DatedValue, []forecastRow, riskValues, error) {
	if r == nil {
		return nil, nil, riskValues{}, fmt.Errorf("%w: result is nil", ErrInvalidResult)
	}
	if len(r.Forecast) == 0 {
		return nil, nil, riskValues{}, fmt.Errorf("%w: forecast is empty", ErrInvalidResult)
	}
	if len(r.HistoricalData) == 0 {
		return nil, nil, riskValues{}, fmt.Errorf("%w: historical_data is empty", ErrInvalidResult)
	}

	history, err := utils.SortedSeries(r.HistoricalData)
	if err != nil {
		return nil, nil, riskValues{}, fmt.Errorf("%w: historical_data: %v", ErrInvalidResult, err)
	}
	for _, p := range history {
		if !finite(p.Value) {
			return nil, nil, riskValues{}, fmt.Errorf("%w: historical price on %s is not finite",
				ErrInvalidResult, p.Time.Format("2006-01-02"))
		}
	}

	rows := make([]forecastRow, len(r.Forecast))
	for i, p := range r.Forecast {
		t, err := utils.ParseDate(p.Date)
		if err != nil {
			return nil, nil, riskValues{}, fmt.Errorf("%w: forecast[%d].date: %v", ErrInvalidResult, i, err)
		}
		if !finite(p.Price) || !finite(p.Upper) || !finite(p.Lower) {
			return nil, nil, riskValues{}, fmt.Errorf("%w: forecast[%d] price/upper/lower must be finite", ErrInvalidResult, i)
		}
		if (p.LSTM != nil && !finite(*p.LSTM)) || (p.ARIMA != nil && !finite(*p.ARIMA)) {
			return nil, nil, riskValues{}, fmt.Errorf("%w: forecast[%d] model estimate is not finite", ErrInvalidResult, i)
		}
		rows[i] = forecastRow{Time: t, Price: p.Price, Upper: p.Upper, Lower: p.Lower, LSTM: p.LSTM, ARIMA: p.ARIMA}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })

	rm := r.RiskMetrics
	switch {
	case rm.Volatility == nil:
		return nil, nil, riskValues{}, fmt.Errorf("%w: risk_metrics.volatility is missing", ErrInvalidResult)
	case rm.SharpeRatio == nil:
		return nil, nil, riskValues{}, fmt.Errorf("%w: risk_metrics.sharpe_ratio is missing", ErrInvalidResult)
	case rm.VaR95 == nil:
		return nil, nil, riskValues{}, fmt.Errorf("%w: risk_metrics.var_95 is missing", ErrInvalidResult)
	}
	risk := riskValues{Volatility: *rm.Volatility, Sharpe: *rm.SharpeRatio, VaR95: *rm.VaR95}
	if !finite(risk.Volatility) || !finite(risk.Sharpe) || !finite(risk.VaR95) {
		return nil, nil, riskValues{}, fmt.Errorf("%w: risk_metrics must be finite", ErrInvalidResult)
	}
	if risk.Volatility < 0 {
		return nil, nil, riskValues{}, fmt.Errorf("%w: risk_metrics.volatility %.4f is negative", ErrInvalidResult, risk.Volatility)
	}

	for _, lv := range [][]float64{r.Levels.Resistance, r.Levels.Support} {
		for _, v := range lv {
			if !finite(v) {
				return nil, nil, riskValues{}, fmt.Errorf("%w: levels must be finite", ErrInvalidResult)
			}
		}
	}

	return history, rows, risk, nil
}

// corridor returns the confidence band as a closed polygon: the upper
// bound forward in time, then the lower bound in reverse. It always has
// 2·len(rows) vertices.
func corridor(rows []forecastRow) []Vertex {
	out := make([]Vertex, 0, 2*len(rows))
	for _, r := range rows {
		out = append(out, Vertex{Time: r.Time, Value: r.Upper})
	}
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, Vertex{Time: rows[i].Time, Value: rows[i].Lower})
	}
	return out
}

// pctChange returns simple returns aligned to prices: out[0] is NaN and
// out[i] = p[i]/p[i-1] - 1. A zero previous price yields NaN.
func pctChange(prices []utils.DatedValue) []float64 {
	out := make([]float64, len(prices))
	for i := range prices {
		if i == 0 || prices[i-1].Value == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (prices[i].Value - prices[i-1].Value) / prices[i-1].Value
	}
	return out
}

// rollingVolatility computes the annualised sample standard deviation of
// returns over a trailing window. A point is defined only when its whole
// window holds real returns, so the first window points (the first price
// has no return) are undefined.
func rollingVolatility(prices []utils.DatedValue, window int) []VolPoint {
	returns := pctChange(prices)
	annualise := math.Sqrt(TradingDays)

	out := make([]VolPoint, len(prices))
	for i := range prices {
		out[i] = VolPoint{Time: prices[i].Time, Value: math.NaN()}
		if i+1 < window {
			continue
		}
		w := returns[i+1-window : i+1]
		if !allFinite(w) {
			continue
		}
		out[i].Value = stat.StdDev(w, nil) * annualise
		out[i].Defined = true
	}
	return out
}

// riskSample draws n values from Normal(0, sigma) and bins them. A nil
// seed draws from the global source.
func riskSample(sigma float64, n, bins int, seed *uint64) Histogram {
	dist := distuv.Normal{Mu: 0, Sigma: sigma}
	if seed != nil {
		dist.Src = rand.NewPCG(*seed, *seed)
	}

	samples := make([]float64, n)
	for i := range samples {
		samples[i] = dist.Rand()
	}
	sort.Float64s(samples)

	lo, hi := samples[0], samples[n-1]
	if hi-lo < 1e-12 {
		lo, hi = lo-0.5, hi+0.5
	}
	edges := floats.Span(make([]float64, bins+1), lo, hi)
	// stat.Histogram needs the top edge strictly above the maximum.
	edges[bins] = math.Nextafter(hi, math.Inf(1))

	return Histogram{
		Samples: samples,
		Edges:   edges,
		Counts:  stat.Histogram(nil, edges, samples, nil),
	}
}

// latest returns the most recent timestamp across history and forecast.
func latest(history []utils.DatedValue, rows []forecastRow) time.Time {
	var t time.Time
	if n := len(history); n > 0 {
		t = history[n-1].Time
	}
	if n := len(rows); n > 0 && rows[n-1].Time.After(t) {
		t = rows[n-1].Time
	}
	return t
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if !finite(x) {
			return false
		}
	}
	return true
}
