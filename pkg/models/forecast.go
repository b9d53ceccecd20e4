// Package models defines the data structures exchanged between the upstream
// forecasting engine and the dashboard renderer.
package models

// ForecastResult is the complete output of an ensemble forecasting run.
// The renderer treats it as read-only.
type ForecastResult struct {
	Ticker         string             `json:"ticker"          yaml:"ticker"          validate:"required"`
	Forecast       []ForecastPoint    `json:"forecast"        yaml:"forecast"        validate:"required,min=1,dive"`
	HistoricalData map[string]float64 `json:"historical_data" yaml:"historical_data" validate:"required,min=1"`
	RiskMetrics    RiskMetrics        `json:"risk_metrics"    yaml:"risk_metrics"`
	Levels         Levels             `json:"levels"          yaml:"levels"`
}

// ForecastPoint is a single forecast step. LSTM and ARIMA are the per-model
// estimates and may be null.
type ForecastPoint struct {
	Date  string   `json:"date"            yaml:"date"  validate:"required"`
	Price float64  `json:"price"           yaml:"price"`
	Upper float64  `json:"upper"           yaml:"upper"`
	Lower float64  `json:"lower"           yaml:"lower"`
	LSTM  *float64 `json:"lstm,omitempty"  yaml:"lstm,omitempty"`
	ARIMA *float64 `json:"arima,omitempty" yaml:"arima,omitempty"`
}

// RiskMetrics holds pre-computed risk statistics. Pointers distinguish a
// missing metric from a zero one.
type RiskMetrics struct {
	Volatility  *float64 `json:"volatility"   yaml:"volatility"   validate:"required"` // annualised, fraction (0.2 = 20%)
	SharpeRatio *float64 `json:"sharpe_ratio" yaml:"sharpe_ratio" validate:"required"`
	VaR95       *float64 `json:"var_95"       yaml:"var_95"       validate:"required"` // fraction, usually negative
}

// Levels holds technical support and resistance prices.
type Levels struct {
	Resistance []float64 `json:"resistance" yaml:"resistance"`
	Support    []float64 `json:"support"    yaml:"support"`
}

// Float returns a pointer to v. Handy for building optional model estimates.
func Float(v float64) *float64 {
	return &v
}

// HasLSTM reports whether the LSTM overlay should be drawn. Only the first
// forecast point is consulted.
func (r *ForecastResult) HasLSTM() bool {
	return len(r.Forecast) > 0 && r.Forecast[0].LSTM != nil
}

// HasARIMA reports whether the ARIMA overlay should be drawn. Only the first
// forecast point is consulted.
func (r *ForecastResult) HasARIMA() bool {
	return len(r.Forecast) > 0 && r.Forecast[0].ARIMA != nil
}
