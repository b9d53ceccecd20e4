package dashboard

import (
	"fmt"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/seenimoa/forecastviz/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Overlay: titles, metric HUD and range selector
// ════════════════════════════════════════════════════════════════════

// figureVisitor replaces the single chart title with the page title plus
// one title per panel, and adds the graphic layer.
type figureVisitor struct {
	charts.BaseConfigurationVisitor
	titles  []opts.Title
	graphic []interface{}
}

func (v figureVisitor) VisitTitleOpt(opts.Title) interface{} {
	return v.titles
}

func (v figureVisitor) Visit(obj map[string]interface{}) {
	if len(v.graphic) > 0 {
		obj["graphic"] = v.graphic
	}
}

func titles(th Theme, boxes [4]panelBox, title, ticker string) []opts.Title {
	out := []opts.Title{{
		Title: title,
		Left:  pct(th.MarginSide),
		Top:   "20px",
		TitleStyle: &opts.TextStyle{
			Color:      th.TitleColor,
			FontFamily: th.TitleFont,
			FontSize:   th.TitleSize,
		},
	}}
	names := [4]string{ticker + " Strategic Forecast", panelModels, panelVolatility, panelRisk}
	for i, b := range boxes {
		out = append(out, opts.Title{
			Title:     names[i],
			Left:      pct(b.Center()),
			Top:       px(b.Top - 30),
			TextAlign: "center",
			TitleStyle: &opts.TextStyle{
				Color:      th.TextColor,
				FontSize:   th.PanelTitleSize,
				FontWeight: "bold",
			},
		})
	}
	return out
}

// hudLines formats the risk metrics shown in the lower-right corner.
func hudLines(risk riskValues) []string {
	return []string{
		"SHARPE: " + utils.FormatRatio(risk.Sharpe),
		"VOLATILITY: " + utils.FormatPercent(risk.Volatility),
		"VaR (95%): " + utils.FormatPercent(risk.VaR95),
	}
}

func hudElement(th Theme, lines []string) map[string]interface{} {
	return map[string]interface{}{
		"type":   "text",
		"id":     "metric-hud",
		"right":  pct(th.MarginSide + 1),
		"bottom": px(th.MarginBot + 12),
		"z":      100,
		"style": map[string]interface{}{
			"text":            strings.Join(lines, "\n"),
			"fontFamily":      th.HUDFont,
			"fontSize":        th.HUDSize,
			"lineHeight":      th.HUDSize + 6,
			"fill":            th.HUDColor,
			"backgroundColor": th.HUDBackground,
			"borderColor":     th.HUDBorder,
			"borderWidth":     1,
			"padding":         []int{8, 12},
		},
	}
}

const (
	buttonWidth  = 40
	buttonHeight = 20
	buttonGap    = 6
)

// rangeSelector lays the preset buttons along the top-left corner of the
// panel-1 plot area. MAX starts out active.
func rangeSelector(th Theme, box panelBox, presets []RangePreset) map[string]interface{} {
	children := make([]interface{}, 0, len(presets))
	for i, p := range presets {
		fill := th.SelectorBackground
		if p.Key == "MAX" {
			fill = th.SelectorActive
		}
		children = append(children, map[string]interface{}{
			"type": "group",
			"id":   "rs-" + p.Key,
			"x":    i * (buttonWidth + buttonGap),
			"children": []interface{}{
				map[string]interface{}{
					"type":  "rect",
					"id":    "rs-bg-" + p.Key,
					"shape": map[string]interface{}{"width": buttonWidth, "height": buttonHeight, "r": 3},
					"style": map[string]interface{}{"fill": fill, "stroke": th.GridColor},
				},
				map[string]interface{}{
					"type": "text",
					"style": map[string]interface{}{
						"text":          p.Key,
						"x":             buttonWidth / 2,
						"y":             buttonHeight / 2,
						"align":         "center",
						"verticalAlign": "middle",
						"fill":          th.TextColor,
						"fontSize":      th.SelectorFontSize,
					},
				},
			},
			"onclick": opts.FuncOpts(fmt.Sprintf("function () { selectForecastRange(%s, %s, %s); }",
				jsString(p.Key), jsString(p.Start), jsString(p.End))),
		})
	}
	return map[string]interface{}{
		"type":     "group",
		"id":       "range-selector",
		"left":     pct(box.Left + 0.5),
		"top":      px(box.Top + 6),
		"z":        100,
		"children": children,
	}
}

// rangeSelectorScript defines the click handler used by the range buttons:
// it zooms the panel-1 x-axis and repaints the button backgrounds.
func rangeSelectorScript(th Theme, presets []RangePreset) types.FuncStr {
	keys := make([]string, len(presets))
	for i, p := range presets {
		keys[i] = jsString(p.Key)
	}
	return types.FuncStr(fmt.Sprintf(`function selectForecastRange(key, start, end) {
	var chart = %%MY_ECHARTS%%;
	if (key === 'MAX') {
		chart.dispatchAction({ type: 'dataZoom', dataZoomIndex: 0, start: 0, end: 100 });
	} else {
		chart.dispatchAction({ type: 'dataZoom', dataZoomIndex: 0, startValue: start, endValue: end });
	}
	var keys = [%s];
	var items = [];
	for (var i = 0; i < keys.length; i++) {
		items.push({ id: 'rs-bg-' + keys[i], style: { fill: keys[i] === key ? %s : %s } });
	}
	chart.setOption({ graphic: items });
}`, strings.Join(keys, ", "), jsString(th.SelectorActive), jsString(th.SelectorBackground)))
}
