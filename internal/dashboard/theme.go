package dashboard

import (
	"fmt"

	"github.com/creasty/defaults"
)

// ════════════════════════════════════════════════════════════════════
// Theme: immutable styling for the four-panel figure
// ════════════════════════════════════════════════════════════════════

// Theme holds every colour, size and spacing used by the figure. It is
// passed by value; the renderer never mutates it. Zero fields are filled
// from the `default` tags by NewTheme, so a partially configured theme
// (e.g. from a config file) inherits the dark house style.
type Theme struct {
	// Page
	Background string  `default:"#0A0A0F" mapstructure:"background"   yaml:"background"`
	Width      string  `default:"100%"    mapstructure:"width"        yaml:"width"`
	Height     int     `default:"1000"    mapstructure:"height"       yaml:"height"`         // px
	MarginTop  int     `default:"120"     mapstructure:"margin_top"   yaml:"margin_top"`     // px
	MarginBot  int     `default:"80"      mapstructure:"margin_bottom" yaml:"margin_bottom"` // px
	MarginSide float64 `default:"6"       mapstructure:"margin_side"  yaml:"margin_side"`    // percent of width
	HSpacing   float64 `default:"0.1"     mapstructure:"h_spacing"    yaml:"h_spacing"`      // fraction of plot width
	VSpacing   float64 `default:"0.15"    mapstructure:"v_spacing"    yaml:"v_spacing"`      // fraction of plot height

	// Titles, legend, axes
	TitleFont      string `default:"Arial Black" mapstructure:"title_font"        yaml:"title_font"`
	TitleSize      int    `default:"24"          mapstructure:"title_size"        yaml:"title_size"`
	TitleColor     string `default:"#0066FF"     mapstructure:"title_color"       yaml:"title_color"`
	PanelTitleSize int    `default:"14"          mapstructure:"panel_title_size"  yaml:"panel_title_size"`
	TextColor      string `default:"#E1E1E6"     mapstructure:"text_color"        yaml:"text_color"`
	GridColor      string `default:"#1E293B"     mapstructure:"grid_color"        yaml:"grid_color"`
	LegendFontSize int    `default:"10"          mapstructure:"legend_font_size"  yaml:"legend_font_size"`

	// Panel 1
	HistoryColor    string  `default:"#94A3B8"               mapstructure:"history_color"    yaml:"history_color"`
	HistoryWidth    float32 `default:"1.5"                   mapstructure:"history_width"    yaml:"history_width"`
	HistoryOpacity  float32 `default:"0.6"                   mapstructure:"history_opacity"  yaml:"history_opacity"`
	EnsembleColor   string  `default:"#0066FF"               mapstructure:"ensemble_color"   yaml:"ensemble_color"`
	EnsembleWidth   float32 `default:"4"                     mapstructure:"ensemble_width"   yaml:"ensemble_width"`
	CorridorFill    string  `default:"rgba(0,102,255,0.15)"  mapstructure:"corridor_fill"    yaml:"corridor_fill"`
	ResistanceColor string  `default:"#FF3D00"               mapstructure:"resistance_color" yaml:"resistance_color"`
	SupportColor    string  `default:"#00C853"               mapstructure:"support_color"    yaml:"support_color"`
	LevelOpacity    float32 `default:"0.4"                   mapstructure:"level_opacity"    yaml:"level_opacity"`

	// Panel 2
	LSTMColor  string  `default:"#FACC15" mapstructure:"lstm_color"  yaml:"lstm_color"`
	ARIMAColor string  `default:"#00C853" mapstructure:"arima_color" yaml:"arima_color"`
	ModelWidth float32 `default:"2"       mapstructure:"model_width" yaml:"model_width"`

	// Panel 3
	VolColor string  `default:"#A855F7"                mapstructure:"vol_color" yaml:"vol_color"`
	VolWidth float32 `default:"2"                      mapstructure:"vol_width" yaml:"vol_width"`
	VolFill  string  `default:"rgba(168,85,247,0.1)"   mapstructure:"vol_fill"  yaml:"vol_fill"`

	// Panel 4
	HistColor   string  `default:"#3B82F6" mapstructure:"hist_color"   yaml:"hist_color"`
	HistOpacity float32 `default:"0.7"     mapstructure:"hist_opacity" yaml:"hist_opacity"`

	// Metric HUD
	HUDFont       string `default:"Courier New"         mapstructure:"hud_font"       yaml:"hud_font"`
	HUDSize       int    `default:"12"                  mapstructure:"hud_size"       yaml:"hud_size"`
	HUDColor      string `default:"#E1E1E6"             mapstructure:"hud_color"      yaml:"hud_color"`
	HUDBackground string `default:"rgba(22,22,30,0.8)"  mapstructure:"hud_background" yaml:"hud_background"`
	HUDBorder     string `default:"#1E293B"             mapstructure:"hud_border"     yaml:"hud_border"`

	// Range selector on panel 1
	SelectorBackground string `default:"#16161E" mapstructure:"selector_background" yaml:"selector_background"`
	SelectorActive     string `default:"#0066FF" mapstructure:"selector_active"     yaml:"selector_active"`
	SelectorFontSize   int    `default:"11"      mapstructure:"selector_font_size"  yaml:"selector_font_size"`
}

// DefaultTheme returns the dark house theme.
func DefaultTheme() Theme {
	t, _ := NewTheme(Theme{})
	return t
}

// NewTheme returns base with every zero field replaced by its default.
// base itself is not modified.
func NewTheme(base Theme) (Theme, error) {
	t := base
	if err := defaults.Set(&t); err != nil {
		return Theme{}, fmt.Errorf("applying theme defaults: %w", err)
	}
	if t.Height <= t.MarginTop+t.MarginBot {
		return Theme{}, fmt.Errorf("theme height %d leaves no room for margins %d+%d", t.Height, t.MarginTop, t.MarginBot)
	}
	if t.MarginSide < 0 || t.MarginSide >= 50 {
		return Theme{}, fmt.Errorf("theme margin_side %.1f%% out of range", t.MarginSide)
	}
	return t, nil
}

// ════════════════════════════════════════════════════════════════════
// Layout: 2×2 grid geometry derived from the theme
// ════════════════════════════════════════════════════════════════════

// panelBox is a panel's plot area: horizontal extent in percent of the
// chart width, vertical extent in pixels.
type panelBox struct {
	Left   float64 // percent from left edge
	Width  float64 // percent
	Top    int     // px from top edge
	Height int     // px
}

// Right returns the percent distance from the right edge.
func (b panelBox) Right() float64 { return 100 - b.Left - b.Width }

// Center returns the horizontal centre in percent.
func (b panelBox) Center() float64 { return b.Left + b.Width/2 }

// panels returns the four plot areas in reading order: top-left,
// top-right, bottom-left, bottom-right.
func (t Theme) panels() [4]panelBox {
	plotW := 100 - 2*t.MarginSide
	hGap := t.HSpacing * plotW
	colW := (plotW - hGap) / 2

	plotH := float64(t.Height - t.MarginTop - t.MarginBot)
	vGap := t.VSpacing * plotH
	rowH := (plotH - vGap) / 2

	var out [4]panelBox
	for i := range out {
		row, col := i/2, i%2
		out[i] = panelBox{
			Left:   t.MarginSide + float64(col)*(colW+hGap),
			Width:  colW,
			Top:    t.MarginTop + int(float64(row)*(rowH+vGap)),
			Height: int(rowH),
		}
	}
	return out
}

func pct(v float64) string { return fmt.Sprintf("%.2f%%", v) }

func px(v int) string { return fmt.Sprintf("%dpx", v) }
