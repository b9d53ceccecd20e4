package dashboard

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version is stamped into every manifest. Overridden at build time via
// -ldflags "-X github.com/seenimoa/forecastviz/internal/dashboard.Version=...".
var Version = "0.3.0"

// ManifestElementID is the id of the JSON script element carrying the
// manifest inside a rendered document.
const ManifestElementID = "dashboard-manifest"

// Manifest summarises what a document contains. It is embedded in the
// page head and read back by Inspect.
type Manifest struct {
	Ticker           string        `json:"ticker"`
	Title            string        `json:"title"`
	GeneratedAt      time.Time     `json:"generated_at"`
	Version          string        `json:"version"`
	Panels           []PanelInfo   `json:"panels"`
	ReferenceLines   int           `json:"reference_lines"`
	CorridorVertices int           `json:"corridor_vertices"`
	HistogramSamples int           `json:"histogram_samples"`
	HistogramBins    int           `json:"histogram_bins"`
	HUD              []string      `json:"hud"`
	Seed             *uint64       `json:"seed,omitempty"`
	RangeSelector    []RangePreset `json:"range_selector"`
}

// PanelInfo lists the series drawn in one panel.
type PanelInfo struct {
	Title  string       `json:"title"`
	Series []SeriesInfo `json:"series"`
}

// SeriesInfo describes one drawn series. Points counts defined points;
// for the histogram it is the number of binned samples.
type SeriesInfo struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Points int    `json:"points"`
}

// Panel returns the i-th panel (0..3) or an empty one.
func (m Manifest) Panel(i int) PanelInfo {
	if i < 0 || i >= len(m.Panels) {
		return PanelInfo{}
	}
	return m.Panels[i]
}

// SeriesNames returns the names of the panel's series in draw order.
func (p PanelInfo) SeriesNames() []string {
	out := make([]string, len(p.Series))
	for i, s := range p.Series {
		out[i] = s.Name
	}
	return out
}

// manifestTag renders m as an inert JSON script element. encoding/json
// escapes '<' so the payload cannot close the element early.
func manifestTag(m Manifest) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}
	return fmt.Sprintf(`<script type="application/json" id="%s">%s</script>`, ManifestElementID, data), nil
}
