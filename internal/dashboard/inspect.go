package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is what Inspect reads back from a rendered dashboard.
type Document struct {
	Path     string   `json:"path,omitempty"`
	Title    string   `json:"title"`
	Manifest Manifest `json:"manifest"`
	// RuntimeInline is true when the charting runtime is embedded in the
	// page rather than loaded from RuntimeSources.
	RuntimeInline  bool     `json:"runtime_inline"`
	RuntimeSources []string `json:"runtime_sources,omitempty"`
	ChartID        string   `json:"chart_id"`
}

// Inspect parses the dashboard at path.
func Inspect(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := InspectHTML(f)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// InspectHTML parses a dashboard document from r.
func InspectHTML(r io.Reader) (*Document, error) {
	page, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	raw := page.Find(fmt.Sprintf(`script[type="application/json"]#%s`, ManifestElementID)).First()
	if raw.Length() == 0 {
		return nil, fmt.Errorf("no %s element: not a forecast dashboard", ManifestElementID)
	}

	out := &Document{Title: strings.TrimSpace(page.Find("head title").First().Text())}
	if err := json.Unmarshal([]byte(raw.Text()), &out.Manifest); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	page.Find("head script").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			out.RuntimeSources = append(out.RuntimeSources, src)
			return
		}
		if _, typed := s.Attr("type"); !typed && strings.Contains(s.Text(), "echarts") {
			out.RuntimeInline = true
		}
	})

	if id, ok := page.Find("div.item").First().Attr("id"); ok {
		out.ChartID = id
	}
	return out, nil
}
