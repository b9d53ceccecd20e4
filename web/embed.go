// Package web embeds the preview server's gallery page.
//
// The template lives in web/templates and is compiled into the binary with
// go:embed, so the server needs no files beside the rendered dashboards.
package web

import (
	"embed"
	"html/template"
	"io"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

var gallery = template.Must(template.New("gallery.html").Funcs(template.FuncMap{
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	},
}).ParseFS(templatesFS, "templates/gallery.html"))

// GalleryItem is one row of the gallery.
type GalleryItem struct {
	Ticker      string
	Title       string
	URL         string
	GeneratedAt time.Time
}

// GalleryPage is the data the gallery template renders.
type GalleryPage struct {
	Version    string
	WSPath     string
	Dashboards []GalleryItem
}

// RenderGallery writes the gallery page to w.
func RenderGallery(w io.Writer, page GalleryPage) error {
	return gallery.Execute(w, page)
}
