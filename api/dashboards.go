package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/seenimoa/forecastviz/internal/dashboard"
	"github.com/seenimoa/forecastviz/internal/loader"
	"github.com/seenimoa/forecastviz/internal/watch"
	"github.com/seenimoa/forecastviz/pkg/utils"
	"github.com/seenimoa/forecastviz/web"
)

// ════════════════════════════════════════════════════════════════════
// Types
// ════════════════════════════════════════════════════════════════════

// DashboardInfo summarises one rendered document in the output directory.
type DashboardInfo struct {
	ID          string    `json:"id"`
	Ticker      string    `json:"ticker"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
}

// RenderResponse is returned by POST /api/v1/dashboards.
type RenderResponse struct {
	ID       string             `json:"id"`
	Path     string             `json:"path"`
	URL      string             `json:"url"`
	Manifest dashboard.Manifest `json:"manifest"`
}

// WebSocket message types.
const (
	MsgDashboardRendered = "dashboard_rendered"
	MsgRenderFailed      = "render_failed"
)

// ════════════════════════════════════════════════════════════════════
// Handlers
// ════════════════════════════════════════════════════════════════════

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	key := clientKey(r)
	if !s.limiter.Allow(key) {
		wait := s.limiter.RetryAfter(key)
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		writeError(w, http.StatusTooManyRequests, "render rate limit exceeded")
		return
	}

	renderer := s.currentRenderer()
	if raw := r.URL.Query().Get("seed"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "seed must be an unsigned integer")
			return
		}
		renderer = renderer.WithSeed(seed)
	}

	result, err := loader.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), loader.FormatJSON)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := utils.TickerSlug(result.Ticker) + "-" + uuid.NewString()
	path, err := renderer.Render(r.Context(), result, filepath.Join(s.outDir, id+".html"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dashboard.ErrInvalidResult) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	info, doc, err := s.describe(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.wsHub.Broadcast(WSMessage{Type: MsgDashboardRendered, Data: info})

	w.Header().Set("Location", info.URL)
	writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    RenderResponse{ID: id, Path: path, URL: info.URL, Manifest: doc.Manifest},
	})
}

func (s *Server) handleListDashboards(w http.ResponseWriter, r *http.Request) {
	infos, err := s.list()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: infos})
}

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !safeName(id) {
		writeError(w, http.StatusBadRequest, "invalid dashboard id")
		return
	}
	_, doc, err := s.describe(filepath.Join(s.outDir, id+".html"))
	if errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusNotFound, "dashboard not found: "+id)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: doc})
}

func (s *Server) handleDashboardFile(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	if !strings.HasSuffix(file, ".html") || !safeName(strings.TrimSuffix(file, ".html")) {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(s.outDir, file)
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	http.ServeFile(w, r, path)
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	infos, err := s.list()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	page := web.GalleryPage{Version: dashboard.Version, WSPath: "/api/v1/ws"}
	for _, info := range infos {
		page.Dashboards = append(page.Dashboards, web.GalleryItem{
			Ticker:      info.Ticker,
			Title:       info.Title,
			URL:         info.URL,
			GeneratedAt: info.GeneratedAt,
		})
	}
	if err := web.RenderGallery(w, page); err != nil {
		s.log.Error().Err(err).Msg("gallery render failed")
	}
}

// ════════════════════════════════════════════════════════════════════
// Watch integration
// ════════════════════════════════════════════════════════════════════

// NotifyRendered broadcasts a watcher re-render to live-reload clients.
func (s *Server) NotifyRendered(ev watch.Event) {
	if ev.Err != nil {
		s.wsHub.Broadcast(WSMessage{
			Type: MsgRenderFailed,
			Data: map[string]string{"source": filepath.Base(ev.Source), "error": ev.Error},
		})
		return
	}
	info, _, err := s.describe(ev.Path)
	if err != nil {
		s.log.Warn().Err(err).Str("path", ev.Path).Msg("cannot describe re-rendered dashboard")
		return
	}
	s.wsHub.Broadcast(WSMessage{Type: MsgDashboardRendered, Data: info})
}

// OutputDir is where the server writes and serves documents.
func (s *Server) OutputDir() string {
	return s.outDir
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

// describe inspects the document at path, caching by modification time.
func (s *Server) describe(path string) (DashboardInfo, *dashboard.Document, error) {
	st, err := os.Stat(path)
	if err != nil {
		return DashboardInfo{}, nil, err
	}
	key := fmt.Sprintf("%s@%d", path, st.ModTime().UnixNano())
	doc, ok := s.docs.Get(key)
	if !ok {
		doc, err = dashboard.Inspect(path)
		if err != nil {
			return DashboardInfo{}, nil, err
		}
		s.docs.Set(key, doc)
	}

	base := filepath.Base(path)
	return DashboardInfo{
		ID:          strings.TrimSuffix(base, ".html"),
		Ticker:      doc.Manifest.Ticker,
		Title:       doc.Title,
		GeneratedAt: doc.Manifest.GeneratedAt,
		URL:         "/dashboards/" + base,
		Size:        st.Size(),
	}, doc, nil
}

// list describes every dashboard in the output directory, newest first.
// HTML files that are not dashboards are skipped.
func (s *Server) list() ([]DashboardInfo, error) {
	entries, err := os.ReadDir(s.outDir)
	if err != nil {
		return nil, fmt.Errorf("reading output dir: %w", err)
	}
	infos := []DashboardInfo{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".html") || strings.HasPrefix(name, ".") {
			continue
		}
		info, _, err := s.describe(filepath.Join(s.outDir, name))
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].GeneratedAt.Equal(infos[j].GeneratedAt) {
			return infos[i].GeneratedAt.After(infos[j].GeneratedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos, nil
}

// safeName accepts ids made of letters, digits, '-' and '_'.
func safeName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
