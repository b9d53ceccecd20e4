// Package watch re-renders dashboards when their result files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/seenimoa/forecastviz/internal/loader"
	"github.com/seenimoa/forecastviz/pkg/models"
)

// DefaultDebounce is how long a file must stay quiet before it is
// re-rendered. Editors often save in several writes.
const DefaultDebounce = 250 * time.Millisecond

// Renderer is the slice of dashboard.Renderer the watcher needs.
type Renderer interface {
	Render(ctx context.Context, result *models.ForecastResult, outputPath string) (string, error)
}

// Recorder receives one call per re-render attempt.
type Recorder interface {
	RecordWatchEvent(err error)
}

// Target pairs a result file with the dashboard it produces. An empty
// Output renders beside the source with an .html extension.
type Target struct {
	Source string
	Output string
}

// Event reports one re-render.
type Event struct {
	Source string    `json:"source"`
	Path   string    `json:"path,omitempty"`
	Ticker string    `json:"ticker,omitempty"`
	Err    error     `json:"-"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

// Stats tracks watcher activity.
type Stats struct {
	Events   int
	Renders  int
	Failures int
	LastPath string
	LastAt   time.Time
}

// Option customises a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a re-render.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// WithOnRender registers a callback for every re-render, failed or not.
func WithOnRender(fn func(Event)) Option {
	return func(w *Watcher) { w.onRender = fn }
}

// WithRecorder reports re-render outcomes to a metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(w *Watcher) { w.rec = rec }
}

// Watcher observes result files and re-renders their dashboards.
type Watcher struct {
	renderer Renderer
	targets  map[string]string // abs source → output
	fsw      *fsnotify.Watcher
	debounce time.Duration
	log      zerolog.Logger
	onRender func(Event)
	rec      Recorder

	mu      sync.Mutex
	pending map[string]time.Time
	stats   Stats
}

// New watches targets. Parent directories are watched rather than the
// files, so saves that replace a file by rename are still seen.
func New(r Renderer, targets []Target, options ...Option) (*Watcher, error) {
	if len(targets) == 0 {
		return nil, errors.New("watch: no result files given")
	}

	w := &Watcher{
		renderer: r,
		targets:  make(map[string]string, len(targets)),
		debounce: DefaultDebounce,
		log:      zerolog.Nop(),
		pending:  make(map[string]time.Time),
	}
	for _, opt := range options {
		opt(w)
	}

	outputs := make(map[string]string, len(targets))
	for _, t := range targets {
		src, err := filepath.Abs(t.Source)
		if err != nil {
			return nil, fmt.Errorf("watch: resolving %s: %w", t.Source, err)
		}
		if _, err := loader.FormatFromPath(src); err != nil {
			return nil, fmt.Errorf("watch: %w", err)
		}
		output := t.Output
		if output == "" {
			output = strings.TrimSuffix(src, filepath.Ext(src)) + ".html"
		}
		out, err := filepath.Abs(output)
		if err != nil {
			return nil, fmt.Errorf("watch: resolving %s: %w", t.Output, err)
		}
		if prev, dup := outputs[out]; dup && prev != src {
			return nil, fmt.Errorf("watch: %s and %s both render to %s", prev, src, out)
		}
		outputs[out] = src
		w.targets[src] = out
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	for _, dir := range w.dirs() {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch: adding %s: %w", dir, err)
		}
	}
	w.fsw = fsw
	return w, nil
}

func (w *Watcher) dirs() []string {
	seen := map[string]bool{}
	var dirs []string
	for src := range w.targets {
		d := filepath.Dir(src)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// Run processes events until ctx is done, then closes the underlying
// watcher. Render failures are logged and reported, never returned.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	tick := w.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	w.log.Info().Int("files", len(w.targets)).Dur("debounce", w.debounce).Msg("watching result files")
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watcher error")

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if _, ok := w.targets[name]; !ok {
		return
	}

	w.log.Debug().Str("file", name).Str("op", event.Op.String()).Msg("result changed")
	w.mu.Lock()
	w.pending[name] = time.Now()
	w.stats.Events++
	w.mu.Unlock()
}

// flush re-renders every file that has been quiet for the debounce period.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, src := range ready {
		if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
			// Renamed away mid-save; the replacement brings its own event.
			continue
		}
		w.renderOne(ctx, src)
	}
}

// RenderAll renders every target once, e.g. before the first change.
func (w *Watcher) RenderAll(ctx context.Context) []Event {
	events := make([]Event, 0, len(w.targets))
	for src := range w.targets {
		events = append(events, w.renderOne(ctx, src))
	}
	return events
}

func (w *Watcher) renderOne(ctx context.Context, src string) Event {
	ev := Event{Source: src, At: time.Now()}
	result, err := loader.LoadFile(src)
	if err == nil {
		ev.Ticker = result.Ticker
		ev.Path, err = w.renderer.Render(ctx, result, w.targets[src])
	}
	ev.Err = err
	if err != nil {
		ev.Error = err.Error()
		w.log.Error().Err(err).Str("file", src).Msg("re-render failed")
	} else {
		w.log.Info().Str("file", src).Str("path", ev.Path).Msg("dashboard re-rendered")
	}

	w.mu.Lock()
	if err != nil {
		w.stats.Failures++
	} else {
		w.stats.Renders++
	}
	w.stats.LastPath = src
	w.stats.LastAt = ev.At
	w.mu.Unlock()

	if w.rec != nil {
		w.rec.RecordWatchEvent(err)
	}
	if w.onRender != nil {
		w.onRender(ev)
	}
	return ev
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Outputs maps each watched source file to its dashboard path.
func (w *Watcher) Outputs() map[string]string {
	out := make(map[string]string, len(w.targets))
	for k, v := range w.targets {
		out[k] = v
	}
	return out
}
