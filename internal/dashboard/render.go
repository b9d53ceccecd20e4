package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/rs/zerolog"

	"github.com/seenimoa/forecastviz/pkg/models"
)

const (
	// DefaultOutputFile is used when Render gets an empty output path.
	DefaultOutputFile = "forecast_dashboard.html"
	// DefaultChartID names the chart element and its runtime instance.
	DefaultChartID = "forecast_dashboard"
)

// ════════════════════════════════════════════════════════════════════
// Configuration
// ════════════════════════════════════════════════════════════════════

// Config controls how documents are built.
type Config struct {
	Theme Theme
	// Seed fixes the risk histogram sample. Nil draws fresh randomness
	// on every render.
	Seed *uint64
	// AssetsHost is the base URL the charting runtime is loaded from.
	// Empty means the go-echarts CDN.
	AssetsHost string
	// RuntimeBundle is a local echarts.min.js inlined into the document
	// in place of the CDN reference.
	RuntimeBundle string
	ChartID       string
}

// DefaultConfig returns the dark theme, unseeded, loading the runtime
// from the CDN.
func DefaultConfig() Config {
	return Config{Theme: DefaultTheme(), ChartID: DefaultChartID}
}

// Observer is told about every render attempt.
type Observer interface {
	ObserveRender(ticker string, err error, elapsed time.Duration)
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithLogger sets the renderer's logger. The default discards.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Renderer) { r.log = l }
}

// WithObserver reports each render to o.
func WithObserver(o Observer) Option {
	return func(r *Renderer) { r.obs = o }
}

// WithClock replaces time.Now for manifest timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// ════════════════════════════════════════════════════════════════════
// Renderer
// ════════════════════════════════════════════════════════════════════

// Renderer turns forecast results into dashboard documents. It holds no
// per-render state and is safe for concurrent use on distinct paths.
type Renderer struct {
	cfg     Config
	chartID string
	runtime []byte
	log     zerolog.Logger
	obs     Observer
	now     func() time.Time
}

var chartIDUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// New validates cfg and returns a Renderer. Zero theme fields take their
// defaults; a RuntimeBundle is read once here.
func New(cfg Config, options ...Option) (*Renderer, error) {
	th, err := NewTheme(cfg.Theme)
	if err != nil {
		return nil, err
	}
	cfg.Theme = th

	r := &Renderer{
		cfg:     cfg,
		chartID: chartIDUnsafe.ReplaceAllString(cfg.ChartID, "_"),
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	if r.chartID == "" || r.chartID == "_" {
		r.chartID = DefaultChartID
	}
	if cfg.RuntimeBundle != "" {
		data, err := os.ReadFile(cfg.RuntimeBundle)
		if err != nil {
			return nil, fmt.Errorf("reading runtime bundle: %w", err)
		}
		if bytes.Contains(bytes.ToLower(data), []byte("</script")) {
			return nil, fmt.Errorf("runtime bundle %s cannot be inlined: contains a closing script tag", cfg.RuntimeBundle)
		}
		r.runtime = data
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Config returns the effective configuration.
func (r *Renderer) Config() Config { return r.cfg }

// WithSeed returns a copy of r whose risk histogram is drawn from seed.
func (r *Renderer) WithSeed(seed uint64) *Renderer {
	c := *r
	c.cfg.Seed = &seed
	return &c
}

var (
	defaultOnce sync.Once
	defaultR    *Renderer
)

func defaultRenderer() *Renderer {
	defaultOnce.Do(func() {
		defaultR, _ = New(DefaultConfig())
	})
	return defaultR
}

// Render writes the dashboard for result to outputPath with the default
// configuration and returns the absolute path written.
func Render(result *models.ForecastResult, outputPath string) (string, error) {
	return defaultRenderer().Render(context.Background(), result, outputPath)
}

// Render builds the figure for result, writes it to outputPath (or
// DefaultOutputFile when empty) and returns the absolute path. Nothing is
// written unless the whole document could be produced.
func (r *Renderer) Render(ctx context.Context, result *models.ForecastResult, outputPath string) (string, error) {
	start := time.Now()
	ticker := ""
	if result != nil {
		ticker = result.Ticker
	}

	path, err := r.render(ctx, result, outputPath)
	elapsed := time.Since(start)
	if r.obs != nil {
		r.obs.ObserveRender(ticker, err, elapsed)
	}
	if err != nil {
		r.log.Error().Err(err).Str("ticker", ticker).Str("output", outputPath).Msg("dashboard render failed")
		return "", err
	}
	r.log.Info().Str("ticker", ticker).Str("path", path).Dur("elapsed", elapsed).Msg("dashboard rendered")
	return path, nil
}

func (r *Renderer) render(ctx context.Context, result *models.ForecastResult, outputPath string) (string, error) {
	fig, err := r.Build(result)
	if err != nil {
		return "", err
	}

	path, err := ResolveOutputPath(outputPath)
	if err != nil {
		return "", err
	}

	doc, err := r.document(fig)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("render %s: %w", result.Ticker, err)
	}
	if err := writeAtomic(path, doc); err != nil {
		return "", err
	}
	return path, nil
}

// ResolveOutputPath returns the absolute form of p, using
// DefaultOutputFile when p is empty.
func ResolveOutputPath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		p = DefaultOutputFile
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %q: %v", ErrWrite, p, err)
	}
	return abs, nil
}

// ════════════════════════════════════════════════════════════════════
// Document serialization
// ════════════════════════════════════════════════════════════════════

// document serializes fig into a complete HTML page.
func (r *Renderer) document(fig *Figure) ([]byte, error) {
	tag, err := manifestTag(fig.Manifest)
	if err != nil {
		return nil, err
	}
	fig.Chart.AddCustomizedHeaders(pageStyle(r.cfg.Theme), tag)
	if len(r.runtime) > 0 {
		fig.Chart.ClearPresetJSAssets()
		fig.Chart.AddCustomizedHeaders("<script>" + string(r.runtime) + "</script>")
	}

	var buf bytes.Buffer
	if err := renderChart(fig.Chart, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderChart runs the chart template. The template engine panics on
// execution errors, so those are recovered into an error.
func renderChart(c *charts.Line, buf *bytes.Buffer) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("rendering chart template: %v", p)
		}
	}()
	return c.Render(buf)
}

func pageStyle(th Theme) string {
	return fmt.Sprintf(`<style>
    html, body { margin: 0; padding: 0; background: %s; color: %s; }
    .container { margin-top: 0 !important; }
    .item { margin: 0 !important; }
</style>`, th.Background, th.TextColor)
}

// writeAtomic writes data to a temp file beside path and renames it into
// place. The temp file is removed on any failure.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".forecastviz-*.html")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: writing %s: %v", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: closing %s: %v", ErrWrite, path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("%w: renaming into %s: %v", ErrWrite, path, err)
	}
	return nil
}
