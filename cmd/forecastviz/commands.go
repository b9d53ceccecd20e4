package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/forecastviz/api"
	"github.com/seenimoa/forecastviz/internal/batch"
	"github.com/seenimoa/forecastviz/internal/dashboard"
	"github.com/seenimoa/forecastviz/internal/loader"
	"github.com/seenimoa/forecastviz/internal/logging"
	"github.com/seenimoa/forecastviz/internal/metrics"
	"github.com/seenimoa/forecastviz/internal/watch"
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// applyRenderFlags copies --seed and --runtime into the loaded config.
func applyRenderFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint64("seed")
		cfg.Render.Seed = &seed
	}
	if rt, _ := cmd.Flags().GetString("runtime"); rt != "" {
		cfg.Render.RuntimeBundle = rt
	}
}

func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64("seed", 0, "fix the risk histogram sample for reproducible output")
	cmd.Flags().String("runtime", "", "inline a local echarts.min.js instead of loading it from the CDN")
}

// --- Render Command ---

var renderCmd = &cobra.Command{
	Use:   "render [result-file]",
	Short: "Render one forecast result (JSON or YAML) to an HTML dashboard",
	Example: `  forecastviz render abc.json
  forecastviz render abc.yaml -o abc.html --seed 42
  forecastviz render abc.json --pdf abc.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRenderFlags(cmd)
		result, err := loader.LoadFile(args[0])
		if err != nil {
			return err
		}
		r, err := newRenderer(nil)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = filepath.Join(cfg.Render.OutputDir, cfg.Render.DefaultFile)
		}
		ctx, cancel := signalContext()
		defer cancel()

		path, err := r.Render(ctx, result, out)
		if err != nil {
			return err
		}
		fmt.Println(path)

		if pdf, _ := cmd.Flags().GetString("pdf"); pdf != "" {
			pdfPath, err := dashboard.ExportPDF(ctx, path, pdf, cfg.Export)
			if err != nil {
				return err
			}
			fmt.Println(pdfPath)
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringP("output", "o", "", "output HTML path (default: render.output_dir/render.default_file)")
	renderCmd.Flags().String("pdf", "", "also print the dashboard to this PDF path")
	addRenderFlags(renderCmd)
}

// --- Batch Command ---

var batchCmd = &cobra.Command{
	Use:   "batch [result-files...]",
	Short: "Render many forecast results concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRenderFlags(cmd)
		r, err := newRenderer(nil)
		if err != nil {
			return err
		}

		outDir, _ := cmd.Flags().GetString("out-dir")
		if outDir == "" {
			outDir = cfg.Render.OutputDir
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency < 1 {
			concurrency = cfg.Batch.Concurrency
		}
		failFast, _ := cmd.Flags().GetBool("fail-fast")

		var jobs []batch.Job
		var loadErrs []error
		for _, file := range args {
			result, err := loader.LoadFile(file)
			if err != nil {
				fmt.Printf("  ✗ %-30s %v\n", file, err)
				loadErrs = append(loadErrs, err)
				continue
			}
			jobs = append(jobs, batch.Job{Result: result, Source: file})
		}
		if failFast && len(loadErrs) > 0 {
			return errors.Join(loadErrs...)
		}

		ctx, cancel := signalContext()
		defer cancel()
		outcomes, runErr := batch.Run(ctx, r, jobs, batch.Options{
			Concurrency: concurrency,
			OutputDir:   outDir,
			FailFast:    failFast,
		})
		if errors.Is(runErr, batch.ErrDuplicateOutput) {
			return runErr
		}
		for _, o := range outcomes {
			if o.Err != nil {
				fmt.Printf("  ✗ %-30s %v\n", o.Source, o.Err)
				continue
			}
			fmt.Printf("  ✓ %-30s %s (%s)\n", o.Source, o.Path, o.Elapsed.Round(time.Millisecond))
		}

		failed := batch.Failed(outcomes) + len(loadErrs)
		fmt.Printf("\n%d rendered, %d failed\n", len(args)-failed, failed)
		if failed > 0 {
			return fmt.Errorf("%d of %d results failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().String("out-dir", "", "directory for rendered dashboards (default: render.output_dir)")
	batchCmd.Flags().Int("concurrency", 0, "renders in flight (default: batch.concurrency)")
	batchCmd.Flags().Bool("fail-fast", false, "stop at the first failure")
	addRenderFlags(batchCmd)
}

// --- Inspect Command ---

var inspectCmd = &cobra.Command{
	Use:   "inspect [dashboard.html]",
	Short: "Show what a rendered dashboard contains",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := dashboard.Inspect(args[0])
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		}

		m := doc.Manifest
		fmt.Printf("%s\n", doc.Title)
		fmt.Printf("  Ticker:      %s\n", m.Ticker)
		fmt.Printf("  Generated:   %s (forecastviz %s)\n", m.GeneratedAt.Format("2006-01-02 15:04:05 MST"), m.Version)
		runtime := "inline"
		if !doc.RuntimeInline {
			runtime = strings.Join(doc.RuntimeSources, ", ")
		}
		fmt.Printf("  Runtime:     %s\n", runtime)
		for i, p := range m.Panels {
			fmt.Printf("  Panel %d:     %s\n", i+1, p.Title)
			for _, s := range p.Series {
				fmt.Printf("    - %-28s %-10s %d\n", s.Name, s.Kind, s.Points)
			}
		}
		fmt.Printf("  Levels:      %d\n", m.ReferenceLines)
		fmt.Printf("  HUD:         %s\n", strings.Join(m.HUD, " | "))
		if m.Seed != nil {
			fmt.Printf("  Seed:        %d\n", *m.Seed)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().Bool("json", false, "print the full document description as JSON")
}

// --- Export Command ---

var exportCmd = &cobra.Command{
	Use:   "export [dashboard.html]",
	Short: "Print a rendered dashboard to PDF with headless Chromium",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".pdf"
		}
		if portrait, _ := cmd.Flags().GetBool("portrait"); portrait {
			cfg.Export.Portrait = true
		}
		ctx, cancel := signalContext()
		defer cancel()

		path, err := dashboard.ExportPDF(ctx, args[0], out, cfg.Export)
		if errors.Is(err, dashboard.ErrNoPDFEngine) {
			return fmt.Errorf("%w: install chromium or set export.chrome_path", err)
		}
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "output PDF path (default: beside the HTML)")
	exportCmd.Flags().Bool("portrait", false, "print in portrait orientation")
}

// --- Watch Command ---

var watchCmd = &cobra.Command{
	Use:   "watch [result-files...]",
	Short: "Re-render dashboards whenever their result files change",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRenderFlags(cmd)
		r, err := newRenderer(nil)
		if err != nil {
			return err
		}
		outDir, _ := cmd.Flags().GetString("out-dir")

		w, err := watch.New(r, watchTargets(args, outDir),
			watch.WithDebounce(cfg.Watch.Debounce),
			watch.WithLogger(logging.Component(logger, "watch")),
			watch.WithOnRender(func(ev watch.Event) {
				if ev.Err != nil {
					fmt.Printf("  ✗ %s: %v\n", ev.Source, ev.Err)
					return
				}
				fmt.Printf("  ✓ %s → %s\n", ev.Source, ev.Path)
			}),
		)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()
		w.RenderAll(ctx)
		fmt.Println("watching for changes (Ctrl+C to stop)")
		return w.Run(ctx)
	},
}

func init() {
	watchCmd.Flags().String("out-dir", "", "directory for dashboards (default: beside each result file)")
	addRenderFlags(watchCmd)
}

// watchTargets maps result files to dashboards named after them, in
// outDir when given.
func watchTargets(files []string, outDir string) []watch.Target {
	targets := make([]watch.Target, len(files))
	for i, f := range files {
		targets[i] = watch.Target{Source: f}
		if outDir != "" {
			base := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
			targets[i].Output = filepath.Join(outDir, base+".html")
		}
	}
	return targets
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the preview server",
	Long: `Start the preview server: POST results to /api/v1/dashboards, browse
rendered dashboards at /, scrape /metrics. With --watch, the given result
files are re-rendered into the output directory on change and open
galleries reload live.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRenderFlags(cmd)
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		if host, _ := cmd.Flags().GetString("host"); host != "" {
			cfg.API.Host = host
		}

		rec := metrics.New()
		srv, err := api.NewServer(cfg, api.WithLogger(logging.Component(logger, "api")), api.WithMetrics(rec))
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()
		g, gctx := errgroup.WithContext(ctx)

		if files, _ := cmd.Flags().GetStringSlice("watch"); len(files) > 0 {
			r, err := newRenderer(rec)
			if err != nil {
				return err
			}
			w, err := watch.New(r, watchTargets(files, srv.OutputDir()),
				watch.WithDebounce(cfg.Watch.Debounce),
				watch.WithLogger(logging.Component(logger, "watch")),
				watch.WithRecorder(rec),
				watch.WithOnRender(srv.NotifyRendered),
			)
			if err != nil {
				return err
			}
			w.RenderAll(gctx)
			g.Go(func() error { return w.Run(gctx) })
		}

		g.Go(func() error { return srv.ListenAndServe(gctx, cfg.API.Addr()) })
		fmt.Printf("🌐 forecastviz preview server on http://%s\n", cfg.API.Addr())
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default: api.port)")
	serveCmd.Flags().String("host", "", "listen host (default: api.host)")
	serveCmd.Flags().StringSlice("watch", nil, "result files to re-render on change")
	addRenderFlags(serveCmd)
}
