// Package batch renders many forecast results concurrently.
package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/forecastviz/internal/dashboard"
	"github.com/seenimoa/forecastviz/pkg/models"
	"github.com/seenimoa/forecastviz/pkg/utils"
)

// DefaultConcurrency is used when Run gets a limit below one.
const DefaultConcurrency = 4

// ErrDuplicateOutput is returned when two jobs target the same file.
var ErrDuplicateOutput = errors.New("duplicate output path")

// Job is one result to render.
type Job struct {
	Result *models.ForecastResult
	// Output is the target file; empty derives {ticker}_dashboard.html.
	Output string
	// Source labels the job in outcomes, usually the input file name.
	Source string
}

// Outcome is the result of one job.
type Outcome struct {
	Source  string        `json:"source,omitempty"`
	Ticker  string        `json:"ticker"`
	Path    string        `json:"path,omitempty"`
	Err     error         `json:"-"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Renderer is the slice of dashboard.Renderer batch needs.
type Renderer interface {
	Render(ctx context.Context, result *models.ForecastResult, outputPath string) (string, error)
}

// Options tunes Run.
type Options struct {
	Concurrency int
	// OutputDir resolves relative and derived output paths.
	OutputDir string
	// FailFast cancels the remaining jobs after the first failure.
	FailFast bool
}

// OutputFor derives the default output file for a ticker.
func OutputFor(dir, ticker string) string {
	return filepath.Join(dir, utils.TickerSlug(ticker)+"_dashboard.html")
}

// Plan resolves each job's absolute output path and rejects duplicates
// before anything is written.
func Plan(jobs []Job, outputDir string) ([]Job, error) {
	planned := make([]Job, len(jobs))
	seen := make(map[string]int, len(jobs))
	for i, job := range jobs {
		out := job.Output
		if out == "" {
			ticker := ""
			if job.Result != nil {
				ticker = job.Result.Ticker
			}
			out = OutputFor(outputDir, ticker)
		} else if !filepath.IsAbs(out) && outputDir != "" {
			out = filepath.Join(outputDir, out)
		}
		abs, err := dashboard.ResolveOutputPath(out)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[abs]; dup {
			return nil, fmt.Errorf("%w: jobs %d and %d both write %s", ErrDuplicateOutput, prev, i, abs)
		}
		seen[abs] = i
		job.Output = abs
		planned[i] = job
	}
	return planned, nil
}

// Run renders jobs with at most opts.Concurrency in flight. Outcomes come
// back in job order. The returned error joins every job failure; with
// FailFast, jobs not yet started are skipped with the context error.
func Run(ctx context.Context, r Renderer, jobs []Job, opts Options) ([]Outcome, error) {
	planned, err := Plan(jobs, opts.OutputDir)
	if err != nil {
		return nil, err
	}

	limit := opts.Concurrency
	if limit < 1 {
		limit = DefaultConcurrency
	}

	outcomes := make([]Outcome, len(planned))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, job := range planned {
		runCtx := ctx
		if opts.FailFast {
			runCtx = gctx
		}
		g.Go(func() error {
			out := Outcome{Source: job.Source}
			if job.Result != nil {
				out.Ticker = job.Result.Ticker
			}
			start := time.Now()
			if err := runCtx.Err(); err != nil {
				out.Err = err
			} else {
				out.Path, out.Err = r.Render(runCtx, job.Result, job.Output)
			}
			out.Elapsed = time.Since(start)
			if out.Err != nil {
				out.Error = out.Err.Error()
			}
			outcomes[i] = out
			if opts.FailFast {
				return out.Err
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			label := o.Source
			if label == "" {
				label = o.Ticker
			}
			errs = append(errs, fmt.Errorf("%s: %w", label, o.Err))
		}
	}
	return outcomes, errors.Join(errs...)
}

// Failed counts outcomes with an error.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
