package dashboard

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/creasty/defaults"
)

// ════════════════════════════════════════════════════════════════════
// PDF Export: rendered dashboard → PDF via headless Chromium
// ════════════════════════════════════════════════════════════════════

// chromiumNames are looked up on PATH in order.
var chromiumNames = []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"}

// ExportConfig holds configuration for PDF export.
type ExportConfig struct {
	// ChromePath overrides binary detection.
	ChromePath string        `mapstructure:"chrome_path" yaml:"chrome_path"`
	Timeout    time.Duration `default:"60s" mapstructure:"timeout" yaml:"timeout"`
	// VirtualTimeBudget gives the chart script time to draw before printing (ms).
	VirtualTimeBudget int `default:"5000" mapstructure:"virtual_time_budget" yaml:"virtual_time_budget"`
	// Portrait prints upright pages; the 2×2 layout reads best landscape.
	Portrait bool `mapstructure:"portrait" yaml:"portrait"`
}

// DefaultExportConfig returns the export defaults.
func DefaultExportConfig() ExportConfig {
	var cfg ExportConfig
	_ = defaults.Set(&cfg)
	return cfg
}

// DetectPDFEngine returns the Chromium binary to print with, or "" when
// none is installed.
func DetectPDFEngine(cfg ExportConfig) string {
	if cfg.ChromePath != "" {
		if path, err := exec.LookPath(cfg.ChromePath); err == nil {
			return path
		}
		return ""
	}
	for _, name := range chromiumNames {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// ExportPDF prints the dashboard at htmlPath to pdfPath and returns the
// absolute PDF path. ErrNoPDFEngine is returned when no browser is found.
func ExportPDF(ctx context.Context, htmlPath, pdfPath string, cfg ExportConfig) (string, error) {
	if err := defaults.Set(&cfg); err != nil {
		return "", fmt.Errorf("applying export defaults: %w", err)
	}

	bin := DetectPDFEngine(cfg)
	if bin == "" {
		return "", ErrNoPDFEngine
	}

	absHTML, err := filepath.Abs(htmlPath)
	if err != nil {
		return "", fmt.Errorf("resolving html path: %w", err)
	}
	if _, err := os.Stat(absHTML); err != nil {
		return "", fmt.Errorf("dashboard to export: %w", err)
	}
	absPDF, err := ResolveOutputPath(pdfPath)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, chromiumArgs(absHTML, absPDF, cfg)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("chromium PDF export failed: %w\nOutput: %s", err, string(output))
	}
	if _, err := os.Stat(absPDF); err != nil {
		return "", fmt.Errorf("%w: chromium produced no pdf at %s", ErrWrite, absPDF)
	}
	return absPDF, nil
}

func chromiumArgs(htmlPath, pdfPath string, cfg ExportConfig) []string {
	args := []string{
		"--headless",
		"--disable-gpu",
		"--no-sandbox",
		"--run-all-compositor-stages-before-draw",
		"--virtual-time-budget=" + strconv.Itoa(cfg.VirtualTimeBudget),
		"--print-to-pdf=" + pdfPath,
		"--print-to-pdf-no-header",
	}
	if !cfg.Portrait {
		args = append(args, "--landscape")
	}
	return append(args, "file://"+filepath.ToSlash(htmlPath))
}

// IsPDFSupported reports whether ExportPDF can run with cfg.
func IsPDFSupported(cfg ExportConfig) bool {
	return DetectPDFEngine(cfg) != ""
}
