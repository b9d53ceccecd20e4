// forecastviz renders ensemble forecast results into interactive
// four-panel HTML dashboards.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/forecastviz/internal/config"
	"github.com/seenimoa/forecastviz/internal/dashboard"
	"github.com/seenimoa/forecastviz/internal/logging"
)

// Build-time variables (set via -ldflags).
var (
	commit = "unknown"
	date   = "unknown"
)

// Global config and logger, set up before every command.
var (
	cfg       *config.Config
	logger    = zerolog.Nop()
	logCloser io.Closer
)

func main() {
	err := rootCmd.Execute()
	if logCloser != nil {
		_ = logCloser.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "forecastviz",
	Short: "forecastviz — interactive dashboards for ensemble price forecasts",
	Long: `forecastviz turns a forecast result (ensemble forecast, confidence
band, per-model estimates, price history, risk metrics and support /
resistance levels) into a self-contained interactive HTML dashboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		logger, logCloser, err = logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// newRenderer builds a renderer from the loaded config.
func newRenderer(obs dashboard.Observer) (*dashboard.Renderer, error) {
	opts := []dashboard.Option{dashboard.WithLogger(logging.Component(logger, "renderer"))}
	if obs != nil {
		opts = append(opts, dashboard.WithObserver(obs))
	}
	return dashboard.New(cfg.Dashboard(), opts...)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("forecastviz %s\n", dashboard.Version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and environment status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  forecastviz — Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", dashboard.Version, commit)
		fmt.Printf("  Config file:   %s\n", config.ConfigFilePath())
		fmt.Println()

		fmt.Println("  Rendering:")
		fmt.Printf("    Output:        %s\n", cfg.Render.OutputDir)
		fmt.Printf("    Chart ID:      %s\n", cfg.Render.ChartID)
		runtime := "CDN"
		if cfg.Render.RuntimeBundle != "" {
			runtime = "inline (" + cfg.Render.RuntimeBundle + ")"
		}
		fmt.Printf("    Runtime:       %s\n", runtime)
		if _, err := dashboard.NewTheme(cfg.Theme); err != nil {
			fmt.Printf("    Theme:         invalid (%v)\n", err)
		} else {
			fmt.Printf("    Theme:         ok\n")
		}
		engine := dashboard.DetectPDFEngine(cfg.Export)
		if engine == "" {
			engine = "not found"
		}
		fmt.Printf("    PDF engine:    %s\n", engine)
		fmt.Println()

		fmt.Println("  Settings:")
		for _, s := range config.CheckSettings(cfg) {
			fmt.Printf("    %-20s %-40s [%s]\n", s.Name+":", s.Value, s.Source)
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
