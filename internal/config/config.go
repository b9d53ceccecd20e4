// Package config handles configuration loading for forecastviz.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/forecastviz/internal/dashboard"
	"github.com/seenimoa/forecastviz/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. FORECASTVIZ_API_PORT.
const EnvPrefix = "FORECASTVIZ"

// Config represents the complete application configuration.
type Config struct {
	Render  RenderConfig           `mapstructure:"render"  yaml:"render"`
	Theme   dashboard.Theme        `mapstructure:"theme"   yaml:"theme"`
	Batch   BatchConfig            `mapstructure:"batch"   yaml:"batch"`
	Watch   WatchConfig            `mapstructure:"watch"   yaml:"watch"`
	API     APIConfig              `mapstructure:"api"     yaml:"api"`
	Export  dashboard.ExportConfig `mapstructure:"export"  yaml:"export"`
	Logging logging.Config         `mapstructure:"logging" yaml:"logging"`
}

// RenderConfig holds document output settings.
type RenderConfig struct {
	OutputDir   string `mapstructure:"output_dir"     yaml:"output_dir"`
	DefaultFile string `mapstructure:"default_file"   yaml:"default_file"`
	// Seed fixes the risk histogram sample; unset draws fresh randomness.
	Seed          *uint64 `mapstructure:"seed"           yaml:"seed,omitempty"`
	AssetsHost    string  `mapstructure:"assets_host"    yaml:"assets_host,omitempty"`
	RuntimeBundle string  `mapstructure:"runtime_bundle" yaml:"runtime_bundle,omitempty"`
	ChartID       string  `mapstructure:"chart_id"       yaml:"chart_id"`
}

// BatchConfig holds batch rendering settings.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// WatchConfig holds file watcher settings.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// APIConfig holds preview server settings.
type APIConfig struct {
	Host         string        `mapstructure:"host"         yaml:"host"`
	Port         int           `mapstructure:"port"         yaml:"port"`
	CORSOrigins  []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	RenderRate   int           `mapstructure:"render_rate"   yaml:"render_rate"` // renders per window per client
	RenderWindow time.Duration `mapstructure:"render_window" yaml:"render_window"`
	Timeout      time.Duration `mapstructure:"timeout"       yaml:"timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"     yaml:"cache_ttl"` // inspected manifest cache
}

// Addr returns host:port.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Dashboard returns the renderer configuration. Theme fields left empty
// take their defaults in dashboard.New.
func (c *Config) Dashboard() dashboard.Config {
	return dashboard.Config{
		Theme:         c.Theme,
		Seed:          c.Render.Seed,
		AssetsHost:    c.Render.AssetsHost,
		RuntimeBundle: c.Render.RuntimeBundle,
		ChartID:       c.Render.ChartID,
	}
}

var (
	activeMu   sync.RWMutex
	activeFile string
)

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.forecastviz/config.yaml (home directory)
//  3. /etc/forecastviz/config.yaml (system)
//
// Environment variables override config file values.
// Format: FORECASTVIZ_<SECTION>_<KEY>, e.g., FORECASTVIZ_API_PORT
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".forecastviz"))
	v.AddConfigPath("/etc/forecastviz")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No file: defaults + env vars.
	}
	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// No default exists for the seed, so AutomaticEnv alone would miss it.
	_ = v.BindEnv("render.seed")
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	activeMu.Lock()
	activeFile = v.ConfigFileUsed()
	activeMu.Unlock()
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Render defaults
	v.SetDefault("render.output_dir", ".")
	v.SetDefault("render.default_file", dashboard.DefaultOutputFile)
	v.SetDefault("render.chart_id", dashboard.DefaultChartID)
	v.SetDefault("render.assets_host", "")
	v.SetDefault("render.runtime_bundle", "")

	// Theme: every key is registered so FORECASTVIZ_THEME_* reaches it.
	setStructDefaults(v, "theme", dashboard.DefaultTheme())

	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("watch.debounce", 250*time.Millisecond)

	// API defaults
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8090)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.render_rate", 30)
	v.SetDefault("api.render_window", time.Minute)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.cache_ttl", 5*time.Minute)

	// Export defaults
	exp := dashboard.DefaultExportConfig()
	v.SetDefault("export.chrome_path", "")
	v.SetDefault("export.timeout", exp.Timeout)
	v.SetDefault("export.virtual_time_budget", exp.VirtualTimeBudget)
	v.SetDefault("export.portrait", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.time_format", "")
}

// setStructDefaults registers every mapstructure key of def under prefix.
// Unmarshal only consults the environment for keys viper already knows.
func setStructDefaults(v *viper.Viper, prefix string, def any) {
	rv := reflect.ValueOf(def)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		key, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if key == "" || key == "-" || !f.IsExported() {
			continue
		}
		v.SetDefault(prefix+"."+key, rv.Field(i).Interface())
	}
}

// ConfigFilePath returns the file the last Load read from, or the
// per-user default location when none was found.
func ConfigFilePath() string {
	activeMu.RLock()
	defer activeMu.RUnlock()
	if activeFile != "" {
		return activeFile
	}
	return filepath.Join(homeDir(), ".forecastviz", "config.yaml")
}

// SaveToFile writes cfg to path as YAML, creating parent directories.
func SaveToFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
