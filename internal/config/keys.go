package config

import (
	"os"
	"strconv"
	"strings"
)

// SettingSource represents where an effective setting comes from.
type SettingSource string

const (
	SourceEnv     SettingSource = "env"
	SourceConfig  SettingSource = "config"
	SourceDefault SettingSource = "default"
)

// SettingStatus describes one setting for the status command.
type SettingStatus struct {
	Name   string        `json:"name"`
	Key    string        `json:"key"`
	Value  string        `json:"value"`
	Source SettingSource `json:"source"`
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// CheckSettings reports the settings that most often surprise users and
// where each value came from.
func CheckSettings(cfg *Config) []SettingStatus {
	seed := ""
	if cfg.Render.Seed != nil {
		seed = strconv.FormatUint(*cfg.Render.Seed, 10)
	}
	return []SettingStatus{
		checkSetting("Output directory", "render.output_dir", cfg.Render.OutputDir, "."),
		checkSetting("Histogram seed", "render.seed", seed, ""),
		checkSetting("Runtime bundle", "render.runtime_bundle", cfg.Render.RuntimeBundle, ""),
		checkSetting("Assets host", "render.assets_host", cfg.Render.AssetsHost, ""),
		checkSetting("API address", "api.port", cfg.API.Addr(), "127.0.0.1:8090"),
		checkSetting("Chromium binary", "export.chrome_path", cfg.Export.ChromePath, ""),
		checkSetting("Log level", "logging.level", cfg.Logging.Level, "info"),
	}
}

// checkSetting classifies a value by whether its env var is set or it
// differs from the built-in default.
func checkSetting(name, key, value, def string) SettingStatus {
	status := SettingStatus{Name: name, Key: key, Value: value}
	switch {
	case os.Getenv(EnvName(key)) != "":
		status.Source = SourceEnv
	case value != def:
		status.Source = SourceConfig
	default:
		status.Source = SourceDefault
	}
	if status.Value == "" {
		status.Value = "-"
	}
	return status
}
