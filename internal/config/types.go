package config

import "github.com/nibzard/sheetplan/internal/decode"

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	// Files lists the config files that were read, lowest priority first.
	Files []string
}

// Default values.
const (
	DefaultEstimatedTime = decode.DefaultEstimatedTime
	DefaultMaxRows       = 10000
	DefaultMaxCols       = 1000
	DefaultOutputFormat  = "json"
	DefaultOutputDir     = "plans"
	DefaultDBPath        = "~/.sheetplan/plans.db"
	DefaultListenAddr    = "127.0.0.1:8080"
	DefaultMaxBodyBytes  = 10 << 20
	DefaultWorkers       = 4
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// DefaultTags returns the tags attached to imported tasks by default.
func DefaultTags() []string {
	return []string{decode.DefaultTag}
}

// DefaultSubtaskMarkers returns the label prefixes that mark subtask rows.
func DefaultSubtaskMarkers() []string {
	return append([]string(nil), decode.DefaultSubtaskMarkers...)
}

// Config holds the full configuration for sheetplan.
type Config struct {
	// Import
	PlanName       string   `toml:"plan_name"`
	EstimatedTime  int      `toml:"estimated_time"`
	Tags           []string `toml:"tags"`
	SubtaskMarkers []string `toml:"subtask_markers"`
	SchemaFile     string   `toml:"schema_file"`

	// Size policy for untrusted grids
	MaxRows int `toml:"max_rows"`
	MaxCols int `toml:"max_cols"`

	CSV CSVConfig `toml:"csv"`

	// Output
	OutputFormat string `toml:"output_format"`
	OutputDir    string `toml:"output_dir"`

	// Storage
	DBPath string `toml:"db_path"`

	Server ServerConfig `toml:"server"`

	// Batch
	Workers int `toml:"workers"`

	// HookCommand runs after each plan file is written. Empty disables it.
	HookCommand string `toml:"hook_command"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	// Project root (computed)
	ProjectRoot string `toml:"-"`
}

// CSVConfig controls how delimited grid files are read.
type CSVConfig struct {
	Comma    string `toml:"comma"`    // single character, or "tab"
	Encoding string `toml:"encoding"` // utf-8, windows-1252, latin1
}

// ServerConfig holds settings for the serve command.
type ServerConfig struct {
	ListenAddr   string `toml:"listen_addr"`
	APIKey       string `toml:"api_key"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}
