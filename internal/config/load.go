package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"

	"github.com/nibzard/sheetplan/internal/plan"
)

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.sheetplan/sheetplan.toml or OS-specific config dir)
// 3. Project config file (sheetplan.toml or .sheetplan.toml in current directory)
// 4. Environment variables
// 5. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cws, err := LoadWithSources(fs, args)
	if err != nil {
		return nil, err
	}
	return cws.Config, nil
}

// LoadWithSources loads configuration and tracks the source of each value.
func LoadWithSources(fs *flag.FlagSet, args []string) (*ConfigWithSources, error) {
	sources := make(map[string]ConfigSource)
	cfg := &Config{}

	// 1. Set defaults (all fields start with default source)
	setDefaults(cfg)
	for _, field := range configFields() {
		sources[field] = SourceDefault
	}

	var files []string

	// 2. Try to load from user config file
	if userConfigFile := findUserConfigFile(); userConfigFile != "" {
		if err := loadConfigFile(cfg, userConfigFile, sources, SourceUserFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", userConfigFile, err)
		}
		files = append(files, userConfigFile)
	}

	// 3. Try to load from project config file (overrides user config)
	if projectConfigFile := findProjectConfigFile(); projectConfigFile != "" {
		if err := loadConfigFile(cfg, projectConfigFile, sources, SourceProjFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", projectConfigFile, err)
		}
		files = append(files, projectConfigFile)
	}

	// 4. Override from environment
	if err := loadFromEnv(cfg, sources); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	// 5. Parse CLI flags (they override everything)
	if err := parseFlags(cfg, fs, args, sources); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// 6. Compute derived values
	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}

	return &ConfigWithSources{
		Config:  cfg,
		Sources: sources,
		Files:   files,
	}, nil
}

// configFields returns the list of configurable field names for source tracking.
func configFields() []string {
	return []string{
		"plan_name",
		"estimated_time",
		"tags",
		"subtask_markers",
		"schema_file",
		"max_rows",
		"max_cols",
		"csv.comma",
		"csv.encoding",
		"output_format",
		"output_dir",
		"db_path",
		"server.listen_addr",
		"server.api_key",
		"server.max_body_bytes",
		"workers",
		"hook_command",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
	}
}

// loadConfigFile decodes a TOML file over cfg. Keys present in the file
// are marked with source.
func loadConfigFile(cfg *Config, path string, sources map[string]ConfigSource, source ConfigSource) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	for _, key := range md.Keys() {
		if sources != nil {
			if _, known := sources[key.String()]; known {
				sources[key.String()] = source
			}
		}
	}
	return nil
}

// finalizeConfig computes derived values and validates settings.
func finalizeConfig(cfg *Config) error {
	// Determine project root
	if cfg.ProjectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		cfg.ProjectRoot = wd
	}

	// Expand ~ in paths
	cfg.DBPath = expandPath(cfg.DBPath)
	cfg.OutputDir = expandPath(cfg.OutputDir)
	cfg.SchemaFile = expandPath(cfg.SchemaFile)
	if cfg.SchemaFile != "" && !filepath.IsAbs(cfg.SchemaFile) {
		cfg.SchemaFile = filepath.Join(cfg.ProjectRoot, cfg.SchemaFile)
	}

	format, err := plan.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return err
	}
	cfg.OutputFormat = string(format)

	if _, err := parseComma(cfg.CSV.Comma); err != nil {
		return err
	}
	if cfg.EstimatedTime < 0 {
		return fmt.Errorf("estimated_time must not be negative, got %d", cfg.EstimatedTime)
	}
	if cfg.MaxRows < 0 || cfg.MaxCols < 0 {
		return fmt.Errorf("max_rows and max_cols must not be negative")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return nil
}

// parseComma turns the configured delimiter into a rune. Empty means ','.
func parseComma(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return 0, fmt.Errorf("csv comma must be a single character, got %q", s)
	}
	if r == '\r' || r == '\n' || r == '"' {
		return 0, fmt.Errorf("csv comma %q is not a valid delimiter", s)
	}
	return r, nil
}
