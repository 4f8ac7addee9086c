package config

import (
	"flag"
	"strings"

	"github.com/nibzard/sheetplan/internal/utils"
)

// flagToSource maps flag names to source field names.
var flagToSource = map[string]string{
	"name":           "plan_name",
	"estimate":       "estimated_time",
	"tags":           "tags",
	"markers":        "subtask_markers",
	"schema":         "schema_file",
	"max-rows":       "max_rows",
	"max-cols":       "max_cols",
	"comma":          "csv.comma",
	"encoding":       "csv.encoding",
	"format":         "output_format",
	"out-dir":        "output_dir",
	"db":             "db_path",
	"addr":           "server.listen_addr",
	"api-key":        "server.api_key",
	"max-body":       "server.max_body_bytes",
	"workers":        "workers",
	"hook":           "hook_command",
	"log-level":      "log_level",
	"log-format":     "log_format",
	"log-timestamps": "log_timestamps",
	"log-caller":     "log_caller",
}

// parseFlags defines the global flags on fs and parses args. Flag
// defaults are the values loaded so far, so unset flags keep them.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet(appName, flag.ContinueOnError)
	}

	tags := strings.Join(cfg.Tags, ",")
	markers := strings.Join(cfg.SubtaskMarkers, ",")

	// Import
	fs.StringVar(&cfg.PlanName, "name", cfg.PlanName, "Plan title (default \"Imported Plan\")")
	fs.IntVar(&cfg.EstimatedTime, "estimate", cfg.EstimatedTime, "Estimated minutes per task")
	fs.StringVar(&tags, "tags", tags, "Comma-separated tags attached to every task")
	fs.StringVar(&markers, "markers", markers, "Comma-separated subtask row markers")
	fs.StringVar(&cfg.SchemaFile, "schema", cfg.SchemaFile, "Plan JSON Schema override (default embedded)")

	// Size policy
	fs.IntVar(&cfg.MaxRows, "max-rows", cfg.MaxRows, "Reject grids with more rows (0 = unlimited)")
	fs.IntVar(&cfg.MaxCols, "max-cols", cfg.MaxCols, "Reject grids with wider rows (0 = unlimited)")

	// CSV
	fs.StringVar(&cfg.CSV.Comma, "comma", cfg.CSV.Comma, "CSV field delimiter (single character or \"tab\")")
	fs.StringVar(&cfg.CSV.Encoding, "encoding", cfg.CSV.Encoding, "CSV character set (utf-8, windows-1252, latin1)")

	// Output
	fs.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Plan output format (json, yaml)")
	fs.StringVar(&cfg.OutputDir, "out-dir", cfg.OutputDir, "Output directory for batch")

	// Storage and server
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite plan store path")
	fs.StringVar(&cfg.Server.ListenAddr, "addr", cfg.Server.ListenAddr, "HTTP listen address for serve")
	fs.StringVar(&cfg.Server.APIKey, "api-key", cfg.Server.APIKey, "Bearer token required by the API (empty = no auth)")
	fs.Int64Var(&cfg.Server.MaxBodyBytes, "max-body", cfg.Server.MaxBodyBytes, "Maximum API request body in bytes")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent decodes for batch")
	fs.StringVar(&cfg.HookCommand, "hook", cfg.HookCommand, "Command run after each plan file is written")

	// Logging
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&cfg.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Show timestamps in logs")
	fs.BoolVar(&cfg.LogCaller, "log-caller", cfg.LogCaller, "Show caller location in logs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Track which flags were set and apply list values
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tags":
			cfg.Tags = utils.SplitAndTrim(tags, ",")
		case "markers":
			cfg.SubtaskMarkers = utils.SplitAndTrim(markers, ",")
		}
		if sources == nil {
			return
		}
		if fieldName, ok := flagToSource[f.Name]; ok {
			sources[fieldName] = SourceFlag
		}
	})

	return nil
}
