package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/nibzard/sheetplan/internal/utils"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SHEETPLAN_"

// loadFromEnv overrides config from SHEETPLAN_* environment variables.
// If sources is non-nil, it tracks the source of each value.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) error {
	mark := func(field string) {
		if sources != nil {
			sources[field] = SourceEnv
		}
	}
	str := func(name, field string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
			mark(field)
		}
	}
	list := func(name, field string, dst *[]string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = utils.SplitAndTrim(v, ",")
			mark(field)
		}
	}
	boolean := func(name, field string, dst *bool) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = utils.BoolFromString(v)
			mark(field)
		}
	}
	var errs []error
	num := func(name, field string, dst *int) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = i
			mark(field)
		}
	}

	str("PLAN_NAME", "plan_name", &cfg.PlanName)
	num("ESTIMATED_TIME", "estimated_time", &cfg.EstimatedTime)
	list("TAGS", "tags", &cfg.Tags)
	list("SUBTASK_MARKERS", "subtask_markers", &cfg.SubtaskMarkers)
	str("SCHEMA", "schema_file", &cfg.SchemaFile)
	num("MAX_ROWS", "max_rows", &cfg.MaxRows)
	num("MAX_COLS", "max_cols", &cfg.MaxCols)
	str("CSV_COMMA", "csv.comma", &cfg.CSV.Comma)
	str("CSV_ENCODING", "csv.encoding", &cfg.CSV.Encoding)
	str("FORMAT", "output_format", &cfg.OutputFormat)
	str("OUT_DIR", "output_dir", &cfg.OutputDir)
	str("DB", "db_path", &cfg.DBPath)
	str("ADDR", "server.listen_addr", &cfg.Server.ListenAddr)
	str("API_KEY", "server.api_key", &cfg.Server.APIKey)
	if v := os.Getenv(EnvPrefix + "MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_BODY_BYTES: %w", EnvPrefix, err))
		} else {
			cfg.Server.MaxBodyBytes = n
			mark("server.max_body_bytes")
		}
	}
	num("WORKERS", "workers", &cfg.Workers)
	str("HOOK", "hook_command", &cfg.HookCommand)

	// Logging configuration
	str("LOG_LEVEL", "log_level", &cfg.LogLevel)
	str("LOG_FORMAT", "log_format", &cfg.LogFormat)
	boolean("LOG_TIMESTAMPS", "log_timestamps", &cfg.LogTimestamps)
	boolean("LOG_CALLER", "log_caller", &cfg.LogCaller)

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
