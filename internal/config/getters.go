package config

import (
	"time"

	"github.com/nibzard/sheetplan/internal/decode"
	"github.com/nibzard/sheetplan/internal/grid"
	"github.com/nibzard/sheetplan/internal/plan"
)

// DecodeOptions returns decoder options for a plan starting at start.
// A zero start lets the decoder use the current time.
func (c *Config) DecodeOptions(start time.Time) decode.Options {
	return decode.Options{
		PlanName:       c.PlanName,
		StartDate:      start,
		SubtaskMarkers: append([]string(nil), c.SubtaskMarkers...),
		Tags:           append([]string{}, c.Tags...),
		EstimatedTime:  c.EstimatedTime,
	}
}

// Limits returns the grid size policy.
func (c *Config) Limits() grid.Limits {
	return grid.Limits{MaxRows: c.MaxRows, MaxCols: c.MaxCols}
}

// CSVOptions returns the options used to read delimited grid files.
func (c *Config) CSVOptions() grid.CSVOptions {
	comma, err := parseComma(c.CSV.Comma)
	if err != nil {
		comma = ','
	}
	return grid.CSVOptions{Comma: comma, Encoding: c.CSV.Encoding}
}

// Format returns the configured plan output format.
func (c *Config) Format() plan.Format {
	f, err := plan.ParseFormat(c.OutputFormat)
	if err != nil {
		return plan.FormatJSON
	}
	return f
}

// ValidationOptions returns plan validation options honoring SchemaFile.
func (c *Config) ValidationOptions() plan.ValidationOptions {
	return plan.ValidationOptions{SchemaPath: c.SchemaFile}
}
