package plan

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nibzard/sheetplan/internal/utils"
)

//go:embed plan.schema.json
var embeddedSchema []byte

const embeddedSchemaURL = "plan.schema.json"

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path string // JSON path to the error location
	Err  error  // Underlying error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationOptions controls validation behavior.
type ValidationOptions struct {
	// SchemaPath overrides the embedded schema with a file on disk.
	SchemaPath string
	// SkipSchema disables JSON Schema validation entirely.
	SkipSchema bool
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Valid      bool
	Errors     []error
	Warnings   []string
	UsedSchema bool // true if JSON Schema validation was performed
}

// Err joins all validation errors, or returns nil when the plan is valid.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return errors.Join(r.Errors...)
}

// Validate validates the plan.
func (p *Plan) Validate(opts ValidationOptions) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]error, 0),
		Warnings: make([]string, 0),
	}

	if !opts.SkipSchema {
		schemaResult := validateWithSchema(p, opts.SchemaPath)
		result.UsedSchema = schemaResult.UsedSchema
		result.Warnings = append(result.Warnings, schemaResult.Warnings...)
		if !schemaResult.Valid {
			result.Valid = false
			result.Errors = append(result.Errors, schemaResult.Errors...)
		}
		if !schemaResult.UsedSchema {
			result.Warnings = append(result.Warnings, "JSON Schema validation not available, using minimal checks")
		}
	}

	p.validateConsistency(result)

	return result
}

func (r *ValidationResult) fail(path string, err error) {
	r.Valid = false
	r.Errors = append(r.Errors, &ValidationError{Path: path, Err: err})
}

// validateConsistency checks the invariants a schema cannot express.
func (p *Plan) validateConsistency(result *ValidationResult) {
	if p.Title == "" {
		result.fail("title", fmt.Errorf("missing required field"))
	}
	if p.EndDate.Before(p.StartDate) {
		result.fail("endDate", fmt.Errorf("end date %s is before start date %s",
			p.EndDate.Format(time.RFC3339), p.StartDate.Format(time.RFC3339)))
	}

	completed := 0
	for i, t := range p.Tasks {
		path := fmt.Sprintf("tasks[%d]", i)
		if t.Title == "" {
			result.fail(path+".title", fmt.Errorf("missing required field"))
		}
		if t.Completed != IsCompletedStatus(t.Status) {
			result.fail(path+".completed", fmt.Errorf("completed=%v does not match status %q", t.Completed, t.Status))
		}
		if t.Date.Before(p.StartDate) || !t.Date.Before(p.EndDate) {
			result.fail(path+".date", fmt.Errorf("date %s is outside the plan range", t.Date.Format(time.RFC3339)))
		}
		if t.EstimatedTime < 0 {
			result.fail(path+".estimatedTime", fmt.Errorf("must not be negative, got %d", t.EstimatedTime))
		}
		if t.Completed {
			completed++
		}
	}

	if p.TotalTasks != len(p.Tasks) {
		result.fail("totalTasks", fmt.Errorf("expected %d, got %d", len(p.Tasks), p.TotalTasks))
	}
	if p.CompletedTasks != completed {
		result.fail("completedTasks", fmt.Errorf("expected %d, got %d", completed, p.CompletedTasks))
	}
	if want := ComputeProgress(completed, len(p.Tasks)); !closeEnough(p.Progress, want) {
		result.fail("progress", fmt.Errorf("expected %.2f, got %.2f", want, p.Progress))
	}
}

func closeEnough(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

// validateWithSchema attempts JSON Schema validation.
func validateWithSchema(p *Plan, schemaPath string) *ValidationResult {
	result := &ValidationResult{
		Valid:      true,
		Errors:     make([]error, 0),
		Warnings:   make([]string, 0),
		UsedSchema: false,
	}

	schema, warning := compileSchema(schemaPath)
	if schema == nil {
		result.Warnings = append(result.Warnings, warning)
		return result
	}

	result.UsedSchema = true

	// Marshal the plan back to JSON for validation
	data, err := json.Marshal(p)
	if err != nil {
		result.fail("", fmt.Errorf("failed to marshal plan for validation: %w", err))
		return result
	}

	var obj interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		result.fail("", fmt.Errorf("failed to unmarshal plan for validation: %w", err))
		return result
	}

	if err := schema.Validate(obj); err != nil {
		result.Valid = false
		appendSchemaErrors(result, err)
	}

	return result
}

func compileSchema(schemaPath string) (*jsonschema.Schema, string) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	if schemaPath == "" {
		if err := compiler.AddResource(embeddedSchemaURL, bytes.NewReader(embeddedSchema)); err != nil {
			return nil, fmt.Sprintf("invalid embedded schema: %v", err)
		}
		schema, err := compiler.Compile(embeddedSchemaURL)
		if err != nil {
			return nil, fmt.Sprintf("invalid embedded schema: %v", err)
		}
		return schema, ""
	}

	absPath, err := filepath.Abs(schemaPath)
	if err != nil {
		return nil, fmt.Sprintf("invalid schema path: %v", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Sprintf("schema file not found: %s", absPath)
		}
		return nil, fmt.Sprintf("failed to read schema file: %v", err)
	}

	schema, err := compiler.Compile(absPath)
	if err != nil {
		return nil, fmt.Sprintf("invalid schema file: %v", err)
	}
	return schema, ""
}

func appendSchemaErrors(result *ValidationResult, err error) {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		result.Errors = append(result.Errors, err)
		return
	}
	collectSchemaErrors(result, ve)
}

func collectSchemaErrors(result *ValidationResult, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}

	if len(err.Causes) == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Path: utils.JSONPointerToPath(err.InstanceLocation),
			Err:  fmt.Errorf("%s", err.Message),
		})
		return
	}

	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}
