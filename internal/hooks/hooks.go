// Package hooks runs an external command after a plan file is written.
package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nibzard/sheetplan/internal/plan"
)

// Options configures one hook invocation.
type Options struct {
	// Command is the executable to run. Empty disables the hook.
	Command string
	// PlanPath is the plan file just written. The hook is skipped when
	// it is empty or missing.
	PlanPath string
	// Source is the grid file the plan was decoded from.
	Source string
	// Label names the command that produced the plan (import, batch, watch).
	Label string
	// WorkDir is the hook's working directory. Empty uses the current one.
	WorkDir string
	// Output receives the hook's stdout and stderr. Nil uses os.Stderr.
	Output io.Writer
}

// Result describes a finished hook invocation.
type Result struct {
	Ran      bool
	Command  []string
	PlanID   string
	Title    string
	ExitCode int
}

// Invoke runs the hook as `<command> <label> <plan-path>`. The plan id,
// title and source are also exported as SHEETPLAN_* variables.
func Invoke(ctx context.Context, opts Options) (Result, error) {
	if opts.Command == "" || opts.PlanPath == "" {
		return Result{}, nil
	}

	info, err := os.Stat(opts.PlanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("stat plan file: %w", err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("plan path %s is a directory", opts.PlanPath)
	}

	data, err := os.ReadFile(opts.PlanPath)
	if err != nil {
		return Result{}, fmt.Errorf("read plan file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Result{}, fmt.Errorf("plan file %s is empty", opts.PlanPath)
	}

	decoded, err := decodePlanFile(opts.PlanPath, data)
	if err != nil {
		return Result{}, err
	}
	planID, title := extractPlanFields(decoded)

	args := []string{opts.Label, opts.PlanPath}
	cmd := exec.CommandContext(ctx, opts.Command, args...)
	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}
	cmd.Env = append(os.Environ(),
		"SHEETPLAN_PLAN="+opts.PlanPath,
		"SHEETPLAN_PLAN_ID="+planID,
		"SHEETPLAN_PLAN_TITLE="+title,
		"SHEETPLAN_SOURCE="+opts.Source,
		"SHEETPLAN_LABEL="+opts.Label,
	)
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	cmd.Stdout = out
	cmd.Stderr = out

	result := Result{
		Ran:     true,
		Command: append([]string{opts.Command}, args...),
		PlanID:  planID,
		Title:   title,
	}
	runErr := cmd.Run()
	result.ExitCode = exitCodeFromError(runErr)
	if runErr != nil {
		return result, fmt.Errorf("hook %s: %w", opts.Command, runErr)
	}
	return result, nil
}

func decodePlanFile(path string, data []byte) (any, error) {
	var decoded any
	if plan.FormatForPath(path) == plan.FormatYAML {
		if err := yaml.Unmarshal(data, &decoded); err != nil {
			return nil, fmt.Errorf("plan file %s is not valid YAML: %w", path, err)
		}
		return decoded, nil
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("plan file %s is not valid JSON: %w", path, err)
	}
	return decoded, nil
}

func extractPlanFields(decoded any) (string, string) {
	obj, ok := decoded.(map[string]any)
	if !ok {
		return "", ""
	}
	return stringField(obj["id"]), stringField(obj["title"])
}

func stringField(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
