// Package cmd implements the CLI command structure for sheetplan.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/sheetplan/internal/config"
	"github.com/nibzard/sheetplan/internal/decode"
	"github.com/nibzard/sheetplan/internal/grid"
	"github.com/nibzard/sheetplan/internal/logging"
	"github.com/nibzard/sheetplan/internal/plan"
)

// Version is set via ldflags at build time.
var Version = "dev"

// dateLayout is the accepted form of -start.
const dateLayout = "2006-01-02"

// Run executes the sheetplan CLI.
func Run(ctx context.Context, args []string) error {
	// Create a flag set for global options
	fs := flag.NewFlagSet("sheetplan", flag.ContinueOnError)
	fs.Usage = func() {
		printUsage(fs, os.Stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	// Global flags
	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := cws.Config
	if *help {
		printUsage(fs, os.Stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	logger := logging.FromConfig(cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps, cfg.LogCaller)

	// Determine the subcommand
	// If no args or first arg is a flag, use "import" as default
	subcommand := "import"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 {
		if !strings.HasPrefix(remainingArgs[0], "-") {
			subcommand = remainingArgs[0]
			remainingArgs = remainingArgs[1:]
		}
	}

	switch subcommand {
	case "import":
		return importCommand(ctx, cfg, logger, remainingArgs)
	case "validate":
		return validateCommand(cfg, remainingArgs)
	case "preview":
		return previewCommand(ctx, cfg, logger, remainingArgs)
	case "batch":
		return batchCommand(ctx, cfg, logger, remainingArgs)
	case "watch":
		return watchCommand(ctx, cfg, logger, remainingArgs)
	case "serve":
		return serveCommand(ctx, cfg, logger, remainingArgs)
	case "ls":
		return lsCommand(ctx, cfg, remainingArgs)
	case "show":
		return showCommand(ctx, cfg, remainingArgs)
	case "rm":
		return rmCommand(ctx, cfg, logger, remainingArgs)
	case "status":
		return statusCommand(ctx, cfg, logger, remainingArgs)
	case "template":
		return templateCommand(remainingArgs)
	case "tail":
		return tailCommand(ctx, remainingArgs)
	case "config":
		return configCommand(cws, remainingArgs)
	case "doctor":
		return doctorCommand(ctx, cws, remainingArgs)
	case "version", "--version", "-v":
		return versionCommand()
	case "help", "--help", "-h":
		printUsage(fs, os.Stdout)
		return nil
	default:
		// A bare grid file path imports it
		if fi, err := os.Stat(subcommand); err == nil && !fi.IsDir() && grid.IsGridFile(subcommand) {
			return importCommand(ctx, cfg, logger, append([]string{subcommand}, remainingArgs...))
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, os.Stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// versionCommand prints version information.
func versionCommand() error {
	fmt.Printf("sheetplan version %s\n", Version)
	return nil
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "sheetplan - turn a spreadsheet grid into a dated task plan")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  sheetplan [global options] [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  import <grid>         Decode a grid file into a plan (default command)")
	fmt.Fprintln(w, "  validate <plan>...    Validate plan files")
	fmt.Fprintln(w, "  preview <grid>        Decode a grid and browse the plan in the terminal")
	fmt.Fprintln(w, "  batch <grid|dir>...   Decode many grid files concurrently")
	fmt.Fprintln(w, "  watch <dir>           Import grid files as they appear in dir")
	fmt.Fprintln(w, "  serve                 Run the HTTP import API")
	fmt.Fprintln(w, "  ls                    List stored plans")
	fmt.Fprintln(w, "  show <id>             Print a stored plan")
	fmt.Fprintln(w, "  rm <id>               Delete a stored plan")
	fmt.Fprintln(w, "  status <id> <n> <s>   Set the status of task n in a stored plan")
	fmt.Fprintln(w, "  template              Write a sample grid as CSV")
	fmt.Fprintln(w, "  tail                  Show the latest batch or watch run log")
	fmt.Fprintln(w, "  config                Show the effective configuration and its sources")
	fmt.Fprintln(w, "  doctor                Check configuration, storage, and schema")
	fmt.Fprintln(w, "  version               Show version information")
	fmt.Fprintln(w, "  help                  Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Import Options (use with 'import' command):")
	fmt.Fprintln(w, "  -out string")
	fmt.Fprintln(w, "        Write the plan to this file instead of stdout")
	fmt.Fprintln(w, "  -start string")
	fmt.Fprintln(w, "        Date of the first day column, YYYY-MM-DD (default today)")
	fmt.Fprintln(w, "  -store")
	fmt.Fprintln(w, "        Save the plan in the plan database")
	fmt.Fprintln(w, "  -preview")
	fmt.Fprintln(w, "        Review the plan in the terminal before saving")
	fmt.Fprintln(w, "  -validate")
	fmt.Fprintln(w, "        Validate the decoded plan before writing it")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Batch Options (use with 'batch' command):")
	fmt.Fprintln(w, "  -fail-fast")
	fmt.Fprintln(w, "        Stop at the first failed file")
	fmt.Fprintln(w, "  -log-dir string")
	fmt.Fprintln(w, "        Directory for run logs (default ~/.sheetplan/runs)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tail Options (use with 'tail' command):")
	fmt.Fprintln(w, "  -f, --follow")
	fmt.Fprintln(w, "        Follow the log (like tail -f)")
	fmt.Fprintln(w, "  -n int")
	fmt.Fprintln(w, "        Number of lines to show (0 = all)")
}

// parseStartDate parses -start. Blank means the decoder's current time.
func parseStartDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

// decodeFile loads the grid at path, applies the size policy, and decodes it.
func decodeFile(cfg *config.Config, logger *log.Logger, path string, start time.Time) (*plan.Plan, error) {
	g, err := grid.Load(path, cfg.CSVOptions())
	if err != nil {
		return nil, err
	}
	if err := cfg.Limits().Check(g); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	began := time.Now()
	p, err := decode.Decode(g, cfg.DecodeOptions(start))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("decoded grid",
		"path", path,
		"rows", g.Rows(),
		"days", g.RowLen(0)-1,
		"tasks", p.TotalTasks,
		"progress", p.Progress,
		"duration", time.Since(began),
	)
	return &p, nil
}

// writePlan writes p to path in format, or to stdout when path is empty.
func writePlan(p *plan.Plan, path string, format plan.Format) error {
	data, err := plan.Marshal(p, format)
	if err != nil {
		return err
	}
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}

// outputPath names the plan file written for a grid source.
func outputPath(dir, source string, format plan.Format) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(dir, base+"."+string(format))
}

// runLogDir returns the default directory for batch and watch run logs.
func runLogDir() string {
	return filepath.Join(config.UserDir(), "runs")
}

// flagWasSet reports whether name was given explicitly on fs.
func flagWasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// singleArg returns the one positional argument a command requires.
func singleArg(fs *flag.FlagSet, what string) (string, error) {
	remaining := fs.Args()
	if len(remaining) == 0 {
		return "", fmt.Errorf("missing %s", what)
	}
	if len(remaining) > 1 {
		return "", fmt.Errorf("unexpected arguments: %v", remaining[1:])
	}
	return remaining[0], nil
}
