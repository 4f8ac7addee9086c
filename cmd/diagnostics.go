package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/nibzard/sheetplan/internal/config"
	"github.com/nibzard/sheetplan/internal/decode"
	"github.com/nibzard/sheetplan/internal/logging"
	"github.com/nibzard/sheetplan/internal/store"
)

// tailCommand prints the latest batch or watch run log.
func tailCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sheetplan tail", flag.ContinueOnError)
	follow := fs.Bool("f", false, "Follow the log (like tail -f)")
	fs.BoolVar(follow, "follow", false, "Follow the log (like tail -f)")
	n := fs.Int("n", 0, "Number of lines to show (0 = all)")
	logDir := fs.String("log-dir", runLogDir(), "Directory holding run logs")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	logs, err := logging.FindRunLogs(*logDir)
	if err != nil {
		return fmt.Errorf("finding run logs: %w", err)
	}
	if len(logs) == 0 {
		fmt.Println("No run logs found.")
		return nil
	}

	fmt.Printf("Tailing: %s\n", logs[0])
	if *follow {
		fmt.Println("(Ctrl+C to stop)")
	}
	fmt.Println()

	err = logging.Tail(ctx, os.Stdout, logs[0], *n, *follow)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// configCommand prints the effective configuration and where each value came from.
func configCommand(cws *config.ConfigWithSources, args []string) error {
	fs := flag.NewFlagSet("sheetplan config", flag.ContinueOnError)
	showSources := fs.Bool("sources", true, "List the source of every setting")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := *cws.Config
	if cfg.Server.APIKey != "" {
		cfg.Server.APIKey = "********"
	}

	if len(cws.Files) == 0 {
		fmt.Println("# no config files found")
	}
	for _, f := range cws.Files {
		fmt.Printf("# read %s\n", f)
	}
	if err := toml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if !*showSources {
		return nil
	}
	keys := make([]string, 0, len(cws.Sources))
	for k := range cws.Sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println()
	fmt.Println("# sources")
	for _, k := range keys {
		fmt.Printf("# %-20s %s\n", k, cws.Sources[k])
	}
	return nil
}

// doctorCommand checks that configuration, storage, and the schema work.
func doctorCommand(ctx context.Context, cws *config.ConfigWithSources, args []string) error {
	fs := flag.NewFlagSet("sheetplan doctor", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := cws.Config

	fmt.Println("sheetplan doctor")
	fmt.Println("================")
	fmt.Println()

	allOK := true

	// Config files
	fmt.Println("Config:")
	if len(cws.Files) == 0 {
		fmt.Println("  ✅ No config files (using defaults)")
	}
	for _, f := range cws.Files {
		fmt.Printf("  ✅ %s\n", f)
	}
	if *verbose {
		fmt.Printf("  Markers: %s\n", strings.Join(cfg.SubtaskMarkers, " "))
		fmt.Printf("  Limits: %d rows, %d columns\n", cfg.MaxRows, cfg.MaxCols)
	}
	fmt.Println()

	// Decoder self-test with the sample grid
	fmt.Println("Decoder:")
	sample, err := decode.Decode(decode.SampleGrid(), cfg.DecodeOptions(time.Now()))
	if err != nil {
		fmt.Printf("  ❌ Sample grid: %v\n", err)
		allOK = false
	} else {
		fmt.Printf("  ✅ Sample grid: %d tasks\n", sample.TotalTasks)

		schemaLabel := "embedded"
		if cfg.SchemaFile != "" {
			schemaLabel = cfg.SchemaFile
		}
		result := sample.Validate(cfg.ValidationOptions())
		for _, w := range result.Warnings {
			fmt.Printf("  ⚠️  %s\n", w)
		}
		if result.Valid {
			fmt.Printf("  ✅ Schema (%s)\n", schemaLabel)
		} else {
			fmt.Printf("  ❌ Schema (%s) rejects the sample plan:\n", schemaLabel)
			for _, e := range result.Errors {
				fmt.Printf("     - %v\n", e)
			}
			allOK = false
		}
	}
	fmt.Println()

	// Plan store
	fmt.Printf("Plan store: %s\n", cfg.DBPath)
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		fmt.Printf("  ❌ Error: %v\n", err)
		allOK = false
	} else {
		summaries, err := store.NewPlanStore(db).List(ctx)
		if err != nil {
			fmt.Printf("  ❌ Error: %v\n", err)
			allOK = false
		} else {
			fmt.Printf("  ✅ OK (%d plans)\n", len(summaries))
		}
		db.Close()
	}
	fmt.Println()

	// Run logs
	dir := runLogDir()
	fmt.Printf("Run logs: %s\n", dir)
	logs, err := logging.FindRunLogs(dir)
	switch {
	case err != nil:
		fmt.Printf("  ❌ Error: %v\n", err)
		allOK = false
	case len(logs) == 0:
		fmt.Println("  ⚠️  None yet (created by batch and watch)")
	default:
		fmt.Printf("  ✅ %d logs, latest %s\n", len(logs), logs[0])
	}
	fmt.Println()

	if allOK {
		fmt.Println("✅ All checks passed!")
		return nil
	}
	fmt.Println("⚠️  Some checks failed.")
	return fmt.Errorf("doctor checks failed")
}
