package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/sheetplan/internal/config"
	"github.com/nibzard/sheetplan/internal/decode"
	"github.com/nibzard/sheetplan/internal/grid"
	"github.com/nibzard/sheetplan/internal/plan"
	"github.com/nibzard/sheetplan/internal/store"
	"github.com/nibzard/sheetplan/internal/ui"
)

// importCommand decodes one grid file and writes, stores, or previews the plan.
func importCommand(ctx context.Context, cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("sheetplan import", flag.ContinueOnError)
	out := fs.String("out", "", "Write the plan to this file instead of stdout")
	formatArg := fs.String("format", cfg.OutputFormat, "Plan output format (json, yaml)")
	startArg := fs.String("start", "", "Date of the first day column, YYYY-MM-DD (default today)")
	save := fs.Bool("store", false, "Save the plan in the plan database")
	preview := fs.Bool("preview", false, "Review the plan in the terminal before saving")
	validate := fs.Bool("validate", false, "Validate the decoded plan before writing it")

	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := singleArg(fs, "grid file")
	if err != nil {
		return err
	}

	format, err := plan.ParseFormat(*formatArg)
	if err != nil {
		return err
	}
	if *out != "" && !flagWasSet(fs, "format") {
		format = plan.FormatForPath(*out)
	}
	start, err := parseStartDate(*startArg)
	if err != nil {
		return err
	}

	p, err := decodeFile(cfg, logger, path, start)
	if err != nil {
		return err
	}

	if *validate {
		result := p.Validate(cfg.ValidationOptions())
		for _, w := range result.Warnings {
			logger.Warn(w)
		}
		if err := result.Err(); err != nil {
			return fmt.Errorf("decoded plan is invalid: %w", err)
		}
	}

	if *preview {
		ok, err := ui.RunPreview(ctx, p, ui.WithConfirm(true), ui.WithSource(path))
		if err != nil {
			return err
		}
		if !ok {
			logger.Info("import cancelled", "path", path)
			return nil
		}
	}

	if *save {
		if err := storePlan(ctx, cfg, p); err != nil {
			return err
		}
		logger.Info("plan stored", "id", p.ID, "db", cfg.DBPath)
	}

	if err := writePlan(p, *out, format); err != nil {
		return err
	}
	runHook(ctx, cfg, logger, "import", path, *out)
	logger.Info("plan imported",
		"path", path,
		"tasks", p.TotalTasks,
		"completed", p.CompletedTasks,
		"progress", fmt.Sprintf("%.1f%%", p.Progress),
	)
	return nil
}

// storePlan inserts p into the configured plan database.
func storePlan(ctx context.Context, cfg *config.Config, p *plan.Plan) error {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening plan store: %w", err)
	}
	defer db.Close()
	return store.NewPlanStore(db).Insert(ctx, p)
}

// previewCommand decodes a grid and opens it in the terminal viewer. The
// grid is decoded again on every refresh so edits show up live.
func previewCommand(ctx context.Context, cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("sheetplan preview", flag.ContinueOnError)
	startArg := fs.String("start", "", "Date of the first day column, YYYY-MM-DD (default today)")
	interval := fs.Duration("refresh", 2*time.Second, "Re-read the grid this often")

	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := singleArg(fs, "grid file")
	if err != nil {
		return err
	}
	start, err := parseStartDate(*startArg)
	if err != nil {
		return err
	}
	if start.IsZero() {
		// Pin the start so reloads keep the same dates.
		start = time.Now()
	}

	p, err := decodeFile(cfg, logger, path, start)
	if err != nil {
		return err
	}
	reload := func() (*plan.Plan, error) {
		return decodeFile(cfg, logger, path, start)
	}
	_, err = ui.RunPreview(ctx, p, ui.WithSource(path), ui.WithReload(reload, *interval))
	return err
}

// validateCommand checks plan files against the schema and consistency rules.
func validateCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sheetplan validate", flag.ContinueOnError)
	noSchema := fs.Bool("no-schema", false, "Skip JSON Schema validation")
	verbose := fs.Bool("v", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		return fmt.Errorf("missing plan file")
	}

	opts := cfg.ValidationOptions()
	opts.SkipSchema = *noSchema

	failed := 0
	for _, path := range paths {
		fmt.Printf("%s\n", path)
		p, err := plan.Load(path)
		if err != nil {
			fmt.Printf("  ❌ Load error: %v\n", err)
			failed++
			continue
		}
		result := p.Validate(opts)
		for _, w := range result.Warnings {
			fmt.Printf("  ⚠️  %s\n", w)
		}
		if !result.Valid {
			fmt.Println("  ❌ Validation failed:")
			for _, e := range result.Errors {
				fmt.Printf("     - %v\n", e)
			}
			failed++
			continue
		}
		fmt.Println("  ✅ Valid")
		if *verbose {
			fmt.Printf("  Tasks: %d (%d completed, %.1f%%)\n", p.TotalTasks, p.CompletedTasks, p.Progress)
			for _, t := range p.Tasks {
				fmt.Printf("    - [%s] %s: %s\n", t.Status, t.Date.Format(dateLayout), t.Title)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("validation failed for %d of %d files", failed, len(paths))
	}
	return nil
}

// templateCommand writes a sample grid that shows every row kind.
func templateCommand(args []string) error {
	fs := flag.NewFlagSet("sheetplan template", flag.ContinueOnError)
	out := fs.String("o", "", "Write the template to this file instead of stdout")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if *out == "" {
		return grid.WriteCSV(os.Stdout, decode.SampleGrid())
	}
	if _, err := os.Stat(*out); err == nil {
		return fmt.Errorf("%s already exists", *out)
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	if err := grid.WriteCSV(f, decode.SampleGrid()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	fmt.Printf("Created %s\n", *out)
	return nil
}
