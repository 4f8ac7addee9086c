package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/nibzard/sheetplan/internal/config"
	"github.com/nibzard/sheetplan/internal/grid"
	"github.com/nibzard/sheetplan/internal/hooks"
	"github.com/nibzard/sheetplan/internal/logging"
	"github.com/nibzard/sheetplan/internal/parallel"
	"github.com/nibzard/sheetplan/internal/plan"
	"github.com/nibzard/sheetplan/internal/store"
)

// importer decodes grid files into plan files and optionally stores them.
// It is shared by batch and watch.
type importer struct {
	cfg    *config.Config
	logger *log.Logger
	label  string
	start  time.Time
	outDir string
	format plan.Format
	plans  *store.PlanStore
	runLog *logging.RunLog

	// outputs and conflicts are set by assignOutputs for a known batch.
	outputs   map[string]string
	conflicts map[string]error
}

// assignOutputs maps every source to its plan file. A source whose plan
// file would overwrite an input grid, or be written by another source
// too, gets a conflict and is never decoded.
func (im *importer) assignOutputs(sources []string) {
	im.outputs = make(map[string]string, len(sources))
	im.conflicts = make(map[string]error)

	inputs := make(map[string]string, len(sources))
	for _, src := range sources {
		inputs[absPath(src)] = src
	}
	writers := make(map[string][]string)
	for _, src := range sources {
		if _, ok := im.outputs[src]; ok {
			continue
		}
		out := outputPath(im.outDir, src, im.format)
		im.outputs[src] = out
		if input, ok := inputs[absPath(out)]; ok {
			im.conflicts[src] = fmt.Errorf("plan file %s would overwrite grid %s", out, input)
			continue
		}
		writers[absPath(out)] = append(writers[absPath(out)], src)
	}
	for _, srcs := range writers {
		if len(srcs) < 2 {
			continue
		}
		for _, src := range srcs {
			im.conflicts[src] = fmt.Errorf("plan file %s would be written by %s",
				im.outputs[src], strings.Join(srcs, ", "))
		}
	}
}

// planPath returns where the plan for source is written.
func (im *importer) planPath(source string) string {
	if out, ok := im.outputs[source]; ok {
		return out
	}
	return outputPath(im.outDir, source, im.format)
}

// checkOutput refuses a source whose plan file would clobber a grid.
func (im *importer) checkOutput(source string) error {
	if err := im.conflicts[source]; err != nil {
		return err
	}
	if out := im.planPath(source); absPath(out) == absPath(source) {
		return fmt.Errorf("plan file %s would overwrite grid %s", out, source)
	}
	return nil
}

// importFile decodes path, writes the plan next to the others in outDir,
// and stores it when a plan store is attached.
func (im *importer) importFile(ctx context.Context, path string) (*plan.Plan, error) {
	if err := im.checkOutput(path); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p, err := decodeFile(im.cfg, im.logger, path, im.start)
	if err != nil {
		return nil, err
	}
	if im.plans != nil {
		if err := im.plans.Insert(ctx, p); err != nil {
			return nil, fmt.Errorf("%s: store plan: %w", path, err)
		}
	}
	out := im.planPath(path)
	if err := writePlan(p, out, im.format); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	runHook(ctx, im.cfg, im.logger, im.label, path, out)
	return p, nil
}

// runHook invokes the configured hook for a written plan file. Hook
// failures are logged and never fail the import.
func runHook(ctx context.Context, cfg *config.Config, logger *log.Logger, label, source, planPath string) {
	if cfg.HookCommand == "" || planPath == "" {
		return
	}
	result, err := hooks.Invoke(ctx, hooks.Options{
		Command:  cfg.HookCommand,
		PlanPath: planPath,
		Source:   source,
		Label:    label,
	})
	if result.Ran {
		logger.Debug("hook ran", "command", strings.Join(result.Command, " "), "exit_code", result.ExitCode)
	}
	if err != nil {
		logger.Warn("hook failed", "plan", planPath, "error", err)
	}
}

// record appends the outcome of one import to the run log.
func (im *importer) record(r parallel.Result) {
	if im.runLog == nil {
		return
	}
	ev := logging.ImportEvent{
		Time:       time.Now().UTC(),
		Source:     r.Source,
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Error != nil {
		ev.Error = r.Error.Error()
	}
	if r.Plan != nil {
		ev.Output = im.planPath(r.Source)
		ev.PlanID = r.Plan.ID
		ev.Tasks = r.Plan.TotalTasks
		ev.Completed = r.Plan.CompletedTasks
		ev.Progress = r.Plan.Progress
	}
	if err := im.runLog.Append(ev); err != nil {
		im.logger.Warn("run log append failed", "error", err)
	}
}

// newImporter builds the shared importer from common batch/watch flags.
// The returned cleanup closes the store and run log.
func newImporter(cfg *config.Config, logger *log.Logger, outDir, formatArg, startArg string, save bool, logDir, label string) (*importer, func(), error) {
	format, err := plan.ParseFormat(formatArg)
	if err != nil {
		return nil, nil, err
	}
	start, err := parseStartDate(startArg)
	if err != nil {
		return nil, nil, err
	}
	if outDir == "" {
		return nil, nil, fmt.Errorf("missing output directory (use -out-dir)")
	}

	im := &importer{
		cfg:    cfg,
		logger: logger,
		label:  label,
		start:  start,
		outDir: outDir,
		format: format,
	}
	var closers []func()

	if save {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening plan store: %w", err)
		}
		im.plans = store.NewPlanStore(db)
		closers = append(closers, func() { db.Close() })
	}

	if logDir != "" {
		runLog, err := logging.NewRunLog(logDir, label)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, err
		}
		im.runLog = runLog
		closers = append(closers, func() { runLog.Close() })
		logger.Debug("run log", "path", runLog.Path)
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return im, cleanup, nil
}

// batchCommand decodes many grid files concurrently.
func batchCommand(ctx context.Context, cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("sheetplan batch", flag.ContinueOnError)
	outDir := fs.String("out-dir", cfg.OutputDir, "Directory for the plan files")
	formatArg := fs.String("format", cfg.OutputFormat, "Plan output format (json, yaml)")
	startArg := fs.String("start", "", "Date of the first day column, YYYY-MM-DD (default today)")
	workers := fs.Int("workers", cfg.Workers, "Concurrent decodes")
	failFast := fs.Bool("fail-fast", false, "Stop at the first failed file")
	save := fs.Bool("store", false, "Save every plan in the plan database")
	logDir := fs.String("log-dir", runLogDir(), "Directory for run logs (empty disables)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) == 0 {
		return fmt.Errorf("missing grid files or directories")
	}

	paths, err := parallel.SelectFiles(fs.Args())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("No grid files found.")
		return nil
	}

	im, cleanup, err := newImporter(cfg, logger, *outDir, *formatArg, *startArg, *save, *logDir, "batch")
	if err != nil {
		return err
	}
	defer cleanup()
	im.assignOutputs(paths)

	logger.Info("batch started", "files", len(paths), "workers", *workers)
	results, errs := parallel.DecodeFiles(ctx, paths, *workers, *failFast, im.importFile)

	imported := 0
	for _, r := range results {
		im.record(r)
		switch {
		case r.Skipped:
			fmt.Printf("  ⏭️  %s: skipped\n", r.Source)
		case r.Error != nil:
			fmt.Printf("  ❌ %s: %v\n", r.Source, r.Error)
		default:
			imported++
			fmt.Printf("  ✅ %s -> %s (%d tasks, %.1f%%)\n",
				r.Source, im.planPath(r.Source), r.Plan.TotalTasks, r.Plan.Progress)
		}
	}
	fmt.Printf("\n%d imported, %d failed, %d skipped\n", imported, len(errs), len(results)-imported-len(errs))

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d files failed", len(errs), len(results))
	}
	return ctx.Err()
}

// watchCommand imports grid files from dir as they are created or changed.
func watchCommand(ctx context.Context, cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("sheetplan watch", flag.ContinueOnError)
	outDir := fs.String("out-dir", "", "Directory for the plan files (default <dir>/plans)")
	formatArg := fs.String("format", cfg.OutputFormat, "Plan output format (json, yaml)")
	startArg := fs.String("start", "", "Date of the first day column, YYYY-MM-DD (default today)")
	save := fs.Bool("store", false, "Save every plan in the plan database")
	existing := fs.Bool("existing", false, "Import grid files already in dir at startup")
	debounce := fs.Duration("debounce", 200*time.Millisecond, "Wait this long after the last change before importing")
	logDir := fs.String("log-dir", runLogDir(), "Directory for run logs (empty disables)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	dir, err := singleArg(fs, "directory to watch")
	if err != nil {
		return err
	}
	if info, err := os.Stat(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	} else if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", dir)
	}
	if *outDir == "" {
		// A subdirectory keeps written .json plans out of the watched set.
		*outDir = filepath.Join(dir, "plans")
	}
	if sameDir(*outDir, dir) {
		return fmt.Errorf("output directory must differ from the watched directory")
	}

	im, cleanup, err := newImporter(cfg, logger, *outDir, *formatArg, *startArg, *save, *logDir, "watch")
	if err != nil {
		return err
	}
	defer cleanup()

	handle := func(path string) {
		began := time.Now()
		p, err := im.importFile(ctx, path)
		r := parallel.Result{Source: path, Plan: p, Error: err, Duration: time.Since(began)}
		im.record(r)
		if err != nil {
			logger.Error("import failed", "path", path, "error", err)
			return
		}
		logger.Info("plan imported", "path", path, "tasks", p.TotalTasks, "progress", fmt.Sprintf("%.1f%%", p.Progress))
	}

	if *existing {
		paths, err := parallel.SelectFiles([]string{dir})
		if err != nil {
			return err
		}
		for _, path := range paths {
			handle(path)
		}
	}

	logger.Info("watching for grid files", "dir", dir, "out", *outDir)
	err = watchDir(ctx, dir, *debounce, handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func sameDir(a, b string) bool {
	return absPath(a) == absPath(b)
}

// absPath returns the cleaned absolute form of path, or path itself when
// it cannot be made absolute.
func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// watchDir calls handle for every grid file in dir that is created or
// written, once per burst of events. It returns when ctx is done.
func watchDir(ctx context.Context, dir string, debounce time.Duration, handle func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	// Debounce events - editors and exporters often write a file in several steps
	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !grid.IsGridFile(event.Name) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(debounce)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for path := range pending {
				paths = append(paths, path)
			}
			sort.Strings(paths)
			for _, path := range paths {
				if info, err := os.Stat(path); err != nil || info.IsDir() {
					continue
				}
				handle(path)
			}
			pending = make(map[string]bool)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
}
