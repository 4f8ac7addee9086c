package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/sheetplan/internal/config"
	"github.com/nibzard/sheetplan/internal/grid"
	"github.com/nibzard/sheetplan/internal/logging"
	"github.com/nibzard/sheetplan/internal/plan"
	"github.com/nibzard/sheetplan/internal/store"
)

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestImportCommand(t *testing.T) {
	work := isolate(t)
	writeSampleGrid(t, "week.csv")

	t.Run("writes json plan file", func(t *testing.T) {
		out := filepath.Join(work, "out", "week.json")
		if _, err := run(t, "-name", "Week 1", "import", "-start", "2024-01-01", "-out", out, "week.csv"); err != nil {
			t.Fatalf("import error = %v", err)
		}
		p, err := plan.Load(out)
		if err != nil {
			t.Fatalf("plan.Load() error = %v", err)
		}
		if p.Title != "Week 1" {
			t.Errorf("Title = %q, want Week 1", p.Title)
		}
		if p.TotalTasks != 5 || p.CompletedTasks != 2 || p.Progress != 40 {
			t.Errorf("totals = %d/%d/%v, want 5/2/40", p.TotalTasks, p.CompletedTasks, p.Progress)
		}
		if !p.StartDate.Equal(jan1) || !p.EndDate.Equal(jan1.AddDate(0, 0, 3)) {
			t.Errorf("dates = %v..%v", p.StartDate, p.EndDate)
		}
		if p.ID != "" {
			t.Errorf("unstored plan has ID %q", p.ID)
		}
	})

	t.Run("picks yaml from the output extension", func(t *testing.T) {
		out := filepath.Join(work, "week.yaml")
		if _, err := run(t, "import", "-start", "2024-01-01", "-out", out, "week.csv"); err != nil {
			t.Fatalf("import error = %v", err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "title: Imported Plan") {
			t.Errorf("yaml output = %s", data)
		}
	})

	t.Run("prints to stdout by default", func(t *testing.T) {
		stdout, err := run(t, "import", "-start", "2024-01-01", "week.csv")
		if err != nil {
			t.Fatalf("import error = %v", err)
		}
		p, err := plan.Unmarshal([]byte(stdout), plan.FormatJSON)
		if err != nil {
			t.Fatalf("stdout is not a plan: %v\n%s", err, stdout)
		}
		if len(p.Tasks) != 5 {
			t.Errorf("tasks = %d, want 5", len(p.Tasks))
		}
	})

	t.Run("bare grid path imports", func(t *testing.T) {
		stdout, err := run(t, "-format", "yaml", "week.csv")
		if err != nil {
			t.Fatalf("Run(week.csv) error = %v", err)
		}
		if !strings.Contains(stdout, "totalTasks: 5") {
			t.Errorf("stdout = %s", stdout)
		}
	})

	t.Run("validates before writing", func(t *testing.T) {
		if _, err := run(t, "import", "-validate", "-out", filepath.Join(work, "v.json"), "week.csv"); err != nil {
			t.Fatalf("import -validate error = %v", err)
		}
	})
}

func TestImportCommandErrors(t *testing.T) {
	isolate(t)
	writeSampleGrid(t, "week.csv")
	if err := os.WriteFile("header.csv", []byte("label\nTask 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile("notes.txt", []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file argument", []string{"import"}, "missing grid file"},
		{"extra arguments", []string{"import", "week.csv", "other.csv"}, "unexpected arguments"},
		{"bad start date", []string{"import", "-start", "tomorrow", "week.csv"}, "invalid start date"},
		{"bad format", []string{"import", "-format", "xml", "week.csv"}, "unknown plan format"},
		{"grid too large", []string{"-max-rows", "3", "import", "week.csv"}, "grid too large"},
		{"no day columns", []string{"import", "header.csv"}, "no day columns"},
		{"unsupported file type", []string{"import", "notes.txt"}, "unsupported grid file type"},
		{"missing file", []string{"import", "nope.csv"}, "open grid file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Run(%v) error = %v, want containing %q", tt.args, err, tt.want)
			}
		})
	}
}

func TestStoredPlanCommands(t *testing.T) {
	work := isolate(t)
	writeSampleGrid(t, "week.csv")
	db := filepath.Join(work, "db", "plans.db")
	out := filepath.Join(work, "stored.json")

	if _, err := run(t, "-db", db, "import", "-store", "-start", "2024-01-01", "-out", out, "week.csv"); err != nil {
		t.Fatalf("import -store error = %v", err)
	}
	written, err := plan.Load(out)
	if err != nil {
		t.Fatal(err)
	}
	id := written.ID
	if id == "" {
		t.Fatal("stored plan written without ID")
	}

	stdout, err := run(t, "-db", db, "ls")
	if err != nil {
		t.Fatalf("ls error = %v", err)
	}
	for _, want := range []string{"ID", id, "Imported Plan", "2024-01-01..2024-01-04", "2/5", "40.0%"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("ls output missing %q:\n%s", want, stdout)
		}
	}

	if _, err := run(t, "-db", db, "status", id, "4", "Completed"); err != nil {
		t.Fatalf("status error = %v", err)
	}
	stdout, err = run(t, "-db", db, "show", id)
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	shown, err := plan.Unmarshal([]byte(stdout), plan.FormatJSON)
	if err != nil {
		t.Fatalf("show output is not a plan: %v", err)
	}
	if !shown.Tasks[4].Completed || shown.CompletedTasks != 3 {
		t.Errorf("after status: task 4 = %+v, completed = %d", shown.Tasks[4], shown.CompletedTasks)
	}

	stdout, err = run(t, "-db", db, "show", "-format", "yaml", id)
	if err != nil || !strings.Contains(stdout, "id: "+id) {
		t.Errorf("show -format yaml = %q, %v", stdout, err)
	}

	if _, err := run(t, "-db", db, "status", id, "9", "Completed"); err == nil || !strings.Contains(err.Error(), "has no task 9") {
		t.Errorf("status out of range error = %v", err)
	}
	if _, err := run(t, "-db", db, "status", id, "x", "Completed"); err == nil {
		t.Error("status with bad index succeeded")
	}

	if _, err := run(t, "-db", db, "rm", id); err != nil {
		t.Fatalf("rm error = %v", err)
	}
	if _, err := run(t, "-db", db, "show", id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("show after rm error = %v, want ErrNotFound", err)
	}
	if _, err := run(t, "-db", db, "rm", id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second rm error = %v, want ErrNotFound", err)
	}

	stdout, err = run(t, "-db", db, "ls")
	if err != nil || !strings.Contains(stdout, "No plans stored.") {
		t.Errorf("ls after rm = %q, %v", stdout, err)
	}
}

func TestValidateCommand(t *testing.T) {
	work := isolate(t)
	writeSampleGrid(t, "week.csv")
	good := filepath.Join(work, "good.json")
	if _, err := run(t, "import", "-out", good, "week.csv"); err != nil {
		t.Fatal(err)
	}

	p, err := plan.Load(good)
	if err != nil {
		t.Fatal(err)
	}
	p.TotalTasks = 99
	bad := filepath.Join(work, "bad.json")
	if err := p.Save(bad); err != nil {
		t.Fatal(err)
	}

	t.Run("valid file passes validation", func(t *testing.T) {
		stdout, err := run(t, "validate", "-v", good)
		if err != nil {
			t.Fatalf("validate error = %v", err)
		}
		if !strings.Contains(stdout, "✅ Valid") || !strings.Contains(stdout, "Tasks: 5") {
			t.Errorf("stdout = %s", stdout)
		}
	})

	t.Run("invalid file fails validation", func(t *testing.T) {
		stdout, err := run(t, "validate", good, bad)
		if err == nil || !strings.Contains(err.Error(), "1 of 2 files") {
			t.Errorf("validate error = %v", err)
		}
		if !strings.Contains(stdout, "❌ Validation failed") {
			t.Errorf("stdout = %s", stdout)
		}
	})

	t.Run("non-existent file returns error", func(t *testing.T) {
		if _, err := run(t, "validate", "nonexistent.json"); err == nil {
			t.Error("expected error for non-existent file")
		}
	})

	t.Run("no files returns error", func(t *testing.T) {
		if _, err := run(t, "validate"); err == nil {
			t.Error("expected error without files")
		}
	})
}

func TestBatchCommand(t *testing.T) {
	work := isolate(t)
	in := filepath.Join(work, "grids")
	if err := os.MkdirAll(in, 0755); err != nil {
		t.Fatal(err)
	}
	writeSampleGrid(t, filepath.Join(in, "a.csv"))
	writeSampleGrid(t, filepath.Join(in, "b.csv"))
	if err := os.WriteFile(filepath.Join(in, "bad.csv"), []byte("only a label\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(in, "notes.txt"), []byte("skip me"), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(work, "plans")
	logs := filepath.Join(work, "runs")

	stdout, err := run(t, "batch", "-out-dir", out, "-format", "yaml", "-log-dir", logs, "-workers", "2", in)
	if err == nil || !strings.Contains(err.Error(), "1 of 3 files failed") {
		t.Fatalf("batch error = %v", err)
	}
	if !strings.Contains(stdout, "2 imported, 1 failed, 0 skipped") {
		t.Errorf("stdout = %s", stdout)
	}

	for _, name := range []string{"a.yaml", "b.yaml"} {
		p, err := plan.Load(filepath.Join(out, name))
		if err != nil {
			t.Errorf("plan.Load(%s) error = %v", name, err)
			continue
		}
		if p.TotalTasks != 5 {
			t.Errorf("%s TotalTasks = %d, want 5", name, p.TotalTasks)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "bad.yaml")); !os.IsNotExist(err) {
		t.Error("failed grid produced a plan file")
	}

	runLogs, err := logging.FindRunLogs(logs)
	if err != nil || len(runLogs) != 1 {
		t.Fatalf("FindRunLogs() = %v, %v", runLogs, err)
	}
	events, err := logging.ReadEvents(runLogs[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	if events[0].Source != filepath.Join(in, "a.csv") || events[0].Tasks != 5 || events[0].Output != filepath.Join(out, "a.yaml") {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[2].Source != filepath.Join(in, "bad.csv") || events[2].Error == "" {
		t.Errorf("events[2] = %+v", events[2])
	}

	stdout, err = run(t, "tail", "-log-dir", logs, "-n", "1")
	if err != nil {
		t.Fatalf("tail error = %v", err)
	}
	if !strings.Contains(stdout, "bad.csv") || strings.Contains(stdout, "a.csv") {
		t.Errorf("tail output = %s", stdout)
	}
}

func TestHookRunsAfterWrite(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("hook scripts need a POSIX shell")
	}
	work := isolate(t)
	marker := filepath.Join(work, "hooked.txt")
	hook := filepath.Join(work, "hook.sh")
	script := "#!/bin/sh\necho \"$1 $(basename \"$2\") $SHEETPLAN_PLAN_TITLE\" >> " + marker + "\n"
	if err := os.WriteFile(hook, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	in := filepath.Join(work, "grids")
	if err := os.MkdirAll(in, 0755); err != nil {
		t.Fatal(err)
	}
	writeSampleGrid(t, filepath.Join(in, "a.csv"))
	writeSampleGrid(t, filepath.Join(in, "b.csv"))

	if _, err := run(t, "-hook", hook, "-name", "Hooked", "import", "-out", "single.json", filepath.Join(in, "a.csv")); err != nil {
		t.Fatalf("import error = %v", err)
	}
	if _, err := run(t, "-hook", hook, "batch", "-out-dir", filepath.Join(work, "plans"), "-log-dir", "", in); err != nil {
		t.Fatalf("batch error = %v", err)
	}
	// Stdout imports write no plan file, so no hook runs.
	if _, err := run(t, "-hook", hook, "import", filepath.Join(in, "b.csv")); err != nil {
		t.Fatalf("import to stdout error = %v", err)
	}

	data, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("hook never ran: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	sort.Strings(lines)
	want := []string{
		"batch a.json Imported Plan",
		"batch b.json Imported Plan",
		"import single.json Hooked",
	}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Errorf("hook calls = %q, want %q", lines, want)
	}
}

func TestBatchCommandErrors(t *testing.T) {
	isolate(t)
	writeSampleGrid(t, "week.csv")

	if _, err := run(t, "batch"); err == nil {
		t.Error("batch without files succeeded")
	}
	if _, err := run(t, "batch", "-out-dir", "", "-log-dir", "", "week.csv"); err == nil || !strings.Contains(err.Error(), "-out-dir") {
		t.Errorf("batch without out dir error = %v", err)
	}
	if _, err := run(t, "batch", "-out-dir", "out", "missing-dir"); err == nil {
		t.Error("batch with missing path succeeded")
	}

	if err := os.Mkdir("empty", 0755); err != nil {
		t.Fatal(err)
	}
	stdout, err := run(t, "batch", "-out-dir", "out", "empty")
	if err != nil || !strings.Contains(stdout, "No grid files found.") {
		t.Errorf("batch on empty dir = %q, %v", stdout, err)
	}
}

const jsonGrid = `[["", "Day 1"], ["Task 1", "Wash car"]]`

func TestBatchDefaultOutputKeepsJSONGrid(t *testing.T) {
	isolate(t)
	if err := os.WriteFile("week.json", []byte(jsonGrid), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, err := run(t, "batch", "-log-dir", "", "-start", "2024-01-01", "week.json")
	if err != nil {
		t.Fatalf("batch error = %v", err)
	}
	want := "week.json -> " + filepath.Join("plans", "week.json")
	if !strings.Contains(stdout, want) {
		t.Errorf("stdout = %s, want %q", stdout, want)
	}
	if data, _ := os.ReadFile("week.json"); string(data) != jsonGrid {
		t.Errorf("source grid changed: %s", data)
	}
	p, err := plan.Load(filepath.Join("plans", "week.json"))
	if err != nil || p.TotalTasks != 1 {
		t.Errorf("plan.Load() = %+v, %v", p, err)
	}
}

func TestBatchRefusesConflictingOutputs(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T)
		args    []string
		wantErr string
		wantOut []string
		kept    []string // plan files expected in plans/
	}{
		{
			name: "plan would overwrite its own grid",
			setup: func(t *testing.T) {
				if err := os.WriteFile("week.json", []byte(jsonGrid), 0644); err != nil {
					t.Fatal(err)
				}
			},
			args:    []string{"-out-dir", ".", "week.json"},
			wantErr: "1 of 1 files failed",
			wantOut: []string{"would overwrite grid week.json"},
		},
		{
			name: "plan would overwrite another grid",
			setup: func(t *testing.T) {
				writeSampleGrid(t, "week.csv")
				if err := os.WriteFile("week.json", []byte(jsonGrid), 0644); err != nil {
					t.Fatal(err)
				}
			},
			args:    []string{"-out-dir", ".", "week.csv", "week.json"},
			wantErr: "2 of 2 files failed",
			wantOut: []string{"week.csv: plan file week.json would overwrite grid week.json"},
		},
		{
			name: "same base name in two directories",
			setup: func(t *testing.T) {
				for _, dir := range []string{"a", "b"} {
					if err := os.Mkdir(dir, 0755); err != nil {
						t.Fatal(err)
					}
					writeSampleGrid(t, filepath.Join(dir, "week.csv"))
				}
				writeSampleGrid(t, filepath.Join("a", "other.csv"))
			},
			args:    []string{"-out-dir", "plans", "a", "b"},
			wantErr: "2 of 3 files failed",
			wantOut: []string{"would be written by", "2 failed"},
			kept:    []string{"other.json"},
		},
		{
			name: "same base name with different extensions",
			setup: func(t *testing.T) {
				writeSampleGrid(t, "week.csv")
				if err := os.WriteFile("week.tsv", []byte("\tDay 1\nTask\tRun\n"), 0644); err != nil {
					t.Fatal(err)
				}
			},
			args:    []string{"-out-dir", "plans", "week.csv", "week.tsv"},
			wantErr: "2 of 2 files failed",
			wantOut: []string{"would be written by week.csv, week.tsv"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			tt.setup(t)
			grids := map[string][]byte{}
			for _, arg := range tt.args {
				if data, err := os.ReadFile(arg); err == nil {
					grids[arg] = data
				}
			}

			args := append([]string{"batch", "-log-dir", ""}, tt.args...)
			stdout, err := run(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("batch error = %v, want %q", err, tt.wantErr)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(stdout, want) {
					t.Errorf("stdout missing %q:\n%s", want, stdout)
				}
			}
			for path, before := range grids {
				if after, _ := os.ReadFile(path); string(after) != string(before) {
					t.Errorf("grid %s was modified", path)
				}
			}

			var written []string
			entries, _ := os.ReadDir("plans")
			for _, e := range entries {
				written = append(written, e.Name())
			}
			if strings.Join(written, ",") != strings.Join(tt.kept, ",") {
				t.Errorf("plans/ = %v, want %v", written, tt.kept)
			}
		})
	}
}

func TestWatchCommandImportsExisting(t *testing.T) {
	work := isolate(t)
	dir := filepath.Join(work, "inbox")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	writeSampleGrid(t, filepath.Join(dir, "week.csv"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg, err := config.Load(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := watchCommand(ctx, cfg, log.New(os.Stderr), []string{"-existing", "-log-dir", "", dir}); err != nil {
		t.Fatalf("watchCommand() error = %v", err)
	}
	if _, err := plan.Load(filepath.Join(dir, "plans", "week.json")); err != nil {
		t.Errorf("existing grid not imported: %v", err)
	}

	if err := watchCommand(ctx, cfg, log.New(os.Stderr), []string{filepath.Join(dir, "week.csv")}); err == nil {
		t.Error("watching a file succeeded")
	}
	if err := watchCommand(ctx, cfg, log.New(os.Stderr), []string{"-out-dir", dir, dir}); err == nil {
		t.Error("writing plans into the watched directory succeeded")
	}
}

func TestWatchDir(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []string
	handled := make(chan struct{}, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- watchDir(ctx, dir, 20*time.Millisecond, func(path string) {
			mu.Lock()
			seen = append(seen, path)
			mu.Unlock()
			handled <- struct{}{}
		})
	}()

	target := filepath.Join(dir, "week.csv")
	ignored := filepath.Join(dir, "notes.txt")
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

wait:
	for {
		select {
		case <-handled:
			break wait
		case <-tick.C:
			// Keep writing until the watcher is registered and reports it.
			if err := os.WriteFile(ignored, []byte("x"), 0644); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(target, []byte(",Day 1\nTask 1,Wash car\n"), 0644); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("grid file was never handled")
		}
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("watchDir() error = %v, want context.Canceled", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, p := range seen {
		if p != target {
			t.Errorf("handled %q, want only %q", p, target)
		}
	}
}

func TestTemplateCommand(t *testing.T) {
	work := isolate(t)
	path := filepath.Join(work, "template.csv")

	if _, err := run(t, "template", "-o", path); err != nil {
		t.Fatalf("template error = %v", err)
	}
	g, err := grid.Load(path, grid.CSVOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if g.Rows() != 9 {
		t.Errorf("template rows = %d, want 9", g.Rows())
	}
	if _, err := run(t, "template", "-o", path); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second template error = %v", err)
	}

	stdout, err := run(t, "template")
	if err != nil || !strings.HasPrefix(stdout, ",Day 1,Day 2,Day 3\n") {
		t.Errorf("template stdout = %q, %v", stdout, err)
	}
}

func TestTailWithoutLogs(t *testing.T) {
	work := isolate(t)
	stdout, err := run(t, "tail", "-log-dir", filepath.Join(work, "none"))
	if err != nil || !strings.Contains(stdout, "No run logs found.") {
		t.Errorf("tail = %q, %v", stdout, err)
	}
}

func TestConfigCommand(t *testing.T) {
	isolate(t)
	t.Setenv("SHEETPLAN_API_KEY", "secret-token")
	if err := os.WriteFile("sheetplan.toml", []byte("max_rows = 50\n"), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, err := run(t, "-workers", "8", "config")
	if err != nil {
		t.Fatalf("config error = %v", err)
	}
	for _, want := range []string{
		"# read ",
		"max_rows = 50",
		"workers = 8",
		"********",
		"# sources",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config output missing %q:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "secret-token") {
		t.Error("config output leaks the API key")
	}
}

func TestDoctorCommand(t *testing.T) {
	isolate(t)
	stdout, err := run(t, "doctor", "-v")
	if err != nil {
		t.Fatalf("doctor error = %v\n%s", err, stdout)
	}
	for _, want := range []string{"Sample grid: 5 tasks", "Schema (embedded)", "OK (0 plans)", "All checks passed!"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("doctor output missing %q:\n%s", want, stdout)
		}
	}

	t.Run("reports a schema that rejects plans", func(t *testing.T) {
		schema := `{"type": "object", "required": ["nonexistent"]}`
		if err := os.WriteFile("strict.schema.json", []byte(schema), 0644); err != nil {
			t.Fatal(err)
		}
		stdout, err := run(t, "-schema", "strict.schema.json", "doctor")
		if err == nil || !strings.Contains(stdout, "rejects the sample plan") {
			t.Errorf("doctor = %v\n%s", err, stdout)
		}
	})
}
