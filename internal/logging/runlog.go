package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ImportEvent records one grid import in a run log.
type ImportEvent struct {
	Time       time.Time `json:"time"`
	Source     string    `json:"source"`
	Output     string    `json:"output,omitempty"`
	PlanID     string    `json:"plan_id,omitempty"`
	Tasks      int       `json:"tasks"`
	Completed  int       `json:"completed"`
	Progress   float64   `json:"progress"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// RunLog appends import events to a per-run JSONL file. It is safe for
// concurrent use.
type RunLog struct {
	Dir   string
	RunID string
	Path  string

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewRunLog creates dir if needed and opens <run-id>-<label>.jsonl in it.
func NewRunLog(dir, label string) (*RunLog, error) {
	if dir == "" {
		return nil, fmt.Errorf("run log dir is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create run log dir: %w", err)
	}

	id := runID()
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.jsonl", id, sanitizeLabel(label)))
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create run log: %w", err)
	}

	return &RunLog{
		Dir:   dir,
		RunID: id,
		Path:  path,
		file:  file,
		enc:   json.NewEncoder(file),
	}, nil
}

// Append writes one event. A zero Time is set to now.
func (r *RunLog) Append(ev ImportEvent) error {
	if r == nil {
		return nil
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return fmt.Errorf("run log is closed")
	}
	if err := r.enc.Encode(ev); err != nil {
		return fmt.Errorf("write run log: %w", err)
	}
	return nil
}

// Close closes the log file.
func (r *RunLog) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// ReadEvents decodes every event in a run log file.
func ReadEvents(path string) ([]ImportEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	defer f.Close()

	var events []ImportEvent
	dec := json.NewDecoder(f)
	for dec.More() {
		var ev ImportEvent
		if err := dec.Decode(&ev); err != nil {
			return events, fmt.Errorf("decode run log %s: %w", path, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// FindRunLogs lists the JSONL files in dir, newest first. A missing dir
// yields no logs and no error.
func FindRunLogs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run log dir: %w", err)
	}

	type logFile struct {
		path string
		mod  time.Time
	}
	var files []logFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, logFile{filepath.Join(dir, entry.Name()), info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].mod.Equal(files[j].mod) {
			return files[i].path > files[j].path
		}
		return files[i].mod.After(files[j].mod)
	})

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

func sanitizeLabel(input string) string {
	var b strings.Builder
	for i := 0; i < len(input); i++ {
		c := input[i]
		valid := (c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '_' || c == '-'
		if !valid {
			b.WriteByte('_')
			continue
		}
		b.WriteByte(c)
	}

	label := strings.Trim(b.String(), "_")
	if label == "" {
		return "run"
	}
	return label
}

func runID() string {
	return fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102-150405"), os.Getpid())
}
