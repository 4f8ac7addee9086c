package decode

import (
	"fmt"
	"strings"
	"time"

	"github.com/nibzard/sheetplan/internal/grid"
	"github.com/nibzard/sheetplan/internal/plan"
)

// Default option values.
const (
	DefaultEstimatedTime = 60
	DefaultTag           = "imported"
)

// Options configures a Decoder.
type Options struct {
	// PlanName titles the plan; blank means plan.DefaultTitle.
	PlanName string
	// StartDate dates day 0. The zero value means Now() at decode time.
	StartDate time.Time
	// SubtaskMarkers are the label prefixes of subtask rows.
	// Nil or all-blank means DefaultSubtaskMarkers.
	SubtaskMarkers []string
	// Tags are attached to every task. Nil means []string{DefaultTag}.
	Tags []string
	// EstimatedTime in minutes for every task. Zero or negative means
	// DefaultEstimatedTime.
	EstimatedTime int
	// Now supplies the current time. Nil means time.Now.
	Now func() time.Time
}

// Decoder turns grids into plans. A Decoder is immutable after New and
// safe for concurrent use.
type Decoder struct {
	opts Options
}

// New returns a Decoder with opts normalized.
func New(opts Options) *Decoder {
	markers := make([]string, 0, len(opts.SubtaskMarkers))
	for _, m := range opts.SubtaskMarkers {
		if m = strings.TrimSpace(m); m != "" {
			markers = append(markers, m)
		}
	}
	if len(markers) == 0 {
		markers = append(markers, DefaultSubtaskMarkers...)
	}
	opts.SubtaskMarkers = markers

	if opts.Tags == nil {
		opts.Tags = []string{DefaultTag}
	} else {
		opts.Tags = append([]string{}, opts.Tags...)
	}
	if opts.EstimatedTime <= 0 {
		opts.EstimatedTime = DefaultEstimatedTime
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Decoder{opts: opts}
}

// Options returns a copy of the normalized options.
func (d *Decoder) Options() Options {
	opts := d.opts
	opts.SubtaskMarkers = append([]string{}, d.opts.SubtaskMarkers...)
	opts.Tags = append([]string{}, d.opts.Tags...)
	return opts
}

// Decode runs the full pipeline over g. On error it returns the zero Plan.
func (d *Decoder) Decode(g grid.Grid) (p plan.Plan, err error) {
	if g.Rows() == 0 {
		return plan.Plan{}, ErrEmptyInput
	}

	row, col, op := -1, -1, "classify rows"
	defer func() {
		if r := recover(); r != nil {
			p = plan.Plan{}
			err = &DecodeError{Row: row, Col: col, Op: op, Err: fmt.Errorf("unexpected failure: %v", r)}
		}
	}()

	start := d.opts.StartDate
	if start.IsZero() {
		start = d.opts.Now()
	}

	cls := Classify(g, d.opts.SubtaskMarkers)

	row, op = 0, "resolve header"
	days, err := ResolveHeader(g, start)
	if err != nil {
		return plan.Plan{}, err
	}

	op = "build task"
	tasks := make([]plan.Task, 0, len(days)*len(cls.TaskRows))
	for _, day := range days {
		for _, taskRow := range cls.TaskRows {
			row, col = taskRow, day.Column
			task, ok, err := d.buildTask(g, cls, taskRow, day)
			if err != nil {
				return plan.Plan{}, err
			}
			if ok {
				tasks = append(tasks, task)
			}
		}
	}

	row, col, op = -1, -1, "assemble plan"
	return Assemble(d.opts.PlanName, start, len(days), tasks), nil
}

// Decode decodes g with a one-off Decoder.
func Decode(g grid.Grid, opts Options) (plan.Plan, error) {
	return New(opts).Decode(g)
}
