package decode

import (
	"github.com/nibzard/sheetplan/internal/grid"
	"github.com/nibzard/sheetplan/internal/plan"
)

// buildTask produces the task at the intersection of taskRow and day.
// The second result is false when the title cell is missing or empty.
func (d *Decoder) buildTask(g grid.Grid, cls Classification, taskRow int, day DayColumn) (plan.Task, bool, error) {
	col := day.Column

	cell, ok := grid.Get(g, taskRow, col)
	if !ok || cell.IsEmpty() {
		return plan.Task{}, false, nil
	}
	title, err := cell.AsText()
	if err != nil {
		return plan.Task{}, false, &DecodeError{Row: taskRow, Col: col, Op: "read task title", Err: err}
	}

	description, err := metadata(g, cls.NearestDescription(taskRow), col, "", "read description")
	if err != nil {
		return plan.Task{}, false, err
	}
	status, err := metadata(g, cls.StatusRow, col, plan.StatusNotStarted, "read status")
	if err != nil {
		return plan.Task{}, false, err
	}
	priority, err := metadata(g, cls.PriorityRow, col, plan.PriorityMedium, "read priority")
	if err != nil {
		return plan.Task{}, false, err
	}

	subtasks, err := CollectSubtasks(g, cls, taskRow, col)
	if err != nil {
		return plan.Task{}, false, err
	}

	return plan.Task{
		Title:         title,
		Description:   description,
		Date:          day.Date,
		Status:        status,
		Priority:      priority,
		Completed:     plan.IsCompletedStatus(status),
		Subtasks:      subtasks,
		Tags:          append([]string{}, d.opts.Tags...),
		EstimatedTime: d.opts.EstimatedTime,
	}, true, nil
}

// metadata reads a per-day metadata cell, falling back when the row is
// absent (row < 0) or the cell is missing or empty.
func metadata(g grid.Grid, row, col int, fallback, op string) (string, error) {
	if row < 0 {
		return fallback, nil
	}
	c, ok := grid.Get(g, row, col)
	if !ok || c.IsEmpty() {
		return fallback, nil
	}
	s, err := c.AsText()
	if err != nil {
		return "", &DecodeError{Row: row, Col: col, Op: op, Err: err}
	}
	return s, nil
}
