package decode

import (
	"github.com/nibzard/sheetplan/internal/grid"
	"github.com/nibzard/sheetplan/internal/plan"
)

// CollectSubtasks reads the subtasks of the task at taskRow for one grid
// column. It walks the contiguous run of Subtask rows directly below the
// task row and stops at the first row of any other kind. Rows whose cell
// in col is missing or empty are skipped without ending the run.
func CollectSubtasks(g grid.Grid, cls Classification, taskRow, col int) ([]plan.Subtask, error) {
	subtasks := make([]plan.Subtask, 0)
	for row := taskRow + 1; cls.Kind(row) == RowSubtask; row++ {
		c, ok := grid.Get(g, row, col)
		if !ok || c.IsEmpty() {
			continue
		}
		title, err := c.AsText()
		if err != nil {
			return nil, &DecodeError{Row: row, Col: col, Op: "read subtask", Err: err}
		}
		subtasks = append(subtasks, plan.Subtask{Title: title})
	}
	return subtasks, nil
}
