package decode

import (
	"fmt"
	"time"

	"github.com/nibzard/sheetplan/internal/grid"
)

// DayColumn is one day of the plan, backed by a grid column.
type DayColumn struct {
	// Index is the 0-based day offset from the start date.
	Index int
	// Column is the grid column holding this day (Index+1).
	Column int
	Label  grid.Cell
	Date   time.Time
}

// ResolveHeader builds the day columns from row 0, skipping the label
// column. Day k is dated start + k calendar days.
func ResolveHeader(g grid.Grid, start time.Time) ([]DayColumn, error) {
	width := g.RowLen(0)
	if width < 2 {
		return nil, fmt.Errorf("%w: header row has %d cells", ErrNoHeaderColumns, width)
	}

	days := make([]DayColumn, 0, width-1)
	for col := 1; col < width; col++ {
		label, _ := grid.Get(g, 0, col)
		days = append(days, DayColumn{
			Index:  col - 1,
			Column: col,
			Label:  label,
			Date:   start.AddDate(0, 0, col-1),
		})
	}
	return days, nil
}
