package grid

import (
	"errors"
	"fmt"
)

// ErrGridTooLarge is returned by Limits.Check when a grid exceeds the
// configured ceiling.
var ErrGridTooLarge = errors.New("grid too large")

// Grid is an ordered sequence of rows. Rows are not required to share a
// length and may be nil.
type Grid [][]Cell

// Get returns the cell at (row, col). The second result is false when
// either index is out of bounds, including columns past the end of a short
// row. Get never panics.
func Get(g Grid, row, col int) (Cell, bool) {
	if row < 0 || col < 0 || row >= len(g) {
		return Cell{}, false
	}
	r := g[row]
	if col >= len(r) {
		return Cell{}, false
	}
	return r[col], true
}

// Cell is a method form of Get.
func (g Grid) Cell(row, col int) (Cell, bool) {
	return Get(g, row, col)
}

// Rows returns the number of rows.
func (g Grid) Rows() int {
	return len(g)
}

// RowLen returns the physical length of row, or 0 when the row does not exist.
func (g Grid) RowLen(row int) int {
	if row < 0 || row >= len(g) {
		return 0
	}
	return len(g[row])
}

// Width returns the length of the longest row.
func (g Grid) Width() int {
	width := 0
	for _, r := range g {
		if len(r) > width {
			width = len(r)
		}
	}
	return width
}

// FromValues coerces loosely typed rows into a Grid.
func FromValues(rows [][]any) Grid {
	g := make(Grid, len(rows))
	for i, row := range rows {
		if row == nil {
			continue
		}
		cells := make([]Cell, len(row))
		for j, v := range row {
			cells[j] = FromValue(v)
		}
		g[i] = cells
	}
	return g
}

// FromStrings builds a Grid of text cells. Empty strings become empty cells.
func FromStrings(rows [][]string) Grid {
	g := make(Grid, len(rows))
	for i, row := range rows {
		cells := make([]Cell, len(row))
		for j, s := range row {
			cells[j] = FromValue(s)
		}
		g[i] = cells
	}
	return g
}

// Limits bounds the size of a grid accepted from untrusted input.
// A zero value for either field means unlimited.
type Limits struct {
	MaxRows int
	MaxCols int
}

// Check returns an error wrapping ErrGridTooLarge when g exceeds the limits.
func (l Limits) Check(g Grid) error {
	if l.MaxRows > 0 && len(g) > l.MaxRows {
		return fmt.Errorf("%w: %d rows exceeds limit of %d", ErrGridTooLarge, len(g), l.MaxRows)
	}
	if l.MaxCols > 0 {
		for i, r := range g {
			if len(r) > l.MaxCols {
				return fmt.Errorf("%w: row %d has %d columns, limit is %d", ErrGridTooLarge, i, len(r), l.MaxCols)
			}
		}
	}
	return nil
}
