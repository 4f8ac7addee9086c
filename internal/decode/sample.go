package decode

import "github.com/nibzard/sheetplan/internal/grid"

// SampleGrid returns a small grid that exercises every row kind. It is
// written out by the template command as a starting point for users.
func SampleGrid() grid.Grid {
	return grid.FromStrings([][]string{
		{"", "Day 1", "Day 2", "Day 3"},
		{"Description", "Outdoor chores", "Garden work", "Rest day"},
		{"Status", "Completed", "In Progress", "Not Started"},
		{"Priority", "Low", "High", "Medium"},
		{"Task 1", "Wash car", "Paint fence", "Read a book"},
		{"→", "Buy soap", "Buy paint", ""},
		{"→", "", "Sand boards", ""},
		{"Task 2", "Mow lawn", "", "Call family"},
		{"- ", "Refuel mower"},
	})
}
