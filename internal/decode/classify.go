package decode

import (
	"strings"

	"github.com/nibzard/sheetplan/internal/grid"
)

// RowKind is the role of a grid row, derived from its first cell.
type RowKind int

const (
	RowUnknown RowKind = iota
	RowHeader
	RowDescription
	RowStatus
	RowPriority
	RowTaskStart
	RowSubtask
)

func (k RowKind) String() string {
	switch k {
	case RowHeader:
		return "header"
	case RowDescription:
		return "description"
	case RowStatus:
		return "status"
	case RowPriority:
		return "priority"
	case RowTaskStart:
		return "task"
	case RowSubtask:
		return "subtask"
	default:
		return "unknown"
	}
}

// DefaultSubtaskMarkers are the label prefixes that mark a subtask row.
var DefaultSubtaskMarkers = []string{"-", "→"}

// Classification holds the kind of every row plus indexes of the rows the
// builder looks up.
type Classification struct {
	Kinds []RowKind
	// TaskRows lists TaskStart rows in ascending order.
	TaskRows []int
	// DescriptionRows lists Description rows in ascending order.
	DescriptionRows []int
	// StatusRow and PriorityRow are the first such rows, or -1.
	StatusRow   int
	PriorityRow int
}

// Kind returns the kind of row, or RowUnknown when row is out of range.
func (c Classification) Kind(row int) RowKind {
	if row < 0 || row >= len(c.Kinds) {
		return RowUnknown
	}
	return c.Kinds[row]
}

// NearestDescription returns the Description row closest to row, preferring
// the row above on a tie, or -1 when the grid has none.
func (c Classification) NearestDescription(row int) int {
	best, bestDist := -1, 0
	for _, r := range c.DescriptionRows {
		dist := r - row
		if dist < 0 {
			dist = -dist
		}
		if best < 0 || dist < bestDist {
			best, bestDist = r, dist
		}
	}
	return best
}

// Classify labels every row of g in one pass. Row 0 is always the header.
// Empty markers are ignored; a nil markers slice uses DefaultSubtaskMarkers.
func Classify(g grid.Grid, markers []string) Classification {
	if markers == nil {
		markers = DefaultSubtaskMarkers
	}

	cls := Classification{
		Kinds:       make([]RowKind, g.Rows()),
		StatusRow:   -1,
		PriorityRow: -1,
	}
	for row := range cls.Kinds {
		kind := classifyRow(g, row, markers)
		cls.Kinds[row] = kind

		switch kind {
		case RowTaskStart:
			cls.TaskRows = append(cls.TaskRows, row)
		case RowDescription:
			cls.DescriptionRows = append(cls.DescriptionRows, row)
		case RowStatus:
			if cls.StatusRow < 0 {
				cls.StatusRow = row
			}
		case RowPriority:
			if cls.PriorityRow < 0 {
				cls.PriorityRow = row
			}
		}
	}
	return cls
}

func classifyRow(g grid.Grid, row int, markers []string) RowKind {
	if row == 0 {
		return RowHeader
	}

	c, ok := grid.Get(g, row, 0)
	if !ok || c.Kind != grid.KindText {
		return RowUnknown
	}
	label := strings.ToLower(strings.TrimSpace(c.Text))
	if label == "" {
		return RowUnknown
	}

	switch label {
	case "description":
		return RowDescription
	case "status":
		return RowStatus
	case "priority":
		return RowPriority
	}
	if strings.HasPrefix(label, "task") {
		return RowTaskStart
	}
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" && strings.HasPrefix(label, m) {
			return RowSubtask
		}
	}
	return RowUnknown
}
