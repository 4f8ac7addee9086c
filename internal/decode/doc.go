// Package decode reconstructs a hierarchical plan from a loosely structured
// spreadsheet grid.
//
// The grid carries no schema beyond a row-labeling convention on its first
// column (matched case-insensitively after trimming):
//
//	row 0            header; columns 1..N are days
//	"Description"    free text per day
//	"Status"         status per day, shared by every task that day
//	"Priority"       priority per day, shared by every task that day
//	"Task..."        one task row; titles are read per day column
//	"-" or "→"       subtask rows, contiguous directly below a task row
//	anything else    ignored
//
// Decoding is a single linear pipeline: classify every row once, resolve
// the day columns from the header, build one task per non-empty
// (task row, day column) intersection, then assemble the plan and its
// totals. Tasks are ordered by day, then by task row.
//
// Two properties of the grammar are kept deliberately. Status and Priority
// rows apply to a whole day column, so two tasks on the same day always
// share a status and priority. Subtask rows belong to the task-row block,
// so every day of a task sees the same subtask rows and can differ only in
// the text of each subtask, never in their number.
//
// The decoder never mutates the grid, keeps no state between calls, and is
// safe for concurrent use. It does not bound the size of its input; callers
// should apply grid.Limits first.
package decode
