package decode

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when the grid has no rows.
	ErrEmptyInput = errors.New("grid has no rows")
	// ErrNoHeaderColumns is returned when the header row yields no day columns.
	ErrNoHeaderColumns = errors.New("header row has no day columns")
)

// DecodeError reports a failure at a specific grid position. Row and Col
// are 0-based grid indices; -1 means the position is unknown.
type DecodeError struct {
	Row int
	Col int
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s at row %d, column %d: %v", e.Op, e.Row, e.Col, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
