// Package grid models the raw two-dimensional cell grid read from a
// spreadsheet and provides bounds-checked access to it.
package grid

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrUnsupportedCell is returned when a cell holds a value that cannot be
// read as text.
var ErrUnsupportedCell = errors.New("unsupported cell value")

// Kind identifies the type of value held by a Cell.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindDate
	KindBool
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DateLayout is the layout used when a date cell is rendered as text.
const DateLayout = "2006-01-02"

// Cell is a single grid entry. Only the field matching Kind is meaningful.
type Cell struct {
	Kind   Kind
	Text   string
	Number float64
	Date   time.Time
	Bool   bool
	// Raw keeps the original value of an invalid cell for diagnostics.
	Raw any
}

// Empty returns an empty cell.
func Empty() Cell { return Cell{Kind: KindEmpty} }

// Text returns a text cell.
func Text(s string) Cell { return Cell{Kind: KindText, Text: s} }

// Number returns a numeric cell. NaN and infinities produce an invalid cell.
func Number(f float64) Cell {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Invalid(f)
	}
	return Cell{Kind: KindNumber, Number: f}
}

// Date returns a date cell.
func Date(t time.Time) Cell { return Cell{Kind: KindDate, Date: t} }

// Bool returns a boolean cell.
func Bool(b bool) Cell { return Cell{Kind: KindBool, Bool: b} }

// Invalid returns a cell wrapping a value that could not be coerced.
func Invalid(raw any) Cell { return Cell{Kind: KindInvalid, Raw: raw} }

// IsEmpty reports whether the cell carries no usable content. Text made
// only of whitespace counts as empty.
func (c Cell) IsEmpty() bool {
	switch c.Kind {
	case KindEmpty:
		return true
	case KindText:
		return strings.TrimSpace(c.Text) == ""
	default:
		return false
	}
}

// String renders the cell as text. Invalid cells render as "".
func (c Cell) String() string {
	switch c.Kind {
	case KindText:
		return c.Text
	case KindNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case KindDate:
		return c.Date.Format(DateLayout)
	case KindBool:
		if c.Bool {
			return "TRUE"
		}
		return "FALSE"
	default:
		return ""
	}
}

// AsText returns the trimmed text form of the cell. Invalid cells yield
// ErrUnsupportedCell.
func (c Cell) AsText() (string, error) {
	if c.Kind == KindInvalid {
		return "", fmt.Errorf("%w: %T", ErrUnsupportedCell, c.Raw)
	}
	return strings.TrimSpace(c.String()), nil
}

// FromValue coerces an arbitrary decoded value into a Cell.
func FromValue(v any) Cell {
	switch val := v.(type) {
	case nil:
		return Empty()
	case Cell:
		return val
	case string:
		if val == "" {
			return Empty()
		}
		return Text(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return Invalid(val)
		}
		return Number(f)
	case float64:
		return Number(val)
	case float32:
		return Number(float64(val))
	case int:
		return Number(float64(val))
	case int8:
		return Number(float64(val))
	case int16:
		return Number(float64(val))
	case int32:
		return Number(float64(val))
	case int64:
		return Number(float64(val))
	case uint:
		return Number(float64(val))
	case uint8:
		return Number(float64(val))
	case uint16:
		return Number(float64(val))
	case uint32:
		return Number(float64(val))
	case uint64:
		return Number(float64(val))
	case bool:
		return Bool(val)
	case time.Time:
		return Date(val)
	case *time.Time:
		if val == nil {
			return Empty()
		}
		return Date(*val)
	default:
		return Invalid(v)
	}
}
