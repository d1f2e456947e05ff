// Package table renders aligned text tables for terminal output. Widths are
// measured in terminal cells, ignoring ANSI colour sequences, so coloured
// and wide-rune cells line up.
package table

import (
	"fmt"
	"io"
	"strings"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/mattn/go-runewidth"
)

// FormatFunc is a callback to format/colorize cell values
type FormatFunc func(value string) string

// ColumnSpec defines a column's properties
type ColumnSpec struct {
	Header     string
	BlankValue string     // Value to show for empty cells (default: "-")
	FormatFunc FormatFunc // Optional formatter/colorizer
	MinWidth   int        // Minimum column width
	AlignRight bool
}

// Table represents a formatted table
type Table struct {
	columns   []ColumnSpec
	rows      [][]string
	widths    []int
	separator string
}

// NewTable creates a new table with the given column specifications
func NewTable(cols ...ColumnSpec) *Table {
	t := &Table{
		columns:   cols,
		widths:    make([]int, len(cols)),
		separator: "-",
	}

	for i, col := range cols {
		t.widths[i] = max(col.MinWidth, VisibleWidth(col.Header))
		if t.columns[i].BlankValue == "" {
			t.columns[i].BlankValue = "-"
		}
	}

	return t
}

// AddRow adds a row of data to the table. Missing and empty cells show the
// column's BlankValue; extra cells are dropped.
func (t *Table) AddRow(data ...string) {
	row := make([]string, len(t.columns))
	for i := range row {
		if i < len(data) && data[i] != "" {
			row[i] = data[i]
		} else {
			row[i] = t.columns[i].BlankValue
		}

		cell := row[i]
		if f := t.columns[i].FormatFunc; f != nil {
			cell = f(cell)
		}
		t.widths[i] = max(t.widths[i], VisibleWidth(cell))
	}

	t.rows = append(t.rows, row)
}

// AddSeparator adds a separator line. Separators are stored as nil rows.
func (t *Table) AddSeparator() {
	t.rows = append(t.rows, nil)
}

// SetSeparatorChar sets the character used for separator lines
func (t *Table) SetSeparatorChar(char string) {
	t.separator = char
}

// Len is the number of rows added, separators included.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table to the given writer
func (t *Table) Render(w io.Writer) error {
	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = t.pad(i, col.Header)
	}
	if err := t.writeLine(w, headers); err != nil {
		return err
	}
	if err := t.writeLine(w, t.separatorCells()); err != nil {
		return err
	}

	for _, row := range t.rows {
		if row == nil {
			if err := t.writeLine(w, t.separatorCells()); err != nil {
				return err
			}
			continue
		}

		formatted := make([]string, len(row))
		for i, val := range row {
			if f := t.columns[i].FormatFunc; f != nil {
				val = f(val)
			}
			formatted[i] = t.pad(i, val)
		}
		if err := t.writeLine(w, formatted); err != nil {
			return err
		}
	}

	return nil
}

func (t *Table) separatorCells() []string {
	sep := make([]string, len(t.columns))
	for i := range sep {
		sep[i] = strings.Repeat(t.separator, t.widths[i])
	}
	return sep
}

func (t *Table) writeLine(w io.Writer, cells []string) error {
	_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
	return err
}

// pad pads a cell of column i to the column width
func (t *Table) pad(i int, s string) string {
	gap := t.widths[i] - VisibleWidth(s)
	if gap <= 0 {
		return s
	}
	if t.columns[i].AlignRight {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// VisibleWidth is the number of terminal cells s occupies once ANSI escape
// sequences are removed.
func VisibleWidth(s string) int {
	return runewidth.StringWidth(StripANSI(s))
}

// StripANSI removes CSI colour sequences ("\x1b[...m") from s.
func StripANSI(s string) string {
	if !strings.Contains(s, "\033[") {
		return s
	}
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\033':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Colored returns a FormatFunc painting cells with fg, leaving blank cells
// alone.
func Colored(fg coloransi.ColorCode) FormatFunc {
	return func(s string) string {
		if s == "-" {
			return s
		}
		return coloransi.Foreground(fg, s)
	}
}

// Builder pattern methods for fluent interface
func (t *Table) WithSeparator(char string) *Table {
	t.separator = char
	return t
}

func (t *Table) WithRow(data ...string) *Table {
	t.AddRow(data...)
	return t
}

func (t *Table) WithSeparatorLine() *Table {
	t.AddSeparator()
	return t
}
