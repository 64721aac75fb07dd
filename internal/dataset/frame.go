// Package dataset loads the report input tables: fixed-URL CSV/XLSX files
// parsed into typed in-memory frames.
package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ColumnKind discriminates numeric from categorical columns.
type ColumnKind int

const (
	Numeric ColumnKind = iota
	Categorical
)

// Column holds a single named column. Numeric columns store values in Floats
// with NaN for missing cells; categorical columns store values in Labels with
// "" for missing cells.
type Column struct {
	Name   string
	Kind   ColumnKind
	Floats []float64
	Labels []string
}

// Len returns the number of cells in the column.
func (c Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Floats)
	}
	return len(c.Labels)
}

// Missing reports whether the cell at row i is missing.
func (c Column) Missing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Floats[i])
	}
	return c.Labels[i] == ""
}

// MissingCount returns the number of missing cells in the column.
func (c Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.Missing(i) {
			n++
		}
	}
	return n
}

// Frame is an ordered collection of equal-length columns.
type Frame struct {
	cols  []Column
	index map[string]int
	nrows int
}

// NewFrame creates an empty frame.
func NewFrame() *Frame {
	return &Frame{index: make(map[string]int)}
}

// AddNumeric appends a numeric column to the frame.
func (f *Frame) AddNumeric(name string, values []float64) error {
	return f.add(Column{Name: name, Kind: Numeric, Floats: values})
}

// AddCategorical appends a categorical column to the frame.
func (f *Frame) AddCategorical(name string, values []string) error {
	return f.add(Column{Name: name, Kind: Categorical, Labels: values})
}

func (f *Frame) add(col Column) error {
	if _, exists := f.index[col.Name]; exists {
		return fmt.Errorf("duplicate column %q", col.Name)
	}
	if len(f.cols) > 0 && col.Len() != f.nrows {
		return fmt.Errorf("column %q has %d rows, frame has %d", col.Name, col.Len(), f.nrows)
	}
	if len(f.cols) == 0 {
		f.nrows = col.Len()
	}
	f.index[col.Name] = len(f.cols)
	f.cols = append(f.cols, col)
	return nil
}

// NumRows returns the number of rows in the frame.
func (f *Frame) NumRows() int { return f.nrows }

// NumCols returns the number of columns in the frame.
func (f *Frame) NumCols() int { return len(f.cols) }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (f *Frame) Column(name string) (Column, error) {
	i, ok := f.index[name]
	if !ok {
		return Column{}, fmt.Errorf("no column %q", name)
	}
	return f.cols[i], nil
}

// Columns returns all columns in order.
func (f *Frame) Columns() []Column { return f.cols }

// Numeric returns a copy of the values of a numeric column.
func (f *Frame) Numeric(name string) ([]float64, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Kind != Numeric {
		return nil, fmt.Errorf("column %q is not numeric", name)
	}
	out := make([]float64, len(col.Floats))
	copy(out, col.Floats)
	return out, nil
}

// Labels returns a copy of the values of a categorical column.
func (f *Frame) Labels(name string) ([]string, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Kind != Categorical {
		return nil, fmt.Errorf("column %q is not categorical", name)
	}
	out := make([]string, len(col.Labels))
	copy(out, col.Labels)
	return out, nil
}

// SetNumeric replaces the values of an existing numeric column.
func (f *Frame) SetNumeric(name string, values []float64) error {
	i, ok := f.index[name]
	if !ok {
		return fmt.Errorf("no column %q", name)
	}
	if f.cols[i].Kind != Numeric {
		return fmt.Errorf("column %q is not numeric", name)
	}
	if len(values) != f.nrows {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(values), f.nrows)
	}
	f.cols[i].Floats = values
	return nil
}

// SetLabels replaces the values of an existing categorical column.
func (f *Frame) SetLabels(name string, values []string) error {
	i, ok := f.index[name]
	if !ok {
		return fmt.Errorf("no column %q", name)
	}
	if f.cols[i].Kind != Categorical {
		return fmt.Errorf("column %q is not categorical", name)
	}
	if len(values) != f.nrows {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(values), f.nrows)
	}
	f.cols[i].Labels = values
	return nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := NewFrame()
	for _, c := range f.cols {
		switch c.Kind {
		case Numeric:
			vals := make([]float64, len(c.Floats))
			copy(vals, c.Floats)
			out.AddNumeric(c.Name, vals)
		case Categorical:
			vals := make([]string, len(c.Labels))
			copy(vals, c.Labels)
			out.AddCategorical(c.Name, vals)
		}
	}
	return out
}

// Matrix builds a dense matrix from the named numeric columns, one column per
// feature in the given order.
func (f *Frame) Matrix(names ...string) (*mat.Dense, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no columns requested")
	}
	m := mat.NewDense(f.nrows, len(names), nil)
	for j, name := range names {
		vals, err := f.Numeric(name)
		if err != nil {
			return nil, fmt.Errorf("matrix column %q: %w", name, err)
		}
		for i, v := range vals {
			m.Set(i, j, v)
		}
	}
	return m, nil
}

// DropRows returns a copy of the frame without the rows whose indices are in
// drop. Used to remove rows that cannot be recovered by imputation.
func (f *Frame) DropRows(drop map[int]bool) *Frame {
	out := NewFrame()
	for _, c := range f.cols {
		switch c.Kind {
		case Numeric:
			var vals []float64
			for i, v := range c.Floats {
				if !drop[i] {
					vals = append(vals, v)
				}
			}
			out.AddNumeric(c.Name, vals)
		case Categorical:
			var vals []string
			for i, v := range c.Labels {
				if !drop[i] {
					vals = append(vals, v)
				}
			}
			out.AddCategorical(c.Name, vals)
		}
	}
	return out
}
