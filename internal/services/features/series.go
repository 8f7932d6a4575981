package features

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when a series cannot be normalized to a flat
// (N,) sequence, e.g. a matrix with a non-degenerate second axis.
var ErrShapeMismatch = errors.New("shape mismatch")

// Series is a numeric container with an explicit shape. Indicator evaluators
// return one value per time step, but some produce a single-column matrix
// (N,1) instead of a flat sequence (N,). Flatten collapses the degenerate
// axis so the values can be assigned into a Frame column.
type Series struct {
	data []float64
	rows int
	cols int
}

// NewSeries creates a flat series of shape (N,).
func NewSeries(values ...float64) *Series {
	return &Series{data: values, rows: len(values), cols: 0}
}

// NewColumn creates a single-column series of shape (N,1).
func NewColumn(values ...float64) *Series {
	return &Series{data: values, rows: len(values), cols: 1}
}

// NewMatrix creates a series of shape (rows, cols) from row-major values.
func NewMatrix(rows, cols int, values []float64) (*Series, error) {
	if rows < 0 || cols < 1 {
		return nil, fmt.Errorf("invalid shape (%d,%d)", rows, cols)
	}
	if len(values) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for shape (%d,%d)", ErrShapeMismatch, len(values), rows, cols)
	}
	return &Series{data: values, rows: rows, cols: cols}, nil
}

// Shape returns (rows, cols). cols is 0 for a flat (N,) series.
func (s *Series) Shape() (int, int) { return s.rows, s.cols }

// Count returns the total element count.
func (s *Series) Count() int { return len(s.data) }

// IsFlat reports whether the series already has shape (N,).
func (s *Series) IsFlat() bool { return s.cols == 0 }

// Flatten normalizes the series to a flat sequence of length N, preserving
// element order and values exactly. Inputs of shape (N,) pass through
// unchanged; shape (N,1) collapses the degenerate axis. Any other shape
// fails with ErrShapeMismatch rather than being silently coerced.
func (s *Series) Flatten() ([]float64, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil series", ErrShapeMismatch)
	}
	if s.cols > 1 {
		return nil, fmt.Errorf("%w: shape (%d,%d) is not a per-step scalar series", ErrShapeMismatch, s.rows, s.cols)
	}
	return s.data, nil
}

// FlattenTo is Flatten with an expected length check: it fails with
// ErrShapeMismatch when the total element count differs from n.
func (s *Series) FlattenTo(n int) ([]float64, error) {
	out, err := s.Flatten()
	if err != nil {
		return nil, err
	}
	if len(out) != n {
		return nil, fmt.Errorf("%w: got %d elements, want %d", ErrShapeMismatch, len(out), n)
	}
	return out, nil
}
