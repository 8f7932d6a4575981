package features

import (
	"fmt"
	"math"
	"time"

	"Tradia/internal/domain/models"
)

// Frame is a columnar table over an ordered timestamp index. Every column is
// a flat float64 sequence of the index length.
type Frame struct {
	index []time.Time
	cols  map[string][]float64
	order []string
}

// NewFrame creates an empty frame over the given index.
func NewFrame(index []time.Time) *Frame {
	return &Frame{index: index, cols: make(map[string][]float64)}
}

// FrameFromBars builds a frame with open/high/low/close/volume columns.
func FrameFromBars(bars []models.Bar) *Frame {
	idx := make([]time.Time, len(bars))
	open := make([]float64, len(bars))
	high := make([]float64, len(bars))
	low := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	vol := make([]float64, len(bars))
	for i, b := range bars {
		idx[i] = b.TS
		open[i] = b.Open
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
		vol[i] = b.Volume
	}
	f := NewFrame(idx)
	_ = f.SetFlat("open", open)
	_ = f.SetFlat("high", high)
	_ = f.SetFlat("low", low)
	_ = f.SetFlat("close", closes)
	_ = f.SetFlat("volume", vol)
	return f
}

// Len returns the index length N.
func (f *Frame) Len() int { return len(f.index) }

// Index returns the timestamp index.
func (f *Frame) Index() []time.Time { return f.index }

// SetColumn normalizes the series to a flat sequence and stores it under
// name. It fails with ErrShapeMismatch when the series' element count is not
// the frame length.
func (f *Frame) SetColumn(name string, s *Series) error {
	vals, err := s.FlattenTo(f.Len())
	if err != nil {
		return fmt.Errorf("set column %q: %w", name, err)
	}
	return f.SetFlat(name, vals)
}

// SetFlat stores an already-flat column of the frame length.
func (f *Frame) SetFlat(name string, vals []float64) error {
	if len(vals) != f.Len() {
		return fmt.Errorf("set column %q: %w: got %d elements, want %d", name, ErrShapeMismatch, len(vals), f.Len())
	}
	if _, ok := f.cols[name]; !ok {
		f.order = append(f.order, name)
	}
	f.cols[name] = vals
	return nil
}

// Column returns the named column, if present.
func (f *Frame) Column(name string) ([]float64, bool) {
	c, ok := f.cols[name]
	return c, ok
}

// Columns returns column names in insertion order.
func (f *Frame) Columns() []string { return f.order }

// At returns the value of a column at row i, or NaN when absent.
func (f *Frame) At(name string, i int) float64 {
	c, ok := f.cols[name]
	if !ok || i < 0 || i >= len(c) {
		return math.NaN()
	}
	return c[i]
}

// Last returns the latest value of a column, or NaN when absent or empty.
func (f *Frame) Last(name string) float64 {
	return f.At(name, f.Len()-1)
}

// FillGaps back-fills then forward-fills NaN runs in every column, the same
// small-gap repair the indicator stage needs for leading warmup values.
func (f *Frame) FillGaps() {
	for _, name := range f.order {
		backFill(f.cols[name])
		forwardFill(f.cols[name])
	}
}

func backFill(vals []float64) {
	for i := len(vals) - 2; i >= 0; i-- {
		if math.IsNaN(vals[i]) && !math.IsNaN(vals[i+1]) {
			vals[i] = vals[i+1]
		}
	}
}

func forwardFill(vals []float64) {
	for i := 1; i < len(vals); i++ {
		if math.IsNaN(vals[i]) && !math.IsNaN(vals[i-1]) {
			vals[i] = vals[i-1]
		}
	}
}
