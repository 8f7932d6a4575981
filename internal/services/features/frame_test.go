package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"Tradia/internal/domain/models"
)

func tsIndex(n int) []time.Time {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	idx := make([]time.Time, n)
	for i := range idx {
		idx[i] = base.AddDate(0, 0, i)
	}
	return idx
}

func TestSetColumnNormalizesColumnShape(t *testing.T) {
	f := NewFrame(tsIndex(3))
	if err := f.SetColumn("rsi", NewColumn(30, 40, 50)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vals, ok := f.Column("rsi")
	if !ok {
		t.Fatalf("column missing")
	}
	if vals[0] != 30 || vals[2] != 50 {
		t.Fatalf("unexpected values %v", vals)
	}
}

func TestSetColumnLengthMismatch(t *testing.T) {
	f := NewFrame(tsIndex(3))
	err := f.SetColumn("rsi", NewSeries(30, 40))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestFrameFromBars(t *testing.T) {
	bars := []models.Bar{
		{TS: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{TS: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 200},
	}
	f := FrameFromBars(bars)
	if f.Len() != 2 {
		t.Fatalf("unexpected length %d", f.Len())
	}
	if got := f.Last("close"); got != 2.5 {
		t.Fatalf("unexpected close %v", got)
	}
	if got := f.At("volume", 0); got != 100 {
		t.Fatalf("unexpected volume %v", got)
	}
}

func TestFillGaps(t *testing.T) {
	f := NewFrame(tsIndex(4))
	if err := f.SetFlat("x", []float64{math.NaN(), 2, math.NaN(), 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.FillGaps()
	vals, _ := f.Column("x")
	want := []float64{2, 2, 4, 4}
	for i := range want {
		if vals[i] != want[i] {
			t.Fatalf("at %d got %v want %v", i, vals[i], want[i])
		}
	}
}

func TestColumnOrderStable(t *testing.T) {
	f := NewFrame(tsIndex(1))
	_ = f.SetFlat("a", []float64{1})
	_ = f.SetFlat("b", []float64{2})
	_ = f.SetFlat("a", []float64{3}) // overwrite keeps position
	cols := f.Columns()
	if len(cols) != 2 || cols[0] != "a" || cols[1] != "b" {
		t.Fatalf("unexpected order %v", cols)
	}
}
