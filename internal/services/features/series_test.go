package features

import (
	"errors"
	"testing"
)

func TestFlattenFlatPassThrough(t *testing.T) {
	s := NewSeries(1, 2, 3)
	got, err := s.Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("unexpected values %v", got)
	}
}

func TestFlattenColumnCollapses(t *testing.T) {
	s := NewColumn(1, 2, 3)
	got, err := s.Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 values, got %d", len(got))
	}
	for i, want := range []float64{1, 2, 3} {
		if got[i] != want {
			t.Fatalf("order not preserved at %d: got %v want %v", i, got[i], want)
		}
	}
}

func TestFlattenIdempotent(t *testing.T) {
	first, err := NewColumn(4, 5, 6).Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := NewSeries(first...).Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("second flatten changed values at %d", i)
		}
	}
}

func TestFlattenEmpty(t *testing.T) {
	got, err := NewSeries().Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
	got, err = NewColumn().Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
}

func TestFlattenWideMatrixFails(t *testing.T) {
	s, err := NewMatrix(2, 3, []float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Flatten(); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestFlattenNilSeriesFails(t *testing.T) {
	var s *Series
	if _, err := s.Flatten(); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestFlattenToCountCheck(t *testing.T) {
	s := NewColumn(1, 2, 3)
	if _, err := s.FlattenTo(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.FlattenTo(4); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if _, err := s.FlattenTo(2); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestNewMatrixValidation(t *testing.T) {
	if _, err := NewMatrix(2, 2, []float64{1, 2, 3}); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if _, err := NewMatrix(2, 0, nil); err == nil {
		t.Fatalf("expected error for zero cols")
	}
}

func TestShapeAccessors(t *testing.T) {
	flat := NewSeries(1, 2)
	if !flat.IsFlat() {
		t.Fatalf("expected flat")
	}
	if r, c := flat.Shape(); r != 2 || c != 0 {
		t.Fatalf("unexpected shape (%d,%d)", r, c)
	}
	col := NewColumn(1, 2)
	if col.IsFlat() {
		t.Fatalf("expected column shape")
	}
	if col.Count() != 2 {
		t.Fatalf("unexpected count %d", col.Count())
	}
}
