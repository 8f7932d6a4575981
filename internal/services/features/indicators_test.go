package features

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	s := SMA([]float64{1, 2, 3, 4, 5}, 3)
	vals, err := s.Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(vals[0]) || !math.IsNaN(vals[1]) {
		t.Fatalf("expected NaN warmup, got %v", vals[:2])
	}
	if vals[2] != 2 || vals[3] != 3 || vals[4] != 4 {
		t.Fatalf("unexpected averages %v", vals[2:])
	}
}

func TestEMAConvergesToConstant(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 10
	}
	vals, err := EMA(closes, 5).Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := vals[len(vals)-1]; math.Abs(got-10) > 1e-9 {
		t.Fatalf("ema of constant series should be the constant, got %v", got)
	}
}

func TestRSIExtremes(t *testing.T) {
	up := make([]float64, 30)
	for i := range up {
		up[i] = float64(i + 1)
	}
	vals, err := RSI(up, 14).Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := vals[len(vals)-1]; got < 99 {
		t.Fatalf("monotonic rise should push rsi to 100, got %v", got)
	}

	down := make([]float64, 30)
	for i := range down {
		down[i] = float64(100 - i)
	}
	vals, err = RSI(down, 14).Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := vals[len(vals)-1]; got > 1 {
		t.Fatalf("monotonic fall should push rsi to 0, got %v", got)
	}
}

func TestRSIShortSeriesAllNaN(t *testing.T) {
	vals, err := RSI([]float64{1, 2, 3}, 14).Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range vals {
		if !math.IsNaN(v) {
			t.Fatalf("expected NaN at %d, got %v", i, v)
		}
	}
}

func TestBollingerBandsBracketMid(t *testing.T) {
	closes := []float64{1, 2, 3, 2, 1, 2, 3, 2, 1, 2, 3, 2, 1, 2, 3, 2, 1, 2, 3, 2, 1, 2}
	mid, upper, lower := Bollinger(closes, 20, 2)
	m, _ := mid.Flatten()
	u, _ := upper.Flatten()
	l, _ := lower.Flatten()
	last := len(closes) - 1
	if !(l[last] < m[last] && m[last] < u[last]) {
		t.Fatalf("bands not ordered: low=%v mid=%v high=%v", l[last], m[last], u[last])
	}
}

func TestMACDAligned(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	macd, signal := MACD(closes, 12, 26, 9)
	m, err := macd.Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sg, err := signal.Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != len(closes) || len(sg) != len(closes) {
		t.Fatalf("macd not aligned to input length")
	}
	// steady uptrend keeps macd positive once warmed up
	if m[len(m)-1] <= 0 {
		t.Fatalf("expected positive macd in uptrend, got %v", m[len(m)-1])
	}
}

func TestComputeIndicatorsAddsColumns(t *testing.T) {
	f := NewFrame(tsIndex(60))
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 50 + math.Sin(float64(i)/5)*5
	}
	if err := f.SetFlat("close", closes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ComputeIndicators(f, DefaultIndicatorOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"rsi", "ema5", "ema20", "macd", "macd_signal", "bb_mid", "bb_high", "bb_low"} {
		if math.IsNaN(f.Last(name)) {
			t.Fatalf("column %q has NaN at latest row", name)
		}
	}
}

func TestComputeIndicatorsRequiresClose(t *testing.T) {
	f := NewFrame(tsIndex(10))
	if err := ComputeIndicators(f, DefaultIndicatorOptions()); err == nil {
		t.Fatalf("expected error without close column")
	}
}

func TestRollingMinMax(t *testing.T) {
	vals := []float64{5, 3, 8, 1, 9}
	mn, _ := RollingMin(vals, 3).Flatten()
	mx, _ := RollingMax(vals, 3).Flatten()
	if mn[4] != 1 {
		t.Fatalf("unexpected rolling min %v", mn[4])
	}
	if mx[4] != 9 {
		t.Fatalf("unexpected rolling max %v", mx[4])
	}
}
