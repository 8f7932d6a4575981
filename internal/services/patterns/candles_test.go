package patterns

import (
	"testing"
	"time"

	"Tradia/internal/services/features"
)

func frameWith(t *testing.T, cols map[string][]float64) *features.Frame {
	t.Helper()
	n := 0
	for _, v := range cols {
		n = len(v)
		break
	}
	idx := make([]time.Time, n)
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	for i := range idx {
		idx[i] = base.AddDate(0, 0, i)
	}
	f := features.NewFrame(idx)
	for name, vals := range cols {
		if err := f.SetFlat(name, vals); err != nil {
			t.Fatalf("set %q: %v", name, err)
		}
	}
	return f
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

func TestDetectStrategiesRSIOversold(t *testing.T) {
	f := frameWith(t, map[string][]float64{
		"rsi":         {50, 30},
		"ema5":        {1, 1},
		"ema20":       {2, 2},
		"macd":        {0, 0},
		"macd_signal": {1, 1},
		"close":       {10, 10},
		"bb_low":      {8, 8},
		"bb_high":     {12, 12},
	})
	tags := DetectStrategies(f)
	if !hasTag(tags, TagRSIOversold) {
		t.Fatalf("expected oversold tag, got %v", tags)
	}
}

func TestDetectStrategiesEMACrossover(t *testing.T) {
	f := frameWith(t, map[string][]float64{
		"rsi":         {50, 50},
		"ema5":        {9, 11},
		"ema20":       {10, 10},
		"macd":        {0, 0},
		"macd_signal": {1, 1},
		"close":       {10, 10},
		"bb_low":      {8, 8},
		"bb_high":     {12, 12},
	})
	tags := DetectStrategies(f)
	if !hasTag(tags, TagEMACrossover) {
		t.Fatalf("expected ema crossover tag, got %v", tags)
	}
}

func TestDetectStrategiesBBLowerWithRSI(t *testing.T) {
	f := frameWith(t, map[string][]float64{
		"rsi":         {40, 30},
		"ema5":        {1, 1},
		"ema20":       {2, 2},
		"macd":        {0, 0},
		"macd_signal": {1, 1},
		"close":       {10, 7.9},
		"bb_low":      {8, 8},
		"bb_high":     {12, 12},
	})
	tags := DetectStrategies(f)
	if !hasTag(tags, TagBBLowerTouch) || !hasTag(tags, TagBBLowerRSI) {
		t.Fatalf("expected lower band tags, got %v", tags)
	}
}

func TestDetectStrategiesEmptyFrame(t *testing.T) {
	f := features.NewFrame(nil)
	if tags := DetectStrategies(f); len(tags) != 0 {
		t.Fatalf("expected no tags, got %v", tags)
	}
}

func TestDetectCandlesBullishEngulfing(t *testing.T) {
	f := frameWith(t, map[string][]float64{
		"open":  {10, 8.5},
		"close": {9, 10.5},
		"high":  {10.2, 10.6},
		"low":   {8.8, 8.4},
	})
	tags := DetectCandles(f)
	if !hasTag(tags, TagBullishEngulfing) {
		t.Fatalf("expected engulfing tag, got %v", tags)
	}
}

func TestDetectCandlesHammer(t *testing.T) {
	f := frameWith(t, map[string][]float64{
		"open":  {10, 10},
		"close": {10, 10.2},
		"high":  {10.1, 10.25},
		"low":   {9.9, 9.5},
	})
	tags := DetectCandles(f)
	if !hasTag(tags, TagHammer) {
		t.Fatalf("expected hammer tag, got %v", tags)
	}
}

func TestDetectBullishReversalDoji(t *testing.T) {
	f := frameWith(t, map[string][]float64{
		"open":  {10.01},
		"close": {10.02},
		"high":  {10.5},
		"low":   {9.5},
	})
	tags := DetectBullishReversal(f)
	if !hasTag(tags, TagDoji) {
		t.Fatalf("expected doji tag, got %v", tags)
	}
}

func TestSupportResistance(t *testing.T) {
	lows := []float64{9.5, 9.2, 9.8, 9.4, 9.6}
	highs := []float64{10.5, 10.8, 10.2, 10.6, 10.4}
	f := frameWith(t, map[string][]float64{"low": lows, "high": highs})
	support, resistance := SupportResistance(f, 5)
	if support != 9.2 {
		t.Fatalf("unexpected support %v", support)
	}
	if resistance != 10.8 {
		t.Fatalf("unexpected resistance %v", resistance)
	}
}

func TestDailyTrendBias(t *testing.T) {
	up := frameWith(t, map[string][]float64{"ema20": {1, 2, 3, 4, 5, 6}})
	if got := DailyTrendBias(up, 5); got != BiasUptrend {
		t.Fatalf("expected uptrend, got %q", got)
	}
	down := frameWith(t, map[string][]float64{"ema20": {6, 5, 4, 3, 2, 1}})
	if got := DailyTrendBias(down, 5); got != BiasDowntrend {
		t.Fatalf("expected downtrend, got %q", got)
	}
	short := frameWith(t, map[string][]float64{"ema20": {1, 2}})
	if got := DailyTrendBias(short, 5); got != "" {
		t.Fatalf("expected no bias, got %q", got)
	}
}
