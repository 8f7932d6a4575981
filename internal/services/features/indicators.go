package features

import (
	"fmt"
	"math"
)

// Indicator evaluators. Each returns a single-column series of shape (N,1),
// aligned to the input length; warmup slots hold NaN. Callers flatten the
// result into a Frame column via SetColumn.

// IndicatorOptions controls the derived columns ComputeIndicators adds.
type IndicatorOptions struct {
	RSIPeriod int
	EMAFast   int
	EMASlow   int
	MACDFast  int
	MACDSlow  int
	MACDSig   int
	BBWindow  int
	BBStd     float64
}

// DefaultIndicatorOptions mirrors the conventional 14/5/20/12-26-9/20x2 setup.
func DefaultIndicatorOptions() IndicatorOptions {
	return IndicatorOptions{
		RSIPeriod: 14,
		EMAFast:   5,
		EMASlow:   20,
		MACDFast:  12,
		MACDSlow:  26,
		MACDSig:   9,
		BBWindow:  20,
		BBStd:     2.0,
	}
}

// ComputeIndicators derives the standard indicator columns from the close
// column and assigns them into the frame: rsi, ema5, ema20, macd,
// macd_signal, bb_mid, bb_high, bb_low. Leading warmup NaN runs are filled
// afterwards so every column is usable at the latest row.
func ComputeIndicators(f *Frame, opts IndicatorOptions) error {
	closes, ok := f.Column("close")
	if !ok {
		return fmt.Errorf("compute indicators: frame has no close column")
	}

	macd, signal := MACD(closes, opts.MACDFast, opts.MACDSlow, opts.MACDSig)
	mid, upper, lower := Bollinger(closes, opts.BBWindow, opts.BBStd)

	cols := []struct {
		name string
		s    *Series
	}{
		{"rsi", RSI(closes, opts.RSIPeriod)},
		{"ema5", EMA(closes, opts.EMAFast)},
		{"ema20", EMA(closes, opts.EMASlow)},
		{"macd", macd},
		{"macd_signal", signal},
		{"bb_mid", mid},
		{"bb_high", upper},
		{"bb_low", lower},
	}
	for _, c := range cols {
		if err := f.SetColumn(c.name, c.s); err != nil {
			return fmt.Errorf("compute indicators: %w", err)
		}
	}
	f.FillGaps()
	return nil
}

// RSI returns the n-period Relative Strength Index using Wilder's smoothing,
// as a (N,1) column. Indices before the first full window are NaN.
func RSI(closes []float64, n int) *Series {
	out := nanSlice(len(closes))
	if n <= 0 || len(closes) <= n {
		return NewColumn(out...)
	}
	var gain, loss float64
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if i <= n {
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
			if i == n {
				out[i] = rsiValue(gain/float64(n), loss/float64(n))
				gain /= float64(n)
				loss /= float64(n)
			}
			continue
		}
		// Wilder smoothing
		if d > 0 {
			gain = (gain*float64(n-1) + d) / float64(n)
			loss = (loss * float64(n-1)) / float64(n)
		} else {
			gain = (gain * float64(n-1)) / float64(n)
			loss = (loss*float64(n-1) - d) / float64(n)
		}
		out[i] = rsiValue(gain, loss)
	}
	return NewColumn(out...)
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// SMA returns the n-period simple moving average as a (N,1) column.
func SMA(vals []float64, n int) *Series {
	out := nanSlice(len(vals))
	if n <= 0 {
		return NewColumn(out...)
	}
	var sum float64
	for i := range vals {
		sum += vals[i]
		if i >= n {
			sum -= vals[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return NewColumn(out...)
}

// EMA returns the n-period exponential moving average as a (N,1) column,
// seeded with the SMA of the first window.
func EMA(vals []float64, n int) *Series {
	return NewColumn(emaValues(vals, n)...)
}

func emaValues(vals []float64, n int) []float64 {
	out := nanSlice(len(vals))
	if n <= 0 || len(vals) < n {
		return out
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += vals[i]
	}
	out[n-1] = sum / float64(n)
	alpha := 2.0 / (float64(n) + 1.0)
	for i := n; i < len(vals); i++ {
		out[i] = alpha*vals[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACD returns the MACD line (fast EMA minus slow EMA) and its signal line
// (sig-period EMA of the MACD line), both as (N,1) columns.
func MACD(closes []float64, fast, slow, sig int) (*Series, *Series) {
	ef := emaValues(closes, fast)
	es := emaValues(closes, slow)
	line := nanSlice(len(closes))
	for i := range closes {
		if !math.IsNaN(ef[i]) && !math.IsNaN(es[i]) {
			line[i] = ef[i] - es[i]
		}
	}

	signal := nanSlice(len(closes))
	if slow > 0 && len(closes) >= slow {
		// signal EMA runs over the defined tail of the MACD line
		tail := emaValues(line[slow-1:], sig)
		copy(signal[slow-1:], tail)
	}
	return NewColumn(line...), NewColumn(signal...)
}

// Bollinger returns the middle band (SMA), upper band and lower band over
// the given window with k standard deviations, as (N,1) columns.
func Bollinger(closes []float64, window int, k float64) (mid, upper, lower *Series) {
	m := nanSlice(len(closes))
	u := nanSlice(len(closes))
	l := nanSlice(len(closes))
	if window <= 1 {
		return NewColumn(m...), NewColumn(u...), NewColumn(l...)
	}
	var sum, sumSq float64
	for i := range closes {
		x := closes[i]
		sum += x
		sumSq += x * x
		if i >= window {
			y := closes[i-window]
			sum -= y
			sumSq -= y * y
		}
		if i >= window-1 {
			mean := sum / float64(window)
			variance := sumSq/float64(window) - mean*mean
			if variance < 0 {
				variance = 0
			}
			sd := math.Sqrt(variance)
			m[i] = mean
			u[i] = mean + k*sd
			l[i] = mean - k*sd
		}
	}
	return NewColumn(m...), NewColumn(u...), NewColumn(l...)
}

// RollingMin returns the rolling minimum over window bars (min one bar) as a
// (N,1) column. Used for support levels.
func RollingMin(vals []float64, window int) *Series {
	out := make([]float64, len(vals))
	for i := range vals {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		m := vals[lo]
		for j := lo + 1; j <= i; j++ {
			if vals[j] < m {
				m = vals[j]
			}
		}
		out[i] = m
	}
	return NewColumn(out...)
}

// RollingMax returns the rolling maximum over window bars (min one bar) as a
// (N,1) column. Used for resistance levels.
func RollingMax(vals []float64, window int) *Series {
	out := make([]float64, len(vals))
	for i := range vals {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		m := vals[lo]
		for j := lo + 1; j <= i; j++ {
			if vals[j] > m {
				m = vals[j]
			}
		}
		out[i] = m
	}
	return NewColumn(out...)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
