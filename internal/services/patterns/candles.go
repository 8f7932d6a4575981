package patterns

import (
	"math"

	"Tradia/internal/services/features"
)

// Strategy and candle tag names.
const (
	TagRSIOversold      = "RSI Oversold"
	TagEMACrossover     = "EMA Bullish Crossover"
	TagMACDCrossover    = "MACD Bullish Crossover"
	TagBBLowerTouch     = "BB Lower Touch"
	TagBBUpperTouch     = "BB Upper Touch"
	TagBBLowerRSI       = "BB Lower + RSI Oversold"
	TagBBUpperRSI       = "BB Upper + RSI Overbought"
	TagBullishEngulfing = "Bullish Engulfing"
	TagHammer           = "Hammer"
	TagDoji             = "Doji"
)

// DetectStrategies returns bullish strategy tags for the latest row of an
// indicator frame. Crossover checks need the previous row; the Bollinger/RSI
// reversal cues do not.
func DetectStrategies(f *features.Frame) []string {
	var tags []string
	n := f.Len()
	if n == 0 {
		return tags
	}
	last := n - 1
	prev := n - 2

	rsi := f.At("rsi", last)
	if prev >= 0 {
		if !math.IsNaN(rsi) && rsi < 35 {
			tags = append(tags, TagRSIOversold)
		}
		if f.At("ema5", last) > f.At("ema20", last) && f.At("ema5", prev) <= f.At("ema20", prev) {
			tags = append(tags, TagEMACrossover)
		}
		if f.At("macd", last) > f.At("macd_signal", last) && f.At("macd", prev) <= f.At("macd_signal", prev) {
			tags = append(tags, TagMACDCrossover)
		}
	}

	close := f.At("close", last)
	bbLow := f.At("bb_low", last)
	bbHigh := f.At("bb_high", last)

	if !math.IsNaN(close) && !math.IsNaN(bbLow) && close <= bbLow {
		tags = append(tags, TagBBLowerTouch)
		if !math.IsNaN(rsi) && rsi < 35 {
			tags = append(tags, TagBBLowerRSI)
		}
	}
	if !math.IsNaN(close) && !math.IsNaN(bbHigh) && close >= bbHigh {
		tags = append(tags, TagBBUpperTouch)
		if !math.IsNaN(rsi) && rsi > 65 {
			tags = append(tags, TagBBUpperRSI)
		}
	}
	return dedupe(tags)
}

// DetectCandles detects basic bullish candlestick patterns on the latest bar:
// Bullish Engulfing and Hammer.
func DetectCandles(f *features.Frame) []string {
	var out []string
	n := f.Len()
	if n < 2 {
		return out
	}
	last, prev := n-1, n-2

	if f.At("close", prev) < f.At("open", prev) &&
		f.At("close", last) > f.At("open", last) &&
		f.At("close", last) > f.At("open", prev) &&
		f.At("open", last) < f.At("close", prev) {
		out = append(out, TagBullishEngulfing)
	}

	body := math.Abs(f.At("close", last) - f.At("open", last))
	if body == 0 {
		return out
	}
	lowerShadow := math.Min(f.At("open", last), f.At("close", last)) - f.At("low", last)
	upperShadow := f.At("high", last) - math.Max(f.At("open", last), f.At("close", last))
	if lowerShadow > 2*body && upperShadow < body {
		out = append(out, TagHammer)
	}
	return out
}

// DetectBullishReversal detects reversal patterns (Hammer, Doji) on the
// latest bar using range-relative thresholds.
func DetectBullishReversal(f *features.Frame) []string {
	var out []string
	n := f.Len()
	if n == 0 {
		return out
	}
	last := n - 1

	body := math.Abs(f.At("close", last) - f.At("open", last))
	candleRange := f.At("high", last) - f.At("low", last)
	lowerShadow := math.Min(f.At("open", last), f.At("close", last)) - f.At("low", last)

	if candleRange <= 0 {
		return out
	}
	if body < candleRange*0.3 && lowerShadow > 2*body {
		out = append(out, TagHammer)
	}
	if body < candleRange*0.1 {
		out = append(out, TagDoji)
	}
	return out
}

// DetectReversals merges the candle and reversal detectors into one
// deduplicated tag set. An empty result means the latest bar shows no
// bullish reversal setup.
func DetectReversals(f *features.Frame) []string {
	return dedupe(append(DetectCandles(f), DetectBullishReversal(f)...))
}

// SupportResistance returns basic support/resistance from recent price
// action (last window bars), rounded to cents.
func SupportResistance(f *features.Frame, window int) (support, resistance float64) {
	lows, okLow := f.Column("low")
	highs, okHigh := f.Column("high")
	if !okLow || !okHigh || f.Len() == 0 {
		return 0, 0
	}
	minCol, _ := features.RollingMin(lows, window).Flatten()
	maxCol, _ := features.RollingMax(highs, window).Flatten()
	support = math.Round(minCol[len(minCol)-1]*100) / 100
	resistance = math.Round(maxCol[len(maxCol)-1]*100) / 100
	return support, resistance
}

// Trend bias labels from the daily EMA20 slope.
const (
	BiasUptrend   = "Daily Uptrend"
	BiasDowntrend = "Daily Downtrend"
)

// DailyTrendBias returns a trend bias from the EMA20 slope over lookback
// bars, or "" when there is not enough data or the slope is flat.
func DailyTrendBias(f *features.Frame, lookback int) string {
	if f == nil || f.Len() < lookback+1 {
		return ""
	}
	ema, ok := f.Column("ema20")
	if !ok {
		return ""
	}
	now := ema[len(ema)-1]
	then := ema[len(ema)-1-lookback]
	switch {
	case now > then:
		return BiasUptrend
	case now < then:
		return BiasDowntrend
	default:
		return ""
	}
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := tags[:0]
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
