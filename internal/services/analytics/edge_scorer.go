package analytics

import (
    "context"
    "fmt"
    "math"
    "time"

    "Tradia/internal/domain/models"
    domsvc "Tradia/internal/domain/service"
    ametrics "Tradia/internal/service/metrics"
    "Tradia/pkg/config"
)

// HTTPEdgeScorer asks the external model service for an upside probability.
type HTTPEdgeScorer struct{ base *HTTPServiceBase }

func NewHTTPEdgeScorer(cfg *config.Config) *HTTPEdgeScorer {
    ametrics.Register()
    return &HTTPEdgeScorer{base: NewHTTPServiceBase(cfg)}
}

type edgeReq struct {
    Ticker   string             `json:"ticker"`
    Features map[string]float64 `json:"features"`
}

type edgeResp struct {
    ProbaUp    float64 `json:"proba_up"`
    Confidence float64 `json:"confidence"`
    Model      string  `json:"model"`
}

func (s *HTTPEdgeScorer) Predict(ctx context.Context, ticker string, features map[string]float64) (models.EdgeScore, error) {
    var result models.EdgeScore
    var er edgeResp

    start := time.Now()
    err := s.base.PostJSONWithRetry(ctx, "/edge/predict", edgeReq{Ticker: ticker, Features: features}, &er, 2)
    ametrics.AnalyticsLatency.WithLabelValues("edge_predict").Observe(time.Since(start).Seconds())
    if err != nil {
        ametrics.AnalyticsErrors.WithLabelValues("edge_predict").Inc()
        return result, fmt.Errorf("edge predict: %w", err)
    }

    result.Ticker = ticker
    result.Timestamp = time.Now()
    result.ProbaUp = er.ProbaUp
    result.Confidence = er.Confidence
    result.Model = er.Model
    return result, nil
}

var _ domsvc.EdgeScorer = (*HTTPEdgeScorer)(nil)

// LocalEdgeScorer is a heuristic fallback used when no model service is
// configured. It blends momentum and mean-reversion cues into a probability.
type LocalEdgeScorer struct{}

func NewLocalEdgeScorer() *LocalEdgeScorer { return &LocalEdgeScorer{} }

func (s *LocalEdgeScorer) Predict(_ context.Context, ticker string, features map[string]float64) (models.EdgeScore, error) {
    // Linear score over normalized features, squashed through a sigmoid.
    score := 0.0

    if rsi, ok := features["rsi"]; ok {
        // oversold is bullish, overbought bearish
        score += (50 - rsi) / 50 * 0.8
    }
    if macd, ok := features["macd"]; ok {
        if sig, ok2 := features["macd_signal"]; ok2 {
            hist := macd - sig
            score += clamp(hist, -1, 1) * 0.6
        }
    }
    if close, ok := features["close"]; ok && close > 0 {
        if ema20, ok2 := features["ema20"]; ok2 && ema20 > 0 {
            score += clamp((close-ema20)/ema20*10, -1, 1) * 0.4
        }
        if bbLow, ok2 := features["bb_low"]; ok2 && close <= bbLow {
            score += 0.5
        }
    }

    proba := 1.0 / (1.0 + math.Exp(-score))
    return models.EdgeScore{
        Ticker:     ticker,
        Timestamp:  time.Now(),
        ProbaUp:    proba,
        Confidence: 0.5,
        Model:      "heuristic-v1",
    }, nil
}

func clamp(v, lo, hi float64) float64 {
    if v < lo {
        return lo
    }
    if v > hi {
        return hi
    }
    return v
}

var _ domsvc.EdgeScorer = (*LocalEdgeScorer)(nil)
