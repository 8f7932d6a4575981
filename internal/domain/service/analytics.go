package service

import (
	"context"

	"Tradia/internal/domain/models"
)

// EdgeScorer predicts the probability of a bullish move from a feature vector.
type EdgeScorer interface {
	Predict(ctx context.Context, ticker string, features map[string]float64) (models.EdgeScore, error)
}

// SignalRanker ranks candidate signals and selects top picks.
type SignalRanker interface {
	Rank(ctx context.Context, candidates []*models.Signal) ([]models.RankedSignal, error)
}
