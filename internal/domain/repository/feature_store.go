package repository

import (
	"context"
	"time"

	"Tradia/internal/domain/models"
)

// Timeframe represents bar resolution buckets.
type Timeframe string

const (
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF1d  Timeframe = "1d"
)

// BarStore provides access to OHLCV bars for scanning and analytics.
type BarStore interface {
	GetBars(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Bar, error)
	GetLatestNBars(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Bar, error)
	StoreBars(ctx context.Context, bars []models.Bar, tf Timeframe) error
}
