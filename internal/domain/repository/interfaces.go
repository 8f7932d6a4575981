package repository

import (
	"context"

	"Tradia/internal/domain/models"
)

// MarketData is the REST market data provider used by the scanner.
type MarketData interface {
	GetOHLCV(ctx context.Context, ticker string, days int) ([]models.Bar, error)
	GetIntraday(ctx context.Context, ticker string, multiplier int, timespan string, lookbackDays int) ([]models.Bar, error)
	GetGroupedDaily(ctx context.Context, day string) ([]models.GroupedBar, error)
	GetTopMovers(ctx context.Context, limit int) ([]models.Mover, error)
	GetCompanyName(ctx context.Context, ticker string) (string, error)
}

// MarketStream is a live trade feed for outcome tracking.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher publishes emitted signals to the message transport.
type Publisher interface {
	Publish(ctx context.Context, s *models.Signal) error
	PublishBatch(ctx context.Context, signals []*models.Signal) error
	Close() error
}

// SignalStore persists signals and their outcomes.
type SignalStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	InsertSignal(ctx context.Context, s *models.Signal) error
	InsertOutcome(ctx context.Context, o *models.Outcome) error
	UpdateOutcome(ctx context.Context, o *models.Outcome) error
	LatestSignals(ctx context.Context, limit int, onlyTop bool) ([]models.Signal, error)
	TopSignals(ctx context.Context, limit int) ([]models.Signal, error)
	SignalsByDay(ctx context.Context, day string, onlyTop bool, limit int) ([]models.Signal, error)
	SignalsByTicker(ctx context.Context, ticker string, limit int, topOnly bool) ([]models.Signal, error)
	SignalByID(ctx context.Context, id string) (*models.Signal, error)
	LatestOutcome(ctx context.Context, signalID string) (*models.Outcome, error)
	OpenOutcomes(ctx context.Context) ([]models.Outcome, error)
	Stats(ctx context.Context) (*models.StatsSummary, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational metrics for the scanner and API.
type Metrics interface {
	RecordSignalEmitted(backend, ticker string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
