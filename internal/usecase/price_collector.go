package usecase

import (
	"context"
	"sort"
	"time"

	"Tradia/internal/domain/models"
	drepo "Tradia/internal/domain/repository"
	mid "Tradia/internal/middleware"
	applogger "Tradia/pkg/logger"
)

// PriceCollector feeds live trades from the market stream into the outcome
// tracker's pipeline. The subscription follows the tracker's watch list and
// is re-synced as outcomes open and close.
type PriceCollector struct {
	stream  drepo.MarketStream
	tracker *OutcomeTracker
	pipe    *mid.PricePipeline
	metrics drepo.Metrics
	logger  *applogger.Logger

	resyncInterval time.Duration
	subscribed     []string
}

// NewPriceCollector creates a collector. resyncInterval controls how often
// the subscription is reconciled with the watch list; zero means every minute.
func NewPriceCollector(stream drepo.MarketStream, tracker *OutcomeTracker, pipe *mid.PricePipeline, metrics drepo.Metrics, resyncInterval time.Duration, l *applogger.Logger) *PriceCollector {
	if resyncInterval <= 0 {
		resyncInterval = time.Minute
	}
	return &PriceCollector{
		stream:         stream,
		tracker:        tracker,
		pipe:           pipe,
		metrics:        metrics,
		logger:         l,
		resyncInterval: resyncInterval,
	}
}

// IsConnected reports whether the market stream is connected.
func (c *PriceCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start connects the stream, subscribes to watched tickers and begins
// consuming trades in the background.
func (c *PriceCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.resubscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	trCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, trCh, errCh)
	go c.resyncLoop(ctx)
	return nil
}

func (c *PriceCollector) consume(ctx context.Context, trCh <-chan *models.Trade, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				c.logger.Warn("stream error, reconnecting", applogger.Error(err))
				if rerr := c.stream.Reconnect(ctx); rerr != nil {
					c.logger.Error("reconnect failed", applogger.Error(rerr))
				}
			}
		case t := <-trCh:
			if t == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, t)
			} else {
				_ = c.tracker.Process(ctx, t)
			}
		}
	}
}

func (c *PriceCollector) resyncLoop(ctx context.Context) {
	ticker := time.NewTicker(c.resyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.resubscribe(ctx); err != nil {
				c.logger.Warn("subscription resync failed", applogger.Error(err))
			}
		}
	}
}

// resubscribe aligns the stream subscription with the tracker's watch list.
// No-op when the set of symbols has not changed.
func (c *PriceCollector) resubscribe(ctx context.Context) error {
	symbols := c.tracker.Symbols()
	sort.Strings(symbols)
	if equalSymbols(symbols, c.subscribed) {
		return nil
	}
	if len(symbols) > 0 {
		if err := c.stream.Subscribe(ctx, symbols); err != nil {
			return err
		}
	}
	c.subscribed = symbols
	c.logger.Info("stream subscription updated", applogger.Int("symbols", len(symbols)))
	return nil
}

// Shutdown stops the pipeline and closes the stream.
func (c *PriceCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}

func equalSymbols(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
