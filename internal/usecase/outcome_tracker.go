package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Tradia/internal/domain/models"
	drepo "Tradia/internal/domain/repository"
	applogger "Tradia/pkg/logger"
)

// watchedSignal is the in-memory view of one pending outcome.
type watchedSignal struct {
	outcome models.Outcome
	target  float64
}

// OutcomeTracker resolves pending outcomes against the live trade stream.
// Trades are fed via Process; a background sweep expires past-deadline
// outcomes and refreshes the watch list from storage.
type OutcomeTracker struct {
	store   drepo.SignalStore
	bars    drepo.BarStore
	market  drepo.MarketData
	metrics drepo.Metrics
	logger  *applogger.Logger

	refreshInterval time.Duration

	mu      sync.RWMutex
	watched map[string][]watchedSignal // ticker -> pending outcomes
}

// NewOutcomeTracker creates a tracker. bars and market back the pre-expiry
// recheck and may be nil; refreshInterval controls how often the watch list
// is reloaded and deadlines swept, zero means every 5 minutes.
func NewOutcomeTracker(store drepo.SignalStore, bars drepo.BarStore, market drepo.MarketData, metrics drepo.Metrics, refreshInterval time.Duration, l *applogger.Logger) *OutcomeTracker {
	if refreshInterval <= 0 {
		refreshInterval = 5 * time.Minute
	}
	return &OutcomeTracker{
		store:           store,
		bars:            bars,
		market:          market,
		metrics:         metrics,
		logger:          l,
		refreshInterval: refreshInterval,
		watched:         make(map[string][]watchedSignal),
	}
}

// Refresh reloads pending outcomes and their targets from storage.
func (t *OutcomeTracker) Refresh(ctx context.Context) error {
	outcomes, err := t.store.OpenOutcomes(ctx)
	if err != nil {
		return fmt.Errorf("load open outcomes: %w", err)
	}

	watched := make(map[string][]watchedSignal, len(outcomes))
	for _, o := range outcomes {
		sig, err := t.store.SignalByID(ctx, o.SignalID)
		if err != nil || sig == nil {
			t.logger.Warn("skip outcome, signal lookup failed",
				applogger.String("signal_id", o.SignalID), applogger.Error(err))
			continue
		}
		watched[sig.Ticker] = append(watched[sig.Ticker], watchedSignal{
			outcome: o,
			target:  sig.TargetPrice,
		})
	}

	t.mu.Lock()
	t.watched = watched
	t.mu.Unlock()

	t.logger.Info("outcome watch list refreshed",
		applogger.Int("outcomes", len(outcomes)),
		applogger.Int("tickers", len(watched)))
	return nil
}

// Symbols returns the tickers that currently have pending outcomes. The
// stream subscription is driven from this list.
func (t *OutcomeTracker) Symbols() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	symbols := make([]string, 0, len(t.watched))
	for sym := range t.watched {
		symbols = append(symbols, sym)
	}
	return symbols
}

// Process checks one live trade against the pending outcomes of its ticker.
// Implements the price pipeline's processor contract.
func (t *OutcomeTracker) Process(ctx context.Context, trade *models.Trade) error {
	if t.metrics != nil {
		t.metrics.RecordLastPrice(trade.Symbol, trade.Price)
	}

	t.mu.RLock()
	pending := t.watched[trade.Symbol]
	t.mu.RUnlock()
	if len(pending) == 0 {
		return nil
	}

	now := time.Unix(trade.Timestamp, 0).UTC()
	var met []models.Outcome
	for _, w := range pending {
		if trade.Price >= w.target {
			o := w.outcome
			o.Status = models.OutcomeMet
			o.TargetMetAt = &now
			met = append(met, o)
		}
	}
	if len(met) == 0 {
		return nil
	}

	for i := range met {
		if err := t.store.UpdateOutcome(ctx, &met[i]); err != nil {
			return fmt.Errorf("mark outcome met: %w", err)
		}
		t.logger.Info("target met",
			applogger.String("signal_id", met[i].SignalID),
			applogger.String("ticker", trade.Symbol),
			applogger.Float64("price", trade.Price))
	}
	t.unwatch(trade.Symbol, met)
	return nil
}

// SweepExpired resolves pending outcomes past their deadline. Bar history is
// rechecked first so a target print missed by the live stream still counts
// as MET; everything else expires to NOT_MET.
func (t *OutcomeTracker) SweepExpired(ctx context.Context) error {
	outcomes, err := t.store.OpenOutcomes(ctx)
	if err != nil {
		return fmt.Errorf("load open outcomes: %w", err)
	}
	now := time.Now().UTC()
	expired := 0
	for _, o := range outcomes {
		if now.Before(o.Deadline) {
			continue
		}
		if metAt, ok := t.recheckTarget(ctx, &o); ok {
			o.Status = models.OutcomeMet
			o.TargetMetAt = metAt
			if err := t.store.UpdateOutcome(ctx, &o); err != nil {
				t.logger.Error("recheck update failed",
					applogger.String("signal_id", o.SignalID), applogger.Error(err))
				continue
			}
			t.logger.Info("target met on recheck",
				applogger.String("signal_id", o.SignalID))
			continue
		}
		o.Status = models.OutcomeNotMet
		if err := t.store.UpdateOutcome(ctx, &o); err != nil {
			t.logger.Error("expire outcome failed",
				applogger.String("signal_id", o.SignalID), applogger.Error(err))
			if t.metrics != nil {
				t.metrics.RecordError("outcome_expire")
			}
			continue
		}
		expired++
	}
	if expired > 0 {
		t.logger.Info("expired outcomes", applogger.Int("count", expired))
	}
	return nil
}

// Run sweeps and refreshes periodically until the context is cancelled.
func (t *OutcomeTracker) Run(ctx context.Context) error {
	if err := t.Refresh(ctx); err != nil {
		t.logger.Error("initial outcome refresh failed", applogger.Error(err))
	}

	ticker := time.NewTicker(t.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := t.SweepExpired(ctx); err != nil {
				t.logger.Error("outcome sweep failed", applogger.Error(err))
			}
			if err := t.Refresh(ctx); err != nil {
				t.logger.Error("outcome refresh failed", applogger.Error(err))
			}
		}
	}
}

// recheckTarget scans bar history between signal creation and the deadline
// for a high at or above the target. Stored daily bars are preferred;
// intraday bars from the market API fill in when storage has none.
func (t *OutcomeTracker) recheckTarget(ctx context.Context, o *models.Outcome) (*time.Time, bool) {
	sig, err := t.store.SignalByID(ctx, o.SignalID)
	if err != nil || sig == nil || sig.TargetPrice <= 0 {
		return nil, false
	}

	from, to := sig.CreatedAt, o.Deadline
	var bars []models.Bar
	if t.bars != nil {
		bars, _ = t.bars.GetBars(ctx, sig.Ticker, from, to, drepo.TF1d)
	}
	if len(bars) == 0 && t.market != nil {
		lookback := int(time.Since(from).Hours()/24) + 1
		bars, _ = t.market.GetIntraday(ctx, sig.Ticker, 15, "minute", lookback)
	}

	for _, b := range bars {
		if b.TS.Before(from) || b.TS.After(to) {
			continue
		}
		if b.High >= sig.TargetPrice {
			ts := b.TS
			return &ts, true
		}
	}
	return nil, false
}

func (t *OutcomeTracker) unwatch(ticker string, resolved []models.Outcome) {
	done := make(map[string]struct{}, len(resolved))
	for _, o := range resolved {
		done[o.ID] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Process iterates a snapshot of this slice outside the lock, so the
	// backing array must never be compacted in place
	remaining := make([]watchedSignal, 0, len(t.watched[ticker]))
	for _, w := range t.watched[ticker] {
		if _, ok := done[w.outcome.ID]; !ok {
			remaining = append(remaining, w)
		}
	}
	if len(remaining) == 0 {
		delete(t.watched, ticker)
	} else {
		t.watched[ticker] = remaining
	}
}
