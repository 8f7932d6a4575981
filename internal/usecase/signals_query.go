package usecase

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"Tradia/internal/domain/models"
	drepo "Tradia/internal/domain/repository"
	"Tradia/pkg/cache"
	applogger "Tradia/pkg/logger"
)

// SignalsQuery serves the read API over stored signals, with response caching.
type SignalsQuery struct {
	store      drepo.SignalStore
	cache      cache.Service
	logger     *applogger.Logger
	signalsTTL time.Duration
	statsTTL   time.Duration
}

// NewSignalsQuery creates the read-side service.
func NewSignalsQuery(store drepo.SignalStore, cacheSvc cache.Service, signalsTTL, statsTTL time.Duration, l *applogger.Logger) *SignalsQuery {
	if signalsTTL <= 0 {
		signalsTTL = 30 * time.Second
	}
	if statsTTL <= 0 {
		statsTTL = 5 * time.Minute
	}
	return &SignalsQuery{
		store:      store,
		cache:      cacheSvc,
		logger:     l,
		signalsTTL: signalsTTL,
		statsTTL:   statsTTL,
	}
}

// Latest returns the most recent signals.
func (q *SignalsQuery) Latest(ctx context.Context, limit int, onlyTop bool) ([]models.SignalView, error) {
	key := cache.GenerateKeyWithParams("signals:latest", limit, onlyTop)
	if views, ok := q.cachedViews(ctx, key); ok {
		return views, nil
	}
	signals, err := q.store.LatestSignals(ctx, limit, onlyTop)
	if err != nil {
		return nil, err
	}
	views := q.toViews(ctx, signals, true)
	q.storeViews(ctx, key, views, q.signalsTTL)
	return views, nil
}

// Top returns the current top picks.
func (q *SignalsQuery) Top(ctx context.Context, limit int) ([]models.SignalView, error) {
	key := cache.GenerateKeyWithParams("signals:top", limit)
	if views, ok := q.cachedViews(ctx, key); ok {
		return views, nil
	}
	signals, err := q.store.TopSignals(ctx, limit)
	if err != nil {
		return nil, err
	}
	views := q.toViews(ctx, signals, true)
	q.storeViews(ctx, key, views, q.signalsTTL)
	return views, nil
}

// ByDay returns signals emitted on a calendar day (YYYY-MM-DD).
func (q *SignalsQuery) ByDay(ctx context.Context, day string, onlyTop bool, limit int) ([]models.SignalView, error) {
	key := cache.GenerateKeyWithParams("signals:day", day, onlyTop, limit)
	if views, ok := q.cachedViews(ctx, key); ok {
		return views, nil
	}
	signals, err := q.store.SignalsByDay(ctx, day, onlyTop, limit)
	if err != nil {
		return nil, err
	}
	views := q.toViews(ctx, signals, true)
	q.storeViews(ctx, key, views, q.signalsTTL)
	return views, nil
}

// Search returns signals for one ticker.
func (q *SignalsQuery) Search(ctx context.Context, ticker string, limit int, topOnly bool) ([]models.SignalView, error) {
	signals, err := q.store.SignalsByTicker(ctx, ticker, limit, topOnly)
	if err != nil {
		return nil, err
	}
	return q.toViews(ctx, signals, true), nil
}

// History returns the full signal history of a ticker including outcomes.
func (q *SignalsQuery) History(ctx context.Context, ticker string) ([]models.SignalView, error) {
	signals, err := q.store.SignalsByTicker(ctx, ticker, 1000, false)
	if err != nil {
		return nil, err
	}
	return q.toViews(ctx, signals, true), nil
}

// ByID returns a single signal with its latest outcome.
func (q *SignalsQuery) ByID(ctx context.Context, id string) (*models.SignalView, error) {
	sig, err := q.store.SignalByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := q.toView(ctx, sig, true)
	return &view, nil
}

// Stats returns the aggregate signal/outcome summary.
func (q *SignalsQuery) Stats(ctx context.Context) (*models.StatsSummary, error) {
	const key = "signals:stats"
	if q.cache != nil {
		var raw string
		if err := q.cache.Get(ctx, key, &raw); err == nil {
			var s models.StatsSummary
			if err := json.Unmarshal([]byte(raw), &s); err == nil {
				return &s, nil
			}
		}
	}
	stats, err := q.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if q.cache != nil {
		if b, err := json.Marshal(stats); err == nil {
			_ = q.cache.Set(ctx, key, string(b), q.statsTTL)
		}
	}
	return stats, nil
}

// OpenOutcomes returns pending outcomes for monitoring.
func (q *SignalsQuery) OpenOutcomes(ctx context.Context) ([]models.Outcome, error) {
	return q.store.OpenOutcomes(ctx)
}

// Health reports storage health.
func (q *SignalsQuery) Health(ctx context.Context) error {
	return q.store.Health(ctx)
}

func (q *SignalsQuery) toViews(ctx context.Context, signals []models.Signal, withOutcome bool) []models.SignalView {
	views := make([]models.SignalView, 0, len(signals))
	for i := range signals {
		views = append(views, q.toView(ctx, &signals[i], withOutcome))
	}
	return views
}

func (q *SignalsQuery) toView(ctx context.Context, s *models.Signal, withOutcome bool) models.SignalView {
	view := models.SignalView{
		ID:            s.ID,
		CreatedAt:     s.CreatedAt,
		Ticker:        s.Ticker,
		CompanyName:   s.CompanyName,
		Sector:        s.Sector,
		Timeframe:     s.Timeframe,
		Direction:     s.Direction,
		MLProba:       s.MLProba,
		Support:       s.Support,
		Resistance:    s.Resistance,
		StrategyTags:  emptyIfNil(s.StrategyTags),
		CandleTags:    emptyIfNil(s.CandleTags),
		AllTags:       allTags(s),
		PriceAtSignal: s.PriceAtSignal,
		TargetPrice:   s.TargetPrice,
		StopLoss:      s.StopLoss,
		Stars:         s.Stars,
		Rank:          s.Rank,
		TopPick:       s.TopPick,
		HorizonDays:   s.HorizonDays,
		WindowTag:     s.WindowTag,
		Indicators:    s.Indicators,
	}
	if view.Direction == "" {
		view.Direction = inferDirection(s.PriceAtSignal, s.TargetPrice)
	}
	view.RewardPct, view.RiskPct, view.RiskReward = riskReward(s.PriceAtSignal, s.TargetPrice, s.StopLoss, view.Direction)

	if withOutcome {
		if o, err := q.store.LatestOutcome(ctx, s.ID); err == nil && o != nil {
			view.Outcome = &models.OutcomeView{
				Status:      o.Status,
				Deadline:    &o.Deadline,
				TargetMetAt: o.TargetMetAt,
			}
		}
	}
	return view
}

// inferDirection falls back to the target-vs-entry relation when the signal
// carries no explicit direction.
func inferDirection(entry, target float64) string {
	if entry > 0 && target > 0 && target < entry {
		return models.DirectionShort
	}
	return models.DirectionLong
}

// riskReward derives reward%, risk% and the reward/risk multiple from the
// entry, target and stop. Nil when entry or risk is degenerate.
func riskReward(entry, target, stop float64, direction string) (rewardPct, riskPct, riskReward *float64) {
	if entry <= 0 {
		return nil, nil, nil
	}
	var reward, risk float64
	if direction == models.DirectionShort {
		reward = math.Max(entry-target, 0) / entry * 100
		risk = math.Max(stop-entry, 0) / entry * 100
	} else {
		reward = math.Max(target-entry, 0) / entry * 100
		risk = math.Max(entry-stop, 0) / entry * 100
	}
	rewardPct = &reward

	if risk > 0 {
		riskPct = &risk
		rr := reward / risk
		riskReward = &rr
	}
	return rewardPct, riskPct, riskReward
}

func allTags(s *models.Signal) []string {
	tags := make([]string, 0, len(s.StrategyTags)+len(s.CandleTags))
	tags = append(tags, s.StrategyTags...)
	tags = append(tags, s.CandleTags...)
	return tags
}

func emptyIfNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func (q *SignalsQuery) cachedViews(ctx context.Context, key string) ([]models.SignalView, bool) {
	if q.cache == nil {
		return nil, false
	}
	var raw string
	if err := q.cache.Get(ctx, key, &raw); err != nil {
		return nil, false
	}
	var views []models.SignalView
	if err := json.Unmarshal([]byte(raw), &views); err != nil {
		return nil, false
	}
	return views, true
}

func (q *SignalsQuery) storeViews(ctx context.Context, key string, views []models.SignalView, ttl time.Duration) {
	if q.cache == nil {
		return
	}
	b, err := json.Marshal(views)
	if err != nil {
		return
	}
	if err := q.cache.Set(ctx, key, string(b), ttl); err != nil && q.logger != nil {
		q.logger.Warn("cache set failed", applogger.String("key", key), applogger.Error(err))
	}
}
