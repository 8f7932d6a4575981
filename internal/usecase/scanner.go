package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"Tradia/internal/domain/models"
	drepo "Tradia/internal/domain/repository"
	domsvc "Tradia/internal/domain/service"
	"Tradia/internal/services/features"
	"Tradia/internal/services/patterns"
	"Tradia/pkg/cache"
	"Tradia/pkg/config"
	applogger "Tradia/pkg/logger"
)

const (
	scanLockTTL   = 10 * time.Minute
	supportWindow = 20
	trendLookback = 5
)

// Scanner runs the periodic market scan: fetch bars, compute indicators,
// detect setups, score with the edge model, rank, and emit signals.
type Scanner struct {
	cfg     *config.Config
	market  drepo.MarketData
	bars    drepo.BarStore
	proc    *SignalProcessor
	scorer  domsvc.EdgeScorer
	ranker  domsvc.SignalRanker
	metrics drepo.Metrics
	cache   cache.Service
	logger  *applogger.Logger

	mu      sync.Mutex
	lastRun time.Time
}

// NewScanner creates a Scanner.
func NewScanner(
	cfg *config.Config,
	market drepo.MarketData,
	bars drepo.BarStore,
	proc *SignalProcessor,
	scorer domsvc.EdgeScorer,
	ranker domsvc.SignalRanker,
	metrics drepo.Metrics,
	cacheSvc cache.Service,
	l *applogger.Logger,
) *Scanner {
	return &Scanner{
		cfg:     cfg,
		market:  market,
		bars:    bars,
		proc:    proc,
		scorer:  scorer,
		ranker:  ranker,
		metrics: metrics,
		cache:   cacheSvc,
		logger:  l,
	}
}

// Run starts the periodic scan loop until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	interval := s.cfg.Scanner.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	// first scan immediately
	if err := s.ScanUniverse(ctx); err != nil {
		s.logger.Error("scan failed", applogger.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ScanUniverse(ctx); err != nil {
				s.logger.Error("scan failed", applogger.Error(err))
			}
		}
	}
}

// ScanUniverse scans all tickers in the configured universe once.
// Concurrent runs of the same window are deduplicated via a cache lock.
func (s *Scanner) ScanUniverse(ctx context.Context) error {
	window := WindowTag(time.Now().UTC())

	if s.cache != nil {
		locked, err := s.cache.TryLock(ctx, cache.GenerateKey("scan:lock", window), scanLockTTL)
		if err != nil {
			s.logger.Warn("scan lock unavailable", applogger.Error(err))
		} else if !locked {
			s.logger.Info("scan already running", applogger.String("window", window))
			return nil
		}
	}

	start := time.Now()
	tickers, err := s.universe(ctx)
	if err != nil {
		s.metrics.RecordError("scan_universe")
		return fmt.Errorf("resolve universe: %w", err)
	}

	s.logger.Info("scan started",
		applogger.String("window", window),
		applogger.Int("tickers", len(tickers)))

	candidates := s.scanAll(ctx, tickers, window)
	if len(candidates) == 0 {
		s.logger.Info("scan finished with no candidates", applogger.String("window", window))
		s.markRun()
		return nil
	}

	ranked, err := s.ranker.Rank(ctx, candidates)
	if err != nil {
		s.metrics.RecordError("scan_rank")
		return fmt.Errorf("rank candidates: %w", err)
	}
	applyRanks(candidates, ranked)

	if err := s.proc.ProcessBatch(ctx, candidates); err != nil {
		return fmt.Errorf("emit signals: %w", err)
	}

	// emitted signals make cached API responses stale
	if s.cache != nil {
		_ = s.cache.DeleteByPattern(ctx, cache.BuildPattern("signals:"))
	}

	s.metrics.RecordLatency("scan_universe", time.Since(start).Seconds())
	s.logger.Info("scan finished",
		applogger.String("window", window),
		applogger.Int("signals", len(candidates)),
		applogger.Duration("duration_ms", time.Since(start)))
	s.markRun()
	return nil
}

// ScanTicker scans a single ticker and returns a candidate signal, or nil
// when no setup passes the probability gate.
func (s *Scanner) ScanTicker(ctx context.Context, ticker, window string) (*models.Signal, error) {
	minBars := s.cfg.Scanner.MinBars
	if minBars <= 0 {
		minBars = 30
	}

	bars, err := s.market.GetOHLCV(ctx, ticker, s.cfg.Scanner.LookbackDays)
	fromStore := false
	if err != nil && s.bars != nil {
		// market outage: rescans can still run off the last stored bars
		if stored, serr := s.bars.GetLatestNBars(ctx, ticker, s.cfg.Scanner.LookbackDays, drepo.TF1d); serr == nil && len(stored) >= minBars {
			s.logger.Warn("market fetch failed, scanning stored bars",
				applogger.String("ticker", ticker), applogger.Error(err))
			bars, err, fromStore = stored, nil, true
		}
	}
	if err != nil {
		return nil, fmt.Errorf("fetch bars %s: %w", ticker, err)
	}
	if len(bars) < minBars {
		return nil, nil
	}

	if s.bars != nil && !fromStore {
		if err := s.bars.StoreBars(ctx, bars, drepo.TF1d); err != nil {
			s.logger.Warn("store bars failed",
				applogger.String("ticker", ticker), applogger.Error(err))
		}
	}

	frame := features.FrameFromBars(bars)
	if err := features.ComputeIndicators(frame, features.DefaultIndicatorOptions()); err != nil {
		return nil, fmt.Errorf("indicators %s: %w", ticker, err)
	}

	strategyTags := patterns.DetectStrategies(frame)
	if bias := patterns.DailyTrendBias(frame, trendLookback); bias != "" {
		strategyTags = append(strategyTags, bias)
	}

	// only a bullish reversal on the latest bar opens a setup; strategy
	// tags and the trend bias ride along as context
	candleTags := patterns.DetectReversals(frame)
	if len(candleTags) == 0 {
		return nil, nil
	}

	support, resistance := patterns.SupportResistance(frame, supportWindow)
	featureVec := featureVector(frame)
	if rets := features.ComputeLogReturns(bars); rets != nil {
		vol := features.RealizedVolatility(rets, supportWindow, features.BarsPerYearForTF(string(drepo.TF1d)))
		if vol > 0 {
			featureVec["realized_vol"] = vol
		}
	}

	score, err := s.scorer.Predict(ctx, ticker, featureVec)
	if err != nil {
		s.metrics.RecordError("edge_score")
		return nil, fmt.Errorf("score %s: %w", ticker, err)
	}
	if score.ProbaUp < s.cfg.Scanner.MinProba {
		return nil, nil
	}

	close := frame.Last("close")
	target, stop := targetAndStop(close, support, resistance, s.cfg.Scanner.TargetPct, s.cfg.Scanner.StopPct)

	name, _ := s.market.GetCompanyName(ctx, ticker)

	sig := &models.Signal{
		ID:            signalID(ticker, window),
		CreatedAt:     time.Now().UTC(),
		Ticker:        ticker,
		CompanyName:   name,
		Timeframe:     string(drepo.DefaultTimeframe()),
		Direction:     models.DirectionLong,
		PriceAtSignal: close,
		TargetPrice:   target,
		StopLoss:      stop,
		MLProba:       score.ProbaUp,
		HorizonDays:   s.cfg.Scanner.HorizonDays,
		WindowTag:     window,
		StrategyTags:  strategyTags,
		CandleTags:    candleTags,
		Support:       support,
		Resistance:    resistance,
		Indicators:    featureVec,
	}
	return sig, nil
}

func (s *Scanner) scanAll(ctx context.Context, tickers []string, window string) []*models.Signal {
	workers := s.cfg.Scanner.Workers
	if workers <= 0 {
		workers = 4
	}

	jobs := make(chan string)
	results := make(chan *models.Signal)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range jobs {
				sig, err := s.ScanTicker(ctx, ticker, window)
				if err != nil {
					s.metrics.RecordError("scan_ticker")
					s.logger.Warn("scan ticker failed",
						applogger.String("ticker", ticker), applogger.Error(err))
					continue
				}
				if sig != nil {
					results <- sig
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, t := range tickers {
			select {
			case <-ctx.Done():
				return
			case jobs <- t:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var out []*models.Signal
	for sig := range results {
		out = append(out, sig)
	}
	return out
}

func (s *Scanner) universe(ctx context.Context) ([]string, error) {
	if len(s.cfg.Scanner.Tickers) > 0 {
		return s.cfg.Scanner.Tickers, nil
	}
	limit := s.cfg.Scanner.TopMovers
	if limit <= 0 {
		limit = 20
	}
	if s.cfg.Scanner.Universe == "grouped" {
		return s.groupedUniverse(ctx, limit)
	}
	movers, err := s.market.GetTopMovers(ctx, limit)
	if err != nil {
		return nil, err
	}
	tickers := make([]string, 0, len(movers))
	for _, m := range movers {
		tickers = append(tickers, m.Ticker)
	}
	return tickers, nil
}

// universe filters for the grouped-daily source
const (
	universeMinPrice    = 2.0
	universeMaxPrice    = 500.0
	universeVolumeFloor = 500_000
)

// groupedUniverse builds the scan universe from whole-market grouped daily
// bars, walking back to the last trading day (weekends and holidays return
// no rows).
func (s *Scanner) groupedUniverse(ctx context.Context, limit int) ([]string, error) {
	var grouped []models.GroupedBar
	now := time.Now().UTC()
	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		g, err := s.market.GetGroupedDaily(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("grouped daily %s: %w", day, err)
		}
		if len(g) > 0 {
			grouped = g
			break
		}
	}
	return filterGroupedUniverse(grouped, limit), nil
}

// filterGroupedUniverse keeps liquid names inside a sane price band and
// ranks them by dollar volume, strongest first.
func filterGroupedUniverse(grouped []models.GroupedBar, limit int) []string {
	type candidate struct {
		ticker    string
		dollarVol float64
	}
	cands := make([]candidate, 0, len(grouped))
	for _, g := range grouped {
		if g.Close < universeMinPrice || g.Close > universeMaxPrice {
			continue
		}
		if g.Volume < universeVolumeFloor {
			continue
		}
		cands = append(cands, candidate{ticker: g.Ticker, dollarVol: g.Close * g.Volume})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].dollarVol > cands[j].dollarVol })
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}
	tickers := make([]string, 0, len(cands))
	for _, c := range cands {
		tickers = append(tickers, c.ticker)
	}
	return tickers
}

func (s *Scanner) markRun() {
	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()
}

// LastRun reports when the last scan completed.
func (s *Scanner) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// WindowTag buckets a timestamp into its scan window label.
func WindowTag(t time.Time) string {
	return t.Truncate(15 * time.Minute).Format("2006-01-02 15:04")
}

func signalID(ticker, window string) string {
	w := strings.NewReplacer(" ", "", "-", "", ":", "").Replace(window)
	return fmt.Sprintf("%s-%s-%d", ticker, w, time.Now().UnixNano()%1_000_000)
}

// featureVector lifts the latest row of the frame into a flat feature map.
func featureVector(f *features.Frame) map[string]float64 {
	out := make(map[string]float64)
	for _, name := range f.Columns() {
		v := f.Last(name)
		if math.IsNaN(v) {
			continue
		}
		out[name] = v
	}
	return out
}

// targetAndStop picks the exit levels. Resistance caps the default target
// when it sits between entry and target; support raises the default stop.
func targetAndStop(close, support, resistance, targetPct, stopPct float64) (target, stop float64) {
	if targetPct <= 0 {
		targetPct = 0.05
	}
	if stopPct <= 0 {
		stopPct = 0.03
	}
	target = close * (1 + targetPct)
	stop = close * (1 - stopPct)

	if resistance > close && resistance < target {
		target = resistance
	}
	if support > 0 && support < close && support > stop {
		stop = support
	}
	return target, stop
}

func applyRanks(candidates []*models.Signal, ranked []models.RankedSignal) {
	byTicker := make(map[string]models.RankedSignal, len(ranked))
	for _, r := range ranked {
		byTicker[r.Ticker] = r
	}
	for _, c := range candidates {
		if r, ok := byTicker[c.Ticker]; ok {
			c.Rank = r.Rank
			c.Stars = r.Stars
			c.TopPick = r.TopPick
		}
	}
}
