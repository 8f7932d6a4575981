package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Tradia/internal/domain/models"
	drepo "Tradia/internal/domain/repository"
	"Tradia/pkg/config"
)

func TestWindowTagBucketsTo15Min(t *testing.T) {
	ts := time.Date(2025, 6, 2, 14, 37, 12, 0, time.UTC)
	if got := WindowTag(ts); got != "2025-06-02 14:30" {
		t.Fatalf("unexpected window %q", got)
	}
	// same bucket for any time within the quarter hour
	if WindowTag(ts) != WindowTag(ts.Add(7*time.Minute)) {
		t.Fatalf("timestamps in one window disagree")
	}
	if WindowTag(ts) == WindowTag(ts.Add(15*time.Minute)) {
		t.Fatalf("next window should differ")
	}
}

func TestSignalIDShape(t *testing.T) {
	id := signalID("AAPL", "2025-06-02 14:30")
	if len(id) == 0 {
		t.Fatalf("empty id")
	}
	if id[:5] != "AAPL-" {
		t.Fatalf("id should start with ticker, got %q", id)
	}
	for _, ch := range id {
		if ch == ' ' || ch == ':' {
			t.Fatalf("id contains separator char: %q", id)
		}
	}
}

func TestTargetAndStopDefaults(t *testing.T) {
	target, stop := targetAndStop(100, 0, 0, 0, 0)
	if target != 105 {
		t.Fatalf("unexpected target %v", target)
	}
	if stop != 97 {
		t.Fatalf("unexpected stop %v", stop)
	}
}

func TestTargetCappedByResistance(t *testing.T) {
	target, _ := targetAndStop(100, 0, 103, 0.05, 0.03)
	if target != 103 {
		t.Fatalf("resistance should cap target, got %v", target)
	}
	// resistance beyond the default target leaves it alone
	target, _ = targetAndStop(100, 0, 110, 0.05, 0.03)
	if target != 105 {
		t.Fatalf("distant resistance should not move target, got %v", target)
	}
}

func TestStopRaisedBySupport(t *testing.T) {
	_, stop := targetAndStop(100, 98, 0, 0.05, 0.03)
	if stop != 98 {
		t.Fatalf("support should raise stop, got %v", stop)
	}
	// support below the default stop is ignored
	_, stop = targetAndStop(100, 90, 0, 0.05, 0.03)
	if stop != 97 {
		t.Fatalf("deep support should not lower stop, got %v", stop)
	}
}

func TestApplyRanks(t *testing.T) {
	candidates := []*models.Signal{
		{Ticker: "A", MLProba: 0.9},
		{Ticker: "B", MLProba: 0.6},
	}
	ranked := []models.RankedSignal{
		{Ticker: "A", Rank: 1, Stars: 5, TopPick: true},
		{Ticker: "B", Rank: 2, Stars: 3, TopPick: false},
	}
	applyRanks(candidates, ranked)
	if candidates[0].Rank != 1 || candidates[0].Stars != 5 || !candidates[0].TopPick {
		t.Fatalf("rank not applied: %+v", candidates[0])
	}
	if candidates[1].Rank != 2 || candidates[1].TopPick {
		t.Fatalf("rank not applied: %+v", candidates[1])
	}
}

func TestPendingOutcomeFor(t *testing.T) {
	created := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	s := &models.Signal{ID: "AAPL-1", CreatedAt: created, HorizonDays: 10}
	o := PendingOutcomeFor(s)
	if o.SignalID != "AAPL-1" {
		t.Fatalf("unexpected signal id %q", o.SignalID)
	}
	if o.Status != models.OutcomePending {
		t.Fatalf("unexpected status %q", o.Status)
	}
	if !o.Deadline.Equal(created.AddDate(0, 0, 10)) {
		t.Fatalf("unexpected deadline %v", o.Deadline)
	}
}

type fakeMarket struct {
	bars     []models.Bar
	barsErr  error
	intraday []models.Bar
	grouped  map[string][]models.GroupedBar
	movers   []models.Mover
}

func (f *fakeMarket) GetOHLCV(context.Context, string, int) ([]models.Bar, error) {
	return f.bars, f.barsErr
}
func (f *fakeMarket) GetIntraday(context.Context, string, int, string, int) ([]models.Bar, error) {
	return f.intraday, nil
}
func (f *fakeMarket) GetGroupedDaily(_ context.Context, day string) ([]models.GroupedBar, error) {
	return f.grouped[day], nil
}
func (f *fakeMarket) GetTopMovers(context.Context, int) ([]models.Mover, error) {
	return f.movers, nil
}
func (f *fakeMarket) GetCompanyName(_ context.Context, ticker string) (string, error) {
	return ticker + " Inc", nil
}

type fakeBarStore struct {
	mu     sync.Mutex
	bars   map[string][]models.Bar
	stored int
}

func newFakeBarStore() *fakeBarStore {
	return &fakeBarStore{bars: make(map[string][]models.Bar)}
}

func (f *fakeBarStore) GetBars(_ context.Context, symbol string, from, to time.Time, _ drepo.Timeframe) ([]models.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Bar
	for _, b := range f.bars[symbol] {
		if b.TS.Before(from) || b.TS.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBarStore) GetLatestNBars(_ context.Context, symbol string, n int, _ drepo.Timeframe) ([]models.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bars := f.bars[symbol]
	if len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}

func (f *fakeBarStore) StoreBars(_ context.Context, bars []models.Bar, _ drepo.Timeframe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range bars {
		f.bars[b.Symbol] = append(f.bars[b.Symbol], b)
	}
	f.stored += len(bars)
	return nil
}

type fixedScorer struct{ proba float64 }

func (s fixedScorer) Predict(_ context.Context, ticker string, _ map[string]float64) (models.EdgeScore, error) {
	return models.EdgeScore{Ticker: ticker, ProbaUp: s.proba, Model: "fixed"}, nil
}

// steadyUptrend builds n daily bars climbing 0.5% a day with tiny shadows:
// no hammer, no doji, no engulfing.
func steadyUptrend(n int, symbol string) []models.Bar {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, 0, n)
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		close := open * 1.005
		bars = append(bars, models.Bar{
			TS:     start.AddDate(0, 0, i),
			Symbol: symbol,
			Open:   open,
			High:   close * 1.0005,
			Low:    open * 0.9995,
			Close:  close,
			Volume: 1_000_000,
		})
		price = close
	}
	return bars
}

// withHammerLast replaces the final bar with a hammer: long lower shadow,
// small body near the high.
func withHammerLast(bars []models.Bar) []models.Bar {
	last := bars[len(bars)-1]
	open := last.Open
	close := open * 1.002
	bars[len(bars)-1] = models.Bar{
		TS:     last.TS,
		Symbol: last.Symbol,
		Open:   open,
		High:   close * 1.001,
		Low:    open * 0.98,
		Close:  close,
		Volume: last.Volume,
	}
	return bars
}

func scannerFixture(t *testing.T, market drepo.MarketData, bars drepo.BarStore, proba float64) *Scanner {
	t.Helper()
	cfg := &config.Config{}
	cfg.Scanner.LookbackDays = 90
	cfg.Scanner.MinBars = 30
	cfg.Scanner.MinProba = 0.8
	cfg.Scanner.HorizonDays = 5
	return NewScanner(cfg, market, bars, nil, fixedScorer{proba: proba}, nil, &fakeMetrics{}, nil, testLogger(t))
}

func TestScanTickerNoReversalNoSignal(t *testing.T) {
	market := &fakeMarket{bars: steadyUptrend(60, "AAPL")}
	s := scannerFixture(t, market, nil, 0.99)

	sig, err := s.ScanTicker(context.Background(), "AAPL", "2025-06-02 14:30")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if sig != nil {
		t.Fatalf("uptrend without a reversal candle should not emit, got %+v", sig)
	}
}

func TestScanTickerEmitsOnReversal(t *testing.T) {
	market := &fakeMarket{bars: withHammerLast(steadyUptrend(60, "AAPL"))}
	s := scannerFixture(t, market, nil, 0.99)

	sig, err := s.ScanTicker(context.Background(), "AAPL", "2025-06-02 14:30")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if sig == nil {
		t.Fatalf("hammer above the probability gate should emit")
	}
	if len(sig.CandleTags) == 0 {
		t.Fatalf("emitted signal carries no reversal tags")
	}
	if sig.MLProba != 0.99 {
		t.Fatalf("unexpected proba %v", sig.MLProba)
	}
}

func TestScanTickerBelowProbaGate(t *testing.T) {
	market := &fakeMarket{bars: withHammerLast(steadyUptrend(60, "AAPL"))}
	s := scannerFixture(t, market, nil, 0.5)

	sig, err := s.ScanTicker(context.Background(), "AAPL", "2025-06-02 14:30")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if sig != nil {
		t.Fatalf("proba below the gate should not emit")
	}
}

func TestScanTickerFallsBackToStoredBars(t *testing.T) {
	store := newFakeBarStore()
	if err := store.StoreBars(context.Background(), withHammerLast(steadyUptrend(60, "AAPL")), drepo.TF1d); err != nil {
		t.Fatalf("seed bars: %v", err)
	}
	stored := store.stored
	market := &fakeMarket{barsErr: errors.New("polygon down")}
	s := scannerFixture(t, market, store, 0.99)

	sig, err := s.ScanTicker(context.Background(), "AAPL", "2025-06-02 14:30")
	if err != nil {
		t.Fatalf("scan should run off stored bars: %v", err)
	}
	if sig == nil {
		t.Fatalf("stored hammer bars should still emit")
	}
	if store.stored != stored {
		t.Fatalf("fallback bars must not be re-stored")
	}
}

func TestScanTickerMarketDownNoStoredBars(t *testing.T) {
	market := &fakeMarket{barsErr: errors.New("polygon down")}
	s := scannerFixture(t, market, newFakeBarStore(), 0.99)

	if _, err := s.ScanTicker(context.Background(), "AAPL", "2025-06-02 14:30"); err == nil {
		t.Fatalf("expected error when market is down and storage is empty")
	}
}

func TestFilterGroupedUniverse(t *testing.T) {
	grouped := []models.GroupedBar{
		{Ticker: "PENNY", Close: 1.50, Volume: 5_000_000},
		{Ticker: "PRICY", Close: 900, Volume: 5_000_000},
		{Ticker: "THIN", Close: 50, Volume: 100_000},
		{Ticker: "BIG", Close: 200, Volume: 2_000_000},
		{Ticker: "SMALL", Close: 10, Volume: 1_000_000},
	}
	got := filterGroupedUniverse(grouped, 10)
	if len(got) != 2 || got[0] != "BIG" || got[1] != "SMALL" {
		t.Fatalf("unexpected universe %v", got)
	}
	if got := filterGroupedUniverse(grouped, 1); len(got) != 1 || got[0] != "BIG" {
		t.Fatalf("limit should keep the largest dollar volume, got %v", got)
	}
}
