package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"Tradia/internal/domain/models"
	drepo "Tradia/internal/domain/repository"
	applogger "Tradia/pkg/logger"
)

type fakeSignalStore struct {
	mu       sync.Mutex
	signals  map[string]*models.Signal
	open     []models.Outcome
	updated  []models.Outcome
	inserted []models.Outcome
}

func newFakeSignalStore() *fakeSignalStore {
	return &fakeSignalStore{signals: make(map[string]*models.Signal)}
}

func (f *fakeSignalStore) Init(context.Context) error { return nil }
func (f *fakeSignalStore) InsertSignal(_ context.Context, s *models.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals[s.ID] = s
	return nil
}
func (f *fakeSignalStore) InsertOutcome(_ context.Context, o *models.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, *o)
	return nil
}
func (f *fakeSignalStore) UpdateOutcome(_ context.Context, o *models.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, *o)
	return nil
}
func (f *fakeSignalStore) LatestSignals(context.Context, int, bool) ([]models.Signal, error) {
	return nil, nil
}
func (f *fakeSignalStore) TopSignals(context.Context, int) ([]models.Signal, error) {
	return nil, nil
}
func (f *fakeSignalStore) SignalsByDay(context.Context, string, bool, int) ([]models.Signal, error) {
	return nil, nil
}
func (f *fakeSignalStore) SignalsByTicker(context.Context, string, int, bool) ([]models.Signal, error) {
	return nil, nil
}
func (f *fakeSignalStore) SignalByID(_ context.Context, id string) (*models.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signals[id], nil
}
func (f *fakeSignalStore) LatestOutcome(context.Context, string) (*models.Outcome, error) {
	return nil, nil
}
func (f *fakeSignalStore) OpenOutcomes(context.Context) ([]models.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open, nil
}
func (f *fakeSignalStore) Stats(context.Context) (*models.StatsSummary, error) { return nil, nil }
func (f *fakeSignalStore) Health(context.Context) error                        { return nil }
func (f *fakeSignalStore) Close() error                                        { return nil }

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func trackerFixture(t *testing.T) (*OutcomeTracker, *fakeSignalStore) {
	t.Helper()
	store := newFakeSignalStore()
	store.signals["AAPL-1"] = &models.Signal{ID: "AAPL-1", Ticker: "AAPL", TargetPrice: 150}
	store.open = []models.Outcome{{
		ID:       "AAPL-1:outcome",
		SignalID: "AAPL-1",
		Status:   models.OutcomePending,
		Deadline: time.Now().Add(24 * time.Hour),
	}}
	tracker := NewOutcomeTracker(store, nil, nil, nil, time.Minute, testLogger(t))
	if err := tracker.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return tracker, store
}

func TestTrackerMarksTargetMet(t *testing.T) {
	tracker, store := trackerFixture(t)

	trade := &models.Trade{Symbol: "AAPL", Price: 151, Timestamp: time.Now().Unix()}
	if err := tracker.Process(context.Background(), trade); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(store.updated) != 1 {
		t.Fatalf("expected one update, got %d", len(store.updated))
	}
	got := store.updated[0]
	if got.Status != models.OutcomeMet {
		t.Fatalf("unexpected status %q", got.Status)
	}
	if got.TargetMetAt == nil {
		t.Fatalf("target met time not set")
	}
	// resolved outcome leaves the watch list
	if len(tracker.Symbols()) != 0 {
		t.Fatalf("ticker should be unwatched after resolution")
	}
}

func TestTrackerIgnoresBelowTarget(t *testing.T) {
	tracker, store := trackerFixture(t)

	trade := &models.Trade{Symbol: "AAPL", Price: 149.99, Timestamp: time.Now().Unix()}
	if err := tracker.Process(context.Background(), trade); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(store.updated) != 0 {
		t.Fatalf("no update expected, got %d", len(store.updated))
	}
	if len(tracker.Symbols()) != 1 {
		t.Fatalf("ticker should remain watched")
	}
}

func TestTrackerIgnoresUnwatchedSymbol(t *testing.T) {
	tracker, store := trackerFixture(t)

	trade := &models.Trade{Symbol: "MSFT", Price: 999, Timestamp: time.Now().Unix()}
	if err := tracker.Process(context.Background(), trade); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(store.updated) != 0 {
		t.Fatalf("no update expected, got %d", len(store.updated))
	}
}

func TestSweepExpiredMarksNotMet(t *testing.T) {
	store := newFakeSignalStore()
	store.open = []models.Outcome{
		{ID: "old", SignalID: "old-sig", Status: models.OutcomePending, Deadline: time.Now().Add(-time.Hour)},
		{ID: "fresh", SignalID: "fresh-sig", Status: models.OutcomePending, Deadline: time.Now().Add(time.Hour)},
	}
	tracker := NewOutcomeTracker(store, nil, nil, nil, time.Minute, testLogger(t))

	if err := tracker.SweepExpired(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(store.updated) != 1 {
		t.Fatalf("expected one expiry, got %d", len(store.updated))
	}
	if store.updated[0].SignalID != "old-sig" || store.updated[0].Status != models.OutcomeNotMet {
		t.Fatalf("unexpected update %+v", store.updated[0])
	}
}

func TestTrackerConcurrentProcess(t *testing.T) {
	tracker, store := trackerFixture(t)

	for i := 0; i < 50; i++ {
		store.mu.Lock()
		store.open = []models.Outcome{{
			ID:       "AAPL-1:outcome",
			SignalID: "AAPL-1",
			Status:   models.OutcomePending,
			Deadline: time.Now().Add(24 * time.Hour),
		}}
		store.mu.Unlock()
		if err := tracker.Refresh(context.Background()); err != nil {
			t.Fatalf("refresh: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = tracker.Process(context.Background(), &models.Trade{Symbol: "AAPL", Price: 151, Timestamp: time.Now().Unix()})
		}()
		go func() {
			defer wg.Done()
			_ = tracker.Process(context.Background(), &models.Trade{Symbol: "AAPL", Price: 149, Timestamp: time.Now().Unix()})
		}()
		wg.Wait()
	}

	if len(store.updated) != 50 {
		t.Fatalf("expected 50 resolutions, got %d", len(store.updated))
	}
	for _, o := range store.updated {
		if o.Status != models.OutcomeMet {
			t.Fatalf("unexpected status %q", o.Status)
		}
	}
}

func TestSweepRechecksStoredBars(t *testing.T) {
	store := newFakeSignalStore()
	created := time.Now().UTC().AddDate(0, 0, -5)
	store.signals["AAPL-1"] = &models.Signal{
		ID: "AAPL-1", Ticker: "AAPL", TargetPrice: 150, CreatedAt: created,
	}
	store.open = []models.Outcome{{
		ID:       "AAPL-1:outcome",
		SignalID: "AAPL-1",
		Status:   models.OutcomePending,
		Deadline: time.Now().UTC().Add(-time.Hour),
	}}

	barStore := newFakeBarStore()
	metTS := created.AddDate(0, 0, 2)
	_ = barStore.StoreBars(context.Background(), []models.Bar{
		{TS: created.AddDate(0, 0, 1), Symbol: "AAPL", High: 148},
		{TS: metTS, Symbol: "AAPL", High: 151},
	}, drepo.TF1d)

	tracker := NewOutcomeTracker(store, barStore, nil, nil, time.Minute, testLogger(t))
	if err := tracker.SweepExpired(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(store.updated) != 1 {
		t.Fatalf("expected one resolution, got %d", len(store.updated))
	}
	got := store.updated[0]
	if got.Status != models.OutcomeMet {
		t.Fatalf("stored bar above target should resolve MET, got %q", got.Status)
	}
	if got.TargetMetAt == nil || !got.TargetMetAt.Equal(metTS) {
		t.Fatalf("target met time should come from the bar, got %v", got.TargetMetAt)
	}
}

func TestSweepRechecksIntraday(t *testing.T) {
	store := newFakeSignalStore()
	created := time.Now().UTC().AddDate(0, 0, -3)
	store.signals["AAPL-1"] = &models.Signal{
		ID: "AAPL-1", Ticker: "AAPL", TargetPrice: 150, CreatedAt: created,
	}
	store.open = []models.Outcome{{
		ID:       "AAPL-1:outcome",
		SignalID: "AAPL-1",
		Status:   models.OutcomePending,
		Deadline: time.Now().UTC().Add(-time.Hour),
	}}

	market := &fakeMarket{intraday: []models.Bar{
		{TS: created.Add(26 * time.Hour), Symbol: "AAPL", High: 150.5},
	}}
	tracker := NewOutcomeTracker(store, newFakeBarStore(), market, nil, time.Minute, testLogger(t))
	if err := tracker.SweepExpired(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(store.updated) != 1 || store.updated[0].Status != models.OutcomeMet {
		t.Fatalf("intraday high above target should resolve MET, got %+v", store.updated)
	}
}

func TestSweepRecheckBelowTargetExpires(t *testing.T) {
	store := newFakeSignalStore()
	created := time.Now().UTC().AddDate(0, 0, -3)
	store.signals["AAPL-1"] = &models.Signal{
		ID: "AAPL-1", Ticker: "AAPL", TargetPrice: 150, CreatedAt: created,
	}
	store.open = []models.Outcome{{
		ID:       "AAPL-1:outcome",
		SignalID: "AAPL-1",
		Status:   models.OutcomePending,
		Deadline: time.Now().UTC().Add(-time.Hour),
	}}

	barStore := newFakeBarStore()
	_ = barStore.StoreBars(context.Background(), []models.Bar{
		{TS: created.AddDate(0, 0, 1), Symbol: "AAPL", High: 149},
	}, drepo.TF1d)

	tracker := NewOutcomeTracker(store, barStore, nil, nil, time.Minute, testLogger(t))
	if err := tracker.SweepExpired(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(store.updated) != 1 || store.updated[0].Status != models.OutcomeNotMet {
		t.Fatalf("no high above target should expire NOT_MET, got %+v", store.updated)
	}
}
