package usecase

import (
	"context"
	"testing"

	"Tradia/internal/domain/models"
)

type fakeMetrics struct {
	emitted []string
	errors  []string
}

func (f *fakeMetrics) RecordSignalEmitted(backend, ticker string) {
	f.emitted = append(f.emitted, backend+":"+ticker)
}
func (f *fakeMetrics) RecordError(kind string)              { f.errors = append(f.errors, kind) }
func (f *fakeMetrics) RecordLastPrice(string, float64)      {}
func (f *fakeMetrics) RecordLatency(string, float64)        {}

type fakePublisher struct {
	published []*models.Signal
}

func (f *fakePublisher) Publish(_ context.Context, s *models.Signal) error {
	f.published = append(f.published, s)
	return nil
}
func (f *fakePublisher) PublishBatch(_ context.Context, signals []*models.Signal) error {
	f.published = append(f.published, signals...)
	return nil
}
func (f *fakePublisher) Close() error { return nil }

func TestProcessClickHouseStoresSignalAndOutcome(t *testing.T) {
	store := newFakeSignalStore()
	m := &fakeMetrics{}
	p := NewSignalProcessor(nil, store, m, "clickhouse")

	s := &models.Signal{ID: "AAPL-1", Ticker: "AAPL", HorizonDays: 10}
	if err := p.Process(context.Background(), s); err != nil {
		t.Fatalf("process: %v", err)
	}
	if store.signals["AAPL-1"] == nil {
		t.Fatalf("signal not stored")
	}
	if len(store.inserted) != 1 || store.inserted[0].Status != models.OutcomePending {
		t.Fatalf("pending outcome not stored: %+v", store.inserted)
	}
	if len(m.emitted) != 1 || m.emitted[0] != "clickhouse:AAPL" {
		t.Fatalf("unexpected emit metric %v", m.emitted)
	}
}

func TestProcessKafkaPublishes(t *testing.T) {
	pub := &fakePublisher{}
	p := NewSignalProcessor(pub, nil, &fakeMetrics{}, "kafka")

	s := &models.Signal{ID: "AAPL-1", Ticker: "AAPL"}
	if err := p.Process(context.Background(), s); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.published))
	}
}

func TestProcessUnknownBackendFails(t *testing.T) {
	m := &fakeMetrics{}
	p := NewSignalProcessor(nil, nil, m, "postgres")
	if err := p.Process(context.Background(), &models.Signal{ID: "x"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if len(m.errors) != 1 {
		t.Fatalf("error not recorded")
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	p := NewSignalProcessor(nil, nil, &fakeMetrics{}, "kafka")
	if err := p.ProcessBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch should be a no-op: %v", err)
	}
}

func TestProcessBatchClickHouse(t *testing.T) {
	store := newFakeSignalStore()
	p := NewSignalProcessor(nil, store, &fakeMetrics{}, "clickhouse")

	batch := []*models.Signal{
		{ID: "A-1", Ticker: "A"},
		{ID: "B-1", Ticker: "B"},
	}
	if err := p.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(store.signals) != 2 || len(store.inserted) != 2 {
		t.Fatalf("batch not fully stored: %d signals, %d outcomes", len(store.signals), len(store.inserted))
	}
}
