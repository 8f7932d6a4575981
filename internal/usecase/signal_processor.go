package usecase

import (
	"context"
	"fmt"
	"time"

	"Tradia/internal/domain/models"
	drepo "Tradia/internal/domain/repository"
)

// SignalProcessor routes emitted signals to the configured backend.
type SignalProcessor struct {
	pub     drepo.Publisher
	store   drepo.SignalStore
	metrics drepo.Metrics
	backend string
}

// NewSignalProcessor creates a new SignalProcessor instance.
func NewSignalProcessor(pub drepo.Publisher, store drepo.SignalStore, metrics drepo.Metrics, backend string) *SignalProcessor {
	return &SignalProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Process routes a single signal to the configured backend. With the kafka
// backend the consumer persists it; with clickhouse it is stored directly,
// along with its initial pending outcome.
func (p *SignalProcessor) Process(ctx context.Context, s *models.Signal) error {
	if s == nil {
		return fmt.Errorf("signal is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, s)
	case "clickhouse":
		err = p.storeWithOutcome(ctx, s)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process signal: %w", err)
	}

	p.metrics.RecordSignalEmitted(p.backend, s.Ticker)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

// ProcessBatch routes multiple signals in a batch.
func (p *SignalProcessor) ProcessBatch(ctx context.Context, signals []*models.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, signals)
	case "clickhouse":
		for _, s := range signals {
			if err = p.storeWithOutcome(ctx, s); err != nil {
				break
			}
		}
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, s := range signals {
		p.metrics.RecordSignalEmitted(p.backend, s.Ticker)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

func (p *SignalProcessor) storeWithOutcome(ctx context.Context, s *models.Signal) error {
	if err := p.store.InsertSignal(ctx, s); err != nil {
		return err
	}
	return p.store.InsertOutcome(ctx, PendingOutcomeFor(s))
}

// PendingOutcomeFor builds the initial outcome row for a fresh signal.
func PendingOutcomeFor(s *models.Signal) *models.Outcome {
	return &models.Outcome{
		ID:        s.ID + ":outcome",
		SignalID:  s.ID,
		Status:    models.OutcomePending,
		Deadline:  s.CreatedAt.AddDate(0, 0, s.HorizonDays),
		CreatedAt: s.CreatedAt,
	}
}

// Close closes underlying resources if available.
func (p *SignalProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
