package usecase

import (
	"context"
	"encoding/json"
	"time"

	"Tradia/internal/domain/models"
	drepo "Tradia/internal/domain/repository"
	pkgkafka "Tradia/pkg/kafka"
)

// KafkaSignalsHandler consumes published signals from Kafka and persists
// them with a pending outcome. Used when the scanner and the storage writer
// run as separate processes.
type KafkaSignalsHandler struct {
	topic   string
	store   drepo.SignalStore
	metrics drepo.Metrics
}

func NewKafkaSignalsHandler(topic string, store drepo.SignalStore, metrics drepo.Metrics) *KafkaSignalsHandler {
	return &KafkaSignalsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaSignalsHandler) Topic() string { return h.topic }

func (h *KafkaSignalsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		ID            string             `json:"id"`
		CreatedAt     int64              `json:"created_at"`
		Ticker        string             `json:"ticker"`
		CompanyName   string             `json:"company_name"`
		Sector        string             `json:"sector"`
		Timeframe     string             `json:"timeframe"`
		Direction     string             `json:"direction"`
		PriceAtSignal float64            `json:"price_at_signal"`
		TargetPrice   float64            `json:"target_price"`
		StopLoss      float64            `json:"stop_loss"`
		MLProba       float64            `json:"ml_proba"`
		Stars         int                `json:"stars"`
		Rank          int                `json:"rank"`
		TopPick       bool               `json:"top_pick"`
		HorizonDays   int                `json:"horizon_days"`
		WindowTag     string             `json:"window_tag"`
		StrategyTags  []string           `json:"strategy_tags"`
		CandleTags    []string           `json:"candle_tags"`
		Support       float64            `json:"support"`
		Resistance    float64            `json:"resistance"`
		Indicators    map[string]float64 `json:"indicators"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	sig := &models.Signal{
		ID:            m.ID,
		CreatedAt:     time.Unix(m.CreatedAt, 0).UTC(),
		Ticker:        m.Ticker,
		CompanyName:   m.CompanyName,
		Sector:        m.Sector,
		Timeframe:     string(drepo.NormalizeTimeframe(m.Timeframe)),
		Direction:     m.Direction,
		PriceAtSignal: m.PriceAtSignal,
		TargetPrice:   m.TargetPrice,
		StopLoss:      m.StopLoss,
		MLProba:       m.MLProba,
		Stars:         m.Stars,
		Rank:          m.Rank,
		TopPick:       m.TopPick,
		HorizonDays:   m.HorizonDays,
		WindowTag:     m.WindowTag,
		StrategyTags:  m.StrategyTags,
		CandleTags:    m.CandleTags,
		Support:       m.Support,
		Resistance:    m.Resistance,
		Indicators:    m.Indicators,
	}

	start := time.Now()
	if err := h.store.InsertSignal(ctx, sig); err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())

	outcome := PendingOutcomeFor(sig)
	if err := h.store.InsertOutcome(ctx, outcome); err != nil {
		h.metrics.RecordError("consumer_outcome")
		return err
	}
	h.metrics.RecordSignalEmitted("clickhouse", sig.Ticker)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSignalsHandler)(nil)
