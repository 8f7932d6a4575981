package repository

import (
	"context"

	"Tradia/internal/domain/models"
	"Tradia/internal/domain/repository"
	pkgkafka "Tradia/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates a Kafka signal publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, s *models.Signal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Ticker), signalPayload(s))
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, signals []*models.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(signals))
	for i, s := range signals {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(s.Ticker),
			Value: signalPayload(s),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func signalPayload(s *models.Signal) map[string]interface{} {
	return map[string]interface{}{
		"id":              s.ID,
		"created_at":      s.CreatedAt.Unix(),
		"ticker":          s.Ticker,
		"company_name":    s.CompanyName,
		"sector":          s.Sector,
		"timeframe":       s.Timeframe,
		"direction":       s.Direction,
		"price_at_signal": s.PriceAtSignal,
		"target_price":    s.TargetPrice,
		"stop_loss":       s.StopLoss,
		"ml_proba":        s.MLProba,
		"stars":           s.Stars,
		"rank":            s.Rank,
		"top_pick":        s.TopPick,
		"horizon_days":    s.HorizonDays,
		"window_tag":      s.WindowTag,
		"strategy_tags":   s.StrategyTags,
		"candle_tags":     s.CandleTags,
		"support":         s.Support,
		"resistance":      s.Resistance,
		"indicators":      s.Indicators,
	}
}
