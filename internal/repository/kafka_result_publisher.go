package repository

import (
	"context"
	"fmt"
	"time"

	"TypoTrade/internal/domain/models"
	domrepo "TypoTrade/internal/domain/repository"
	pkgkafka "TypoTrade/pkg/kafka"
)

// Result kinds carried in the stream envelope.
const (
	KindPair        = "pair"
	KindCorrelation = "correlation"
	KindBacktest    = "backtest"
	KindIPOEvent    = "ipo_event"
)

// envelope wraps one study result for downstream consumers.
type envelope struct {
	Kind      string      `json:"kind"`
	EmittedAt time.Time   `json:"emitted_at"`
	Payload   interface{} `json:"payload"`
}

// KafkaResultPublisher implements Publisher on top of the Kafka producer.
// Messages are keyed by target symbol so one pair's results stay ordered
// within a partition.
type KafkaResultPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaResultPublisher(producer *pkgkafka.Producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) PublishPairs(ctx context.Context, pairs []models.CandidatePair) error {
	msgs := make([]pkgkafka.Message, 0, len(pairs))
	now := time.Now().UTC()
	for _, pair := range pairs {
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(pair.Target.Symbol),
			Value: envelope{Kind: KindPair, EmittedAt: now, Payload: pair},
		})
	}
	return p.publish(ctx, KindPair, msgs)
}

func (p *KafkaResultPublisher) PublishCorrelations(ctx context.Context, results []models.CorrelationResult) error {
	msgs := make([]pkgkafka.Message, 0, len(results))
	now := time.Now().UTC()
	for _, r := range results {
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(r.Target),
			Value: envelope{Kind: KindCorrelation, EmittedAt: now, Payload: r},
		})
	}
	return p.publish(ctx, KindCorrelation, msgs)
}

func (p *KafkaResultPublisher) PublishBacktests(ctx context.Context, results []models.BacktestResult) error {
	msgs := make([]pkgkafka.Message, 0, len(results))
	now := time.Now().UTC()
	for _, r := range results {
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(r.Target),
			Value: envelope{Kind: KindBacktest, EmittedAt: now, Payload: r},
		})
	}
	return p.publish(ctx, KindBacktest, msgs)
}

func (p *KafkaResultPublisher) PublishIPOEvents(ctx context.Context, events []models.IPOEvent) error {
	msgs := make([]pkgkafka.Message, 0, len(events))
	now := time.Now().UTC()
	for _, e := range events {
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(e.Pair.Target.Symbol),
			Value: envelope{Kind: KindIPOEvent, EmittedAt: now, Payload: e},
		})
	}
	return p.publish(ctx, KindIPOEvent, msgs)
}

func (p *KafkaResultPublisher) Close() error {
	return p.producer.Close()
}

func (p *KafkaResultPublisher) publish(ctx context.Context, kind string, msgs []pkgkafka.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		return fmt.Errorf("publish %s batch: %w", kind, err)
	}
	return nil
}

var _ domrepo.Publisher = (*KafkaResultPublisher)(nil)
