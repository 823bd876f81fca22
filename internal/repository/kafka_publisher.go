package repository

import (
	"context"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"

	"FXBias/internal/domain/models"
	domrepo "FXBias/internal/domain/repository"
	pkgkafka "FXBias/pkg/kafka"
)

type batchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// AnalysisEvent is the message value published per currency.
type AnalysisEvent struct {
	Currency   string                   `json:"currency"`
	FinalScore float64                  `json:"finalScore"`
	Analysis   *models.CurrencyAnalysis `json:"analysis"`
	Timestamp  time.Time                `json:"timestamp"`
}

// KafkaPublisher writes one message per currency, keyed by currency code so
// that a currency's updates stay ordered within a partition.
type KafkaPublisher struct {
	p     batchProducer
	topic string
	now   func() time.Time
}

var _ domrepo.Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(p *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{p: p, topic: topic, now: time.Now}
}

func (k *KafkaPublisher) PublishAnalysis(ctx context.Context, data models.AnalysisData) error {
	if len(data) == 0 {
		return nil
	}
	return k.p.PublishBatch(ctx, k.topic, analysisMessages(data, k.now().UTC()))
}

func (k *KafkaPublisher) Close() error {
	return k.p.Close()
}

func analysisMessages(data models.AnalysisData, ts time.Time) []pkgkafka.Message {
	codes := make([]string, 0, len(data))
	for code, a := range data {
		if a != nil {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	msgs := make([]pkgkafka.Message, 0, len(codes))
	for _, code := range codes {
		a := data[code]
		msgs = append(msgs, pkgkafka.Message{
			Key: []byte(code),
			Value: AnalysisEvent{
				Currency:   code,
				FinalScore: a.FinalScore(),
				Analysis:   a,
				Timestamp:  ts,
			},
			Headers: []kafka.Header{{Key: "direction", Value: []byte(a.Direction)}},
		})
	}
	return msgs
}
