package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nguyentranbao-ct/deal-monitor/internal/config"
	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/nguyentranbao-ct/deal-monitor/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const patternReportable = "deal.reportable"

// DealEvent is published once per reportable listing.
type DealEvent struct {
	Pattern string        `json:"pattern"`
	Data    DealEventData `json:"data"`
}

type DealEventData struct {
	RunID     string         `json:"run_id"`
	CheckedAt time.Time      `json:"checked_at"`
	Subject   string         `json:"subject"`
	Deal      models.Listing `json:"deal"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes reportable listings as events keyed by deal id.
type Kafka struct {
	writer messageWriter
	topic  string
	log    *zap.SugaredLogger
}

func NewKafka(cfg *config.KafkaConfig) *Kafka {
	return newKafka(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}, cfg.Topic)
}

func newKafka(w messageWriter, topic string) *Kafka {
	return &Kafka{writer: w, topic: topic, log: logger.Named("kafka")}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Dispatch(ctx context.Context, digest *models.Digest) error {
	if err := checkDigest(digest); err != nil {
		return err
	}

	msgs := make([]kafka.Message, 0, len(digest.Listings))
	for _, l := range digest.Listings {
		value, err := json.Marshal(DealEvent{
			Pattern: patternReportable,
			Data: DealEventData{
				RunID:     digest.RunID,
				CheckedAt: digest.CheckedAt,
				Subject:   digest.Subject,
				Deal:      l,
			},
		})
		if err != nil {
			return fmt.Errorf("%w: encode event %s: %w", models.ErrNotification, l.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(l.ID),
			Value: value,
			Time:  digest.CheckedAt,
		})
	}

	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		k.log.Errorw("failed to publish deal events", "topic", k.topic, "error", err)
		return fmt.Errorf("%w: kafka publish: %w", models.ErrNotification, err)
	}
	k.log.Infow("deal events published", "topic", k.topic, "count", len(msgs))
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
