package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/location-intel-service/internal/config"
	"github.com/couchcryptid/location-intel-service/internal/domain"
)

// Publisher writes completed reports to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured assessment topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes a report and writes it keyed by its query coordinate,
// so reports for the same point land on the same partition.
func (p *Publisher) Publish(ctx context.Context, report domain.Report) error {
	msg, err := serializeToMessage(report)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	p.logger.Debug("report published", "key", string(msg.Key))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Report into a Kafka message.
func serializeToMessage(report domain.Report) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(MessageKey(report.Query)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_level", Value: []byte(report.Safety.Risk)},
			{Key: "generated_at", Value: []byte(report.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}

// MessageKey formats a coordinate as "<lat>,<lon>".
func MessageKey(g domain.Geo) string {
	return strconv.FormatFloat(g.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(g.Lon, 'f', -1, 64)
}
