package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/vaccine-data-etl/internal/config"
	"github.com/couchcryptid/vaccine-data-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the Writer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces series messages to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic. Batches
// stay under cfg.KafkaBatchBytes, which defaults to the broker's stock limit.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	batchBytes := cfg.KafkaBatchBytes
	if batchBytes <= 0 {
		batchBytes = config.DefaultKafkaBatchBytes
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchBytes:   int64(batchBytes),
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes every event in a single WriteMessages call.
// Keys hash to a fixed partition so each entity's updates stay ordered.
func (w *Writer) Publish(ctx context.Context, events []domain.SeriesEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d series messages: %w", len(msgs), err)
	}
	w.logger.Debug("series published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SeriesEvent's series into a Kafka message.
// Run metadata travels in headers so the value is the bare series.
func serializeToMessage(event domain.SeriesEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event.Series)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s series %q: %w", event.Granularity, event.Key, err)
	}
	return kafkago.Message{
		Key:   []byte(event.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "granularity", Value: []byte(event.Granularity)},
			{Key: "run_id", Value: []byte(event.RunID)},
			{Key: "processed_at", Value: []byte(event.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
