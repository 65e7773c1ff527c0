package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/snowpack-climatology/internal/config"
	"github.com/couchcryptid/snowpack-climatology/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces water-year tables to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured table topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		// A table is a few hundred kilobytes of mostly repeated JSON keys.
		Compression: kafkago.Snappy,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes the table and writes it keyed by series label, so every
// table for one site lands on the same partition in order.
func (w *Writer) Publish(ctx context.Context, table domain.WaterYearTable) error {
	msg, err := serializeToMessage(table)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	w.logger.Debug("table published",
		"topic", w.writer.Topic, "label", table.Label,
		"water_year", table.WaterYear, "bytes", len(msg.Value))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a WaterYearTable into a Kafka message.
func serializeToMessage(table domain.WaterYearTable) (kafkago.Message, error) {
	data, err := json.Marshal(table)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize water-year table: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(table.Label),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "water_year", Value: []byte(strconv.Itoa(table.WaterYear))},
			{Key: "generated_at", Value: []byte(table.GeneratedAt.UTC().Format(time.RFC3339))},
			{Key: "run_id", Value: []byte(table.RunID)},
		},
	}, nil
}
