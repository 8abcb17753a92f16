package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/flight-movement-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Movement header values.
const (
	MovementArrival   = "arrival"
	MovementDeparture = "departure"
)

// messageWriter is the subset of *kafkago.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes import tables to Kafka, one message per record.
// It implements pipeline.Sink.
type Writer struct {
	writer          messageWriter
	arrivalsTopic   string
	departuresTopic string
	logger          *slog.Logger
}

// NewWriter creates a Kafka producer. The topic is set per message, so the
// underlying writer has none.
func NewWriter(brokers []string, arrivalsTopic, departuresTopic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newWriter(w, arrivalsTopic, departuresTopic, logger)
}

func newWriter(w messageWriter, arrivalsTopic, departuresTopic string, logger *slog.Logger) *Writer {
	return &Writer{
		writer:          w,
		arrivalsTopic:   arrivalsTopic,
		departuresTopic: departuresTopic,
		logger:          logger,
	}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// WriteTables publishes both tables in a single WriteMessages call.
func (w *Writer) WriteTables(ctx context.Context, runID string, arrivals, departures []domain.Record) error {
	msgs := make([]kafkago.Message, 0, len(arrivals)+len(departures))
	for _, rec := range arrivals {
		msg, err := serializeToMessage(w.arrivalsTopic, MovementArrival, runID, rec)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	for _, rec := range departures {
		msg, err := serializeToMessage(w.departuresTopic, MovementDeparture, runID, rec)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("tables published", "run_id", runID, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a record into a Kafka message keyed by callsign.
func serializeToMessage(topic, movement, runID string, rec domain.Record) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s record: %w", movement, err)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(rec.Callsign.String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "movement", Value: []byte(movement)},
			{Key: "run_id", Value: []byte(runID)},
		},
	}, nil
}
