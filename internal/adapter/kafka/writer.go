package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/flood-impact-service/internal/config"
	"github.com/couchcryptid/flood-impact-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces analysis results to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes the results in a single WriteMessages call.
// Results are keyed by analysis ID so a request's retries land on one partition.
func (w *Writer) LoadBatch(ctx context.Context, results []domain.AnalysisResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msg, err := serializeToMessage(results[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	w.logger.Debug("published results", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// resultMessage is the wire form: the result plus its derived percentages.
type resultMessage struct {
	domain.AnalysisResult
	Percentages domain.Percentages `json:"percentages"`
}

// serializeToMessage marshals an AnalysisResult into a Kafka message.
func serializeToMessage(result domain.AnalysisResult) (kafkago.Message, error) {
	data, err := json.Marshal(resultMessage{AnalysisResult: result, Percentages: result.Percentages()})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize analysis result: %w", err)
	}
	headers := []kafkago.Header{
		{Key: "status", Value: []byte(result.Status)},
		{Key: "completed_at", Value: []byte(result.CompletedAt.Format(time.RFC3339))},
	}
	if result.ErrorKind != "" {
		headers = append(headers, kafkago.Header{Key: "error_kind", Value: []byte(result.ErrorKind)})
	}
	return kafkago.Message{
		Key:     []byte(result.ID),
		Value:   data,
		Headers: headers,
	}, nil
}
