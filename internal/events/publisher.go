// Package events publishes job lifecycle events to Kafka so downstream
// consumers can react to aggregation progress without polling the API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/research-aggregation-service/internal/config"
	"github.com/helixir/research-aggregation-service/internal/domain"
)

const serviceName = "research-aggregation-service"

// StatusEvent is the wire format for a job status transition.
type StatusEvent struct {
	EventID    string    `json:"event_id"`
	Source     string    `json:"source"`
	JobID      string    `json:"job_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// messageWriter is the subset of kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes job status transitions to a Kafka topic.
// Messages are keyed by job ID so transitions for one job stay ordered
// within a partition.
type KafkaPublisher struct {
	writer messageWriter
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher from Kafka configuration.
func NewKafkaPublisher(cfg config.KafkaConfig, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}

	return &KafkaPublisher{
		writer: writer,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// PublishTransition publishes a single job status transition.
func (p *KafkaPublisher) PublishTransition(ctx context.Context, jobID uuid.UUID, from, to domain.JobStatus) error {
	msg, err := buildMessage(jobID, string(from), string(to), time.Now().UTC())
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing status event: %w", err)
	}

	p.logger.Debug().
		Str("job_id", jobID.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("published status event")
	return nil
}

// Close flushes pending messages and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// buildMessage constructs the Kafka message for a status transition.
func buildMessage(jobID uuid.UUID, from, to string, at time.Time) (kafka.Message, error) {
	event := StatusEvent{
		EventID:    uuid.New().String(),
		Source:     serviceName,
		JobID:      jobID.String(),
		FromStatus: from,
		ToStatus:   to,
		OccurredAt: at,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshaling status event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(jobID.String()),
		Value: payload,
		Time:  at,
	}, nil
}
