package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"MarketPulse/internal/config"
	"MarketPulse/internal/domain"
	"MarketPulse/internal/ports"
	"MarketPulse/pkg/logger"
)

// KafkaQueue carries tasks over a Kafka topic. Offsets are committed only
// after the handler returns, so a crashed worker's task is redelivered.
type KafkaQueue struct {
	cfg    config.KafkaConfig
	writer *kafka.Writer
	dlq    *kafka.Writer
	logger *slog.Logger
}

var _ ports.TaskQueue = (*KafkaQueue)(nil)

// NewKafkaQueue builds the producer side; readers are created per consumer.
func NewKafkaQueue(cfg config.KafkaConfig, log *slog.Logger) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka queue needs brokers and topic")
	}
	return &KafkaQueue{
		cfg: cfg,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  3,
		},
		dlq: &kafka.Writer{
			Addr:        kafka.TCP(cfg.Brokers...),
			Topic:       cfg.Topic + "_dlq",
			MaxAttempts: 3,
		},
		logger: logger.OrDiscard(log).With("component", "kafka-queue", "topic", cfg.Topic),
	}, nil
}

func (q *KafkaQueue) Enqueue(ctx context.Context, task domain.Task) error {
	msg, err := encodeTask(task)
	if err != nil {
		return err
	}
	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish task %s: %w", task.ID, err)
	}
	return nil
}

// Consume joins the consumer group and feeds tasks to handler until ctx ends.
func (q *KafkaQueue) Consume(ctx context.Context, handler ports.TaskHandler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        q.cfg.Brokers,
		Topic:          q.cfg.Topic,
		GroupID:        q.cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
	defer reader.Close()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			q.logger.Error("fetch message", "err", err)
			select {
			case <-time.After(time.Second):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		task, err := decodeTask(msg)
		if err != nil {
			q.logger.Warn("undecodable task, sending to DLQ", "partition", msg.Partition, "offset", msg.Offset, "err", err)
			if dlqErr := q.deadLetter(ctx, msg, err); dlqErr != nil {
				q.logger.Error("dlq write failed", "err", dlqErr)
				continue
			}
		} else {
			handler(ctx, task)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			q.logger.Error("commit message", "partition", msg.Partition, "offset", msg.Offset, "err", err)
		}
	}
}

func (q *KafkaQueue) deadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	return q.dlq.WriteMessages(ctx, kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprint(msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprint(msg.Offset))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
		),
	})
}

func (q *KafkaQueue) Close() error {
	return errors.Join(q.writer.Close(), q.dlq.Close())
}

func encodeTask(task domain.Task) (kafka.Message, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode task: %w", err)
	}
	return kafka.Message{
		Key:   []byte(task.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(task.Kind)},
		},
	}, nil
}

func decodeTask(msg kafka.Message) (domain.Task, error) {
	var task domain.Task
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		return domain.Task{}, fmt.Errorf("decode task: %w", err)
	}
	if task.ID == "" || task.Kind == "" {
		return domain.Task{}, errors.New("task without id or kind")
	}
	return task, nil
}
