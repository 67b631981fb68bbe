package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is one delivered record.
type Message struct {
	Topic string
	Key   []byte
	Value []byte
}

// MessageHandler processes one message. Returning an error leaves the record
// uncommitted so the delivery layer redelivers it; handlers must therefore be
// idempotent.
type MessageHandler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Consumer runs a consumer-group poll loop on one topic, committing offsets
// only for records the handler accepted.
type Consumer struct {
	client  *kgo.Client
	handler MessageHandler
	logger  *slog.Logger
}

func NewConsumer(brokers []string, group, topic string, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer client: %w", err)
	}
	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until ctx is canceled. It is the independent background execution
// context for event propagation, fully decoupled from request handling.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var batch []*kgo.Record
		fetches.EachRecord(func(record *kgo.Record) {
			batch = append(batch, record)
		})

		processed := dispatch(ctx, c.handler, c.logger, batch)
		if len(processed) > 0 {
			if err := c.client.CommitRecords(ctx, processed...); err != nil {
				c.logger.ErrorContext(ctx, "offset commit failed", "error", err)
			}
		}
	}
}

type topicPartition struct {
	topic     string
	partition int32
}

// dispatch hands each record to the handler in fetch order and returns the
// records that are safe to commit. Once a record on a partition fails, the
// remaining records of that partition in the batch are skipped: committing a
// later offset would silently drop the failed record, so commits must never
// advance past a partition's first failure. Skipped and failed records stay
// uncommitted and the broker redelivers them; handlers must therefore be
// idempotent.
func dispatch(ctx context.Context, handler MessageHandler, logger *slog.Logger, records []*kgo.Record) []*kgo.Record {
	var processed []*kgo.Record
	failed := make(map[topicPartition]struct{})
	for _, record := range records {
		tp := topicPartition{topic: record.Topic, partition: record.Partition}
		if _, ok := failed[tp]; ok {
			continue
		}
		msg := &Message{Topic: record.Topic, Key: record.Key, Value: record.Value}
		if err := handler.Handle(ctx, msg); err != nil {
			failed[tp] = struct{}{}
			logger.ErrorContext(ctx, "message handling failed, leaving partition uncommitted",
				"topic", record.Topic,
				"partition", record.Partition,
				"offset", record.Offset,
				"error", err,
			)
			continue
		}
		processed = append(processed, record)
	}
	return processed
}
