// Package stream publishes exported STIX objects to Kafka and consumes them back.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"stixgraph/internal/logger"
	"stixgraph/internal/stixcore"
)

// TypeHeader carries the object's STIX type so consumers can filter without
// decoding the value.
const TypeHeader = "stix-type"

// Publisher writes one message per object, keyed by STIX id.
type Publisher struct {
	writer *kafka.Writer
	log    *logger.Logger
}

func NewPublisher(broker, topic string, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		log: log.With("component", "Publisher", "topic", topic),
	}
}

// Publish sends objects in one write call.
func (p *Publisher) Publish(ctx context.Context, objects []stixcore.Object) error {
	msgs, err := EncodeObjects(objects)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish %d objects: %w", len(msgs), err)
	}
	p.log.Info("published objects", "count", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// EncodeObjects turns objects into Kafka messages.
func EncodeObjects(objects []stixcore.Object) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(objects))
	for _, o := range objects {
		id := o.ID()
		if id == "" {
			return nil, fmt.Errorf("object of type %q has no id", o.Type())
		}
		data, err := json.Marshal(o)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", id, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(id),
			Value:   data,
			Headers: []kafka.Header{{Key: TypeHeader, Value: []byte(o.Type())}},
		})
	}
	return msgs, nil
}

// DecodeObject parses a message written by Publisher.
func DecodeObject(m kafka.Message) (stixcore.Object, error) {
	var o stixcore.Object
	if err := json.Unmarshal(m.Value, &o); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", m.Key, err)
	}
	if o.ID() == "" {
		return nil, fmt.Errorf("message %s holds an object without id", m.Key)
	}
	return o, nil
}

// Consumer reads published objects as part of a consumer group.
type Consumer struct {
	reader *kafka.Reader
	log    *logger.Logger
}

func NewConsumer(broker, topic, groupID string, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.Nop()
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{broker},
			Topic:       topic,
			GroupID:     groupID,
			MinBytes:    10e3, // 10KB
			MaxBytes:    10e6, // 10MB
			MaxAttempts: 10,
			Dialer: &kafka.Dialer{
				Timeout:   10 * time.Second,
				DualStack: true,
			},
		}),
		log: log.With("component", "Consumer", "topic", topic),
	}
}

// Run hands every decoded object to handle until ctx is cancelled. Undecodable
// messages and handler failures are logged and skipped.
func (c *Consumer) Run(ctx context.Context, handle func(stixcore.Object) error) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.log.Info("consumer stopped")
				return nil
			}
			c.log.Warn("error reading message", "error", err)
			continue
		}
		o, err := DecodeObject(m)
		if err != nil {
			c.log.Warn("skipping message", "partition", m.Partition, "offset", m.Offset, "error", err)
			continue
		}
		if err := handle(o); err != nil {
			c.log.Warn("failed to handle object", "id", o.ID(), "error", err)
			continue
		}
		c.log.Debug("handled object", "id", o.ID(), "partition", m.Partition, "offset", m.Offset)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
