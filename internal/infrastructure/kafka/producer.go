package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/stock-alerts/internal/alert"
)

// Producer publishes alert broadcasts to Kafka. The topic is chosen per
// message so one writer serves both the general topic and the
// warehouse-scoped topics.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           2 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer}
}

// Publish implements the dispatch.Broadcaster contract. Messages are keyed
// by inventory id so all transitions for one record land on one partition.
func (p *Producer) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var key []byte
	if broadcast, ok := payload.(alert.Broadcast); ok {
		key = []byte(broadcast.InventoryID)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: data,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
