package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"chat-relay/internal/models"

	"github.com/IBM/sarama"
)

func InitKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy  // Enable compression
	config.Producer.Partitioner = sarama.NewHashPartitioner // Consistent hashing per receiver
	config.Version = sarama.V2_0_0_0
	config.ClientID = "chat-relay"
	config.Producer.MaxMessageBytes = 1000000 // 1MB

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return producer, nil
}

// MessagePublisher writes accepted chat messages to a topic keyed by
// receiver, so one receiver's messages stay on one partition.
type MessagePublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewMessagePublisher(producer sarama.SyncProducer, topic string) *MessagePublisher {
	return &MessagePublisher{producer: producer, topic: topic}
}

func (p *MessagePublisher) PublishMessage(ctx context.Context, msg *models.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(msg.ReceiverID), 10)),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("failed to publish message %d: %w", msg.ID, err)
	}

	slog.Debug("Published message", "messageID", msg.ID, "topic", p.topic, "partition", partition, "offset", offset)
	return nil
}

func (p *MessagePublisher) Close() error {
	return p.producer.Close()
}
