package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/storefront/commerce-backend/pkg/logger"
)

var ErrNoBrokers = errors.New("kafka notifier requires at least one broker")

// KafkaNotifier publishes notifications as JSON to one topic. A mail or
// SMS worker consumes the topic; this service never talks to SMTP.
type KafkaNotifier struct {
	writer *kafka.Writer
	from   string
}

func NewKafkaNotifier(brokers []string, topic, from string) (*KafkaNotifier, error) {
	var addrs []string
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	if len(addrs) == 0 {
		return nil, ErrNoBrokers
	}

	logger.Info("Kafka notifier configured", map[string]interface{}{
		"brokers": addrs,
		"topic":   topic,
	})

	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(addrs...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
		from: from,
	}, nil
}

func (n *KafkaNotifier) Send(ctx context.Context, msg Message) error {
	payload := struct {
		Message
		From string `json:"from"`
	}{Message: msg, From: n.from}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(messageKey(msg)),
		Value: data,
		Time:  msg.CreatedAt,
	})
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// messageKey keeps one business's notifications on one partition.
func messageKey(msg Message) string {
	return fmt.Sprintf("business-%d", msg.BusinessID)
}
