package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

const kafkaWriteTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes every trade as JSON keyed by session id.
// Notifications and errors go to a "notice" key on the same topic.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher writes to topic on the given brokers
func NewKafkaPublisher(settings core.KafkaSettings) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(settings.Brokers...),
		Topic:        settings.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func (k *KafkaPublisher) publish(key string, value []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), kafkaWriteTimeout)
	defer cancel()

	err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value})
	if err != nil {
		log.WithError(err).Error("notification/kafka: failed to publish")
	}
}

func (k *KafkaPublisher) OnTrade(trade core.TradeEvent) {
	content, err := json.Marshal(trade)
	if err != nil {
		log.WithError(err).Error("notification/kafka: failed to marshal trade")
		return
	}
	k.publish(trade.SessionID, content)
}

func (k *KafkaPublisher) Notify(text string) {
	content, _ := json.Marshal(map[string]string{"message": text})
	k.publish("notice", content)
}

func (k *KafkaPublisher) OnError(err error) {
	content, _ := json.Marshal(map[string]string{"error": err.Error()})
	k.publish("notice", content)
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
