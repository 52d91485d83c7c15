package kafka

import (
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// Producer sends messages to a broker and waits for the ack.
type Producer interface {
	ProduceSync(topic string, key, value []byte) error
	Close()
}

type producer struct {
	producer *kafka.Producer
	conf     Config
	log      *zap.Logger
}

func NewProducer(conf Config, log *zap.Logger) (Producer, error) {
	conf.applyDefaults()

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  conf.Brokers,
		"enable.idempotence": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	go func() {
		for e := range p.Events() {
			switch ev := e.(type) {
			case kafka.Error:
				log.Error("kafka producer error", zap.String("error", ev.Error()))
			}
		}
	}()

	return &producer{producer: p, conf: conf, log: log}, nil
}

// ProduceSync publishes one message and blocks until the broker acks it
// or the delivery times out. The outbox dispatcher must not mark an
// event published before the ack arrives.
func (p *producer) ProduceSync(topic string, key, value []byte) error {
	deliveryChan := make(chan kafka.Event, 1)

	err := p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          value,
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}

	select {
	case e := <-deliveryChan:
		msg, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event for topic %s: %v", topic, e)
		}
		if msg.TopicPartition.Error != nil {
			return fmt.Errorf("failed to deliver message to topic %s: %w", topic, msg.TopicPartition.Error)
		}
		return nil
	case <-time.After(p.conf.DeliveryTimeout):
		return fmt.Errorf("delivery to topic %s timed out", topic)
	}
}

func (p *producer) Close() {
	p.producer.Flush(int(p.conf.FlushTimeout.Milliseconds()))
	p.producer.Close()
}
